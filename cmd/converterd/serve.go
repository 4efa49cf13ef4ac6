package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/VidZid2/STI-sub006/internal/adapter"
	"github.com/VidZid2/STI-sub006/internal/config"
	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/handler"
	"github.com/VidZid2/STI-sub006/internal/localconvert"
	"github.com/VidZid2/STI-sub006/internal/metrics"
	"github.com/VidZid2/STI-sub006/internal/orchestrator"
	"github.com/VidZid2/STI-sub006/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion gateway",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func runServe() error {
	ui.PrintBanner()

	cfg, err := loadConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	logger := setupLogger(cfg)
	logger.Info("starting converterd",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.Int("credentials", len(cfg.Credentials.Entries)),
	)

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open health store", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	registry := domain.NewRegistry(cfg.CredentialSpecs(),
		domain.WithRegistryLogger(logger),
		domain.WithHealthSink(store),
	)

	// Restart must not forget exhausted or disabled keys.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 5*time.Second)
	records, err := store.LoadAll(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Warn("could not load persisted key health", slog.String("error", err.Error()))
	} else if len(records) > 0 {
		registry.RestoreHealth(records)
		logger.Info("restored key health", slog.Int("records", len(records)))
	}

	collector := metrics.NewCollector()

	service := orchestrator.NewService(registry,
		[]adapter.ProviderAdapter{
			adapter.NewConvertAPIAdapter(),
			adapter.NewPDFCoAdapter(),
			adapter.NewTextGearsAdapter(),
		},
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(collector),
		orchestrator.WithLocalFallback(localconvert.New()),
		orchestrator.WithTransientRetries(cfg.Orchestrator.TransientRetries),
		orchestrator.WithAttemptTimeout(time.Duration(cfg.Orchestrator.AttemptTimeoutSeconds)*time.Second),
		orchestrator.WithJobTimeout(time.Duration(cfg.Orchestrator.JobTimeoutSeconds)*time.Second),
		orchestrator.WithRetryBackoff(time.Duration(cfg.Orchestrator.RetryBackoffMillis)*time.Millisecond),
	)

	grammarCache := handler.NewGrammarCache(handler.WithCacheLogger(logger))
	defer grammarCache.Close()

	convertHandler := handler.NewConvertHandler(service,
		handler.WithHandlerLogger(logger),
		handler.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB)<<20),
		handler.WithGrammarCache(grammarCache),
	)

	statusHandler := handler.NewStatusHandler(service,
		handler.WithStatusLogger(logger),
		handler.WithCredentialReloader(reloadCredentialSpecs),
	)

	router := handler.NewRouter(convertHandler, statusHandler, collector.Handler(), logger, cfg.Logging.Level == "debug")

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.String("address", addr))
		ui.PrintStartupInfo(cfg.Server.Host, cfg.Server.Port, activeKeyTotal(service))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
	return nil
}

// reloadCredentialSpecs re-reads the credential configuration for the
// reload endpoint. The singleton is reset first so a changed config file
// or rotated environment variables actually land.
func reloadCredentialSpecs() ([]domain.CredentialSpec, error) {
	config.ResetConfig()
	cfg, err := loadConfiguration()
	if err != nil {
		return nil, err
	}
	return cfg.CredentialSpecs(), nil
}

// activeKeyTotal sums active credentials across providers for the
// startup summary.
func activeKeyTotal(service *orchestrator.Service) int {
	total := 0
	for _, provider := range domain.AllProviders {
		total += service.ActiveKeyCount(provider)
	}
	return total
}
