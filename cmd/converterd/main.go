// Package main is the entry point for the converterd daemon and its
// maintenance commands.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/VidZid2/STI-sub006/internal/config"
	"github.com/VidZid2/STI-sub006/internal/security"
	"github.com/VidZid2/STI-sub006/internal/statestore"
)

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "converterd",
	Short: "Document conversion gateway for the student portal",
	Long: `converterd fronts the portal's document conversions (DOC/DOCX to PDF,
images to PDF, PDF merging, PDF to DOCX) and grammar checks with a pool of
per-provider API credentials. Keys rotate round-robin, exhausted or rejected
keys leave the rotation, and jobs fail over across providers before falling
back to the built-in offline converter.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Missing .env is fine; the environment may carry the keys.
		_ = godotenv.Load()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			fmt.Printf("Error displaying help: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default: search ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the credential health database (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetKeysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfiguration resolves the config honoring the --config flag.
func loadConfiguration() (*config.Configuration, error) {
	if flagConfig != "" {
		return config.GetConfigWithPath(flagConfig)
	}
	return config.GetConfig()
}

// storagePath resolves the health database location. The --db flag wins
// over the config file; empty means in-memory only.
func storagePath(cfg *config.Configuration) string {
	if flagDB != "" {
		return flagDB
	}
	return cfg.Storage.Path
}

// openStore opens the configured health store.
func openStore(cfg *config.Configuration) (statestore.Store, error) {
	path := storagePath(cfg)
	if path == "" {
		return statestore.NewMemory(), nil
	}
	return statestore.NewSQLite(path)
}

// setupLogger builds the process logger with credential redaction in
// front of the configured handler.
func setupLogger(cfg *config.Configuration) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.Logging.Format == "text" {
		inner = slog.NewTextHandler(os.Stdout, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(security.NewRedactedHandler(inner))
	slog.SetDefault(logger)

	return logger
}
