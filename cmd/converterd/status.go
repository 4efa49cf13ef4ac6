package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [provider]",
	Short: "Show credential pool health without starting the server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var only domain.ProviderType
		if len(args) == 1 {
			only = domain.ProviderType(args[0])
			if !only.IsValid() {
				return fmt.Errorf("unknown provider %q", args[0])
			}
		}
		return runStatus(only)
	},
}

func runStatus(only domain.ProviderType) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Read-only view: the registry gets no health sink, so inspecting
	// pools never writes to the store.
	registry := domain.NewRegistry(cfg.CredentialSpecs())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	records, err := store.LoadAll(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("load key health: %w", err)
	}
	registry.RestoreHealth(records)

	providers := domain.AllProviders
	if only != "" {
		providers = []domain.ProviderType{only}
	}

	for _, provider := range providers {
		statuses := registry.Status(provider)

		rows := make([]ui.KeyRow, 0, len(statuses))
		for _, s := range statuses {
			rows = append(rows, ui.KeyRow{
				ID:       s.ID,
				Secret:   s.Secret,
				State:    string(s.State),
				Used:     s.UsedCount,
				Limit:    s.QuotaLimit,
				Failures: s.ConsecutiveFailures,
				LastUsed: s.LastUsedAt,
			})
		}
		ui.PrintKeyTable(string(provider), rows)

		if len(rows) > 0 {
			summary := registry.Summary(provider)
			ui.PrintPoolSummary(string(provider), summary.Active, summary.Exhausted, summary.Disabled, summary.Remaining, summary.QuotaKnown)
		}
	}

	return nil
}
