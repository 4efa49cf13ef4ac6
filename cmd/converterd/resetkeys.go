package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VidZid2/STI-sub006/internal/domain"
	"github.com/VidZid2/STI-sub006/internal/ui"
)

var resetKeysCmd = &cobra.Command{
	Use:   "reset-keys <provider>",
	Short: "Return a provider's exhausted and disabled keys to rotation",
	Long: `reset-keys clears the persisted failure state of every exhausted or
disabled key for the given provider. Use it after a quota window renews or
after rotating in replacement keys. A running server picks the change up on
its next restart or reload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		provider := domain.ProviderType(args[0])
		if !provider.IsValid() {
			return fmt.Errorf("unknown provider %q", args[0])
		}
		return runResetKeys(provider)
	},
}

func runResetKeys(provider domain.ProviderType) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reset, err := store.Reset(ctx, provider)
	if err != nil {
		return fmt.Errorf("reset keys: %w", err)
	}

	ui.PrintResetResult(string(provider), reset)
	return nil
}
