package orchestrator

import (
	"log/slog"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// IsProviderConfigured reports whether the provider has at least one
// credential, in any state.
func (s *Service) IsProviderConfigured(provider domain.ProviderType) bool {
	return s.registry.ConfiguredCount(provider) > 0
}

// ConfiguredKeyCount returns how many credentials the provider has.
func (s *Service) ConfiguredKeyCount(provider domain.ProviderType) int {
	return s.registry.ConfiguredCount(provider)
}

// ActiveKeyCount returns how many of the provider's credentials are
// currently in rotation.
func (s *Service) ActiveKeyCount(provider domain.ProviderType) int {
	return s.registry.ActiveCount(provider)
}

// APIStatus returns redacted per-credential snapshots for the provider
// in rotation order. Secrets are always masked.
func (s *Service) APIStatus(provider domain.ProviderType) []domain.CredentialStatus {
	return s.registry.Status(provider)
}

// QuotaSummary aggregates the provider's pool composition and usage.
func (s *Service) QuotaSummary(provider domain.ProviderType) domain.PoolSummary {
	return s.registry.Summary(provider)
}

// Providers lists every provider with at least one configured credential.
func (s *Service) Providers() []domain.ProviderType {
	return s.registry.Providers()
}

// ResetFailedKeys returns the provider's exhausted and disabled
// credentials to rotation and clears their counters. Returns how many
// credentials were restored.
func (s *Service) ResetFailedKeys(provider domain.ProviderType) int {
	restored := s.registry.ResetFailed(provider)
	s.refreshGauges(provider)
	if restored > 0 {
		s.logger.Info("credentials restored to rotation",
			slog.String("provider", string(provider)),
			slog.Int("restored", restored),
		)
	}
	return restored
}

// ReloadAPIKeys merges a fresh credential set into the running pools
// without dropping accumulated health.
func (s *Service) ReloadAPIKeys(specs []domain.CredentialSpec) domain.ReloadSummary {
	summary := s.registry.Reload(specs)
	for _, provider := range s.registry.Providers() {
		s.refreshGauges(provider)
	}
	s.logger.Info("credential pools reloaded",
		slog.Int("added", summary.Added),
		slog.Int("refreshed", summary.Refreshed),
		slog.Int("carried", summary.Carried),
	)
	return summary
}
