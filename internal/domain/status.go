// Package domain contains the core business entities and value objects.
package domain

import "time"

// CredentialStatus is the redacted, read-only view of one credential,
// safe to ship to operators and the portal UI.
type CredentialStatus struct {
	ID                  string       `json:"id"`
	Provider            ProviderType `json:"provider"`
	Secret              string       `json:"secret"` // masked, never the raw value
	State               KeyState     `json:"state"`
	UsedCount           int64        `json:"used_count"`
	QuotaLimit          int64        `json:"quota_limit,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastUsedAt          time.Time    `json:"last_used_at,omitempty"`
	LastFailureAt       time.Time    `json:"last_failure_at,omitempty"`
}

// PoolSummary aggregates one provider's pool for dashboards and health
// endpoints.
type PoolSummary struct {
	Provider   ProviderType `json:"provider"`
	Configured int          `json:"configured"`
	Active     int          `json:"active"`
	Exhausted  int          `json:"exhausted"`
	Disabled   int          `json:"disabled"`

	// UsedTotal sums UsedCount across the pool.
	UsedTotal int64 `json:"used_total"`

	// QuotaTotal sums the known quota limits. Zero when no key has one.
	QuotaTotal int64 `json:"quota_total,omitempty"`

	// Remaining estimates calls left across keys with known limits.
	// Meaningful only when QuotaKnown is true.
	Remaining  int64 `json:"remaining,omitempty"`
	QuotaKnown bool  `json:"quota_known"`
}

// Status returns redacted snapshots of the provider's credentials in
// rotation order.
func (r *Registry) Status(provider ProviderType) []CredentialStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool := r.pools[provider]
	statuses := make([]CredentialStatus, 0, len(pool))
	for _, c := range pool {
		statuses = append(statuses, CredentialStatus{
			ID:                  c.ID,
			Provider:            c.Provider,
			Secret:              c.MaskedSecret(),
			State:               c.State,
			UsedCount:           c.UsedCount,
			QuotaLimit:          c.QuotaLimit,
			ConsecutiveFailures: c.ConsecutiveFailures,
			LastUsedAt:          c.LastUsedAt,
			LastFailureAt:       c.LastFailureAt,
		})
	}
	return statuses
}

// Summary aggregates the provider's pool counts and quota usage.
func (r *Registry) Summary(provider ProviderType) PoolSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := PoolSummary{Provider: provider}
	for _, c := range r.pools[provider] {
		summary.Configured++
		switch c.State {
		case KeyActive:
			summary.Active++
		case KeyExhausted:
			summary.Exhausted++
		case KeyDisabled:
			summary.Disabled++
		}
		summary.UsedTotal += c.UsedCount
		if c.QuotaLimit > 0 {
			summary.QuotaKnown = true
			summary.QuotaTotal += c.QuotaLimit
			if left := c.QuotaLimit - c.UsedCount; left > 0 {
				summary.Remaining += left
			}
		}
	}
	return summary
}
