// Package domain contains the core business entities and value objects.
package domain

import (
	"context"
	"time"
)

// KeyHealth is the durable health record for one credential. The registry
// writes a record through on every state or counter change so a restart
// does not forget which keys are exhausted.
type KeyHealth struct {
	CredentialID        string       `json:"credential_id"`
	Provider            ProviderType `json:"provider"`
	State               KeyState     `json:"state"`
	UsedCount           int64        `json:"used_count"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastUsedAt          time.Time    `json:"last_used_at"`
	LastFailureAt       time.Time    `json:"last_failure_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// HealthSink receives credential health updates from the registry.
// Implementations must be safe for concurrent use. Sink errors are
// logged and never fail the operation that triggered the write.
type HealthSink interface {
	// SaveKeyHealth upserts the record keyed by CredentialID.
	SaveKeyHealth(ctx context.Context, health KeyHealth) error
}

// healthRecord builds the persistence record for a credential as of now.
func healthRecord(c *Credential, now time.Time) KeyHealth {
	return KeyHealth{
		CredentialID:        c.ID,
		Provider:            c.Provider,
		State:               c.State,
		UsedCount:           c.UsedCount,
		ConsecutiveFailures: c.ConsecutiveFailures,
		LastUsedAt:          c.LastUsedAt,
		LastFailureAt:       c.LastFailureAt,
		UpdatedAt:           now,
	}
}
