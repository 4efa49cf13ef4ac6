// Package domain contains the core business entities and value objects.
package domain

import (
	"fmt"
	"time"
)

// KeyState represents the lifecycle state of a pooled credential.
type KeyState string

const (
	// KeyActive means the credential is in rotation and eligible for selection.
	KeyActive KeyState = "active"

	// KeyExhausted means the credential hit its quota and is out of rotation
	// until an operator resets it.
	KeyExhausted KeyState = "exhausted"

	// KeyDisabled means the provider rejected the credential as invalid
	// (revoked, expired, or never valid). Out of rotation until reset.
	KeyDisabled KeyState = "disabled"
)

// Credential is a single API key for an external provider, together with
// the local bookkeeping the rotation logic needs.
type Credential struct {
	// ID uniquely identifies this credential within the registry,
	// in the form "<provider>:<index>" (configuration order, 1-based).
	ID string `json:"id"`

	// Provider is the service this credential authenticates against.
	Provider ProviderType `json:"provider"`

	// Secret is the raw API key. Never logged and never serialized.
	Secret string `json:"-"`

	// State is the current lifecycle state.
	State KeyState `json:"state"`

	// UsedCount is the number of successful external calls charged to
	// this credential. Best-effort local accounting, not provider truth.
	UsedCount int64 `json:"used_count"`

	// QuotaLimit is the provider-side allowance for this credential,
	// when known. Zero means unknown; the limit is informational and
	// never enforced locally.
	QuotaLimit int64 `json:"quota_limit"`

	// ConsecutiveFailures counts transient failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastUsedAt is the time of the last successful call.
	LastUsedAt time.Time `json:"last_used_at"`

	// LastFailureAt is the time of the last failure of any kind.
	LastFailureAt time.Time `json:"last_failure_at"`
}

// IsActive reports whether the credential is eligible for selection.
func (c *Credential) IsActive() bool {
	return c.State == KeyActive
}

// MaskedSecret returns a redacted form of the secret safe for logs and
// status output: first four and last four characters with the middle
// elided. Short secrets are fully masked.
func (c *Credential) MaskedSecret() string {
	return MaskSecret(c.Secret)
}

// MaskSecret redacts an API key for display. Secrets of eight characters
// or fewer are fully replaced so the mask never reveals most of the value.
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) <= 8 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", string(runes[:4]), string(runes[len(runes)-4:]))
}

// CredentialSpec is the configuration-time description of a credential,
// before the registry assigns it an ID and runtime state.
type CredentialSpec struct {
	// Provider is the service the key belongs to.
	Provider ProviderType

	// Secret is the raw API key.
	Secret string

	// QuotaLimit is the known allowance for this key, zero if unknown.
	QuotaLimit int64
}
