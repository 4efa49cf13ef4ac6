// Package statestore persists credential health so restarts do not
// forget which keys are exhausted or disabled.
package statestore

import (
	"context"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// Store is the durable side of credential health. The registry writes
// through it on every state change; the CLI reads and resets it offline.
// Implementations must be safe for concurrent use.
type Store interface {
	domain.HealthSink

	// LoadAll returns every stored record keyed by credential ID.
	LoadAll(ctx context.Context) (map[string]domain.KeyHealth, error)

	// Reset returns the provider's exhausted and disabled records to
	// active with cleared counters, reporting how many rows changed.
	Reset(ctx context.Context, provider domain.ProviderType) (int, error)

	// Close releases the underlying resources.
	Close() error
}
