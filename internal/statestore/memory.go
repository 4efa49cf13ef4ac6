package statestore

import (
	"context"
	"sync"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// Memory is an in-memory Store used when persistence is disabled and in
// tests. Records live only as long as the process.
type Memory struct {
	mu      sync.RWMutex
	records map[string]domain.KeyHealth
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]domain.KeyHealth)}
}

// SaveKeyHealth upserts the record keyed by credential ID.
func (m *Memory) SaveKeyHealth(_ context.Context, health domain.KeyHealth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[health.CredentialID] = health
	return nil
}

// LoadAll returns a copy of every stored record.
func (m *Memory) LoadAll(_ context.Context) (map[string]domain.KeyHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.KeyHealth, len(m.records))
	for id, rec := range m.records {
		out[id] = rec
	}
	return out, nil
}

// Reset restores the provider's non-active records to active with
// cleared counters.
func (m *Memory) Reset(_ context.Context, provider domain.ProviderType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reset := 0
	for id, rec := range m.records {
		if rec.Provider != provider || rec.State == domain.KeyActive {
			continue
		}
		rec.State = domain.KeyActive
		rec.UsedCount = 0
		rec.ConsecutiveFailures = 0
		m.records[id] = rec
		reset++
	}
	return reset, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
