// Package domain contains the core business entities and value objects.
package domain

import "sync"

// Selector hands out credentials round-robin per provider. It keeps its
// own cursor per pool, separate from the registry lock, so selection
// stays atomic: concurrent callers advance the cursor one step each and
// receive distinct credentials whenever two or more are active.
type Selector struct {
	registry *Registry

	// mu serializes cursor reads and writes across providers.
	mu sync.Mutex

	// cursors remembers the pool index handed out last, per provider.
	// A missing entry means nothing was handed out yet.
	cursors map[ProviderType]int
}

// NewSelector creates a selector over the given registry.
func NewSelector(registry *Registry) *Selector {
	return &Selector{
		registry: registry,
		cursors:  make(map[ProviderType]int),
	}
}

// Next returns a copy of the next active credential for the provider,
// scanning forward from the cursor and wrapping around once. Exhausted
// and disabled credentials are skipped in place, so rotation order never
// depends on when keys died.
//
// Returns ErrNoCredentialAvailable when the pool is empty or nothing in
// it is active. The cursor survives reloads: index arithmetic is modulo
// the current pool size, which clamps automatically when a pool shrinks.
func (s *Selector) Next(provider ProviderType) (Credential, error) {
	pool := s.registry.poolStates(provider)
	if len(pool) == 0 {
		return Credential{}, ErrNoCredentialAvailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.cursors[provider]
	if !ok {
		start = -1
	}
	start %= len(pool)

	for step := 1; step <= len(pool); step++ {
		idx := (start + step + len(pool)) % len(pool)
		if pool[idx].State == KeyActive {
			s.cursors[provider] = idx
			return pool[idx], nil
		}
	}
	return Credential{}, ErrNoCredentialAvailable
}
