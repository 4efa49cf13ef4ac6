// Package domain contains the core business entities and value objects.
package domain

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// persistTimeout bounds each best-effort health write.
const persistTimeout = 3 * time.Second

// Registry owns every pooled credential, grouped per provider in
// configuration order. All state transitions go through its Mark methods
// so counters and health persistence stay consistent.
//
// A single RWMutex guards the pools. The lock is held only for the
// in-memory mutation, never across network or disk I/O; health records
// are written through to the sink after the lock is released.
type Registry struct {
	// mu protects pools and byID.
	mu sync.RWMutex

	// pools holds each provider's credentials in rotation order.
	pools map[ProviderType][]*Credential

	// byID indexes every credential for O(1) mark operations.
	byID map[string]*Credential

	// sink receives health write-throughs, nil when persistence is off.
	sink HealthSink

	logger *slog.Logger
}

// RegistryOption customizes registry construction.
type RegistryOption func(*Registry)

// WithHealthSink attaches a persistence sink. Every state or counter
// change is written through after the registry lock is released; write
// failures are logged and never fail the triggering operation.
func WithHealthSink(sink HealthSink) RegistryOption {
	return func(r *Registry) {
		r.sink = sink
	}
}

// WithRegistryLogger sets the logger used for persistence warnings.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry builds the credential pools from configuration.
//
// IDs are assigned positionally per provider ("convertapi:1",
// "convertapi:2", ...) following the order the specs arrive in, which is
// the rotation order. Empty secrets are skipped and duplicate secrets
// within a provider collapse to the first occurrence. Every credential
// starts Active.
func NewRegistry(specs []CredentialSpec, opts ...RegistryOption) *Registry {
	r := &Registry{
		pools:  make(map[ProviderType][]*Credential),
		byID:   make(map[string]*Credential),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for provider, providerSpecs := range groupSpecs(specs) {
		pool := make([]*Credential, 0, len(providerSpecs))
		for i, spec := range providerSpecs {
			c := &Credential{
				ID:         credentialID(provider, i+1),
				Provider:   provider,
				Secret:     spec.Secret,
				State:      KeyActive,
				QuotaLimit: spec.QuotaLimit,
			}
			pool = append(pool, c)
			r.byID[c.ID] = c
		}
		r.pools[provider] = pool
	}

	return r
}

// RestoreHealth applies previously persisted health records to matching
// credentials, so a restart does not forget which keys were exhausted or
// disabled. Records whose ID has no configured credential are ignored.
func (r *Registry) RestoreHealth(records map[string]KeyHealth) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range records {
		c, ok := r.byID[id]
		if !ok || c.Provider != rec.Provider {
			continue
		}
		if rec.State != "" {
			c.State = rec.State
		}
		c.UsedCount = rec.UsedCount
		c.ConsecutiveFailures = rec.ConsecutiveFailures
		c.LastUsedAt = rec.LastUsedAt
		c.LastFailureAt = rec.LastFailureAt
	}
}

// MarkSuccess records one successful external call against the
// credential: the use counter increments, failure streak resets.
// This is the only place UsedCount moves, so one success is exactly
// one quota unit regardless of retries around it.
func (r *Registry) MarkSuccess(id string) {
	r.mark(id, func(c *Credential, now time.Time) {
		c.UsedCount++
		c.ConsecutiveFailures = 0
		c.LastUsedAt = now
	})
}

// MarkExhausted takes the credential out of rotation after the provider
// signaled its quota is spent. Idempotent.
func (r *Registry) MarkExhausted(id string) {
	r.mark(id, func(c *Credential, now time.Time) {
		c.State = KeyExhausted
		c.LastFailureAt = now
	})
}

// MarkDisabled takes the credential out of rotation after the provider
// rejected it as invalid. Idempotent.
func (r *Registry) MarkDisabled(id string) {
	r.mark(id, func(c *Credential, now time.Time) {
		c.State = KeyDisabled
		c.LastFailureAt = now
	})
}

// MarkTransientFailure records a retryable failure. The credential stays
// in rotation; only the failure streak and timestamp move.
func (r *Registry) MarkTransientFailure(id string) {
	r.mark(id, func(c *Credential, now time.Time) {
		c.ConsecutiveFailures++
		c.LastFailureAt = now
	})
}

// mark applies a mutation under the write lock, then persists the updated
// record outside it. Unknown IDs are ignored.
func (r *Registry) mark(id string, mutate func(*Credential, time.Time)) {
	now := time.Now()

	r.mu.Lock()
	c, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	mutate(c, now)
	rec := healthRecord(c, now)
	r.mu.Unlock()

	r.persist(rec)
}

// ResetFailed returns every exhausted and disabled credential of the
// provider to Active and clears its counters. Returns how many
// credentials were restored.
func (r *Registry) ResetFailed(provider ProviderType) int {
	now := time.Now()
	var records []KeyHealth

	r.mu.Lock()
	for _, c := range r.pools[provider] {
		if c.State == KeyActive {
			continue
		}
		c.State = KeyActive
		c.ConsecutiveFailures = 0
		c.UsedCount = 0
		records = append(records, healthRecord(c, now))
	}
	r.mu.Unlock()

	for _, rec := range records {
		r.persist(rec)
	}
	return len(records)
}

// ReloadSummary reports what a reload changed.
type ReloadSummary struct {
	// Added counts credentials that joined the pool as new Active keys.
	Added int `json:"added"`

	// Refreshed counts existing IDs whose secret or quota limit changed.
	Refreshed int `json:"refreshed"`

	// Carried counts credentials absent from the new configuration that
	// were kept anyway, health intact.
	Carried int `json:"carried"`
}

// Reload merges a fresh set of credential specs into the registry by ID.
//
// Existing IDs keep their state and counters; their secret and quota
// limit refresh from the new spec. New IDs join as Active. IDs missing
// from the new specs are never silently dropped: they move to the tail
// of their pool with health intact. Reloading the same specs twice is a
// no-op the second time.
func (r *Registry) Reload(specs []CredentialSpec) ReloadSummary {
	now := time.Now()
	var summary ReloadSummary
	var added []KeyHealth

	r.mu.Lock()
	newPools := make(map[ProviderType][]*Credential, len(r.pools))
	newByID := make(map[string]*Credential, len(r.byID))

	for provider, providerSpecs := range groupSpecs(specs) {
		pool := make([]*Credential, 0, len(providerSpecs))
		for i, spec := range providerSpecs {
			id := credentialID(provider, i+1)
			if existing, ok := r.byID[id]; ok {
				if existing.Secret != spec.Secret || existing.QuotaLimit != spec.QuotaLimit {
					existing.Secret = spec.Secret
					existing.QuotaLimit = spec.QuotaLimit
					summary.Refreshed++
				}
				pool = append(pool, existing)
				newByID[id] = existing
				continue
			}
			c := &Credential{
				ID:         id,
				Provider:   provider,
				Secret:     spec.Secret,
				State:      KeyActive,
				QuotaLimit: spec.QuotaLimit,
			}
			pool = append(pool, c)
			newByID[id] = c
			added = append(added, healthRecord(c, now))
			summary.Added++
		}
		newPools[provider] = pool
	}

	// Carry over credentials the new configuration no longer lists.
	for provider, pool := range r.pools {
		for _, c := range pool {
			if _, ok := newByID[c.ID]; ok {
				continue
			}
			newPools[provider] = append(newPools[provider], c)
			newByID[c.ID] = c
			summary.Carried++
		}
	}

	r.pools = newPools
	r.byID = newByID
	r.mu.Unlock()

	for _, rec := range added {
		r.persist(rec)
	}
	return summary
}

// Get returns a copy of the credential with the given ID.
func (r *Registry) Get(id string) (Credential, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return Credential{}, false
	}
	return *c, true
}

// ConfiguredCount returns how many credentials the provider has, in any state.
func (r *Registry) ConfiguredCount(provider ProviderType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools[provider])
}

// ActiveCount returns how many of the provider's credentials are in rotation.
func (r *Registry) ActiveCount(provider ProviderType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, c := range r.pools[provider] {
		if c.State == KeyActive {
			count++
		}
	}
	return count
}

// Providers returns every provider that has at least one configured
// credential, in the stable AllProviders order.
func (r *Registry) Providers() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []ProviderType
	for _, p := range AllProviders {
		if len(r.pools[p]) > 0 {
			providers = append(providers, p)
		}
	}
	return providers
}

// poolStates returns a point-in-time copy of the provider's pool in
// rotation order. The selector scans this without holding the registry
// lock during its own cursor arithmetic.
func (r *Registry) poolStates(provider ProviderType) []Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool := r.pools[provider]
	snapshot := make([]Credential, len(pool))
	for i, c := range pool {
		snapshot[i] = *c
	}
	return snapshot
}

// persist writes one health record to the sink, best effort.
func (r *Registry) persist(rec KeyHealth) {
	if r.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.sink.SaveKeyHealth(ctx, rec); err != nil {
		r.logger.Warn("failed to persist credential health",
			"credential_id", rec.CredentialID,
			"provider", rec.Provider,
			"error", err)
	}
}

// groupSpecs splits specs per provider, preserving arrival order and
// dropping empty or duplicate secrets within a provider.
func groupSpecs(specs []CredentialSpec) map[ProviderType][]CredentialSpec {
	grouped := make(map[ProviderType][]CredentialSpec)
	seen := make(map[ProviderType]map[string]struct{})

	for _, spec := range specs {
		if spec.Secret == "" || !spec.Provider.IsValid() {
			continue
		}
		if seen[spec.Provider] == nil {
			seen[spec.Provider] = make(map[string]struct{})
		}
		if _, dup := seen[spec.Provider][spec.Secret]; dup {
			continue
		}
		seen[spec.Provider][spec.Secret] = struct{}{}
		grouped[spec.Provider] = append(grouped[spec.Provider], spec)
	}
	return grouped
}

// credentialID builds the positional credential identifier.
func credentialID(provider ProviderType, index int) string {
	return string(provider) + ":" + strconv.Itoa(index)
}
