package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultGrammarCacheTTL is the default time-to-live for cached
	// grammar reports.
	DefaultGrammarCacheTTL = 5 * time.Minute

	// grammarCleanupInterval is how often expired entries are swept.
	grammarCleanupInterval = 1 * time.Minute
)

// grammarEntry is one cached report with its expiry.
type grammarEntry struct {
	report   []byte
	expireAt time.Time
}

// GrammarCache holds recent grammar check reports keyed by a hash of the
// submitted text. Students habitually re-check the same draft after every
// small edit elsewhere in the document; serving the identical text from
// memory spares the provider quota.
type GrammarCache struct {
	mu      sync.RWMutex
	entries map[string]grammarEntry
	ttl     time.Duration
	logger  *slog.Logger
	done    chan struct{}

	hits   int64
	misses int64
}

// GrammarCacheOption is a functional option for configuring GrammarCache.
type GrammarCacheOption func(*GrammarCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) GrammarCacheOption {
	return func(c *GrammarCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) GrammarCacheOption {
	return func(c *GrammarCache) {
		c.logger = logger
	}
}

// NewGrammarCache creates a cache and starts its background sweeper.
// Call Close to stop the sweeper.
func NewGrammarCache(opts ...GrammarCacheOption) *GrammarCache {
	c := &GrammarCache{
		entries: make(map[string]grammarEntry),
		ttl:     DefaultGrammarCacheTTL,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.sweep()

	return c
}

// hashText derives the cache key from the submitted text.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached report for the text, if present and fresh.
func (c *GrammarCache) Get(text string) ([]byte, bool) {
	key := hashText(text)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expireAt) {
		c.mu.Lock()
		if exists {
			delete(c.entries, key)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return entry.report, true
}

// Set stores a report under the text's hash with the configured TTL.
func (c *GrammarCache) Set(text string, report []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[hashText(text)] = grammarEntry{
		report:   report,
		expireAt: time.Now().Add(c.ttl),
	}
}

// Stats returns hit/miss counters and the current entry count.
func (c *GrammarCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// Close stops the background sweeper.
func (c *GrammarCache) Close() {
	close(c.done)
}

// sweep periodically removes expired entries.
func (c *GrammarCache) sweep() {
	ticker := time.NewTicker(grammarCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes all expired entries.
func (c *GrammarCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.After(entry.expireAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 && c.logger != nil {
		c.logger.Debug("grammar cache cleanup",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}
