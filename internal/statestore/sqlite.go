package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/VidZid2/STI-sub006/internal/domain"
)

// SQLite is a file-backed Store. One row per credential, upserted on
// every health change, so the table always reflects the latest state.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the health database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open health database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &SQLite{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLite) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS key_health (
			credential_id TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			state TEXT NOT NULL,
			used_count INTEGER NOT NULL DEFAULT 0,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP,
			last_failure_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_key_health_provider ON key_health(provider)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// SaveKeyHealth upserts the record keyed by credential ID.
func (s *SQLite) SaveKeyHealth(ctx context.Context, health domain.KeyHealth) error {
	query := `INSERT INTO key_health
			(credential_id, provider, state, used_count, consecutive_failures, last_used_at, last_failure_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(credential_id) DO UPDATE SET
			provider=excluded.provider,
			state=excluded.state,
			used_count=excluded.used_count,
			consecutive_failures=excluded.consecutive_failures,
			last_used_at=excluded.last_used_at,
			last_failure_at=excluded.last_failure_at,
			updated_at=excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		health.CredentialID, string(health.Provider), string(health.State),
		health.UsedCount, health.ConsecutiveFailures,
		nullableTime(health.LastUsedAt), nullableTime(health.LastFailureAt),
		health.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save key health: %w", err)
	}
	return nil
}

// LoadAll returns every stored record keyed by credential ID.
func (s *SQLite) LoadAll(ctx context.Context) (map[string]domain.KeyHealth, error) {
	query := `SELECT credential_id, provider, state, used_count, consecutive_failures,
			last_used_at, last_failure_at, updated_at
		FROM key_health`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query key health: %w", err)
	}
	defer rows.Close()

	records := make(map[string]domain.KeyHealth)
	for rows.Next() {
		var rec domain.KeyHealth
		var provider, state string
		var lastUsed, lastFailure sql.NullTime

		if err := rows.Scan(&rec.CredentialID, &provider, &state,
			&rec.UsedCount, &rec.ConsecutiveFailures,
			&lastUsed, &lastFailure, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan key health row: %w", err)
		}

		rec.Provider = domain.ProviderType(provider)
		rec.State = domain.KeyState(state)
		if lastUsed.Valid {
			rec.LastUsedAt = lastUsed.Time
		}
		if lastFailure.Valid {
			rec.LastFailureAt = lastFailure.Time
		}
		records[rec.CredentialID] = rec
	}
	return records, rows.Err()
}

// Reset returns the provider's non-active rows to active with cleared
// counters, reporting how many rows changed.
func (s *SQLite) Reset(ctx context.Context, provider domain.ProviderType) (int, error) {
	query := `UPDATE key_health
		SET state = ?, used_count = 0, consecutive_failures = 0, updated_at = ?
		WHERE provider = ? AND state != ?`

	result, err := s.db.ExecContext(ctx, query,
		string(domain.KeyActive), time.Now(), string(provider), string(domain.KeyActive))
	if err != nil {
		return 0, fmt.Errorf("failed to reset key health: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// nullableTime maps zero times to NULL so the table distinguishes
// never-used from used-at-epoch.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
