// Package sqlite persists cache snapshots to a local SQLite database so
// warm state survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strata-cache/strata/internal/domain"
	_ "modernc.org/sqlite"
)

// Compile-time check that Store satisfies domain.SnapshotStore.
var _ domain.SnapshotStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	layer            TEXT NOT NULL,
	key              TEXT NOT NULL,
	value            TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	expires_at       TEXT,
	metadata         TEXT,
	access_count     INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT NOT NULL,
	PRIMARY KEY (layer, key)
);

CREATE TABLE IF NOT EXISTS diary_sessions (
	session_id TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_diary_sessions_user
	ON diary_sessions (user_id);
`

// Store is the SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and ensures
// the snapshot schema exists.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveEntries replaces the stored snapshot for one layer.
func (s *Store) SaveEntries(ctx context.Context, layer domain.CacheLayer, entries []*domain.CacheEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE layer = ?`, string(layer),
		); err != nil {
			return fmt.Errorf("clear layer snapshot: %w", err)
		}

		for _, entry := range entries {
			metadata, err := marshalMetadata(entry.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %q: %w", entry.Key, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cache_entries
					(layer, key, value, created_at, expires_at,
					 metadata, access_count, last_accessed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				string(layer), entry.Key, entry.Value,
				formatTime(entry.CreatedAt), formatTimePtr(entry.ExpiresAt),
				metadata, entry.AccessCount, formatTime(entry.LastAccessedAt),
			); err != nil {
				return fmt.Errorf("insert entry %q: %w", entry.Key, err)
			}
		}
		return nil
	})
}

// LoadEntries returns the stored snapshot for one layer. Entries already
// past their expiry are skipped rather than resurrected.
func (s *Store) LoadEntries(ctx context.Context, layer domain.CacheLayer) ([]*domain.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, created_at, expires_at,
		       metadata, access_count, last_accessed_at
		FROM cache_entries WHERE layer = ?`, string(layer))
	if err != nil {
		return nil, fmt.Errorf("query layer snapshot: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var entries []*domain.CacheEntry
	for rows.Next() {
		entry := &domain.CacheEntry{Layer: layer}
		var createdAt, lastAccessedAt string
		var expiresAt, metadata *string
		if err := rows.Scan(&entry.Key, &entry.Value, &createdAt, &expiresAt,
			&metadata, &entry.AccessCount, &lastAccessedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		entry.CreatedAt = parseTime(createdAt)
		entry.ExpiresAt = parseTimePtr(expiresAt)
		entry.LastAccessedAt = parseTime(lastAccessedAt)
		if entry.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %q: %w", entry.Key, err)
		}

		if entry.Expired(now) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveSessions replaces the stored diary sessions.
func (s *Store) SaveSessions(ctx context.Context, sessions []*domain.Session) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM diary_sessions`); err != nil {
			return fmt.Errorf("clear session snapshot: %w", err)
		}

		for _, session := range sessions {
			payload, err := json.Marshal(session)
			if err != nil {
				return fmt.Errorf("marshal session %q: %w", session.SessionID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO diary_sessions (session_id, user_id, created_at, payload)
				VALUES (?, ?, ?, ?)`,
				session.SessionID, session.UserID,
				formatTime(session.CreatedAt), string(payload),
			); err != nil {
				return fmt.Errorf("insert session %q: %w", session.SessionID, err)
			}
		}
		return nil
	})
}

// LoadSessions returns the stored diary sessions in creation order.
func (s *Store) LoadSessions(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM diary_sessions ORDER BY created_at, session_id`)
	if err != nil {
		return nil, fmt.Errorf("query session snapshot: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(payload), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func marshalMetadata(metadata map[string]string) (*string, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	encoded := string(raw)
	return &encoded, nil
}

func unmarshalMetadata(encoded *string) (map[string]string, error) {
	if encoded == nil || *encoded == "" {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(*encoded), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatTime(*t)
	return &formatted
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}
