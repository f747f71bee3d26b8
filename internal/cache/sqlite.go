package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	payload   TEXT NOT NULL
)`

// SQLStore persists cache entries in a local SQLite database, one JSON blob
// per key.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore opens (and if needed creates) the SQLite database at path and
// ensures the schema exists. The caller should Close the store when done.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Get retrieves the entry for key, or (nil, nil) on a miss. An unparseable
// persisted blob is reported as an error so the manager can log it and
// treat the read as a miss.
func (s *SQLStore) Get(ctx context.Context, key string) (*Entry, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM cache_entries WHERE cache_key = ?`, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("decode entry %q: %w", key, err)
	}
	return &entry, nil
}

// Put upserts the entry for key.
func (s *SQLStore) Put(ctx context.Context, key string, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_key, payload)
		VALUES (?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload`,
		key, string(payload),
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}
