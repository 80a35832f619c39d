package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vjranagit/drought/pkg/table"
)

// SQLiteStore implements Store in a single sqlite file
type SQLiteStore struct {
	db    *sql.DB
	codec *Codec
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string, codec *Codec) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tables (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			rows INTEGER NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, codec: codec}, nil
}

// Save implements Store.Save
func (s *SQLiteStore) Save(ctx context.Context, key string, t *table.Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	payload, err := s.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("failed to encode table %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tables (key, payload, rows, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, rows = excluded.rows, updated_at = excluded.updated_at
	`, key, payload, t.Len(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write table %s: %w", key, err)
	}
	return nil
}

// Load implements Store.Load
func (s *SQLiteStore) Load(ctx context.Context, key string) (*table.Table, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM tables WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", key, err)
	}
	return s.codec.Decode(payload)
}

// Keys implements Store.Keys
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM tables ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete implements Store.Delete
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tables WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete table %s: %w", key, err)
	}
	return nil
}

// Close implements Store.Close
func (s *SQLiteStore) Close() error {
	defer s.codec.Close()
	return s.db.Close()
}
