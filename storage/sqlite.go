package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps snapshots as blobs in a single SQLite database.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{path: path, db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, name string, data []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (name, created_at, size, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			created_at = excluded.created_at,
			size = excluded.size,
			payload = excluded.payload
	`, name, time.Now().UnixNano(), len(data), data)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) ([]byte, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (string, []byte, error) {
	db, err := s.getDB()
	if err != nil {
		return "", nil, err
	}

	var (
		name    string
		payload []byte
	)
	err = db.QueryRowContext(ctx, `
		SELECT name, payload FROM snapshots
		ORDER BY created_at DESC, name DESC
		LIMIT 1
	`).Scan(&name, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	return name, payload, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Snapshot, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name, size, created_at FROM snapshots
		ORDER BY created_at ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			created int64
		)
		if err := rows.Scan(&snap.Name, &snap.Size, &created); err != nil {
			return nil, err
		}
		snap.Created = time.Unix(0, created)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			size INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
