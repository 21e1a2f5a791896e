package keystore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
)

var _ app.KeyStore = (*SQLite)(nil)

// SQLite stores executed keys in a local database file.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageError(err, "open "+path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	const createTable = `
CREATE TABLE IF NOT EXISTS executed_keys (
	key TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(createTable); err != nil {
		return storageError(err, "create executed_keys")
	}
	return nil
}

// Has reports whether key was recorded.
func (s *SQLite) Has(ctx context.Context, key string) (bool, error) {
	const query = `SELECT 1 FROM executed_keys WHERE key = ? LIMIT 1;`

	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRowContext(ctx, query, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageError(err, "select "+key)
	}
	return true, nil
}

// Add records key; false means it was already present.
func (s *SQLite) Add(ctx context.Context, key string) (bool, error) {
	const insert = `
INSERT INTO executed_keys (key, created_at)
VALUES (?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO NOTHING;`

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, insert, key)
	if err != nil {
		return false, storageError(err, "insert "+key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError(err, "rows affected")
	}
	return n == 1, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
