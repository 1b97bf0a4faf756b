// Package storage provides the SQLite persistence layer for registries,
// learned patterns and committed transactions.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/patrickmn/go-cache"

	"github.com/Veraticus/statement-intake/internal/common"
)

// DefaultCacheTTL is how long merchant and keyword registries stay cached.
const DefaultCacheTTL = 5 * time.Minute

// SQLiteStorage implements registry.Source, dedup.Source and learning.Store.
type SQLiteStorage struct {
	db            *sql.DB
	registryCache *cache.Cache
	dbPath        string
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithCacheTTL sets how long registry reads are cached. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *SQLiteStorage) {
		if ttl <= 0 {
			s.registryCache = nil
			return
		}
		s.registryCache = cache.New(ttl, 2*ttl)
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{
		db:            db,
		dbPath:        dbPath,
		registryCache: cache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// busyError marks SQLite lock contention as retryable.
func busyError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %w", common.ErrDatabaseBusy, err)
	}
	return err
}
