// Package testutil provides shared test helpers backed by an in-memory SQLite database.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/registry"
	"github.com/Veraticus/statement-intake/internal/storage"
)

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	Seed           *registry.Seed
	CacheTTL       time.Duration
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database with no registry rows.
// It is closed automatically when the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupSeededTestDB creates a migrated in-memory database holding the built-in registries.
func SetupSeededTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Seed: registry.DefaultSeed()})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *storage.SQLiteStorage {
	t.Helper()

	var storeOpts []storage.Option
	if opts.CacheTTL != 0 {
		storeOpts = append(storeOpts, storage.WithCacheTTL(opts.CacheTTL))
	}

	store, err := storage.NewSQLiteStorage(":memory:", storeOpts...)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if opts.Seed != nil {
		if _, _, err := store.SeedRegistry(ctx, opts.Seed); err != nil {
			t.Fatalf("failed to seed registry: %v", err)
		}
	}

	return store
}

// Candidate builds a categorized-looking candidate for storage tests.
func Candidate(date, description, merchant, amount string, direction model.CashflowDirection) model.TransactionCandidate {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	c := model.NewCandidate(d, description, decimal.RequireFromString(amount), direction)
	c.Merchant = merchant
	return c
}
