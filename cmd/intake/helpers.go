package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/registry"
	"github.com/Veraticus/statement-intake/internal/storage"
)

// initStorage opens and migrates the configured database.
func (a *app) initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath, storage.WithCacheTTL(a.cfg.CacheTTL))
	if err != nil {
		return nil, common.NewUserError("Could not open the database at "+a.cfg.DatabasePath, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// seed returns the registry seed named by path, the configured seed file, or
// the built-in registries, in that order.
func (a *app) seed(path string) (*registry.Seed, error) {
	if path == "" {
		path = a.cfg.SeedFile
	}
	if path == "" {
		return registry.DefaultSeed(), nil
	}
	return registry.LoadSeedFile(path)
}

// ensureRegistry seeds an empty registry so a fresh database categorizes out of the box.
func (a *app) ensureRegistry(ctx context.Context, store *storage.SQLiteStorage) error {
	merchants, err := store.MerchantPatterns(ctx)
	if err != nil {
		return err
	}
	keywords, err := store.KeywordPatterns(ctx)
	if err != nil {
		return err
	}
	if len(merchants) > 0 || len(keywords) > 0 {
		return nil
	}

	seed, err := a.seed("")
	if err != nil {
		return err
	}
	m, k, err := store.SeedRegistry(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed registry: %w", err)
	}
	slog.Info("Seeded empty registry", "merchants", m, "keywords", k)
	return nil
}
