package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
	"github.com/Veraticus/statement-intake/internal/registry"
)

const (
	merchantCacheKey = "merchant_patterns"
	keywordCacheKey  = "keyword_patterns"
)

// MerchantPatterns returns the merchant registry in insertion order.
func (s *SQLiteStorage) MerchantPatterns(ctx context.Context) ([]model.MerchantPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if cached, ok := s.cached(merchantCacheKey); ok {
		if merchants, ok := cached.([]model.MerchantPattern); ok {
			return slices.Clone(merchants), nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern, category, label, score
		FROM merchant_patterns
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merchants []model.MerchantPattern
	for rows.Next() {
		var p model.MerchantPattern
		if err := rows.Scan(&p.ID, &p.Pattern, &p.Category, &p.Label, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan merchant pattern: %w", err)
		}
		merchants = append(merchants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant patterns: %w", err)
	}

	s.store(merchantCacheKey, merchants)
	return slices.Clone(merchants), nil
}

// KeywordPatterns returns the keyword registry in insertion order.
func (s *SQLiteStorage) KeywordPatterns(ctx context.Context) ([]model.KeywordPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if cached, ok := s.cached(keywordCacheKey); ok {
		if keywords, ok := cached.([]model.KeywordPattern); ok {
			return slices.Clone(keywords), nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keyword, category, label, score, language
		FROM keyword_patterns
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []model.KeywordPattern
	for rows.Next() {
		var p model.KeywordPattern
		var language string
		if err := rows.Scan(&p.ID, &p.Keyword, &p.Category, &p.Label, &p.Score, &language); err != nil {
			return nil, fmt.Errorf("failed to scan keyword pattern: %w", err)
		}
		p.Language = model.Language(language)
		keywords = append(keywords, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword patterns: %w", err)
	}

	s.store(keywordCacheKey, keywords)
	return slices.Clone(keywords), nil
}

// UpsertMerchantPattern creates or replaces the merchant pattern with the same normalized text.
func (s *SQLiteStorage) UpsertMerchantPattern(ctx context.Context, p *model.MerchantPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMerchantPattern(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertMerchantTx(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merchant pattern: %w", err)
	}

	s.invalidateRegistry()
	return nil
}

// UpsertKeywordPattern creates or replaces the keyword pattern with the same
// normalized keyword, category and language.
func (s *SQLiteStorage) UpsertKeywordPattern(ctx context.Context, p *model.KeywordPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if p != nil && p.Language == "" {
		p.Language = model.LanguageBoth
	}
	if err := validateKeywordPattern(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertKeywordTx(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit keyword pattern: %w", err)
	}

	s.invalidateRegistry()
	return nil
}

// DeleteMerchantPattern removes a merchant pattern by its text.
func (s *SQLiteStorage) DeleteMerchantPattern(ctx context.Context, pattern string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM merchant_patterns WHERE pattern = ?", normalize.Normalize(pattern))
	if err != nil {
		return fmt.Errorf("failed to delete merchant pattern: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("merchant pattern %q: %w", pattern, common.ErrNotFound)
	}

	s.invalidateRegistry()
	return nil
}

// SeedRegistry upserts every pattern of seed in one transaction.
func (s *SQLiteStorage) SeedRegistry(ctx context.Context, seed *registry.Seed) (merchants, keywords int, err error) {
	if err := validateContext(ctx); err != nil {
		return 0, 0, err
	}
	if seed == nil {
		return 0, 0, fmt.Errorf("%w: seed", ErrNilParameter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range seed.Merchants {
		p := seed.Merchants[i]
		if err := validateMerchantPattern(&p); err != nil {
			return 0, 0, fmt.Errorf("merchant %d: %w", i, err)
		}
		if err := upsertMerchantTx(ctx, tx, &p); err != nil {
			return 0, 0, err
		}
	}
	for i := range seed.Keywords {
		p := seed.Keywords[i]
		if p.Language == "" {
			p.Language = model.LanguageBoth
		}
		if err := validateKeywordPattern(&p); err != nil {
			return 0, 0, fmt.Errorf("keyword %d: %w", i, err)
		}
		if err := upsertKeywordTx(ctx, tx, &p); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit registry seed: %w", err)
	}

	s.invalidateRegistry()
	return len(seed.Merchants), len(seed.Keywords), nil
}

func upsertMerchantTx(ctx context.Context, tx *sql.Tx, p *model.MerchantPattern) error {
	pattern := normalize.Normalize(p.Pattern)
	if pattern == "" {
		return fmt.Errorf("%w: merchant pattern %q has no matchable content", ErrInvalidPattern, p.Pattern)
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO merchant_patterns (pattern, category, label, score)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pattern) DO UPDATE SET
			category = excluded.category,
			label = excluded.label,
			score = excluded.score,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, pattern, p.Category, p.Label, p.Score).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert merchant pattern %q: %w", pattern, err)
	}

	p.Pattern = pattern
	return nil
}

func upsertKeywordTx(ctx context.Context, tx *sql.Tx, p *model.KeywordPattern) error {
	keyword := normalize.Normalize(p.Keyword)
	if keyword == "" {
		return fmt.Errorf("%w: keyword %q has no matchable content", ErrInvalidPattern, p.Keyword)
	}

	err := tx.QueryRowContext(ctx, `
		INSERT INTO keyword_patterns (keyword, category, label, score, language)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(keyword, category, language) DO UPDATE SET
			label = excluded.label,
			score = excluded.score,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, keyword, p.Category, p.Label, p.Score, string(p.Language)).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert keyword %q: %w", keyword, err)
	}

	p.Keyword = keyword
	return nil
}

func (s *SQLiteStorage) cached(key string) (any, bool) {
	if s.registryCache == nil {
		return nil, false
	}
	return s.registryCache.Get(key)
}

func (s *SQLiteStorage) store(key string, value any) {
	if s.registryCache == nil {
		return
	}
	s.registryCache.SetDefault(key, value)
}

// invalidateRegistry drops cached registries after an administrative write.
func (s *SQLiteStorage) invalidateRegistry() {
	if s.registryCache == nil {
		return
	}
	s.registryCache.Flush()
}
