package registry

import (
	"context"
	"fmt"

	"github.com/Veraticus/statement-intake/internal/model"
)

// Source reads registry rows from a backing store.
type Source interface {
	MerchantPatterns(ctx context.Context) ([]model.MerchantPattern, error)
	KeywordPatterns(ctx context.Context) ([]model.KeywordPattern, error)
	LearnedPatterns(ctx context.Context, userID string) ([]model.LearnedPattern, error)
}

// Load reads the shared registries and the learned patterns of userID into a snapshot.
func Load(ctx context.Context, src Source, userID string) (*Snapshot, error) {
	merchants, err := src.MerchantPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant patterns: %w", err)
	}

	keywords, err := src.KeywordPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword patterns: %w", err)
	}

	learned, err := src.LearnedPatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learned patterns for user %q: %w", userID, err)
	}

	return NewSnapshot(merchants, keywords, learned), nil
}
