package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
)

const learnedColumns = `id, user_id, pattern, corrected_category, corrected_label, frequency, created_at, updated_at`

// UpsertLearnedPattern implements learning.Store.
// The increment happens inside the statement, so concurrent writers never lose updates.
func (s *SQLiteStorage) UpsertLearnedPattern(ctx context.Context, userID, pattern, category, label string) (*model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}

	learned, err := common.Retry(ctx, common.DefaultBackoff(), func() (*model.LearnedPattern, error) {
		l, upsertErr := s.upsertLearnedOnce(ctx, userID, pattern, category, label)
		return l, busyError(upsertErr)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert learned pattern: %w", err)
	}

	return learned, nil
}

func (s *SQLiteStorage) upsertLearnedOnce(ctx context.Context, userID, pattern, category, label string) (*model.LearnedPattern, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO learned_patterns (user_id, pattern, corrected_category, corrected_label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, pattern) DO UPDATE SET
			frequency = frequency + 1,
			corrected_category = excluded.corrected_category,
			corrected_label = excluded.corrected_label,
			updated_at = CURRENT_TIMESTAMP
	`, userID, pattern, category, label); err != nil {
		return nil, err
	}

	learned, err := scanLearned(tx.QueryRowContext(ctx,
		`SELECT `+learnedColumns+` FROM learned_patterns WHERE user_id = ? AND pattern = ?`,
		userID, pattern))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return learned, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLearned(row rowScanner) (*model.LearnedPattern, error) {
	var l model.LearnedPattern
	if err := row.Scan(
		&l.ID, &l.UserID, &l.Pattern,
		&l.CorrectedCategory, &l.CorrectedLabel, &l.Frequency,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan learned pattern: %w", err)
	}
	return &l, nil
}

// LearnedPatterns returns the learned patterns of userID in creation order.
func (s *SQLiteStorage) LearnedPatterns(ctx context.Context, userID string) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+learnedColumns+` FROM learned_patterns WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var learned []model.LearnedPattern
	for rows.Next() {
		l, err := scanLearned(rows)
		if err != nil {
			return nil, err
		}
		learned = append(learned, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learned patterns: %w", err)
	}

	return learned, nil
}
