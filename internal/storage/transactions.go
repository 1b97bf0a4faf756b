package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/dedup"
	"github.com/Veraticus/statement-intake/internal/model"
)

const dateLayout = "2006-01-02"

// CommitResult reports the outcome of CommitTransactions.
type CommitResult struct {
	Inserted int
	// Skipped counts candidates whose duplicate key was already stored,
	// including rows committed by a concurrent upload after screening.
	Skipped int
}

// CommitTransactions stores reviewed candidates for userID in one transaction.
//
// Rows are unique per (user, date, amount, merchant, direction, occurrence).
// Repeats inside one upload get increasing occurrences and are all stored, so
// the same statement committed twice stores its rows once. Candidates still
// flagged IsDuplicate were explicitly included by the reviewer and are stored
// after the rows that already share their key.
func (s *SQLiteStorage) CommitTransactions(ctx context.Context, userID string, candidates []model.TransactionCandidate) (CommitResult, error) {
	if err := validateContext(ctx); err != nil {
		return CommitResult{}, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return CommitResult{}, err
	}
	if err := validateCandidates(candidates); err != nil {
		return CommitResult{}, err
	}
	if len(candidates) == 0 {
		return CommitResult{}, nil
	}

	result, err := common.Retry(ctx, common.DefaultBackoff(), func() (CommitResult, error) {
		r, commitErr := s.commitOnce(ctx, userID, candidates)
		return r, busyError(commitErr)
	})
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Info("Committed transactions",
		"user_id", userID,
		"inserted", result.Inserted,
		"skipped", result.Skipped)

	return result, nil
}

func (s *SQLiteStorage) commitOnce(ctx context.Context, userID string, candidates []model.TransactionCandidate) (CommitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			user_id, date, amount, merchant, direction, occurrence,
			description, account, category, label, confidence, source_reference
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date, amount, merchant, direction, occurrence) DO NOTHING
	`)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var result CommitResult
	seen := make(map[dedup.Key]int)
	for _, c := range candidates {
		key := dedup.CandidateKey(c)

		occurrence := seen[key]
		seen[key]++
		if c.IsDuplicate {
			if err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(occurrence) + 1, 0) FROM transactions
				WHERE user_id = ? AND date = ? AND amount = ? AND merchant = ? AND direction = ?
			`, userID, key.Date, key.Amount, key.Merchant, string(key.Direction)).Scan(&occurrence); err != nil {
				return CommitResult{}, fmt.Errorf("failed to find free occurrence: %w", err)
			}
		}

		res, execErr := stmt.ExecContext(ctx,
			userID, key.Date, key.Amount, key.Merchant, string(key.Direction), occurrence,
			c.Description, c.Account, c.Category, c.Label, c.Confidence, c.SourceReference,
		)
		if execErr != nil {
			return CommitResult{}, fmt.Errorf("failed to insert transaction %s: %w", c.SourceReference, execErr)
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return CommitResult{}, fmt.Errorf("failed to get affected rows: %w", affErr)
		}
		if affected == 0 {
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("failed to commit: %w", err)
	}
	return result, nil
}

// StoredTransactions implements dedup.Source.
// Both bounds are inclusive calendar dates.
func (s *SQLiteStorage) StoredTransactions(ctx context.Context, userID string, from, to time.Time) ([]model.StoredTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, to, from)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, amount, merchant, description, direction
		FROM transactions
		WHERE user_id = ? AND date BETWEEN ? AND ?
		ORDER BY date, id
	`, userID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stored []model.StoredTransaction
	for rows.Next() {
		var st model.StoredTransaction
		var date, amount, direction string
		if err := rows.Scan(&date, &amount, &st.Merchant, &st.Description, &direction); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if st.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		if st.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		st.Direction = model.CashflowDirection(direction)
		stored = append(stored, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return stored, nil
}

// History returns every stored transaction of userID on or after since.
// The recurring-bill heuristic uses it as the user's payment history.
func (s *SQLiteStorage) History(ctx context.Context, userID string, since time.Time) ([]model.StoredTransaction, error) {
	return s.StoredTransactions(ctx, userID, since, time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC))
}

// TransactionCount returns the number of stored transactions for userID.
func (s *SQLiteStorage) TransactionCount(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
