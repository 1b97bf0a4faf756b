// Package dedup separates statement candidates that repeat already stored transactions.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

// dateLayout is the calendar-date form used in keys.
const dateLayout = "2006-01-02"

// Key is the composite identity of a transaction for duplicate detection.
// The same key backs the uniqueness constraint applied at commit time.
type Key struct {
	Date      string
	Amount    string
	Merchant  string
	Direction model.CashflowDirection
}

// bucket is the (date, amount) part of a key used to index stored rows.
type bucket struct {
	date   string
	amount string
}

// CandidateKey returns the duplicate key of a parsed candidate.
func CandidateKey(c model.TransactionCandidate) Key {
	return Key{
		Date:      model.DateOnly(c.Date).Format(dateLayout),
		Amount:    CanonicalAmount(c.Amount),
		Merchant:  MerchantKey(c.Merchant, c.Description),
		Direction: c.Direction,
	}
}

// StoredKey returns the duplicate key of a stored transaction.
func StoredKey(s model.StoredTransaction) Key {
	return Key{
		Date:      model.DateOnly(s.Date).Format(dateLayout),
		Amount:    CanonicalAmount(s.Amount),
		Merchant:  StoredMerchantKey(s),
		Direction: s.Direction,
	}
}

// CanonicalAmount renders an amount so that equal values give equal strings.
// Cent-precision values always carry two decimals; finer values keep every digit.
func CanonicalAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

// MerchantKey normalizes a merchant name, falling back to the description.
func MerchantKey(merchant, description string) string {
	if m := normalize.Merchant(merchant); m != "" {
		return m
	}
	if m := normalize.Merchant(description); m != "" {
		return m
	}
	return normalize.Normalize(description)
}

// StoredMerchantKey returns the merchant key of a stored transaction.
// Committed rows already hold the key in their merchant column, so it is used
// as-is; rows without one fall back to their description.
func StoredMerchantKey(s model.StoredTransaction) string {
	if s.Merchant != "" {
		return s.Merchant
	}
	return MerchantKey("", s.Description)
}

// Index holds one user's stored transactions grouped by (date, amount).
type Index struct {
	buckets map[bucket][]Key
}

// NewIndex indexes stored transactions.
func NewIndex(existing []model.StoredTransaction) *Index {
	idx := &Index{buckets: make(map[bucket][]Key, len(existing))}
	for _, s := range existing {
		k := StoredKey(s)
		b := bucket{date: k.Date, amount: k.Amount}
		idx.buckets[b] = append(idx.buckets[b], k)
	}
	return idx
}

// Contains reports whether a stored transaction shares the candidate's key.
// Only rows with the same date and amount are compared.
func (idx *Index) Contains(c model.TransactionCandidate) bool {
	k := CandidateKey(c)
	for _, stored := range idx.buckets[bucket{date: k.Date, amount: k.Amount}] {
		if stored == k {
			return true
		}
	}
	return false
}

// Len returns the number of indexed transactions.
func (idx *Index) Len() int {
	n := 0
	for _, keys := range idx.buckets {
		n += len(keys)
	}
	return n
}

// Filter splits candidates into duplicates of stored rows and the rest.
// Duplicates are flagged and returned, never dropped. Candidates are not
// compared with each other: a statement may legitimately repeat a purchase.
func Filter(candidates []model.TransactionCandidate, existing []model.StoredTransaction) (duplicates, nonDuplicates []model.TransactionCandidate) {
	return FilterIndex(candidates, NewIndex(existing))
}

// FilterIndex is Filter against a prebuilt index.
func FilterIndex(candidates []model.TransactionCandidate, idx *Index) (duplicates, nonDuplicates []model.TransactionCandidate) {
	for _, c := range candidates {
		if idx.Contains(c) {
			c.IsDuplicate = true
			duplicates = append(duplicates, c)
			continue
		}
		c.IsDuplicate = false
		nonDuplicates = append(nonDuplicates, c)
	}
	return duplicates, nonDuplicates
}

// Source reads a user's stored transactions.
type Source interface {
	StoredTransactions(ctx context.Context, userID string, from, to time.Time) ([]model.StoredTransaction, error)
}

// Outcome is the result of filtering against a live source.
type Outcome struct {
	Err           error
	Duplicates    []model.TransactionCandidate
	NonDuplicates []model.TransactionCandidate
	NeedsReview   bool
}

// FilterFromSource loads the user's stored rows for the candidates' date range and filters.
// When the stored rows cannot be read, every candidate is treated as new and
// the outcome is marked for manual review.
func FilterFromSource(ctx context.Context, src Source, userID string, candidates []model.TransactionCandidate) Outcome {
	if len(candidates) == 0 {
		return Outcome{}
	}

	from, to := dateRange(candidates)
	existing, err := src.StoredTransactions(ctx, userID, from, to)
	if err != nil {
		common.Logger(ctx).Warn("Duplicate check unavailable, all candidates need review",
			"user_id", userID,
			"candidates", len(candidates),
			"error", err)
		nonDuplicates := make([]model.TransactionCandidate, len(candidates))
		copy(nonDuplicates, candidates)
		return Outcome{
			NonDuplicates: nonDuplicates,
			NeedsReview:   true,
			Err:           fmt.Errorf("loading stored transactions: %w", err),
		}
	}

	duplicates, nonDuplicates := Filter(candidates, existing)
	return Outcome{Duplicates: duplicates, NonDuplicates: nonDuplicates}
}

func dateRange(candidates []model.TransactionCandidate) (time.Time, time.Time) {
	from := model.DateOnly(candidates[0].Date)
	to := from
	for _, c := range candidates[1:] {
		d := model.DateOnly(c.Date)
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	return from, to
}
