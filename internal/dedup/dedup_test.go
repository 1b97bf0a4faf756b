package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

var jan15 = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

func candidate(date time.Time, desc, amount string, dir model.CashflowDirection) model.TransactionCandidate {
	c := model.NewCandidate(date, desc, decimal.RequireFromString(amount), dir)
	c.NormalizedDescription = normalize.Normalize(desc)
	c.Merchant = normalize.Merchant(desc)
	return c
}

func stored(date time.Time, merchant, amount string, dir model.CashflowDirection) model.StoredTransaction {
	return model.StoredTransaction{
		Date:      date,
		Amount:    decimal.RequireFromString(amount),
		Merchant:  merchant,
		Direction: dir,
	}
}

func TestFilter_KeyBoundaries(t *testing.T) {
	existing := []model.StoredTransaction{
		stored(jan15, "TIM HORTONS", "-5.50", model.DirectionExpense),
	}

	tests := []struct {
		name    string
		cand    model.TransactionCandidate
		wantDup bool
	}{
		{
			name:    "all four fields equal",
			cand:    candidate(jan15, "TIM HORTONS #1234", "-5.50", model.DirectionExpense),
			wantDup: true,
		},
		{
			name:    "amount differs by one cent",
			cand:    candidate(jan15, "TIM HORTONS #1234", "-5.51", model.DirectionExpense),
			wantDup: false,
		},
		{
			name:    "date differs by one day",
			cand:    candidate(jan15.AddDate(0, 0, 1), "TIM HORTONS", "-5.50", model.DirectionExpense),
			wantDup: false,
		},
		{
			name:    "merchant differs",
			cand:    candidate(jan15, "STARBUCKS", "-5.50", model.DirectionExpense),
			wantDup: false,
		},
		{
			name:    "direction differs",
			cand:    candidate(jan15, "TIM HORTONS", "-5.50", model.DirectionOther),
			wantDup: false,
		},
		{
			name:    "trailing zero representation",
			cand:    candidate(jan15, "Tim Hortons", "-5.5", model.DirectionExpense),
			wantDup: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dups, rest := Filter([]model.TransactionCandidate{tt.cand}, existing)
			if tt.wantDup {
				require.Len(t, dups, 1)
				assert.Empty(t, rest)
				assert.True(t, dups[0].IsDuplicate)
				return
			}
			assert.Empty(t, dups)
			require.Len(t, rest, 1)
			assert.False(t, rest[0].IsDuplicate)
		})
	}
}

func TestFilter_CommittedMerchantKeyMatchesOnReimport(t *testing.T) {
	c := candidate(jan15, "VISA DEBIT POS PURCHASE INTERAC PURCHASE CORNER STORE", "-9.99", model.DirectionExpense)
	key := CandidateKey(c)

	// Commit stores the candidate key's merchant in the merchant column.
	row := stored(jan15, key.Merchant, "-9.99", model.DirectionExpense)
	row.Description = c.Description
	assert.Equal(t, key, StoredKey(row))

	dups, rest := Filter([]model.TransactionCandidate{c}, []model.StoredTransaction{row})
	require.Len(t, dups, 1)
	assert.Empty(t, rest)
}

func TestStoredMerchantKey_FallsBackToDescription(t *testing.T) {
	row := model.StoredTransaction{Description: "TIM HORTONS #2169"}
	assert.Equal(t, MerchantKey("", "TIM HORTONS #2169"), StoredMerchantKey(row))
}

func TestFilter_SameUploadRepeatsAreKept(t *testing.T) {
	coffee := candidate(jan15, "BLUE BOTTLE", "-4.00", model.DirectionExpense)

	dups, rest := Filter([]model.TransactionCandidate{coffee, coffee}, nil)
	assert.Empty(t, dups)
	assert.Len(t, rest, 2)
}

func TestFilter_PreservesOrder(t *testing.T) {
	existing := []model.StoredTransaction{
		stored(jan15, "LOBLAWS", "-20.00", model.DirectionExpense),
	}
	in := []model.TransactionCandidate{
		candidate(jan15, "A", "-1.00", model.DirectionExpense),
		candidate(jan15, "LOBLAWS", "-20.00", model.DirectionExpense),
		candidate(jan15, "B", "-2.00", model.DirectionExpense),
	}

	dups, rest := Filter(in, existing)
	require.Len(t, dups, 1)
	require.Len(t, rest, 2)
	assert.Equal(t, "A", rest[0].Description)
	assert.Equal(t, "B", rest[1].Description)
}

func TestCanonicalAmount(t *testing.T) {
	assert.Equal(t, "-5.50", CanonicalAmount(decimal.RequireFromString("-5.5")))
	assert.Equal(t, "-5.50", CanonicalAmount(decimal.RequireFromString("-5.500")))
	assert.Equal(t, "0.00", CanonicalAmount(decimal.Zero))
	assert.Equal(t, "1.005", CanonicalAmount(decimal.RequireFromString("1.005")))
}

func TestIndex_Len(t *testing.T) {
	idx := NewIndex([]model.StoredTransaction{
		stored(jan15, "A", "-1.00", model.DirectionExpense),
		stored(jan15, "B", "-1.00", model.DirectionExpense),
		stored(jan15, "C", "-2.00", model.DirectionExpense),
	})
	assert.Equal(t, 3, idx.Len())
}

type fakeSource struct {
	err      error
	rows     []model.StoredTransaction
	gotUser  string
	gotFrom  time.Time
	gotTo    time.Time
	gotCalls int
}

func (f *fakeSource) StoredTransactions(_ context.Context, userID string, from, to time.Time) ([]model.StoredTransaction, error) {
	f.gotCalls++
	f.gotUser = userID
	f.gotFrom = from
	f.gotTo = to
	return f.rows, f.err
}

func TestFilterFromSource(t *testing.T) {
	src := &fakeSource{rows: []model.StoredTransaction{
		stored(jan15, "TIM HORTONS", "-5.50", model.DirectionExpense),
	}}
	in := []model.TransactionCandidate{
		candidate(jan15.AddDate(0, 0, 3), "NETFLIX", "-16.99", model.DirectionExpense),
		candidate(jan15, "TIM HORTONS", "-5.50", model.DirectionExpense),
	}

	out := FilterFromSource(context.Background(), src, "user-1", in)
	require.NoError(t, out.Err)
	assert.False(t, out.NeedsReview)
	assert.Len(t, out.Duplicates, 1)
	assert.Len(t, out.NonDuplicates, 1)
	assert.Equal(t, "user-1", src.gotUser)
	assert.Equal(t, jan15, src.gotFrom)
	assert.Equal(t, jan15.AddDate(0, 0, 3), src.gotTo)
}

func TestFilterFromSource_DegradesOnReadFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	in := []model.TransactionCandidate{
		candidate(jan15, "TIM HORTONS", "-5.50", model.DirectionExpense),
	}

	out := FilterFromSource(context.Background(), src, "user-1", in)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "connection refused")
	assert.True(t, out.NeedsReview)
	assert.Empty(t, out.Duplicates)
	assert.Len(t, out.NonDuplicates, 1)
}

func TestFilterFromSource_NoCandidates(t *testing.T) {
	src := &fakeSource{}
	out := FilterFromSource(context.Background(), src, "user-1", nil)
	assert.Equal(t, 0, src.gotCalls)
	assert.Empty(t, out.NonDuplicates)
}
