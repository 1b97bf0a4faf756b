package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/intake"
	"github.com/Veraticus/statement-intake/internal/model"
)

func candidate(description, amount string, dir model.CashflowDirection) model.TransactionCandidate {
	return model.NewCandidate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), description, decimal.RequireFromString(amount), dir)
}

func sampleResult() *intake.Result {
	tim := candidate("TIM HORTONS #1234", "-7.04", model.DirectionExpense)
	tim.Apply(model.Categorization{Category: "Food", Label: "Dining", Confidence: 90, Tier: model.TierMerchant})

	pay := candidate("ACME CORP PAYROLL", "2500", model.DirectionIncome)
	pay.Apply(model.Categorization{Category: "Income", Label: "Payroll", Confidence: 35, Tier: model.TierHeuristic})

	unknown := candidate("CLUB SPORTIF", "-45", model.DirectionExpense)

	dup := candidate("NETFLIX.COM", "-16.99", model.DirectionExpense)
	dup.IsDuplicate = true

	res := &intake.Result{
		Files: []intake.FileResult{
			{Source: "td.txt", Bank: "TD Canada Trust", AccountType: "chequing", Count: 4},
			{Source: "broken.bin", Err: common.NewParseError("broken.bin", "not text", common.ErrUnsupportedEncoding)},
			{Source: "notes.txt", Warning: &common.EmptyResultWarning{Source: "notes.txt"}},
		},
	}
	for _, c := range []model.TransactionCandidate{tim, pay, unknown, dup} {
		res.Buckets.Add(c)
	}
	return res
}

func TestRenderResult(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderResult(&out, sampleResult(), false))
	text := out.String()

	assert.Contains(t, text, "td.txt: TD Canada Trust chequing, 4 transactions")
	assert.Contains(t, text, "broken.bin")
	assert.Contains(t, text, "notes.txt")
	assert.Contains(t, text, "Needs a category (1)")
	assert.Contains(t, text, "Expenses (1)")
	assert.Contains(t, text, "Income (1)")
	assert.Contains(t, text, "Food / Dining")
	assert.Contains(t, text, "-7.04")
	assert.Contains(t, text, "2500.00")
	assert.Contains(t, text, "1 already imported transactions hidden")
	assert.NotContains(t, text, "NETFLIX.COM")
	assert.NotContains(t, text, "manual review")
}

func TestRenderResult_ShowDuplicatesAndReview(t *testing.T) {
	res := sampleResult()
	res.NeedsReview = true
	res.DedupErr = errors.New("loading stored transactions: disk unavailable")

	var out bytes.Buffer
	require.NoError(t, RenderResult(&out, res, true))
	text := out.String()

	assert.Contains(t, text, "Already imported (1)")
	assert.Contains(t, text, "NETFLIX.COM")
	assert.Contains(t, text, "manual review")
	assert.Contains(t, text, "disk unavailable")
	assert.NotContains(t, text, "hidden")
}

func TestRenderResult_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderResult(&out, &intake.Result{}, false))
	assert.Contains(t, out.String(), "No transactions to review")
}

func TestTransactionTable_TruncatesDescriptions(t *testing.T) {
	long := strings.Repeat("Épicerie ", 10)
	table := TransactionTable([]model.TransactionCandidate{candidate(long, "-1", model.DirectionExpense)})

	assert.Contains(t, table, "…")
	assert.NotContains(t, table, strings.TrimSpace(long))
	assert.Contains(t, table, "DESCRIPTION")
	assert.Contains(t, table, "DEFAULT")
	assert.Contains(t, table, " - ")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "éééé…", truncate("éééééééé", 5))
}

func TestRenderPatterns(t *testing.T) {
	var out bytes.Buffer
	err := RenderPatterns(&out,
		[]model.MerchantPattern{{Pattern: "TIM HORTONS", Category: "Food", Label: "Dining", Score: 90}},
		[]model.KeywordPattern{{Keyword: "LOYER", Category: "Housing", Score: 9, Language: model.LanguageFrench}},
	)
	require.NoError(t, err)
	text := out.String()

	assert.Contains(t, text, "Merchant patterns (1)")
	assert.Contains(t, text, "TIM HORTONS")
	assert.Contains(t, text, "Keyword patterns (1)")
	assert.Contains(t, text, "LOYER")
	assert.Contains(t, text, "Housing")
	assert.Contains(t, text, "fr")
}

func TestRenderLearned(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderLearned(&out, "user-1", nil))
	assert.Contains(t, out.String(), "No learned patterns for user-1")

	out.Reset()
	require.NoError(t, RenderLearned(&out, "user-1", []model.LearnedPattern{
		{Pattern: "ACME CORP", CorrectedCategory: "Work Expenses", Frequency: 3},
	}))
	assert.Contains(t, out.String(), "ACME CORP")
	assert.Contains(t, out.String(), "Work Expenses")
}

func TestRenderError(t *testing.T) {
	var out bytes.Buffer
	RenderError(&out, fmt.Errorf("wrapped: %w", common.NewUserError("Could not open the database", errors.New("locked"))))
	assert.Contains(t, out.String(), "Could not open the database")
	assert.NotContains(t, out.String(), "locked")

	out.Reset()
	RenderError(&out, errors.New("plain failure"))
	assert.Contains(t, out.String(), "plain failure")
}

func TestNewProgress(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgress(&out, 2, "Reading statements")
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))
	assert.Contains(t, out.String(), "Reading statements")

	silent := NewProgress(nil, 1, "quiet")
	require.NoError(t, silent.Add(1))
}
