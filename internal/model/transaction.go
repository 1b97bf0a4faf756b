package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CashflowDirection indicates whether money entered or left the account.
type CashflowDirection string

const (
	// DirectionIncome represents money coming into the account.
	DirectionIncome CashflowDirection = "income"
	// DirectionExpense represents money leaving the account.
	DirectionExpense CashflowDirection = "expense"
	// DirectionOther represents transfers and movements that are neither.
	DirectionOther CashflowDirection = "other"
)

// Valid reports whether d is one of the known directions.
func (d CashflowDirection) Valid() bool {
	switch d {
	case DirectionIncome, DirectionExpense, DirectionOther:
		return true
	}
	return false
}

// UncategorisedCategory is the category assigned when no tier decides.
const UncategorisedCategory = "Uncategorised"

// TransactionCandidate is a parsed statement line awaiting review.
// Candidates are never persisted by the intake core.
type TransactionCandidate struct {
	Date                  time.Time
	Amount                decimal.Decimal // Signed: negative for money out
	Description           string          // Raw text, used for display
	NormalizedDescription string          // Used only for matching
	Merchant              string
	Direction             CashflowDirection
	Account               string
	Category              string
	Label                 string
	Reason                string
	SourceReference       string
	Tier                  MatchTier
	Confidence            int
	IsDuplicate           bool
}

// NewCandidate returns a candidate with the default categorization applied.
func NewCandidate(date time.Time, description string, amount decimal.Decimal, direction CashflowDirection) TransactionCandidate {
	return TransactionCandidate{
		Date:        DateOnly(date),
		Description: description,
		Amount:      amount,
		Direction:   direction,
		Category:    UncategorisedCategory,
		Tier:        TierDefault,
	}
}

// Validate checks the sign and confidence invariants of a candidate.
func (c *TransactionCandidate) Validate() error {
	if c.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !c.Direction.Valid() {
		return fmt.Errorf("invalid cashflow direction %q", c.Direction)
	}
	switch c.Direction {
	case DirectionIncome:
		if c.Amount.IsNegative() {
			return fmt.Errorf("income amount must not be negative, got %s", c.Amount.StringFixed(2))
		}
	case DirectionExpense:
		if !c.Amount.IsNegative() {
			return fmt.Errorf("expense amount must be negative, got %s", c.Amount.StringFixed(2))
		}
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %d", c.Confidence)
	}
	if (c.Confidence == 0) != (c.Category == UncategorisedCategory) {
		return fmt.Errorf("confidence %d is inconsistent with category %q", c.Confidence, c.Category)
	}
	return nil
}

// Apply copies a categorization result onto the candidate.
func (c *TransactionCandidate) Apply(r Categorization) {
	c.Category = r.Category
	c.Label = r.Label
	c.Confidence = r.Confidence
	c.Tier = r.Tier
	c.Reason = r.Reason
}

// StoredTransaction is the minimal read-only view of a previously committed transaction.
type StoredTransaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	Merchant    string
	Description string
	Direction   CashflowDirection
}

// DateOnly strips the time component, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
