package engine

import (
	"fmt"

	"github.com/Veraticus/statement-intake/internal/classification"
	"github.com/Veraticus/statement-intake/internal/dedup"
	"github.com/Veraticus/statement-intake/internal/model"
)

// history groups a user's stored expenses by merchant key.
type history struct {
	byMerchant map[string][]model.StoredTransaction
}

func newHistory(stored []model.StoredTransaction) *history {
	h := &history{byMerchant: make(map[string][]model.StoredTransaction)}
	for _, s := range stored {
		if s.Direction != model.DirectionExpense {
			continue
		}
		key := dedup.StoredMerchantKey(s)
		if key == "" {
			continue
		}
		h.byMerchant[key] = append(h.byMerchant[key], s)
	}
	return h
}

// heuristicTier applies amount, frequency and marker heuristics.
// No heuristic grants more than HeuristicMax.
func (e *Engine) heuristicTier(c model.TransactionCandidate, text string) (model.Categorization, bool) {
	if months := e.recurringMonths(c); months >= e.config.RecurringMinMonths {
		return heuristic(CategoryBills, "Recurring", RecurringConfidence,
			fmt.Sprintf("recurring on day %d in %d prior months", c.Date.Day(), months)), true
	}

	if c.Direction != model.DirectionExpense {
		if m := e.detector.Find(text, classification.PatternTypePayroll); m != nil {
			return heuristic(CategoryIncome, "Payroll", PayrollConfidence, markerReason(m)), true
		}
	}

	if m := e.detector.Find(text, classification.PatternTypeTransfer); m != nil {
		return heuristic(CategoryTransfers, m.PatternName, TransferConfidence, markerReason(m)), true
	}

	if c.Direction != model.DirectionIncome {
		if m := e.detector.Find(text, classification.PatternTypeFee); m != nil {
			return heuristic(CategoryFees, m.PatternName, FeeConfidence, markerReason(m)), true
		}
		if m := e.detector.Find(text, classification.PatternTypeCash); m != nil {
			return heuristic(CategoryCash, "ATM", CashConfidence, markerReason(m)), true
		}
	}

	return model.Categorization{}, false
}

// recurringMonths counts the distinct months before the candidate's month in
// which the same merchant charged a similar amount on a similar day.
func (e *Engine) recurringMonths(c model.TransactionCandidate) int {
	if c.Direction != model.DirectionExpense || c.Amount.IsZero() {
		return 0
	}
	past := e.history.byMerchant[dedup.MerchantKey(c.Merchant, c.Description)]
	if len(past) == 0 {
		return 0
	}

	current := monthIndex(c.Date.Year(), int(c.Date.Month()))
	allowed := c.Amount.Abs().Mul(e.config.RecurringAmountTolerance)

	months := make(map[int]struct{})
	for _, s := range past {
		m := monthIndex(s.Date.Year(), int(s.Date.Month()))
		if m >= current {
			continue
		}
		if dayDistance(s.Date.Day(), c.Date.Day()) > e.config.RecurringDayTolerance {
			continue
		}
		if s.Amount.Sub(c.Amount).Abs().GreaterThan(allowed) {
			continue
		}
		months[m] = struct{}{}
	}
	return len(months)
}

func monthIndex(year, month int) int {
	return year*12 + month - 1
}

// dayDistance is the distance between two days of the month, wrapping around
// month ends so that the 31st and the 1st are one day apart.
func dayDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	return min(d, 31-d)
}

func heuristic(category, label string, confidence int, reason string) model.Categorization {
	return model.Categorization{
		Category:   category,
		Label:      label,
		Confidence: min(confidence, HeuristicMax),
		Tier:       model.TierHeuristic,
		Reason:     reason,
	}
}

func markerReason(m *classification.Match) string {
	return fmt.Sprintf("%s marker %q", m.Type, m.PatternName)
}
