package model

// MatchTier identifies which categorization tier produced a result.
type MatchTier string

// Tier constants, in evaluation order.
const (
	TierLearned   MatchTier = "LEARNED"
	TierMerchant  MatchTier = "MERCHANT"
	TierKeyword   MatchTier = "KEYWORD"
	TierHeuristic MatchTier = "HEURISTIC"
	TierDefault   MatchTier = "DEFAULT"
)

// Categorization is the outcome of running a candidate through the engine.
type Categorization struct {
	Category   string
	Label      string
	Reason     string
	Tier       MatchTier
	Confidence int
}

// Uncategorised returns the default-tier result.
func Uncategorised() Categorization {
	return Categorization{
		Category: UncategorisedCategory,
		Tier:     TierDefault,
		Reason:   "no tier matched",
	}
}

// Buckets groups reviewed candidates for the human review step.
type Buckets struct {
	Duplicates    []TransactionCandidate
	Uncategorized []TransactionCandidate
	Expenses      []TransactionCandidate
	Income        []TransactionCandidate
}

// Add places a categorized candidate in exactly one bucket.
// Duplicates win over every other bucket, then zero-confidence candidates.
// Candidates with direction "other" follow the sign of their amount.
func (b *Buckets) Add(c TransactionCandidate) {
	switch {
	case c.IsDuplicate:
		b.Duplicates = append(b.Duplicates, c)
	case c.Confidence == 0:
		b.Uncategorized = append(b.Uncategorized, c)
	case c.Direction == DirectionIncome:
		b.Income = append(b.Income, c)
	case c.Direction == DirectionExpense:
		b.Expenses = append(b.Expenses, c)
	case c.Amount.IsNegative():
		b.Expenses = append(b.Expenses, c)
	default:
		b.Income = append(b.Income, c)
	}
}

// Total returns the number of candidates across all buckets.
func (b *Buckets) Total() int {
	return len(b.Duplicates) + len(b.Uncategorized) + len(b.Expenses) + len(b.Income)
}
