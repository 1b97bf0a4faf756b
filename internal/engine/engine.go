// Package engine assigns a category, label and confidence to transaction candidates.
//
// Tiers are evaluated in a fixed order and the first decisive tier wins:
// learned corrections, the merchant registry, the keyword registry, heuristics,
// and finally the Uncategorised default. The engine has no side effects and
// holds no mutable state, so one Engine may serve concurrent callers.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/statement-intake/internal/classification"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
	"github.com/Veraticus/statement-intake/internal/registry"
)

// Confidence bounds per tier.
const (
	LearnedBase             = 60
	LearnedStep             = 5
	LearnedMax              = 100
	MerchantMax             = 95
	KeywordMax              = 80
	HeuristicMax            = 40
	RecurringConfidence     = 40
	PayrollConfidence       = 35
	TransferConfidence      = 30
	FeeConfidence           = 30
	CashConfidence          = 25
	DefaultKeywordThreshold = 8
)

// Heuristic categories.
const (
	CategoryBills     = "Bills"
	CategoryIncome    = "Income"
	CategoryTransfers = "Transfers"
	CategoryCash      = "Cash"
	CategoryFees      = "Fees"
)

// Config holds the tunable thresholds of the engine.
type Config struct {
	// Language restricts keyword matching; empty accepts every language.
	Language model.Language
	// RecurringAmountTolerance is the relative amount drift allowed between
	// occurrences of a recurring bill.
	RecurringAmountTolerance decimal.Decimal
	// KeywordThreshold is the aggregate score a category must exceed.
	KeywordThreshold int
	// RecurringDayTolerance is the day-of-month drift allowed.
	RecurringDayTolerance int
	// RecurringMinMonths is the number of distinct prior months required.
	RecurringMinMonths int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		KeywordThreshold:         DefaultKeywordThreshold,
		RecurringDayTolerance:    3,
		RecurringMinMonths:       2,
		RecurringAmountTolerance: decimal.NewFromFloat(0.10),
	}
}

// Engine categorizes candidates against one registry snapshot and one user's history.
type Engine struct {
	snapshot *registry.Snapshot
	detector *classification.PatternDetector
	history  *history
	config   Config
}

// New creates an engine with the default configuration.
// history holds the user's stored transactions used by the recurring heuristic.
func New(snapshot *registry.Snapshot, history []model.StoredTransaction) *Engine {
	return NewWithConfig(snapshot, history, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration.
// Zero-valued thresholds fall back to their defaults.
func NewWithConfig(snapshot *registry.Snapshot, stored []model.StoredTransaction, config Config) *Engine {
	defaults := DefaultConfig()
	if config.KeywordThreshold <= 0 {
		config.KeywordThreshold = defaults.KeywordThreshold
	}
	if config.RecurringDayTolerance <= 0 {
		config.RecurringDayTolerance = defaults.RecurringDayTolerance
	}
	if config.RecurringMinMonths <= 0 {
		config.RecurringMinMonths = defaults.RecurringMinMonths
	}
	if !config.RecurringAmountTolerance.IsPositive() {
		config.RecurringAmountTolerance = defaults.RecurringAmountTolerance
	}
	if snapshot == nil {
		snapshot = registry.Empty()
	}

	return &Engine{
		snapshot: snapshot,
		detector: classification.Default(),
		history:  newHistory(stored),
		config:   config,
	}
}

// Categorize returns the categorization of c for userID.
// It never fails: a learned pattern owned by another user is a programming
// defect and panics with a *common.CrossUserLeakageError.
func (e *Engine) Categorize(c model.TransactionCandidate, userID string) model.Categorization {
	result, err := e.CategorizeChecked(c, userID)
	if err != nil {
		panic(err)
	}
	return result
}

// CategorizeChecked is Categorize returning the leakage defect as an error.
func (e *Engine) CategorizeChecked(c model.TransactionCandidate, userID string) (model.Categorization, error) {
	text := matchText(c)

	learned, err := e.snapshot.LookupLearned(userID, text)
	if err != nil {
		return model.Uncategorised(), fmt.Errorf("learned tier: %w", err)
	}
	if learned != nil {
		return learnedResult(learned), nil
	}

	if m := e.snapshot.LookupMerchant(text); m != nil && m.Score > 0 {
		return model.Categorization{
			Category:   m.Category,
			Label:      m.Label,
			Confidence: min(m.Score, MerchantMax),
			Tier:       model.TierMerchant,
			Reason:     fmt.Sprintf("merchant pattern %q", m.Pattern),
		}, nil
	}

	if r, ok := e.keywordTier(text); ok {
		return r, nil
	}

	if r, ok := e.heuristicTier(c, text); ok {
		return r, nil
	}

	return model.Uncategorised(), nil
}

// CategorizeAll categorizes candidates in order, applying each result.
// Duplicates are passed through unchanged. On cancellation it stops and
// returns the candidates processed so far with the context error.
func (e *Engine) CategorizeAll(ctx context.Context, candidates []model.TransactionCandidate, userID string) ([]model.TransactionCandidate, error) {
	out := make([]model.TransactionCandidate, 0, len(candidates))
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		if !c.IsDuplicate {
			result, err := e.CategorizeChecked(c, userID)
			if err != nil {
				return out, err
			}
			c.Apply(result)
		}
		out = append(out, c)
	}
	return out, nil
}

// LearnedConfidence is the confidence granted to a learned pattern seen frequency times.
func LearnedConfidence(frequency int) int {
	return min(LearnedMax, LearnedBase+LearnedStep*max(frequency, 1))
}

func learnedResult(l *model.LearnedPattern) model.Categorization {
	return model.Categorization{
		Category:   l.CorrectedCategory,
		Label:      l.CorrectedLabel,
		Confidence: LearnedConfidence(l.Frequency),
		Tier:       model.TierLearned,
		Reason:     fmt.Sprintf("learned pattern %q corrected %d time(s)", l.Pattern, l.Frequency),
	}
}

type categoryScore struct {
	category string
	label    string
	keywords []string
	score    int
}

// keywordTier sums keyword scores per category. Categories are kept in the
// order their first keyword appears in the registry, which breaks ties.
func (e *Engine) keywordTier(text string) (model.Categorization, bool) {
	matches := e.snapshot.LookupKeywords(text, e.config.Language)
	if len(matches) == 0 {
		return model.Categorization{}, false
	}

	var scores []*categoryScore
	byCategory := make(map[string]*categoryScore)
	for _, m := range matches {
		s, ok := byCategory[m.Pattern.Category]
		if !ok {
			s = &categoryScore{category: m.Pattern.Category, label: m.Pattern.Label}
			byCategory[m.Pattern.Category] = s
			scores = append(scores, s)
		}
		s.score += m.Pattern.Score * m.Count
		s.keywords = append(s.keywords, m.Pattern.Keyword)
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}
	if best.score <= e.config.KeywordThreshold {
		return model.Categorization{}, false
	}

	return model.Categorization{
		Category:   best.category,
		Label:      best.label,
		Confidence: min(best.score, KeywordMax),
		Tier:       model.TierKeyword,
		Reason:     fmt.Sprintf("keywords %s scored %d", strings.Join(best.keywords, ", "), best.score),
	}, true
}

func matchText(c model.TransactionCandidate) string {
	if c.NormalizedDescription != "" {
		return c.NormalizedDescription
	}
	return normalize.Normalize(c.Description)
}
