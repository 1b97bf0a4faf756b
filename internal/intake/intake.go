// Package intake runs one statement upload through parsing, duplicate
// filtering and categorization, producing review buckets.
package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/dedup"
	"github.com/Veraticus/statement-intake/internal/engine"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/parser"
	"github.com/Veraticus/statement-intake/internal/registry"
)

// DefaultHistoryMonths is how far before the earliest candidate the recurring
// heuristic looks for prior charges.
const DefaultHistoryMonths = 12

// HistorySource reads a user's stored transactions from a given date onwards.
type HistorySource interface {
	History(ctx context.Context, userID string, since time.Time) ([]model.StoredTransaction, error)
}

// Store is everything the pipeline reads. It never writes.
type Store interface {
	registry.Source
	dedup.Source
	HistorySource
}

// FileResult summarizes one uploaded statement.
type FileResult struct {
	Warning     error
	Err         error
	Source      string
	Bank        string
	AccountType string
	Layout      parser.LayoutKind
	Count       int
}

// Result is the outcome of one upload, ready for human review.
type Result struct {
	DedupErr    error
	RunID       string
	UserID      string
	Files       []FileResult
	Accepted    []model.TransactionCandidate
	Buckets     model.Buckets
	NeedsReview bool
}

// Failed returns the number of files that could not be read.
func (r *Result) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline wires the intake components together.
type Pipeline struct {
	store         Store
	parser        *parser.Parser
	engineConfig  engine.Config
	historyMonths int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParser replaces the statement parser.
func WithParser(p *parser.Parser) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.parser = p
		}
	}
}

// WithEngineConfig sets the categorization thresholds.
func WithEngineConfig(cfg engine.Config) Option {
	return func(pl *Pipeline) {
		pl.engineConfig = cfg
	}
}

// WithHistoryMonths sets the recurring heuristic lookback. Zero disables history.
func WithHistoryMonths(months int) Option {
	return func(pl *Pipeline) {
		if months >= 0 {
			pl.historyMonths = months
		}
	}
}

// New creates a pipeline reading from store.
func New(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		parser:        parser.NewParser(),
		engineConfig:  engine.DefaultConfig(),
		historyMonths: DefaultHistoryMonths,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run parses files for userID, drops candidates already stored and
// categorizes the rest. Per-file failures are reported in Result.Files; a
// failed duplicate check degrades to NeedsReview. Only invalid input,
// cancellation and registry load failures abort the run.
func (p *Pipeline) Run(ctx context.Context, userID string, files []parser.File, hint parser.LayoutKind) (*Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", common.ErrInvalidInput)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no statements given", common.ErrEmptyInput)
	}

	result := &Result{
		RunID:  uuid.NewString(),
		UserID: userID,
	}
	logger := common.Logger(ctx).With("run_id", result.RunID, "user_id", userID)
	ctx = common.WithLogger(ctx, logger)

	start := time.Now()
	parsed, err := p.parser.ParseBatch(ctx, files, hint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statements: %w", err)
	}

	var candidates []model.TransactionCandidate
	for _, fr := range parsed {
		result.Files = append(result.Files, FileResult{
			Source:      fr.Source,
			Bank:        fr.Bank,
			AccountType: fr.AccountType,
			Layout:      fr.Layout,
			Count:       len(fr.Candidates),
			Warning:     fr.Warning,
			Err:         fr.Err,
		})
		switch {
		case fr.Err != nil:
			logger.Warn("Statement could not be read", "source", fr.Source, "error", fr.Err)
		case fr.Warning != nil:
			logger.Warn("Statement yielded no transactions", "source", fr.Source, "bank", fr.Bank)
		default:
			logger.Debug("Statement parsed",
				"source", fr.Source,
				"bank", fr.Bank,
				"layout", fr.Layout,
				"candidates", len(fr.Candidates))
		}
		candidates = append(candidates, fr.Candidates...)
	}

	if len(candidates) == 0 {
		logger.Info("No transactions recognized", "files", len(files), "failed", result.Failed())
		return result, nil
	}

	snapshot, err := registry.Load(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	outcome := dedup.FilterFromSource(ctx, p.store, userID, candidates)
	result.NeedsReview = outcome.NeedsReview
	result.DedupErr = outcome.Err

	history := p.loadHistory(ctx, userID, candidates)
	eng := engine.NewWithConfig(snapshot, history, p.engineConfig)

	accepted, err := eng.CategorizeAll(ctx, outcome.NonDuplicates, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to categorize: %w", err)
	}

	result.Accepted = accepted
	for _, c := range accepted {
		result.Buckets.Add(c)
	}
	for _, c := range outcome.Duplicates {
		result.Buckets.Add(c)
	}

	logger.Info("Statements processed",
		"files", len(files),
		"failed", result.Failed(),
		"candidates", len(candidates),
		"duplicates", len(result.Buckets.Duplicates),
		"uncategorized", len(result.Buckets.Uncategorized),
		"needs_review", result.NeedsReview,
		"duration", time.Since(start))

	return result, nil
}

// loadHistory reads the lookback window for the recurring heuristic.
// A failed read only disables that heuristic.
func (p *Pipeline) loadHistory(ctx context.Context, userID string, candidates []model.TransactionCandidate) []model.StoredTransaction {
	if p.historyMonths == 0 {
		return nil
	}

	earliest := candidates[0].Date
	for _, c := range candidates[1:] {
		if c.Date.Before(earliest) {
			earliest = c.Date
		}
	}
	since := model.DateOnly(earliest).AddDate(0, -p.historyMonths, 0)

	history, err := p.store.History(ctx, userID, since)
	if err != nil {
		common.Logger(ctx).Warn("History unavailable, recurring detection disabled", "error", err)
		return nil
	}
	return history
}
