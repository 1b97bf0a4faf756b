// Package parser turns raw bank statement text into transaction candidates.
package parser

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/statement-intake/internal/classification"
	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
)

// Result is what one statement yields.
// Zero candidates is not an error; Warning is set instead.
type Result struct {
	Warning     error
	Source      string
	Bank        string
	AccountType string
	Layout      LayoutKind
	Candidates  []model.TransactionCandidate
}

// Parser reads statements. It holds no per-call state and is safe for concurrent use.
type Parser struct {
	detector      *classification.PatternDetector
	now           func() time.Time
	maxBatchFiles int
}

// Option configures a Parser.
type Option func(*Parser)

// WithDetector replaces the description marker detector.
func WithDetector(d *classification.PatternDetector) Option {
	return func(p *Parser) {
		p.detector = d
	}
}

// WithClock sets the clock used to place year-less dates when a statement names no period.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithMaxBatchFiles caps how many files ParseBatch accepts.
func WithMaxBatchFiles(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBatchFiles = n
		}
	}
}

// NewParser creates a statement parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		detector:      classification.Default(),
		now:           time.Now,
		maxBatchFiles: MaxBatchFiles,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads one statement. hint forces a layout; empty means detect.
// Unreadable input returns a *common.ParseError and no candidates.
func (p *Parser) Parse(ctx context.Context, source string, raw []byte, hint LayoutKind) (Result, error) {
	text, err := decodeText(source, raw)
	if err != nil {
		return Result{}, err
	}

	kind := hint
	if kind == "" {
		kind = Detect(text)
	}
	layout, ok := LayoutFor(kind)
	if !ok {
		return Result{}, common.NewParseError(source, "unknown layout "+string(kind), common.ErrInvalidInput)
	}

	var result Result
	if layout.Kind == KindOFX {
		result, err = p.parseOFX(ctx, source, text)
	} else {
		result, err = p.parseText(ctx, source, text, layout)
	}
	if err != nil {
		return Result{}, err
	}

	if len(result.Candidates) == 0 {
		result.Warning = &common.EmptyResultWarning{Source: source, Bank: result.Bank}
	}
	return result, nil
}

// Parse reads one statement with a default parser.
func Parse(ctx context.Context, source string, raw []byte, hint LayoutKind) (Result, error) {
	return NewParser().Parse(ctx, source, raw, hint)
}

// decodeText rejects input that is not text and normalizes line endings.
func decodeText(source string, raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", common.NewParseError(source, "empty input", common.ErrEmptyInput)
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", common.NewParseError(source, "binary content", common.ErrUnsupportedEncoding)
	}
	if !utf8.Valid(raw) {
		return "", common.NewParseError(source, "input is not valid UTF-8", common.ErrUnsupportedEncoding)
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
