package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/statement-intake/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrInvalidCandidate = errors.New("invalid transaction candidate")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateMerchantPattern(p *model.MerchantPattern) error {
	if p == nil {
		return fmt.Errorf("%w: merchant pattern", ErrNilParameter)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return nil
}

func validateKeywordPattern(p *model.KeywordPattern) error {
	if p == nil {
		return fmt.Errorf("%w: keyword pattern", ErrNilParameter)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return nil
}

// validateCandidates checks every candidate before a commit touches the database.
func validateCandidates(candidates []model.TransactionCandidate) error {
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %w", ErrInvalidCandidate, i, err)
		}
	}
	return nil
}
