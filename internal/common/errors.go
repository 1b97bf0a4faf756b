// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Parsing errors.
	ErrNoTransactionsRecognized = errors.New("no transactions recognized")
	ErrUnsupportedEncoding      = errors.New("unsupported encoding")
	ErrEmptyInput               = errors.New("empty input")
	ErrTooManyFiles             = errors.New("too many files in batch")

	// Input errors.
	ErrInvalidInput = errors.New("invalid input")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ParseError reports a statement that could not be read at all.
// It is scoped to one file and never aborts sibling files in a batch.
type ParseError struct {
	Err    error
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError for the given source file.
func NewParseError(source, reason string, err error) error {
	return &ParseError{Source: source, Reason: reason, Err: err}
}

// EmptyResultWarning marks a statement that was readable but yielded no candidates.
// It is not fatal; callers decide whether to reject the file.
type EmptyResultWarning struct {
	Source string
	Bank   string
}

func (w *EmptyResultWarning) Error() string {
	if w.Bank != "" {
		return fmt.Sprintf("%s (%s): %v", w.Source, w.Bank, ErrNoTransactionsRecognized)
	}
	return fmt.Sprintf("%s: %v", w.Source, ErrNoTransactionsRecognized)
}

func (w *EmptyResultWarning) Unwrap() error {
	return ErrNoTransactionsRecognized
}

// CrossUserLeakageError means a learned-pattern lookup surfaced another user's pattern.
// This is a programming defect and must never be silently tolerated.
type CrossUserLeakageError struct {
	RequestedUser string
	PatternUser   string
	Pattern       string
}

func (e *CrossUserLeakageError) Error() string {
	return fmt.Sprintf("learned pattern %q belongs to user %q but was looked up for user %q",
		e.Pattern, e.PatternUser, e.RequestedUser)
}

// IsWarning reports whether err is a non-fatal warning rather than a failure.
func IsWarning(err error) bool {
	var w *EmptyResultWarning
	return errors.As(err, &w)
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrDatabaseBusy) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
