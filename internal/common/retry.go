package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDatabaseBusy indicates the database was locked by another writer.
	ErrDatabaseBusy = errors.New("database busy")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// Backoff describes how a failing operation is retried.
// Zero fields take the values of DefaultBackoff.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
}

// DefaultBackoff is tuned for short write transactions waiting on the SQLite write lock.
func DefaultBackoff() Backoff {
	return Backoff{
		Attempts: 3,
		Initial:  50 * time.Millisecond,
		Max:      2 * time.Second,
		Factor:   2.0,
	}
}

func (b Backoff) withDefaults() Backoff {
	d := DefaultBackoff()
	if b.Attempts <= 0 {
		b.Attempts = d.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = d.Initial
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Factor < 1 {
		b.Factor = d.Factor
	}
	return b
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retry runs op until it succeeds, fails with an error IsRetryable rejects,
// or uses up its attempts. The last error is wrapped with ErrMaxRetries.
func Retry[T any](ctx context.Context, b Backoff, op func() (T, error)) (T, error) {
	b = b.withDefaults()
	delay := b.Initial

	var zero T
	for attempt := 1; ; attempt++ {
		value, err := op()
		if err == nil {
			return value, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == b.Attempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, b.Attempts, err)
		}

		Logger(ctx).Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", b.Attempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(time.Duration(float64(delay)*b.Factor), b.Max)
	}
}
