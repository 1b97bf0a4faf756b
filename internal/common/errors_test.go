package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	err := NewParseError("statement.pdf", "binary content", ErrUnsupportedEncoding)

	assert.Equal(t, "parse statement.pdf: binary content: unsupported encoding", err.Error())
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)

	var parseErr *ParseError
	assert.ErrorAs(t, fmt.Errorf("batch: %w", err), &parseErr)
	assert.Equal(t, "statement.pdf", parseErr.Source)

	assert.Equal(t, "parse x.txt: empty", NewParseError("x.txt", "empty", nil).Error())
}

func TestEmptyResultWarning(t *testing.T) {
	w := &EmptyResultWarning{Source: "td.txt", Bank: "TD Canada Trust"}

	assert.Equal(t, "td.txt (TD Canada Trust): no transactions recognized", w.Error())
	assert.ErrorIs(t, w, ErrNoTransactionsRecognized)
	assert.True(t, IsWarning(fmt.Errorf("wrapped: %w", w)))
	assert.False(t, IsWarning(ErrNoTransactionsRecognized))

	assert.Equal(t, "notes.txt: no transactions recognized", (&EmptyResultWarning{Source: "notes.txt"}).Error())
}

func TestUserError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewUserError("Could not open the database", cause)

	assert.Equal(t, "Could not open the database: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Just a message", NewUserError("Just a message", nil).Error())
}

func TestCrossUserLeakageError(t *testing.T) {
	err := &CrossUserLeakageError{RequestedUser: "alice", PatternUser: "bob", Pattern: "ACME"}
	assert.Contains(t, err.Error(), `"ACME"`)
	assert.Contains(t, err.Error(), `"bob"`)
	assert.Contains(t, err.Error(), `"alice"`)
}
