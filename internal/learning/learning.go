// Package learning records user category corrections as learned patterns.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/statement-intake/internal/common"
	"github.com/Veraticus/statement-intake/internal/model"
	"github.com/Veraticus/statement-intake/internal/normalize"
)

// Store persists learned patterns.
// UpsertLearnedPattern creates the (userID, pattern) row with frequency 1 or
// increments the frequency of the existing row, replacing its category and label.
type Store interface {
	UpsertLearnedPattern(ctx context.Context, userID, pattern, category, label string) (*model.LearnedPattern, error)
}

// Updater is the only write path into the learned pattern registry.
type Updater struct {
	store Store
	locks *keyedMutex
}

// NewUpdater creates an updater backed by store.
func NewUpdater(store Store) *Updater {
	return &Updater{
		store: store,
		locks: newKeyedMutex(),
	}
}

// RecordCorrection registers that userID corrected text to category and label.
// Calls for the same user and normalized pattern are serialized.
func (u *Updater) RecordCorrection(ctx context.Context, userID, text, category, label string) error {
	_, err := u.Record(ctx, userID, text, category, label)
	return err
}

// Record is RecordCorrection returning the updated pattern.
func (u *Updater) Record(ctx context.Context, userID, text, category, label string) (*model.LearnedPattern, error) {
	userID = strings.TrimSpace(userID)
	category = strings.TrimSpace(category)
	label = strings.TrimSpace(label)
	pattern := normalize.Normalize(text)

	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: user id is required", common.ErrInvalidInput)
	case pattern == "":
		return nil, fmt.Errorf("%w: correction text %q has no matchable content", common.ErrInvalidInput, text)
	case category == "":
		return nil, fmt.Errorf("%w: corrected category is required", common.ErrInvalidInput)
	case model.IsUncategorised(category):
		return nil, fmt.Errorf("%w: cannot learn the %q category", common.ErrInvalidInput, model.UncategorisedCategory)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := u.locks.lock(userID + "\x00" + pattern)
	defer unlock()

	learned, err := u.store.UpsertLearnedPattern(ctx, userID, pattern, category, label)
	if err != nil {
		return nil, fmt.Errorf("failed to record correction: %w", err)
	}

	common.Logger(ctx).Debug("Recorded correction",
		slog.String("user_id", userID),
		slog.String("pattern", pattern),
		slog.String("category", category),
		slog.Int("frequency", learned.Frequency))

	return learned, nil
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	entries map[string]*keyedEntry
	mu      sync.Mutex
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
