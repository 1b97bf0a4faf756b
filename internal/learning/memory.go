package learning

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/statement-intake/internal/model"
)

type memoryKey struct {
	userID  string
	pattern string
}

// MemoryStore keeps learned patterns in memory. It is safe for concurrent use.
type MemoryStore struct {
	now      func() time.Time
	patterns map[memoryKey]*model.LearnedPattern
	order    []memoryKey
	nextID   int
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		patterns: make(map[memoryKey]*model.LearnedPattern),
		nextID:   1,
	}
}

// UpsertLearnedPattern implements Store.
func (m *MemoryStore) UpsertLearnedPattern(_ context.Context, userID, pattern, category, label string) (*model.LearnedPattern, error) {
	key := memoryKey{userID: userID, pattern: pattern}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.patterns[key]
	now := m.now()
	if !ok {
		p := &model.LearnedPattern{
			ID:                m.nextID,
			UserID:            userID,
			Pattern:           pattern,
			CorrectedCategory: category,
			CorrectedLabel:    label,
			Frequency:         1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		m.nextID++
		m.patterns[key] = p
		m.order = append(m.order, key)
		found := *p
		return &found, nil
	}

	existing.Frequency++
	existing.CorrectedCategory = category
	existing.CorrectedLabel = label
	existing.UpdatedAt = now
	found := *existing
	return &found, nil
}

// LearnedPatterns returns userID's patterns in creation order.
func (m *MemoryStore) LearnedPatterns(_ context.Context, userID string) ([]model.LearnedPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.LearnedPattern
	for _, key := range m.order {
		if key.userID == userID {
			out = append(out, *m.patterns[key])
		}
	}
	return out, nil
}
