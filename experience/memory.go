package experience

import (
	"context"
	"sync"

	"github.com/snow-ghost/strategist/core"
)

// Memory is an in-process ExperienceRepository for tests and demos.
type Memory struct {
	mu      sync.RWMutex
	records []core.WinningPath
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make([]core.WinningPath, 0)}
}

// Save appends the record.
func (m *Memory) Save(_ context.Context, record core.WinningPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// ListByType returns the stored records for one problem type, oldest first.
func (m *Memory) ListByType(_ context.Context, problemType string) ([]core.WinningPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.WinningPath, 0)
	for _, r := range m.records {
		if r.ProblemType == problemType {
			out = append(out, r)
		}
	}
	return out, nil
}

// Recent returns up to limit records, newest insertion first.
func (m *Memory) Recent(_ context.Context, limit int) ([]core.WinningPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]core.WinningPath, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
