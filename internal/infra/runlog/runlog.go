// Package runlog records the outcome of generation runs: which families were
// requested, which succeeded, and why the rest failed or were skipped.
package runlog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Family outcome states.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// FamilyRecord is the per-family outcome within one run.
type FamilyRecord struct {
	Family   string        `json:"family"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Rows     int           `json:"rows"`
	Tables   int           `json:"tables"`
	Duration time.Duration `json:"duration_ns"`
}

// Run is the durable record of one orchestrated generation run.
type Run struct {
	ID         string         `json:"id"`
	Mode       string         `json:"mode"`
	Seed       int64          `json:"seed"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Families   []FamilyRecord `json:"families"`
}

// Store persists run records.
type Store interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, bool, error)
	List(ctx context.Context) ([]Run, error)
	Close() error
}

// MemoryStore keeps run records in process memory. Used in tests and when no
// run log backend is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore returns an empty in-memory run log.
func NewMemoryStore() *MemoryStore { return &MemoryStore{runs: make(map[string]Run)} }

func (m *MemoryStore) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Run, bool, error) {
	m.mu.RLock()
	run, ok := m.runs[id]
	m.mu.RUnlock()
	return run, ok, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
