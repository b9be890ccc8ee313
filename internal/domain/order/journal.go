package order

import (
	"context"
	"sync"
)

// MemoryJournal is a process-local Journal used when no database is
// configured. Entries are lost on restart.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryJournal creates an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]Entry)}
}

func (j *MemoryJournal) Lookup(_ context.Context, key string) (*Created, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	e, ok := j.entries[key]
	if !ok {
		return nil, false, nil
	}
	c := e.Created
	return &c, true, nil
}

// Record stores e unless its key is already present; the first order wins.
func (j *MemoryJournal) Record(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.entries[e.IdempotencyKey]; !ok {
		j.entries[e.IdempotencyKey] = e
	}
	return nil
}
