// Package memory provides an in-process storage backend. A single Backend is
// shared by any number of Tab handles, mirroring how browser tabs of one
// origin share local storage: each tab is notified about writes made by the
// other tabs, never about its own.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/storefront/internal/storage"
)

// Backend holds the shared key space.
type Backend struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[*subscriber]struct{}
}

// NewBackend creates an empty Backend.
func NewBackend() *Backend {
	return &Backend{
		values: make(map[string]string),
		subs:   make(map[*subscriber]struct{}),
	}
}

// Tab opens a new handle on the backend.
func (b *Backend) Tab() *Tab {
	return &Tab{backend: b}
}

// Snapshot returns a copy of every stored value.
func (b *Backend) Snapshot() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

func (b *Backend) write(origin *Tab, key string, value *string) {
	b.mu.Lock()
	if value == nil {
		delete(b.values, key)
	} else {
		b.values[key] = *value
	}
	subs := make([]*subscriber, 0, len(b.subs))
	for s := range b.subs {
		if s.tab != origin {
			subs = append(subs, s)
		}
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.push(key)
	}
}

var (
	_ storage.KV       = (*Tab)(nil)
	_ storage.Notifier = (*Tab)(nil)
)

// Tab is one writer on a shared Backend.
type Tab struct {
	backend *Backend
}

// Get returns the value stored under key.
func (t *Tab) Get(_ context.Context, key string) (string, bool, error) {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()

	v, ok := t.backend.values[key]
	return v, ok, nil
}

// Set overwrites the value stored under key.
func (t *Tab) Set(_ context.Context, key, value string) error {
	t.backend.write(t, key, &value)
	return nil
}

// Remove deletes key.
func (t *Tab) Remove(_ context.Context, key string) error {
	t.backend.write(t, key, nil)
	return nil
}

// Changes streams keys written through other tabs until ctx is done.
func (t *Tab) Changes(ctx context.Context) (<-chan string, error) {
	s := &subscriber{
		tab:     t,
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
		out:     make(chan string),
	}

	t.backend.mu.Lock()
	t.backend.subs[s] = struct{}{}
	t.backend.mu.Unlock()

	go func() {
		defer func() {
			t.backend.mu.Lock()
			delete(t.backend.subs, s)
			t.backend.mu.Unlock()
			close(s.out)
		}()
		s.pump(ctx)
	}()

	return s.out, nil
}

// subscriber coalesces pending keys so a slow consumer never blocks writers.
type subscriber struct {
	tab *Tab

	mu      sync.Mutex
	pending map[string]struct{}
	wake    chan struct{}
	out     chan string
}

func (s *subscriber) push(key string) {
	s.mu.Lock()
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		keys := make([]string, 0, len(s.pending))
		for k := range s.pending {
			keys = append(keys, k)
		}
		clear(s.pending)
		s.mu.Unlock()

		for _, k := range keys {
			select {
			case <-ctx.Done():
				return
			case s.out <- k:
			}
		}
	}
}
