// Package statestore implements a persisted, observable value: the shared
// core of the client-side cart and session stores.
//
// A Store holds one value of type T, loads it lazily from a storage.KV, writes
// the whole value back after every mutation and notifies subscribers
// synchronously. Persistence failures never reach callers; the in-memory value
// stays authoritative for the lifetime of the process.
package statestore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/storage"
)

// ErrWatchUnsupported is returned by Watch when the storage backend cannot
// report changes made by other writers.
var ErrWatchUnsupported = errors.New("storage does not report changes")

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithLogger sets the logger used to report swallowed storage failures.
func WithLogger[T any](lg *zap.Logger) Option[T] {
	return func(s *Store[T]) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithClone sets the function used to hand out independent copies of the
// value. Values containing slices, maps or pointers need one.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(s *Store[T]) { s.clone = clone }
}

// WithNormalize sets a hook applied to every value decoded from storage. It
// may repair the value or reject it, in which case the empty value is used.
func WithNormalize[T any](normalize func(T) (T, bool)) Option[T] {
	return func(s *Store[T]) { s.normalize = normalize }
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Store is a persisted observable value.
type Store[T any] struct {
	kv        storage.KV
	key       string
	empty     func() T
	clone     func(T) T
	normalize func(T) (T, bool)
	lg        *zap.Logger

	// writeMu serialises init, mutation, persistence and notification so
	// subscribers observe mutations in the order they were made.
	writeMu sync.Mutex

	mu    sync.RWMutex
	value T
	raw   string
	ready bool

	subsMu sync.Mutex
	subs   []subscription[T]
	nextID int
}

// New creates a Store persisting under key. empty builds the value used when
// nothing valid is stored.
func New[T any](kv storage.KV, key string, empty func() T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		kv:    kv,
		key:   key,
		empty: empty,
		clone: func(v T) T { return v },
		lg:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.value = empty()
	return s
}

// Key returns the storage key.
func (s *Store[T]) Key() string { return s.key }

// Init loads the stored value and notifies subscribers. Only the first call
// reads storage; later calls do nothing.
func (s *Store[T]) Init(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.initLocked(ctx) {
		s.notify()
	}
}

// Ready reports whether the initial load has happened.
func (s *Store[T]) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Get returns a copy of the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.value)
}

// Subscribe registers fn and calls it once with the current value. The
// returned function removes the subscription; calling it again is harmless.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})
	s.subsMu.Unlock()

	fn(s.Get())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Update applies fn to a copy of the current value. When fn reports a change
// the new value is stored, persisted and broadcast; otherwise nothing happens.
// Subscribers must not call Update from inside their callback.
func (s *Store[T]) Update(ctx context.Context, fn func(T) (T, bool)) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.initLocked(ctx) {
		s.notify()
	}

	next, changed := fn(s.Get())
	if !changed {
		return false
	}
	s.commit(ctx, next)
	return true
}

// Replace unconditionally stores v.
func (s *Store[T]) Replace(ctx context.Context, v T) {
	s.Update(ctx, func(T) (T, bool) { return v, true })
}

// Reload re-reads storage and broadcasts the value if it differs from what
// this store last wrote or read. It reports whether anything changed.
func (s *Store[T]) Reload(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.initLocked(ctx) {
		s.notify()
		return true
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.lg.Warn("State reload failed", zap.String("key", s.key), zap.Error(err))
		return false
	}
	if !ok {
		raw = ""
	}

	s.mu.RLock()
	same := raw == s.raw
	s.mu.RUnlock()
	if same {
		return false
	}

	v := s.decode(raw)
	s.mu.Lock()
	s.value = v
	s.raw = raw
	s.mu.Unlock()

	s.notify()
	return true
}

// Watch follows writes made by other writers of the same storage and reloads
// on every change to this store's key. It blocks until ctx is done. There is
// no locking across writers: concurrent writers race and the last one wins.
func (s *Store[T]) Watch(ctx context.Context) error {
	n, ok := s.kv.(storage.Notifier)
	if !ok {
		return ErrWatchUnsupported
	}

	changes, err := n.Changes(ctx)
	if err != nil {
		return errors.Wrap(err, "watch storage")
	}

	for key := range changes {
		if key != s.key {
			continue
		}
		if s.Reload(ctx) {
			s.lg.Debug("State changed by another writer", zap.String("key", s.key))
		}
	}
	return nil
}

// initLocked performs the first load. Caller must hold writeMu.
func (s *Store[T]) initLocked(ctx context.Context) bool {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready {
		return false
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.lg.Warn("State load failed, starting empty", zap.String("key", s.key), zap.Error(err))
		raw, ok = "", false
	}
	if !ok {
		raw = ""
	}

	v := s.decode(raw)
	s.mu.Lock()
	s.value = v
	s.raw = raw
	s.ready = true
	s.mu.Unlock()
	return true
}

// commit stores, persists and broadcasts v. Caller must hold writeMu.
func (s *Store[T]) commit(ctx context.Context, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		s.lg.Warn("State encode failed", zap.String("key", s.key), zap.Error(err))
	}

	s.mu.Lock()
	s.value = v
	if err == nil {
		s.raw = string(data)
	}
	s.mu.Unlock()

	if err == nil {
		if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
			s.lg.Warn("State persist failed, keeping in-memory value",
				zap.String("key", s.key),
				zap.Error(err),
			)
		}
	}

	s.notify()
}

func (s *Store[T]) decode(raw string) T {
	if raw == "" {
		return s.empty()
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.lg.Warn("Stored state is corrupt, starting empty", zap.String("key", s.key), zap.Error(err))
		return s.empty()
	}
	if s.normalize != nil {
		nv, ok := s.normalize(v)
		if !ok {
			return s.empty()
		}
		v = nv
	}
	return v
}

func (s *Store[T]) notify() {
	s.subsMu.Lock()
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(s.Get())
	}
}
