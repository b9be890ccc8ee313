// Package storage defines the durable key-value port used by the client-side
// state stores. Values are opaque strings that are always overwritten
// wholesale; there is no locking between writers, so the last write wins.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrClosed is returned by backends that have been shut down.
var ErrClosed = errors.New("storage closed")

// KV is a string-valued, origin-scoped key-value store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Notifier reports keys written by other writers sharing the same storage.
//
// The returned channel is closed when ctx is done. Backends may deliver a key
// more than once or deliver keys written by the receiver itself; consumers
// must compare values before acting.
type Notifier interface {
	Changes(ctx context.Context) (<-chan string, error)
}
