package cart

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/statestore"
	"github.com/xenking/storefront/internal/storage"
)

// DefaultKey is the storage key holding the serialized cart.
const DefaultKey = "cart"

type options struct {
	key string
	lg  *zap.Logger
}

// Option configures a Store.
type Option func(*options)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithLogger sets the logger for swallowed storage failures.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// Store is the client-side cart. Every mutation is persisted and broadcast to
// subscribers; mutations never fail from the caller's point of view.
type Store struct {
	state *statestore.Store[Lines]
}

// NewStore creates a cart store backed by kv.
func NewStore(kv storage.KV, opts ...Option) *Store {
	o := options{key: DefaultKey}
	for _, fn := range opts {
		fn(&o)
	}
	return &Store{
		state: statestore.New(kv, o.key, func() Lines { return Lines{} },
			statestore.WithLogger[Lines](o.lg),
			statestore.WithClone(Lines.Clone),
			statestore.WithNormalize(normalize),
		),
	}
}

// Init loads the persisted cart once.
func (s *Store) Init(ctx context.Context) { s.state.Init(ctx) }

// Subscribe registers fn, calls it with the current cart and returns the
// unsubscribe function.
func (s *Store) Subscribe(fn func(Lines)) func() { return s.state.Subscribe(fn) }

// Lines returns a copy of the cart.
func (s *Store) Lines() Lines { return s.state.Get() }

// Count returns the total quantity in the cart.
func (s *Store) Count() int { return s.state.Get().Count() }

// Subtotal returns the cart subtotal.
func (s *Store) Subtotal() decimal.Decimal { return s.state.Get().Subtotal() }

// Add increments the quantity of an existing line with the same ID, leaving
// its other fields untouched, or appends item as a new line. A qty below 1 is
// treated as 1.
func (s *Store) Add(ctx context.Context, item Line, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.state.Update(ctx, func(ls Lines) (Lines, bool) {
		if i := ls.Index(item.ID); i >= 0 {
			ls[i].Qty += qty
			return ls, true
		}
		item.Qty = qty
		return append(ls, item), true
	})
}

// Remove drops the line with id. It persists and notifies even when no line
// matches.
func (s *Store) Remove(ctx context.Context, id ProductID) {
	s.state.Update(ctx, func(ls Lines) (Lines, bool) {
		out := ls[:0]
		for _, l := range ls {
			if l.ID != id {
				out = append(out, l)
			}
		}
		return out, true
	})
}

// SetQty sets the quantity of the line with id, clamped to at least 1. It is
// a no-op when no line matches; use Remove to delete a line.
func (s *Store) SetQty(ctx context.Context, id ProductID, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.state.Update(ctx, func(ls Lines) (Lines, bool) {
		i := ls.Index(id)
		if i < 0 {
			return ls, false
		}
		ls[i].Qty = qty
		return ls, true
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.state.Replace(ctx, Lines{})
}

// Reload re-reads storage, notifying subscribers on change.
func (s *Store) Reload(ctx context.Context) bool { return s.state.Reload(ctx) }

// Watch keeps the cart in sync with other writers until ctx is done.
func (s *Store) Watch(ctx context.Context) error { return s.state.Watch(ctx) }
