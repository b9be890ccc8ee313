package product

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
)

// ErrStale is returned by Loader.Load when a newer load superseded it.
var ErrStale = errors.New("product load superseded")

// Loader runs listing loads for one view. Starting a load cancels the one
// in flight, and a result that arrives after a newer load started is
// discarded.
type Loader struct {
	catalog Catalog

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewLoader creates a Loader over c.
func NewLoader(c Catalog) *Loader {
	return &Loader{catalog: c}
}

// Load lists products for q. It returns ErrStale when another Load or Stop
// happened before this one finished.
func (l *Loader) Load(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := l.begin(cancel)

	products, err := l.catalog.List(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return nil, ErrStale
	}
	l.cancel = nil
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Stop cancels the load in flight, if any.
func (l *Loader) Stop() {
	l.begin(nil)
}

func (l *Loader) begin(cancel context.CancelFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	return l.gen
}
