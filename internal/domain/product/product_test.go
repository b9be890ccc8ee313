package product

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type call struct {
	q      Query
	ctx    context.Context
	result chan []Product
}

type mockCatalog struct {
	calls chan call
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{calls: make(chan call, 4)}
}

func (m *mockCatalog) List(ctx context.Context, q Query) ([]Product, error) {
	c := call{q: q, ctx: ctx, result: make(chan []Product, 1)}
	m.calls <- c
	select {
	case ps := <-c.result:
		return ps, nil
	case <-ctx.Done():
		// Simulate a response that arrives regardless of cancellation.
		return <-c.result, nil
	}
}

func (m *mockCatalog) Get(context.Context, int64) (*Product, error) {
	return nil, ErrNotFound
}

// --- Tests ---

func TestLoader_DiscardsStaleResult(t *testing.T) {
	ctx := context.Background()
	catalog := newMockCatalog()
	loader := NewLoader(catalog)

	type outcome struct {
		products []Product
		err      error
	}
	first := make(chan outcome, 1)
	go func() {
		ps, err := loader.Load(ctx, Query{Search: "old"})
		first <- outcome{ps, err}
	}()
	c1 := <-catalog.calls

	second := make(chan outcome, 1)
	go func() {
		ps, err := loader.Load(ctx, Query{Search: "new"})
		second <- outcome{ps, err}
	}()
	c2 := <-catalog.calls

	require.Eventually(t, func() bool { return c1.ctx.Err() != nil }, time.Second, time.Millisecond)
	assert.NoError(t, c2.ctx.Err())

	c2.result <- []Product{{ID: 2, Name: "new"}}
	got := <-second
	require.NoError(t, got.err)
	require.Len(t, got.products, 1)
	assert.Equal(t, "new", got.products[0].Name)

	c1.result <- []Product{{ID: 1, Name: "old"}}
	stale := <-first
	require.ErrorIs(t, stale.err, ErrStale)
	assert.Nil(t, stale.products)
}

func TestLoader_StopCancelsInFlight(t *testing.T) {
	catalog := newMockCatalog()
	loader := NewLoader(catalog)

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background(), Query{})
		done <- err
	}()
	c := <-catalog.calls

	loader.Stop()
	require.Eventually(t, func() bool { return c.ctx.Err() != nil }, time.Second, time.Millisecond)
	c.result <- nil
	require.ErrorIs(t, <-done, ErrStale)
}

type errCatalog struct{ err error }

func (e errCatalog) List(context.Context, Query) ([]Product, error) { return nil, e.err }
func (e errCatalog) Get(context.Context, int64) (*Product, error)  { return nil, e.err }

func TestLoader_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLoader(errCatalog{err: boom}).Load(context.Background(), Query{})
	require.ErrorIs(t, err, boom)
}

func TestStorageTags(t *testing.T) {
	attrs := []Attribute{
		{Name: "Color", Taxonomy: "pa_color", Terms: []string{"Red"}},
		{Name: "保存方式", Terms: []string{"冷凍", " 冷藏 "}},
		{Name: "Storage Method", Slug: "storage-method", Terms: []string{"Frozen", "冷凍", ""}},
		{Name: "Other", Taxonomy: "PA_STORAGE", Terms: []string{"Room temperature"}},
	}

	assert.Equal(t, []string{"冷凍", "冷藏", "Frozen", "Room temperature"}, StorageTags(attrs))
	assert.Empty(t, StorageTags(nil))
}

func TestProduct_CartLine(t *testing.T) {
	p := Product{
		ID:    42,
		Name:  "Dumplings",
		Price: decimal.RequireFromString("12.50"),
		Images: []Image{
			{Src: "https://cdn.example.com/a.jpg"},
			{Src: "https://cdn.example.com/b.jpg"},
		},
	}
	l := p.CartLine()
	assert.Equal(t, "42", string(l.ID))
	assert.Equal(t, "Dumplings", l.Name)
	assert.Equal(t, "https://cdn.example.com/a.jpg", l.Image)
	assert.True(t, l.Price.Equal(p.Price))
	assert.Equal(t, 1, l.Qty)
}
