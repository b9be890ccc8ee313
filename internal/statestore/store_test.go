package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/storage/memory"
)

type counter struct {
	N int `json:"n"`
}

func newCounter() counter { return counter{} }

// --- Mock implementations ---

type failingKV struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, f.getErr
}

func (f *failingKV) Set(context.Context, string, string) error {
	f.sets++
	return f.setErr
}

func (f *failingKV) Remove(context.Context, string) error { return nil }

type recorder struct {
	mu   sync.Mutex
	seen []int
}

func (r *recorder) record(c counter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, c.N)
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}

func increment(c counter) (counter, bool) {
	c.N++
	return c, true
}

// --- Tests ---

func TestStore_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tab := memory.NewBackend().Tab()
	require.NoError(t, tab.Set(ctx, "counter", `{"n":3}`))

	s := New(tab, "counter", newCounter)
	rec := &recorder{}
	s.Subscribe(rec.record)

	s.Init(ctx)
	s.Init(ctx)

	assert.True(t, s.Ready())
	assert.Equal(t, 3, s.Get().N)
	// Once on subscribe, once on the first Init only.
	assert.Equal(t, []int{0, 3}, rec.values())
}

func TestStore_CorruptValueFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	tab := memory.NewBackend().Tab()
	require.NoError(t, tab.Set(ctx, "counter", `{"n":`))

	s := New(tab, "counter", newCounter)
	s.Init(ctx)

	assert.True(t, s.Ready())
	assert.Equal(t, 0, s.Get().N)
}

func TestStore_LoadErrorFallsBackToEmpty(t *testing.T) {
	s := New(&failingKV{getErr: errors.New("disabled")}, "counter", newCounter)
	s.Init(context.Background())

	assert.True(t, s.Ready())
	assert.Equal(t, 0, s.Get().N)
}

func TestStore_NormalizeRejects(t *testing.T) {
	ctx := context.Background()
	tab := memory.NewBackend().Tab()
	require.NoError(t, tab.Set(ctx, "counter", `{"n":-1}`))

	s := New(tab, "counter", newCounter, WithNormalize(func(c counter) (counter, bool) {
		return c, c.N >= 0
	}))
	s.Init(ctx)

	assert.Equal(t, 0, s.Get().N)
}

func TestStore_UpdatePersistsThenNotifies(t *testing.T) {
	ctx := context.Background()
	tab := memory.NewBackend().Tab()
	s := New(tab, "counter", newCounter)

	var persisted []string
	s.Subscribe(func(c counter) {
		v, _, _ := tab.Get(ctx, "counter")
		persisted = append(persisted, v)
	})

	assert.True(t, s.Update(ctx, increment))
	assert.True(t, s.Update(ctx, increment))

	v, ok, err := tab.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"n":2}`, v)
	// subscribe, init, two updates; each notification already sees the write.
	require.Len(t, persisted, 4)
	assert.JSONEq(t, `{"n":1}`, persisted[2])
	assert.JSONEq(t, `{"n":2}`, persisted[3])
}

func TestStore_UpdateNoopSkipsPersistAndNotify(t *testing.T) {
	kv := &failingKV{}
	s := New(kv, "counter", newCounter)
	s.Init(context.Background())

	rec := &recorder{}
	s.Subscribe(rec.record)

	changed := s.Update(context.Background(), func(c counter) (counter, bool) { return c, false })

	assert.False(t, changed)
	assert.Equal(t, 0, kv.sets)
	assert.Equal(t, []int{0}, rec.values())
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	kv := &failingKV{setErr: errors.New("quota exceeded")}
	s := New(kv, "counter", newCounter)

	rec := &recorder{}
	s.Subscribe(rec.record)

	s.Update(context.Background(), increment)

	assert.Equal(t, 1, s.Get().N)
	assert.Equal(t, 1, kv.sets)
	assert.Equal(t, []int{0, 0, 1}, rec.values())
}

func TestStore_SubscribersInRegistrationOrder(t *testing.T) {
	s := New(memory.NewBackend().Tab(), "counter", newCounter)
	s.Init(context.Background())

	var order []string
	s.Subscribe(func(counter) { order = append(order, "a") })
	s.Subscribe(func(counter) { order = append(order, "b") })
	order = nil

	s.Update(context.Background(), increment)

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(memory.NewBackend().Tab(), "counter", newCounter)
	s.Init(context.Background())

	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)
	unsubscribe()
	unsubscribe()

	s.Update(context.Background(), increment)

	assert.Equal(t, []int{0}, rec.values())
}

func TestStore_ReloadPicksUpOtherWriter(t *testing.T) {
	ctx := context.Background()
	b := memory.NewBackend()
	first := New(b.Tab(), "counter", newCounter)
	second := New(b.Tab(), "counter", newCounter)
	first.Init(ctx)
	second.Init(ctx)

	second.Update(ctx, increment)

	assert.True(t, first.Reload(ctx))
	assert.Equal(t, 1, first.Get().N)
	assert.False(t, first.Reload(ctx), "unchanged storage must not notify")
}

func TestStore_WatchSyncsAcrossTabs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := memory.NewBackend()
	first := New(b.Tab(), "counter", newCounter)
	second := New(b.Tab(), "counter", newCounter)
	first.Init(ctx)
	second.Init(ctx)

	got := make(chan int, 64)
	first.Subscribe(func(c counter) { got <- c.N })
	<-got

	done := make(chan error, 1)
	go func() { done <- first.Watch(ctx) }()

	// Give the watcher time to subscribe before writing.
	require.Eventually(t, func() bool {
		second.Update(ctx, increment)
		select {
		case n := <-got:
			return n > 0
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestStore_WatchUnsupported(t *testing.T) {
	s := New(&failingKV{}, "counter", newCounter)
	require.ErrorIs(t, s.Watch(context.Background()), ErrWatchUnsupported)
}
