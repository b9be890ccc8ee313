package order

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
)

// --- Mock implementations ---

type mockCreator struct {
	mu      sync.Mutex
	last    *Request
	calls   atomic.Int32
	nextID  int64
	err     error
	release chan struct{}
}

func (m *mockCreator) CreateOrder(_ context.Context, req *Request) (*Created, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	return &Created{ID: m.nextID, Number: "A-1", Status: "pending", Total: decimal.NewFromInt(158)}, nil
}

type failingJournal struct {
	lookupErr error
	recordErr error
}

func (f *failingJournal) Lookup(context.Context, string) (*Created, bool, error) {
	return nil, false, f.lookupErr
}

func (f *failingJournal) Record(context.Context, Entry) error { return f.recordErr }

// --- Helpers ---

func newTestService(t *testing.T, creator Creator, journal Journal) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{}, creator, journal)
	require.NoError(t, err)
	return svc
}

func validRequest() CreateRequest {
	return CreateRequest{
		Cart:        cart.Lines{testLine("11", "75", 2)},
		Form:        testForm(),
		ShippingFee: decimal.Zero,
		Tax:         decimal.NewFromInt(8),
	}
}

// --- Tests ---

func TestCreate_ValidationError(t *testing.T) {
	creator := &mockCreator{}
	svc := newTestService(t, creator, NewMemoryJournal())

	req := validRequest()
	req.Cart = nil
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, creator.calls.Load())
}

func TestCreate_InvalidProductID(t *testing.T) {
	creator := &mockCreator{}
	svc := newTestService(t, creator, NewMemoryJournal())

	req := validRequest()
	req.Cart = cart.Lines{testLine("sku-9", "100", 1)}
	_, err := svc.Create(context.Background(), req)

	var idErr *InvalidProductIDError
	require.ErrorAs(t, err, &idErr)
	assert.Zero(t, creator.calls.Load())
}

func TestCreate_ForwardsAssembledPayload(t *testing.T) {
	creator := &mockCreator{}
	svc, err := NewService(ServiceConfig{TaxRateID: 7}, creator, NewMemoryJournal())
	require.NoError(t, err)

	req := validRequest()
	req.CustomerID = 42
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	require.NotNil(t, creator.last)
	assert.Equal(t, int64(42), creator.last.CustomerID)
	assert.Equal(t, []LineItem{{ProductID: 11, Quantity: 2}}, creator.last.LineItems)
	assert.Equal(t, []TaxLine{{RateID: 7, TaxTotal: "8.00"}}, creator.last.TaxLines)
}

func TestCreate_UsesClientAmountsAsSent(t *testing.T) {
	creator := &mockCreator{}
	svc := newTestService(t, creator, NewMemoryJournal())

	req := validRequest()
	req.ShippingFee = decimal.NewFromInt(99)
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "99.00", creator.last.ShippingLines[0].Total)
}

func TestCreate_UpstreamError(t *testing.T) {
	upstream := errors.New("woocommerce unavailable")
	svc := newTestService(t, &mockCreator{err: upstream}, NewMemoryJournal())

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, upstream)
}

func TestCreate_IdempotencyKeyReplaysOrder(t *testing.T) {
	ctx := context.Background()
	creator := &mockCreator{}
	svc := newTestService(t, creator, NewMemoryJournal())

	req := validRequest()
	req.IdempotencyKey = "k-1"

	first, err := svc.Create(ctx, req)
	require.NoError(t, err)
	second, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), creator.calls.Load())

	req.IdempotencyKey = "k-2"
	third, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreate_ConcurrentSameKeyCreatesOnce(t *testing.T) {
	ctx := context.Background()
	creator := &mockCreator{release: make(chan struct{})}
	svc := newTestService(t, creator, NewMemoryJournal())

	req := validRequest()
	req.IdempotencyKey = "double-click"

	const n = 5
	var wg sync.WaitGroup
	ids := make([]int64, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.Create(ctx, req)
			errs[i] = err
			if c != nil {
				ids[i] = c.ID
			}
		}()
	}

	require.Eventually(t, func() bool { return creator.calls.Load() >= 1 }, time.Second, time.Millisecond)
	close(creator.release)
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(1), ids[i])
	}
	assert.Equal(t, int32(1), creator.calls.Load())
}

func TestCreate_JournalLookupError(t *testing.T) {
	creator := &mockCreator{}
	svc := newTestService(t, creator, &failingJournal{lookupErr: errors.New("db down")})

	req := validRequest()
	req.IdempotencyKey = "k"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Zero(t, creator.calls.Load())
}

func TestCreate_JournalRecordErrorStillReturnsOrder(t *testing.T) {
	svc := newTestService(t, &mockCreator{}, &failingJournal{recordErr: errors.New("db down")})

	req := validRequest()
	req.IdempotencyKey = "k"
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}

func TestMemoryJournal_FirstRecordWins(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal()

	_, ok, err := j.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, j.Record(ctx, Entry{IdempotencyKey: "k", Created: Created{ID: 1}}))
	require.NoError(t, j.Record(ctx, Entry{IdempotencyKey: "k", Created: Created{ID: 2}}))

	got, ok, err := j.Lookup(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
}
