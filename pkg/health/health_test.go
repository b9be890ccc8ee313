package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock implementations ---

type mockPinger struct {
	err atomic.Pointer[error]
}

func (m *mockPinger) Ping(context.Context) error {
	if p := m.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (m *mockPinger) fail(err error) { m.err.Store(&err) }
func (m *mockPinger) heal()          { m.err.Store(nil) }

// --- Helpers ---

func serve(t *testing.T, fn http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w.Code, body
}

func runN(h *Health, name string, n int) {
	for _, s := range h.checks {
		if s.Name == name {
			for range n {
				s.run(context.Background(), zap.NewNop())
			}
		}
	}
}

// --- Tests ---

func TestLiveEndpoint_HealthyByDefault(t *testing.T) {
	h := New(nil)
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))

	code, body := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint_FailureThreshold(t *testing.T) {
	upstream := &mockPinger{}
	upstream.fail(errors.New("connection refused"))

	h := New(nil)
	h.SetReady(true)
	h.AddReadinessCheck("woocommerce", time.Second, PingCheck(upstream))

	runN(h, "woocommerce", 2)
	code, _ := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code, "two failures stay below the threshold")

	runN(h, "woocommerce", 1)
	code, body := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["woocommerce"])
	assert.False(t, h.IsReady())

	upstream.heal()
	runN(h, "woocommerce", 1)
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint_NotMarkedReady(t *testing.T) {
	h := New(nil)

	code, body := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, _ = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth_KindsAreSeparate(t *testing.T) {
	h := New(nil)
	h.SetReady(true)
	h.Add(Check{Name: "journal", Kind: Readiness, FailureThreshold: 1, Func: func(context.Context) error {
		return errors.New("db down")
	}})
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))

	runN(h, "journal", 1)

	code, _ := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	code, _ = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	assert.Equal(t, []string{"journal"}, h.Names(Readiness))
	assert.Equal(t, []string{"goroutines"}, h.Names(Liveness))
}

func TestHealth_SuccessThreshold(t *testing.T) {
	p := &mockPinger{}
	p.fail(errors.New("down"))

	h := New(nil)
	h.SetReady(true)
	h.Add(Check{Name: "redis", Kind: Readiness, FailureThreshold: 1, SuccessThreshold: 2, Func: PingCheck(p)})

	runN(h, "redis", 1)
	require.False(t, h.IsReady())

	p.heal()
	runN(h, "redis", 1)
	assert.False(t, h.IsReady())
	runN(h, "redis", 1)
	assert.True(t, h.IsReady())
}

func TestHealth_StartRunsChecks(t *testing.T) {
	var calls atomic.Int32
	h := New(nil)
	h.AddReadinessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestHealth_CheckTimeout(t *testing.T) {
	h := New(nil)
	h.SetReady(true)
	h.Add(Check{
		Name:             "slow",
		Kind:             Readiness,
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
		Func: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	runN(h, "slow", 1)
	_, body := serve(t, h.ReadyEndpoint)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["slow"])
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
