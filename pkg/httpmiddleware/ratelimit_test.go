package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = addr
	return req
}

// --- Tests ---

func TestLimiter_AllowUntilMax(t *testing.T) {
	clock := newClock()
	l := NewLimiter(LimiterConfig{Max: 3, Window: time.Minute, Now: clock.Now})

	for i := range 3 {
		d := l.Allow("amy@example.com")
		require.True(t, d.Allowed, "attempt %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}
	d := l.Allow("amy@example.com")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	assert.True(t, l.Allow("bob@example.com").Allowed, "keys are independent")
}

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := newClock()
	l := NewLimiter(LimiterConfig{Max: 2, Window: time.Minute, Now: clock.Now})

	require.True(t, l.Allow("k").Allowed)
	require.True(t, l.Allow("k").Allowed)
	require.False(t, l.Allow("k").Allowed)

	// Half into the next window the previous two hits still weigh one.
	clock.Advance(90 * time.Second)
	assert.True(t, l.Allow("k").Allowed)
	assert.False(t, l.Allow("k").Allowed)

	clock.Advance(2 * time.Minute)
	assert.True(t, l.Allow("k").Allowed)
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newClock()
	l := NewLimiter(LimiterConfig{Max: 1, Window: time.Minute, Now: clock.Now})
	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clock.Advance(time.Minute)
	l.Sweep()
	assert.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Minute)
	l.Sweep()
	assert.Equal(t, 0, l.Len())
}

func TestLimiter_Middleware(t *testing.T) {
	clock := newClock()
	l := NewLimiter(LimiterConfig{Max: 2, Window: time.Minute, Now: clock.Now})
	h := l.Middleware(nil)(okHandler())

	for range 2 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, requestFrom("10.0.0.1:9999"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.NotEmpty(t, body.Message)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, requestFrom("10.0.0.2:1111"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.168.1.1:4444", want: "192.168.1.1"},
		{name: "remote without port", remote: "192.168.1.1", want: "192.168.1.1"},
		{
			name:    "forwarded for first hop",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"},
			remote:  "192.168.1.1:4444",
			want:    "203.0.113.50",
		},
		{
			name:    "real ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			remote:  "192.168.1.1:4444",
			want:    "198.51.100.7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom(tt.remote)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
