//go:build integration

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())
}

// startWithDB runs a server against dsn until the returned stop is called.
func startWithDB(t *testing.T, dsn string) (api *httptest.Server, woo *fakeWoo, stop func()) {
	t.Helper()
	woo = &fakeWoo{}
	upstream := httptest.NewServer(woo)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(upstream.URL)
	cfg.DatabaseURL = dsn

	s, err := NewServer(ctx, zap.NewNop(), tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), cfg)
	require.NoError(t, err)

	var g errgroup.Group
	s.Start(ctx, &g)
	api = httptest.NewServer(s.Handler())

	return api, woo, func() {
		api.Close()
		cancel()
		_ = g.Wait()
		s.Close()
		upstream.Close()
	}
}

func TestServer_JournalSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := startPostgres(t)

	api, woo, stop := startWithDB(t, dsn)
	resp, body := postOrder(t, api.URL, "restart-key")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := body["order"].(map[string]any)["id"]
	require.Equal(t, int32(1), woo.orders.Load())

	readyz, err := http.Get(api.URL + "/readyz")
	require.NoError(t, err)
	var probe struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(readyz.Body).Decode(&probe))
	_ = readyz.Body.Close()
	assert.Equal(t, http.StatusOK, readyz.StatusCode)
	assert.Equal(t, "ok", probe.Status)
	stop()

	api, woo, stop = startWithDB(t, dsn)
	defer stop()

	_, body = postOrder(t, api.URL, "restart-key")
	assert.Equal(t, first, body["order"].(map[string]any)["id"])
	assert.Equal(t, int32(0), woo.orders.Load())
}
