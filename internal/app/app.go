// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/woo"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Server is the wired API: upstream client, order journal, health checks
// and the HTTP handler.
type Server struct {
	cfg     *Config
	lg      *zap.Logger
	health  *health.Health
	pool    *pgxpool.Pool
	handler http.Handler

	apiLimiter   *httpmiddleware.Limiter
	loginLimiter *httpmiddleware.Limiter
}

// NewServer creates all dependencies. It connects to the journal database
// and runs migrations when one is configured.
func NewServer(ctx context.Context, lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) (_ *Server, rerr error) {
	s := &Server{
		cfg:    cfg,
		lg:     lg,
		health: health.New(lg.Named("health")),
	}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()

	wc, err := woo.New(woo.Config{
		BaseURL:        cfg.Woo.URL,
		ConsumerKey:    cfg.Woo.ConsumerKey,
		ConsumerSecret: cfg.Woo.ConsumerSecret,
		Timeout:        cfg.Woo.Timeout,
		TracerProvider: tp,
		Logger:         lg.Named("woo"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create woocommerce client")
	}

	journal, err := s.openJournal(ctx)
	if err != nil {
		return nil, err
	}

	s.health.Add(health.Check{
		Name:             "woocommerce",
		Kind:             health.Readiness,
		Timeout:          5 * time.Second,
		FailureThreshold: cfg.Health.UpstreamChecks,
		Func:             health.PingCheck(wc),
	})
	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))

	orders, err := order.NewService(order.ServiceConfig{
		TaxRateID:     cfg.Order.TaxRateID,
		MinimumOrder:  cfg.Order.Minimum(),
		MeterProvider: mp,
	}, wc, journal)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	s.apiLimiter = httpmiddleware.NewLimiter(httpmiddleware.LimiterConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	s.loginLimiter = httpmiddleware.NewLimiter(httpmiddleware.LimiterConfig{
		Max:    cfg.RateLimit.LoginMax,
		Window: cfg.RateLimit.LoginWindow,
	})

	h := handler.NewHandler(
		handler.HandlerConfig{LoginLimiter: s.loginLimiter},
		orders,
		wc,
		wc.Catalog(),
		wc,
	)

	// Route-aware middleware runs inside chi so the pattern is known.
	router := chi.NewRouter()
	router.Use(httpmiddleware.LogRequests(), httpmiddleware.Labeler())
	router.Get("/livez", s.health.LiveEndpoint)
	router.Get("/readyz", s.health.ReadyEndpoint)
	router.Group(func(r chi.Router) {
		r.Use(s.apiLimiter.Middleware(nil))
		h.Routes(r)
	})

	s.handler = httpmiddleware.Wrap(router,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument("storefront-api", tp, mp),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:     cfg.CORS.Origins,
			Credentials: cfg.CORS.AllowCredentials,
			Expose:      []string{httpmiddleware.RequestIDHeader, "Retry-After"},
			MaxAge:      86400,
		}),
	)
	return s, nil
}

// openJournal picks the PostgreSQL journal when a database is configured and
// the in-memory one otherwise.
func (s *Server) openJournal(ctx context.Context) (order.Journal, error) {
	if s.cfg.DatabaseURL == "" {
		s.lg.Warn("No database configured, idempotency journal is in memory and lost on restart")
		return order.NewMemoryJournal(), nil
	}

	pool, err := postgres.NewPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	s.pool = pool

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}

	journal := postgres.NewOrderJournal(pool)
	s.health.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(journal))
	return journal, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Health returns the health checker.
func (s *Server) Health() *health.Health { return s.health }

// Start runs the health checks and limiter sweepers until ctx is done and
// marks the server ready.
func (s *Server) Start(ctx context.Context, g *errgroup.Group) {
	s.health.Start(ctx, s.cfg.Health.Interval)
	g.Go(func() error {
		s.apiLimiter.RunSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		s.loginLimiter.RunSweeper(ctx)
		return nil
	})
	s.health.SetReady(true)
}

// Close releases the database pool and stops health checks.
func (s *Server) Close() {
	s.health.Stop()
	if s.pool != nil {
		s.pool.Close()
	}
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("woo_url", cfg.Woo.URL),
		zap.Bool("journal_db", cfg.DatabaseURL != ""),
	)

	s, err := NewServer(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Woo.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	s.Start(gctx, g)

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	// Graceful shutdown: flip readiness, let load balancers notice, drain.
	g.Go(func() error {
		<-gctx.Done()
		s.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}
