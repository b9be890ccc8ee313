package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/statestore"
	"github.com/xenking/storefront/internal/storage"
)

// DefaultKey is the storage key holding the serialized session.
const DefaultKey = "auth"

type options struct {
	key string
	lg  *zap.Logger
	now func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithClock overrides the clock used to expire persisted sessions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Store is the client-side session store.
type Store struct {
	state *statestore.Store[Session]
	auth  Authenticator
	lg    *zap.Logger
}

// NewStore creates a session store backed by kv that delegates login and
// registration to a.
func NewStore(kv storage.KV, a Authenticator, opts ...Option) *Store {
	o := options{key: DefaultKey, lg: zap.NewNop(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}

	normalize := func(s Session) (Session, bool) {
		if s.Token == "" && s.User == nil {
			return Session{}, true
		}
		if s.Token == "" || s.User == nil {
			return Session{}, false
		}
		if exp, ok := TokenExpiry(s.Token); ok && !o.now().Before(exp) {
			o.lg.Info("Persisted session expired", zap.Time("exp", exp))
			return Session{}, false
		}
		return s, true
	}

	return &Store{
		state: statestore.New(kv, o.key, func() Session { return Session{} },
			statestore.WithLogger[Session](o.lg),
			statestore.WithClone(Session.Clone),
			statestore.WithNormalize(normalize),
		),
		auth: a,
		lg:   o.lg,
	}
}

// Init loads the persisted session once and marks the store ready.
func (s *Store) Init(ctx context.Context) { s.state.Init(ctx) }

// Get returns the current session.
func (s *Store) Get() Session {
	return s.decorate(s.state.Get())
}

// Subscribe registers fn, calls it with the current session and returns the
// unsubscribe function.
func (s *Store) Subscribe(fn func(Session)) func() {
	return s.state.Subscribe(func(sess Session) {
		fn(s.decorate(sess))
	})
}

func (s *Store) decorate(sess Session) Session {
	sess.Ready = s.state.Ready()
	if exp, ok := TokenExpiry(sess.Token); ok {
		sess.ExpiresAt = exp
	}
	return sess
}

// Login authenticates and, on success only, replaces the session.
func (s *Store) Login(ctx context.Context, c Credentials) (Session, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return s.Get(), ErrMissingCredentials
	}

	g, err := s.auth.Login(ctx, c)
	if err != nil {
		return s.Get(), err
	}
	return s.accept(ctx, g)
}

// Register creates an account and, on success only, replaces the session.
func (s *Store) Register(ctx context.Context, r Registration) (Session, error) {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return s.Get(), ErrMissingCredentials
	}

	g, err := s.auth.Register(ctx, r)
	if err != nil {
		return s.Get(), err
	}
	return s.accept(ctx, g)
}

// Logout clears token and user together.
func (s *Store) Logout(ctx context.Context) {
	s.state.Replace(ctx, Session{})
}

// Reload re-reads storage, notifying subscribers on change.
func (s *Store) Reload(ctx context.Context) bool { return s.state.Reload(ctx) }

// Watch keeps the session in sync with other writers until ctx is done.
func (s *Store) Watch(ctx context.Context) error { return s.state.Watch(ctx) }

func (s *Store) accept(ctx context.Context, g *Grant) (Session, error) {
	if g == nil || g.Token == "" {
		return s.Get(), ErrIncompleteGrant
	}
	u := g.User
	s.state.Replace(ctx, Session{Token: g.Token, User: &u})
	s.lg.Info("Logged in", zap.String("email", u.Email), zap.Int64("customer_id", u.CustomerID))
	return s.Get(), nil
}
