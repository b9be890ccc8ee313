// Package cli implements shopctl, a terminal storefront: a persisted cart
// and login shared by every shopctl process on the same state, product
// browsing and checkout against the storefront API.
package cli

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage"
	"github.com/xenking/storefront/internal/storage/filekv"
	"github.com/xenking/storefront/internal/storage/rediskv"
	"github.com/xenking/storefront/internal/storefront"
)

// env is the state shared by all commands of one invocation.
type env struct {
	cfg *Config
	lg  *zap.Logger

	kv      storage.KV
	closeKV func() error
	api     *storefront.Client
	cart    *cart.Store
	auth    *auth.Store
}

// NewRootCommand builds the shopctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}
	var (
		apiURL   string
		stateDir string
		backend  string
		debug    bool
	)

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Terminal storefront client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("api") {
				cfg.API = apiURL
			}
			if flags.Changed("state-dir") {
				cfg.StateDir = stateDir
			}
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("debug") {
				cfg.Debug = debug
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			if err := e.open(cmd.Context(), cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			cmd.SetContext(zctx.Base(cmd.Context(), e.lg))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&apiURL, "api", "", "storefront API base URL")
	pf.StringVar(&stateDir, "state-dir", "", "directory for the file backend")
	pf.StringVar(&backend, "backend", "", "state backend: file or redis")
	pf.BoolVar(&debug, "debug", false, "log debug output to stderr")

	root.AddCommand(
		newCartCommand(e),
		newLoginCommand(e),
		newRegisterCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newProductsCommand(e),
		newAreasCommand(e),
		newQuoteCommand(e),
		newCheckoutCommand(e),
		newWatchCommand(e),
	)
	return root
}

// Execute runs shopctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (e *env) open(ctx context.Context, cfg *Config, stderr io.Writer) error {
	e.cfg = cfg

	level := zapcore.WarnLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	e.lg = zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(stderr),
		level,
	))

	switch cfg.Backend {
	case BackendRedis:
		kv, err := rediskv.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Prefix)
		if err != nil {
			return err
		}
		e.kv, e.closeKV = kv, kv.Close
	default:
		kv, err := filekv.New(cfg.StateDir, e.lg.Named("filekv"))
		if err != nil {
			return err
		}
		e.kv, e.closeKV = kv, func() error { return nil }
	}

	api, err := storefront.New(cfg.API, cfg.Timeout, storefront.WithLogger(e.lg.Named("api")))
	if err != nil {
		return errors.Wrap(err, "create api client")
	}
	e.api = api

	e.cart = cart.NewStore(e.kv, cart.WithLogger(e.lg.Named("cart")))
	e.auth = auth.NewStore(e.kv, api, auth.WithLogger(e.lg.Named("auth")))
	e.cart.Init(ctx)
	e.auth.Init(ctx)
	return nil
}

func (e *env) close() error {
	if e.closeKV == nil {
		return nil
	}
	_ = e.lg.Sync()
	return e.closeKV()
}
