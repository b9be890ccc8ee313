package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the API server configuration, loadable from environment
// variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL URL of the order journal; in-memory journal when empty (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Woo         WooConfig
	Order       OrderConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Health      HealthConfig
	Graceful    GracefulConfig
}

// WooConfig points at the WooCommerce site behind the API.
type WooConfig struct {
	URL            string        `usage:"WordPress site root, e.g. https://shop.example.com" flag:"woo-url"`
	ConsumerKey    string        `usage:"WooCommerce REST consumer key" flag:"woo-consumer-key"`
	ConsumerSecret string        `usage:"WooCommerce REST consumer secret" flag:"woo-consumer-secret"`
	Timeout        time.Duration `default:"15s" usage:"Upstream request timeout" flag:"woo-timeout"`
}

// OrderConfig tunes order creation.
type OrderConfig struct {
	MinimumOrder float64 `default:"80" usage:"Minimum cart subtotal" flag:"minimum-order"`
	TaxRateID    int64   `default:"0" usage:"WooCommerce tax rate id; tax is sent as a fee line when 0" flag:"tax-rate-id"`
}

// RateLimitConfig controls the per-client and per-username limiters.
type RateLimitConfig struct {
	Max         int           `default:"100" usage:"Max API requests per client per window"`
	Window      time.Duration `default:"1m"  usage:"API rate limit window"`
	LoginMax    int           `default:"5"   usage:"Max login attempts per username per window" flag:"login-max"`
	LoginWindow time.Duration `default:"15m" usage:"Login attempt window" flag:"login-window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// HealthConfig controls background health checks.
type HealthConfig struct {
	Interval       time.Duration `default:"10s" usage:"Health check interval" flag:"health-interval"`
	MaxGoroutines  int           `default:"10000" usage:"Goroutine count that fails liveness" flag:"max-goroutines"`
	UpstreamChecks int           `default:"3" usage:"Consecutive upstream failures before not ready" flag:"upstream-failures"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Minimum returns the configured minimum as a decimal.
func (c OrderConfig) Minimum() decimal.Decimal {
	return decimal.NewFromFloat(c.MinimumOrder)
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Woo.URL == "" {
		return errors.New("WooCommerce URL is required: set SHOP_WOO_URL")
	}
	if c.Order.MinimumOrder < 0 {
		return errors.Errorf("minimum order %v is negative", c.Order.MinimumOrder)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.LoginMax <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
