package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Backends for client state.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the shopctl configuration, loadable from SHOPCTL_ environment
// variables and YAML files. Command line flags override it.
type Config struct {
	API      string        `default:"http://localhost:8080" usage:"Storefront API base URL"`
	StateDir string        `usage:"Directory for the file backend (default: user config dir)"`
	Backend  string        `default:"file" usage:"State backend: file or redis"`
	Redis    RedisConfig
	Timeout  time.Duration `default:"20s" usage:"API request timeout"`
	Debug    bool          `default:"false" usage:"Log debug output to stderr"`
}

// RedisConfig selects the shared Redis state.
type RedisConfig struct {
	Addr   string `default:"localhost:6379" usage:"Redis address"`
	Prefix string `default:"shopctl" usage:"Key prefix; clients sharing a prefix share a cart"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	files := []string{"shopctl.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "shopctl", "config.yaml"))
	}

	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOPCTL",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFile, BackendRedis:
	default:
		return errors.Errorf("unknown backend %q: use %s or %s", c.Backend, BackendFile, BackendRedis)
	}
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return errors.Wrap(err, "locate state dir")
		}
		c.StateDir = filepath.Join(dir, "shopctl", "state")
	}
	return nil
}
