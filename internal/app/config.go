package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (RESTO_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (RESTO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (RESTO_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Database     DatabaseConfig
	Orders       OrdersConfig
	Health       HealthConfig
	Graceful     GracefulConfig
}

// DatabaseConfig controls the PostgreSQL connection pool.
type DatabaseConfig struct {
	MaxConns        int32         `default:"16" usage:"Maximum pool connections"`
	MinConns        int32         `default:"2" usage:"Minimum idle pool connections"`
	MaxConnLifetime time.Duration `default:"1h" usage:"Maximum connection lifetime"`
	MaxConnIdleTime time.Duration `default:"10m" usage:"Maximum connection idle time"`
}

// OrdersConfig controls order listings.
type OrdersConfig struct {
	DefaultPageSize int `default:"50" usage:"Page size when a listing sets no limit"`
	MaxPageSize     int `default:"200" usage:"Upper bound of a listing limit"`
}

// HealthConfig controls the health checks.
type HealthConfig struct {
	Interval       time.Duration `default:"10s" usage:"Health check interval"`
	MaxGoroutines  int           `default:"10000" usage:"Liveness goroutine threshold"`
	MaxGCPause     time.Duration `default:"500ms" usage:"Liveness GC pause threshold" flag:"max-gc-pause"`
	PoolSaturation float64       `default:"0.9" usage:"Readiness ratio of acquired to max pool connections"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags, YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/resto/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "RESTO"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	loader := aconfig.LoaderFor(&cfg, base)
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set RESTO_DATABASE_URL or DATABASE_URL")
	case c.APIKeyPepper == "":
		return errors.New("API key pepper is required: set RESTO_API_KEY_PEPPER")
	case c.Orders.DefaultPageSize <= 0 || c.Orders.MaxPageSize < c.Orders.DefaultPageSize:
		return errors.Errorf("invalid page sizes: default %d, max %d",
			c.Orders.DefaultPageSize, c.Orders.MaxPageSize)
	case c.Database.MinConns > c.Database.MaxConns:
		return errors.Errorf("database min conns %d exceeds max conns %d",
			c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's RESTO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
