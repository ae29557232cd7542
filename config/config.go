// Package config reads the configuration of timberline from the environment.
//
// The configuration is read once at startup, then passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file loaded when present.
const DefaultEnvFile = ".env.local"

type Config struct {
	// Aggregator source.
	SourceBaseURL     string        `env:"SOURCE_BASE_URL" envDefault:"https://13f.info"`
	ManagerPath       string        `env:"MANAGER_PATH" envDefault:"/manager/0001709323-himalaya-capital-management-llc"`
	ManagerName       string        `env:"MANAGER_NAME" envDefault:"Himalaya Capital"`
	FilingLinkPrefix  string        `env:"FILING_LINK_PREFIX" envDefault:"/13f/"`
	DataTableID       string        `env:"DATA_TABLE_ID" envDefault:"filingAggregated"`
	RowsPath          string        `env:"ROWS_PATH" envDefault:"$.data"`
	UserAgent         string        `env:"USER_AGENT" envDefault:"timberline (+https://github.com/etnz/timberline)"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"2"`
	CacheDir          string        `env:"CACHE_DIR"`

	// Snapshot store.
	StoreBackend   string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir        string `env:"DATA_DIR" envDefault:"data"`
	SnapshotPrefix string `env:"SNAPSHOT_PREFIX" envDefault:"himalaya"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix    string `env:"REDIS_PREFIX" envDefault:"timberline"`

	// Push token registry.
	TokenBackend string `env:"TOKEN_BACKEND" envDefault:"memory"`
	TokenDB      string `env:"TOKEN_DB" envDefault:"tokens.db"`
	AdminAPIKey  string `env:"ADMIN_API_KEY"`

	// Serving API.
	Port       int    `env:"PORT" envDefault:"4000"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	// Notifications.
	PushGatewayURL    string `env:"PUSH_GATEWAY_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
	PushTokensURL     string `env:"PUSH_TOKENS_URL" envDefault:"http://localhost:4000/api/push-tokens"`
	NotificationTitle string `env:"NOTIFICATION_TITLE" envDefault:"New Timberline portfolio update"`
	NotificationBody  string `env:"NOTIFICATION_BODY" envDefault:"Open Timberline to see what changed."`

	// Commentary.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

// Store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Token registry backends.
const (
	TokensMemory = "memory"
	TokensRedis  = "redis"
	TokensSQLite = "sqlite"
)

// Load reads the dotenv files that exist, then parses the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Config{}, fmt.Errorf("cannot load env files: %w", err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the environment only, and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the combinations of fields. All the failures are returned.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.SourceBaseURL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("SOURCE_BASE_URL must be an absolute url, got %q", c.SourceBaseURL))
	}
	if c.ManagerPath == "" {
		errs = append(errs, errors.New("MANAGER_PATH is required"))
	}
	if c.FilingLinkPrefix == "" {
		errs = append(errs, errors.New("FILING_LINK_PREFIX is required"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("REQUESTS_PER_SECOND must not be negative, got %v", c.RequestsPerSecond))
	}

	switch c.StoreBackend {
	case StoreFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required by the file store"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required by the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q, want %q or %q", c.StoreBackend, StoreFile, StoreRedis))
	}

	switch c.TokenBackend {
	case TokensMemory:
	case TokensRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required by the redis token registry"))
		}
	case TokensSQLite:
		if c.TokenDB == "" {
			errs = append(errs, errors.New("TOKEN_DB is required by the sqlite token registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_BACKEND %q, want %q, %q or %q", c.TokenBackend, TokensMemory, TokensRedis, TokensSQLite))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.Port))
	}
	return errors.Join(errs...)
}

// Addr is the listening address of the serving API.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
