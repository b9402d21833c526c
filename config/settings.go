package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds the service tunables. Connection settings stay in plain env
// lookups (see database.go, redisDb.go).
type Settings struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	GoEnv              string        `env:"GO_ENV" envDefault:"development"`
	CorsAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	SkipMigrations     bool          `env:"SKIP_MIGRATIONS" envDefault:"false"`
	AggregateLockTTL   time.Duration `env:"AGGREGATE_LOCK_TTL" envDefault:"10s"`
	ConflictMaxRetries int           `env:"CONFLICT_MAX_RETRIES" envDefault:"5"`
	ConflictBackoff    time.Duration `env:"CONFLICT_BACKOFF" envDefault:"25ms"`
	CatalogCacheTTL    time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"1h"`
	StorageProvider    string        `env:"STORAGE_PROVIDER" envDefault:"local"`
	GCSBucket          string        `env:"GCS_BUCKET"`
	LocalStorageDir    string        `env:"LOCAL_STORAGE_DIR" envDefault:"./uploads"`
	AuthTokenMode      string        `env:"AUTH_TOKEN_MODE" envDefault:"redis"`
	ApiSecret          string        `env:"API_SECRET"`
	RateLimitEnabled   bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitMax       int64         `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"600"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
}

var (
	settings     *Settings
	settingsOnce sync.Once
	settingsErr  error
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// GetSettings parses the environment once. A parse failure is returned on
// every call so main can refuse to start.
func GetSettings() (*Settings, error) {
	settingsOnce.Do(func() {
		s := &Settings{}
		if err := ParseEnv(s); err != nil {
			settingsErr = err
			return
		}
		settings = s
	})
	return settings, settingsErr
}

// MustSettings is GetSettings for code paths that run after main validated the env.
// Falls back to defaults when parsing failed.
func MustSettings() *Settings {
	s, err := GetSettings()
	if err != nil || s == nil {
		return &Settings{
			Port:               "8080",
			AggregateLockTTL:   10 * time.Second,
			ConflictMaxRetries: 5,
			ConflictBackoff:    25 * time.Millisecond,
			CatalogCacheTTL:    time.Hour,
			StorageProvider:    "local",
			LocalStorageDir:    "./uploads",
			AuthTokenMode:      "redis",
			RateLimitMax:       600,
			RateLimitWindow:    time.Minute,
		}
	}
	return s
}

// OverrideSettings replaces the parsed settings. Tests only.
func OverrideSettings(s *Settings) {
	settingsOnce.Do(func() {})
	settings = s
	settingsErr = nil
}
