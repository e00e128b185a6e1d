package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	backendPostgres = "postgres"
	backendMemory   = "memory"
)

type config struct {
	Port               string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	DevMode            bool          `env:"DEV_MODE" envDefault:"false"`
	StoreBackend       string        `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | memory
	DatabaseURL        string        `env:"DATABASE_URL"`                        // required when STORE_BACKEND=postgres
	BootstrapSchema    bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`
	LockTimeout        time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS"`
	DBMinConns         int32         `env:"DB_MIN_CONNS"`
	DBMaxConnLifetime  time.Duration `env:"DB_MAX_CONN_LIFETIME"`
	DBMaxConnIdleTime  time.Duration `env:"DB_MAX_CONN_IDLE_TIME"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"worklane"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	RedisURL           string        `env:"REDIS_URL"`
	TenantCacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	LoginRateLimit     string        `env:"LOGIN_RATE_LIMIT" envDefault:"20-M"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	DefaultPlan        string        `env:"DEFAULT_PLAN" envDefault:"free"`
	DefaultMaxUsers    int           `env:"DEFAULT_MAX_USERS" envDefault:"5"`
	DefaultMaxProjects int           `env:"DEFAULT_MAX_PROJECTS" envDefault:"3"`
}

// loadConfig reads an optional .env file, then the environment.
func loadConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case backendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", backendPostgres)
		}
	case backendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q (use %s or %s)", c.StoreBackend, backendPostgres, backendMemory)
	}
	if c.DefaultMaxUsers < 1 || c.DefaultMaxProjects < 1 {
		return fmt.Errorf("default quotas must be >= 1")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}
