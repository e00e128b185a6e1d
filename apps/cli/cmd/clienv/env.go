// Package clienv reads the settings the admin commands share with the API
// process, so one .env file serves both.
package clienv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// Env holds flag defaults. Every value can be overridden on the command line.
type Env struct {
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"worklane"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"10"`
	RedisURL    string `env:"REDIS_URL"`
}

// Load reads an optional .env file, then the environment.
func Load() (Env, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Env{}, fmt.Errorf("load .env: %w", err)
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// MustLoad is Load for flag defaults; a malformed environment yields zero
// values and the flags must then be passed explicitly.
func MustLoad() Env {
	e, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
		return Env{JWTIssuer: "worklane", BcryptCost: 10}
	}
	return e
}

// OpenStore connects to Postgres. The returned func closes the pool.
func OpenStore(ctx context.Context, databaseURL string) (*pgxpool.Pool, persistence.Store, func(), error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, nil, errors.New("--database-url or DATABASE_URL is required")
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      databaseURL,
		ApplicationName: "worklane-cli",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, persistence.NewPgStore(pool), func() { persistence.ClosePool(pool) }, nil
}
