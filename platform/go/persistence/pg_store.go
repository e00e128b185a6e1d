package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgPool is the subset of *pgxpool.Pool used by PgStore.
type pgPool interface {
	dbtx
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	pool        pgPool
	lockTimeout time.Duration
}

// PgStoreOption customises a PgStore.
type PgStoreOption func(*PgStore)

// WithLockTimeout bounds how long a transaction waits on a row lock.
func WithLockTimeout(d time.Duration) PgStoreOption {
	return func(s *PgStore) { s.lockTimeout = d }
}

// NewPgStore wraps an open pool. The schema is expected to exist already
// (see BootstrapSchema).
func NewPgStore(pool pgPool, opts ...PgStoreOption) *PgStore {
	if pool == nil {
		panic("PgStore requires pool")
	}
	s := &PgStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PgStore) Client() Client {
	return &pgClient{pgQueries: pgQueries{db: s.pool}, pool: s.pool}
}

// InTx runs fn inside a READ COMMITTED transaction. Quota paths serialise on
// the tenant row through Tx.LockTenant; subdomain and email uniqueness are
// backed by unique indexes.
func (s *PgStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if s.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(&pgTx{pgQueries: pgQueries{db: tx}}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

type pgQueries struct {
	db dbtx
}

type pgClient struct {
	pgQueries
	pool pgPool
}

func (c *pgClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

type pgTx struct {
	pgQueries
}

func (t *pgTx) LockTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := t.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1 FOR UPDATE`, id)
	return scanTenant(row)
}

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"

	constraintTaskAssignee = "tasks_assigned_to_fkey"
)

// mapError folds driver errors into the store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case sqlStateForeignKeyViolation:
			if pgErr.ConstraintName == constraintTaskAssignee {
				return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
			}
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
