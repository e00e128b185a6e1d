package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	sqlassets "github.com/zenGate-Global/worklane/database"
)

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// BootstrapSchema applies the embedded DDL in one transaction, in order:
// tenants, users, projects, tasks, audit_logs. Every statement is
// idempotent, so the helper is safe to run on each deploy and from tests.
func BootstrapSchema(ctx context.Context, pool txStarter) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	var statements []string
	for _, file := range sqlassets.Ordered() {
		statements = append(statements, splitStatements(file)...)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements breaks a file on ';' and drops chunks that hold only
// whitespace or line comments. The schema files contain no ';' inside
// literals or bodies.
func splitStatements(sql string) []string {
	var out []string
	for _, raw := range strings.Split(sql, ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" || onlyComments(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func onlyComments(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
