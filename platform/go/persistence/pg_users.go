package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at`

func (q *pgQueries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *pgQueries) FindUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (User, error) {
	email = strings.TrimSpace(email)
	if tenantID == nil {
		row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id IS NULL AND LOWER(email) = LOWER($1)`, email)
		return scanUser(row)
	}
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND LOWER(email) = LOWER($2)`, *tenantID, email)
	return scanUser(row)
}

func (q *pgQueries) ListUsers(ctx context.Context, params ListUsersParams) (ListResult[User], error) {
	lq := listQuery{
		selectSQL: `SELECT ` + userColumns + ` FROM users`,
		countSQL:  `SELECT COUNT(*) FROM users`,
		orderBy:   `created_at DESC, id`,
	}
	lq.filter(`tenant_id = ?`, params.TenantID)
	if params.Role != "" {
		lq.filter(`role = ?`, params.Role)
	}
	if params.Search != "" {
		lq.filter(`(email ILIKE ? OR full_name ILIKE ?)`, containsPattern(params.Search))
	}

	result, err := runList(ctx, q.db, lq, params.Page, scanUser)
	if err != nil {
		return ListResult[User]{}, fmt.Errorf("users: %w", err)
	}
	return result, nil
}

func (q *pgQueries) CountUsers(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", mapError(err))
	}
	return n, nil
}

func (q *pgQueries) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if params.ID == uuid.Nil {
		return User{}, fmt.Errorf("create user: id is required")
	}

	row := q.db.QueryRow(ctx, `
        INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+userColumns,
		params.ID,
		params.TenantID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		params.PasswordHash,
		strings.TrimSpace(params.FullName),
		params.Role,
		params.IsActive,
	)
	return scanUser(row)
}

func (q *pgQueries) UpdateUser(ctx context.Context, id uuid.UUID, mask FieldMask) (User, error) {
	set, args, err := UserFields.assignments(mask, 2)
	if err != nil {
		return User{}, err
	}

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = now() WHERE id = $1 RETURNING %s`, set, userColumns)
	row := q.db.QueryRow(ctx, query, append([]any{id}, args...)...)
	return scanUser(row)
}

// DeleteUser relies on tasks.assigned_to being ON DELETE SET NULL, so the
// unassignment happens in the same statement.
func (q *pgQueries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, mapError(err)
	}
	return u, nil
}
