package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tenantColumns = `id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at`

func (q *pgQueries) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (q *pgQueries) GetTenantBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE LOWER(subdomain) = LOWER($1)`, strings.TrimSpace(subdomain))
	return scanTenant(row)
}

func (q *pgQueries) ListTenants(ctx context.Context, params ListTenantsParams) (ListResult[Tenant], error) {
	lq := listQuery{
		selectSQL: `SELECT ` + tenantColumns + ` FROM tenants`,
		countSQL:  `SELECT COUNT(*) FROM tenants`,
		orderBy:   `created_at DESC, id`,
	}
	if params.Status != "" {
		lq.filter(`status = ?`, params.Status)
	}
	if params.SubscriptionPlan != "" {
		lq.filter(`subscription_plan = ?`, params.SubscriptionPlan)
	}
	if params.Search != "" {
		lq.filter(`(name ILIKE ? OR subdomain ILIKE ?)`, containsPattern(params.Search))
	}

	result, err := runList(ctx, q.db, lq, params.Page, scanTenant)
	if err != nil {
		return ListResult[Tenant]{}, fmt.Errorf("tenants: %w", err)
	}
	return result, nil
}

func (q *pgQueries) CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error) {
	if params.ID == uuid.Nil {
		return Tenant{}, fmt.Errorf("create tenant: id is required")
	}

	row := q.db.QueryRow(ctx, `
        INSERT INTO tenants (id, name, subdomain, status, subscription_plan, max_users, max_projects)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+tenantColumns,
		params.ID,
		params.Name,
		strings.ToLower(params.Subdomain),
		params.Status,
		params.SubscriptionPlan,
		params.MaxUsers,
		params.MaxProjects,
	)
	return scanTenant(row)
}

func (q *pgQueries) UpdateTenant(ctx context.Context, id uuid.UUID, mask FieldMask) (Tenant, error) {
	set, args, err := TenantFields.assignments(mask, 2)
	if err != nil {
		return Tenant{}, err
	}

	query := fmt.Sprintf(`UPDATE tenants SET %s, updated_at = now() WHERE id = $1 RETURNING %s`, set, tenantColumns)
	row := q.db.QueryRow(ctx, query, append([]any{id}, args...)...)
	return scanTenant(row)
}

func (q *pgQueries) TenantStats(ctx context.Context, id uuid.UUID) (TenantStats, error) {
	var stats TenantStats
	err := q.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM users WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM projects WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM tasks WHERE tenant_id = $1)
    `, id).Scan(&stats.TotalUsers, &stats.TotalProjects, &stats.TotalTasks)
	if err != nil {
		return TenantStats{}, fmt.Errorf("tenant stats: %w", mapError(err))
	}
	return stats, nil
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.Status,
		&t.SubscriptionPlan,
		&t.MaxUsers,
		&t.MaxProjects,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return Tenant{}, mapError(err)
	}
	return t, nil
}
