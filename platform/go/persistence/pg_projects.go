package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const projectColumns = `id, tenant_id, name, description, status, created_by, created_at, updated_at`

const projectViewSelect = `
    SELECT p.id, p.tenant_id, p.name, p.description, p.status, p.created_by, p.created_at, p.updated_at,
           u.full_name,
           (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
           (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'completed')
    FROM projects p
    LEFT JOIN users u ON u.id = p.created_by`

func (q *pgQueries) GetProject(ctx context.Context, id uuid.UUID) (ProjectView, error) {
	row := q.db.QueryRow(ctx, projectViewSelect+` WHERE p.id = $1`, id)
	return scanProjectView(row)
}

func (q *pgQueries) ListProjects(ctx context.Context, params ListProjectsParams) (ListResult[ProjectView], error) {
	lq := listQuery{
		selectSQL: projectViewSelect,
		countSQL:  `SELECT COUNT(*) FROM projects p`,
		orderBy:   `p.created_at DESC, p.id`,
	}
	lq.filter(`p.tenant_id = ?`, params.TenantID)
	if params.Status != "" {
		lq.filter(`p.status = ?`, params.Status)
	}
	if params.Search != "" {
		lq.filter(`p.name ILIKE ?`, containsPattern(params.Search))
	}

	result, err := runList(ctx, q.db, lq, params.Page, scanProjectView)
	if err != nil {
		return ListResult[ProjectView]{}, fmt.Errorf("projects: %w", err)
	}
	return result, nil
}

func (q *pgQueries) CountProjects(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE tenant_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", mapError(err))
	}
	return n, nil
}

func (q *pgQueries) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	if params.ID == uuid.Nil {
		return Project{}, fmt.Errorf("create project: id is required")
	}

	row := q.db.QueryRow(ctx, `
        INSERT INTO projects (id, tenant_id, name, description, status, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+projectColumns,
		params.ID,
		params.TenantID,
		params.Name,
		params.Description,
		params.Status,
		params.CreatedBy,
	)
	return scanProject(row)
}

func (q *pgQueries) UpdateProject(ctx context.Context, id uuid.UUID, mask FieldMask) (Project, error) {
	set, args, err := ProjectFields.assignments(mask, 2)
	if err != nil {
		return Project{}, err
	}

	query := fmt.Sprintf(`UPDATE projects SET %s, updated_at = now() WHERE id = $1 RETURNING %s`, set, projectColumns)
	row := q.db.QueryRow(ctx, query, append([]any{id}, args...)...)
	return scanProject(row)
}

// DeleteProject relies on tasks.project_id being ON DELETE CASCADE.
func (q *pgQueries) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, mapError(err)
	}
	return p, nil
}

func scanProjectView(row pgx.Row) (ProjectView, error) {
	var v ProjectView
	err := row.Scan(
		&v.ID, &v.TenantID, &v.Name, &v.Description, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
		&v.CreatorName,
		&v.TaskCount,
		&v.CompletedTaskCount,
	)
	if err != nil {
		return ProjectView{}, mapError(err)
	}
	return v, nil
}
