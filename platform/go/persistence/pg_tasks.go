package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at`

const taskViewSelect = `
    SELECT t.id, t.project_id, t.tenant_id, t.title, t.description, t.status, t.priority,
           t.assigned_to, t.due_date, t.created_at, t.updated_at,
           u.full_name, u.email
    FROM tasks t
    LEFT JOIN users u ON u.id = t.assigned_to`

// taskOrder puts high priority first, then the nearest due date, then the newest.
const taskOrder = `CASE t.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
    t.due_date ASC NULLS LAST, t.created_at DESC, t.id`

func (q *pgQueries) GetTask(ctx context.Context, id uuid.UUID) (TaskView, error) {
	row := q.db.QueryRow(ctx, taskViewSelect+` WHERE t.id = $1`, id)
	return scanTaskView(row)
}

func (q *pgQueries) ListTasks(ctx context.Context, params ListTasksParams) (ListResult[TaskView], error) {
	lq := listQuery{
		selectSQL: taskViewSelect,
		countSQL:  `SELECT COUNT(*) FROM tasks t`,
		orderBy:   taskOrder,
	}
	lq.filter(`t.project_id = ?`, params.ProjectID)
	if params.Status != "" {
		lq.filter(`t.status = ?`, params.Status)
	}
	if params.Priority != "" {
		lq.filter(`t.priority = ?`, params.Priority)
	}
	if params.AssignedTo != nil {
		lq.filter(`t.assigned_to = ?`, *params.AssignedTo)
	}
	if params.Search != "" {
		lq.filter(`t.title ILIKE ?`, containsPattern(params.Search))
	}

	result, err := runList(ctx, q.db, lq, params.Page, scanTaskView)
	if err != nil {
		return ListResult[TaskView]{}, fmt.Errorf("tasks: %w", err)
	}
	return result, nil
}

// CreateTask copies the tenant from the parent project row, so a task can
// never be filed under a different tenant than its project.
func (q *pgQueries) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	if params.ID == uuid.Nil {
		return Task{}, fmt.Errorf("create task: id is required")
	}

	row := q.db.QueryRow(ctx, `
        INSERT INTO tasks (id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date)
        SELECT $1, p.id, p.tenant_id, $3, $4, $5, $6, $7, $8
        FROM projects p
        WHERE p.id = $2 AND p.tenant_id = $9
        RETURNING `+taskColumns,
		params.ID,
		params.ProjectID,
		params.Title,
		params.Description,
		params.Status,
		params.Priority,
		params.AssignedTo,
		params.DueDate,
		params.TenantID,
	)
	return scanTask(row)
}

func (q *pgQueries) UpdateTask(ctx context.Context, id uuid.UUID, mask FieldMask) (Task, error) {
	set, args, err := TaskFields.assignments(mask, 2)
	if err != nil {
		return Task{}, err
	}

	query := fmt.Sprintf(`UPDATE tasks SET %s, updated_at = now() WHERE id = $1 RETURNING %s`, set, taskColumns)
	row := q.db.QueryRow(ctx, query, append([]any{id}, args...)...)
	return scanTask(row)
}

func (q *pgQueries) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.TenantID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.AssignedTo, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, mapError(err)
	}
	return t, nil
}

func scanTaskView(row pgx.Row) (TaskView, error) {
	var v TaskView
	err := row.Scan(
		&v.ID, &v.ProjectID, &v.TenantID, &v.Title, &v.Description, &v.Status, &v.Priority,
		&v.AssignedTo, &v.DueDate, &v.CreatedAt, &v.UpdatedAt,
		&v.AssigneeName, &v.AssigneeEmail,
	)
	if err != nil {
		return TaskView{}, mapError(err)
	}
	return v, nil
}
