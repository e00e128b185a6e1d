package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

func (q *queries) GetTask(ctx context.Context, id uuid.UUID) (persistence.TaskView, error) {
	var out persistence.TaskView
	err := q.read(ctx, func(txn *memdb.Txn) error {
		t, err := first[persistence.Task](txn, tableTasks, indexID, id)
		if err != nil {
			return err
		}
		out, err = taskView(txn, t)
		return err
	})
	return out, err
}

func (q *queries) ListTasks(ctx context.Context, params persistence.ListTasksParams) (persistence.ListResult[persistence.TaskView], error) {
	var out persistence.ListResult[persistence.TaskView]
	err := q.read(ctx, func(txn *memdb.Txn) error {
		rows, err := all[persistence.Task](txn, tableTasks, indexProject, params.ProjectID)
		if err != nil {
			return err
		}

		matched := rows[:0]
		for _, t := range rows {
			if params.Status != "" && t.Status != params.Status {
				continue
			}
			if params.Priority != "" && t.Priority != params.Priority {
				continue
			}
			if params.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *params.AssignedTo) {
				continue
			}
			if params.Search != "" && !containsFold(t.Title, params.Search) {
				continue
			}
			matched = append(matched, t)
		}
		sortTasks(matched)

		page := paginate(matched, params.Page)
		out = persistence.ListResult[persistence.TaskView]{Items: make([]persistence.TaskView, 0, len(page.Items)), Total: page.Total}
		for _, t := range page.Items {
			view, err := taskView(txn, t)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, view)
		}
		return nil
	})
	return out, err
}

func (q *queries) CreateTask(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
	if params.ID == uuid.Nil {
		return persistence.Task{}, fmt.Errorf("create task: id is required")
	}

	var out persistence.Task
	err := q.write(ctx, func(txn *memdb.Txn) error {
		project, err := first[persistence.Project](txn, tableProjects, indexID, params.ProjectID)
		if err != nil {
			return err
		}
		if project.TenantID != params.TenantID {
			return fmt.Errorf("project %s: %w", params.ProjectID, persistence.ErrNotFound)
		}
		if params.AssignedTo != nil {
			if err := checkAssignee(txn, project.TenantID, *params.AssignedTo); err != nil {
				return err
			}
		}
		if existing, _ := txn.First(tableTasks, indexID, params.ID); existing != nil {
			return fmt.Errorf("task id %s: %w", params.ID, persistence.ErrConflict)
		}

		now := q.store.tick()
		t := &persistence.Task{
			ID:          params.ID,
			ProjectID:   project.ID,
			TenantID:    project.TenantID,
			Title:       strings.TrimSpace(params.Title),
			Description: params.Description,
			Status:      params.Status,
			Priority:    params.Priority,
			AssignedTo:  copyID(params.AssignedTo),
			DueDate:     copyTime(params.DueDate),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := txn.Insert(tableTasks, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		out = *t
		return nil
	})
	return out, err
}

func (q *queries) UpdateTask(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Task, error) {
	if err := persistence.TaskFields.Check(mask); err != nil {
		return persistence.Task{}, err
	}

	var out persistence.Task
	err := q.write(ctx, func(txn *memdb.Txn) error {
		current, err := first[persistence.Task](txn, tableTasks, indexID, id)
		if err != nil {
			return err
		}

		next := *current
		for _, field := range mask.Fields() {
			var applyErr error
			switch field {
			case "title":
				next.Title, applyErr = maskValue[string](mask, field)
			case "description":
				next.Description, applyErr = maskValue[string](mask, field)
			case "status":
				next.Status, applyErr = maskValue[string](mask, field)
			case "priority":
				next.Priority, applyErr = maskValue[string](mask, field)
			case "assignedTo":
				next.AssignedTo, applyErr = maskOptional[uuid.UUID](mask, field)
				if applyErr == nil && next.AssignedTo != nil {
					applyErr = checkAssignee(txn, current.TenantID, *next.AssignedTo)
				}
			case "dueDate":
				next.DueDate, applyErr = maskOptional[time.Time](mask, field)
			}
			if applyErr != nil {
				return applyErr
			}
		}
		next.UpdatedAt = q.store.tick()

		if err := txn.Insert(tableTasks, &next); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (q *queries) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return q.write(ctx, func(txn *memdb.Txn) error {
		t, err := first[persistence.Task](txn, tableTasks, indexID, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(tableTasks, t); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

func checkAssignee(txn *memdb.Txn, tenantID, userID uuid.UUID) error {
	user, err := first[persistence.User](txn, tableUsers, indexID, userID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	if err != nil || user.TenantID == nil || *user.TenantID != tenantID {
		return fmt.Errorf("assignee %s: %w", userID, persistence.ErrInvalidReference)
	}
	return nil
}

func taskView(txn *memdb.Txn, t *persistence.Task) (persistence.TaskView, error) {
	view := persistence.TaskView{Task: *t}
	if t.AssignedTo == nil {
		return view, nil
	}

	raw, err := txn.First(tableUsers, indexID, *t.AssignedTo)
	if err != nil {
		return persistence.TaskView{}, fmt.Errorf("task assignee: %w", err)
	}
	if raw != nil {
		u := raw.(*persistence.User)
		name, email := u.FullName, u.Email
		view.AssigneeName = &name
		view.AssigneeEmail = &email
	}
	return view, nil
}

var priorityRank = map[string]int{"high": 1, "medium": 2, "low": 3}

func rank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return len(priorityRank) + 1
}

// sortTasks orders by priority, then due date with undated tasks last, then
// newest first.
func sortTasks(tasks []*persistence.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := rank(a.Priority), rank(b.Priority); ra != rb {
			return ra < rb
		}
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
