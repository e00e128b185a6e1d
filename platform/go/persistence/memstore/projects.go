package memstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

func (q *queries) GetProject(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
	var out persistence.ProjectView
	err := q.read(ctx, func(txn *memdb.Txn) error {
		p, err := first[persistence.Project](txn, tableProjects, indexID, id)
		if err != nil {
			return err
		}
		out, err = projectView(txn, p)
		return err
	})
	return out, err
}

func (q *queries) ListProjects(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error) {
	var out persistence.ListResult[persistence.ProjectView]
	err := q.read(ctx, func(txn *memdb.Txn) error {
		rows, err := all[persistence.Project](txn, tableProjects, indexTenant, params.TenantID)
		if err != nil {
			return err
		}

		matched := rows[:0]
		for _, p := range rows {
			if params.Status != "" && p.Status != params.Status {
				continue
			}
			if params.Search != "" && !containsFold(p.Name, params.Search) {
				continue
			}
			matched = append(matched, p)
		}
		newestFirst(matched, func(p *persistence.Project) time.Time { return p.CreatedAt }, func(p *persistence.Project) uuid.UUID { return p.ID })

		page := paginate(matched, params.Page)
		out = persistence.ListResult[persistence.ProjectView]{Items: make([]persistence.ProjectView, 0, len(page.Items)), Total: page.Total}
		for _, p := range page.Items {
			view, err := projectView(txn, p)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, view)
		}
		return nil
	})
	return out, err
}

func (q *queries) CountProjects(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := q.read(ctx, func(txn *memdb.Txn) error {
		var err error
		n, err = count(txn, tableProjects, indexTenant, tenantID)
		return err
	})
	return n, err
}

func (q *queries) CreateProject(ctx context.Context, params persistence.CreateProjectParams) (persistence.Project, error) {
	if params.ID == uuid.Nil {
		return persistence.Project{}, fmt.Errorf("create project: id is required")
	}

	var out persistence.Project
	err := q.write(ctx, func(txn *memdb.Txn) error {
		if _, err := first[persistence.Tenant](txn, tableTenants, indexID, params.TenantID); err != nil {
			return err
		}
		if existing, _ := txn.First(tableProjects, indexID, params.ID); existing != nil {
			return fmt.Errorf("project id %s: %w", params.ID, persistence.ErrConflict)
		}

		now := q.store.tick()
		p := &persistence.Project{
			ID:          params.ID,
			TenantID:    params.TenantID,
			Name:        strings.TrimSpace(params.Name),
			Description: params.Description,
			Status:      params.Status,
			CreatedBy:   params.CreatedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := txn.Insert(tableProjects, p); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		out = *p
		return nil
	})
	return out, err
}

func (q *queries) UpdateProject(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error) {
	if err := persistence.ProjectFields.Check(mask); err != nil {
		return persistence.Project{}, err
	}

	var out persistence.Project
	err := q.write(ctx, func(txn *memdb.Txn) error {
		current, err := first[persistence.Project](txn, tableProjects, indexID, id)
		if err != nil {
			return err
		}

		next := *current
		for _, field := range mask.Fields() {
			var applyErr error
			switch field {
			case "name":
				next.Name, applyErr = maskValue[string](mask, field)
			case "description":
				next.Description, applyErr = maskValue[string](mask, field)
			case "status":
				next.Status, applyErr = maskValue[string](mask, field)
			}
			if applyErr != nil {
				return applyErr
			}
		}
		next.UpdatedAt = q.store.tick()

		if err := txn.Insert(tableProjects, &next); err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (q *queries) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return q.write(ctx, func(txn *memdb.Txn) error {
		p, err := first[persistence.Project](txn, tableProjects, indexID, id)
		if err != nil {
			return err
		}

		tasks, err := all[persistence.Task](txn, tableTasks, indexProject, id)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if err := txn.Delete(tableTasks, task); err != nil {
				return fmt.Errorf("delete project task: %w", err)
			}
		}

		if err := txn.Delete(tableProjects, p); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
}

func projectView(txn *memdb.Txn, p *persistence.Project) (persistence.ProjectView, error) {
	view := persistence.ProjectView{Project: *p}

	if raw, err := txn.First(tableUsers, indexID, p.CreatedBy); err != nil {
		return persistence.ProjectView{}, fmt.Errorf("project creator: %w", err)
	} else if raw != nil {
		name := raw.(*persistence.User).FullName
		view.CreatorName = &name
	}

	tasks, err := all[persistence.Task](txn, tableTasks, indexProject, p.ID)
	if err != nil {
		return persistence.ProjectView{}, err
	}
	view.TaskCount = len(tasks)
	for _, t := range tasks {
		if t.Status == persistence.TaskCompleted {
			view.CompletedTaskCount++
		}
	}
	return view, nil
}
