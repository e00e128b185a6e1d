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

func (q *queries) GetTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	var out persistence.Tenant
	err := q.read(ctx, func(txn *memdb.Txn) error {
		t, err := first[persistence.Tenant](txn, tableTenants, indexID, id)
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	return out, err
}

func (q *queries) GetTenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	var out persistence.Tenant
	err := q.read(ctx, func(txn *memdb.Txn) error {
		t, err := first[persistence.Tenant](txn, tableTenants, indexSubdomain, strings.TrimSpace(subdomain))
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	return out, err
}

func (q *queries) ListTenants(ctx context.Context, params persistence.ListTenantsParams) (persistence.ListResult[persistence.Tenant], error) {
	var out persistence.ListResult[persistence.Tenant]
	err := q.read(ctx, func(txn *memdb.Txn) error {
		rows, err := all[persistence.Tenant](txn, tableTenants, indexID)
		if err != nil {
			return err
		}

		matched := rows[:0]
		for _, t := range rows {
			if params.Status != "" && t.Status != params.Status {
				continue
			}
			if params.SubscriptionPlan != "" && t.SubscriptionPlan != params.SubscriptionPlan {
				continue
			}
			if params.Search != "" && !containsFold(t.Name, params.Search) && !containsFold(t.Subdomain, params.Search) {
				continue
			}
			matched = append(matched, t)
		}
		newestFirst(matched, func(t *persistence.Tenant) time.Time { return t.CreatedAt }, func(t *persistence.Tenant) uuid.UUID { return t.ID })

		out = paginate(values(matched), params.Page)
		return nil
	})
	return out, err
}

func (q *queries) CreateTenant(ctx context.Context, params persistence.CreateTenantParams) (persistence.Tenant, error) {
	if params.ID == uuid.Nil {
		return persistence.Tenant{}, fmt.Errorf("create tenant: id is required")
	}

	var out persistence.Tenant
	err := q.write(ctx, func(txn *memdb.Txn) error {
		if existing, _ := txn.First(tableTenants, indexSubdomain, params.Subdomain); existing != nil {
			return fmt.Errorf("tenant subdomain %q: %w", params.Subdomain, persistence.ErrConflict)
		}
		if existing, _ := txn.First(tableTenants, indexID, params.ID); existing != nil {
			return fmt.Errorf("tenant id %s: %w", params.ID, persistence.ErrConflict)
		}

		now := q.store.tick()
		t := &persistence.Tenant{
			ID:               params.ID,
			Name:             params.Name,
			Subdomain:        strings.ToLower(params.Subdomain),
			Status:           params.Status,
			SubscriptionPlan: params.SubscriptionPlan,
			MaxUsers:         params.MaxUsers,
			MaxProjects:      params.MaxProjects,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := txn.Insert(tableTenants, t); err != nil {
			return fmt.Errorf("insert tenant: %w", err)
		}
		out = *t
		return nil
	})
	return out, err
}

func (q *queries) UpdateTenant(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Tenant, error) {
	if err := persistence.TenantFields.Check(mask); err != nil {
		return persistence.Tenant{}, err
	}

	var out persistence.Tenant
	err := q.write(ctx, func(txn *memdb.Txn) error {
		current, err := first[persistence.Tenant](txn, tableTenants, indexID, id)
		if err != nil {
			return err
		}

		next := *current
		for _, field := range mask.Fields() {
			var applyErr error
			switch field {
			case "name":
				next.Name, applyErr = maskValue[string](mask, field)
			case "status":
				next.Status, applyErr = maskValue[string](mask, field)
			case "subscriptionPlan":
				next.SubscriptionPlan, applyErr = maskValue[string](mask, field)
			case "maxUsers":
				next.MaxUsers, applyErr = maskValue[int](mask, field)
			case "maxProjects":
				next.MaxProjects, applyErr = maskValue[int](mask, field)
			}
			if applyErr != nil {
				return applyErr
			}
		}
		next.UpdatedAt = q.store.tick()

		if err := txn.Insert(tableTenants, &next); err != nil {
			return fmt.Errorf("update tenant: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (q *queries) TenantStats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error) {
	var out persistence.TenantStats
	err := q.read(ctx, func(txn *memdb.Txn) error {
		var err error
		if out.TotalUsers, err = count(txn, tableUsers, indexTenant, id); err != nil {
			return err
		}
		if out.TotalProjects, err = count(txn, tableProjects, indexTenant, id); err != nil {
			return err
		}
		out.TotalTasks, err = count(txn, tableTasks, indexTenant, id)
		return err
	})
	return out, err
}

// values dereferences rows into copies so callers never alias stored objects.
func values[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out
}
