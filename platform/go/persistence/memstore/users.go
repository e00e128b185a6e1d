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

func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	var out persistence.User
	err := q.read(ctx, func(txn *memdb.Txn) error {
		u, err := first[persistence.User](txn, tableUsers, indexID, id)
		if err != nil {
			return err
		}
		out = *u
		return nil
	})
	return out, err
}

func (q *queries) FindUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (persistence.User, error) {
	var out persistence.User
	err := q.read(ctx, func(txn *memdb.Txn) error {
		u, err := first[persistence.User](txn, tableUsers, indexTenantEmail, tenantID, email)
		if err != nil {
			return err
		}
		out = *u
		return nil
	})
	return out, err
}

func (q *queries) ListUsers(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error) {
	var out persistence.ListResult[persistence.User]
	err := q.read(ctx, func(txn *memdb.Txn) error {
		rows, err := all[persistence.User](txn, tableUsers, indexTenant, params.TenantID)
		if err != nil {
			return err
		}

		matched := rows[:0]
		for _, u := range rows {
			if params.Role != "" && u.Role != params.Role {
				continue
			}
			if params.Search != "" && !containsFold(u.Email, params.Search) && !containsFold(u.FullName, params.Search) {
				continue
			}
			matched = append(matched, u)
		}
		newestFirst(matched, func(u *persistence.User) time.Time { return u.CreatedAt }, func(u *persistence.User) uuid.UUID { return u.ID })

		out = paginate(values(matched), params.Page)
		return nil
	})
	return out, err
}

func (q *queries) CountUsers(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := q.read(ctx, func(txn *memdb.Txn) error {
		var err error
		n, err = count(txn, tableUsers, indexTenant, tenantID)
		return err
	})
	return n, err
}

func (q *queries) CreateUser(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	if params.ID == uuid.Nil {
		return persistence.User{}, fmt.Errorf("create user: id is required")
	}

	var out persistence.User
	err := q.write(ctx, func(txn *memdb.Txn) error {
		if params.TenantID != nil {
			if _, err := first[persistence.Tenant](txn, tableTenants, indexID, *params.TenantID); err != nil {
				return err
			}
		}
		if existing, _ := txn.First(tableUsers, indexTenantEmail, params.TenantID, params.Email); existing != nil {
			return fmt.Errorf("user email: %w", persistence.ErrConflict)
		}

		now := q.store.tick()
		u := &persistence.User{
			ID:           params.ID,
			TenantID:     copyID(params.TenantID),
			Email:        strings.ToLower(strings.TrimSpace(params.Email)),
			PasswordHash: params.PasswordHash,
			FullName:     strings.TrimSpace(params.FullName),
			Role:         params.Role,
			IsActive:     params.IsActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := txn.Insert(tableUsers, u); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		out = *u
		return nil
	})
	return out, err
}

func (q *queries) UpdateUser(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error) {
	if err := persistence.UserFields.Check(mask); err != nil {
		return persistence.User{}, err
	}

	var out persistence.User
	err := q.write(ctx, func(txn *memdb.Txn) error {
		current, err := first[persistence.User](txn, tableUsers, indexID, id)
		if err != nil {
			return err
		}

		next := *current
		for _, field := range mask.Fields() {
			var applyErr error
			switch field {
			case "fullName":
				next.FullName, applyErr = maskValue[string](mask, field)
			case "role":
				next.Role, applyErr = maskValue[string](mask, field)
			case "isActive":
				next.IsActive, applyErr = maskValue[bool](mask, field)
			}
			if applyErr != nil {
				return applyErr
			}
		}
		next.UpdatedAt = q.store.tick()

		if err := txn.Insert(tableUsers, &next); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = next
		return nil
	})
	return out, err
}

func (q *queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return q.write(ctx, func(txn *memdb.Txn) error {
		u, err := first[persistence.User](txn, tableUsers, indexID, id)
		if err != nil {
			return err
		}

		assigned, err := all[persistence.Task](txn, tableTasks, indexAssignee, id)
		if err != nil {
			return err
		}
		now := q.store.tick()
		for _, task := range assigned {
			next := *task
			next.AssignedTo = nil
			next.UpdatedAt = now
			if err := txn.Insert(tableTasks, &next); err != nil {
				return fmt.Errorf("unassign task: %w", err)
			}
		}

		if err := txn.Delete(tableUsers, u); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
