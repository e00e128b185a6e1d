package memstore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

const (
	tableTenants  = "tenants"
	tableUsers    = "users"
	tableProjects = "projects"
	tableTasks    = "tasks"
	tableAudit    = "audit_logs"

	indexID          = "id"
	indexSubdomain   = "subdomain"
	indexTenant      = "tenant"
	indexTenantEmail = "tenant_email"
	indexProject     = "project"
	indexAssignee    = "assignee"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTenants: {
				Name: tableTenants,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {Name: indexID, Unique: true, Indexer: idOf(func(t *persistence.Tenant) uuid.UUID { return t.ID })},
					indexSubdomain: {
						Name:    indexSubdomain,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Subdomain", Lowercase: true},
					},
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:          {Name: indexID, Unique: true, Indexer: idOf(func(u *persistence.User) uuid.UUID { return u.ID })},
					indexTenant:      {Name: indexTenant, AllowMissing: true, Indexer: optionalIDOf(func(u *persistence.User) *uuid.UUID { return u.TenantID })},
					indexTenantEmail: {Name: indexTenantEmail, Unique: true, Indexer: tenantEmailIndex{}},
				},
			},
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:     {Name: indexID, Unique: true, Indexer: idOf(func(p *persistence.Project) uuid.UUID { return p.ID })},
					indexTenant: {Name: indexTenant, Indexer: idOf(func(p *persistence.Project) uuid.UUID { return p.TenantID })},
				},
			},
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:       {Name: indexID, Unique: true, Indexer: idOf(func(t *persistence.Task) uuid.UUID { return t.ID })},
					indexProject:  {Name: indexProject, Indexer: idOf(func(t *persistence.Task) uuid.UUID { return t.ProjectID })},
					indexTenant:   {Name: indexTenant, Indexer: idOf(func(t *persistence.Task) uuid.UUID { return t.TenantID })},
					indexAssignee: {Name: indexAssignee, AllowMissing: true, Indexer: optionalIDOf(func(t *persistence.Task) *uuid.UUID { return t.AssignedTo })},
				},
			},
			tableAudit: {
				Name: tableAudit,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:     {Name: indexID, Unique: true, Indexer: idOf(func(e *persistence.AuditEntry) uuid.UUID { return e.ID })},
					indexTenant: {Name: indexTenant, AllowMissing: true, Indexer: optionalIDOf(func(e *persistence.AuditEntry) *uuid.UUID { return e.TenantID })},
				},
			},
		},
	}
}

// uuidIndex indexes a uuid.UUID field by its 16 raw bytes.
type uuidIndex struct {
	field func(obj any) (uuid.UUID, bool)
}

func idOf[T any](get func(*T) uuid.UUID) uuidIndex {
	return uuidIndex{field: func(obj any) (uuid.UUID, bool) {
		v, ok := obj.(*T)
		if !ok {
			return uuid.Nil, false
		}
		return get(v), true
	}}
}

func optionalIDOf[T any](get func(*T) *uuid.UUID) uuidIndex {
	return uuidIndex{field: func(obj any) (uuid.UUID, bool) {
		v, ok := obj.(*T)
		if !ok {
			return uuid.Nil, false
		}
		id := get(v)
		if id == nil {
			return uuid.Nil, false
		}
		return *id, true
	}}
}

func (u uuidIndex) FromObject(obj any) (bool, []byte, error) {
	id, ok := u.field(obj)
	if !ok {
		return false, nil, nil
	}
	return true, idBytes(id), nil
}

func (u uuidIndex) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	id, ok := args[0].(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("argument must be a uuid.UUID: %#v", args[0])
	}
	return idBytes(id), nil
}

func idBytes(id uuid.UUID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// tenantEmailIndex keys users by (tenant or global namespace, lowercased email).
type tenantEmailIndex struct{}

func (tenantEmailIndex) FromObject(obj any) (bool, []byte, error) {
	u, ok := obj.(*persistence.User)
	if !ok {
		return false, nil, fmt.Errorf("unexpected object %T", obj)
	}
	return true, tenantEmailKey(u.TenantID, u.Email), nil
}

func (tenantEmailIndex) FromArgs(args ...any) ([]byte, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("must provide tenant id and email")
	}
	tenantID, ok := args[0].(*uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("first argument must be *uuid.UUID: %#v", args[0])
	}
	email, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("second argument must be a string: %#v", args[1])
	}
	return tenantEmailKey(tenantID, email), nil
}

func tenantEmailKey(tenantID *uuid.UUID, email string) []byte {
	var ns uuid.UUID
	if tenantID != nil {
		ns = *tenantID
	}
	key := idBytes(ns)
	key = append(key, strings.ToLower(strings.TrimSpace(email))...)
	return append(key, 0)
}
