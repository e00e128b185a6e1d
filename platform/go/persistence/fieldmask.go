package persistence

import (
	"errors"
	"fmt"
	"strings"
)

// FieldMask is a partial update: field name to new value. Only the fields
// that were set are written. A nil value writes NULL.
type FieldMask struct {
	order  []string
	values map[string]any
}

// Set records a new value for field, replacing any earlier value.
func (m *FieldMask) Set(field string, value any) *FieldMask {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[field]; !exists {
		m.order = append(m.order, field)
	}
	m.values[field] = value
	return m
}

// Get returns the value set for field.
func (m FieldMask) Get(field string) (any, bool) {
	v, ok := m.values[field]
	return v, ok
}

// Has reports whether field is part of the mask.
func (m FieldMask) Has(field string) bool {
	_, ok := m.values[field]
	return ok
}

// Fields lists the masked fields in insertion order.
func (m FieldMask) Fields() []string {
	return append([]string(nil), m.order...)
}

func (m FieldMask) Len() int { return len(m.order) }

// AllowList is the fixed set of writable fields of one entity, mapped to
// their column names.
type AllowList struct {
	entity  string
	columns map[string]string
}

// Per-entity allow-lists.
var (
	TenantFields = AllowList{entity: "tenant", columns: map[string]string{
		"name":             "name",
		"status":           "status",
		"subscriptionPlan": "subscription_plan",
		"maxUsers":         "max_users",
		"maxProjects":      "max_projects",
	}}
	UserFields = AllowList{entity: "user", columns: map[string]string{
		"fullName": "full_name",
		"role":     "role",
		"isActive": "is_active",
	}}
	ProjectFields = AllowList{entity: "project", columns: map[string]string{
		"name":        "name",
		"description": "description",
		"status":      "status",
	}}
	TaskFields = AllowList{entity: "task", columns: map[string]string{
		"title":       "title",
		"description": "description",
		"status":      "status",
		"priority":    "priority",
		"assignedTo":  "assigned_to",
		"dueDate":     "due_date",
	}}
)

// Allows reports whether field is writable.
func (a AllowList) Allows(field string) bool {
	_, ok := a.columns[field]
	return ok
}

// Check rejects empty masks and masks naming a field outside the list.
func (a AllowList) Check(m FieldMask) error {
	if m.Len() == 0 {
		return fmt.Errorf("%s update: %w", a.entity, errors.New("empty field mask"))
	}
	for _, field := range m.order {
		if !a.Allows(field) {
			return fmt.Errorf("%s update %q: %w", a.entity, field, ErrFieldNotAllowed)
		}
	}
	return nil
}

// assignments renders "col = $n, ..." starting at placeholder firstArg.
func (a AllowList) assignments(m FieldMask, firstArg int) (string, []any, error) {
	if err := a.Check(m); err != nil {
		return "", nil, err
	}

	parts := make([]string, 0, m.Len())
	args := make([]any, 0, m.Len())
	for i, field := range m.order {
		parts = append(parts, fmt.Sprintf("%s = $%d", a.columns[field], firstArg+i))
		args = append(args, m.values[field])
	}
	return strings.Join(parts, ", "), args, nil
}
