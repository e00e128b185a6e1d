package persistence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldMaskKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	var m FieldMask
	m.Set("status", "done").Set("title", "Ship").Set("status", "todo")

	require.Equal(t, []string{"status", "title"}, m.Fields())
	require.Equal(t, 2, m.Len())
	v, ok := m.Get("status")
	require.True(t, ok)
	require.Equal(t, "todo", v)
	require.False(t, m.Has("priority"))
}

func TestAllowListCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		list    AllowList
		fields  []string
		wantErr error
	}{
		{name: "tenant name", list: TenantFields, fields: []string{"name"}},
		{name: "tenant subdomain is immutable", list: TenantFields, fields: []string{"name", "subdomain"}, wantErr: ErrFieldNotAllowed},
		{name: "user email is immutable", list: UserFields, fields: []string{"email"}, wantErr: ErrFieldNotAllowed},
		{name: "user password is not patchable", list: UserFields, fields: []string{"passwordHash"}, wantErr: ErrFieldNotAllowed},
		{name: "project tenant is immutable", list: ProjectFields, fields: []string{"tenantId"}, wantErr: ErrFieldNotAllowed},
		{name: "task fields", list: TaskFields, fields: []string{"title", "assignedTo", "dueDate"}},
		{name: "task project is immutable", list: TaskFields, fields: []string{"projectId"}, wantErr: ErrFieldNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var m FieldMask
			for _, f := range tt.fields {
				m.Set(f, "x")
			}
			err := tt.list.Check(m)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAllowListRejectsEmptyMask(t *testing.T) {
	t.Parallel()

	require.Error(t, TaskFields.Check(FieldMask{}))
}

func TestAssignmentsNumbersPlaceholders(t *testing.T) {
	t.Parallel()

	var m FieldMask
	m.Set("name", "Renamed").Set("maxUsers", 10)

	set, args, err := TenantFields.assignments(m, 2)
	require.NoError(t, err)
	require.Equal(t, "name = $2, max_users = $3", set)
	require.Equal(t, []any{"Renamed", 10}, args)
}

func TestPageOffset(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, Page{Page: 0, Limit: 10}.Offset())
	require.Equal(t, 0, Page{Page: 3, Limit: 0}.Offset())
	require.Equal(t, 20, Page{Page: 3, Limit: 10}.Offset())
	require.Equal(t, math.MaxInt, Page{Page: 92233720368547760, Limit: 100}.Offset())
}
