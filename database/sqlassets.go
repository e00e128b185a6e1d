package sqlassets

import _ "embed"

//go:embed schema/001_tenants.sql
var TenantsSQL string

//go:embed schema/002_users.sql
var UsersSQL string

//go:embed schema/003_projects.sql
var ProjectsSQL string

//go:embed schema/004_tasks.sql
var TasksSQL string

//go:embed schema/005_audit_logs.sql
var AuditLogsSQL string

// Ordered lists the schema files in dependency order.
func Ordered() []string {
	return []string{TenantsSQL, UsersSQL, ProjectsSQL, TasksSQL, AuditLogsSQL}
}
