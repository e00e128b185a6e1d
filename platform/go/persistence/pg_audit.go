package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const auditColumns = `id, tenant_id, user_id, action, entity_type, entity_id, created_at`

// AppendAudit inserts one record. Audit rows are never updated or deleted.
func (q *pgQueries) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := q.db.Exec(ctx, `
        INSERT INTO audit_logs (id, tenant_id, user_id, action, entity_type, entity_id)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.TenantID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
	)
	if err != nil {
		return fmt.Errorf("append audit %s: %w", entry.Action, mapError(err))
	}
	return nil
}

func (q *pgQueries) ListAudit(ctx context.Context, params ListAuditParams) (ListResult[AuditEntry], error) {
	lq := listQuery{
		selectSQL: `SELECT ` + auditColumns + ` FROM audit_logs`,
		countSQL:  `SELECT COUNT(*) FROM audit_logs`,
		orderBy:   `created_at DESC, id`,
	}
	lq.filter(`tenant_id = ?`, params.TenantID)
	if params.Action != "" {
		lq.filter(`action = ?`, params.Action)
	}

	result, err := runList(ctx, q.db, lq, params.Page, scanAudit)
	if err != nil {
		return ListResult[AuditEntry]{}, fmt.Errorf("audit logs: %w", err)
	}
	return result, nil
}

func scanAudit(row pgx.Row) (AuditEntry, error) {
	var e AuditEntry
	if err := row.Scan(&e.ID, &e.TenantID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.CreatedAt); err != nil {
		return AuditEntry{}, mapError(err)
	}
	return e, nil
}
