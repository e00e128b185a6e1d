package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

func (q *queries) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	return q.write(ctx, func(txn *memdb.Txn) error {
		if entry.TenantID != nil {
			if _, err := first[persistence.Tenant](txn, tableTenants, indexID, *entry.TenantID); err != nil {
				return fmt.Errorf("append audit %s: %w", entry.Action, err)
			}
		}

		e := entry
		e.TenantID = copyID(entry.TenantID)
		e.UserID = copyID(entry.UserID)
		e.EntityID = copyID(entry.EntityID)
		e.CreatedAt = q.store.tick()
		if err := txn.Insert(tableAudit, &e); err != nil {
			return fmt.Errorf("append audit %s: %w", entry.Action, err)
		}
		return nil
	})
}

func (q *queries) ListAudit(ctx context.Context, params persistence.ListAuditParams) (persistence.ListResult[persistence.AuditEntry], error) {
	var out persistence.ListResult[persistence.AuditEntry]
	err := q.read(ctx, func(txn *memdb.Txn) error {
		rows, err := all[persistence.AuditEntry](txn, tableAudit, indexTenant, params.TenantID)
		if err != nil {
			return err
		}

		matched := rows[:0]
		for _, e := range rows {
			if params.Action != "" && e.Action != params.Action {
				continue
			}
			matched = append(matched, e)
		}
		newestFirst(matched, func(e *persistence.AuditEntry) time.Time { return e.CreatedAt }, func(e *persistence.AuditEntry) uuid.UUID { return e.ID })

		out = paginate(values(matched), params.Page)
		return nil
	})
	return out, err
}
