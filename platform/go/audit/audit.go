// Package audit writes append-only records of state-changing operations.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/metrics"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
	"github.com/zenGate-Global/worklane/platform/go/requesttrace"
)

// Audit actions.
const (
	RegisterTenant = "REGISTER_TENANT"
	UpdateTenant   = "UPDATE_TENANT"
	CreateUser     = "CREATE_USER"
	UpdateUser     = "UPDATE_USER"
	DeleteUser     = "DELETE_USER"
	CreateProject  = "CREATE_PROJECT"
	UpdateProject  = "UPDATE_PROJECT"
	DeleteProject  = "DELETE_PROJECT"
	CreateTask     = "CREATE_TASK"
	UpdateTask     = "UPDATE_TASK"
	DeleteTask     = "DELETE_TASK"
)

// Entity types.
const (
	EntityTenant  = "tenant"
	EntityUser    = "user"
	EntityProject = "project"
	EntityTask    = "task"
)

// Entry describes one state change. UserID is nil for system actions.
type Entry struct {
	TenantID   *uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
}

// FromContext builds an Entry whose actor comes from the request trace.
// tenantID is nil only for changes to global users.
func FromContext(ctx context.Context, tenantID *uuid.UUID, action, entityType string, entityID uuid.UUID) Entry {
	info := requesttrace.FromContextOrAnonymous(ctx)
	entry := Entry{Action: action, EntityType: entityType, EntityID: entityID}
	if tenantID != nil {
		tid := *tenantID
		entry.TenantID = &tid
	}
	if info.ActorKind == requesttrace.ActorKindUser && info.UserID != nil {
		uid := *info.UserID
		entry.UserID = &uid
	}
	return entry
}

// Recorder writes audit entries.
type Recorder struct {
	store  persistence.Store
	logger *zap.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(store persistence.Store, logger *zap.Logger) *Recorder {
	if store == nil {
		panic("audit.NewRecorder: store must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// RecordTx appends the entry inside the caller's transaction. A failure aborts
// the transaction.
func (r *Recorder) RecordTx(ctx context.Context, q persistence.AuditQueries, entry Entry) error {
	if err := q.AppendAudit(ctx, toRecord(entry)); err != nil {
		return fmt.Errorf("audit %s: %w", entry.Action, err)
	}
	return nil
}

// Record appends the entry after the business change has committed. Failures
// are logged and counted, never returned.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if err := r.store.Client().AppendAudit(ctx, toRecord(entry)); err != nil {
		info := requesttrace.FromContextOrAnonymous(ctx)
		metrics.RecordAuditFailure(entry.Action)
		logging.Ctx(ctx, r.logger).Error("audit write failed",
			zap.String("component", "audit"),
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.Stringer("entity_id", entry.EntityID),
			zap.String("request_id", info.RequestID),
			zap.Error(err),
		)
	}
}

func toRecord(e Entry) persistence.AuditEntry {
	entityID := e.EntityID
	return persistence.AuditEntry{
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   &entityID,
	}
}
