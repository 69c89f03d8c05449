// Package audit persists the append-only trail of who changed what. It is a
// pure observer: recording failures are reported to the caller, which logs
// them and moves on.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// Store is the persistence surface for audit events.
type Store interface {
	InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error
}

type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record assigns the event a time-ordered id and persists it.
func (r *Recorder) Record(ctx context.Context, event domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if err := r.store.InsertAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
