package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// AuditRepository writes audit rows outside the business transaction.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	const stmt = `
INSERT INTO audit_events (id, actor_id, action, target_type, target_id, details, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, stmt,
		event.ID, event.ActorID, event.Action, event.TargetType, event.TargetID, event.Details, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
