package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// AuditRepository writes audit rows on the pool, never inside the business
// transaction, so a failed audit insert cannot roll back a committed ledger
// write.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) InsertAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	const stmt = `
INSERT INTO audit_events (id, actor_id, action, target_type, target_id, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, stmt,
		event.ID, event.ActorID, event.Action, event.TargetType, event.TargetID, event.Details, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
