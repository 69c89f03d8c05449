package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// ReportRepository serves the read-only queries. No locks are taken; these
// reads are allowed to trail in-flight transactions.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) ListOpenHoldings(ctx context.Context) ([]domain.OpenHolding, error) {
	query := `
SELECT t.asset_id, a.serial_number, a.category, t.holder_id, h.name, t.occurred_at, t.operator_id
FROM ledger_entries t
JOIN assets a ON a.id = t.asset_id
JOIN holders h ON h.id = t.holder_id
WHERE ` + openEntryCond + `
ORDER BY t.occurred_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.OpenHolding
	for rows.Next() {
		var h domain.OpenHolding
		if err := rows.Scan(&h.AssetID, &h.SerialNumber, &h.Category, &h.HolderID, &h.HolderName, &h.TakenAt, &h.OperatorID); err != nil {
			return nil, fmt.Errorf("scan open holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *ReportRepository) AssetHistory(ctx context.Context, assetID string) ([]domain.LedgerEntry, error) {
	const query = `
SELECT seq, id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose
FROM ledger_entries
WHERE asset_id = $1
ORDER BY seq`
	return r.history(ctx, query, assetID)
}

func (r *ReportRepository) HolderHistory(ctx context.Context, holderID string) ([]domain.LedgerEntry, error) {
	const query = `
SELECT seq, id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose
FROM ledger_entries
WHERE holder_id = $1
ORDER BY seq`
	return r.history(ctx, query, holderID)
}

func (r *ReportRepository) history(ctx context.Context, query, id string) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, err
	}
	return entries, nil
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var action string
		if err := rows.Scan(&e.Seq, &e.ID, &e.AssetID, &e.HolderID, &action, &e.OccurredAt, &e.OperatorID, &e.Magazines, &e.Rounds, &e.Purpose); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Action = domain.Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
