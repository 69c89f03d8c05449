package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// openEntryCond selects take entries with no later return for the asset.
const openEntryCond = `t.action = 'take'
AND NOT EXISTS (
	SELECT 1 FROM ledger_entries r
	WHERE r.asset_id = t.asset_id AND r.action = 'return' AND r.seq > t.seq
)`

type LedgerRepository struct {
	pool     *pgxpool.Pool
	lockWait time.Duration
}

func NewLedgerRepository(pool *pgxpool.Pool, lockWait time.Duration) *LedgerRepository {
	return &LedgerRepository{pool: pool, lockWait: lockWait}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, r.lockWait, fn)
}

// GetAssetForUpdate locks the asset row for the rest of the transaction.
// Callers lock the asset before the holder, always.
func (r *LedgerRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	const query = `
SELECT id, category, serial_number, condition, status, created_at
FROM assets
WHERE id = $1
FOR UPDATE`

	var a domain.Asset
	var status string
	err := r.queryRow(ctx, query, assetID).
		Scan(&a.ID, &a.Category, &a.SerialNumber, &a.Condition, &status, &a.CreatedAt)
	if err != nil {
		if mapped := mapRowError(err, domain.ErrAssetNotFound); mapped != err {
			return domain.Asset{}, mapped
		}
		return domain.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	a.Status = domain.AssetStatus(status)
	return a, nil
}

// GetHolderForUpdate locks the holder row. Soft-deleted holders are not
// transactable and read as not found.
func (r *LedgerRepository) GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error) {
	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = $1 AND status <> 'deleted'
FOR UPDATE`

	var h domain.Holder
	var status string
	err := r.queryRow(ctx, query, holderID).
		Scan(&h.ID, &h.Name, &h.Rank, &status, &h.CanTransact, &h.CreatedAt)
	if err != nil {
		if mapped := mapRowError(err, domain.ErrHolderNotFound); mapped != err {
			return domain.Holder{}, mapped
		}
		return domain.Holder{}, fmt.Errorf("get holder: %w", err)
	}
	h.Status = domain.HolderStatus(status)
	return h, nil
}

func (r *LedgerRepository) OpenEntryForAsset(ctx context.Context, assetID string) (*domain.LedgerEntry, error) {
	query := `
SELECT t.seq, t.id, t.asset_id, t.holder_id, t.action, t.occurred_at, t.operator_id, t.magazines, t.rounds, t.purpose
FROM ledger_entries t
WHERE t.asset_id = $1 AND ` + openEntryCond + `
ORDER BY t.seq DESC
LIMIT 1`
	return r.scanOpenEntry(ctx, query, assetID)
}

func (r *LedgerRepository) OpenEntryForHolder(ctx context.Context, holderID string) (*domain.LedgerEntry, error) {
	query := `
SELECT t.seq, t.id, t.asset_id, t.holder_id, t.action, t.occurred_at, t.operator_id, t.magazines, t.rounds, t.purpose
FROM ledger_entries t
WHERE t.holder_id = $1 AND ` + openEntryCond + `
ORDER BY t.seq DESC
LIMIT 1`
	return r.scanOpenEntry(ctx, query, holderID)
}

func (r *LedgerRepository) scanOpenEntry(ctx context.Context, query, id string) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var action string
	err := r.queryRow(ctx, query, id).
		Scan(&e.Seq, &e.ID, &e.AssetID, &e.HolderID, &action, &e.OccurredAt, &e.OperatorID, &e.Magazines, &e.Rounds, &e.Purpose)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("open entry: %w", err)
	}
	e.Action = domain.Action(action)
	return &e, nil
}

func (r *LedgerRepository) InsertEntry(ctx context.Context, entry domain.LedgerEntry) error {
	const stmt = `
INSERT INTO ledger_entries (id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		entry.ID,
		entry.AssetID,
		entry.HolderID,
		string(entry.Action),
		entry.OccurredAt,
		entry.OperatorID,
		entry.Magazines,
		entry.Rounds,
		entry.Purpose,
	)
	if err != nil {
		if isGuardViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrLedgerGuard, err)
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error {
	const stmt = `UPDATE assets SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, assetID, string(status))
	if err != nil {
		return fmt.Errorf("set asset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
