package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/locking"
)

const openEntryCond = `t.action = 'take'
AND NOT EXISTS (
	SELECT 1 FROM ledger_entries r
	WHERE r.asset_id = t.asset_id AND r.action = 'return' AND r.seq > t.seq
)`

type LedgerRepository struct {
	db       *sql.DB
	locks    *locking.Manager
	lockWait time.Duration
}

func NewLedgerRepository(db *sql.DB, locks *locking.Manager, lockWait time.Duration) *LedgerRepository {
	return &LedgerRepository{db: db, locks: locks, lockWait: lockWait}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// GetAssetForUpdate takes the asset's entity lock for the transaction before
// reading. Callers lock the asset before the holder, always.
func (r *LedgerRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
	if err := lockEntity(ctx, r.locks, r.lockWait, "asset:"+assetID); err != nil {
		return domain.Asset{}, err
	}

	const query = `
SELECT id, category, serial_number, condition, status, created_at
FROM assets
WHERE id = ?`

	var a domain.Asset
	var status string
	err := r.queryRow(ctx, query, assetID).
		Scan(&a.ID, &a.Category, &a.SerialNumber, &a.Condition, &status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Asset{}, domain.ErrAssetNotFound
		}
		return domain.Asset{}, fmt.Errorf("get asset: %w", err)
	}
	a.Status = domain.AssetStatus(status)
	return a, nil
}

func (r *LedgerRepository) GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error) {
	if err := lockEntity(ctx, r.locks, r.lockWait, "holder:"+holderID); err != nil {
		return domain.Holder{}, err
	}

	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = ? AND status <> 'deleted'`

	var h domain.Holder
	var status string
	err := r.queryRow(ctx, query, holderID).
		Scan(&h.ID, &h.Name, &h.Rank, &status, &h.CanTransact, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Holder{}, domain.ErrHolderNotFound
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
WHERE t.asset_id = ? AND ` + openEntryCond + `
ORDER BY t.seq DESC
LIMIT 1`
	return r.scanOpenEntry(ctx, query, assetID)
}

func (r *LedgerRepository) OpenEntryForHolder(ctx context.Context, holderID string) (*domain.LedgerEntry, error) {
	query := `
SELECT t.seq, t.id, t.asset_id, t.holder_id, t.action, t.occurred_at, t.operator_id, t.magazines, t.rounds, t.purpose
FROM ledger_entries t
WHERE t.holder_id = ? AND ` + openEntryCond + `
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("open entry: %w", err)
	}
	e.Action = domain.Action(action)
	return &e, nil
}

func (r *LedgerRepository) InsertEntry(ctx context.Context, entry domain.LedgerEntry) error {
	const stmt = `
INSERT INTO ledger_entries (id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error {
	const stmt = `UPDATE assets SET status = ? WHERE id = ?`

	res, err := r.exec(ctx, stmt, string(status), assetID)
	if err != nil {
		return fmt.Errorf("set asset status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set asset status: %w", err)
	}
	if affected == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *LedgerRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if st := stateFromContext(ctx); st != nil {
		return st.tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if st := stateFromContext(ctx); st != nil {
		return st.tx.QueryRowContext(ctx, query, args...)
	}
	return r.db.QueryRowContext(ctx, query, args...)
}
