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

type AdminRepository struct {
	db       *sql.DB
	locks    *locking.Manager
	lockWait time.Duration
}

func NewAdminRepository(db *sql.DB, locks *locking.Manager, lockWait time.Duration) *AdminRepository {
	return &AdminRepository{db: db, locks: locks, lockWait: lockWait}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *AdminRepository) CreateAsset(ctx context.Context, asset domain.Asset) error {
	const stmt = `
INSERT INTO assets (id, category, serial_number, condition, status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, stmt,
		asset.ID, asset.Category, asset.SerialNumber, asset.Condition, string(asset.Status), asset.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSerialTaken
		}
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (r *AdminRepository) CreateHolder(ctx context.Context, holder domain.Holder) error {
	const stmt = `
INSERT INTO holders (id, name, rank, status, can_transact, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, stmt,
		holder.ID, holder.Name, holder.Rank, string(holder.Status), holder.CanTransact, holder.CreatedAt)
	if err != nil {
		return fmt.Errorf("create holder: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
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

// GetHolderForUpdate takes the holder's entity lock for a lifecycle change.
// Unlike the ledger's read it includes soft-deleted holders, so a delete can
// be undone.
func (r *AdminRepository) GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error) {
	if err := lockEntity(ctx, r.locks, r.lockWait, "holder:"+holderID); err != nil {
		return domain.Holder{}, err
	}

	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = ?`

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

// HolderHasOpenEntry reports whether the holder has a take with no later
// return for the asset.
func (r *AdminRepository) HolderHasOpenEntry(ctx context.Context, holderID string) (bool, error) {
	query := `
SELECT EXISTS (
	SELECT 1 FROM ledger_entries t
	WHERE t.holder_id = ? AND ` + openEntryCond + `
)`

	var open bool
	if err := r.queryRow(ctx, query, holderID).Scan(&open); err != nil {
		return false, fmt.Errorf("holder open entry: %w", err)
	}
	return open, nil
}

// GetAsset is the plain read; no entity lock is taken.
func (r *AdminRepository) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
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

// GetHolder reads a holder including soft-deleted records, so ledger history
// stays resolvable to a name.
func (r *AdminRepository) GetHolder(ctx context.Context, holderID string) (domain.Holder, error) {
	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = ?`

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

func (r *AdminRepository) SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error {
	return r.updateOne(ctx, `UPDATE assets SET status = ? WHERE id = ?`, domain.ErrAssetNotFound, string(status), assetID)
}

func (r *AdminRepository) SetHolderStatus(ctx context.Context, holderID string, status domain.HolderStatus) error {
	return r.updateOne(ctx, `UPDATE holders SET status = ? WHERE id = ?`, domain.ErrHolderNotFound, string(status), holderID)
}

func (r *AdminRepository) SetHolderCanTransact(ctx context.Context, holderID string, canTransact bool) error {
	return r.updateOne(ctx, `UPDATE holders SET can_transact = ? WHERE id = ? AND status <> 'deleted'`, domain.ErrHolderNotFound, canTransact, holderID)
}

func (r *AdminRepository) DeleteAsset(ctx context.Context, assetID string) error {
	res, err := r.exec(ctx, `DELETE FROM assets WHERE id = ?`, assetID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetInUse
		}
		return fmt.Errorf("delete asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if affected == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *AdminRepository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	const query = `
SELECT id, category, serial_number, condition, status, created_at
FROM assets
ORDER BY serial_number`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		var status string
		if err := rows.Scan(&a.ID, &a.Category, &a.SerialNumber, &a.Condition, &status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Status = domain.AssetStatus(status)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *AdminRepository) ListHolders(ctx context.Context, includeDeleted bool) ([]domain.Holder, error) {
	query := `
SELECT id, name, rank, status, can_transact, created_at
FROM holders`
	if !includeDeleted {
		query += `
WHERE status <> 'deleted'`
	}
	query += `
ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var holders []domain.Holder
	for rows.Next() {
		var h domain.Holder
		var status string
		if err := rows.Scan(&h.ID, &h.Name, &h.Rank, &status, &h.CanTransact, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		h.Status = domain.HolderStatus(status)
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

func (r *AdminRepository) updateOne(ctx context.Context, stmt string, notFound error, args ...any) error {
	res, err := r.exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func (r *AdminRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if st := stateFromContext(ctx); st != nil {
		return st.tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *AdminRepository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if st := stateFromContext(ctx); st != nil {
		return st.tx.QueryRowContext(ctx, query, args...)
	}
	return r.db.QueryRowContext(ctx, query, args...)
}
