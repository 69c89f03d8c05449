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

type AdminRepository struct {
	pool     *pgxpool.Pool
	lockWait time.Duration
}

func NewAdminRepository(pool *pgxpool.Pool, lockWait time.Duration) *AdminRepository {
	return &AdminRepository{pool: pool, lockWait: lockWait}
}

func (r *AdminRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, r.lockWait, fn)
}

func (r *AdminRepository) CreateAsset(ctx context.Context, asset domain.Asset) error {
	const stmt = `
INSERT INTO assets (id, category, serial_number, condition, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

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
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		holder.ID, holder.Name, holder.Rank, string(holder.Status), holder.CanTransact, holder.CreatedAt)
	if err != nil {
		return fmt.Errorf("create holder: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetAssetForUpdate(ctx context.Context, assetID string) (domain.Asset, error) {
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

// GetHolderForUpdate locks the holder row for a lifecycle change. Unlike the
// ledger's read it includes soft-deleted holders, so a delete can be undone.
func (r *AdminRepository) GetHolderForUpdate(ctx context.Context, holderID string) (domain.Holder, error) {
	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = $1
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

// HolderHasOpenEntry reports whether the holder has a take with no later
// return for the asset.
func (r *AdminRepository) HolderHasOpenEntry(ctx context.Context, holderID string) (bool, error) {
	query := `
SELECT EXISTS (
	SELECT 1 FROM ledger_entries t
	WHERE t.holder_id = $1 AND ` + openEntryCond + `
)`

	var open bool
	if err := r.queryRow(ctx, query, holderID).Scan(&open); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("holder open entry: %w", err)
	}
	return open, nil
}

// GetAsset is the plain read; no lock is taken.
func (r *AdminRepository) GetAsset(ctx context.Context, assetID string) (domain.Asset, error) {
	const query = `
SELECT id, category, serial_number, condition, status, created_at
FROM assets
WHERE id = $1`

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

// GetHolder reads a holder including soft-deleted records, so ledger history
// stays resolvable to a name.
func (r *AdminRepository) GetHolder(ctx context.Context, holderID string) (domain.Holder, error) {
	const query = `
SELECT id, name, rank, status, can_transact, created_at
FROM holders
WHERE id = $1`

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

func (r *AdminRepository) SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) error {
	const stmt = `UPDATE assets SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, assetID, string(status))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set asset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *AdminRepository) SetHolderStatus(ctx context.Context, holderID string, status domain.HolderStatus) error {
	const stmt = `UPDATE holders SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, holderID, string(status))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set holder status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHolderNotFound
	}
	return nil
}

func (r *AdminRepository) SetHolderCanTransact(ctx context.Context, holderID string, canTransact bool) error {
	const stmt = `UPDATE holders SET can_transact = $2 WHERE id = $1 AND status <> 'deleted'`

	tag, err := r.exec(ctx, stmt, holderID, canTransact)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set holder eligibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHolderNotFound
	}
	return nil
}

// DeleteAsset hard-deletes an asset with no movement history. The RESTRICT
// foreign key refuses the delete once ledger entries reference it.
func (r *AdminRepository) DeleteAsset(ctx context.Context, assetID string) error {
	const stmt = `DELETE FROM assets WHERE id = $1`

	tag, err := r.exec(ctx, stmt, assetID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetInUse
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

func (r *AdminRepository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	const query = `
SELECT id, category, serial_number, condition, status, created_at
FROM assets
ORDER BY serial_number`

	rows, err := r.query(ctx, query)
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

	rows, err := r.query(ctx, query)
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

func (r *AdminRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AdminRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AdminRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
