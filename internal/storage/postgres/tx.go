package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

type txKey struct{}

// defaultLockWait bounds FOR UPDATE waits so contended rows surface as a
// retryable busy error instead of piling requests up.
const defaultLockWait = 5 * time.Second

func withTx(ctx context.Context, pool *pgxpool.Pool, lockWait time.Duration, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockWait.Milliseconds())); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("set lock timeout: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// isGuardViolation matches errors raised by the ledger guard trigger.
func isGuardViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "P0001" && pgErr.ConstraintName == "" &&
		len(pgErr.Message) >= len(guardPrefix) && pgErr.Message[:len(guardPrefix)] == guardPrefix
}

const guardPrefix = "ledger guard:"

// mapRowError translates the pg error space shared by the FOR UPDATE reads.
func mapRowError(err error, notFound error) error {
	switch {
	case err == pgx.ErrNoRows:
		return notFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	case isLockTimeout(err):
		return domain.ErrBusy
	}
	return err
}
