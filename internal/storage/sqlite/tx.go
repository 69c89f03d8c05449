package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/locking"
)

type txKey struct{}

// txState carries the open transaction and the entity locks acquired for it.
// Locks are released when the transaction ends, mirroring FOR UPDATE scope.
type txState struct {
	tx       *sql.Tx
	releases []func()
}

func (st *txState) releaseLocks() {
	for i := len(st.releases) - 1; i >= 0; i-- {
		st.releases[i]()
	}
	st.releases = nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if stateFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	st := &txState{tx: tx}
	defer st.releaseLocks()

	txCtx := context.WithValue(ctx, txKey{}, st)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func stateFromContext(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// lockEntity takes the exclusive lock for key and ties it to the transaction.
// Outside a transaction it is a no-op; plain reads require no lock.
func lockEntity(ctx context.Context, locks *locking.Manager, wait time.Duration, key string) error {
	st := stateFromContext(ctx)
	if st == nil || locks == nil {
		return nil
	}
	release, err := locks.Acquire(ctx, wait, key)
	if err != nil {
		if errors.Is(err, locking.ErrTimeout) {
			return domain.ErrBusy
		}
		return err
	}
	st.releases = append(st.releases, release)
	return nil
}

const guardPrefix = "ledger guard:"

// isGuardViolation matches RAISE(ABORT) errors from the ledger guard
// triggers.
func isGuardViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint &&
		strings.Contains(err.Error(), guardPrefix)
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// isForeignKeyViolation matches both extended codes: immediate FK checks
// raise SQLITE_CONSTRAINT_FOREIGNKEY, but RESTRICT actions run as internal
// triggers and raise SQLITE_CONSTRAINT_TRIGGER.
func isForeignKeyViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintForeignKey ||
		(serr.ExtendedCode == sqlite3.ErrConstraintTrigger &&
			strings.Contains(err.Error(), "FOREIGN KEY constraint failed"))
}
