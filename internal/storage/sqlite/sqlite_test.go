package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/app"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/audit"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/clock"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/locking"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(context.Background(), filepath.Join(t.TempDir(), "armguard.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })
	return db
}

func insertAsset(t *testing.T, db *sql.DB, serial string, status domain.AssetStatus) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO assets (id, category, serial_number, condition, status, created_at) VALUES (?, 'rifle', ?, 'serviceable', ?, ?)`,
		id, serial, string(status), time.Now().UTC())
	if err != nil {
		t.Fatalf("insert asset: %v", err)
	}
	return id
}

func insertHolder(t *testing.T, db *sql.DB, name string, status domain.HolderStatus, canTransact bool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO holders (id, name, rank, status, can_transact, created_at) VALUES (?, ?, 'sgt', ?, ?, ?)`,
		id, name, string(status), canTransact, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert holder: %v", err)
	}
	return id
}

func newLedgerService(t *testing.T, db *sql.DB) *app.LedgerService {
	t.Helper()
	locks := locking.NewManager()
	repo := NewLedgerRepository(db, locks, 2*time.Second)
	auditor := audit.NewRecorder(NewAuditRepository(db))
	return app.NewLedgerService(repo, auditor, clock.NewSystem(), nil, nil)
}

func TestLedgerTakeReturnFlow(t *testing.T) {
	db := newTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	assetID := insertAsset(t, db, "SN-1", domain.AssetAvailable)
	holderID := insertHolder(t, db, "Smith", domain.HolderActive, true)
	otherID := insertHolder(t, db, "Jones", domain.HolderActive, true)

	entry, err := svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: holderID, AssetID: assetID, Action: domain.ActionTake,
		OperatorID: "OP-1", Magazines: 3, Rounds: 90, Purpose: "range duty",
	})
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected entry ID to be set")
	}

	var status string
	if err := db.QueryRowContext(ctx, `SELECT status FROM assets WHERE id = ?`, assetID).Scan(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != string(domain.AssetIssued) {
		t.Fatalf("expected issued, got %s", status)
	}

	_, err = svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: otherID, AssetID: assetID, Action: domain.ActionTake, OperatorID: "OP-1",
	})
	if !errors.Is(err, domain.ErrAssetUnavailable) {
		t.Fatalf("expected ErrAssetUnavailable, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: otherID, AssetID: assetID, Action: domain.ActionReturn, OperatorID: "OP-1",
	})
	if !errors.Is(err, domain.ErrReturnMismatch) {
		t.Fatalf("expected ErrReturnMismatch, got %v", err)
	}

	if _, err := svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: holderID, AssetID: assetID, Action: domain.ActionReturn, OperatorID: "OP-1",
	}); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT status FROM assets WHERE id = ?`, assetID).Scan(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != string(domain.AssetAvailable) {
		t.Fatalf("expected available after return, got %s", status)
	}

	var audits int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 2 {
		t.Fatalf("expected 2 audit events, got %d", audits)
	}
}

func TestLedgerConcurrentTakesOneWinner(t *testing.T) {
	db := newTestDB(t)
	svc := newLedgerService(t, db)

	assetID := insertAsset(t, db, "SN-1", domain.AssetAvailable)
	holderA := insertHolder(t, db, "Smith", domain.HolderActive, true)
	holderB := insertHolder(t, db, "Jones", domain.HolderActive, true)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, holderID := range []string{holderA, holderB} {
		wg.Add(1)
		go func(i int, holderID string) {
			defer wg.Done()
			_, errs[i] = svc.RecordTransaction(context.Background(), app.TransactionInput{
				HolderID: holderID, AssetID: assetID, Action: domain.ActionTake, OperatorID: "OP-1",
			})
		}(i, holderID)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrAssetUnavailable), errors.Is(err, domain.ErrBusy):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || rejections != 1 {
		t.Fatalf("expected exactly one winner, got %d wins / %d rejections", wins, rejections)
	}

	var entries int
	if err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM ledger_entries`).Scan(&entries); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", entries)
	}
}

func TestLedgerGuardCatchesDirectWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assetID := insertAsset(t, db, "SN-1", domain.AssetAvailable)
	holderA := insertHolder(t, db, "Smith", domain.HolderActive, true)
	holderB := insertHolder(t, db, "Jones", domain.HolderActive, true)

	insert := func(id, holderID, action string) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose)
			 VALUES (?, ?, ?, ?, ?, 'OP-1', 0, 0, '')`,
			id, assetID, holderID, action, time.Now().UTC())
		return err
	}

	if err := insert(uuid.NewString(), holderA, "take"); err != nil {
		t.Fatalf("first take: %v", err)
	}

	// A second open take for the same asset must be rejected in storage even
	// though it never went through the service.
	err := insert(uuid.NewString(), holderB, "take")
	if !isGuardViolation(err) {
		t.Fatalf("expected guard violation for double take, got %v", err)
	}

	// Same for a second asset while the holder's first take is still open.
	otherAsset := insertAsset(t, db, "SN-2", domain.AssetAvailable)
	_, err = db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose)
		 VALUES (?, ?, ?, 'take', ?, 'OP-1', 0, 0, '')`,
		uuid.NewString(), otherAsset, holderA, time.Now().UTC())
	if !isGuardViolation(err) {
		t.Fatalf("expected guard violation for double hold, got %v", err)
	}

	// Return by a holder without the open take.
	err = insert(uuid.NewString(), holderB, "return")
	if !isGuardViolation(err) {
		t.Fatalf("expected guard violation for mismatched return, got %v", err)
	}

	// The matching return passes, and a return with nothing open fails.
	if err := insert(uuid.NewString(), holderA, "return"); err != nil {
		t.Fatalf("matching return: %v", err)
	}
	err = insert(uuid.NewString(), holderA, "return")
	if !isGuardViolation(err) {
		t.Fatalf("expected guard violation for return with nothing open, got %v", err)
	}
}

func TestLedgerEntriesAreAppendOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assetID := insertAsset(t, db, "SN-1", domain.AssetAvailable)
	holderID := insertHolder(t, db, "Smith", domain.HolderActive, true)

	entryID := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, asset_id, holder_id, action, occurred_at, operator_id, magazines, rounds, purpose)
		 VALUES (?, ?, ?, 'take', ?, 'OP-1', 0, 0, '')`,
		entryID, assetID, holderID, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert entry: %v", err)
	}

	if _, err := db.ExecContext(ctx, `UPDATE ledger_entries SET purpose = 'edited' WHERE id = ?`, entryID); !isGuardViolation(err) {
		t.Fatalf("expected update to be rejected, got %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, entryID); !isGuardViolation(err) {
		t.Fatalf("expected delete to be rejected, got %v", err)
	}
}

func TestAdminRepository(t *testing.T) {
	db := newTestDB(t)
	svc := newLedgerService(t, db)
	repo := NewAdminRepository(db, locking.NewManager(), 2*time.Second)
	ctx := context.Background()

	t.Run("duplicate serial", func(t *testing.T) {
		asset := domain.Asset{ID: uuid.NewString(), SerialNumber: "SN-DUP", Status: domain.AssetAvailable, CreatedAt: time.Now().UTC()}
		if err := repo.CreateAsset(ctx, asset); err != nil {
			t.Fatalf("create asset: %v", err)
		}
		asset.ID = uuid.NewString()
		if err := repo.CreateAsset(ctx, asset); !errors.Is(err, domain.ErrSerialTaken) {
			t.Fatalf("expected ErrSerialTaken, got %v", err)
		}
	})

	t.Run("delete asset with history is blocked", func(t *testing.T) {
		assetID := insertAsset(t, db, "SN-HIST", domain.AssetAvailable)
		holderID := insertHolder(t, db, "Smith", domain.HolderActive, true)
		if _, err := svc.RecordTransaction(ctx, app.TransactionInput{
			HolderID: holderID, AssetID: assetID, Action: domain.ActionTake, OperatorID: "OP-1",
		}); err != nil {
			t.Fatalf("take: %v", err)
		}
		if err := repo.DeleteAsset(ctx, assetID); !errors.Is(err, domain.ErrAssetInUse) {
			t.Fatalf("expected ErrAssetInUse, got %v", err)
		}

		open, err := repo.HolderHasOpenEntry(ctx, holderID)
		if err != nil {
			t.Fatalf("holder open entry: %v", err)
		}
		if !open {
			t.Fatalf("expected holder to read as holding")
		}

		if _, err := svc.RecordTransaction(ctx, app.TransactionInput{
			HolderID: holderID, AssetID: assetID, Action: domain.ActionReturn, OperatorID: "OP-1",
		}); err != nil {
			t.Fatalf("return: %v", err)
		}
		open, err = repo.HolderHasOpenEntry(ctx, holderID)
		if err != nil {
			t.Fatalf("holder open entry: %v", err)
		}
		if open {
			t.Fatalf("expected no open entry after return")
		}
	})

	t.Run("delete untouched asset", func(t *testing.T) {
		assetID := insertAsset(t, db, "SN-FRESH", domain.AssetAvailable)
		if err := repo.DeleteAsset(ctx, assetID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.DeleteAsset(ctx, assetID); !errors.Is(err, domain.ErrAssetNotFound) {
			t.Fatalf("expected ErrAssetNotFound, got %v", err)
		}
	})

	t.Run("soft-deleted holders are filtered", func(t *testing.T) {
		holderID := insertHolder(t, db, "Gone", domain.HolderDeleted, true)

		holders, err := repo.ListHolders(ctx, false)
		if err != nil {
			t.Fatalf("list holders: %v", err)
		}
		for _, h := range holders {
			if h.ID == holderID {
				t.Fatalf("deleted holder leaked into default listing")
			}
		}

		all, err := repo.ListHolders(ctx, true)
		if err != nil {
			t.Fatalf("list holders: %v", err)
		}
		found := false
		for _, h := range all {
			if h.ID == holderID {
				found = true
			}
		}
		if !found {
			t.Fatalf("deleted holder missing from full listing")
		}
	})
}

func TestReportRepository(t *testing.T) {
	db := newTestDB(t)
	svc := newLedgerService(t, db)
	reports := NewReportRepository(db)
	ctx := context.Background()

	assetID := insertAsset(t, db, "SN-1", domain.AssetAvailable)
	holderID := insertHolder(t, db, "Smith", domain.HolderActive, true)

	if _, err := svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: holderID, AssetID: assetID, Action: domain.ActionTake, OperatorID: "OP-1",
	}); err != nil {
		t.Fatalf("take: %v", err)
	}

	open, err := reports.ListOpenHoldings(ctx)
	if err != nil {
		t.Fatalf("open holdings: %v", err)
	}
	if len(open) != 1 || open[0].AssetID != assetID || open[0].HolderID != holderID {
		t.Fatalf("unexpected open holdings: %+v", open)
	}

	if _, err := svc.RecordTransaction(ctx, app.TransactionInput{
		HolderID: holderID, AssetID: assetID, Action: domain.ActionReturn, OperatorID: "OP-1",
	}); err != nil {
		t.Fatalf("return: %v", err)
	}

	open, err = reports.ListOpenHoldings(ctx)
	if err != nil {
		t.Fatalf("open holdings: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open holdings after return, got %d", len(open))
	}

	history, err := reports.AssetHistory(ctx, assetID)
	if err != nil {
		t.Fatalf("asset history: %v", err)
	}
	if len(history) != 2 || history[0].Action != domain.ActionTake || history[1].Action != domain.ActionReturn {
		t.Fatalf("unexpected asset history: %+v", history)
	}
	if history[0].Seq >= history[1].Seq {
		t.Fatalf("expected history in seq order")
	}

	history, err = reports.HolderHistory(ctx, holderID)
	if err != nil {
		t.Fatalf("holder history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 holder entries, got %d", len(history))
	}
}

func TestConnectionPragmas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var fk int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign_keys on, got %d", fk)
	}

	var mode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("read journal_mode pragma: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected wal journal mode, got %q", mode)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := createSchema(context.Background(), db); err != nil {
		t.Fatalf("reapply schema: %v", err)
	}
}
