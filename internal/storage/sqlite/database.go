// Package sqlite implements the storage layer on an embedded SQLite file.
// SQLite has no row-level FOR UPDATE, so exclusive per-entity locks come from
// an in-process lock manager instead; the ledger guard triggers in the schema
// mirror the Postgres rule set.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens (creating if needed) the SQLite database and installs the
// schema, including the ledger guard triggers. The pragmas ride in the DSN
// because they are per-connection state; set by hand they would be lost
// whenever the pool recycles the connection.
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := "file:" + dbPath + "?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Logical locking is handled by the lock manager; a single writer
	// connection keeps SQLite's own write serialization out of the picture.
	db.SetMaxOpenConns(1)

	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

// CloseDB closes the database handle.
func CloseDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func createSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL UNIQUE,
	condition TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'available'
		CHECK (status IN ('available', 'issued', 'maintenance', 'retired')),
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS holders (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	rank TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active'
		CHECK (status IN ('active', 'inactive', 'deleted')),
	can_transact INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	asset_id TEXT NOT NULL REFERENCES assets (id) ON DELETE RESTRICT,
	holder_id TEXT NOT NULL REFERENCES holders (id) ON DELETE RESTRICT,
	action TEXT NOT NULL CHECK (action IN ('take', 'return')),
	occurred_at TIMESTAMP NOT NULL,
	operator_id TEXT NOT NULL DEFAULT '',
	magazines INTEGER NOT NULL DEFAULT 0 CHECK (magazines >= 0),
	rounds INTEGER NOT NULL DEFAULT 0 CHECK (rounds >= 0),
	purpose TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_asset ON ledger_entries (asset_id, seq);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_holder ON ledger_entries (holder_id, seq);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	actor_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE TRIGGER IF NOT EXISTS trg_ledger_guard_take
BEFORE INSERT ON ledger_entries
WHEN NEW.action = 'take'
BEGIN
	SELECT RAISE(ABORT, 'ledger guard: asset already issued')
	WHERE EXISTS (
		SELECT 1 FROM ledger_entries t
		WHERE t.asset_id = NEW.asset_id AND t.action = 'take'
		AND NOT EXISTS (
			SELECT 1 FROM ledger_entries r
			WHERE r.asset_id = t.asset_id AND r.action = 'return' AND r.seq > t.seq
		)
	);
	SELECT RAISE(ABORT, 'ledger guard: holder already holding')
	WHERE EXISTS (
		SELECT 1 FROM ledger_entries t
		WHERE t.holder_id = NEW.holder_id AND t.action = 'take'
		AND NOT EXISTS (
			SELECT 1 FROM ledger_entries r
			WHERE r.asset_id = t.asset_id AND r.action = 'return' AND r.seq > t.seq
		)
	);
END;

CREATE TRIGGER IF NOT EXISTS trg_ledger_guard_return
BEFORE INSERT ON ledger_entries
WHEN NEW.action = 'return'
BEGIN
	SELECT RAISE(ABORT, 'ledger guard: return does not match open issue')
	WHERE NOT EXISTS (
		SELECT 1 FROM ledger_entries t
		WHERE t.asset_id = NEW.asset_id AND t.holder_id = NEW.holder_id AND t.action = 'take'
		AND NOT EXISTS (
			SELECT 1 FROM ledger_entries r
			WHERE r.asset_id = t.asset_id AND r.action = 'return' AND r.seq > t.seq
		)
	);
END;

CREATE TRIGGER IF NOT EXISTS trg_ledger_append_only_update
BEFORE UPDATE ON ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'ledger guard: entries are append-only');
END;

CREATE TRIGGER IF NOT EXISTS trg_ledger_append_only_delete
BEFORE DELETE ON ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'ledger guard: entries are append-only');
END;
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
