package domain

import "time"

type Action string

const (
	ActionTake   Action = "take"
	ActionReturn Action = "return"
)

// ValidAction reports whether a is a known ledger action.
func ValidAction(a Action) bool {
	return a == ActionTake || a == ActionReturn
}

// LedgerEntry is an immutable record of a take or return event. Entries are
// only ever inserted; Seq is the storage-assigned total order over the table.
// Magazines, rounds and purpose are opaque issue metadata and play no part in
// the invariant logic.
type LedgerEntry struct {
	Seq        int64
	ID         string
	AssetID    string
	HolderID   string
	Action     Action
	OccurredAt time.Time
	OperatorID string
	Magazines  int
	Rounds     int
	Purpose    string
}

// OpenHolding is the reporting view of a currently issued asset.
type OpenHolding struct {
	AssetID      string
	SerialNumber string
	Category     string
	HolderID     string
	HolderName   string
	TakenAt      time.Time
	OperatorID   string
}
