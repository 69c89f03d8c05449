package domain

import "time"

type HolderStatus string

const (
	HolderActive   HolderStatus = "active"
	HolderInactive HolderStatus = "inactive"
	// HolderDeleted marks a soft-deleted record. Deleted holders are invisible
	// to transactional reads but remain resolvable from ledger history.
	HolderDeleted HolderStatus = "deleted"
)

// Holder is a person eligible to be issued an asset.
type Holder struct {
	ID          string
	Name        string
	Rank        string
	Status      HolderStatus
	CanTransact bool
	CreatedAt   time.Time
}

// Eligible reports whether the holder may take an asset right now.
func (h Holder) Eligible() bool {
	return h.Status == HolderActive && h.CanTransact
}

// ValidHolderStatus reports whether s is one of the known holder states.
func ValidHolderStatus(s HolderStatus) bool {
	switch s {
	case HolderActive, HolderInactive, HolderDeleted:
		return true
	}
	return false
}
