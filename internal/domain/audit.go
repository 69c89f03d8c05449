package domain

import "time"

// AuditEvent records who performed a mutation, on what, and when. Events are
// append-only and purely observational; a missing event never invalidates the
// mutation it describes.
type AuditEvent struct {
	ID         string
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Details    string
	CreatedAt  time.Time
}

const (
	AuditTargetAsset  = "asset"
	AuditTargetHolder = "holder"
	AuditTargetLedger = "ledger_entry"
)
