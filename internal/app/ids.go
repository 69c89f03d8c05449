package app

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// newEntryID returns a time-ordered UUIDv7 so ledger and audit ids sort by
// creation time.
func newEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}
