package domain

import "time"

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetIssued      AssetStatus = "issued"
	AssetMaintenance AssetStatus = "maintenance"
	AssetRetired     AssetStatus = "retired"
)

// Asset is a physical accountable item (weapon, optic, radio). Status is
// written only by the ledger, except for administrative moves to
// maintenance/retired.
type Asset struct {
	ID           string
	Category     string
	SerialNumber string
	Condition    string
	Status       AssetStatus
	CreatedAt    time.Time
}

// ValidAssetStatus reports whether s is one of the known asset states.
func ValidAssetStatus(s AssetStatus) bool {
	switch s {
	case AssetAvailable, AssetIssued, AssetMaintenance, AssetRetired:
		return true
	}
	return false
}
