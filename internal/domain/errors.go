package domain

import "errors"

var (
	ErrAssetNotFound        = errors.New("asset not found")
	ErrHolderNotFound       = errors.New("holder not found")
	ErrAssetUnavailable     = errors.New("asset unavailable")
	ErrHolderAlreadyHolding = errors.New("holder already holding an asset")
	ErrHolderIneligible     = errors.New("holder ineligible")
	ErrReturnMismatch       = errors.New("return does not match open issue")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidID            = errors.New("invalid id")
	ErrSerialRequired       = errors.New("serial number required")
	ErrSerialTaken          = errors.New("serial number already registered")
	ErrNameRequired         = errors.New("name required")
	ErrAssetIssued          = errors.New("asset currently issued")
	ErrAssetInUse           = errors.New("asset referenced by ledger entries")
	ErrBusy                 = errors.New("row busy, retry later")
	// ErrLedgerGuard is surfaced when the storage-level rule set rejects a
	// write. The application layer should have rejected it first, so any
	// occurrence is a defect, not a user error.
	ErrLedgerGuard = errors.New("ledger guard violation")
)

// ErrorCode maps an error to a stable machine-readable code shared by the
// HTTP error envelope and the rejection metrics.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, ErrHolderNotFound):
		return "holder_not_found"
	case errors.Is(err, ErrAssetUnavailable):
		return "asset_unavailable"
	case errors.Is(err, ErrHolderAlreadyHolding):
		return "holder_already_holding"
	case errors.Is(err, ErrHolderIneligible):
		return "holder_ineligible"
	case errors.Is(err, ErrReturnMismatch):
		return "return_mismatch"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, ErrSerialRequired):
		return "serial_required"
	case errors.Is(err, ErrSerialTaken):
		return "serial_taken"
	case errors.Is(err, ErrNameRequired):
		return "name_required"
	case errors.Is(err, ErrAssetIssued):
		return "asset_issued"
	case errors.Is(err, ErrAssetInUse):
		return "asset_in_use"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrLedgerGuard):
		return "ledger_guard_violation"
	}
	return "internal_error"
}
