package domain

// The issue/return rules are stated once here and called from every write
// path. The storage schemas carry an independent trigger restatement of the
// same rules as a backstop for writes that bypass the application layer.

// ValidateTake checks a take request against the state read under lock.
// openForAsset/openForHolder are the current open take entries for the asset
// and the holder respectively, nil when none exists.
func ValidateTake(asset Asset, holder Holder, openForAsset, openForHolder *LedgerEntry) error {
	if asset.Status != AssetAvailable {
		return ErrAssetUnavailable
	}
	if !holder.Eligible() {
		return ErrHolderIneligible
	}
	// Status says available but an open entry exists: the mirror has drifted.
	// Refuse rather than double-issue.
	if openForAsset != nil {
		return ErrAssetUnavailable
	}
	if openForHolder != nil {
		return ErrHolderAlreadyHolding
	}
	return nil
}

// ValidateReturn checks that the asset's open take entry names this holder.
func ValidateReturn(holder Holder, openForAsset *LedgerEntry) error {
	if openForAsset == nil || openForAsset.HolderID != holder.ID {
		return ErrReturnMismatch
	}
	return nil
}

// ValidateMetadata rejects negative quantity fields. The values themselves
// are opaque to the invariant logic.
func ValidateMetadata(magazines, rounds int) error {
	if magazines < 0 || rounds < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// DeriveAssetStatus computes the status an asset must carry given whether it
// has an open take entry. Administrative states are preserved.
func DeriveAssetStatus(current AssetStatus, open bool) AssetStatus {
	if current == AssetMaintenance || current == AssetRetired {
		return current
	}
	if open {
		return AssetIssued
	}
	return AssetAvailable
}

// OpenEntryForAsset scans a seq-ordered history and returns the asset's open
// take entry, or nil. Used by the reporting layer and by tests to recompute
// status from scratch; the repositories answer the same question in SQL.
func OpenEntryForAsset(entries []LedgerEntry, assetID string) *LedgerEntry {
	var open *LedgerEntry
	for i := range entries {
		e := &entries[i]
		if e.AssetID != assetID {
			continue
		}
		switch e.Action {
		case ActionTake:
			open = e
		case ActionReturn:
			open = nil
		}
	}
	return open
}

// OpenEntryForHolder returns the holder's open take entry, or nil.
func OpenEntryForHolder(entries []LedgerEntry, holderID string) *LedgerEntry {
	byAsset := map[string]*LedgerEntry{}
	for i := range entries {
		e := &entries[i]
		switch e.Action {
		case ActionTake:
			byAsset[e.AssetID] = e
		case ActionReturn:
			delete(byAsset, e.AssetID)
		}
	}
	for _, e := range byAsset {
		if e.HolderID == holderID {
			return e
		}
	}
	return nil
}
