package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// Reporter is the read-only query surface consumed by the UI.
type Reporter interface {
	ListOpenHoldings(ctx context.Context) ([]domain.OpenHolding, error)
	AssetHistory(ctx context.Context, assetID string) ([]domain.LedgerEntry, error)
	HolderHistory(ctx context.Context, holderID string) ([]domain.LedgerEntry, error)
}

// HandleOpenHoldings returns the handler for GET /holdings/open.
func HandleOpenHoldings(svc Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		holdings, err := svc.ListOpenHoldings(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]openHoldingResponse, 0, len(holdings))
		for _, h := range holdings {
			out = append(out, openHoldingResponse{
				AssetID:      h.AssetID,
				SerialNumber: h.SerialNumber,
				Category:     h.Category,
				HolderID:     h.HolderID,
				HolderName:   h.HolderName,
				TakenAt:      h.TakenAt,
				OperatorID:   h.OperatorID,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// HandleAssetHistory serves GET /assets/{id}/history.
func HandleAssetHistory(svc Reporter) http.HandlerFunc {
	return historyHandler("assets", svc.AssetHistory)
}

// HandleHolderHistory serves GET /holders/{id}/history.
func HandleHolderHistory(svc Reporter) http.HandlerFunc {
	return historyHandler("holders", svc.HolderHistory)
}

func historyHandler(root string, fetch func(ctx context.Context, id string) ([]domain.LedgerEntry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		id, ok := parseHistoryPath(r.URL.Path, root)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		entries, err := fetch(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entryResponses(entries))
	}
}

func parseHistoryPath(path, root string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != root || parts[2] != "history" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type openHoldingResponse struct {
	AssetID      string    `json:"asset_id"`
	SerialNumber string    `json:"serial_number"`
	Category     string    `json:"category"`
	HolderID     string    `json:"holder_id"`
	HolderName   string    `json:"holder_name"`
	TakenAt      time.Time `json:"taken_at"`
	OperatorID   string    `json:"operator_id"`
}
