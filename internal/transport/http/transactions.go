package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/app"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// TransactionRecorder is the minimal interface needed to record a movement.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, in app.TransactionInput) (domain.LedgerEntry, error)
}

// HandleRecordTransaction returns the handler for POST /transactions.
func HandleRecordTransaction(svc TransactionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req recordTransactionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		entry, err := svc.RecordTransaction(r.Context(), app.TransactionInput{
			HolderID:   req.HolderID,
			AssetID:    req.AssetID,
			Action:     domain.Action(req.Action),
			OperatorID: req.OperatorID,
			Magazines:  req.Magazines,
			Rounds:     req.Rounds,
			Purpose:    req.Purpose,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(entryResponse{
			ID:         entry.ID,
			AssetID:    entry.AssetID,
			HolderID:   entry.HolderID,
			Action:     string(entry.Action),
			OccurredAt: entry.OccurredAt,
			OperatorID: entry.OperatorID,
			Magazines:  entry.Magazines,
			Rounds:     entry.Rounds,
			Purpose:    entry.Purpose,
		})
	}
}

type recordTransactionRequest struct {
	HolderID   string `json:"holder_id"`
	AssetID    string `json:"asset_id"`
	Action     string `json:"action"`
	OperatorID string `json:"operator_id"`
	Magazines  int    `json:"magazines"`
	Rounds     int    `json:"rounds"`
	Purpose    string `json:"purpose"`
}

type entryResponse struct {
	ID         string    `json:"id"`
	AssetID    string    `json:"asset_id"`
	HolderID   string    `json:"holder_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	OperatorID string    `json:"operator_id"`
	Magazines  int       `json:"magazines"`
	Rounds     int       `json:"rounds"`
	Purpose    string    `json:"purpose"`
}

func entryResponses(entries []domain.LedgerEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:         e.ID,
			AssetID:    e.AssetID,
			HolderID:   e.HolderID,
			Action:     string(e.Action),
			OccurredAt: e.OccurredAt,
			OperatorID: e.OperatorID,
			Magazines:  e.Magazines,
			Rounds:     e.Rounds,
			Purpose:    e.Purpose,
		})
	}
	return out
}
