package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/app"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

// Authentication lives upstream; the acting operator arrives as a header.
const operatorHeader = "X-Operator-ID"

// AdminAPI covers the registration and lifecycle workflows.
type AdminAPI interface {
	CreateAsset(ctx context.Context, in app.CreateAssetInput) (domain.Asset, error)
	CreateHolder(ctx context.Context, in app.CreateHolderInput) (domain.Holder, error)
	GetAsset(ctx context.Context, assetID string) (domain.Asset, error)
	GetHolder(ctx context.Context, holderID string) (domain.Holder, error)
	SetAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus, operatorID string) error
	SetHolderStatus(ctx context.Context, holderID string, status domain.HolderStatus, operatorID string) error
	SetHolderCanTransact(ctx context.Context, holderID string, canTransact bool, operatorID string) error
	DeleteAsset(ctx context.Context, assetID, operatorID string) error
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	ListHolders(ctx context.Context, includeDeleted bool) ([]domain.Holder, error)
}

// HandleAdminAssets serves /admin/assets and /admin/assets/{id}[/status].
func HandleAdminAssets(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitAdminPath(r.URL.Path, "assets")
		switch {
		case len(parts) == 0 && r.Method == http.MethodGet:
			listAssets(w, r, svc)
		case len(parts) == 0 && r.Method == http.MethodPost:
			createAsset(w, r, svc)
		case len(parts) == 1 && r.Method == http.MethodGet:
			getAsset(w, r, svc, parts[0])
		case len(parts) == 1 && r.Method == http.MethodDelete:
			deleteAsset(w, r, svc, parts[0])
		case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
			setAssetStatus(w, r, svc, parts[0])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// HandleAdminHolders serves /admin/holders and /admin/holders/{id}/....
func HandleAdminHolders(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := splitAdminPath(r.URL.Path, "holders")
		switch {
		case len(parts) == 0 && r.Method == http.MethodGet:
			listHolders(w, r, svc)
		case len(parts) == 0 && r.Method == http.MethodPost:
			createHolder(w, r, svc)
		case len(parts) == 1 && r.Method == http.MethodGet:
			getHolder(w, r, svc, parts[0])
		case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
			setHolderStatus(w, r, svc, parts[0])
		case len(parts) == 2 && parts[1] == "eligibility" && r.Method == http.MethodPost:
			setHolderEligibility(w, r, svc, parts[0])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func splitAdminPath(path, root string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(strings.Trim(path, "/"), "admin"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] != root {
		return nil
	}
	rest := parts[1:]
	if len(rest) == 1 && rest[0] == "" {
		return nil
	}
	return rest
}

func createAsset(w http.ResponseWriter, r *http.Request, svc AdminAPI) {
	var req createAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asset, err := svc.CreateAsset(r.Context(), app.CreateAssetInput{
		Category:     req.Category,
		SerialNumber: req.SerialNumber,
		Condition:    req.Condition,
		OperatorID:   r.Header.Get(operatorHeader),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assetResponseFrom(asset))
}

func listAssets(w http.ResponseWriter, r *http.Request, svc AdminAPI) {
	assets, err := svc.ListAssets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponseFrom(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func getAsset(w http.ResponseWriter, r *http.Request, svc AdminAPI, assetID string) {
	asset, err := svc.GetAsset(r.Context(), assetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assetResponseFrom(asset))
}

func getHolder(w http.ResponseWriter, r *http.Request, svc AdminAPI, holderID string) {
	holder, err := svc.GetHolder(r.Context(), holderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holderResponseFrom(holder))
}

func deleteAsset(w http.ResponseWriter, r *http.Request, svc AdminAPI, assetID string) {
	if err := svc.DeleteAsset(r.Context(), assetID, r.Header.Get(operatorHeader)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setAssetStatus(w http.ResponseWriter, r *http.Request, svc AdminAPI, assetID string) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := svc.SetAssetStatus(r.Context(), assetID, domain.AssetStatus(req.Status), r.Header.Get(operatorHeader)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func createHolder(w http.ResponseWriter, r *http.Request, svc AdminAPI) {
	var req createHolderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	holder, err := svc.CreateHolder(r.Context(), app.CreateHolderInput{
		Name:       req.Name,
		Rank:       req.Rank,
		OperatorID: r.Header.Get(operatorHeader),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, holderResponseFrom(holder))
}

func listHolders(w http.ResponseWriter, r *http.Request, svc AdminAPI) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	holders, err := svc.ListHolders(r.Context(), includeDeleted)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]holderResponse, 0, len(holders))
	for _, h := range holders {
		out = append(out, holderResponseFrom(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func setHolderStatus(w http.ResponseWriter, r *http.Request, svc AdminAPI, holderID string) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := svc.SetHolderStatus(r.Context(), holderID, domain.HolderStatus(req.Status), r.Header.Get(operatorHeader)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setHolderEligibility(w http.ResponseWriter, r *http.Request, svc AdminAPI, holderID string) {
	var req eligibilityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := svc.SetHolderCanTransact(r.Context(), holderID, req.CanTransact, r.Header.Get(operatorHeader)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type createAssetRequest struct {
	Category     string `json:"category"`
	SerialNumber string `json:"serial_number"`
	Condition    string `json:"condition"`
}

type createHolderRequest struct {
	Name string `json:"name"`
	Rank string `json:"rank"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type eligibilityRequest struct {
	CanTransact bool `json:"can_transact"`
}

type assetResponse struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	SerialNumber string    `json:"serial_number"`
	Condition    string    `json:"condition"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func assetResponseFrom(a domain.Asset) assetResponse {
	return assetResponse{
		ID:           a.ID,
		Category:     a.Category,
		SerialNumber: a.SerialNumber,
		Condition:    a.Condition,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
	}
}

type holderResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rank        string    `json:"rank"`
	Status      string    `json:"status"`
	CanTransact bool      `json:"can_transact"`
	CreatedAt   time.Time `json:"created_at"`
}

func holderResponseFrom(h domain.Holder) holderResponse {
	return holderResponse{
		ID:          h.ID,
		Name:        h.Name,
		Rank:        h.Rank,
		Status:      string(h.Status),
		CanTransact: h.CanTransact,
		CreatedAt:   h.CreatedAt,
	}
}
