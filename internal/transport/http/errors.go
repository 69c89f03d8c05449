package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps engine errors onto the JSON envelope. Business
// rejections are conflicts, not-found is not-found, contention asks the
// caller to retry, and anything unexpected stays opaque.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrHolderNotFound):
		writeError(w, http.StatusNotFound, domain.ErrorCode(err), err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrSerialRequired),
		errors.Is(err, domain.ErrNameRequired):
		writeError(w, http.StatusBadRequest, domain.ErrorCode(err), err.Error())
	case errors.Is(err, domain.ErrAssetUnavailable),
		errors.Is(err, domain.ErrHolderAlreadyHolding),
		errors.Is(err, domain.ErrHolderIneligible),
		errors.Is(err, domain.ErrReturnMismatch),
		errors.Is(err, domain.ErrAssetIssued),
		errors.Is(err, domain.ErrAssetInUse),
		errors.Is(err, domain.ErrSerialTaken):
		writeError(w, http.StatusConflict, domain.ErrorCode(err), err.Error())
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, domain.ErrorCode(err), err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
