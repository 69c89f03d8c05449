package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/app"
	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/domain"
)

func newTestMux(ledger *stubLedger, admin *stubAdmin, report *stubReporter) *http.ServeMux {
	if ledger == nil {
		ledger = &stubLedger{}
	}
	if admin == nil {
		admin = &stubAdmin{}
	}
	if report == nil {
		report = &stubReporter{}
	}
	return NewMux(Services{Ledger: ledger, Report: report, Admin: admin}, nil)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(operatorHeader, "OP-1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out
}

func TestHandleRecordTransaction(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ledger := &stubLedger{entry: domain.LedgerEntry{
			ID: "E-1", AssetID: "A-1", HolderID: "H-1", Action: domain.ActionTake,
			OccurredAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		}}
		mux := newTestMux(ledger, nil, nil)

		rec := doJSON(t, mux, http.MethodPost, "/transactions",
			`{"holder_id":"H-1","asset_id":"A-1","action":"take","operator_id":"OP-1","magazines":3,"rounds":90}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if ledger.got.Magazines != 3 || ledger.got.Rounds != 90 {
			t.Fatalf("input not forwarded: %+v", ledger.got)
		}
		var resp entryResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if resp.ID != "E-1" || resp.Action != "take" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("business rejection is a conflict", func(t *testing.T) {
		mux := newTestMux(&stubLedger{err: domain.ErrAssetUnavailable}, nil, nil)

		rec := doJSON(t, mux, http.MethodPost, "/transactions",
			`{"holder_id":"H-1","asset_id":"A-1","action":"take"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if got := decodeError(t, rec).Code; got != "asset_unavailable" {
			t.Fatalf("unexpected code %q", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mux := newTestMux(&stubLedger{err: domain.ErrAssetNotFound}, nil, nil)

		rec := doJSON(t, mux, http.MethodPost, "/transactions",
			`{"holder_id":"H-1","asset_id":"A-1","action":"take"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("contention maps to 503 with retry hint", func(t *testing.T) {
		mux := newTestMux(&stubLedger{err: domain.ErrBusy}, nil, nil)

		rec := doJSON(t, mux, http.MethodPost, "/transactions",
			`{"holder_id":"H-1","asset_id":"A-1","action":"take"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After header")
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		mux := newTestMux(nil, nil, nil)

		rec := doJSON(t, mux, http.MethodPost, "/transactions", `{"bogus":true}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		mux := newTestMux(nil, nil, nil)

		rec := doJSON(t, mux, http.MethodGet, "/transactions", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}

func TestReportRoutes(t *testing.T) {
	report := &stubReporter{
		holdings: []domain.OpenHolding{{AssetID: "A-1", HolderID: "H-1", HolderName: "Smith"}},
		entries: []domain.LedgerEntry{
			{ID: "E-1", AssetID: "A-1", HolderID: "H-1", Action: domain.ActionTake},
		},
	}
	mux := newTestMux(nil, nil, report)

	t.Run("open holdings", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/holdings/open", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out []openHoldingResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(out) != 1 || out[0].AssetID != "A-1" {
			t.Fatalf("unexpected holdings: %+v", out)
		}
	})

	t.Run("asset history", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/assets/A-1/history", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if report.lastAssetID != "A-1" {
			t.Fatalf("expected asset id forwarded, got %q", report.lastAssetID)
		}
	})

	t.Run("holder history", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/holders/H-1/history", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if report.lastHolderID != "H-1" {
			t.Fatalf("expected holder id forwarded, got %q", report.lastHolderID)
		}
	})

	t.Run("malformed history path", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/assets/A-1/extra/history", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestAdminRoutes(t *testing.T) {
	t.Run("create asset", func(t *testing.T) {
		admin := &stubAdmin{asset: domain.Asset{ID: "A-1", SerialNumber: "SN-1", Status: domain.AssetAvailable}}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodPost, "/admin/assets",
			`{"category":"rifle","serial_number":"SN-1","condition":"serviceable"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if admin.gotAsset.OperatorID != "OP-1" {
			t.Fatalf("expected operator from header, got %q", admin.gotAsset.OperatorID)
		}
	})

	t.Run("duplicate serial is a conflict", func(t *testing.T) {
		admin := &stubAdmin{err: domain.ErrSerialTaken}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodPost, "/admin/assets", `{"serial_number":"SN-1"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("get asset", func(t *testing.T) {
		admin := &stubAdmin{asset: domain.Asset{ID: "A-1", SerialNumber: "SN-1", Status: domain.AssetIssued}}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodGet, "/admin/assets/A-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp assetResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if resp.ID != "A-1" || resp.Status != "issued" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("get unknown holder", func(t *testing.T) {
		admin := &stubAdmin{err: domain.ErrHolderNotFound}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodGet, "/admin/holders/H-404", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("set asset status", func(t *testing.T) {
		admin := &stubAdmin{}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodPost, "/admin/assets/A-1/status", `{"status":"maintenance"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if admin.gotStatusID != "A-1" || admin.gotAssetStatus != domain.AssetMaintenance {
			t.Fatalf("unexpected call: id=%q status=%q", admin.gotStatusID, admin.gotAssetStatus)
		}
	})

	t.Run("delete issued asset is a conflict", func(t *testing.T) {
		admin := &stubAdmin{err: domain.ErrAssetInUse}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodDelete, "/admin/assets/A-1", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("holder eligibility", func(t *testing.T) {
		admin := &stubAdmin{}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodPost, "/admin/holders/H-1/eligibility", `{"can_transact":false}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if admin.gotEligibilityID != "H-1" || admin.gotCanTransact {
			t.Fatalf("unexpected call: id=%q can_transact=%t", admin.gotEligibilityID, admin.gotCanTransact)
		}
	})

	t.Run("list holders forwards include_deleted", func(t *testing.T) {
		admin := &stubAdmin{}
		mux := newTestMux(nil, admin, nil)

		rec := doJSON(t, mux, http.MethodGet, "/admin/holders?include_deleted=true", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !admin.gotIncludeDeleted {
			t.Fatalf("expected include_deleted forwarded")
		}
	})
}

func TestUnknownRoute(t *testing.T) {
	mux := newTestMux(nil, nil, nil)

	rec := doJSON(t, mux, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != codeNotFound {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestHealthRoute(t *testing.T) {
	mux := newTestMux(nil, nil, nil)

	rec := doJSON(t, mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

type stubLedger struct {
	entry domain.LedgerEntry
	err   error
	got   app.TransactionInput
}

func (s *stubLedger) RecordTransaction(_ context.Context, in app.TransactionInput) (domain.LedgerEntry, error) {
	s.got = in
	if s.err != nil {
		return domain.LedgerEntry{}, s.err
	}
	return s.entry, nil
}

type stubReporter struct {
	holdings     []domain.OpenHolding
	entries      []domain.LedgerEntry
	err          error
	lastAssetID  string
	lastHolderID string
}

func (s *stubReporter) ListOpenHoldings(context.Context) ([]domain.OpenHolding, error) {
	return s.holdings, s.err
}

func (s *stubReporter) AssetHistory(_ context.Context, assetID string) ([]domain.LedgerEntry, error) {
	s.lastAssetID = assetID
	return s.entries, s.err
}

func (s *stubReporter) HolderHistory(_ context.Context, holderID string) ([]domain.LedgerEntry, error) {
	s.lastHolderID = holderID
	return s.entries, s.err
}

type stubAdmin struct {
	asset  domain.Asset
	holder domain.Holder
	err    error

	gotAsset          app.CreateAssetInput
	gotHolder         app.CreateHolderInput
	gotStatusID       string
	gotAssetStatus    domain.AssetStatus
	gotEligibilityID  string
	gotCanTransact    bool
	gotIncludeDeleted bool
}

func (s *stubAdmin) CreateAsset(_ context.Context, in app.CreateAssetInput) (domain.Asset, error) {
	s.gotAsset = in
	if s.err != nil {
		return domain.Asset{}, s.err
	}
	return s.asset, nil
}

func (s *stubAdmin) CreateHolder(_ context.Context, in app.CreateHolderInput) (domain.Holder, error) {
	s.gotHolder = in
	if s.err != nil {
		return domain.Holder{}, s.err
	}
	return s.holder, nil
}

func (s *stubAdmin) GetAsset(_ context.Context, _ string) (domain.Asset, error) {
	if s.err != nil {
		return domain.Asset{}, s.err
	}
	return s.asset, nil
}

func (s *stubAdmin) GetHolder(_ context.Context, _ string) (domain.Holder, error) {
	if s.err != nil {
		return domain.Holder{}, s.err
	}
	return s.holder, nil
}

func (s *stubAdmin) SetAssetStatus(_ context.Context, assetID string, status domain.AssetStatus, _ string) error {
	s.gotStatusID = assetID
	s.gotAssetStatus = status
	return s.err
}

func (s *stubAdmin) SetHolderStatus(_ context.Context, holderID string, status domain.HolderStatus, _ string) error {
	s.gotStatusID = holderID
	return s.err
}

func (s *stubAdmin) SetHolderCanTransact(_ context.Context, holderID string, canTransact bool, _ string) error {
	s.gotEligibilityID = holderID
	s.gotCanTransact = canTransact
	return s.err
}

func (s *stubAdmin) DeleteAsset(_ context.Context, _, _ string) error {
	return s.err
}

func (s *stubAdmin) ListAssets(context.Context) ([]domain.Asset, error) {
	return nil, s.err
}

func (s *stubAdmin) ListHolders(_ context.Context, includeDeleted bool) ([]domain.Holder, error) {
	s.gotIncludeDeleted = includeDeleted
	return nil, s.err
}
