package http

import (
	"net/http"
)

// Services bundles the application surfaces the router needs.
type Services struct {
	Ledger TransactionRecorder
	Report Reporter
	Admin  AdminAPI
}

// NewMux wires the route table. Metrics (if non-nil) is mounted at /metrics.
func NewMux(svcs Services, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("/transactions", HandleRecordTransaction(svcs.Ledger))
	mux.Handle("/holdings/open", HandleOpenHoldings(svcs.Report))
	mux.Handle("/assets/", HandleAssetHistory(svcs.Report))
	mux.Handle("/holders/", HandleHolderHistory(svcs.Report))
	mux.Handle("/admin/assets", HandleAdminAssets(svcs.Admin))
	mux.Handle("/admin/assets/", HandleAdminAssets(svcs.Admin))
	mux.Handle("/admin/holders", HandleAdminHolders(svcs.Admin))
	mux.Handle("/admin/holders/", HandleAdminHolders(svcs.Admin))
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.Handle("/", NotFoundHandler())
	return mux
}

// HealthHandler reports basic liveness for the service.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
