// Package httpapi assembles the public router. Domain handlers register
// themselves; this package only owns cross-cutting endpoints.
package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	documenthandler "docvault/internal/document/handler"
)

// NewRouter wires all endpoints: the document API plus health and metrics.
// db may be nil when running on the in-memory stores.
func NewRouter(documents *documenthandler.Handler, db *sql.DB) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	documents.Register(r)
	return r
}
