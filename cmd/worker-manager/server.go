package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// newOpsRouter serves liveness, readiness and Prometheus metrics. Readiness
// runs every check and reports each failure by name.
func newOpsRouter(metricsPath string, checks map[string]Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		failures := map[string]string{}
		for name, check := range checks {
			if err := check(req.Context()); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"checks": failures,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
	})

	r.Handle(metricsPath, promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
