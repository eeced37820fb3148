// Package api exposes the backend HTTP surface consumed by the browser
// extension: onboarding, refresh, history reads, and credential purge.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/madrow1/mist-security-extension/internal/assessment"
	apperrors "github.com/madrow1/mist-security-extension/internal/errors"
	"github.com/madrow1/mist-security-extension/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Router handles HTTP requests
type Router struct {
	mux    *http.ServeMux
	store  *store.Store
	runner *assessment.Runner
}

// NewRouter creates the backend router
func NewRouter(st *store.Store, runner *assessment.Runner, gatherer prometheus.Gatherer) http.Handler {
	r := &Router{
		mux:    http.NewServeMux(),
		store:  st,
		runner: runner,
	}
	r.setupRoutes(gatherer)
	return r
}

func (r *Router) setupRoutes(gatherer prometheus.Gatherer) {
	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/check-existing-data", r.handleCheckExistingData)
	r.mux.HandleFunc("/api/data", r.handleOnboard)
	r.mux.HandleFunc("/api/fetch-new-data", r.handleRefresh)
	r.mux.HandleFunc("/api/latest", r.handleLatest)
	r.mux.HandleFunc("/api/history", r.handleHistory)
	r.mux.HandleFunc("/api/purge-api-key", r.handlePurge)

	if gatherer != nil {
		r.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	started := time.Now()
	r.mux.ServeHTTP(w, req)
	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("elapsed", time.Since(started)).
		Msg("Request handled")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the error taxonomy onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUpstreamUnavailable), errors.Is(err, apperrors.ErrUpstreamMalformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
