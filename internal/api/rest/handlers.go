package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/fortuna/matchups/internal/service"
	"github.com/gorilla/mux"
)

// Version is reported by the health check
const Version = "1.0.0"

const notLoadedMessage = "Data not loaded. Please run the scraper first."

// HealthChecker is an optional backing service reported by /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MetricsFunc returns counters reported by /health
type MetricsFunc func() map[string]interface{}

type dependency struct {
	name  string
	check HealthChecker
}

type metricsSource struct {
	name    string
	metrics MetricsFunc
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	stats   *service.StatsService
	deps    []dependency
	metrics []metricsSource
}

// NewHandler creates a new handler
func NewHandler(stats *service.StatsService) *Handler {
	return &Handler{stats: stats}
}

// WithDependency reports check under name in the health response
func (h *Handler) WithDependency(name string, check HealthChecker) *Handler {
	h.deps = append(h.deps, dependency{name: name, check: check})
	return h
}

// WithMetrics reports fn's counters under name in the health response
func (h *Handler) WithMetrics(name string, fn MetricsFunc) *Handler {
	h.metrics = append(h.metrics, metricsSource{name: name, metrics: fn})
	return h
}

// HealthCheck handles health check requests. An unreachable optional
// dependency marks the service degraded but still answers 200, lookups
// keep working without it.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "matchups",
		"version": Version,
	}

	if len(h.deps) > 0 {
		deps := make(map[string]string, len(h.deps))
		for _, d := range h.deps {
			if err := d.check.HealthCheck(r.Context()); err != nil {
				log.Printf("⚠️  Health check %s failed: %v", d.name, err)
				deps[d.name] = "unavailable"
				response["status"] = "degraded"
				continue
			}
			deps[d.name] = "ok"
		}
		response["dependencies"] = deps
	}

	for _, m := range h.metrics {
		response[m.name] = m.metrics()
	}

	respondJSON(w, http.StatusOK, response)
}

// GetPlayer returns every play-type line for a player
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["playerName"]

	profile, err := h.stats.FindPlayer(r.Context(), name)
	if err != nil {
		respondLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// GetDefense returns every defensive play-type line for a team
func (h *Handler) GetDefense(w http.ResponseWriter, r *http.Request) {
	team := mux.Vars(r)["teamName"]

	profile, err := h.stats.FindDefense(r.Context(), team)
	if err != nil {
		respondLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// GetMatchup returns a player's offense against a team's defense
func (h *Handler) GetMatchup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	m, err := h.stats.Matchup(r.Context(), vars["playerName"], vars["teamName"])
	if err != nil {
		respondLookupError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// GetMatchupBrief returns the matchup as plain text for downstream prompts
func (h *Handler) GetMatchupBrief(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	m, err := h.stats.Matchup(r.Context(), vars["playerName"], vars["teamName"])
	if err != nil {
		respondLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(service.Brief(m)))
}

// GetStatus reports cache age and size
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stats.Status())
}

// ReloadCache rereads the snapshot source without restarting
func (h *Handler) ReloadCache(w http.ResponseWriter, r *http.Request) {
	status, err := h.stats.Reload(r.Context())
	if err != nil {
		log.Printf("❌ Manual reload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to reload cache", err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// respondLookupError maps service errors to status codes
func respondLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotLoaded):
		respondError(w, http.StatusServiceUnavailable, notLoadedMessage, nil)
	case errors.Is(err, service.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, "Player not found", nil)
	case errors.Is(err, service.ErrTeamNotFound):
		respondError(w, http.StatusNotFound, "Team not found", nil)
	default:
		respondError(w, http.StatusInternalServerError, "Lookup failed", err)
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}
