package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fortuna/ceres/internal/engine"
	"github.com/fortuna/ceres/internal/service"
	"github.com/gorilla/mux"
)

// ProjectionAPI is what the handlers need from the projection service
type ProjectionAPI interface {
	Weekly(ctx context.Context, req engine.WeeklyRequest) (engine.Table, error)
	Seasonal(ctx context.Context, req engine.SeasonalRequest) (engine.Table, error)
	Player(ctx context.Context, req engine.PlayerRequest) (engine.Row, error)
	Fit(ctx context.Context, seasons []int) (engine.Status, error)
	Status() engine.Status
}

// AvailabilityAPI is what the handlers need from the availability service
type AvailabilityAPI interface {
	Summary(ctx context.Context) service.AvailabilitySummary
}

// HealthCheck names one dependency probe for /health.
type HealthCheck struct {
	Name  string
	Check func() error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	projections  ProjectionAPI
	availability AvailabilityAPI
	checks       []HealthCheck
}

// NewHandler creates a new handler
func NewHandler(projections ProjectionAPI, availabilitySvc AvailabilityAPI, checks []HealthCheck) *Handler {
	return &Handler{
		projections:  projections,
		availability: availabilitySvc,
		checks:       checks,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(); err != nil {
			deps[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[c.Name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"service":      "ceres",
		"version":      "1.0.0",
		"dependencies": deps,
		"engine":       h.projections.Status(),
	})
}

// GetWeeklyProjections handles GET /api/v1/projections/weekly?week=N&season=Y&positions=QB,RB&player_ids=...
func (h *Handler) GetWeeklyProjections(w http.ResponseWriter, r *http.Request) {
	week, err := intParam(r, "week", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid week", err)
		return
	}
	season, err := intParam(r, "season", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season", err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	table, err := h.projections.Weekly(r.Context(), engine.WeeklyRequest{
		Week:   week,
		Season: season,
		Filter: filterParams(r),
	})
	if err != nil {
		respondEngineError(w, "Failed to compute weekly projections", err)
		return
	}

	respondJSON(w, http.StatusOK, limitRows(table, limit))
}

// GetSeasonalProjections handles GET /api/v1/projections/seasonal?season=Y
func (h *Handler) GetSeasonalProjections(w http.ResponseWriter, r *http.Request) {
	season, err := intParam(r, "season", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season", err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	table, err := h.projections.Seasonal(r.Context(), engine.SeasonalRequest{
		Season: season,
		Filter: filterParams(r),
	})
	if err != nil {
		respondEngineError(w, "Failed to compute seasonal projections", err)
		return
	}

	respondJSON(w, http.StatusOK, limitRows(table, limit))
}

// GetPlayerProjection handles GET /api/v1/players/{playerID}/projection?type=weekly&week=N
func (h *Handler) GetPlayerProjection(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerID"]

	kind := engine.Kind(strings.ToLower(r.URL.Query().Get("type")))
	switch kind {
	case "", engine.KindWeekly, engine.KindSeasonal:
	default:
		respondError(w, http.StatusBadRequest, "Invalid type (weekly or seasonal)", nil)
		return
	}

	week, err := intParam(r, "week", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid week", err)
		return
	}
	season, err := intParam(r, "season", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season", err)
		return
	}

	row, err := h.projections.Player(r.Context(), engine.PlayerRequest{
		PlayerID: playerID,
		Kind:     kind,
		Week:     week,
		Season:   season,
	})
	if err != nil {
		respondEngineError(w, "Failed to project player", err)
		return
	}

	respondJSON(w, http.StatusOK, row)
}

// GetAvailabilitySummary handles GET /api/v1/availability/summary
func (h *Handler) GetAvailabilitySummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.availability.Summary(r.Context()))
}

// GetEngineStatus handles GET /api/v1/engine/status
func (h *Handler) GetEngineStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.projections.Status())
}

// FitEngine handles POST /api/v1/engine/fit?seasons=2022,2023
func (h *Handler) FitEngine(w http.ResponseWriter, r *http.Request) {
	seasons, err := intListParam(r, "seasons")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid seasons", err)
		return
	}

	status, err := h.projections.Fit(r.Context(), seasons)
	if err != nil {
		respondEngineError(w, "Failed to fit models", err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func filterParams(r *http.Request) engine.Filter {
	q := r.URL.Query()
	return engine.Filter{
		Positions: splitValues(append(q["positions"], q["position"]...)),
		PlayerIDs: splitValues(append(q["player_ids"], q["player_id"]...)),
	}
}

// splitValues accepts both repeated parameters and comma-separated lists.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func intListParam(r *http.Request, name string) ([]int, error) {
	var out []int
	for _, part := range splitValues(r.URL.Query()[name]) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a year", name, part)
		}
		out = append(out, v)
	}
	return out, nil
}

func limitRows(table engine.Table, limit int) engine.Table {
	if limit > 0 {
		table.Rows = table.Top(limit)
	}
	return table
}

// respondEngineError maps engine sentinel errors onto HTTP statuses
func respondEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrWeekRequired):
		respondError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, engine.ErrUnsupportedPosition):
		respondError(w, http.StatusUnprocessableEntity, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
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
