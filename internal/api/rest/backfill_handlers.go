package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fortuna/ceres/internal/backfill"
	"github.com/fortuna/ceres/internal/ingest/nflverse"
	"github.com/gorilla/mux"
)

// BackfillAPI is what the handlers need from the backfill service
type BackfillAPI interface {
	Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error)
	GetStatus(ctx context.Context) (*backfill.StatusSummary, error)
	Job(id string) (*backfill.Job, bool)
}

// BackfillHandler proxies API calls to the backfill service.
type BackfillHandler struct {
	service BackfillAPI
}

// NewBackfillHandler wires the REST layer to the backfill service.
func NewBackfillHandler(service BackfillAPI) *BackfillHandler {
	return &BackfillHandler{service: service}
}

type apiBackfillRequest struct {
	Season   int      `json:"season"`
	Seasons  []int    `json:"seasons"`
	Datasets []string `json:"datasets"`
	DryRun   bool     `json:"dry_run"`
}

// HandleBackfillRequest handles POST /api/v1/backfill
func (h *BackfillHandler) HandleBackfillRequest(w http.ResponseWriter, r *http.Request) {
	var req apiBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	backfillReq := backfill.Request{
		Seasons: append([]int(nil), req.Seasons...),
		DryRun:  req.DryRun,
	}
	if req.Season != 0 {
		backfillReq.Seasons = append(backfillReq.Seasons, req.Season)
	}

	for _, name := range req.Datasets {
		datasets, err := nflverse.ParseDatasets(name)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid dataset", err)
			return
		}
		backfillReq.Datasets = append(backfillReq.Datasets, datasets...)
	}

	job, err := h.service.Enqueue(r.Context(), backfillReq)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to enqueue backfill job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

// HandleBackfillStatus handles GET /api/v1/backfill/status
func (h *BackfillHandler) HandleBackfillStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	respondJSON(w, http.StatusOK, buildStatusPayload(summary))
}

// HandleBackfillJob handles GET /api/v1/backfill/{jobID}
func (h *BackfillHandler) HandleBackfillJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.service.Job(mux.Vars(r)["jobID"])
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func buildStatusPayload(summary *backfill.StatusSummary) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "idle",
		"message": "No active jobs",
		"history": []*backfill.Job{},
	}

	if summary.ActiveJob != nil {
		response["status"] = summary.ActiveJob.Status
		if summary.ActiveJob.StatusMessage != "" {
			response["message"] = summary.ActiveJob.StatusMessage
		}
		response["active_job"] = summary.ActiveJob
	}

	if len(summary.History) > 0 {
		response["history"] = summary.History
	}
	return response
}
