package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"loadgen/internal/load"
	"loadgen/internal/logger"
	"loadgen/pkg/api"
)

// StartCPU handles POST /load/cpu.
// Out-of-range parameters are clamped, never rejected.
func (h *Handlers) StartCPU(w http.ResponseWriter, r *http.Request) {
	var req api.CPULoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := h.loads.StartCPULoad(r.Context(), load.CPURequest{
		Threads:          req.Threads,
		IntensityPercent: req.IntensityPercent,
		DurationSeconds:  req.DurationSeconds,
	})

	logger.FromContext(r.Context(), h.log).Info("cpu load requested",
		"job_id", id.String(),
		"threads", req.Threads,
		"intensity_percent", req.IntensityPercent,
		"duration_seconds", req.DurationSeconds,
	)
	h.respondJson(w, http.StatusOK, api.StartLoadResponse{JobID: id.String()})
}

// StartMemory handles POST /load/memory.
func (h *Handlers) StartMemory(w http.ResponseWriter, r *http.Request) {
	var req api.MemoryLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := h.loads.StartMemoryLoad(r.Context(), load.MemoryRequest{
		Megabytes:        req.Megabytes,
		DurationSeconds:  req.DurationSeconds,
		HoldUntilStopped: req.HoldUntilStopped,
	})

	logger.FromContext(r.Context(), h.log).Info("memory load requested",
		"job_id", id.String(),
		"megabytes", req.Megabytes,
		"duration_seconds", req.DurationSeconds,
		"hold_until_stopped", req.HoldUntilStopped,
	)
	h.respondJson(w, http.StatusOK, api.StartLoadResponse{JobID: id.String()})
}

// StopJob handles POST /load/{jobId}/stop.
func (h *Handlers) StopJob(w http.ResponseWriter, r *http.Request) {
	id := load.JobID(r.PathValue("jobId"))
	if !h.loads.Stop(id) {
		h.httpError(w, load.ErrJobNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetJob handles GET /load/{jobId}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	status, ok := h.loads.Get(load.JobID(r.PathValue("jobId")))
	if !ok {
		h.httpError(w, load.ErrJobNotFound.Error(), http.StatusNotFound)
		return
	}
	h.respondJson(w, http.StatusOK, toResponse(status))
}

// ListJobs handles GET /load/status.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, toResponses(h.loads.List()))
}

// History handles GET /load/history.
// It lists recently finalized jobs, newest first.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, toResponses(h.loads.History()))
}

// Limits handles GET /load/limits.
func (h *Handlers) Limits(w http.ResponseWriter, r *http.Request) {
	l := h.loads.Limits()
	h.respondJson(w, http.StatusOK, api.LimitsResponse{
		MaxCPUThreads:  l.MaxThreads,
		MaxMemoryMB:    l.MaxMemoryMB,
		MaxDurationSec: int(l.MaxDuration / time.Second),
	})
}
