// Package handlers contains HTTP handlers for the load API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"loadgen/internal/load"
	"loadgen/pkg/api"
)

// LoadManager is the part of the orchestrator the handlers depend on.
type LoadManager interface {
	StartCPULoad(ctx context.Context, req load.CPURequest) load.JobID
	StartMemoryLoad(ctx context.Context, req load.MemoryRequest) load.JobID
	Stop(id load.JobID) bool
	Get(id load.JobID) (load.Status, bool)
	List() []load.Status
	History() []load.Status
	Limits() load.Limits
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	loads    LoadManager
	log      *slog.Logger
	draining atomic.Bool
}

// New creates a new Handlers instance.
func New(loads LoadManager, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{loads: loads, log: log}
}

// Drain makes the readiness probe fail so no new traffic is routed here.
func (h *Handlers) Drain() {
	h.draining.Store(true)
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Warn("failed to encode response", "error", err)
		}
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func toResponse(s load.Status) api.JobStatusResponse {
	resp := api.JobStatusResponse{
		JobID:            s.ID.String(),
		Type:             string(s.Type),
		StartedAt:        s.StartedAt,
		Detail:           s.Detail,
		State:            string(s.State),
		Threads:          s.Threads,
		IntensityPercent: s.IntensityPercent,
		Megabytes:        s.Megabytes,
	}
	if s.Duration > 0 {
		secs := int(s.Duration / time.Second)
		resp.DurationSeconds = &secs
	}
	if !s.EndedAt.IsZero() {
		ended := s.EndedAt
		resp.EndedAt = &ended
	}
	return resp
}

func toResponses(list []load.Status) []api.JobStatusResponse {
	out := make([]api.JobStatusResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toResponse(s))
	}
	return out
}
