// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the loadgen service.
package api

import "time"

// CPULoadRequest is the request body for POST /load/cpu.
type CPULoadRequest struct {
	Threads          int `json:"threads"`
	IntensityPercent int `json:"intensityPercent"`
	DurationSeconds  int `json:"durationSeconds"`
}

// MemoryLoadRequest is the request body for POST /load/memory.
type MemoryLoadRequest struct {
	Megabytes        int  `json:"megabytes"`
	DurationSeconds  int  `json:"durationSeconds"`
	HoldUntilStopped bool `json:"holdUntilStopped"`
}

// StartLoadResponse is returned after a job has been started.
type StartLoadResponse struct {
	JobID string `json:"jobId"`
}

// JobStatusResponse describes one load job.
type JobStatusResponse struct {
	JobID     string    `json:"jobId"`
	Type      string    `json:"type"`
	StartedAt time.Time `json:"startedAt"`
	// DurationSeconds is absent for jobs that run until stopped.
	DurationSeconds  *int       `json:"durationSeconds,omitempty"`
	Detail           string     `json:"detail"`
	State            string     `json:"state"`
	Threads          int        `json:"threads,omitempty"`
	IntensityPercent int        `json:"intensityPercent,omitempty"`
	Megabytes        int        `json:"megabytes,omitempty"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// LimitsResponse reports the configured ceilings.
type LimitsResponse struct {
	MaxCPUThreads  int `json:"maxCpuThreads"`
	MaxMemoryMB    int `json:"maxMemoryMb"`
	MaxDurationSec int `json:"maxDurationSec"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Job states as reported in JobStatusResponse.State.
const (
	StateRunning   = "Running"
	StateCompleted = "Completed"
	StateCancelled = "Cancelled"
	StateFailed    = "Failed"
)
