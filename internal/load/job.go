// Package load implements the synthetic resource-consumption jobs: CPU burners and
// memory hogs that run in the background of the process, a live registry of the
// jobs that still have workers, and the orchestrator that ties them together.
package load

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is reported by adapters when a job is not active.
var ErrJobNotFound = errors.New("job not found")

// JobID identifies a job for the lifetime of the process.
type JobID string

// NewJobID returns a fresh random job identifier.
func NewJobID() JobID {
	return JobID(uuid.New().String())
}

// String implements fmt.Stringer.
func (id JobID) String() string { return string(id) }

// JobType is the kind of resource a job consumes.
type JobType string

const (
	JobTypeCPU    JobType = "CPU"
	JobTypeMemory JobType = "Memory"
)

// JobState is the lifecycle state of a job.
// Running is the only non-terminal state.
type JobState string

const (
	StateRunning   JobState = "Running"
	StateCompleted JobState = "Completed"
	StateCancelled JobState = "Cancelled"
	StateFailed    JobState = "Failed"
)

// Terminal reports whether no further transition is possible from s.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Status is a point-in-time snapshot of a job.
type Status struct {
	ID        JobID
	Type      JobType
	StartedAt time.Time
	// Duration is the configured run time. Zero means "run until stopped".
	Duration time.Duration
	Detail   string
	State    JobState

	// Effective (clamped) parameters. Zero when not applicable to the job type.
	Threads          int
	IntensityPercent int
	Megabytes        int

	// EndedAt is set at finalization and is only visible through the history.
	EndedAt time.Time
}

// record guards the mutable status of one job.
// Every read goes through snapshot so readers never see a torn update.
type record struct {
	mu     sync.RWMutex
	status Status
}

func newRecord(s Status) *record {
	s.State = StateRunning
	return &record{status: s}
}

func (r *record) snapshot() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *record) state() JobState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status.State
}

// transition moves the job out of Running. It returns false if the job was
// already terminal, in which case nothing changes.
func (r *record) transition(to JobState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State.Terminal() {
		return false
	}
	r.status.State = to
	return true
}

// fail marks the job Failed and appends the cause to the detail string,
// keeping the original parameter description.
func (r *record) fail(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State.Terminal() {
		return false
	}
	r.status.State = StateFailed
	if r.status.Detail == "" {
		r.status.Detail = fmt.Sprintf("error: %v", err)
	} else {
		r.status.Detail = fmt.Sprintf("%s; error: %v", r.status.Detail, err)
	}
	return true
}

// finish resolves the final state of a job whose workers have all returned.
// A job still Running becomes Cancelled if cancellation was requested and
// Completed otherwise. A state already set by a worker is kept.
func (r *record) finish(cancelled bool, at time.Time) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.State.Terminal() {
		if cancelled {
			r.status.State = StateCancelled
		} else {
			r.status.State = StateCompleted
		}
	}
	r.status.EndedAt = at
	return r.status
}

func cpuDetail(threads, intensity int, duration time.Duration) string {
	return fmt.Sprintf("threads=%d intensity=%d%% duration=%s", threads, intensity, duration)
}

func memoryDetail(megabytes int, duration time.Duration) string {
	if duration <= 0 {
		return fmt.Sprintf("megabytes=%d hold=until-stopped", megabytes)
	}
	return fmt.Sprintf("megabytes=%d duration=%s", megabytes, duration)
}
