package handlers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"loadgen/internal/load"
)

// Mock load manager
type mockLoads struct {
	// Spies (to verify arguments passed by handlers)
	capturedCPU    *load.CPURequest
	capturedMemory *load.MemoryRequest
	stopped        []load.JobID

	// Hooks
	jobs    map[load.JobID]load.Status
	history []load.Status
	limits  load.Limits
}

func newMockLoads() *mockLoads {
	return &mockLoads{
		jobs:   make(map[load.JobID]load.Status),
		limits: load.Limits{MaxThreads: 4, MaxMemoryMB: 4096, MaxDuration: 1800 * time.Second},
	}
}

func (m *mockLoads) StartCPULoad(ctx context.Context, req load.CPURequest) load.JobID {
	m.capturedCPU = &req
	return "cpu-job"
}

func (m *mockLoads) StartMemoryLoad(ctx context.Context, req load.MemoryRequest) load.JobID {
	m.capturedMemory = &req
	return "mem-job"
}

func (m *mockLoads) Stop(id load.JobID) bool {
	m.stopped = append(m.stopped, id)
	_, ok := m.jobs[id]
	return ok
}

func (m *mockLoads) Get(id load.JobID) (load.Status, bool) {
	s, ok := m.jobs[id]
	return s, ok
}

func (m *mockLoads) List() []load.Status {
	out := make([]load.Status, 0, len(m.jobs))
	for _, s := range m.jobs {
		out = append(out, s)
	}
	return out
}

func (m *mockLoads) History() []load.Status {
	return m.history
}

func (m *mockLoads) Limits() load.Limits {
	return m.limits
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
