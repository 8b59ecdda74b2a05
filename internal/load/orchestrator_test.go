package load

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMetrics counts lifecycle events.
type recordingMetrics struct {
	mu       sync.Mutex
	started  int
	finished map[JobState]int
	memory   int64
}

func (m *recordingMetrics) JobStarted(context.Context, JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) JobFinished(_ context.Context, _ JobType, s JobState, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished == nil {
		m.finished = make(map[JobState]int)
	}
	m.finished[s]++
}

func (m *recordingMetrics) MemoryChanged(_ context.Context, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memory += delta
}

func (m *recordingMetrics) finishedCount(s JobState) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished[s]
}

func newTestOrchestrator(t *testing.T, limits Limits, opts ...Option) *Orchestrator {
	t.Helper()
	h, err := NewHistory(64)
	require.NoError(t, err)
	o := New(limits, append([]Option{WithHistory(h)}, opts...)...)
	t.Cleanup(func() {
		o.StopAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.Wait(ctx)
	})
	return o
}

// waitFinalized waits for the job to leave the registry and returns its final snapshot.
func waitFinalized(t *testing.T, o *Orchestrator, id JobID, within time.Duration) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := o.Get(id)
		return !ok
	}, within, 10*time.Millisecond, "job %s was not finalized", id)

	s, ok := o.history.Get(id)
	require.True(t, ok, "job %s missing from history", id)
	return s
}

func defaultLimits() Limits {
	return Limits{MaxThreads: 2, MaxMemoryMB: 64, MaxDuration: 10 * time.Second}
}

func TestLimits_Normalize(t *testing.T) {
	l := Limits{MaxThreads: 0, MaxMemoryMB: 8, MaxDuration: time.Second}.Normalize()
	assert.Equal(t, Limits{MaxThreads: 1, MaxMemoryMB: MinMemoryMB, MaxDuration: MinDuration}, l)

	l = Limits{MaxThreads: 8, MaxMemoryMB: 1024, MaxDuration: time.Minute}.Normalize()
	assert.Equal(t, Limits{MaxThreads: 8, MaxMemoryMB: 1024, MaxDuration: time.Minute}, l)
}

func TestStartCPULoad_ClampsToCeilings(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())

	tests := []struct {
		name          string
		req           CPURequest
		wantThreads   int
		wantIntensity int
		wantDuration  time.Duration
	}{
		{name: "above ceilings", req: CPURequest{Threads: 64, IntensityPercent: 250, DurationSeconds: 9999}, wantThreads: 2, wantIntensity: 100, wantDuration: 10 * time.Second},
		{name: "below floors", req: CPURequest{Threads: -1, IntensityPercent: 0, DurationSeconds: 0}, wantThreads: 1, wantIntensity: 1, wantDuration: time.Second},
		{name: "in range", req: CPURequest{Threads: 1, IntensityPercent: 40, DurationSeconds: 3}, wantThreads: 1, wantIntensity: 40, wantDuration: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := o.StartCPULoad(context.Background(), tt.req)
			s, ok := o.Get(id)
			require.True(t, ok, "job must be visible as soon as start returns")
			o.Stop(id)

			assert.Equal(t, JobTypeCPU, s.Type)
			assert.Equal(t, StateRunning, s.State)
			assert.Equal(t, tt.wantThreads, s.Threads)
			assert.Equal(t, tt.wantIntensity, s.IntensityPercent)
			assert.Equal(t, tt.wantDuration, s.Duration)
			assert.Equal(t, cpuDetail(tt.wantThreads, tt.wantIntensity, tt.wantDuration), s.Detail)
			assert.Equal(t, time.UTC, s.StartedAt.Location())
		})
	}
}

func TestStartMemoryLoad_ClampsToCeilings(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())

	id := o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 100000, DurationSeconds: 100000})
	s, ok := o.Get(id)
	require.True(t, ok)
	assert.Equal(t, 64, s.Megabytes)
	assert.Equal(t, 10*time.Second, s.Duration)

	id = o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 0, DurationSeconds: 5, HoldUntilStopped: true})
	s, ok = o.Get(id)
	require.True(t, ok)
	assert.Equal(t, 1, s.Megabytes)
	assert.Zero(t, s.Duration, "hold until stopped has no duration")
	assert.Equal(t, "megabytes=1 hold=until-stopped", s.Detail)
}

func TestCPUJob_CompletesAfterDuration(t *testing.T) {
	metrics := &recordingMetrics{}
	o := newTestOrchestrator(t, Limits{MaxThreads: 2, MaxMemoryMB: 64, MaxDuration: 10 * time.Second}, WithMetrics(metrics))

	start := time.Now()
	id := o.StartCPULoad(context.Background(), CPURequest{Threads: 4, IntensityPercent: 85, DurationSeconds: 2})

	s, ok := o.Get(id)
	require.True(t, ok)
	assert.Equal(t, 2, s.Threads)
	assert.Contains(t, s.Detail, "threads=2")

	final := waitFinalized(t, o, id, 4*time.Second)
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second, "job must not finish early")
	assert.Equal(t, StateCompleted, final.State)
	assert.False(t, final.EndedAt.IsZero())
	assert.Empty(t, o.List())
	assert.Equal(t, 1, metrics.finishedCount(StateCompleted))
}

func TestMemoryJob_CompletesAndLeavesList(t *testing.T) {
	metrics := &recordingMetrics{}
	o := newTestOrchestrator(t, defaultLimits(), WithMetrics(metrics))

	id := o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 10, DurationSeconds: 1})

	final := waitFinalized(t, o, id, 3*time.Second)
	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, 10, final.Megabytes)
	for _, s := range o.List() {
		assert.NotEqual(t, id, s.ID)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, int64(0), metrics.memory, "all memory must be released")
	assert.Equal(t, 1, metrics.started)
}

func TestMemoryJob_HoldUntilStopped(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())

	id := o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 4, DurationSeconds: 1, HoldUntilStopped: true})

	// Well past the requested duration it is still running.
	time.Sleep(1500 * time.Millisecond)
	s, ok := o.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateRunning, s.State)

	require.True(t, o.Stop(id))
	final := waitFinalized(t, o, id, 2*time.Second)
	assert.Equal(t, StateCancelled, final.State)
}

func TestStop_UnknownJob(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())

	assert.False(t, o.Stop("does-not-exist"))
	_, ok := o.Get("does-not-exist")
	assert.False(t, ok)
}

func TestStop_Twice(t *testing.T) {
	metrics := &recordingMetrics{}
	o := newTestOrchestrator(t, defaultLimits(), WithMetrics(metrics))

	id := o.StartCPULoad(context.Background(), CPURequest{Threads: 2, IntensityPercent: 20, DurationSeconds: 10})

	assert.True(t, o.Stop(id))
	// Still true unless finalization already ran; either way it must not panic.
	o.Stop(id)

	final := waitFinalized(t, o, id, 2*time.Second)
	assert.Equal(t, StateCancelled, final.State)
	assert.False(t, o.Stop(id))
	assert.Equal(t, 1, metrics.finishedCount(StateCancelled), "finalization must run exactly once")
}

func TestConcurrentJobs_IndependentlyStoppable(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())
	const n = 10

	ids := make([]JobID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 1, HoldUntilStopped: true})
		}(i)
	}
	wg.Wait()

	seen := make(map[JobID]struct{})
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, n)
	require.Len(t, o.List(), n)

	require.True(t, o.Stop(ids[0]))
	final := waitFinalized(t, o, ids[0], 2*time.Second)
	assert.Equal(t, StateCancelled, final.State)

	assert.Len(t, o.List(), n-1)
	for _, id := range ids[1:] {
		s, ok := o.Get(id)
		require.True(t, ok)
		assert.Equal(t, StateRunning, s.State)
	}
}

func TestMemoryJob_FailureIsContained(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	alloc := func(size int) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 3 {
			return nil, errors.New("simulated allocation failure")
		}
		return make([]byte, size), nil
	}
	o := newTestOrchestrator(t, defaultLimits(), withAllocator(alloc))

	healthy := o.StartCPULoad(context.Background(), CPURequest{Threads: 1, IntensityPercent: 10, DurationSeconds: 5})
	id := o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 8, DurationSeconds: 5})

	final := waitFinalized(t, o, id, 2*time.Second)
	assert.Equal(t, StateFailed, final.State)
	assert.Contains(t, final.Detail, "megabytes=8 duration=5s")
	assert.Contains(t, final.Detail, "simulated allocation failure")

	s, ok := o.Get(healthy)
	require.True(t, ok, "other jobs are unaffected")
	assert.Equal(t, StateRunning, s.State)
}

func TestStopAllAndWait(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())

	o.StartCPULoad(context.Background(), CPURequest{Threads: 2, IntensityPercent: 30, DurationSeconds: 10})
	o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 2, HoldUntilStopped: true})
	require.Equal(t, 2, o.Active())

	o.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))

	assert.Equal(t, 0, o.Active())
	history := o.History()
	require.Len(t, history, 2)
	for _, s := range history {
		assert.Equal(t, StateCancelled, s.State)
	}
}

func TestWait_RespectsContext(t *testing.T) {
	o := newTestOrchestrator(t, defaultLimits())
	o.StartMemoryLoad(context.Background(), MemoryRequest{Megabytes: 1, HoldUntilStopped: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, o.Wait(ctx), context.DeadlineExceeded)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, clamp(-5, 1, 10))
	assert.Equal(t, 10, clamp(50, 1, 10))
	assert.Equal(t, 7, clamp(7, 1, 10))
}
