package load

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Defaults and floors of the operator-configured ceilings.
const (
	DefaultMaxMemoryMB = 4096
	DefaultMaxDuration = 1800 * time.Second

	MinMemoryMB = 32
	MinDuration = 5 * time.Second
)

// Limits are the ceilings every request is clamped against.
type Limits struct {
	MaxThreads  int
	MaxMemoryMB int
	MaxDuration time.Duration
}

// Normalize raises every ceiling to its floor.
func (l Limits) Normalize() Limits {
	if l.MaxThreads < 1 {
		l.MaxThreads = 1
	}
	if l.MaxMemoryMB < MinMemoryMB {
		l.MaxMemoryMB = MinMemoryMB
	}
	if l.MaxDuration < MinDuration {
		l.MaxDuration = MinDuration
	}
	return l
}

// CPURequest asks for threads busy-looping at the given intensity.
type CPURequest struct {
	Threads          int
	IntensityPercent int
	DurationSeconds  int
}

// MemoryRequest asks for megabytes of memory held for a while or until stopped.
type MemoryRequest struct {
	Megabytes        int
	DurationSeconds  int
	HoldUntilStopped bool
}

// Metrics receives job lifecycle events. Implementations must be safe for concurrent use.
type Metrics interface {
	JobStarted(ctx context.Context, t JobType)
	JobFinished(ctx context.Context, t JobType, s JobState, elapsed time.Duration)
	MemoryChanged(ctx context.Context, deltaMiB int64)
}

type noopMetrics struct{}

func (noopMetrics) JobStarted(context.Context, JobType)                           {}
func (noopMetrics) JobFinished(context.Context, JobType, JobState, time.Duration) {}
func (noopMetrics) MemoryChanged(context.Context, int64)                          {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger. Each job derives its own logger from it.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics sets the lifecycle metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithHistory keeps finalized snapshots in h.
func WithHistory(h *History) Option {
	return func(o *Orchestrator) { o.history = h }
}

func withAllocator(a allocFunc) Option {
	return func(o *Orchestrator) { o.alloc = a }
}

// Orchestrator starts, tracks, stops and finalizes load jobs.
// It never blocks on worker completion; every job is finalized by its own goroutine.
type Orchestrator struct {
	limits  Limits
	jobs    *registry
	history *History
	log     *slog.Logger
	metrics Metrics
	alloc   allocFunc
	tracer  trace.Tracer

	// pending counts jobs that have not been finalized yet.
	pending sync.WaitGroup
}

// New creates an orchestrator enforcing the given ceilings.
func New(limits Limits, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		limits:  limits.Normalize(),
		jobs:    newRegistry(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: noopMetrics{},
		alloc:   heapAlloc,
		tracer:  otel.Tracer("loadgen/load"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Limits returns the effective ceilings.
func (o *Orchestrator) Limits() Limits {
	return o.limits
}

// StartCPULoad clamps the request and starts one CPU worker per thread.
func (o *Orchestrator) StartCPULoad(ctx context.Context, req CPURequest) JobID {
	threads := clamp(req.Threads, 1, o.limits.MaxThreads)
	intensity := clamp(req.IntensityPercent, 1, 100)
	duration := o.clampDuration(req.DurationSeconds)

	status := Status{
		ID:               NewJobID(),
		Type:             JobTypeCPU,
		StartedAt:        time.Now().UTC(),
		Duration:         duration,
		Detail:           cpuDetail(threads, intensity, duration),
		Threads:          threads,
		IntensityPercent: intensity,
	}

	workers := make([]func(context.Context, *record) error, threads)
	for i := range workers {
		workers[i] = func(ctx context.Context, _ *record) error {
			runCPUWorker(ctx, intensity, duration)
			return nil
		}
	}
	return o.launch(ctx, status, workers)
}

// StartMemoryLoad clamps the request and starts a single memory worker.
func (o *Orchestrator) StartMemoryLoad(ctx context.Context, req MemoryRequest) JobID {
	megabytes := clamp(req.Megabytes, 1, o.limits.MaxMemoryMB)
	var duration time.Duration
	if !req.HoldUntilStopped {
		duration = o.clampDuration(req.DurationSeconds)
	}

	status := Status{
		ID:        NewJobID(),
		Type:      JobTypeMemory,
		StartedAt: time.Now().UTC(),
		Duration:  duration,
		Detail:    memoryDetail(megabytes, duration),
		Megabytes: megabytes,
	}

	worker := func(ctx context.Context, rec *record) error {
		w := &memoryWorker{
			megabytes: megabytes,
			duration:  duration,
			rec:       rec,
			alloc:     o.alloc,
			log:       o.jobLogger(status),
			onChange: func(delta int64) {
				o.metrics.MemoryChanged(ctx, delta)
			},
		}
		return w.run(ctx)
	}
	return o.launch(ctx, status, []func(context.Context, *record) error{worker})
}

// launch registers the job and spawns its workers under one cancellation signal.
// The job is registered before any worker runs so that finalization always
// finds it in the registry.
func (o *Orchestrator) launch(ctx context.Context, status Status, workers []func(context.Context, *record) error) JobID {
	_, span := o.tracer.Start(ctx, "load.job",
		trace.WithAttributes(
			attribute.String("job.id", status.ID.String()),
			attribute.String("job.type", string(status.Type)),
			attribute.String("job.detail", status.Detail),
		),
	)

	// The job outlives the request that created it; only the span is carried over.
	jobCtx, cancel := context.WithCancel(trace.ContextWithSpan(context.Background(), span))
	rt := &jobRuntime{
		rec:    newRecord(status),
		ctx:    jobCtx,
		cancel: cancel,
	}
	o.jobs.put(status.ID, rt)
	o.pending.Add(1)
	o.metrics.JobStarted(jobCtx, status.Type)
	o.jobLogger(status).Info("load job started", "detail", status.Detail)

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker panicked: %v", r)
				}
			}()
			return w(jobCtx, rt.rec)
		})
	}

	go func() {
		defer o.pending.Done()
		err := g.Wait()
		o.finalize(rt, err, span)
	}()

	return status.ID
}

// finalize runs exactly once per job, after every worker has returned.
func (o *Orchestrator) finalize(rt *jobRuntime, err error, span trace.Span) {
	defer span.End()

	if err != nil {
		rt.rec.fail(err)
	}
	// Cancellation requested before this point wins over natural completion.
	final := rt.rec.finish(rt.ctx.Err() != nil, time.Now().UTC())
	rt.cancel()

	o.jobs.remove(final.ID)
	o.history.add(final)

	elapsed := final.EndedAt.Sub(final.StartedAt)
	o.metrics.JobFinished(context.Background(), final.Type, final.State, elapsed)

	span.SetAttributes(attribute.String("job.state", string(final.State)))
	log := o.jobLogger(final)
	if final.State == StateFailed {
		span.SetStatus(codes.Error, final.Detail)
		log.Error("load job failed", "detail", final.Detail, "elapsed", elapsed)
		return
	}
	log.Info("load job finished", "state", final.State, "elapsed", elapsed)
}

// Stop raises the cancellation signal of a job. It reports whether the job was active.
func (o *Orchestrator) Stop(id JobID) bool {
	rt, ok := o.jobs.get(id)
	if !ok {
		return false
	}
	rt.cancel()
	o.log.Info("load job stop requested", "job_id", id)
	return true
}

// StopAll cancels every active job.
func (o *Orchestrator) StopAll() {
	runtimes := o.jobs.all()
	for _, rt := range runtimes {
		rt.cancel()
	}
	if len(runtimes) > 0 {
		o.log.Info("stopping all load jobs", "count", len(runtimes))
	}
}

// Wait blocks until every job started so far has been finalized or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the current snapshot of an active job.
func (o *Orchestrator) Get(id JobID) (Status, bool) {
	rt, ok := o.jobs.get(id)
	if !ok {
		return Status{}, false
	}
	return rt.rec.snapshot(), true
}

// List returns snapshots of all active jobs.
func (o *Orchestrator) List() []Status {
	return o.jobs.listAll()
}

// Active returns the number of jobs that still have workers.
func (o *Orchestrator) Active() int {
	return o.jobs.len()
}

// History returns the finalized jobs retained by the history, newest first.
func (o *Orchestrator) History() []Status {
	return o.history.List()
}

func (o *Orchestrator) clampDuration(seconds int) time.Duration {
	maxSeconds := int(o.limits.MaxDuration / time.Second)
	return time.Duration(clamp(seconds, 1, maxSeconds)) * time.Second
}

func (o *Orchestrator) jobLogger(s Status) *slog.Logger {
	return o.log.With("job_id", s.ID.String(), "job_type", string(s.Type))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
