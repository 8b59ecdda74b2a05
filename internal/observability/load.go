package observability

import (
	"context"
	"fmt"
	"time"

	"loadgen/internal/load"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LoadMetrics records load job lifecycle events. It implements load.Metrics.
type LoadMetrics struct {
	started   metric.Int64Counter
	finished  metric.Int64Counter
	runtime   metric.Float64Histogram
	allocated metric.Int64UpDownCounter
}

var _ load.Metrics = (*LoadMetrics)(nil)

// NewLoadMetrics creates the load job instruments on the given meter.
func NewLoadMetrics(meter metric.Meter) (*LoadMetrics, error) {
	started, err := meter.Int64Counter("loadgen.jobs.started",
		metric.WithDescription("Number of load jobs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create started counter: %w", err)
	}

	finished, err := meter.Int64Counter("loadgen.jobs.finished",
		metric.WithDescription("Number of load jobs finalized, by terminal state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create finished counter: %w", err)
	}

	runtime, err := meter.Float64Histogram("loadgen.jobs.runtime",
		metric.WithDescription("Wall-clock time from job start to finalization"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime histogram: %w", err)
	}

	allocated, err := meter.Int64UpDownCounter("loadgen.memory.allocated",
		metric.WithDescription("Memory currently held by memory jobs"),
		metric.WithUnit("MiBy"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocated counter: %w", err)
	}

	return &LoadMetrics{
		started:   started,
		finished:  finished,
		runtime:   runtime,
		allocated: allocated,
	}, nil
}

func (m *LoadMetrics) JobStarted(ctx context.Context, t load.JobType) {
	m.started.Add(ctx, 1, metric.WithAttributes(attribute.String("job.type", string(t))))
}

func (m *LoadMetrics) JobFinished(ctx context.Context, t load.JobType, s load.JobState, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("job.type", string(t)),
		attribute.String("job.state", string(s)),
	)
	m.finished.Add(ctx, 1, attrs)
	m.runtime.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *LoadMetrics) MemoryChanged(ctx context.Context, deltaMiB int64) {
	m.allocated.Add(ctx, deltaMiB)
}

// RegisterActiveJobsGauge exposes the number of active jobs as an observable gauge.
// The callback runs only when the metrics endpoint is scraped.
func RegisterActiveJobsGauge(meter metric.Meter, active func() int) error {
	_, err := meter.Int64ObservableGauge("loadgen.jobs.active",
		metric.WithDescription("Current number of load jobs with running workers"),
		metric.WithInt64Callback(func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(active()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register active jobs gauge: %w", err)
	}
	return nil
}
