package load

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

const (
	// cpuWindow is the duty-cycle period of a CPU worker.
	cpuWindow = 100 * time.Millisecond

	// spinCheckEvery is how many spin iterations run between clock/cancellation checks.
	spinCheckEvery = 1 << 12
)

// cpuSink keeps the spin loop's result observable so the compiler cannot drop the work.
var cpuSink atomic.Uint64

// runCPUWorker keeps one core busy for intensity percent of every window until
// the duration elapses or ctx is cancelled.
func runCPUWorker(ctx context.Context, intensity int, duration time.Duration) {
	deadline := time.Now().Add(duration)
	busy := cpuWindow * time.Duration(intensity) / 100
	idle := cpuWindow - busy

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		now := time.Now()
		if ctx.Err() != nil || !now.Before(deadline) {
			return
		}

		busyUntil := now.Add(busy)
		if busyUntil.After(deadline) {
			busyUntil = deadline
		}
		if !spin(ctx, busyUntil) {
			return
		}

		if idle <= 0 {
			continue
		}
		sleep := idle
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		if sleep <= 0 {
			return
		}
		timer.Reset(sleep)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// spin burns CPU until the given time. It returns false if ctx was cancelled.
func spin(ctx context.Context, until time.Time) bool {
	x := 1.0
	for i := 1; ; i++ {
		x = math.Sqrt(x*x + float64(i))
		if i%spinCheckEvery != 0 {
			continue
		}
		if ctx.Err() != nil {
			cpuSink.Store(math.Float64bits(x))
			return false
		}
		if !time.Now().Before(until) {
			cpuSink.Store(math.Float64bits(x))
			return true
		}
	}
}
