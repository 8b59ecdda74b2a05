package load

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"
)

const (
	chunkSize  = 1 << 20 // 1 MiB
	pageStride = 4 << 10 // one write per 4 KiB page
)

// allocFunc returns a zeroed buffer of the requested size.
type allocFunc func(size int) ([]byte, error)

func heapAlloc(size int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocation of %d bytes panicked: %v", size, r)
		}
	}()
	return make([]byte, size), nil
}

// touch writes to every page of the chunk so the OS actually commits it.
func touch(chunk []byte) {
	for i := 0; i < len(chunk); i += pageStride {
		chunk[i] = 1
	}
	if n := len(chunk); n > 0 {
		chunk[n-1] = 1
	}
}

// memoryWorker allocates and holds memory for one job.
type memoryWorker struct {
	megabytes int
	// duration of the hold phase; zero holds until cancellation.
	duration time.Duration
	rec      *record
	alloc    allocFunc
	log      *slog.Logger
	// onChange receives the MiB delta every time memory is retained or released.
	onChange func(deltaMiB int64)
}

// run allocates the requested memory, holds it, and releases it on every exit path.
// The returned error is also recorded on the job.
func (w *memoryWorker) run(ctx context.Context) (err error) {
	chunks := make([][]byte, 0, w.megabytes)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("memory worker panicked: %v", r)
			w.rec.fail(err)
		}
		w.release(chunks)
		chunks = nil
	}()

	for i := 0; i < w.megabytes; i++ {
		if ctx.Err() != nil {
			w.log.Info("memory job cancelled during allocation", "allocated_mb", len(chunks))
			w.rec.transition(StateCancelled)
			return nil
		}
		chunk, aerr := w.alloc(chunkSize)
		if aerr != nil {
			err = fmt.Errorf("allocate chunk %d of %d: %w", i+1, w.megabytes, aerr)
			w.log.Error("memory allocation failed", "error", err, "allocated_mb", len(chunks))
			w.rec.fail(err)
			return err
		}
		touch(chunk)
		chunks = append(chunks, chunk)
		w.onChange(1)
	}

	w.log.Debug("memory allocated", "allocated_mb", len(chunks))

	if w.duration <= 0 {
		<-ctx.Done()
		w.rec.transition(StateCancelled)
		runtime.KeepAlive(chunks)
		return nil
	}

	timer := time.NewTimer(w.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		w.rec.transition(StateCompleted)
	case <-ctx.Done():
		w.rec.transition(StateCancelled)
	}
	runtime.KeepAlive(chunks)
	return nil
}

func (w *memoryWorker) release(chunks [][]byte) {
	n := len(chunks)
	if n == 0 {
		return
	}
	for i := range chunks {
		chunks[i] = nil
	}
	w.onChange(-int64(n))
	// Hand the pages back to the OS now rather than at the next GC cycle.
	debug.FreeOSMemory()
	w.log.Debug("memory released", "released_mb", n)
}
