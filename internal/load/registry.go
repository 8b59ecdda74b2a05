package load

import (
	"context"
	"sort"
	"sync"
)

// jobRuntime is the live state of a job that still has workers.
// It exists only inside the registry.
type jobRuntime struct {
	rec    *record
	ctx    context.Context
	cancel context.CancelFunc
}

// registry is a mutex-guarded map of active jobs.
// RWMutex lets status queries run in parallel; puts and removes are exclusive.
type registry struct {
	mu   sync.RWMutex
	jobs map[JobID]*jobRuntime
}

func newRegistry() *registry {
	return &registry{jobs: make(map[JobID]*jobRuntime)}
}

func (r *registry) put(id JobID, rt *jobRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = rt
}

func (r *registry) get(id JobID) (*jobRuntime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.jobs[id]
	return rt, ok
}

func (r *registry) remove(id JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// all returns the runtimes present at the time of the call.
func (r *registry) all() []*jobRuntime {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*jobRuntime, 0, len(r.jobs))
	for _, rt := range r.jobs {
		out = append(out, rt)
	}
	return out
}

// listAll returns a snapshot of every active job, oldest first.
func (r *registry) listAll() []Status {
	runtimes := r.all()
	out := make([]Status, 0, len(runtimes))
	for _, rt := range runtimes {
		out = append(out, rt.rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
