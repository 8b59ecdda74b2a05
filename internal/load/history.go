package load

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// History keeps the final snapshots of the most recently finalized jobs.
// A nil *History records nothing.
type History struct {
	cache *lru.Cache
}

// NewHistory returns a history holding up to size entries.
// A size of zero or less disables it and returns nil.
func NewHistory(size int) (*History, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	return &History{cache: cache}, nil
}

func (h *History) add(s Status) {
	if h == nil {
		return
	}
	h.cache.Add(s.ID, s)
}

// Get returns the final snapshot of a finalized job.
func (h *History) Get(id JobID) (Status, bool) {
	if h == nil {
		return Status{}, false
	}
	v, ok := h.cache.Peek(id)
	if !ok {
		return Status{}, false
	}
	return v.(Status), true
}

// List returns the retained snapshots, most recently finalized first.
func (h *History) List() []Status {
	if h == nil {
		return []Status{}
	}
	keys := h.cache.Keys()
	out := make([]Status, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := h.cache.Peek(keys[i]); ok {
			out = append(out, v.(Status))
		}
	}
	return out
}
