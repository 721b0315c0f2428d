package mcp

import (
	"sync"

	"github.com/keifu-ai/keifu/internal/model"
)

// trackerCapacity bounds the in-memory run history. Old runs fall off the
// back; the MCP resource surface is a window, not an archive.
const trackerCapacity = 50

// runTracker keeps the most recent research runs for the resource handlers.
type runTracker struct {
	mu   sync.Mutex
	runs []model.ManagerResponse // newest first
}

func newRunTracker() *runTracker {
	return &runTracker{}
}

// Add records a completed run at the front, evicting the oldest past capacity.
func (t *runTracker) Add(resp model.ManagerResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs = append([]model.ManagerResponse{resp}, t.runs...)
	if len(t.runs) > trackerCapacity {
		t.runs = t.runs[:trackerCapacity]
	}
}

// Recent returns up to limit runs, newest first.
func (t *runTracker) Recent(limit int) []model.ManagerResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.runs) {
		limit = len(t.runs)
	}
	out := make([]model.ManagerResponse, limit)
	copy(out, t.runs[:limit])
	return out
}

// Get returns the run with the given ID.
func (t *runTracker) Get(runID string) (model.ManagerResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.runs {
		if r.Trace != nil && r.Trace.RunID.String() == runID {
			return r, true
		}
	}
	return model.ManagerResponse{}, false
}
