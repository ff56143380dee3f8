package indexer

import (
	"sync"
	"time"
)

// State describes what the pipeline is currently doing.
type State string

const (
	// StateReady means the pipeline is idle; LastSummary holds the most recent run, if any.
	StateReady State = "ready"
	// StateIndexing means a reindex run is in flight.
	StateIndexing State = "indexing"
	// StateError means the last run failed as a whole (scan or store failure, not
	// per-document failures, which land in Summary.Failed).
	StateError State = "error"
)

// Status is a snapshot of the pipeline's state and last run outcome.
type Status struct {
	State       State     `json:"state"`
	LastSummary *Summary  `json:"last_summary,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastRun     time.Time `json:"last_run,omitzero"`
}

// statusTracker records run state behind its own lock so Status() never
// contends with an in-flight run.
type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func (t *statusTracker) begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateIndexing
	t.status.LastError = ""
}

func (t *statusTracker) finish(summary Summary, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.LastRun = time.Now().UTC()
	t.status.LastSummary = &summary
	if err != nil {
		t.status.State = StateError
		t.status.LastError = err.Error()
		return
	}
	t.status.State = StateReady
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status := t.status
	if status.State == "" {
		status.State = StateReady
	}
	return status
}
