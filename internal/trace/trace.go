// Package trace provides the append-only run trace recorder.
//
// The recorder is the one mutable resource shared across concurrent executor
// tasks; every append takes the mutex so events are totally ordered by
// insertion. The orchestrator owns the recorder and finalizes it exactly once.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/telemetry"
)

// maxEvents is a hard upper limit on recorded events to bound memory on
// runaway runs. Appends past the limit are dropped and counted.
const maxEvents = 50_000

// Recorder accumulates trace events for a single run.
type Recorder struct {
	logger *slog.Logger

	mu        sync.Mutex
	trace     model.RunTrace
	dropped   int64
	finalized bool
}

// NewRecorder creates a recorder for a fresh run.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		logger: logger,
		trace: model.RunTrace{
			RunID:     uuid.New(),
			StartedAt: time.Now().UTC(),
		},
	}
	r.registerMetrics()
	return r
}

// RunID returns the run identifier assigned at creation.
func (r *Recorder) RunID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace.RunID
}

// Append records one event. Appends after finalization or past the capacity
// limit are dropped; the trace must stay a faithful prefix of what happened,
// so dropping is logged but never an error for the caller.
func (r *Recorder) Append(ev model.TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized || len(r.trace.Events) >= maxEvents {
		r.dropped++
		r.logger.Warn("trace: dropping event", "kind", ev.Kind, "finalized", r.finalized)
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.StageID = len(r.trace.Events)
	r.trace.Events = append(r.trace.Events, ev)
}

// Event is a convenience append for the common case.
func (r *Recorder) Event(role model.StageRole, kind model.TraceEventKind, message string, payload map[string]any) {
	r.Append(model.TraceEvent{Role: role, Kind: kind, Message: message, Payload: payload})
}

// TimedEvent appends an event carrying an elapsed duration.
func (r *Recorder) TimedEvent(role model.StageRole, kind model.TraceEventKind, message string, payload map[string]any, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	r.Append(model.TraceEvent{Role: role, Kind: kind, Message: message, Payload: payload, DurationMs: &ms})
}

// Error appends an ERROR event attributed to role.
func (r *Recorder) Error(role model.StageRole, message string, err error) {
	ev := model.TraceEvent{Role: role, Kind: model.EventError, Message: message}
	if err != nil {
		ev.Error = err.Error()
	}
	r.Append(ev)
}

// Finalize closes the trace with a success flag. Only the first call wins.
func (r *Recorder) Finalize(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.finalized = true
	now := time.Now().UTC()
	r.trace.FinalizedAt = &now
	r.trace.Success = &success
}

// Snapshot returns a copy of the trace as recorded so far. Safe to call
// concurrently with appends; the returned value is independent of the
// recorder's internal state.
func (r *Recorder) Snapshot() model.RunTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.trace
	out.Events = make([]model.TraceEvent, len(r.trace.Events))
	copy(out.Events, r.trace.Events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trace.Events)
}

// Dropped returns how many events were discarded after finalization or at
// capacity. Non-zero values indicate the trace is incomplete.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// registerMetrics exposes an observable depth gauge. No-op when OTEL is not
// configured (the global meter provider is then a no-op).
func (r *Recorder) registerMetrics() {
	meter := telemetry.Meter("keifu/trace")
	_, _ = meter.Int64ObservableGauge("keifu.trace.depth",
		metric.WithDescription("Current number of events in the run trace"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(r.Len()))
			return nil
		}),
	)
}

// Replay validates a recorded trace for consumption: every event must carry
// a known kind and role, and ordering must match insertion (StageID strictly
// increasing from zero). Unknown enum values are errors, not warnings.
func Replay(t model.RunTrace) error {
	for i, ev := range t.Events {
		if !ev.Kind.Valid() {
			return fmt.Errorf("trace: event %d has unknown kind %q", i, ev.Kind)
		}
		if !ev.Role.Valid() {
			return fmt.Errorf("trace: event %d has unknown role %q", i, ev.Role)
		}
		if ev.StageID != i {
			return fmt.Errorf("trace: event %d has stage_id %d, want %d", i, ev.StageID, i)
		}
	}
	if t.Finalized() && t.Success == nil {
		return fmt.Errorf("trace: finalized without success flag")
	}
	return nil
}
