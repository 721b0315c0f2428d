package model

import (
	"time"

	"github.com/google/uuid"
)

// TraceEventKind is the closed set of event types a run trace may contain.
type TraceEventKind string

const (
	EventPlanCreated        TraceEventKind = "plan_created"
	EventBudgetCheck        TraceEventKind = "budget_check"
	EventExecutionStarted   TraceEventKind = "execution_started"
	EventSourceSearched     TraceEventKind = "source_searched"
	EventSourceFailed       TraceEventKind = "source_failed"
	EventExecutionCompleted TraceEventKind = "execution_completed"
	EventEntitiesResolved   TraceEventKind = "entities_resolved"
	EventEvidenceVerified   TraceEventKind = "evidence_verified"
	EventSynthesisCompleted TraceEventKind = "synthesis_completed"
	EventError              TraceEventKind = "error"
)

// Valid reports whether k is a known event kind.
func (k TraceEventKind) Valid() bool {
	switch k {
	case EventPlanCreated, EventBudgetCheck, EventExecutionStarted,
		EventSourceSearched, EventSourceFailed, EventExecutionCompleted,
		EventEntitiesResolved, EventEvidenceVerified, EventSynthesisCompleted,
		EventError:
		return true
	}
	return false
}

// StageRole identifies which pipeline stage emitted an event.
type StageRole string

const (
	RolePlanner      StageRole = "planner"
	RoleBudget       StageRole = "budget"
	RoleExecutor     StageRole = "executor"
	RoleResolver     StageRole = "resolver"
	RoleVerifier     StageRole = "verifier"
	RoleSynthesizer  StageRole = "synthesizer"
	RoleOrchestrator StageRole = "orchestrator"
)

// Valid reports whether r is a known stage role.
func (r StageRole) Valid() bool {
	switch r {
	case RolePlanner, RoleBudget, RoleExecutor, RoleResolver,
		RoleVerifier, RoleSynthesizer, RoleOrchestrator:
		return true
	}
	return false
}

// TraceEvent is one entry in the append-only run trace.
type TraceEvent struct {
	Timestamp  time.Time      `json:"ts"`
	StageID    int            `json:"stage_id"`
	Role       StageRole      `json:"role"`
	Kind       TraceEventKind `json:"kind"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
	DurationMs *int64         `json:"duration_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// RunTrace is the ordered event log for a single run. Events are totally
// ordered by insertion; the recorder in internal/trace serializes appends.
type RunTrace struct {
	RunID       uuid.UUID    `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinalizedAt *time.Time   `json:"finalized_at,omitempty"`
	Success     *bool        `json:"success,omitempty"` // nil until finalized
	Events      []TraceEvent `json:"events"`
}

// Finalized reports whether the trace has been closed out.
func (t RunTrace) Finalized() bool { return t.FinalizedAt != nil }
