package model

import "github.com/google/uuid"

// SourceExecutionResult is the outcome of searching one source, successful
// or not. A failed source carries no records and a non-empty Error.
type SourceExecutionResult struct {
	SourceName   string      `json:"source_name"`
	Success      bool        `json:"success"`
	Records      []RawRecord `json:"records,omitempty"`
	TotalCount   int         `json:"total_count"`
	SearchTimeMs int64       `json:"search_time_ms"`
	RetryCount   int         `json:"retry_count"`
	Error        string      `json:"error,omitempty"`
}

// ExecutionResult aggregates one or two passes of source searches.
// AllRecords preserves pass order (pass-1 records strictly precede pass-2
// records) but is otherwise unordered; downstream stages must not depend on
// arrival order within a pass.
type ExecutionResult struct {
	PlanID               uuid.UUID               `json:"plan_id"`
	SourceResults        []SourceExecutionResult `json:"source_results"`
	AllRecords           []RawRecord             `json:"all_records"`
	SourcesSearched      []string                `json:"sources_searched"`
	SourcesFailed        []string                `json:"sources_failed"`
	PassNumber           int                     `json:"pass_number"` // 1 or 2
	ConfidenceAfterPass  float64                 `json:"confidence_after_pass"`
	TotalExecutionTimeMs int64                   `json:"total_execution_time_ms"`
}

// TotalRecords returns the aggregated record count.
func (e ExecutionResult) TotalRecords() int { return len(e.AllRecords) }
