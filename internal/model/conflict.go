package model

import "github.com/google/uuid"

// ResolutionStatus is the lifecycle state of a competing assertion.
type ResolutionStatus string

const (
	StatusPendingReview        ResolutionStatus = "pending_review"
	StatusResolved             ResolutionStatus = "resolved"
	StatusRejected             ResolutionStatus = "rejected"
	StatusInsufficientEvidence ResolutionStatus = "insufficient_evidence"
	StatusHumanReviewRequired  ResolutionStatus = "human_review_required"
)

// Valid reports whether s is a known resolution status.
func (s ResolutionStatus) Valid() bool {
	switch s {
	case StatusPendingReview, StatusResolved, StatusRejected,
		StatusInsufficientEvidence, StatusHumanReviewRequired:
		return true
	}
	return false
}

// FactTypes are the fields whose disagreements form competing assertions
// rather than mere low-consensus evidence.
var FactTypes = map[string]bool{
	"birth":        true,
	"death":        true,
	"marriage":     true,
	"relationship": true,
}

// CompetingAssertion is one proposed value in a conflict group.
type CompetingAssertion struct {
	SubjectID              string           `json:"subject_id"` // entity fingerprint
	FactType               string           `json:"fact_type"`
	Value                  string           `json:"value"`
	EvidenceRecordIDs      []string         `json:"evidence_record_ids"`
	ConflictGroupID        uuid.UUID        `json:"conflict_group_id"`
	Status                 ResolutionStatus `json:"status"`
	PriorWeight            float64          `json:"prior_weight"`
	PatternPenalty         float64          `json:"pattern_penalty"`
	Patterns               []string         `json:"patterns,omitempty"`
	TemporalProximityBonus float64          `json:"temporal_proximity_bonus"`
}

// ConflictGroup is a set of mutually exclusive assertions about one fact.
type ConflictGroup struct {
	ID         uuid.UUID            `json:"id"`
	SubjectID  string               `json:"subject_id"`
	FactType   string               `json:"fact_type"`
	FieldName  string               `json:"field_name"`
	Assertions []CompetingAssertion `json:"assertions"`
	Status     ResolutionStatus     `json:"status"`
	WinnerIdx  *int                 `json:"winner_idx,omitempty"` // index into Assertions when resolved
	Analysis   string               `json:"analysis,omitempty"`
}

// AdjudicationInput is what the core hands to an external adjudicator.
type AdjudicationInput struct {
	SubjectID      string               `json:"subject_id"`
	FactType       string               `json:"fact_type"`
	Assertions     []CompetingAssertion `json:"assertions"`
	SubjectContext map[string]string    `json:"subject_context,omitempty"`
}

// TieBreakerQuery is a follow-up search the adjudicator suggests.
type TieBreakerQuery struct {
	QueryString string `json:"query_string"`
}

// AdjudicationVerdict is the adjudicator's answer. A non-resolved status
// preserves the conflict: the core never forces a choice.
type AdjudicationVerdict struct {
	ResolutionStatus  ResolutionStatus  `json:"resolution_status"`
	WinningAssertion  *int              `json:"winning_assertion,omitempty"` // index into input assertions
	Confidence        float64           `json:"confidence"`
	TieBreakerQueries []TieBreakerQuery `json:"tie_breaker_queries,omitempty"`
	Analysis          string            `json:"analysis,omitempty"`
}
