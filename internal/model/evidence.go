package model

// ValueObservation is one record's weighted claim about a field value.
type ValueObservation struct {
	Value    string     `json:"value"` // original, non-normalized
	RecordID string     `json:"record_id"`
	Source   string     `json:"source"`
	Tier     SourceTier `json:"tier"`
	Weight   float64    `json:"weight"` // tier weight × confidence hint
}

// ValueGroup aggregates observations that normalize to the same value.
type ValueGroup struct {
	NormalizedValue string             `json:"normalized_value"`
	Observations    []ValueObservation `json:"observations"`
	TotalWeight     float64            `json:"total_weight"`
}

// FieldEvidence is the per-field consensus view over an entity's records.
//
// Invariant: when at least one observation exists, exactly one of IsContested
// and IsConsensus is true. With zero observations both are false.
type FieldEvidence struct {
	FieldName      string       `json:"field_name"`
	Groups         []ValueGroup `json:"groups"` // sorted by descending TotalWeight
	BestValue      string       `json:"best_value,omitempty"`
	ConsensusScore float64      `json:"consensus_score"` // top weight / total weight
	IsContested    bool         `json:"is_contested"`
	IsConsensus    bool         `json:"is_consensus"`
}

// EvidenceScore is the verifier's output for one entity.
type EvidenceScore struct {
	EntityID             string          `json:"entity_id"`
	Fields               []FieldEvidence `json:"fields"`
	OriginalSources      int             `json:"original_sources"`
	DerivativeSources    int             `json:"derivative_sources"`
	AuthoredSources      int             `json:"authored_sources"`
	Conflicts            []ConflictGroup `json:"conflicts,omitempty"`
	OverallConfidence    float64         `json:"overall_confidence"`
	GPSComplianceScore   float64         `json:"gps_compliance_score"`
	RequiresHumanReview  bool            `json:"requires_human_review"`
	HumanReviewReason    string          `json:"human_review_reason,omitempty"`
	ConsensusFieldCount  int             `json:"consensus_field_count"`
	ContestedFieldCount  int             `json:"contested_field_count"`
}
