package model

// ContestedFieldOutput lists all alternatives for a field the evidence could
// not settle.
type ContestedFieldOutput struct {
	FieldName      string       `json:"field_name"`
	BestValue      string       `json:"best_value,omitempty"`
	ConsensusScore float64      `json:"consensus_score"`
	Alternatives   []ValueGroup `json:"alternatives"`
}

// Synthesis is the written conclusion for one resolved entity.
type Synthesis struct {
	EntityID          string                 `json:"entity_id"`
	BestEstimate      map[string]string      `json:"best_estimate"`
	ContestedFields   []ContestedFieldOutput `json:"contested_fields,omitempty"`
	ConsensusFields   []string               `json:"consensus_fields,omitempty"`
	Citations         []string               `json:"citations"`
	OverallConfidence float64                `json:"overall_confidence"`
	NextSteps         []string               `json:"next_steps"`
	GPSCompliant      bool                   `json:"gps_compliant"`
	GPSNotes          string                 `json:"gps_notes,omitempty"`
}

// ManagerResponse is the final output of an orchestrated run.
type ManagerResponse struct {
	Trace                 *RunTrace   `json:"trace"`
	PrimarySynthesis      *Synthesis  `json:"primary_synthesis,omitempty"`
	Syntheses             []Synthesis `json:"syntheses,omitempty"`
	Success               bool        `json:"success"`
	Error                 string      `json:"error,omitempty"`
	RequiresHumanDecision bool        `json:"requires_human_decision"`
}
