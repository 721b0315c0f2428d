package keifu

import "time"

// Query describes the person being researched. A surname is required unless
// strong identifiers (spouse or parents plus a birth year) are present.
type Query struct {
	Surname     string
	GivenName   string
	BirthYear   int
	// BirthYearTolerance widens BirthYear to a ± range, e.g. 1880 ± 2.
	BirthYearTolerance int
	DeathYear          int
	DeathYearTolerance int
	BirthPlace         string
	Places             []string
	SpouseName         string
	ParentNames        []string
	RecordTypes        []string
	Exclusions         []string
	// Region pins source routing to one research region ("nordic",
	// "uk_ireland", "germany", "usa", "canada", "australia_nz"). Empty means
	// infer from BirthPlace.
	Region string
}

// SourceMetadata is the declarative description a source registers with.
// No internal package imports, so it is safe to implement from outside the module.
type SourceMetadata struct {
	Regions     []string
	RecordTypes []string
	// TierHint pre-classifies the source: "original", "derivative", or
	// "authored". Empty lets the verifier classify per record.
	TierHint string
}

// Record is one search hit as returned by a source.
type Record struct {
	// RecordID must be unique within the source.
	RecordID   string
	RecordType string
	URL        string
	// Fields holds extracted claims keyed by field name ("full_name",
	// "birth_date", "birth_place", ...).
	Fields map[string]string
	// Raw is the source's original payload, kept opaque.
	Raw []byte
	// Confidence is the source's own hint in [0, 1]; nil means unknown.
	Confidence *float64
	AccessedAt time.Time
}

// Assertion is one competing value inside a conflict handed to an Adjudicator.
type Assertion struct {
	Value string
	// Weight is the prior evidence weight behind this value, already adjusted
	// for detected error patterns and temporal proximity.
	Weight    float64
	Patterns  []string
	RecordIDs []string
}

// Conflict is a set of mutually exclusive assertions about one fact.
type Conflict struct {
	SubjectID  string
	FactType   string // birth | death | marriage | relationship
	FieldName  string
	Assertions []Assertion
}

// Verdict is an Adjudicator's answer to a Conflict.
type Verdict struct {
	// Status is one of "resolved", "pending_review", "insufficient_evidence",
	// or "human_review_required". A non-resolved status preserves the conflict.
	Status string
	// Winner indexes Conflict.Assertions; required when Status is "resolved".
	Winner     *int
	Confidence float64
	Analysis   string
	// TieBreakers are follow-up search strings that could settle the conflict.
	TieBreakers []string
}

// ContestedField lists the alternatives for a field the evidence could not
// settle.
type ContestedField struct {
	Name           string
	BestValue      string
	ConsensusScore float64
	// Alternatives are the competing normalized values, best first.
	Alternatives []string
}

// Conclusion is the written research conclusion for one resolved person.
type Conclusion struct {
	EntityID        string
	BestEstimate    map[string]string
	ConsensusFields []string
	ContestedFields []ContestedField
	Citations       []string
	Confidence      float64
	NextSteps       []string
	GPSCompliant    bool
	GPSNotes        string
}

// TraceEvent is one entry of a run's audit trail.
type TraceEvent struct {
	Timestamp  time.Time
	StageID    int
	Role       string
	Kind       string
	Message    string
	DurationMs *int64
	Error      string
}

// Result is the complete outcome of one research run. The trace is always
// present, success or not.
type Result struct {
	RunID                 string
	Success               bool
	Error                 string
	RequiresHumanDecision bool
	// Primary is the highest-confidence conclusion, nil when nothing resolved.
	Primary     *Conclusion
	Conclusions []Conclusion
	Events      []TraceEvent
}

// BudgetCaps are process-wide limits every research plan must fit within.
// Zero-valued fields fall back to configured defaults.
type BudgetCaps struct {
	MaxTotalSeconds float64
	MaxSources      int
	// MaxResults caps the sum of per-source result limits.
	MaxResults int
}
