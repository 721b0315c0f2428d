package keifu

import "context"

// Source is a genealogical data source. Implementations registered via
// WithSource (or App.RegisterSource) are searched by the executor according
// to the plan's per-source budget.
//
// Search must be safe for concurrent calls on disjoint queries and must honor
// ctx cancellation; the executor enforces per-attempt deadlines through it.
type Source interface {
	Name() string
	Metadata() SourceMetadata
	Search(ctx context.Context, query Query) ([]Record, error)
}

// Adjudicator settles conflicts the weighted consensus could not.
// When provided via WithAdjudicator, replaces the auto-detected
// Ollama/OpenAI/rules adjudicator. A non-resolved verdict preserves the
// conflict; the pipeline never forces a winner on its own.
type Adjudicator interface {
	Adjudicate(ctx context.Context, conflict Conflict) (Verdict, error)
}
