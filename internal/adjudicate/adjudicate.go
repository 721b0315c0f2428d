// Package adjudicate chooses among competing assertions when automatic
// consensus fails.
//
// The verifier detects conflicts (cheap, deterministic); the adjudicator
// classifies them (precise, slower, possibly an LLM call). This two-stage
// split keeps model calls off the hot path, since most fields never conflict.
package adjudicate

import (
	"context"

	"github.com/keifu-ai/keifu/internal/model"
)

// Adjudicator resolves one conflict group. A non-resolved verdict preserves
// the conflict: the pipeline never forces a winner.
type Adjudicator interface {
	Adjudicate(ctx context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error)
}

// Noop always defers. Used when no adjudicator is configured: conflicts stay
// pending and surface as contested fields.
type Noop struct{}

// Adjudicate returns pending_review for every conflict.
func (Noop) Adjudicate(_ context.Context, _ model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	return model.AdjudicationVerdict{
		ResolutionStatus: model.StatusPendingReview,
		Analysis:         "no adjudicator configured",
	}, nil
}
