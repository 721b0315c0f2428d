package adjudicate

import (
	"context"
	"fmt"

	"github.com/keifu-ai/keifu/internal/model"
)

// Rules is a deterministic adjudicator: it resolves a conflict when one
// assertion's adjusted weight clears the runner-up by a margin, and defers
// otherwise. Adjusted weight = prior weight + temporal proximity bonus −
// pattern penalty.
type Rules struct {
	// Margin is the minimum adjusted-weight gap (as a fraction of the total)
	// between winner and runner-up. Zero means the default of 0.25.
	Margin float64
}

// Adjudicate implements Adjudicator.
func (r Rules) Adjudicate(_ context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	margin := r.Margin
	if margin <= 0 {
		margin = 0.25
	}

	if len(input.Assertions) < 2 {
		return model.AdjudicationVerdict{
			ResolutionStatus: model.StatusInsufficientEvidence,
			Analysis:         "fewer than two competing assertions",
		}, nil
	}

	total := 0.0
	best, second := -1, -1
	weights := make([]float64, len(input.Assertions))
	for i, a := range input.Assertions {
		w := a.PriorWeight + a.TemporalProximityBonus - a.PatternPenalty
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
		if best < 0 || w > weights[best] {
			second = best
			best = i
		} else if second < 0 || w > weights[second] {
			second = i
		}
	}

	if total == 0 {
		return model.AdjudicationVerdict{
			ResolutionStatus: model.StatusInsufficientEvidence,
			Analysis:         "no assertion carries usable weight",
		}, nil
	}

	gap := (weights[best] - weights[second]) / total
	if gap < margin {
		return model.AdjudicationVerdict{
			ResolutionStatus: model.StatusPendingReview,
			Confidence:       weights[best] / total,
			TieBreakerQueries: []model.TieBreakerQuery{
				{QueryString: fmt.Sprintf("%s %s original record", input.SubjectID, input.FactType)},
			},
			Analysis: fmt.Sprintf("top assertions within margin (gap %.2f < %.2f)", gap, margin),
		}, nil
	}

	winner := best
	return model.AdjudicationVerdict{
		ResolutionStatus: model.StatusResolved,
		WinningAssertion: &winner,
		Confidence:       weights[best] / total,
		Analysis: fmt.Sprintf("assertion %q leads by %.2f of total weight",
			input.Assertions[best].Value, gap),
	}, nil
}
