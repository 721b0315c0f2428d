package adjudicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/keifu-ai/keifu/internal/model"
)

// adjudicationPrompt asks the model for a structured verdict over competing
// assertions. The prompt includes per-assertion weights and detected error
// patterns so the model reasons over the same evidence the pipeline scored.
const adjudicationPrompt = `You are an evidence adjudicator for genealogical research following the
Genealogical Proof Standard.

Subject: %s
Fact in question: %s

Competing assertions:
%s

Rules:
- Prefer assertions backed by original records over derivative indexes and
  authored trees (the weights above already encode this).
- A detected error pattern (age rounding, digit transposition) weakens an
  assertion but does not disqualify it.
- Only pick a winner when the evidence genuinely favors one value. When the
  evidence is balanced, say so; forcing a choice is worse than deferring.

Answer in exactly this format:
STATUS: one of [resolved, pending_review, insufficient_evidence, human_review_required]
WINNER: the 1-based index of the winning assertion, or none
CONFIDENCE: a number between 0 and 1
ANALYSIS: one sentence`

// formatPrompt renders the adjudication prompt for input.
func formatPrompt(input model.AdjudicationInput) string {
	var b strings.Builder
	for i, a := range input.Assertions {
		fmt.Fprintf(&b, "%d. value=%q weight=%.2f", i+1, a.Value, a.PriorWeight)
		if a.TemporalProximityBonus > 0 {
			fmt.Fprintf(&b, " temporal_bonus=%.2f", a.TemporalProximityBonus)
		}
		if a.PatternPenalty > 0 {
			fmt.Fprintf(&b, " pattern_penalty=%.2f (%s)", a.PatternPenalty, strings.Join(a.Patterns, ", "))
		}
		b.WriteString("\n")
	}
	return fmt.Sprintf(adjudicationPrompt, input.SubjectID, input.FactType, b.String())
}

// ParseVerdict extracts a structured verdict from an LLM response. Ambiguous
// or malformed responses are errors; the caller degrades them to
// pending_review rather than guessing.
func ParseVerdict(response string, assertionCount int) (model.AdjudicationVerdict, error) {
	var status, winner, confidence, analysis string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "status:"):
			status = strings.ToLower(strings.TrimSpace(trimmed[len("status:"):]))
		case strings.HasPrefix(lower, "winner:"):
			winner = strings.ToLower(strings.TrimSpace(trimmed[len("winner:"):]))
		case strings.HasPrefix(lower, "confidence:"):
			confidence = strings.TrimSpace(trimmed[len("confidence:"):])
		case strings.HasPrefix(lower, "analysis:"):
			analysis = strings.TrimSpace(trimmed[len("analysis:"):])
		}
	}

	if status == "" {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: no STATUS line in response")
	}
	status = strings.Trim(status, "[] ")
	rs := model.ResolutionStatus(status)
	if !rs.Valid() || rs == model.StatusRejected {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: unrecognized status %q", status)
	}

	verdict := model.AdjudicationVerdict{ResolutionStatus: rs, Analysis: analysis}

	if conf, err := strconv.ParseFloat(confidence, 64); err == nil && conf >= 0 && conf <= 1 {
		verdict.Confidence = conf
	}

	if rs == model.StatusResolved {
		idx, err := strconv.Atoi(strings.Trim(winner, "[] "))
		if err != nil || idx < 1 || idx > assertionCount {
			return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: resolved verdict with invalid winner %q", winner)
		}
		zeroBased := idx - 1
		verdict.WinningAssertion = &zeroBased
	}
	return verdict, nil
}

// perCallTimeout bounds a single LLM adjudication call, separate from the
// run's overall deadline so one slow call can't eat the whole budget.
const perCallTimeout = 15 * time.Second
