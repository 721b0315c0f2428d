package adjudicate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/adjudicate"
	"github.com/keifu-ai/keifu/internal/model"
)

func input(assertions ...model.CompetingAssertion) model.AdjudicationInput {
	return model.AdjudicationInput{
		SubjectID:  "erik-lindqvist-1882",
		FactType:   "birth_year",
		Assertions: assertions,
	}
}

func assertion(value string, weight float64) model.CompetingAssertion {
	return model.CompetingAssertion{Value: value, PriorWeight: weight}
}

func TestRulesResolvesClearWinner(t *testing.T) {
	// Original-tier assertion (3.0) against an authored tree (1.0):
	// gap 2.0/4.0 = 0.5, well past the default margin.
	verdict, err := adjudicate.Rules{}.Adjudicate(context.Background(), input(
		assertion("1882", 3.0),
		assertion("1885", 1.0),
	))
	require.NoError(t, err)

	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)
	require.NotNil(t, verdict.WinningAssertion)
	assert.Equal(t, 0, *verdict.WinningAssertion)
	assert.InDelta(t, 0.75, verdict.Confidence, 1e-9)
}

func TestRulesDefersWithinMargin(t *testing.T) {
	// Two derivative sources: gap 0/4.0 = 0, under the margin.
	verdict, err := adjudicate.Rules{}.Adjudicate(context.Background(), input(
		assertion("1882", 2.0),
		assertion("1885", 2.0),
	))
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendingReview, verdict.ResolutionStatus)
	assert.Nil(t, verdict.WinningAssertion)
	require.NotEmpty(t, verdict.TieBreakerQueries)
	assert.Contains(t, verdict.TieBreakerQueries[0].QueryString, "erik-lindqvist-1882")
	assert.Contains(t, verdict.TieBreakerQueries[0].QueryString, "birth_year")
}

func TestRulesCustomMargin(t *testing.T) {
	in := input(assertion("1882", 3.0), assertion("1885", 2.0))

	// gap = 1.0/5.0 = 0.2.
	verdict, err := adjudicate.Rules{Margin: 0.1}.Adjudicate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)

	verdict, err = adjudicate.Rules{Margin: 0.3}.Adjudicate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReview, verdict.ResolutionStatus)
}

func TestRulesAppliesBonusAndPenalty(t *testing.T) {
	// Equal priors; bonus and penalty decide. Adjusted: 2.1 vs 1.4,
	// gap 0.7/3.5 = 0.2 < 0.25 so it still defers. With a lower margin
	// the adjusted weights pick the winner.
	in := input(
		model.CompetingAssertion{Value: "1882", PriorWeight: 2.0, TemporalProximityBonus: 0.1},
		model.CompetingAssertion{Value: "1885", PriorWeight: 2.0, PatternPenalty: 0.6},
	)

	verdict, err := adjudicate.Rules{Margin: 0.15}.Adjudicate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)
	require.NotNil(t, verdict.WinningAssertion)
	assert.Equal(t, 0, *verdict.WinningAssertion)
}

func TestRulesInsufficientEvidence(t *testing.T) {
	verdict, err := adjudicate.Rules{}.Adjudicate(context.Background(), input(assertion("1882", 3.0)))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInsufficientEvidence, verdict.ResolutionStatus)

	verdict, err = adjudicate.Rules{}.Adjudicate(context.Background(), input(
		assertion("1882", 0),
		assertion("1885", 0),
	))
	require.NoError(t, err)
	assert.Equal(t, model.StatusInsufficientEvidence, verdict.ResolutionStatus)
}

func TestRulesNegativeAdjustedWeightFloorsAtZero(t *testing.T) {
	in := input(
		model.CompetingAssertion{Value: "1882", PriorWeight: 1.0},
		model.CompetingAssertion{Value: "1885", PriorWeight: 0.1, PatternPenalty: 0.5},
	)

	verdict, err := adjudicate.Rules{}.Adjudicate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)
	assert.InDelta(t, 1.0, verdict.Confidence, 1e-9)
}

func TestNoopAlwaysDefers(t *testing.T) {
	verdict, err := adjudicate.Noop{}.Adjudicate(context.Background(), input(
		assertion("1882", 3.0),
		assertion("1885", 1.0),
	))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReview, verdict.ResolutionStatus)
	assert.Nil(t, verdict.WinningAssertion)
}

func TestParseVerdictResolved(t *testing.T) {
	verdict, err := adjudicate.ParseVerdict(`STATUS: resolved
WINNER: 2
CONFIDENCE: 0.85
ANALYSIS: the parish register is an original record.`, 3)
	require.NoError(t, err)

	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)
	require.NotNil(t, verdict.WinningAssertion)
	assert.Equal(t, 1, *verdict.WinningAssertion, "1-based response index to 0-based")
	assert.InDelta(t, 0.85, verdict.Confidence, 1e-9)
	assert.Contains(t, verdict.Analysis, "parish register")
}

func TestParseVerdictPendingWithoutWinner(t *testing.T) {
	verdict, err := adjudicate.ParseVerdict(`STATUS: pending_review
WINNER: none
CONFIDENCE: 0.4
ANALYSIS: evidence is balanced.`, 2)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendingReview, verdict.ResolutionStatus)
	assert.Nil(t, verdict.WinningAssertion)
}

func TestParseVerdictMalformed(t *testing.T) {
	_, err := adjudicate.ParseVerdict("I think the first one is right.", 2)
	assert.Error(t, err, "no STATUS line")

	_, err = adjudicate.ParseVerdict("STATUS: maybe\nWINNER: 1", 2)
	assert.Error(t, err, "unknown status")

	_, err = adjudicate.ParseVerdict("STATUS: resolved\nWINNER: 5\nCONFIDENCE: 0.9", 2)
	assert.Error(t, err, "winner out of range")

	_, err = adjudicate.ParseVerdict("STATUS: resolved\nWINNER: none", 2)
	assert.Error(t, err, "resolved without a winner")
}

func TestParseVerdictTolerantFormatting(t *testing.T) {
	verdict, err := adjudicate.ParseVerdict(`  status: [Resolved]
  Winner: [1]
  confidence: not-a-number
  analysis: terse.`, 2)
	require.NoError(t, err)

	assert.Equal(t, model.StatusResolved, verdict.ResolutionStatus)
	require.NotNil(t, verdict.WinningAssertion)
	assert.Equal(t, 0, *verdict.WinningAssertion)
	assert.Zero(t, verdict.Confidence, "unparseable confidence is dropped")
}
