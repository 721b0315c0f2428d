package synthesizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/synthesizer"
	"github.com/keifu-ai/keifu/internal/testutil"
	"github.com/keifu-ai/keifu/internal/trace"
)

func synthesize(t *testing.T, entity model.ResolvedEntity, records []model.RawRecord, score model.EvidenceScore) model.Synthesis {
	t.Helper()
	rec := trace.NewRecorder(testutil.Logger())
	return synthesizer.New(testutil.Logger()).Synthesize(entity, records, score, rec)
}

func TestSynthesizeBestEstimateAndFieldBuckets(t *testing.T) {
	score := model.EvidenceScore{
		OverallConfidence: 0.85,
		Fields: []model.FieldEvidence{
			{FieldName: "birth_year", BestValue: "1882", IsConsensus: true, ConsensusScore: 1.0},
			{FieldName: "full_name", BestValue: "Erik Lindqvist", IsConsensus: true, ConsensusScore: 1.0},
			{FieldName: "birth_place", BestValue: "Växjö", IsContested: true, ConsensusScore: 0.55,
				Groups: []model.ValueGroup{{NormalizedValue: "växjö"}, {NormalizedValue: "kalmar"}}},
			{FieldName: "occupation"}, // no best value, dropped
		},
	}

	syn := synthesize(t, model.ResolvedEntity{ID: "e1", SourceCount: 3}, nil, score)

	assert.Equal(t, "1882", syn.BestEstimate["birth_year"])
	assert.Equal(t, "Växjö", syn.BestEstimate["birth_place"])
	assert.NotContains(t, syn.BestEstimate, "occupation")

	assert.Equal(t, []string{"birth_year", "full_name"}, syn.ConsensusFields)
	require.Len(t, syn.ContestedFields, 1)
	assert.Equal(t, "birth_place", syn.ContestedFields[0].FieldName)
	assert.Len(t, syn.ContestedFields[0].Alternatives, 2)
	assert.InDelta(t, 0.55, syn.ContestedFields[0].ConsensusScore, 1e-9)
	assert.InDelta(t, 0.85, syn.OverallConfidence, 1e-9)
}

func TestBuildCitationsFormatAndDedupe(t *testing.T) {
	r1 := testutil.Record("arkivdigital", "C123", nil)
	r2 := testutil.Record("riksarkivet", "SE-VALA-1", nil)
	r2.URL = "https://sok.riksarkivet.se/SE-VALA-1"

	syn := synthesize(t, model.ResolvedEntity{ID: "e1"}, []model.RawRecord{r1, r2, r1}, model.EvidenceScore{})

	require.Len(t, syn.Citations, 2, "duplicate record cited once")
	assert.Equal(t, "arkivdigital, record C123, (birth)", syn.Citations[0])
	assert.Equal(t, "riksarkivet, record SE-VALA-1, (birth), <https://sok.riksarkivet.se/SE-VALA-1>", syn.Citations[1])
}

func TestNextStepsOrdering(t *testing.T) {
	// Everything is wrong at once: all four steps, in priority order.
	syn := synthesize(t, model.ResolvedEntity{ID: "e1", SourceCount: 1}, nil, model.EvidenceScore{
		OverallConfidence:   0.4,
		OriginalSources:     0,
		RequiresHumanReview: true,
	})

	require.Len(t, syn.NextSteps, 4)
	assert.Contains(t, syn.NextSteps[0], "Expand the search")
	assert.Contains(t, syn.NextSteps[1], "original records")
	assert.Contains(t, syn.NextSteps[2], "manually")
	assert.Contains(t, syn.NextSteps[3], "Corroborate")
}

func TestNextStepsClosingStatement(t *testing.T) {
	syn := synthesize(t, model.ResolvedEntity{ID: "e1", SourceCount: 3}, nil, model.EvidenceScore{
		OverallConfidence: 0.9,
		OriginalSources:   1,
	})

	require.Len(t, syn.NextSteps, 1)
	assert.Contains(t, syn.NextSteps[0], "no further research")
}

func TestGPSVerdict(t *testing.T) {
	base := model.ResolvedEntity{ID: "e1", SourceCount: 3}

	syn := synthesize(t, base, nil, model.EvidenceScore{GPSComplianceScore: 0.5, OriginalSources: 1})
	assert.False(t, syn.GPSCompliant)
	assert.Contains(t, syn.GPSNotes, "below")

	syn = synthesize(t, base, nil, model.EvidenceScore{
		GPSComplianceScore: 0.8, OriginalSources: 1, RequiresHumanReview: true,
	})
	assert.False(t, syn.GPSCompliant)
	assert.Contains(t, syn.GPSNotes, "human review")

	syn = synthesize(t, base, nil, model.EvidenceScore{GPSComplianceScore: 0.8, OriginalSources: 0})
	assert.False(t, syn.GPSCompliant)
	assert.Contains(t, syn.GPSNotes, "no original sources")

	syn = synthesize(t, base, nil, model.EvidenceScore{GPSComplianceScore: 0.82, OriginalSources: 2})
	assert.True(t, syn.GPSCompliant)
	assert.Contains(t, syn.GPSNotes, "0.82")
}
