// Package synthesizer turns a scored entity into the written conclusion of a
// research run: best estimates, contested alternatives, citations, and the
// ordered next steps a genealogist would take.
package synthesizer

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/trace"
)

// gpsComplianceThreshold is the minimum compliance score for a conclusion to
// claim the proof standard is met.
const gpsComplianceThreshold = 0.7

// Confidence and corroboration thresholds driving next-step suggestions.
const (
	expandSearchBelow = 0.7
	minCorroboration  = 2
)

// Synthesizer writes conclusions. It is stateless; one instance serves all
// entities of a run.
type Synthesizer struct {
	logger *slog.Logger
}

// New creates a synthesizer.
func New(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{logger: logger}
}

// Synthesize produces the conclusion for one entity from its records and
// evidence score.
func (s *Synthesizer) Synthesize(entity model.ResolvedEntity, records []model.RawRecord, score model.EvidenceScore, rec *trace.Recorder) model.Synthesis {
	start := time.Now()

	syn := model.Synthesis{
		EntityID:          entity.ID,
		BestEstimate:      make(map[string]string),
		Citations:         buildCitations(records),
		OverallConfidence: score.OverallConfidence,
	}

	for _, fe := range score.Fields {
		if fe.BestValue == "" {
			continue
		}
		syn.BestEstimate[fe.FieldName] = fe.BestValue
		if fe.IsContested {
			syn.ContestedFields = append(syn.ContestedFields, model.ContestedFieldOutput{
				FieldName:      fe.FieldName,
				BestValue:      fe.BestValue,
				ConsensusScore: fe.ConsensusScore,
				Alternatives:   fe.Groups,
			})
		} else if fe.IsConsensus {
			syn.ConsensusFields = append(syn.ConsensusFields, fe.FieldName)
		}
	}
	sort.Strings(syn.ConsensusFields)

	syn.NextSteps = nextSteps(entity, score)
	syn.GPSCompliant, syn.GPSNotes = gpsVerdict(score)

	rec.TimedEvent(model.RoleSynthesizer, model.EventSynthesisCompleted, "synthesis completed", map[string]any{
		"entity_id":        entity.ID,
		"consensus_fields": len(syn.ConsensusFields),
		"contested_fields": len(syn.ContestedFields),
		"citations":        len(syn.Citations),
		"gps_compliant":    syn.GPSCompliant,
	}, time.Since(start))

	return syn
}

// buildCitations renders one citation per record, deduplicated, in record
// order. The format is stable because downstream consumers diff run outputs.
func buildCitations(records []model.RawRecord) []string {
	seen := make(map[string]bool, len(records))
	citations := make([]string, 0, len(records))
	for _, r := range records {
		c := fmt.Sprintf("%s, record %s, (%s)", r.Source, r.RecordID, r.RecordType)
		if r.URL != "" {
			c += ", <" + r.URL + ">"
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		citations = append(citations, c)
	}
	return citations
}

// nextSteps suggests follow-up research in priority order. At most one step
// per shortfall; a fully corroborated high-confidence entity gets the single
// closing statement.
func nextSteps(entity model.ResolvedEntity, score model.EvidenceScore) []string {
	var steps []string
	if score.OverallConfidence < expandSearchBelow {
		steps = append(steps, "Expand the search to additional sources to raise confidence in the identification.")
	}
	if score.OriginalSources == 0 {
		steps = append(steps, "Locate original records (parish registers, civil registration images) to replace derivative evidence.")
	}
	if score.RequiresHumanReview {
		steps = append(steps, "Review the contested fields manually; automated adjudication could not settle them.")
	}
	if entity.SourceCount < minCorroboration {
		steps = append(steps, "Corroborate with at least one independent source before accepting the conclusion.")
	}
	if len(steps) == 0 {
		steps = append(steps, "Evidence meets the Genealogical Proof Standard; no further research is required for this conclusion.")
	}
	return steps
}

// gpsVerdict decides GPS compliance and explains the decision either way.
func gpsVerdict(score model.EvidenceScore) (bool, string) {
	switch {
	case score.GPSComplianceScore < gpsComplianceThreshold:
		return false, fmt.Sprintf("compliance score %.2f below the %.2f threshold", score.GPSComplianceScore, gpsComplianceThreshold)
	case score.RequiresHumanReview:
		return false, "unresolved conflicts require human review"
	case score.OriginalSources == 0:
		return false, "no original sources support the conclusion"
	}
	return true, fmt.Sprintf("reasonably exhaustive evidence, score %.2f, %d original source(s)", score.GPSComplianceScore, score.OriginalSources)
}
