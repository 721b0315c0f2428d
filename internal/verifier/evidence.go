package verifier

import (
	"sort"
	"strings"

	"github.com/keifu-ai/keifu/internal/model"
)

// consensusThreshold is the weighted-agreement fraction above which a field
// with multiple value groups still counts as consensus.
const consensusThreshold = 0.7

// normalizeValue canonicalizes a field value for grouping.
func normalizeValue(v string) string {
	return strings.TrimSpace(strings.ToLower(v))
}

// buildFieldEvidence constructs per-field consensus views over the entity's
// records. Fields are emitted in sorted name order for determinism; record
// arrival order must not influence the output.
func buildFieldEvidence(records []model.RawRecord) []model.FieldEvidence {
	byField := make(map[string][]model.ValueObservation)
	var fieldNames []string

	for _, rec := range records {
		tier := ClassifyTier(rec.Source, rec.RecordType)
		// Iterate field names sorted so first-encounter order is stable
		// regardless of map iteration.
		keys := make([]string, 0, len(rec.ExtractedFields))
		for k := range rec.ExtractedFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, field := range keys {
			value := rec.ExtractedFields[field]
			if value == "" {
				continue
			}
			if _, seen := byField[field]; !seen {
				fieldNames = append(fieldNames, field)
			}
			byField[field] = append(byField[field], model.ValueObservation{
				Value:    value,
				RecordID: rec.Key(),
				Source:   rec.Source,
				Tier:     tier,
				Weight:   tier.Weight() * rec.Confidence(),
			})
		}
	}
	sort.Strings(fieldNames)

	evidence := make([]model.FieldEvidence, 0, len(fieldNames))
	for _, field := range fieldNames {
		evidence = append(evidence, buildOneField(field, byField[field]))
	}
	return evidence
}

func buildOneField(field string, observations []model.ValueObservation) model.FieldEvidence {
	groupIdx := make(map[string]int)
	var groups []model.ValueGroup
	totalWeight := 0.0

	for _, o := range observations {
		norm := normalizeValue(o.Value)
		idx, ok := groupIdx[norm]
		if !ok {
			idx = len(groups)
			groupIdx[norm] = idx
			groups = append(groups, model.ValueGroup{NormalizedValue: norm})
		}
		groups[idx].Observations = append(groups[idx].Observations, o)
		groups[idx].TotalWeight += o.Weight
		totalWeight += o.Weight
	}

	// Descending total weight; stable keeps first-encounter order within ties.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalWeight > groups[j].TotalWeight
	})

	fe := model.FieldEvidence{FieldName: field, Groups: groups}
	if len(groups) == 0 || totalWeight == 0 {
		return fe
	}

	fe.ConsensusScore = groups[0].TotalWeight / totalWeight
	fe.BestValue = heaviestObservation(groups[0]).Value
	fe.IsContested = len(groups) > 1 && fe.ConsensusScore < consensusThreshold
	fe.IsConsensus = !fe.IsContested
	return fe
}

// heaviestObservation returns the observation with the highest individual
// weight in the group, ties broken by position (first encounter).
func heaviestObservation(g model.ValueGroup) model.ValueObservation {
	best := g.Observations[0]
	for _, o := range g.Observations[1:] {
		if o.Weight > best.Weight {
			best = o
		}
	}
	return best
}
