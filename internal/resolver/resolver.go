// Package resolver clusters raw records into person entities.
//
// Clustering is exact: records sharing a content fingerprint over their
// identifying fields belong to the same entity. Confidence combines the
// records' own hints with a corroboration boost for independent sources.
package resolver

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/trace"
)

// Corroboration boost: +0.05 per distinct source beyond the first, capped.
const (
	boostPerExtraSource = 0.05
	maxBoost            = 0.2
)

var yearToken = regexp.MustCompile(`\b(1\d{3}|20\d{2})\b`)

// Resolver clusters execution results into entities.
type Resolver struct {
	logger *slog.Logger
}

// New creates a resolver.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve partitions the execution's records into entities and unresolved
// leftovers. Every input record lands in exactly one of the two.
func (r *Resolver) Resolve(execution model.ExecutionResult, rec *trace.Recorder) model.EntityClusters {
	start := time.Now()

	clusters := make(map[string][]model.RawRecord)
	var order []string // first-encounter order, for deterministic tie-breaking
	var unresolved []string

	for _, record := range execution.AllRecords {
		fp := Fingerprint(record.ExtractedFields)
		if fp == "" {
			unresolved = append(unresolved, record.Key())
			continue
		}
		if _, seen := clusters[fp]; !seen {
			order = append(order, fp)
		}
		clusters[fp] = append(clusters[fp], record)
	}

	entities := make([]model.ResolvedEntity, 0, len(clusters))
	for _, fp := range order {
		entities = append(entities, buildEntity(fp, clusters[fp]))
	}

	// Descending cluster confidence, stable within ties (first-encounter order).
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].ClusterConfidence > entities[j].ClusterConfidence
	})

	multiSource := 0
	for _, e := range entities {
		if e.SourceCount > 1 {
			multiSource++
		}
	}

	out := model.EntityClusters{
		ExecutionID:         execution.PlanID.String(),
		Entities:            entities,
		UnresolvedRecordIDs: unresolved,
		TotalRecords:        len(execution.AllRecords),
		TotalEntities:       len(entities),
		MultiSourceEntities: multiSource,
	}

	rec.TimedEvent(model.RoleResolver, model.EventEntitiesResolved, "entities resolved", map[string]any{
		"total_records":         out.TotalRecords,
		"total_entities":        out.TotalEntities,
		"multi_source_entities": out.MultiSourceEntities,
		"unresolved":            len(unresolved),
	}, time.Since(start))

	return out
}

// buildEntity derives an entity's best fields and confidence from its cluster.
func buildEntity(fingerprint string, records []model.RawRecord) model.ResolvedEntity {
	entity := model.ResolvedEntity{
		ID:          fingerprint,
		RecordCount: len(records),
	}

	sourceSet := make(map[string]bool)
	confidenceSum := 0.0
	for _, rec := range records {
		entity.RecordIDs = append(entity.RecordIDs, rec.Key())
		sourceSet[rec.Source] = true
		confidenceSum += rec.Confidence()
	}
	for source := range sourceSet {
		entity.Sources = append(entity.Sources, source)
	}
	sort.Strings(entity.Sources)
	entity.SourceCount = len(entity.Sources)

	entity.BestName = bestValue(records, "full_name")
	entity.BestBirthPlace = bestValue(records, "birth_place")
	entity.BestBirthYear = extractYear(bestValue(records, "birth_year", "birth_date"))
	entity.BestDeathYear = extractYear(bestValue(records, "death_year", "death_date"))

	base := confidenceSum / float64(len(records))
	boost := boostPerExtraSource * float64(entity.SourceCount-1)
	if boost > maxBoost {
		boost = maxBoost
	}
	entity.CorroborationBoost = boost
	entity.ClusterConfidence = base + boost
	if entity.ClusterConfidence > 1.0 {
		entity.ClusterConfidence = 1.0
	}
	return entity
}

// bestValue returns the value with the highest confidence hint among the
// given field keys, ties broken by first encounter. "" when no record has
// any of the keys.
func bestValue(records []model.RawRecord, keys ...string) string {
	best := ""
	bestConf := -1.0
	for _, rec := range records {
		for _, key := range keys {
			v, ok := rec.ExtractedFields[key]
			if !ok || v == "" {
				continue
			}
			if conf := rec.Confidence(); conf > bestConf {
				best = v
				bestConf = conf
			}
		}
	}
	return best
}

// extractYear pulls the first 4-digit token in [1000, 2099] out of value.
// Returns 0 when none is present.
func extractYear(value string) int {
	match := yearToken.FindString(value)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil || year < 1000 || year > 2099 {
		return 0
	}
	return year
}
