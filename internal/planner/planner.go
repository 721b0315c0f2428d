// Package planner turns a search query into an executable SearchPlan:
// surname variants, an inferred region, and ranked per-source budgets.
//
// Planning is pure input-to-output: identical queries over an identical
// registry produce identical plans modulo the plan ID.
package planner

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/registry"
)

// Plan shape defaults. The two-pass knobs are planner policy, not caller
// input: callers tune budgets, the planner decides strategy.
const (
	defaultFirstPassLimit      = 5
	defaultSecondPassThreshold = 0.7
	defaultMaxTotalResults     = 200

	basePerSourceTimeoutCap = 30.0 // seconds, before priority scaling
	maxPerSourceTimeout     = 45.0 // seconds, hard cap after scaling
)

// defaultRecordTypes are searched when the query does not narrow them.
var defaultRecordTypes = []string{"birth", "death", "marriage", "census"}

// Planner creates search plans from queries.
type Planner struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a planner over the given registry.
func New(reg *registry.Registry, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{registry: reg, logger: logger}
}

// CreatePlan builds a SearchPlan for the query. maxSources <= 0 means no
// truncation of the ranked source list; totalBudgetSeconds must be positive.
func (p *Planner) CreatePlan(query model.SearchQuery, maxSources int, totalBudgetSeconds float64) (model.SearchPlan, error) {
	if query.Surname == "" && !query.HasStrongIdentifiers() {
		return model.SearchPlan{}, fmt.Errorf("planner: query needs a surname or strong identifiers (spouse/parents plus birth year)")
	}
	if totalBudgetSeconds <= 0 {
		return model.SearchPlan{}, fmt.Errorf("planner: total budget must be positive, got %v", totalBudgetSeconds)
	}

	if len(query.RecordTypes) == 0 {
		query.RecordTypes = append([]string(nil), defaultRecordTypes...)
	}

	variants := SurnameVariants(query.Surname)

	// An explicit region goes through the canonical name table; unknown names
	// fall back to inference so a typo cannot poison source ranking.
	region := CanonicalRegion(string(query.Region))
	if region == "" {
		region = InferRegion(query.BirthPlace)
	}

	ranked := p.registry.RankForQuery(query, region)
	if maxSources > 0 && len(ranked) > maxSources {
		ranked = ranked[:maxSources]
	}

	budgets := allocateBudgets(ranked, totalBudgetSeconds)

	plan := model.SearchPlan{
		ID:                   uuid.New(),
		Query:                query,
		SurnameVariants:      variants,
		Region:               region,
		SourceBudgets:        budgets,
		TotalBudgetSeconds:   totalBudgetSeconds,
		FirstPassSourceLimit: defaultFirstPassLimit,
		SecondPassThreshold:  defaultSecondPassThreshold,
		MaxTotalResults:      defaultMaxTotalResults,
	}

	p.logger.Debug("planner: plan created",
		"plan_id", plan.ID,
		"variants", len(variants),
		"region", string(region),
		"sources", len(budgets),
	)
	return plan, nil
}

// allocateBudgets distributes the total time budget across ranked sources.
// Higher-priority sources get more results, longer timeouts, and an extra
// retry; the per-source timeout never exceeds maxPerSourceTimeout.
func allocateBudgets(ranked []registry.RankedSource, totalBudgetSeconds float64) []model.SourceBudget {
	if len(ranked) == 0 {
		return nil
	}
	perSource := totalBudgetSeconds / float64(len(ranked))
	if perSource > basePerSourceTimeoutCap {
		perSource = basePerSourceTimeoutCap
	}

	budgets := make([]model.SourceBudget, len(ranked))
	for i, rs := range ranked {
		maxResults := 30
		retries := 1
		if rs.Priority >= 2 {
			maxResults = 50
			retries = 2
		}
		timeout := perSource * (1 + 0.2*float64(rs.Priority))
		if timeout > maxPerSourceTimeout {
			timeout = maxPerSourceTimeout
		}
		budgets[i] = model.SourceBudget{
			SourceName:     rs.Name,
			Priority:       rs.Priority,
			MaxResults:     maxResults,
			TimeoutSeconds: timeout,
			RetryCount:     retries,
		}
	}
	return budgets
}
