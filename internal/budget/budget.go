// Package budget enforces process-wide caps on search plans.
//
// The orchestrator never aborts a run over budget: a plan that fails
// Validate is passed through Adjust and the adjustment is recorded in the
// run trace as a budget_check event.
package budget

import (
	"fmt"
	"log/slog"

	"github.com/keifu-ai/keifu/internal/model"
)

// Caps are the process-wide limits a plan must fit within.
type Caps struct {
	MaxTotalSeconds float64
	MaxSources      int
	MaxResults      int // cap on the sum of per-source max_results
}

// DefaultCaps are sized for interactive research runs.
var DefaultCaps = Caps{
	MaxTotalSeconds: 300,
	MaxSources:      20,
	MaxResults:      500,
}

// Policy validates and adjusts plans against fixed caps.
type Policy struct {
	caps   Caps
	logger *slog.Logger
}

// New creates a budget policy. Zero-valued caps fields fall back to defaults.
func New(caps Caps, logger *slog.Logger) *Policy {
	if caps.MaxTotalSeconds <= 0 {
		caps.MaxTotalSeconds = DefaultCaps.MaxTotalSeconds
	}
	if caps.MaxSources <= 0 {
		caps.MaxSources = DefaultCaps.MaxSources
	}
	if caps.MaxResults <= 0 {
		caps.MaxResults = DefaultCaps.MaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{caps: caps, logger: logger}
}

// Caps returns the active caps.
func (p *Policy) Caps() Caps { return p.caps }

// Validate reports whether the plan fits the caps, with a reason when not.
func (p *Policy) Validate(plan model.SearchPlan) (bool, string) {
	if plan.TotalBudgetSeconds > p.caps.MaxTotalSeconds {
		return false, fmt.Sprintf("total budget %.0fs exceeds cap %.0fs", plan.TotalBudgetSeconds, p.caps.MaxTotalSeconds)
	}
	if len(plan.SourceBudgets) > p.caps.MaxSources {
		return false, fmt.Sprintf("%d sources exceed cap %d", len(plan.SourceBudgets), p.caps.MaxSources)
	}
	if total := plan.TotalMaxResults(); total > p.caps.MaxResults {
		return false, fmt.Sprintf("total max_results %d exceeds cap %d", total, p.caps.MaxResults)
	}
	return true, ""
}

// Adjust returns a copy of the plan forced under the caps: the source list is
// truncated (plan order preserved), per-source result caps are scaled down
// proportionally, and the total budget is clamped. A plan that already
// validates is returned unchanged.
func (p *Policy) Adjust(plan model.SearchPlan) model.SearchPlan {
	if ok, _ := p.Validate(plan); ok {
		return plan
	}

	adjusted := plan
	adjusted.SourceBudgets = make([]model.SourceBudget, len(plan.SourceBudgets))
	copy(adjusted.SourceBudgets, plan.SourceBudgets)

	if len(adjusted.SourceBudgets) > p.caps.MaxSources {
		adjusted.SourceBudgets = adjusted.SourceBudgets[:p.caps.MaxSources]
	}

	if total := adjusted.TotalMaxResults(); total > p.caps.MaxResults {
		ratio := float64(p.caps.MaxResults) / float64(total)
		scaledTotal := 0
		for i := range adjusted.SourceBudgets {
			scaled := int(float64(adjusted.SourceBudgets[i].MaxResults) * ratio)
			if scaled < 1 {
				scaled = 1
			}
			adjusted.SourceBudgets[i].MaxResults = scaled
			scaledTotal += scaled
		}
		// Flooring can land under the cap; rounding up minimums can land over.
		// Shave the overage off the lowest-priority sources (end of the list).
		for i := len(adjusted.SourceBudgets) - 1; i >= 0 && scaledTotal > p.caps.MaxResults; i-- {
			b := &adjusted.SourceBudgets[i]
			if b.MaxResults > 1 {
				give := min(b.MaxResults-1, scaledTotal-p.caps.MaxResults)
				b.MaxResults -= give
				scaledTotal -= give
			}
		}
	}

	if adjusted.TotalBudgetSeconds > p.caps.MaxTotalSeconds {
		adjusted.TotalBudgetSeconds = p.caps.MaxTotalSeconds
	}

	p.logger.Info("budget: plan adjusted",
		"plan_id", plan.ID,
		"sources", len(adjusted.SourceBudgets),
		"total_max_results", adjusted.TotalMaxResults(),
		"total_budget_seconds", adjusted.TotalBudgetSeconds,
	)
	return adjusted
}
