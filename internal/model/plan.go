package model

import "github.com/google/uuid"

// SourceBudget is the per-source slice of a search plan. Priorities strictly
// determine execution order; ties break on SourceName ascending.
type SourceBudget struct {
	SourceName     string  `json:"source_name"`
	Priority       int     `json:"priority"`
	MaxResults     int     `json:"max_results"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	RetryCount     int     `json:"retry_count"`
}

// SearchPlan is the planner's output: the query plus surname variants, the
// inferred region, and an ordered budget per ranked source. Read-only for
// every stage downstream of the planner.
type SearchPlan struct {
	ID                   uuid.UUID      `json:"id"`
	Query                SearchQuery    `json:"query"`
	SurnameVariants      []string       `json:"surname_variants"`
	Region               Region         `json:"region,omitempty"`
	SourceBudgets        []SourceBudget `json:"source_budgets"`
	TotalBudgetSeconds   float64        `json:"total_budget_seconds"`
	FirstPassSourceLimit int            `json:"first_pass_source_limit"`
	SecondPassThreshold  float64        `json:"second_pass_threshold"`
	MaxTotalResults      int            `json:"max_total_results"`
}

// TotalMaxResults sums the per-source result caps.
func (p SearchPlan) TotalMaxResults() int {
	total := 0
	for _, b := range p.SourceBudgets {
		total += b.MaxResults
	}
	return total
}

// SourceNames returns the budgeted source names in plan order.
func (p SearchPlan) SourceNames() []string {
	names := make([]string, len(p.SourceBudgets))
	for i, b := range p.SourceBudgets {
		names[i] = b.SourceName
	}
	return names
}
