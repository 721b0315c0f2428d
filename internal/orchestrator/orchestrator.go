// Package orchestrator drives a research run through its stages: plan,
// budget-check, execute, resolve, verify, synthesize.
//
// The pipeline is a linear state machine. Every stage transition lands in the
// run trace, and the orchestrator is the only component that finalizes it. A
// run that finds nothing is still a successful run; only planning errors,
// cancellation, and panics fail one.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/keifu-ai/keifu/internal/budget"
	"github.com/keifu-ai/keifu/internal/executor"
	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/planner"
	"github.com/keifu-ai/keifu/internal/resolver"
	"github.com/keifu-ai/keifu/internal/synthesizer"
	"github.com/keifu-ai/keifu/internal/telemetry"
	"github.com/keifu-ai/keifu/internal/trace"
	"github.com/keifu-ai/keifu/internal/verifier"
)

// maxSynthesizedEntities bounds per-run verification work. Entities arrive
// sorted by cluster confidence, so the cut keeps the best candidates.
const maxSynthesizedEntities = 25

// Orchestrator owns the pipeline stages for the lifetime of the process and
// creates a fresh trace recorder per run.
type Orchestrator struct {
	planner     *planner.Planner
	budget      *budget.Policy
	executor    *executor.Executor
	resolver    *resolver.Resolver
	verifier    *verifier.Verifier
	synthesizer *synthesizer.Synthesizer
	logger      *slog.Logger
	tracer      oteltrace.Tracer
}

// New wires the stages together. All arguments are required except logger.
func New(
	p *planner.Planner,
	b *budget.Policy,
	e *executor.Executor,
	r *resolver.Resolver,
	v *verifier.Verifier,
	s *synthesizer.Synthesizer,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		planner:     p,
		budget:      b,
		executor:    e,
		resolver:    r,
		verifier:    v,
		synthesizer: s,
		logger:      logger,
		tracer:      telemetry.Tracer("keifu/orchestrator"),
	}
}

// Research runs the full pipeline for one query. The response always carries
// a finalized trace, even on failure.
func (o *Orchestrator) Research(ctx context.Context, query model.SearchQuery, maxSources int, totalBudgetSeconds float64) (resp model.ManagerResponse) {
	rec := trace.NewRecorder(o.logger)

	ctx, span := o.tracer.Start(ctx, "keifu.research",
		oteltrace.WithAttributes(
			attribute.String("run_id", rec.RunID().String()),
			attribute.String("query.surname", query.Surname),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("orchestrator: panic: %v", r)
			o.logger.Error("orchestrator: run panicked", "run_id", rec.RunID(), "panic", r)
			rec.Error(model.RoleOrchestrator, "run panicked", err)
			resp = o.finish(rec, false, err.Error(), nil, false)
		}
	}()

	plan, err := o.planner.CreatePlan(query, maxSources, totalBudgetSeconds)
	if err != nil {
		rec.Error(model.RolePlanner, "planning failed", err)
		return o.finish(rec, false, err.Error(), nil, false)
	}
	rec.Event(model.RolePlanner, model.EventPlanCreated, "plan created", map[string]any{
		"plan_id":          plan.ID.String(),
		"region":           string(plan.Region),
		"surname_variants": len(plan.SurnameVariants),
		"sources":          len(plan.SourceBudgets),
		"budget_seconds":   plan.TotalBudgetSeconds,
	})

	plan = o.checkBudget(plan, rec)

	execution, err := o.executor.Execute(ctx, plan, rec)
	if err != nil {
		rec.Error(model.RoleExecutor, "execution aborted", err)
		return o.finish(rec, false, err.Error(), nil, false)
	}
	if execution.TotalRecords() == 0 {
		o.logger.Info("orchestrator: no records found", "run_id", rec.RunID())
		return o.finish(rec, true, "", nil, false)
	}

	clusters := o.resolver.Resolve(execution, rec)
	if clusters.TotalEntities == 0 {
		o.logger.Info("orchestrator: no entities resolved",
			"run_id", rec.RunID(), "unresolved", len(clusters.UnresolvedRecordIDs))
		return o.finish(rec, true, "", nil, false)
	}

	recordsByKey := make(map[string]model.RawRecord, len(execution.AllRecords))
	for _, r := range execution.AllRecords {
		recordsByKey[r.Key()] = r
	}

	entities := clusters.Entities
	if len(entities) > maxSynthesizedEntities {
		entities = entities[:maxSynthesizedEntities]
	}

	syntheses := make([]model.Synthesis, 0, len(entities))
	requiresHuman := false
	for _, entity := range entities {
		records := make([]model.RawRecord, 0, len(entity.RecordIDs))
		for _, id := range entity.RecordIDs {
			if r, ok := recordsByKey[id]; ok {
				records = append(records, r)
			}
		}

		score := o.verifier.Verify(ctx, entity, records, rec)
		syn := o.synthesizer.Synthesize(entity, records, score, rec)
		syntheses = append(syntheses, syn)

		if score.RequiresHumanReview || len(syn.ContestedFields) > 0 {
			requiresHuman = true
		}
	}

	return o.finish(rec, true, "", syntheses, requiresHuman)
}

// checkBudget validates the plan against the caps, adjusting it when over.
// Either outcome is a budget_check trace event.
func (o *Orchestrator) checkBudget(plan model.SearchPlan, rec *trace.Recorder) model.SearchPlan {
	ok, reason := o.budget.Validate(plan)
	if ok {
		rec.Event(model.RoleBudget, model.EventBudgetCheck, "plan within budget", map[string]any{
			"plan_id":       plan.ID.String(),
			"within_budget": true,
		})
		return plan
	}

	adjusted := o.budget.Adjust(plan)
	rec.Event(model.RoleBudget, model.EventBudgetCheck, "plan adjusted to fit budget", map[string]any{
		"plan_id":           plan.ID.String(),
		"within_budget":     false,
		"reason":            reason,
		"sources":           len(adjusted.SourceBudgets),
		"total_max_results": adjusted.TotalMaxResults(),
		"budget_seconds":    adjusted.TotalBudgetSeconds,
	})
	return adjusted
}

// finish finalizes the trace and assembles the response. The first synthesis
// is the primary one: entities are ordered by cluster confidence.
func (o *Orchestrator) finish(rec *trace.Recorder, success bool, errMsg string, syntheses []model.Synthesis, requiresHuman bool) model.ManagerResponse {
	rec.Finalize(success)
	snapshot := rec.Snapshot()

	resp := model.ManagerResponse{
		Trace:                 &snapshot,
		Syntheses:             syntheses,
		Success:               success,
		Error:                 errMsg,
		RequiresHumanDecision: requiresHuman,
	}
	if len(syntheses) > 0 {
		resp.PrimarySynthesis = &syntheses[0]
	}
	return resp
}
