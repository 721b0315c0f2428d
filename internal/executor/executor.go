// Package executor fans searches out to the planned sources.
//
// Sources within a pass run concurrently, each attempt under its own
// deadline derived from the plan's per-source budget. Every source failure
// is recoverable: the executor aggregates what succeeded and lists what
// failed. A second pass over the sources not yet tried runs when the
// confidence estimate after pass one falls below the plan's threshold.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/keifu-ai/keifu/internal/cache"
	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/ratelimit"
	"github.com/keifu-ai/keifu/internal/registry"
	"github.com/keifu-ai/keifu/internal/telemetry"
	"github.com/keifu-ai/keifu/internal/trace"
)

// limiterPollInterval is how often a rate-limited task re-asks the limiter.
const limiterPollInterval = 100 * time.Millisecond

// Executor runs search plans against registered sources.
type Executor struct {
	registry *registry.Registry
	limiter  ratelimit.Limiter
	cache    cache.Store // nil = caching disabled
	logger   *slog.Logger

	searchDuration metric.Float64Histogram
}

// New creates an executor. limiter may be nil (no pacing); store may be nil
// (no caching).
func New(reg *registry.Registry, limiter ratelimit.Limiter, store cache.Store, logger *slog.Logger) *Executor {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	hist, _ := telemetry.Meter("keifu/executor").Float64Histogram(
		"keifu.executor.search_duration_seconds",
		metric.WithDescription("Wall-clock duration of individual source searches"),
	)
	return &Executor{registry: reg, limiter: limiter, cache: store, logger: logger, searchDuration: hist}
}

// Execute runs the plan and aggregates results across one or two passes.
// The returned error is non-nil only on cancellation; source-level failures
// are carried inside the result.
func (e *Executor) Execute(ctx context.Context, plan model.SearchPlan, rec *trace.Recorder) (model.ExecutionResult, error) {
	start := time.Now()
	result := model.ExecutionResult{PlanID: plan.ID, PassNumber: 1}

	firstPass := plan.SourceBudgets
	twoPassEnabled := plan.FirstPassSourceLimit > 0 && plan.FirstPassSourceLimit < len(plan.SourceBudgets)
	if twoPassEnabled {
		firstPass = plan.SourceBudgets[:plan.FirstPassSourceLimit]
	}

	rec.Event(model.RoleExecutor, model.EventExecutionStarted, "first pass started", map[string]any{
		"plan_id":      plan.ID.String(),
		"sources":      len(firstPass),
		"plan_sources": len(plan.SourceBudgets),
	})

	passResults, err := e.runPass(ctx, plan, firstPass, start, rec)
	if err != nil {
		return result, err
	}
	result.SourceResults = passResults
	confidence := confidenceAfterPass(passResults)

	if twoPassEnabled && confidence < plan.SecondPassThreshold {
		remaining := plan.SourceBudgets[plan.FirstPassSourceLimit:]
		rec.Event(model.RoleExecutor, model.EventExecutionStarted, "second pass started", map[string]any{
			"plan_id":           plan.ID.String(),
			"sources":           len(remaining),
			"confidence_pass_1": confidence,
		})

		secondResults, err := e.runPass(ctx, plan, remaining, start, rec)
		if err != nil {
			return result, err
		}
		result.SourceResults = append(result.SourceResults, secondResults...)
		result.PassNumber = 2
		confidence = confidenceAfterPass(result.SourceResults)
	}

	aggregate(&result, plan.MaxTotalResults)
	result.ConfidenceAfterPass = confidence
	result.TotalExecutionTimeMs = time.Since(start).Milliseconds()

	rec.TimedEvent(model.RoleExecutor, model.EventExecutionCompleted, "execution completed", map[string]any{
		"plan_id":         plan.ID.String(),
		"total_records":   result.TotalRecords(),
		"sources_ok":      len(result.SourcesSearched),
		"sources_failed":  len(result.SourcesFailed),
		"pass_number":     result.PassNumber,
		"confidence":      result.ConfidenceAfterPass,
	}, time.Since(start))

	return result, nil
}

// runPass dispatches one budget slice concurrently and returns per-source
// results in source completion order. Only cancellation aborts the pass.
func (e *Executor) runPass(ctx context.Context, plan model.SearchPlan, budgets []model.SourceBudget, runStart time.Time, rec *trace.Recorder) ([]model.SourceExecutionResult, error) {
	results := make([]model.SourceExecutionResult, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range budgets {
		g.Go(func() error {
			results[i] = e.searchSource(gctx, plan, b, runStart, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("executor: pass cancelled: %w", ctx.Err())
	}
	return results, nil
}

// searchSource runs one source's attempts under its budget. Never returns an
// error; failures become a SourceExecutionResult with Success=false.
func (e *Executor) searchSource(ctx context.Context, plan model.SearchPlan, b model.SourceBudget, runStart time.Time, rec *trace.Recorder) model.SourceExecutionResult {
	start := time.Now()
	result := model.SourceExecutionResult{SourceName: b.SourceName}

	fail := func(errMsg string, retries int) model.SourceExecutionResult {
		result.Success = false
		result.Error = errMsg
		result.RetryCount = retries
		result.SearchTimeMs = time.Since(start).Milliseconds()
		rec.TimedEvent(model.RoleExecutor, model.EventSourceFailed, "source failed: "+b.SourceName, map[string]any{
			"source":  b.SourceName,
			"error":   errMsg,
			"retries": retries,
		}, time.Since(start))
		return result
	}

	src, ok := e.registry.Lookup(b.SourceName)
	if !ok {
		return fail("Source not registered", 0)
	}

	queryKey := cache.QueryKey(plan.Query)
	if records, hit := e.cacheGet(ctx, b.SourceName, queryKey); hit {
		return e.succeed(&result, b, queryKey, records, start, rec, true, 0)
	}

	var lastErr error
	for attempt := 0; attempt <= b.RetryCount; attempt++ {
		// The total budget is advisory: in-flight attempts complete under
		// their own deadlines, but no new retry starts once it is exhausted.
		if attempt > 0 && time.Since(runStart).Seconds() > plan.TotalBudgetSeconds {
			e.logger.Warn("executor: total budget exhausted, abandoning retries",
				"source", b.SourceName, "attempt", attempt)
			break
		}

		records, err := e.attempt(ctx, plan.Query, src, b)
		if err == nil {
			return e.succeed(&result, b, queryKey, records, start, rec, false, attempt)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Debug("executor: attempt failed",
			"source", b.SourceName, "attempt", attempt, "error", err)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("executor: no attempts made")
	}
	return fail(lastErr.Error(), b.RetryCount)
}

// attempt performs a single search under the per-attempt deadline, pacing it
// through the rate limiter first.
func (e *Executor) attempt(ctx context.Context, query model.SearchQuery, src registry.Source, b model.SourceBudget) ([]model.RawRecord, error) {
	timeout := time.Duration(b.TimeoutSeconds * float64(time.Second))
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.waitForLimiter(attemptCtx, b.SourceName); err != nil {
		return nil, err
	}

	searchStart := time.Now()
	records, err := src.Search(attemptCtx, query)
	if e.searchDuration != nil {
		e.searchDuration.Record(ctx, time.Since(searchStart).Seconds(),
			metric.WithAttributes(attribute.String("source", b.SourceName)))
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", b.SourceName, err)
	}
	return records, nil
}

// waitForLimiter polls the rate limiter until a token is available or the
// attempt deadline expires. Limiter errors are fail-open.
func (e *Executor) waitForLimiter(ctx context.Context, source string) error {
	for {
		allowed, err := e.limiter.Allow(ctx, source)
		if err != nil {
			e.logger.Warn("executor: rate limiter error, failing open", "source", source, "error", err)
			return nil
		}
		if allowed {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limited: %w", ctx.Err())
		case <-time.After(limiterPollInterval):
		}
	}
}

// succeed finalizes a successful source result: records are truncated to the
// source's cap, normalized, cached, and traced.
func (e *Executor) succeed(result *model.SourceExecutionResult, b model.SourceBudget, queryKey string, records []model.RawRecord, start time.Time, rec *trace.Recorder, fromCache bool, retries int) model.SourceExecutionResult {
	if len(records) > b.MaxResults {
		records = records[:b.MaxResults]
	}
	now := time.Now().UTC()
	for i := range records {
		if records[i].Source == "" {
			records[i].Source = b.SourceName
		}
		if records[i].AccessedAt.IsZero() {
			records[i].AccessedAt = now
		}
	}

	result.Success = true
	result.Records = records
	result.TotalCount = len(records)
	result.RetryCount = retries
	result.SearchTimeMs = time.Since(start).Milliseconds()

	if !fromCache {
		e.cachePut(b.SourceName, queryKey, records)
	}

	rec.TimedEvent(model.RoleExecutor, model.EventSourceSearched, "source searched: "+b.SourceName, map[string]any{
		"source":  b.SourceName,
		"records": len(records),
		"cached":  fromCache,
		"retries": retries,
	}, time.Since(start))
	return *result
}

func (e *Executor) cacheGet(ctx context.Context, source, queryKey string) ([]model.RawRecord, bool) {
	if e.cache == nil || queryKey == "" {
		return nil, false
	}
	records, hit, err := e.cache.Get(ctx, source, queryKey)
	if err != nil {
		e.logger.Warn("executor: cache get failed", "source", source, "error", err)
		return nil, false
	}
	return records, hit
}

// cachePut stores fresh results. Uses a background context with a short
// deadline so a cancelled run still persists what it fetched.
func (e *Executor) cachePut(source, queryKey string, records []model.RawRecord) {
	if e.cache == nil || queryKey == "" || len(records) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.cache.Put(ctx, source, queryKey, records); err != nil {
		e.logger.Warn("executor: cache put failed", "source", source, "error", err)
	}
}
