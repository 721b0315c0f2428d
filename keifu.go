// Package keifu is the public API for embedding the Keifu genealogical
// research pipeline.
//
// Consumers construct an App with their data sources, then run research
// queries against it:
//
//	app, err := keifu.New(
//	    keifu.WithLogger(logger),
//	    keifu.WithSource(myParishRegisterSource{}),
//	    keifu.WithSource(myCensusIndexSource{}),
//	)
//	if err != nil { ... }
//	defer app.Close(ctx)
//	result, err := app.Research(ctx, keifu.Query{Surname: "Lindqvist", BirthYear: 1882})
//
// The import graph enforces a strict no-cycle rule: keifu (root) imports
// internal/*, but internal/* never imports keifu (root). Public types (Query,
// Record, Conclusion, etc.) are standalone structs with no internal imports;
// conversion helpers live here because this is the only file that sees both
// sides of the boundary.
package keifu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/keifu-ai/keifu/internal/adjudicate"
	"github.com/keifu-ai/keifu/internal/budget"
	"github.com/keifu-ai/keifu/internal/cache"
	"github.com/keifu-ai/keifu/internal/config"
	"github.com/keifu-ai/keifu/internal/executor"
	"github.com/keifu-ai/keifu/internal/mcp"
	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/orchestrator"
	"github.com/keifu-ai/keifu/internal/planner"
	"github.com/keifu-ai/keifu/internal/ratelimit"
	"github.com/keifu-ai/keifu/internal/registry"
	"github.com/keifu-ai/keifu/internal/resolver"
	"github.com/keifu-ai/keifu/internal/synthesizer"
	"github.com/keifu-ai/keifu/internal/telemetry"
	"github.com/keifu-ai/keifu/internal/verifier"
)

// App is the research pipeline lifecycle. Construct with New(), query with
// Research(), release resources with Close(). App has no public fields; use
// New() options to configure it.
type App struct {
	cfg          config.Config
	registry     *registry.Registry
	orch         *orchestrator.Orchestrator
	store        cache.Store // nil when caching is disabled
	limiter      ratelimit.Limiter
	mcpSrv       *mcp.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the pipeline: loads configuration, wires all stages, and
// registers the provided sources. It does not start any goroutines; each
// Research call runs its own.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.caps != nil {
		if o.caps.MaxTotalSeconds > 0 {
			cfg.MaxTotalBudgetSeconds = o.caps.MaxTotalSeconds
		}
		if o.caps.MaxSources > 0 {
			cfg.MaxSources = o.caps.MaxSources
		}
		if o.caps.MaxResults > 0 {
			cfg.MaxTotalResults = o.caps.MaxResults
		}
	}
	if o.cachePath != "" {
		cfg.CachePath = o.cachePath
		if o.cacheTTL > 0 {
			cfg.CacheTTL = o.cacheTTL
		}
	}
	if o.rateLimitSet {
		cfg.RateLimitPerSource = o.rateLimitRPS
		cfg.RateLimitBurst = o.rateLimitBurst
	}
	if o.strictCitations != nil {
		cfg.StrictCitations = *o.strictCitations
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("keifu starting", "version", version, "sources", len(o.sources))

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, true)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Source registry.
	reg := registry.New()
	for _, s := range o.sources {
		if err := reg.Register(&sourceAdapter{s: s}); err != nil {
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("register source: %w", err)
		}
	}

	// Result cache.
	var store cache.Store
	if cfg.CachePath != "" {
		sqlStore, err := cache.NewSQLiteStore(cfg.CachePath, cfg.CacheTTL, logger)
		if err != nil {
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("cache: %w", err)
		}
		store = sqlStore
		logger.Info("result cache: sqlite", "path", cfg.CachePath, "ttl", cfg.CacheTTL)
	} else {
		logger.Info("result cache: disabled (no KEIFU_CACHE_PATH)")
	}

	// Rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitPerSource > 0 {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerSource, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitPerSource, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// Conflict adjudicator. An external override takes priority over auto-detect.
	var adj adjudicate.Adjudicator
	if o.adjudicator != nil {
		adj = &adjudicatorAdapter{a: o.adjudicator}
	} else {
		adj = newAdjudicator(cfg, logger)
	}

	// Pipeline stages.
	ver := verifier.New(adj, verifier.Config{
		Firewall: verifier.Firewall{Strict: cfg.StrictCitations},
	}, logger)
	orch := orchestrator.New(
		planner.New(reg, logger),
		budget.New(budget.Caps{
			MaxTotalSeconds: cfg.MaxTotalBudgetSeconds,
			MaxSources:      cfg.MaxSources,
			MaxResults:      cfg.MaxTotalResults,
		}, logger),
		executor.New(reg, limiter, store, logger),
		resolver.New(logger),
		ver,
		synthesizer.New(logger),
		logger,
	)

	return &App{
		cfg:          cfg,
		registry:     reg,
		orch:         orch,
		store:        store,
		limiter:      limiter,
		mcpSrv:       mcp.New(orch, cfg.MaxSources, cfg.MaxTotalBudgetSeconds, logger, version),
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// RegisterSource adds a source after construction. Registration during an
// in-flight Research call is safe; the new source is visible to later runs.
func (a *App) RegisterSource(s Source) error {
	return a.registry.Register(&sourceAdapter{s: s})
}

// Sources returns the registered source names, sorted.
func (a *App) Sources() []string { return a.registry.Names() }

// Version returns the version string set at construction.
func (a *App) Version() string { return a.version }

// Research runs the full pipeline for one query under the configured budget
// caps. The returned Result always carries the run trace; err is non-nil only
// when the run itself failed (invalid query, cancellation, panic).
func (a *App) Research(ctx context.Context, q Query) (Result, error) {
	resp := a.orch.Research(ctx, toInternalQuery(q), a.cfg.MaxSources, a.cfg.MaxTotalBudgetSeconds)
	result := toPublicResult(resp)
	if !resp.Success {
		return result, errors.New(resp.Error)
	}
	return result, nil
}

// ServeMCP runs the Model Context Protocol server over stdio, blocking until
// ctx is cancelled or stdin closes. The keifu_research tool and run trace
// resources are served to the connected MCP client.
func (a *App) ServeMCP(ctx context.Context) error {
	a.logger.Info("keifu mcp: serving on stdio")
	return mcpserver.NewStdioServer(a.mcpSrv.MCPServer()).Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the cache, rate limiter, and telemetry provider.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("keifu shutting down")
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if err := a.limiter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("limiter close: %w", err))
	}
	if err := a.otelShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// ── Adapters (defined here because this file imports both sides) ───────────────

// sourceAdapter wraps a public keifu.Source to satisfy registry.Source.
// It converts internal model types to public keifu types at the boundary.
type sourceAdapter struct {
	s Source
}

func (a *sourceAdapter) Name() string { return a.s.Name() }

func (a *sourceAdapter) Metadata() model.SourceMetadata {
	pub := a.s.Metadata()
	md := model.SourceMetadata{
		RecordTypes: pub.RecordTypes,
		TierHint:    model.SourceTier(pub.TierHint),
	}
	for _, r := range pub.Regions {
		md.Regions = append(md.Regions, model.Region(r))
	}
	return md
}

func (a *sourceAdapter) Search(ctx context.Context, query model.SearchQuery) ([]model.RawRecord, error) {
	records, err := a.s.Search(ctx, toPublicQuery(query))
	if err != nil {
		return nil, err
	}
	out := make([]model.RawRecord, len(records))
	for i, r := range records {
		out[i] = model.RawRecord{
			Source:          a.s.Name(),
			RecordID:        r.RecordID,
			RecordType:      r.RecordType,
			URL:             r.URL,
			ExtractedFields: r.Fields,
			RawData:         r.Raw,
			ConfidenceHint:  r.Confidence,
			AccessedAt:      r.AccessedAt,
		}
	}
	return out, nil
}

// adjudicatorAdapter wraps a public keifu.Adjudicator to satisfy
// adjudicate.Adjudicator.
type adjudicatorAdapter struct {
	a Adjudicator
}

func (a *adjudicatorAdapter) Adjudicate(ctx context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	conflict := Conflict{
		SubjectID: input.SubjectID,
		FactType:  input.FactType,
	}
	for _, as := range input.Assertions {
		weight := as.PriorWeight + as.TemporalProximityBonus - as.PatternPenalty
		if weight < 0 {
			weight = 0
		}
		conflict.Assertions = append(conflict.Assertions, Assertion{
			Value:     as.Value,
			Weight:    weight,
			Patterns:  as.Patterns,
			RecordIDs: as.EvidenceRecordIDs,
		})
	}

	v, err := a.a.Adjudicate(ctx, conflict)
	if err != nil {
		return model.AdjudicationVerdict{}, err
	}

	status := model.ResolutionStatus(v.Status)
	if !status.Valid() {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicator returned unknown status %q", v.Status)
	}
	verdict := model.AdjudicationVerdict{
		ResolutionStatus: status,
		WinningAssertion: v.Winner,
		Confidence:       v.Confidence,
		Analysis:         v.Analysis,
	}
	for _, tb := range v.TieBreakers {
		verdict.TieBreakerQueries = append(verdict.TieBreakerQueries, model.TieBreakerQuery{QueryString: tb})
	}
	return verdict, nil
}

// ── Type converters ────────────────────────────────────────────────────────────

// toInternalQuery converts a public keifu.Query to the internal model.
func toInternalQuery(q Query) model.SearchQuery {
	return model.SearchQuery{
		Surname:     q.Surname,
		GivenName:   q.GivenName,
		BirthYear:   model.YearRange{Year: q.BirthYear, Tolerance: q.BirthYearTolerance},
		DeathYear:   model.YearRange{Year: q.DeathYear, Tolerance: q.DeathYearTolerance},
		BirthPlace:  q.BirthPlace,
		Places:      q.Places,
		SpouseName:  q.SpouseName,
		ParentNames: q.ParentNames,
		RecordTypes: q.RecordTypes,
		Exclusions:  q.Exclusions,
		Region:      model.Region(q.Region),
	}
}

// toPublicQuery converts an internal model.SearchQuery back to the public
// form handed to Source implementations.
func toPublicQuery(q model.SearchQuery) Query {
	return Query{
		Surname:            q.Surname,
		GivenName:          q.GivenName,
		BirthYear:          q.BirthYear.Year,
		BirthYearTolerance: q.BirthYear.Tolerance,
		DeathYear:          q.DeathYear.Year,
		DeathYearTolerance: q.DeathYear.Tolerance,
		BirthPlace:         q.BirthPlace,
		Places:             q.Places,
		SpouseName:         q.SpouseName,
		ParentNames:        q.ParentNames,
		RecordTypes:        q.RecordTypes,
		Exclusions:         q.Exclusions,
		Region:             string(q.Region),
	}
}

// toPublicResult converts an orchestrator response to the public Result.
func toPublicResult(resp model.ManagerResponse) Result {
	result := Result{
		Success:               resp.Success,
		Error:                 resp.Error,
		RequiresHumanDecision: resp.RequiresHumanDecision,
	}
	for _, syn := range resp.Syntheses {
		result.Conclusions = append(result.Conclusions, toPublicConclusion(syn))
	}
	if len(result.Conclusions) > 0 {
		result.Primary = &result.Conclusions[0]
	}
	if resp.Trace != nil {
		result.RunID = resp.Trace.RunID.String()
		for _, ev := range resp.Trace.Events {
			result.Events = append(result.Events, TraceEvent{
				Timestamp:  ev.Timestamp,
				StageID:    ev.StageID,
				Role:       string(ev.Role),
				Kind:       string(ev.Kind),
				Message:    ev.Message,
				DurationMs: ev.DurationMs,
				Error:      ev.Error,
			})
		}
	}
	return result
}

// toPublicConclusion converts an internal synthesis to the public Conclusion.
func toPublicConclusion(syn model.Synthesis) Conclusion {
	c := Conclusion{
		EntityID:        syn.EntityID,
		BestEstimate:    syn.BestEstimate,
		ConsensusFields: syn.ConsensusFields,
		Citations:       syn.Citations,
		Confidence:      syn.OverallConfidence,
		NextSteps:       syn.NextSteps,
		GPSCompliant:    syn.GPSCompliant,
		GPSNotes:        syn.GPSNotes,
	}
	for _, cf := range syn.ContestedFields {
		out := ContestedField{
			Name:           cf.FieldName,
			BestValue:      cf.BestValue,
			ConsensusScore: cf.ConsensusScore,
		}
		for _, g := range cf.Alternatives {
			out.Alternatives = append(out.Alternatives, g.NormalizedValue)
		}
		c.ContestedFields = append(c.ContestedFields, out)
	}
	return c
}

// ── Helpers ────────────────────────────────────────────────────────────────────

// newAdjudicator builds the conflict adjudicator from configuration.
func newAdjudicator(cfg config.Config, logger *slog.Logger) adjudicate.Adjudicator {
	switch cfg.AdjudicatorProvider {
	case "ollama":
		logger.Info("adjudicator: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return adjudicate.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	case "openai":
		logger.Info("adjudicator: openai", "model", cfg.OpenAIModel)
		return adjudicate.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "rules":
		logger.Info("adjudicator: rules (weighted margins, no LLM)")
		return adjudicate.Rules{}
	case "noop":
		logger.Info("adjudicator: noop (conflicts stay pending)")
		return adjudicate.Noop{}
	case "auto":
		fallthrough
	default:
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("adjudicator: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
			return adjudicate.NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		}
		if cfg.OpenAIAPIKey != "" {
			logger.Info("adjudicator: openai (auto-detected)", "model", cfg.OpenAIModel)
			return adjudicate.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
		logger.Info("adjudicator: rules (no LLM available)")
		return adjudicate.Rules{}
	}
}

func ollamaReachable(baseURL string) bool {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(c, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
