// Package mcp implements the Model Context Protocol server for Keifu.
//
// The MCP server exposes the research pipeline through MCP tools and
// resources, allowing MCP-compatible AI agents to run genealogical research
// and inspect recent run traces.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/orchestrator"
)

// Server wraps the MCP server with Keifu's pipeline.
type Server struct {
	mcpServer     *mcpserver.MCPServer
	orch          *orchestrator.Orchestrator
	tracker       *runTracker
	maxSources    int
	budgetSeconds float64
	logger        *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
// maxSources and budgetSeconds are the defaults applied when the caller does
// not override them per tool call.
func New(orch *orchestrator.Orchestrator, maxSources int, budgetSeconds float64, logger *slog.Logger, version string) *Server {
	s := &Server{
		orch:          orch,
		tracker:       newRunTracker(),
		maxSources:    maxSources,
		budgetSeconds: budgetSeconds,
		logger:        logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"keifu",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// keifu://runs/recent: summaries of recent research runs.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"keifu://runs/recent",
			"Recent Runs",
			mcplib.WithResourceDescription("Summaries of recent research runs"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRunsRecent,
	)

	// keifu://runs/{id}/trace: full audit trace for one run.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			"keifu://runs/{id}/trace",
			"Run Trace",
			mcplib.WithTemplateDescription("Complete audit trace for a specific research run"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleRunTrace,
	)
}

func (s *Server) registerTools() {
	// keifu_research: run the full research pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("keifu_research",
			mcplib.WithDescription("Research a person across genealogical sources: plan, search, resolve, verify, and synthesize a cited conclusion"),
			mcplib.WithString("surname", mcplib.Description("Surname to research")),
			mcplib.WithString("given_name", mcplib.Description("Given name")),
			mcplib.WithNumber("birth_year", mcplib.Description("Approximate birth year")),
			mcplib.WithNumber("birth_year_tolerance", mcplib.Description("Plus/minus years around birth_year")),
			mcplib.WithString("birth_place", mcplib.Description("Birth place; also drives region inference")),
			mcplib.WithString("region", mcplib.Description("Research region: nordic, uk_ireland, germany, usa, canada, australia_nz")),
			mcplib.WithString("spouse_name", mcplib.Description("Spouse name (strong identifier)")),
			mcplib.WithString("record_types", mcplib.Description("Comma-separated record types, e.g. birth,death,census")),
			mcplib.WithNumber("budget_seconds", mcplib.Description("Total time budget for the run")),
		),
		s.handleResearch,
	)
}

func (s *Server) handleResearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := model.SearchQuery{
		Surname:    request.GetString("surname", ""),
		GivenName:  request.GetString("given_name", ""),
		BirthPlace: request.GetString("birth_place", ""),
		SpouseName: request.GetString("spouse_name", ""),
		Region:     model.Region(request.GetString("region", "")),
		BirthYear: model.YearRange{
			Year:      request.GetInt("birth_year", 0),
			Tolerance: request.GetInt("birth_year_tolerance", 0),
		},
	}
	if rt := request.GetString("record_types", ""); rt != "" {
		for _, t := range strings.Split(rt, ",") {
			if t = strings.TrimSpace(t); t != "" {
				query.RecordTypes = append(query.RecordTypes, t)
			}
		}
	}

	budget := request.GetFloat("budget_seconds", s.budgetSeconds)
	resp := s.orch.Research(ctx, query, s.maxSources, budget)
	s.tracker.Add(resp)

	if !resp.Success {
		return errorResult(fmt.Sprintf("research failed: %s", resp.Error)), nil
	}

	summary := map[string]any{
		"run_id":                  runID(resp),
		"conclusions":             len(resp.Syntheses),
		"requires_human_decision": resp.RequiresHumanDecision,
		"primary":                 resp.PrimarySynthesis,
		"syntheses":               resp.Syntheses,
	}
	resultData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleRunsRecent(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	runs := s.tracker.Recent(20)

	summaries := make([]map[string]any, 0, len(runs))
	for _, r := range runs {
		entry := map[string]any{
			"run_id":                  runID(r),
			"success":                 r.Success,
			"conclusions":             len(r.Syntheses),
			"requires_human_decision": r.RequiresHumanDecision,
		}
		if r.Trace != nil {
			entry["started_at"] = r.Trace.StartedAt
			entry["events"] = len(r.Trace.Events)
		}
		if r.Error != "" {
			entry["error"] = r.Error
		}
		summaries = append(summaries, entry)
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal runs: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "keifu://runs/recent",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRunTrace(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	// Parse the run ID from keifu://runs/{id}/trace.
	id := strings.TrimSuffix(strings.TrimPrefix(uri, "keifu://runs/"), "/trace")
	if id == "" || id == uri {
		return nil, fmt.Errorf("mcp: invalid run trace URI: %s", uri)
	}

	run, ok := s.tracker.Get(id)
	if !ok {
		return nil, fmt.Errorf("mcp: run %s not found", id)
	}

	data, err := json.MarshalIndent(run.Trace, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal trace: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func runID(r model.ManagerResponse) string {
	if r.Trace == nil {
		return ""
	}
	return r.Trace.RunID.String()
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
