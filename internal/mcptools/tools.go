package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
	"advisor-backend/internal/recommendations"
	"advisor-backend/internal/shared/metrics"
	"advisor-backend/internal/shared/telemetry"
)

// AnalyzeTool handles the analyze_requirements MCP tool.
type AnalyzeTool struct {
	engine *engine.Engine
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(eng *engine.Engine) *AnalyzeTool {
	return &AnalyzeTool{engine: eng}
}

// Definition returns the MCP tool definition for analyze_requirements.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_requirements",
		mcp.WithDescription(
			"Classify a free-text project description: business type, platform signal, "+
				"detected features, clarity score and, when the text is too vague, the questions to ask.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Requirement text written by the client"),
		),
	)
}

// Handle processes the analyze_requirements tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc := &recommendations.Service{Engine: t.engine}
	res, err := svc.Analyze(req.GetString("text", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// RecommendTool handles the recommend_project MCP tool.
type RecommendTool struct {
	engine *engine.Engine
}

// NewRecommendTool creates a RecommendTool.
func NewRecommendTool(eng *engine.Engine) *RecommendTool {
	return &RecommendTool{engine: eng}
}

// Definition returns the MCP tool definition for recommend_project.
func (t *RecommendTool) Definition() mcp.Tool {
	return mcp.NewTool("recommend_project",
		mcp.WithDescription(
			"Recommend platform, features, tech stack, cost range and timeline for a project. "+
				"Without any of the optional answers, vague text yields clarification questions instead; "+
				"call again with the answers to get a recommendation.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Requirement text written by the client"),
		),
		mcp.WithString("platform",
			mcp.Description("Target platform, e.g. mobile, website, desktop"),
		),
		mcp.WithString("business_type",
			mcp.Description("Business type, e.g. retail, restaurant, healthcare"),
		),
		mcp.WithArray("features",
			mcp.Description("Features the client explicitly asked for"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("existing_features",
			mcp.Description("Features the client already has; excluded from the result"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("budget",
			mcp.Description("Budget ceiling in the catalog currency"),
		),
		mcp.WithNumber("max_days",
			mcp.Description("Timeline ceiling in days"),
		),
		mcp.WithString("portability",
			mcp.Description("How portable the product must be, used when platform is empty"),
			mcp.Enum("high", "medium", "low"),
		),
		mcp.WithString("access",
			mcp.Description("Whether the product must work offline, used when platform is empty"),
			mcp.Enum("online", "offline"),
		),
	)
}

// Handle processes the recommend_project tool call.
func (t *RecommendTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := recommendations.ResolveInfo(t.engine.Catalog(), recommendations.InfoInput{
		Platform:         req.GetString("platform", ""),
		BusinessType:     req.GetString("business_type", ""),
		Features:         listArg(req, "features"),
		ExistingFeatures: listArg(req, "existing_features"),
		Budget:           floatArg(req, "budget"),
		MaxDays:          intArg(req, "max_days"),
		Portability:      req.GetString("portability", ""),
		Access:           req.GetString("access", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	out, err := t.engine.Generate(req.GetString("text", ""), info)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recommendation failed: %v", err)), nil
	}
	fields := map[string]any{"tool": "recommend_project", "duration_ms": metrics.SinceMillis(start)}
	if out.Recommendation != nil {
		fields["platform"] = out.Recommendation.Platform
		fields["confidence_flag"] = out.Recommendation.ConfidenceFlag
	} else {
		fields["clarification"] = true
	}
	telemetry.Info("mcp.recommend", fields)
	return jsonResult(out)
}

// CatalogTool handles the list_catalog MCP tool.
type CatalogTool struct {
	catalog *catalog.Catalog
}

// NewCatalogTool creates a CatalogTool.
func NewCatalogTool(cat *catalog.Catalog) *CatalogTool {
	return &CatalogTool{catalog: cat}
}

// Definition returns the MCP tool definition for list_catalog.
func (t *CatalogTool) Definition() mcp.Tool {
	return mcp.NewTool("list_catalog",
		mcp.WithDescription("List the business types, platforms, features and tech stacks the advisor knows."),
	)
}

// Handle processes the list_catalog tool call.
func (t *CatalogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.catalog.Summary())
}

// NewServer registers every advisor tool on a new MCP server.
func NewServer(eng *engine.Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"advisor",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	analyze := NewAnalyzeTool(eng)
	s.AddTool(analyze.Definition(), analyze.Handle)

	recommend := NewRecommendTool(eng)
	s.AddTool(recommend.Definition(), recommend.Handle)

	list := NewCatalogTool(eng.Catalog())
	s.AddTool(list.Definition(), list.Handle)

	return s
}
