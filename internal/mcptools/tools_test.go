package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-backend/internal/analyzer"
	"advisor-backend/internal/catalog"
	"advisor-backend/internal/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return engine.New(analyzer.New(cat, nil))
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestDefinitions(t *testing.T) {
	eng := newTestEngine(t)

	rec := NewRecommendTool(eng).Definition()
	assert.Equal(t, "recommend_project", rec.Name)
	for _, prop := range []string{"text", "platform", "business_type", "features", "existing_features", "budget", "max_days", "portability", "access"} {
		assert.Contains(t, rec.InputSchema.Properties, prop)
	}
	assert.Equal(t, []string{"text"}, rec.InputSchema.Required)

	assert.Equal(t, "analyze_requirements", NewAnalyzeTool(eng).Definition().Name)
	assert.Equal(t, "list_catalog", NewCatalogTool(eng.Catalog()).Definition().Name)
}

func TestAnalyzeRequirements(t *testing.T) {
	tool := NewAnalyzeTool(newTestEngine(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{"text": "I need something to help manage my business"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out struct {
		NeedsClarification bool     `json:"needsClarification"`
		Questions          []string `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	assert.True(t, out.NeedsClarification)
	assert.NotEmpty(t, out.Questions)

	res, err = tool.Handle(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRecommendProject(t *testing.T) {
	tool := NewRecommendTool(newTestEngine(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{
		"text":              "I want a food delivery app",
		"platform":          "website",
		"features":          []any{"loyalty program"},
		"existing_features": "payment processing",
		"budget":            float64(5000),
		"max_days":          float64(30),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	var out engine.Outcome
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	require.NotNil(t, out.Recommendation)
	rec := out.Recommendation
	assert.Equal(t, catalog.PlatformWeb, rec.Platform)
	assert.Equal(t, catalog.BusinessRestaurant, rec.BusinessType)

	var ids []catalog.FeatureID
	for _, f := range rec.Features {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, catalog.FeatureID("loyalty_program"))
	assert.NotContains(t, ids, catalog.FeatureID("payment_processing"))
	require.NotNil(t, rec.Constraints.WithinBudget)
	assert.False(t, *rec.Constraints.WithinBudget)
}

func TestRecommendProjectPlatformFromRequirements(t *testing.T) {
	tool := NewRecommendTool(newTestEngine(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{
		"text":          "I need something to help manage my business",
		"business_type": "healthcare",
		"portability":   "low",
		"access":        "offline",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	var out engine.Outcome
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	require.NotNil(t, out.Recommendation)
	assert.Equal(t, catalog.PlatformDesktop, out.Recommendation.Platform)
}

func TestRecommendProjectVagueTextAsksQuestions(t *testing.T) {
	tool := NewRecommendTool(newTestEngine(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{"text": "I need something to help manage my business"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out engine.Outcome
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
	assert.Nil(t, out.Recommendation)
	require.NotNil(t, out.Clarification)
	assert.NotEmpty(t, out.Clarification.Questions)
}

func TestRecommendProjectInvalidInput(t *testing.T) {
	tool := NewRecommendTool(newTestEngine(t))

	for name, args := range map[string]map[string]any{
		"empty text":      {"text": "   "},
		"unknown feature": {"text": "I need an online store", "features": []any{"zzzqqq"}},
		"negative budget": {"text": "I need an online store", "budget": float64(-10)},
		"bad portability": {"text": "I need an online store", "portability": "sometimes"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), makeReq(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestListCatalog(t *testing.T) {
	eng := newTestEngine(t)
	res, err := NewCatalogTool(eng.Catalog()).Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)
	text := resultText(res)
	assert.True(t, strings.Contains(text, `"businessTypes"`))
	assert.True(t, strings.Contains(text, `"loyalty_program"`))
}

func TestListArg(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, listArg(makeReq(map[string]any{"k": "a, b,"}), "k"))
	assert.Equal(t, []string{"x"}, listArg(makeReq(map[string]any{"k": []any{"x", 3, " "}}), "k"))
	assert.Nil(t, listArg(makeReq(map[string]any{}), "k"))
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(newTestEngine(t), "test")
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"analyze_requirements", "recommend_project", "list_catalog"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}
