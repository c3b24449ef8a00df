// Package mcptools exposes the analyzer and the recommendation engine as MCP
// tools served over stdio.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the schema and Handle serving calls. Results are JSON text; unusable input
// is reported as a tool error result, never as a protocol error.
package mcptools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// floatArg returns a pointer to a numeric argument, or nil when absent.
// JSON numbers arrive as float64.
func floatArg(req mcp.CallToolRequest, key string) *float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

func intArg(req mcp.CallToolRequest, key string) *int {
	v := floatArg(req, key)
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// listArg accepts either a JSON array of strings or a comma separated string.
func listArg(req mcp.CallToolRequest, key string) []string {
	switch v := req.GetArguments()[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return v
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
