package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a Go codebase: chunk sources, build the dependency graph, and embed chunks for retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root (must contain .go files)",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring content hashes (full rebuild)",
					"default":     false,
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index *_test.go files",
					"default":     true,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ directory",
					"default":     false,
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of concurrent file workers (0 uses the CPU count)",
					"default":     0,
				},
			},
			Required: []string{"path"},
		},
	}
}

// queryContextTool returns the tool definition for query_context
func queryContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_context",
		Description: "Retrieve code context for a natural language query, expanding seed matches along the dependency graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an indexed project",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language or symbol query",
				},
				"budget": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (0 uses the default of 50)",
					"default":     0,
					"minimum":     0,
					"maximum":     200,
				},
				"hops": map[string]interface{}{
					"type":        "integer",
					"description": "Graph expansion depth: -1 disables expansion, 0 uses the default of 2",
					"default":     0,
					"minimum":     -1,
					"maximum":     5,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, serve repeated queries from the result cache",
					"default":     true,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status, statistics, and index health for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
			},
			Required: []string{"path"},
		},
	}
}
