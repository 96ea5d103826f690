package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"codegraph/internal/indexer"
	"codegraph/internal/searcher"
	"codegraph/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Specified path does not contain a Go project
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// maxReportedFailures caps the per-file failure list in tool responses.
const maxReportedFailures = 5

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	cfg := &indexer.Config{
		Workers:       getIntDefault(args, "workers", s.config.Indexer.Workers),
		IncludeTests:  getBoolDefault(args, "include_tests", s.config.Indexer.IncludeTests),
		IncludeVendor: getBoolDefault(args, "include_vendor", s.config.Indexer.IncludeVendor),
		Force:         getBoolDefault(args, "force_reindex", false),
	}

	report, err := s.indexer.IndexProject(ctx, path, cfg)
	if err != nil {
		if errors.Is(err, indexer.ErrIndexInProgress) {
			return nil, newMCPError(ErrorCodeIndexingInProgress, "an indexing run is already in progress", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Drop the stale graph snapshot so the next query sees new edges.
	if project, perr := s.storage.GetProject(ctx, path); perr == nil {
		s.searcher.InvalidateProject(project.ID)
	}

	response := map[string]interface{}{
		"indexed":        true,
		"run_id":         report.RunID,
		"files_indexed":  report.FilesIndexed,
		"files_skipped":  report.FilesSkipped,
		"files_failed":   report.FilesFailed,
		"files_removed":  report.FilesRemoved,
		"chunks_created": report.ChunksCreated,
		"edges_created":  report.EdgesCreated,
		"duration_ms":    report.Duration.Milliseconds(),
	}

	if len(report.Failures) > 0 {
		failures := report.Failures
		if len(failures) > maxReportedFailures {
			failures = failures[:maxReportedFailures]
		}
		items := make([]map[string]interface{}, 0, len(failures))
		for _, f := range failures {
			items = append(items, map[string]interface{}{
				"file":    f.FilePath,
				"stage":   f.Stage,
				"message": f.Message,
			})
		}
		response["failures"] = items
		response["failure_count"] = len(report.Failures)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueryContext handles the query_context tool invocation
func (s *Server) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	budget := getIntDefault(args, "budget", 0)
	if budget < 0 || budget > 200 {
		return nil, newMCPError(ErrorCodeInvalidParams, "budget must be between 0 and 200", map[string]interface{}{
			"param": "budget",
			"value": budget,
		})
	}

	hops := getIntDefault(args, "hops", 0)
	if hops < -1 || hops > 5 {
		return nil, newMCPError(ErrorCodeInvalidParams, "hops must be between -1 and 5", map[string]interface{}{
			"param": "hops",
			"value": hops,
		})
	}

	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed; run index_codebase first", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resp, err := s.searcher.QueryContext(ctx, searcher.QueryRequest{
		ProjectID:   project.ID,
		ProjectName: project.RootPath,
		Query:       query,
		Budget:      budget,
		Hops:        hops,
		UseCache:    getBoolDefault(args, "use_cache", true),
		CacheTTL:    5 * time.Minute,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for rank, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":           rank + 1,
			"chunk_id":       r.Chunk.ID,
			"file":           r.Chunk.FilePath,
			"kind":           string(r.Chunk.Kind),
			"name":           r.Chunk.Name,
			"start_line":     r.Chunk.StartLine,
			"end_line":       r.Chunk.EndLine,
			"score":          r.Score,
			"hop":            r.Hop,
			"via":            r.Path,
			"context_header": r.Chunk.ContextHeader,
			"content":        r.Chunk.SourceText,
		})
	}

	response := map[string]interface{}{
		"results":     results,
		"degraded":    resp.Degraded,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if resp.DegradedReason != "" {
		response["degraded_reason"] = resp.DegradedReason
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	project, err := s.storage.GetProject(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_codebase tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": true,
		"project": map[string]interface{}{
			"path":            project.RootPath,
			"module_name":     project.ModuleName,
			"last_run_id":     project.LastRunID,
			"last_indexed_at": project.LastIndexedAt.Format(time.RFC3339),
		},
		"statistics": map[string]interface{}{
			"files_count":      status.FilesCount,
			"chunks_count":     status.ChunksCount,
			"edges_count":      status.EdgesCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"vector_search_native": status.Health.VectorSearchNative,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is an indexable project root
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	hasSource := false
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(p, ".go") {
			hasSource = true
			return filepath.SkipAll
		}
		return nil
	})
	if !hasSource {
		return ErrNoSourceFiles
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoSourceFiles   = errors.New("directory does not contain Go files")
)
