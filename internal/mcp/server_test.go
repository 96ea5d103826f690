package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/chunker"
	"codegraph/internal/config"
	"codegraph/internal/embedder"
	"codegraph/internal/indexer"
	"codegraph/internal/searcher"
	"codegraph/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderDeterministic})
	require.NoError(t, err)

	idx := indexer.New(store, emb)
	idx.SetChunkWindow(chunker.Options{MinLines: 2, MaxLines: 4, FuncSplitCeiling: 40})

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		config:   config.Default(),
		storage:  store,
		indexer:  idx,
		searcher: searcher.NewSearcher(store, emb),
	}
	s.registerTools()
	return s
}

func writeTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	main := `package main

import "fmt"

func main() {
	fmt.Println(greet("world"))
}

func greet(name string) string {
	return "hello " + name
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(main), 0o644))
	return root
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool results are text content")

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &data))
	return data
}

func assertMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestIndexQueryStatusFlow(t *testing.T) {
	s := newTestServer(t)
	root := writeTestProject(t)
	ctx := context.Background()

	result, err := s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{"path": root}))
	require.NoError(t, err)
	indexed := resultJSON(t, result)
	assert.Equal(t, true, indexed["indexed"])
	assert.Equal(t, float64(1), indexed["files_indexed"])
	assert.NotEmpty(t, indexed["run_id"])

	result, err = s.handleGetStatus(ctx, toolRequest(map[string]interface{}{"path": root}))
	require.NoError(t, err)
	status := resultJSON(t, result)
	assert.Equal(t, true, status["indexed"])
	stats, ok := status["statistics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["files_count"])
	assert.Greater(t, stats["chunks_count"], float64(0))

	result, err = s.handleQueryContext(ctx, toolRequest(map[string]interface{}{
		"path":  root,
		"query": "greet the world",
	}))
	require.NoError(t, err)
	query := resultJSON(t, result)
	results, ok := query["results"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, results)
	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), first["rank"])
	assert.NotEmpty(t, first["chunk_id"])
	assert.NotEmpty(t, first["content"])
}

func TestIndexCodebaseRejectsBadPaths(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{}))
	assertMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{"path": "relative/path"}))
	assertMCPError(t, err, ErrorCodeInvalidParams)

	empty := t.TempDir()
	_, err = s.handleIndexCodebase(ctx, toolRequest(map[string]interface{}{"path": empty}))
	assertMCPError(t, err, ErrorCodeInvalidParams)
}

func TestQueryContextValidation(t *testing.T) {
	s := newTestServer(t)
	root := writeTestProject(t)
	ctx := context.Background()

	_, err := s.handleQueryContext(ctx, toolRequest(map[string]interface{}{"path": root}))
	assertMCPError(t, err, ErrorCodeEmptyQuery)

	_, err = s.handleQueryContext(ctx, toolRequest(map[string]interface{}{
		"path": root, "query": "x", "budget": float64(500),
	}))
	assertMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleQueryContext(ctx, toolRequest(map[string]interface{}{
		"path": root, "query": "x", "hops": float64(9),
	}))
	assertMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleQueryContext(ctx, toolRequest(map[string]interface{}{
		"path": root, "query": "greet",
	}))
	assertMCPError(t, err, ErrorCodeNotIndexed)
}

func TestGetStatusUnindexedProject(t *testing.T) {
	s := newTestServer(t)
	root := writeTestProject(t)

	result, err := s.handleGetStatus(context.Background(), toolRequest(map[string]interface{}{"path": root}))
	require.NoError(t, err)
	status := resultJSON(t, result)
	assert.Equal(t, false, status["indexed"])
}

func TestValidatePath(t *testing.T) {
	assert.ErrorIs(t, validatePath(""), ErrPathRequired)
	assert.ErrorIs(t, validatePath("relative"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath("/does/not/exist/anywhere"), ErrPathNotFound)

	file := filepath.Join(t.TempDir(), "f.go")
	require.NoError(t, os.WriteFile(file, []byte("package f\n"), 0o644))
	assert.ErrorIs(t, validatePath(file), ErrNotDirectory)

	assert.ErrorIs(t, validatePath(t.TempDir()), ErrNoSourceFiles)
	assert.NoError(t, validatePath(filepath.Dir(file)))
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"workers": float64(4), // JSON numbers decode as float64
		"force":   true,
	}
	assert.Equal(t, 4, getIntDefault(args, "workers", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
	assert.True(t, getBoolDefault(args, "force", false))
	assert.False(t, getBoolDefault(args, "missing", false))
}

func TestMCPErrorString(t *testing.T) {
	err := newMCPError(ErrorCodeNotIndexed, "project not indexed", nil)
	assert.Contains(t, err.Error(), "-32003")
	assert.Contains(t, err.Error(), "project not indexed")
}
