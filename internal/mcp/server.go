package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"codegraph/internal/chunker"
	"codegraph/internal/config"
	"codegraph/internal/embedder"
	"codegraph/internal/indexer"
	"codegraph/internal/retriever"
	"codegraph/internal/searcher"
	"codegraph/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "codegraph"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	config   *config.Config
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

// NewServer wires storage, embedder, indexer, and searcher from the
// given configuration and registers the MCP tools.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	dbFile, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.Embedding.APIKey,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder (set %s): %w",
			config.EnvProvider, err)
	}

	idx := indexer.New(store, emb)
	idx.SetChunkWindow(chunker.Options{
		MinLines:         cfg.Chunker.MinLines,
		MaxLines:         cfg.Chunker.MaxLines,
		FuncSplitCeiling: cfg.Chunker.FuncSplitCeiling,
	})

	srch := searcher.NewSearcher(store, emb)
	srch.SetRetrievalDefaults(retriever.Options{
		Hops:          cfg.Retrieval.Hops,
		SeedK:         cfg.Retrieval.SeedK,
		HopDecay:      cfg.Retrieval.HopDecay,
		BreadthCap:    cfg.Retrieval.BreadthCap,
		Budget:        cfg.Retrieval.Budget,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	})

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		config:   cfg,
		storage:  store,
		indexer:  idx,
		searcher: srch,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(queryContextTool(), s.handleQueryContext)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
