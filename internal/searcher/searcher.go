package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"codegraph/internal/embedder"
	"codegraph/internal/graph"
	"codegraph/internal/retriever"
	"codegraph/internal/storage"
	"codegraph/internal/vecindex"
	"codegraph/pkg/types"
)

// QueryRequest asks for implementation context. Either Query (embedded
// here) or Vector (pre-embedded by the caller) must be set.
type QueryRequest struct {
	ProjectID   int64
	ProjectName string
	Query       string
	Vector      []float32
	Budget      int // requested result size; 0 uses the traversal default
	Hops        int // -1 means hop-0 only, 0 means default
	UseCache    bool
	CacheTTL    time.Duration
}

// QueryResponse wraps the retrieval results with query metadata.
type QueryResponse struct {
	Results        []types.ContextResult
	Degraded       bool
	DegradedReason string
	Duration       time.Duration
	CacheHit       bool
}

type cacheEntry struct {
	response  *QueryResponse
	expiresAt time.Time
}

// Searcher coordinates query embedding, graph snapshots, and traversal.
// A graph snapshot is built lazily per project and reused across queries
// until InvalidateProject marks it stale after a re-index.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	defaults retriever.Options

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex

	snapMu    sync.Mutex
	snapshots map[int64]*graph.Adjacency
}

// NewSearcher creates a Searcher over the given store and embedder.
func NewSearcher(store storage.Storage, emb embedder.Embedder) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Searcher{
		storage:   store,
		embedder:  emb,
		defaults:  retriever.DefaultOptions(),
		cache:     cache,
		snapshots: make(map[int64]*graph.Adjacency),
	}
}

// SetRetrievalDefaults replaces the traversal bounds used when a request
// does not override them. Zero fields fall back to the engine defaults.
func (s *Searcher) SetRetrievalDefaults(opts retriever.Options) {
	s.defaults = opts
}

// QueryContext answers a context query. Vector seeding is preferred; when
// the embedder or vector index fails, it falls back to symbol-name
// seeding and flags the response degraded rather than returning nothing.
func (s *Searcher) QueryContext(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid query request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	adj, err := s.snapshot(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading graph snapshot: %w", err)
	}

	index := vecindex.New(s.storage, req.ProjectID)
	engine := retriever.NewEngine(index, adj, s.storage, req.ProjectID, req.ProjectName)
	opts := s.traversalOptions(req)

	var resp *types.RetrievalResponse
	degradedReason := ""

	vector, embErr := s.queryVector(ctx, req)
	if embErr == nil {
		resp, err = engine.Retrieve(ctx, vector, opts)
	}
	if embErr != nil || err != nil {
		cause := embErr
		if cause == nil {
			cause = err
		}
		if req.Query == "" {
			return nil, cause
		}
		log.Warn().Err(cause).Int64("project_id", req.ProjectID).
			Msg("vector seeding failed, falling back to name-match seeds")
		seeds := s.nameSeeds(ctx, req.ProjectID, req.Query, opts.SeedK)
		if len(seeds) == 0 {
			return nil, cause
		}
		resp, err = engine.RetrieveFromSeeds(ctx, seeds, opts)
		if err != nil {
			return nil, err
		}
		degradedReason = "vector seeding unavailable: " + cause.Error()
	}

	response := &QueryResponse{
		Results:        resp.Results,
		Degraded:       resp.Degraded || degradedReason != "",
		DegradedReason: firstNonEmpty(degradedReason, resp.DegradedReason),
		Duration:       time.Since(startTime),
	}

	// Degraded responses are transient states, not worth caching.
	if req.UseCache && len(response.Results) > 0 && !response.Degraded {
		s.storeInCache(req, response)
	}

	return response, nil
}

func (s *Searcher) queryVector(ctx context.Context, req QueryRequest) ([]float32, error) {
	if len(req.Vector) > 0 {
		return req.Vector, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %w", types.ErrEmbeddingProvider, err)
	}
	return emb.Vector, nil
}

func (s *Searcher) traversalOptions(req QueryRequest) retriever.Options {
	opts := s.defaults
	switch {
	case req.Hops < 0:
		opts.Hops = 0
	case req.Hops > 0:
		opts.Hops = req.Hops
	}
	if req.Budget > 0 {
		opts.Limit = req.Budget
		if req.Budget > opts.Budget {
			opts.Budget = req.Budget
		}
	}
	return opts
}

// snapshot returns the cached adjacency for a project, building it from
// storage on first use. The snapshot may lag a concurrent re-index; stale
// edges resolve to missing chunks and are skipped at materialization.
func (s *Searcher) snapshot(ctx context.Context, projectID int64) (*graph.Adjacency, error) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	if adj, ok := s.snapshots[projectID]; ok {
		return adj, nil
	}

	edges, err := s.storage.ListEdges(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids, err := s.storage.ListChunkIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}

	adj := graph.NewAdjacency(edges, func(chunkID string) bool {
		_, ok := live[chunkID]
		return ok
	})
	s.snapshots[projectID] = adj

	log.Debug().Int64("project_id", projectID).
		Int("edges", len(edges)).Int("nodes", adj.Size()).
		Msg("built graph snapshot")
	return adj, nil
}

// nameSeeds matches query terms against chunk symbol names. Exact name
// matches outrank substring matches; order is deterministic.
func (s *Searcher) nameSeeds(ctx context.Context, projectID int64, query string, k int) []vecindex.Match {
	ids, err := s.storage.ListChunkIDs(ctx, projectID)
	if err != nil {
		log.Warn().Err(err).Msg("name-match seeding failed to list chunks")
		return nil
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	matches := make([]vecindex.Match, 0)
	for _, id := range ids {
		name := strings.ToLower(symbolName(id))
		if name == "" {
			continue
		}
		best := 0.0
		for _, term := range terms {
			switch {
			case name == term:
				best = 1.0
			case best < 0.5 && strings.Contains(name, term):
				best = 0.5
			}
		}
		if best > 0 {
			matches = append(matches, vecindex.Match{ChunkID: id, Similarity: best})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// symbolName extracts the member part of a chunk ID:
// "pkg/file.go:Type.Method" yields "Method".
func symbolName(chunkID string) string {
	i := strings.LastIndex(chunkID, ":")
	if i < 0 || i == len(chunkID)-1 {
		return ""
	}
	name := chunkID[i+1:]
	if j := strings.Index(name, "#"); j >= 0 {
		name = name[:j]
	}
	if j := strings.LastIndex(name, "."); j >= 0 {
		name = name[j+1:]
	}
	return name
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (s *Searcher) validateRequest(req *QueryRequest) error {
	if req.Query == "" && len(req.Vector) == 0 {
		return fmt.Errorf("query text or vector required")
	}
	if req.ProjectID <= 0 {
		return fmt.Errorf("project id required")
	}
	if req.Budget > 100 {
		req.Budget = 100
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour
	}
	return nil
}

func (s *Searcher) checkCache(req QueryRequest) *QueryResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copyQueryResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

func (s *Searcher) storeInCache(req QueryRequest, response *QueryResponse) {
	entry := &cacheEntry{
		response:  copyQueryResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copyQueryResponse deep-copies a response so cached entries cannot be
// mutated by callers.
func copyQueryResponse(src *QueryResponse) *QueryResponse {
	if src == nil {
		return nil
	}
	dst := &QueryResponse{
		Degraded:       src.Degraded,
		DegradedReason: src.DegradedReason,
		Duration:       src.Duration,
		CacheHit:       src.CacheHit,
		Results:        make([]types.ContextResult, len(src.Results)),
	}
	for i, r := range src.Results {
		cp := r
		cp.Path = append([]string(nil), r.Path...)
		dst.Results[i] = cp
	}
	return dst
}

func computeQueryHash(req QueryRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|%d|%d", req.ProjectID, req.Budget, req.Hops)
	if len(req.Vector) > 0 {
		data.WriteString("|vec:")
		for _, v := range req.Vector {
			fmt.Fprintf(&data, "%.6f,", v)
		}
	}
	return sha256.Sum256([]byte(data.String()))
}

// InvalidateProject drops the project's graph snapshot and cached query
// results. Called after an indexing run commits.
func (s *Searcher) InvalidateProject(projectID int64) {
	s.snapMu.Lock()
	delete(s.snapshots, projectID)
	s.snapMu.Unlock()

	// Query hashes do not encode index versions, so a project-scoped purge
	// would require a full scan anyway.
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}
