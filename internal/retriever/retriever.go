// Package retriever implements graph-augmented retrieval: vector seeds
// expanded over the dependency graph with per-hop score decay, bounded
// breadth, and a redundancy filter over the final ranking.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"codegraph/internal/graph"
	"codegraph/internal/storage"
	"codegraph/internal/vecindex"
	"codegraph/pkg/types"
)

// Traversal defaults.
const (
	DefaultHops       = 2
	DefaultSeedK      = 10
	DefaultHopDecay   = 0.7
	DefaultBreadthCap = 20
	DefaultBudget     = 50

	// containmentThreshold drops a chunk when this share of its lines
	// already appears in a selected larger chunk.
	containmentThreshold = 0.9
)

// Options bound one retrieval traversal.
type Options struct {
	Hops       int
	SeedK      int
	HopDecay   float64
	BreadthCap int
	Budget     int
	Limit      int // caller's requested result size; 0 means Budget

	// MinSimilarity excludes seeds below this cosine similarity before the
	// top-K cut. Zero admits every match.
	MinSimilarity float64
}

// DefaultOptions returns the standard traversal bounds.
func DefaultOptions() Options {
	return Options{
		Hops:       DefaultHops,
		SeedK:      DefaultSeedK,
		HopDecay:   DefaultHopDecay,
		BreadthCap: DefaultBreadthCap,
		Budget:     DefaultBudget,
	}
}

func (o *Options) normalize() {
	if o.SeedK <= 0 {
		o.SeedK = DefaultSeedK
	}
	if o.HopDecay <= 0 || o.HopDecay > 1 {
		o.HopDecay = DefaultHopDecay
	}
	if o.BreadthCap <= 0 {
		o.BreadthCap = DefaultBreadthCap
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.Limit <= 0 || o.Limit > o.Budget {
		o.Limit = o.Budget
	}
}

// Engine runs traversals for one project. The adjacency snapshot is fixed
// at construction, so a re-index during a query cannot corrupt the walk;
// the query simply sees the graph as of its start.
type Engine struct {
	index     vecindex.Index
	adj       *graph.Adjacency
	store     storage.Storage
	projectID int64
	projectS  string
}

// NewEngine creates a traversal engine over a fixed graph snapshot.
func NewEngine(index vecindex.Index, adj *graph.Adjacency, store storage.Storage, projectID int64, projectName string) *Engine {
	return &Engine{
		index:     index,
		adj:       adj,
		store:     store,
		projectID: projectID,
		projectS:  projectName,
	}
}

// visit tracks the best-known score and provenance for a reached chunk.
type visit struct {
	score float64
	hop   int
	path  []string
}

// Retrieve seeds from the vector index and expands the graph. A vector
// index failure is returned as an error; the caller may retry or seed by
// name instead.
func (e *Engine) Retrieve(ctx context.Context, queryVector []float32, opts Options) (*types.RetrievalResponse, error) {
	opts.normalize()

	matches, err := e.index.Query(ctx, queryVector, opts.SeedK, opts.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("%w: seed query: %w", types.ErrVectorStoreUnavailable, err)
	}
	return e.RetrieveFromSeeds(ctx, matches, opts)
}

// RetrieveFromSeeds expands pre-ranked seeds over the graph. Used directly
// when seeding comes from a symbol-name match instead of the vector index.
func (e *Engine) RetrieveFromSeeds(ctx context.Context, seeds []vecindex.Match, opts Options) (*types.RetrievalResponse, error) {
	opts.normalize()

	// With zero hops the contract is the raw seed ranking, untouched.
	if opts.Hops <= 0 {
		return e.materialize(ctx, seedVisits(seeds), false, "", opts)
	}

	visited := seedVisits(seeds)
	if len(visited) > opts.Budget {
		visited = truncateSeeds(seeds, opts.Budget)
	}

	frontier := make([]string, 0, len(visited))
	for id := range visited {
		frontier = append(frontier, id)
	}
	sort.Strings(frontier)

	degraded := false
	reason := ""

	for hop := 1; hop <= opts.Hops; hop++ {
		if err := ctx.Err(); err != nil {
			// Return what we have rather than nothing.
			degraded = true
			reason = "traversal interrupted: " + err.Error()
			break
		}
		if len(visited) >= opts.Budget {
			break
		}

		admitted := e.expand(visited, frontier, hop, opts)
		if len(admitted) == 0 {
			break
		}
		frontier = admitted
	}

	return e.materialize(ctx, visited, degraded, reason, opts)
}

// expand scores every unvisited neighbor of the frontier, admits up to
// BreadthCap of them greedily by propagated score, and returns the new
// frontier. Score propagation keeps the maximum over paths.
func (e *Engine) expand(visited map[string]*visit, frontier []string, hop int, opts Options) []string {
	decay := math.Pow(opts.HopDecay, float64(hop))

	type candidate struct {
		id     string
		score  float64
		parent string
	}
	best := make(map[string]candidate)

	for _, parentID := range frontier {
		parent := visited[parentID]
		for _, n := range e.adj.Neighbors(parentID) {
			if _, seen := visited[n.ChunkID]; seen {
				continue
			}
			score := parent.score * n.Weight * decay
			if cur, ok := best[n.ChunkID]; !ok || score > cur.score {
				best[n.ChunkID] = candidate{id: n.ChunkID, score: score, parent: parentID}
			}
		}
	}

	candidates := make([]candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	admitted := make([]string, 0, opts.BreadthCap)
	for _, c := range candidates {
		if len(admitted) >= opts.BreadthCap || len(visited) >= opts.Budget {
			break
		}
		parent := visited[c.parent]
		path := make([]string, 0, len(parent.path)+1)
		path = append(path, parent.path...)
		path = append(path, c.id)
		visited[c.id] = &visit{score: c.score, hop: hop, path: path}
		admitted = append(admitted, c.id)
	}
	return admitted
}

// materialize loads chunk rows for the visited set, ranks, filters
// redundant spans, and truncates to the caller's limit.
func (e *Engine) materialize(ctx context.Context, visited map[string]*visit, degraded bool, reason string, opts Options) (*types.RetrievalResponse, error) {
	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}

	rows, err := e.store.GetChunks(ctx, e.projectID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]types.ContextResult, 0, len(visited))
	for id, v := range visited {
		row, ok := rows[id]
		if !ok {
			// The chunk was removed after the graph snapshot was taken.
			log.Debug().Str("chunk_id", id).Msg("visited chunk missing from store, skipping")
			continue
		}
		results = append(results, types.ContextResult{
			Chunk: row.ToCodeChunk(e.projectS),
			Score: v.score,
			Hop:   v.hop,
			Path:  v.path,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	if opts.Hops > 0 {
		results = filterRedundant(results)
	}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return &types.RetrievalResponse{
		Results:        results,
		Degraded:       degraded,
		DegradedReason: reason,
	}, nil
}

// filterRedundant drops a chunk when at least 90% of its span is covered
// by an already-selected chunk with a strictly larger span in the same
// file. Selection order is ranking order, so the higher-scoring of a
// parent/child pair always survives.
func filterRedundant(results []types.ContextResult) []types.ContextResult {
	selected := make([]types.ContextResult, 0, len(results))
	for _, r := range results {
		lines := r.Chunk.EndLine - r.Chunk.StartLine + 1
		redundant := false
		for _, s := range selected {
			if s.Chunk.FilePath != r.Chunk.FilePath {
				continue
			}
			sLines := s.Chunk.EndLine - s.Chunk.StartLine + 1
			if sLines <= lines {
				continue
			}
			overlap := overlapLines(r.Chunk.StartLine, r.Chunk.EndLine, s.Chunk.StartLine, s.Chunk.EndLine)
			if float64(overlap) >= containmentThreshold*float64(lines) {
				redundant = true
				break
			}
		}
		if !redundant {
			selected = append(selected, r)
		}
	}
	return selected
}

func overlapLines(aStart, aEnd, bStart, bEnd int) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end < start {
		return 0
	}
	return end - start + 1
}

func seedVisits(seeds []vecindex.Match) map[string]*visit {
	visited := make(map[string]*visit, len(seeds))
	for _, seed := range seeds {
		if _, ok := visited[seed.ChunkID]; ok {
			continue
		}
		visited[seed.ChunkID] = &visit{
			score: seed.Similarity,
			hop:   0,
			path:  []string{seed.ChunkID},
		}
	}
	return visited
}

func truncateSeeds(seeds []vecindex.Match, budget int) map[string]*visit {
	visited := make(map[string]*visit, budget)
	for _, seed := range seeds {
		if len(visited) >= budget {
			break
		}
		if _, ok := visited[seed.ChunkID]; ok {
			continue
		}
		visited[seed.ChunkID] = &visit{
			score: seed.Similarity,
			hop:   0,
			path:  []string{seed.ChunkID},
		}
	}
	return visited
}
