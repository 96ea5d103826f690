package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/graph"
	"codegraph/internal/storage"
	"codegraph/internal/vecindex"
	"codegraph/pkg/types"
)

// fakeIndex returns canned seed matches and records the last floor asked
// of it.
type fakeIndex struct {
	matches   []vecindex.Match
	err       error
	lastFloor float64
}

func (f *fakeIndex) Upsert(ctx context.Context, chunkID string, vector []float32, provider, model string) error {
	return nil
}

func (f *fakeIndex) DeleteByFile(ctx context.Context, fileID int64) error {
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, k int, floor float64) ([]vecindex.Match, error) {
	f.lastFloor = floor
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) > k {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

// fakeStore serves chunk rows from memory; only GetChunks is exercised by
// the engine.
type fakeStore struct {
	storage.Storage
	rows map[string]*storage.Chunk
}

func (f *fakeStore) GetChunks(ctx context.Context, projectID int64, chunkIDs []string) (map[string]*storage.Chunk, error) {
	out := make(map[string]*storage.Chunk, len(chunkIDs))
	for _, id := range chunkIDs {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func row(id string, start, end int) *storage.Chunk {
	return &storage.Chunk{
		ChunkID:    id,
		FilePath:   "main.go",
		Kind:       string(types.ChunkFunction),
		Name:       id,
		StartLine:  start,
		EndLine:    end,
		SourceText: "func stub() {}",
	}
}

func newTestEngine(seeds []vecindex.Match, edges []types.DependencyEdge, rows map[string]*storage.Chunk) *Engine {
	adj := graph.NewAdjacency(edges, func(string) bool { return true })
	return NewEngine(&fakeIndex{matches: seeds}, adj, &fakeStore{rows: rows}, 1, "proj")
}

func resultScores(resp *types.RetrievalResponse) map[string]float64 {
	out := make(map[string]float64, len(resp.Results))
	for _, r := range resp.Results {
		out[r.Chunk.ID] = r.Score
	}
	return out
}

func TestRetrieveHopZeroReturnsSeedRanking(t *testing.T) {
	seeds := []vecindex.Match{
		{ChunkID: "a", Similarity: 0.9},
		{ChunkID: "b", Similarity: 0.5},
	}
	rows := map[string]*storage.Chunk{"a": row("a", 1, 10), "b": row("b", 20, 30)}
	e := newTestEngine(seeds, nil, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].Chunk.ID)
	assert.Equal(t, 0.9, resp.Results[0].Score)
	assert.Equal(t, 0, resp.Results[0].Hop)
	assert.Equal(t, "b", resp.Results[1].Chunk.ID)
	assert.False(t, resp.Degraded)
}

func TestRetrieveMultiHopScorePropagation(t *testing.T) {
	seeds := []vecindex.Match{{ChunkID: "a", Similarity: 0.9}}
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "b", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "b", TargetID: "c", Type: types.EdgeCalls, Weight: 0.8},
	}
	rows := map[string]*storage.Chunk{
		"a": row("a", 1, 10),
		"b": row("b", 20, 30),
		"c": row("c", 40, 50),
	}
	e := newTestEngine(seeds, edges, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 2, HopDecay: 0.7})
	require.NoError(t, err)

	scores := resultScores(resp)
	require.Len(t, scores, 3)
	assert.InDelta(t, 0.9, scores["a"], 1e-9)
	assert.InDelta(t, 0.9*0.8*0.7, scores["b"], 1e-9)
	assert.InDelta(t, 0.9*0.8*0.7*0.8*0.49, scores["c"], 1e-9)

	byID := make(map[string]types.ContextResult)
	for _, r := range resp.Results {
		byID[r.Chunk.ID] = r
	}
	assert.Equal(t, 1, byID["b"].Hop)
	assert.Equal(t, 2, byID["c"].Hop)
	assert.Equal(t, []string{"a", "b", "c"}, byID["c"].Path)
}

func TestRetrieveMaxScoreOverPaths(t *testing.T) {
	// d is reachable from the seed over two parallel edges; the stronger
	// one determines its score.
	seeds := []vecindex.Match{{ChunkID: "a", Similarity: 1.0}}
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "d", Type: types.EdgeTypeRef, Weight: 0.6},
		{SourceID: "a", TargetID: "d", Type: types.EdgeCalls, Weight: 0.8},
	}
	rows := map[string]*storage.Chunk{"a": row("a", 1, 10), "d": row("d", 20, 30)}
	e := newTestEngine(seeds, edges, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 1, HopDecay: 0.7})
	require.NoError(t, err)

	scores := resultScores(resp)
	require.Contains(t, scores, "d")
	assert.InDelta(t, 1.0*0.8*0.7, scores["d"], 1e-9)
}

func TestRetrieveBreadthCap(t *testing.T) {
	seeds := []vecindex.Match{{ChunkID: "a", Similarity: 1.0}}
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "b1", Type: types.EdgeExtends, Weight: 1.0},
		{SourceID: "a", TargetID: "b2", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "a", TargetID: "b3", Type: types.EdgeTypeRef, Weight: 0.6},
	}
	rows := map[string]*storage.Chunk{
		"a":  row("a", 1, 10),
		"b1": row("b1", 20, 30),
		"b2": row("b2", 40, 50),
		"b3": row("b3", 60, 70),
	}
	e := newTestEngine(seeds, edges, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 1, BreadthCap: 2})
	require.NoError(t, err)

	scores := resultScores(resp)
	assert.Contains(t, scores, "b1")
	assert.Contains(t, scores, "b2")
	assert.NotContains(t, scores, "b3")
}

func TestRetrieveBudgetStopsExpansion(t *testing.T) {
	seeds := []vecindex.Match{{ChunkID: "a", Similarity: 1.0}}
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "b", Type: types.EdgeExtends, Weight: 1.0},
		{SourceID: "a", TargetID: "c", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "b", TargetID: "d", Type: types.EdgeCalls, Weight: 0.8},
	}
	rows := map[string]*storage.Chunk{
		"a": row("a", 1, 10),
		"b": row("b", 20, 30),
		"c": row("c", 40, 50),
		"d": row("d", 60, 70),
	}
	e := newTestEngine(seeds, edges, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 2, Budget: 2})
	require.NoError(t, err)

	scores := resultScores(resp)
	assert.Len(t, scores, 2)
	assert.Contains(t, scores, "a")
	assert.Contains(t, scores, "b")
}

func TestRetrieveRedundancyFilter(t *testing.T) {
	// small sits entirely inside big in the same file and scores lower, so
	// expansion admits it but the final ranking drops it.
	seeds := []vecindex.Match{{ChunkID: "big", Similarity: 0.9}}
	edges := []types.DependencyEdge{
		{SourceID: "big", TargetID: "small", Type: types.EdgeCalls, Weight: 0.8},
	}
	rows := map[string]*storage.Chunk{
		"big":   row("big", 1, 100),
		"small": row("small", 10, 19),
	}
	e := newTestEngine(seeds, edges, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "big", resp.Results[0].Chunk.ID)

	// Hop-0 retrieval never applies the filter: the seed ranking is
	// returned as-is.
	seedsBoth := []vecindex.Match{
		{ChunkID: "big", Similarity: 0.9},
		{ChunkID: "small", Similarity: 0.5},
	}
	e = newTestEngine(seedsBoth, nil, rows)
	resp, err = e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}

func TestRetrieveDeterministicTieBreak(t *testing.T) {
	seeds := []vecindex.Match{
		{ChunkID: "z", Similarity: 0.5},
		{ChunkID: "a", Similarity: 0.5},
		{ChunkID: "m", Similarity: 0.5},
	}
	rows := map[string]*storage.Chunk{
		"z": row("z", 1, 5),
		"a": row("a", 10, 15),
		"m": row("m", 20, 25),
	}
	e := newTestEngine(seeds, nil, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "a", resp.Results[0].Chunk.ID)
	assert.Equal(t, "m", resp.Results[1].Chunk.ID)
	assert.Equal(t, "z", resp.Results[2].Chunk.ID)
}

func TestRetrieveDegradedOnCancellation(t *testing.T) {
	seeds := []vecindex.Match{{ChunkID: "a", Similarity: 0.9}}
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "b", Type: types.EdgeCalls, Weight: 0.8},
	}
	rows := map[string]*storage.Chunk{"a": row("a", 1, 10), "b": row("b", 20, 30)}
	e := newTestEngine(seeds, edges, rows)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := e.RetrieveFromSeeds(ctx, seeds, Options{Hops: 2})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "traversal interrupted")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Chunk.ID)
}

func TestRetrieveIndexErrorPropagates(t *testing.T) {
	indexErr := errors.New("vector index unavailable")
	adj := graph.NewAdjacency(nil, func(string) bool { return true })
	e := NewEngine(&fakeIndex{err: indexErr}, adj, &fakeStore{}, 1, "proj")

	_, err := e.Retrieve(context.Background(), []float32{1}, Options{})
	assert.ErrorIs(t, err, indexErr)
	assert.ErrorIs(t, err, types.ErrVectorStoreUnavailable)
}

func TestRetrieveForwardsSimilarityFloor(t *testing.T) {
	idx := &fakeIndex{matches: []vecindex.Match{{ChunkID: "a", Similarity: 0.9}}}
	adj := graph.NewAdjacency(nil, func(string) bool { return true })
	rows := map[string]*storage.Chunk{"a": row("a", 1, 10)}
	e := NewEngine(idx, adj, &fakeStore{rows: rows}, 1, "proj")

	_, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0, MinSimilarity: 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0.4, idx.lastFloor)

	// The zero value admits every match.
	_, err = e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, idx.lastFloor)
}

func TestRetrieveSkipsChunksMissingFromStore(t *testing.T) {
	seeds := []vecindex.Match{
		{ChunkID: "a", Similarity: 0.9},
		{ChunkID: "gone", Similarity: 0.8},
	}
	rows := map[string]*storage.Chunk{"a": row("a", 1, 10)}
	e := newTestEngine(seeds, nil, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].Chunk.ID)
}

func TestRetrieveLimitTruncates(t *testing.T) {
	seeds := []vecindex.Match{
		{ChunkID: "a", Similarity: 0.9},
		{ChunkID: "b", Similarity: 0.8},
		{ChunkID: "c", Similarity: 0.7},
	}
	rows := map[string]*storage.Chunk{
		"a": row("a", 1, 10),
		"b": row("b", 20, 30),
		"c": row("c", 40, 50),
	}
	e := newTestEngine(seeds, nil, rows)

	resp, err := e.Retrieve(context.Background(), []float32{1}, Options{Hops: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].Chunk.ID)
	assert.Equal(t, "b", resp.Results[1].Chunk.ID)
}
