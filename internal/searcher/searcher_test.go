package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/embedder"
	"codegraph/internal/retriever"
	"codegraph/internal/storage"
	"codegraph/pkg/types"
)

type mockEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (m *mockEmbedder) GenerateEmbedding(_ context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &embedder.Embedding{
		Vector:    m.vector,
		Dimension: len(m.vector),
		Provider:  "mock",
		Model:     "mock-v1",
	}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Texts[i]})
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: embeddings, Provider: "mock", Model: "mock-v1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return len(m.vector) }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-v1" }
func (m *mockEmbedder) Close() error     { return nil }

// seedProject loads a small indexed project: Service.Login calls
// Store.Save, and each chunk carries an orthogonal embedding vector.
func seedProject(t *testing.T) (*storage.SQLiteStorage, int64) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	project := &storage.Project{RootPath: "/test", IndexVersion: storage.CurrentSchemaVersion}
	require.NoError(t, store.CreateProject(ctx, project))

	authFile := &storage.File{ProjectID: project.ID, FilePath: "auth.go", ContentHash: sha256.Sum256([]byte("auth"))}
	require.NoError(t, store.UpsertFile(ctx, authFile))
	dbFile := &storage.File{ProjectID: project.ID, FilePath: "db.go", ContentHash: sha256.Sum256([]byte("db"))}
	require.NoError(t, store.UpsertFile(ctx, dbFile))

	chunks := []struct {
		fileID     int64
		id         string
		start, end int
		vector     []float32
	}{
		{authFile.ID, "auth.go:Service.Login", 1, 20, []float32{1, 0, 0}},
		{authFile.ID, "auth.go:Service.Logout", 22, 40, []float32{0, 1, 0}},
		{dbFile.ID, "db.go:Store.Save", 1, 30, []float32{0, 0, 1}},
	}
	for _, c := range chunks {
		require.NoError(t, store.UpsertChunk(ctx, &storage.Chunk{
			ProjectID:   project.ID,
			FileID:      c.fileID,
			ChunkID:     c.id,
			Kind:        string(types.ChunkFunction),
			Name:        c.id,
			StartLine:   c.start,
			EndLine:     c.end,
			SourceText:  "func stub() {}",
			ContentHash: sha256.Sum256([]byte(c.id)),
		}))
		require.NoError(t, store.UpsertEmbedding(ctx, &storage.Embedding{
			ProjectID: project.ID,
			ChunkID:   c.id,
			Vector:    storage.SerializeVector(c.vector),
			Dimension: 3,
			Provider:  "mock",
			Model:     "mock-v1",
		}))
	}

	require.NoError(t, store.InsertEdges(ctx, project.ID, authFile.ID, []types.DependencyEdge{
		{SourceID: "auth.go:Service.Login", TargetID: "db.go:Store.Save", Type: types.EdgeCalls, Weight: 0.8},
	}))

	return store, project.ID
}

func TestQueryContextVectorSeeding(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{vector: []float32{1, 0, 0}}
	s := NewSearcher(store, emb)

	resp, err := s.QueryContext(context.Background(), QueryRequest{
		ProjectID:   projectID,
		ProjectName: "/test",
		Query:       "login flow",
	})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "auth.go:Service.Login", resp.Results[0].Chunk.ID)
	assert.Equal(t, 0, resp.Results[0].Hop)

	found := false
	for _, r := range resp.Results {
		if r.Chunk.ID == "db.go:Store.Save" {
			found = true
		}
	}
	assert.True(t, found, "graph neighbor of the top seed should be pulled in")
}

func TestQueryContextCacheHit(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{vector: []float32{1, 0, 0}}
	s := NewSearcher(store, emb)
	req := QueryRequest{
		ProjectID: projectID,
		Query:     "login flow",
		UseCache:  true,
		CacheTTL:  time.Hour,
	}

	first, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	callsAfterFirst := emb.calls

	second, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, callsAfterFirst, emb.calls, "cache hits must not re-embed the query")
	assert.Equal(t, len(first.Results), len(second.Results))
}

func TestQueryContextCacheExpiry(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{vector: []float32{1, 0, 0}}
	s := NewSearcher(store, emb)
	req := QueryRequest{
		ProjectID: projectID,
		Query:     "login flow",
		UseCache:  true,
		CacheTTL:  -time.Minute,
	}

	_, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)

	second, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
}

func TestInvalidateProjectDropsCache(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{vector: []float32{1, 0, 0}}
	s := NewSearcher(store, emb)
	req := QueryRequest{
		ProjectID: projectID,
		Query:     "login flow",
		UseCache:  true,
		CacheTTL:  time.Hour,
	}

	_, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)

	s.InvalidateProject(projectID)

	resp, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestNameSeedFallback(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{err: errors.New("provider unreachable")}
	s := NewSearcher(store, emb)

	resp, err := s.QueryContext(context.Background(), QueryRequest{
		ProjectID: projectID,
		Query:     "Login handler",
	})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "vector seeding unavailable")
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "auth.go:Service.Login", resp.Results[0].Chunk.ID)
}

func TestNameSeedFallbackNoMatches(t *testing.T) {
	store, projectID := seedProject(t)
	cause := errors.New("provider unreachable")
	s := NewSearcher(store, &mockEmbedder{err: cause})

	_, err := s.QueryContext(context.Background(), QueryRequest{
		ProjectID: projectID,
		Query:     "zzz nothing matches this",
	})
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
}

func TestRetrievalDefaultsApplied(t *testing.T) {
	store, projectID := seedProject(t)
	s := NewSearcher(store, &mockEmbedder{vector: []float32{1, 0, 0}})
	req := QueryRequest{
		ProjectID: projectID,
		Query:     "login flow",
		Hops:      -1,
	}

	// Without a similarity floor the hop-0 ranking keeps every seed,
	// orthogonal ones included.
	resp, err := s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)

	s.SetRetrievalDefaults(retriever.Options{MinSimilarity: 0.5})

	resp, err = s.QueryContext(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "auth.go:Service.Login", resp.Results[0].Chunk.ID)
}

func TestQueryContextValidation(t *testing.T) {
	store, projectID := seedProject(t)
	s := NewSearcher(store, &mockEmbedder{vector: []float32{1, 0, 0}})

	_, err := s.QueryContext(context.Background(), QueryRequest{ProjectID: projectID})
	assert.Error(t, err, "query text or vector is required")

	_, err = s.QueryContext(context.Background(), QueryRequest{Query: "login"})
	assert.Error(t, err, "project id is required")
}

func TestPreEmbeddedVectorSkipsEmbedder(t *testing.T) {
	store, projectID := seedProject(t)
	emb := &mockEmbedder{err: errors.New("should not be called")}
	s := NewSearcher(store, emb)

	resp, err := s.QueryContext(context.Background(), QueryRequest{
		ProjectID: projectID,
		Vector:    []float32{1, 0, 0},
	})
	require.NoError(t, err)
	assert.Zero(t, emb.calls)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "auth.go:Service.Login", resp.Results[0].Chunk.ID)
}

func TestSymbolName(t *testing.T) {
	cases := map[string]string{
		"auth.go:Service.Login":     "Login",
		"auth.go:Login":             "Login",
		"pkg/db/db.go:Store.Save":   "Save",
		"big.go:Parse#part2":        "Parse",
		"auth.go:":                  "",
		"no-colon":                  "",
		"auth.go:Service.Run#part3": "Run",
	}
	for id, want := range cases {
		assert.Equal(t, want, symbolName(id), id)
	}
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"login", "handler"}, queryTerms("a Login handler!"))
	assert.Empty(t, queryTerms("a b"))
	assert.Equal(t, []string{"snake_case"}, queryTerms("snake_case"))
}
