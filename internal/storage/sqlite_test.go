package storage

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/pkg/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestProject(t *testing.T, s *SQLiteStorage) *Project {
	t.Helper()
	project := &Project{
		RootPath:     "/test/project",
		ModuleName:   "example.com/test",
		IndexVersion: CurrentSchemaVersion,
	}
	require.NoError(t, s.CreateProject(context.Background(), project))
	require.NotZero(t, project.ID)
	return project
}

func newTestFile(t *testing.T, s *SQLiteStorage, projectID int64, path string) *File {
	t.Helper()
	file := &File{
		ProjectID:   projectID,
		FilePath:    path,
		PackageName: "main",
		ContentHash: sha256.Sum256([]byte(path)),
		SizeBytes:   100,
	}
	require.NoError(t, s.UpsertFile(context.Background(), file))
	require.NotZero(t, file.ID)
	return file
}

func newTestChunk(t *testing.T, s *SQLiteStorage, projectID, fileID int64, chunkID string, start, end int) *Chunk {
	t.Helper()
	chunk := &Chunk{
		ProjectID:   projectID,
		FileID:      fileID,
		ChunkID:     chunkID,
		Kind:        string(types.ChunkFunction),
		Name:        chunkID,
		StartLine:   start,
		EndLine:     end,
		SourceText:  "func stub() {}",
		ContentHash: sha256.Sum256([]byte(chunkID)),
	}
	require.NoError(t, s.UpsertChunk(context.Background(), chunk))
	return chunk
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetProject(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	project := newTestProject(t, s)

	got, err := s.GetProject(ctx, "/test/project")
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
	assert.Equal(t, "example.com/test", got.ModuleName)

	got.TotalFiles = 5
	got.LastRunID = "run-1"
	require.NoError(t, s.UpdateProject(ctx, got))

	byID, err := s.GetProjectByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, byID.TotalFiles)
	assert.Equal(t, "run-1", byID.LastRunID)
}

func TestFileUpsertIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)

	first := newTestFile(t, s, project.ID, "main.go")
	second := &File{
		ProjectID:   project.ID,
		FilePath:    "main.go",
		PackageName: "main",
		ContentHash: sha256.Sum256([]byte("changed")),
	}
	require.NoError(t, s.UpsertFile(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert must keep the row identity")

	files, err := s.ListFiles(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestChunkRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")

	newTestChunk(t, s, project.ID, file.ID, "main.go:run", 3, 20)
	newTestChunk(t, s, project.ID, file.ID, "main.go:helper", 22, 30)

	got, err := s.GetChunk(ctx, project.ID, "main.go:run")
	require.NoError(t, err)
	assert.Equal(t, "main.go", got.FilePath, "file path joins in from the files table")
	assert.Equal(t, 3, got.StartLine)

	ids, err := s.ListChunkIDs(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go:helper", "main.go:run"}, ids)

	chunks, err := s.GetChunks(ctx, project.ID, []string{"main.go:run", "main.go:ghost"})
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Contains(t, chunks, "main.go:run")

	require.NoError(t, s.DeleteChunksByFile(ctx, file.ID))
	_, err = s.GetChunk(ctx, project.ID, "main.go:run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertEdgesKeepsMaxWeight(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")

	edge := types.DependencyEdge{
		SourceID: "main.go:a",
		TargetID: "main.go:b",
		Type:     types.EdgeCalls,
		Weight:   0.5,
	}
	require.NoError(t, s.InsertEdges(ctx, project.ID, file.ID, []types.DependencyEdge{edge}))

	edge.Weight = 0.8
	require.NoError(t, s.InsertEdges(ctx, project.ID, file.ID, []types.DependencyEdge{edge}))
	edge.Weight = 0.3
	require.NoError(t, s.InsertEdges(ctx, project.ID, file.ID, []types.DependencyEdge{edge}))

	edges, err := s.ListEdges(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0.8, edges[0].Weight)
}

func TestDeleteEdgesByFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	fileA := newTestFile(t, s, project.ID, "a.go")
	fileB := newTestFile(t, s, project.ID, "b.go")

	require.NoError(t, s.InsertEdges(ctx, project.ID, fileA.ID, []types.DependencyEdge{
		{SourceID: "a.go:f", TargetID: "b.go:g", Type: types.EdgeCalls, Weight: 0.8},
	}))
	require.NoError(t, s.InsertEdges(ctx, project.ID, fileB.ID, []types.DependencyEdge{
		{SourceID: "b.go:g", TargetID: "a.go:f", Type: types.EdgeTypeRef, Weight: 0.6},
	}))

	require.NoError(t, s.DeleteEdgesByFile(ctx, fileA.ID))

	edges, err := s.ListEdges(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "b.go:g", edges[0].SourceID)
}

func TestPruneDanglingEdges(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")
	newTestChunk(t, s, project.ID, file.ID, "main.go:live", 1, 10)

	require.NoError(t, s.InsertEdges(ctx, project.ID, file.ID, []types.DependencyEdge{
		{SourceID: "main.go:live", TargetID: "main.go:deleted", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "main.go:live", TargetID: "main.go:live", Type: types.EdgeTypeRef, Weight: 0.6},
		{SourceID: "main.go:live", TargetID: types.ExternalTarget, Type: types.EdgeImport, Weight: 0.3},
	}))

	pruned, err := s.PruneDanglingEdges(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	edges, err := s.ListEdges(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.NotEqual(t, "main.go:deleted", e.TargetID)
	}
}

func TestEmbeddingLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")
	newTestChunk(t, s, project.ID, file.ID, "main.go:run", 1, 10)

	emb := &Embedding{
		ProjectID: project.ID,
		ChunkID:   "main.go:run",
		Vector:    SerializeVector([]float32{0.1, 0.2, 0.3}),
		Dimension: 3,
		Provider:  "deterministic",
		Model:     "hash-v1",
	}
	require.NoError(t, s.UpsertEmbedding(ctx, emb))

	got, err := s.GetEmbedding(ctx, project.ID, "main.go:run")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, DeserializeVector(got.Vector))

	require.NoError(t, s.DeleteEmbeddingsByFile(ctx, file.ID))
	_, err = s.GetEmbedding(ctx, project.ID, "main.go:run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchVectorOrderingAndFloor(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")

	// Orthogonal-ish vectors with known cosine similarity to the query.
	vectors := map[string][]float32{
		"main.go:exact":      {1, 0, 0}, // similarity 1.0
		"main.go:close":      {1, 1, 0}, // similarity ~0.707
		"main.go:orthogonal": {0, 1, 0}, // similarity 0.0
	}
	line := 1
	for id, vec := range vectors {
		newTestChunk(t, s, project.ID, file.ID, id, line, line+5)
		line += 10
		require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{
			ProjectID: project.ID,
			ChunkID:   id,
			Vector:    SerializeVector(vec),
			Dimension: 3,
			Provider:  "deterministic",
			Model:     "hash-v1",
		}))
	}

	results, err := s.SearchVector(ctx, project.ID, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "main.go:exact", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "main.go:close", results[1].ChunkID)
	assert.InDelta(t, 0.7071, results[1].Similarity, 1e-3)

	floored, err := s.SearchVector(ctx, project.ID, []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	assert.Len(t, floored, 2)

	limited, err := s.SearchVector(ctx, project.ID, []float32{1, 0, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "main.go:exact", limited[0].ChunkID)
}

func TestSearchVectorEmptyProject(t *testing.T) {
	s := newTestStorage(t)
	project := newTestProject(t, s)

	results, err := s.SearchVector(context.Background(), project.ID, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetStatus(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)
	file := newTestFile(t, s, project.ID, "main.go")
	newTestChunk(t, s, project.ID, file.ID, "main.go:run", 1, 10)

	status, err := s.GetStatus(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FilesCount)
	assert.Equal(t, 1, status.ChunksCount)
	assert.Equal(t, 0, status.EmbeddingsCount)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.False(t, status.Health.EmbeddingsAvailable)
}

func TestTransactionRollback(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, &File{
		ProjectID:   project.ID,
		FilePath:    "rollback.go",
		ContentHash: sha256.Sum256([]byte("x")),
	}))
	require.NoError(t, tx.Rollback())

	_, err = s.GetFile(ctx, project.ID, "rollback.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionCommit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	project := newTestProject(t, s)

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertFile(ctx, &File{
		ProjectID:   project.ID,
		FilePath:    "commit.go",
		ContentHash: sha256.Sum256([]byte("x")),
	}))
	require.NoError(t, tx.Commit())

	file, err := s.GetFile(ctx, project.ID, "commit.go")
	require.NoError(t, err)
	assert.Equal(t, "commit.go", file.FilePath)
}
