// Package vecindex is the similarity-search contract the retrieval engine
// seeds from. The concrete index stores vectors in SQLite next to the rest
// of the project data, so chunks and their embeddings share one
// transactional store.
package vecindex

import (
	"context"
	"fmt"

	"codegraph/internal/storage"
)

// Match is one similarity hit against the index.
type Match struct {
	ChunkID    string
	Similarity float64
}

// Index upserts and queries chunk vectors for one project.
type Index interface {
	// Upsert inserts or replaces a chunk's vector.
	Upsert(ctx context.Context, chunkID string, vector []float32, provider, model string) error

	// DeleteByFile removes every vector belonging to a file's chunks.
	DeleteByFile(ctx context.Context, fileID int64) error

	// Query returns up to k matches ordered by similarity descending, chunk
	// ID ascending on ties. Matches below floor are excluded. An empty
	// project yields an empty result, not an error.
	Query(ctx context.Context, vector []float32, k int, floor float64) ([]Match, error)
}

// SQLiteIndex implements Index over the storage layer.
type SQLiteIndex struct {
	store     storage.Storage
	projectID int64
}

// New creates a project-scoped index over store.
func New(store storage.Storage, projectID int64) *SQLiteIndex {
	return &SQLiteIndex{store: store, projectID: projectID}
}

func (x *SQLiteIndex) Upsert(ctx context.Context, chunkID string, vector []float32, provider, model string) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for chunk %s", chunkID)
	}
	return x.store.UpsertEmbedding(ctx, &storage.Embedding{
		ProjectID: x.projectID,
		ChunkID:   chunkID,
		Vector:    storage.SerializeVector(vector),
		Dimension: len(vector),
		Provider:  provider,
		Model:     model,
	})
}

func (x *SQLiteIndex) DeleteByFile(ctx context.Context, fileID int64) error {
	return x.store.DeleteEmbeddingsByFile(ctx, fileID)
}

func (x *SQLiteIndex) Query(ctx context.Context, vector []float32, k int, floor float64) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	results, err := x.store.SearchVector(ctx, x.projectID, vector, k, floor)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ChunkID: r.ChunkID, Similarity: r.Similarity}
	}
	return matches, nil
}
