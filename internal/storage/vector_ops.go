package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// searchVector runs cosine similarity search over a project's embeddings.
// Both paths return the same ordering: similarity descending, chunk ID
// ascending on ties, so results do not depend on the build mode.
func searchVector(ctx context.Context, db *sql.DB, projectID int64, queryVector []float32, limit int, floor float64) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		return searchVectorNative(ctx, db, projectID, queryVector, limit, floor)
	}
	return searchVectorFallback(ctx, db, projectID, queryVector, limit, floor)
}

// searchVectorNative pushes the distance computation into sqlite-vec.
// vec_distance_cosine returns distance, so similarity is 1 - distance.
func searchVectorNative(ctx context.Context, db *sql.DB, projectID int64, queryVector []float32, limit int, floor float64) ([]VectorResult, error) {
	queryBlob := serializeVector(queryVector)

	query := `
		SELECT
			e.chunk_id,
			1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM embeddings e
		WHERE e.project_id = ?
	`
	args := []interface{}{queryBlob, projectID}

	if floor > 0 {
		query += " AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?"
		args = append(args, queryBlob, floor)
	}

	query += " ORDER BY similarity DESC, e.chunk_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// searchVectorFallback scans every embedding and ranks in Go. Used when the
// sqlite-vec extension is unavailable (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, projectID int64, queryVector []float32, limit int, floor float64) ([]VectorResult, error) {
	query := `SELECT chunk_id, vector FROM embeddings WHERE project_id = ?`
	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorResult, 0, 1024)
	for rows.Next() {
		var chunkID string
		var vectorBlob []byte
		if err := rows.Scan(&chunkID, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // dimension mismatch, skip
		}

		similarity := cosineSimilarity(queryVector, vector)
		if floor > 0 && similarity < floor {
			continue
		}
		candidates = append(candidates, VectorResult{ChunkID: chunkID, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// serializeVector converts a float32 slice to a little-endian byte blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for embedding writers.
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for embedding readers.
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for ranking tests.
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
