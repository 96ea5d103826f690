package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"codegraph/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens the database at dbPath and applies pending
// migrations.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is the subset both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) querier() querier      { return t.tx }
func (s *SQLiteStorage) querier() querier { return s.db }

// Project operations

func (s *SQLiteStorage) createProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		INSERT INTO projects (root_path, module_name, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		project.RootPath, project.ModuleName, project.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	return s.createProjectWithQuerier(ctx, s.querier(), project)
}

const projectColumns = `id, root_path, module_name, total_files, total_chunks,
       index_version, last_run_id, last_indexed_at, created_at, updated_at`

func scanProject(row *sql.Row) (*Project, error) {
	var project Project
	var lastRunID sql.NullString
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&project.ID, &project.RootPath, &project.ModuleName,
		&project.TotalFiles, &project.TotalChunks, &project.IndexVersion,
		&lastRunID, &lastIndexedAt, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastRunID.Valid {
		project.LastRunID = lastRunID.String
	}
	if lastIndexedAt.Valid {
		project.LastIndexedAt = lastIndexedAt.Time
	}
	return &project, nil
}

func (s *SQLiteStorage) getProjectWithQuerier(ctx context.Context, q querier, rootPath string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE root_path = ?`
	return scanProject(q.QueryRowContext(ctx, query, rootPath))
}

func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return s.getProjectWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getProjectByIDWithQuerier(ctx context.Context, q querier, projectID int64) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(q.QueryRowContext(ctx, query, projectID))
}

func (s *SQLiteStorage) GetProjectByID(ctx context.Context, projectID int64) (*Project, error) {
	return s.getProjectByIDWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) updateProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	query := `
		UPDATE projects
		SET module_name = ?, total_files = ?, total_chunks = ?,
		    last_run_id = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		project.ModuleName, project.TotalFiles, project.TotalChunks,
		project.LastRunID, project.LastIndexedAt, now, project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	project.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	return s.updateProjectWithQuerier(ctx, s.querier(), project)
}

// File operations

func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (project_id, file_path, package_name, content_hash, size_bytes, parse_error, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			package_name = excluded.package_name,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.ProjectID, file.FilePath, file.PackageName, file.ContentHash[:],
		file.SizeBytes, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.querier(), file)
}

const fileColumns = `id, project_id, file_path, package_name, content_hash,
       size_bytes, parse_error, last_indexed_at, created_at, updated_at`

func scanFileRow(scan func(dest ...interface{}) error) (*File, error) {
	var file File
	var hash []byte
	var parseError sql.NullString
	err := scan(
		&file.ID, &file.ProjectID, &file.FilePath, &file.PackageName,
		&hash, &file.SizeBytes, &parseError,
		&file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, projectID int64, filePath string) (*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE project_id = ? AND file_path = ?`
	file, err := scanFileRow(q.QueryRowContext(ctx, query, projectID, filePath).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return file, err
}

func (s *SQLiteStorage) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.querier(), projectID, filePath)
}

func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, projectID int64) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE project_id = ? ORDER BY file_path`
	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*File, 0)
	for rows.Next() {
		file, err := scanFileRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.querier(), fileID)
}

// Chunk operations

func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	query := `
		INSERT INTO chunks (
			project_id, file_id, chunk_id, kind, name,
			start_line, end_line, source_text, context_header, parent_id,
			content_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, chunk_id)
		DO UPDATE SET
			file_id = excluded.file_id,
			kind = excluded.kind,
			name = excluded.name,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			source_text = excluded.source_text,
			context_header = excluded.context_header,
			parent_id = excluded.parent_id,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		chunk.ProjectID, chunk.FileID, chunk.ChunkID, chunk.Kind, chunk.Name,
		chunk.StartLine, chunk.EndLine, chunk.SourceText, chunk.ContextHeader,
		chunk.ParentID, chunk.ContentHash[:], now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	chunk.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

const chunkColumns = `c.project_id, c.file_id, c.chunk_id, f.file_path, c.kind, c.name,
       c.start_line, c.end_line, c.source_text, c.context_header, c.parent_id,
       c.content_hash, c.created_at, c.updated_at`

func scanChunkRow(scan func(dest ...interface{}) error) (*Chunk, error) {
	var chunk Chunk
	var hash []byte
	var name, header, parentID sql.NullString
	err := scan(
		&chunk.ProjectID, &chunk.FileID, &chunk.ChunkID, &chunk.FilePath,
		&chunk.Kind, &name, &chunk.StartLine, &chunk.EndLine,
		&chunk.SourceText, &header, &parentID,
		&hash, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	chunk.Name = name.String
	chunk.ContextHeader = header.String
	chunk.ParentID = parentID.String
	return &chunk, nil
}

func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, projectID int64, chunkID string) (*Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.project_id = ? AND c.chunk_id = ?
	`
	chunk, err := scanChunkRow(q.QueryRowContext(ctx, query, projectID, chunkID).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, projectID int64, chunkID string) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), projectID, chunkID)
}

func (s *SQLiteStorage) getChunksWithQuerier(ctx context.Context, q querier, projectID int64, chunkIDs []string) (map[string]*Chunk, error) {
	if len(chunkIDs) == 0 {
		return map[string]*Chunk{}, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, 0, len(chunkIDs)+1)
	args = append(args, projectID)
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.project_id = ? AND c.chunk_id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make(map[string]*Chunk, len(chunkIDs))
	for rows.Next() {
		chunk, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks[chunk.ChunkID] = chunk
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) GetChunks(ctx context.Context, projectID int64, chunkIDs []string) (map[string]*Chunk, error) {
	return s.getChunksWithQuerier(ctx, s.querier(), projectID, chunkIDs)
}

func (s *SQLiteStorage) listChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) ([]*Chunk, error) {
	query := `
		SELECT ` + chunkColumns + `
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE c.file_id = ?
		ORDER BY c.start_line, c.chunk_id
	`
	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return s.listChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) listChunkIDsWithQuerier(ctx context.Context, q querier, projectID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE project_id = ? ORDER BY chunk_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStorage) ListChunkIDs(ctx context.Context, projectID int64) ([]string, error) {
	return s.listChunkIDsWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) deleteChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return s.deleteChunksByFileWithQuerier(ctx, s.querier(), fileID)
}

// Edge operations

func (s *SQLiteStorage) insertEdgesWithQuerier(ctx context.Context, q querier, projectID, fileID int64, edges []types.DependencyEdge) error {
	if len(edges) == 0 {
		return nil
	}
	query := `
		INSERT INTO edges (project_id, file_id, source_id, target_id, edge_type, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, source_id, target_id, edge_type)
		DO UPDATE SET weight = MAX(weight, excluded.weight), file_id = excluded.file_id
	`
	now := time.Now()
	for _, edge := range edges {
		if _, err := q.ExecContext(ctx, query,
			projectID, fileID, edge.SourceID, edge.TargetID, string(edge.Type), edge.Weight, now); err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", edge.SourceID, edge.TargetID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertEdges(ctx context.Context, projectID, fileID int64, edges []types.DependencyEdge) error {
	return s.insertEdgesWithQuerier(ctx, s.querier(), projectID, fileID, edges)
}

func (s *SQLiteStorage) listEdgesWithQuerier(ctx context.Context, q querier, projectID int64) ([]types.DependencyEdge, error) {
	query := `
		SELECT source_id, target_id, edge_type, weight
		FROM edges
		WHERE project_id = ?
		ORDER BY source_id, target_id, edge_type
	`
	rows, err := q.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	edges := make([]types.DependencyEdge, 0)
	for rows.Next() {
		var edge types.DependencyEdge
		var edgeType string
		if err := rows.Scan(&edge.SourceID, &edge.TargetID, &edgeType, &edge.Weight); err != nil {
			return nil, err
		}
		edge.Type = types.EdgeType(edgeType)
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (s *SQLiteStorage) ListEdges(ctx context.Context, projectID int64) ([]types.DependencyEdge, error) {
	return s.listEdgesWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) deleteEdgesByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM edges WHERE file_id = ?`, fileID)
	return err
}

func (s *SQLiteStorage) DeleteEdgesByFile(ctx context.Context, fileID int64) error {
	return s.deleteEdgesByFileWithQuerier(ctx, s.querier(), fileID)
}

func (s *SQLiteStorage) pruneDanglingEdgesWithQuerier(ctx context.Context, q querier, projectID int64) (int, error) {
	query := `
		DELETE FROM edges
		WHERE project_id = ?
		AND target_id != ?
		AND target_id NOT IN (SELECT chunk_id FROM chunks WHERE project_id = ?)
	`
	result, err := q.ExecContext(ctx, query, projectID, types.ExternalTarget, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to prune dangling edges: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PruneDanglingEdges removes edges whose target chunk no longer exists.
// Retrieval never follows such edges, so this is housekeeping, not
// correctness.
func (s *SQLiteStorage) PruneDanglingEdges(ctx context.Context, projectID int64) (int, error) {
	return s.pruneDanglingEdgesWithQuerier(ctx, s.querier(), projectID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (project_id, chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		embedding.ProjectID, embedding.ChunkID, embedding.Vector,
		embedding.Dimension, embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, projectID int64, chunkID string) (*Embedding, error) {
	query := `
		SELECT project_id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE project_id = ? AND chunk_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, projectID, chunkID).Scan(
		&embedding.ProjectID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, projectID int64, chunkID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), projectID, chunkID)
}

func (s *SQLiteStorage) deleteEmbeddingsByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	query := `
		DELETE FROM embeddings
		WHERE (project_id, chunk_id) IN (
			SELECT project_id, chunk_id FROM chunks WHERE file_id = ?
		)
	`
	_, err := q.ExecContext(ctx, query, fileID)
	return err
}

func (s *SQLiteStorage) DeleteEmbeddingsByFile(ctx context.Context, fileID int64) error {
	return s.deleteEmbeddingsByFileWithQuerier(ctx, s.querier(), fileID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, projectID int64, vector []float32, limit int, floor float64) ([]VectorResult, error) {
	return searchVector(ctx, s.db, projectID, vector, limit, floor)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Project:       project,
		LastIndexedAt: project.LastIndexedAt,
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM files WHERE project_id = ?", &status.FilesCount},
		{"SELECT COUNT(*) FROM chunks WHERE project_id = ?", &status.ChunksCount},
		{"SELECT COUNT(*) FROM edges WHERE project_id = ?", &status.EdgesCount},
		{"SELECT COUNT(*) FROM embeddings WHERE project_id = ?", &status.EmbeddingsCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, projectID).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		VectorSearchNative:  VectorExtensionAvailable,
	}

	return status, nil
}

// Transaction implementations delegate to the querier helpers.

func (t *sqliteTx) CreateProject(ctx context.Context, project *Project) error {
	return t.storage.createProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	return t.storage.getProjectWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) GetProjectByID(ctx context.Context, projectID int64) (*Project, error) {
	return t.storage.getProjectByIDWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) UpdateProject(ctx context.Context, project *Project) error {
	return t.storage.updateProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.querier(), projectID, filePath)
}

func (t *sqliteTx) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, projectID int64, chunkID string) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), projectID, chunkID)
}

func (t *sqliteTx) GetChunks(ctx context.Context, projectID int64, chunkIDs []string) (map[string]*Chunk, error) {
	return t.storage.getChunksWithQuerier(ctx, t.querier(), projectID, chunkIDs)
}

func (t *sqliteTx) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return t.storage.listChunksByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) ListChunkIDs(ctx context.Context, projectID int64) ([]string, error) {
	return t.storage.listChunkIDsWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteChunksByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) InsertEdges(ctx context.Context, projectID, fileID int64, edges []types.DependencyEdge) error {
	return t.storage.insertEdgesWithQuerier(ctx, t.querier(), projectID, fileID, edges)
}

func (t *sqliteTx) ListEdges(ctx context.Context, projectID int64) ([]types.DependencyEdge, error) {
	return t.storage.listEdgesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) DeleteEdgesByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteEdgesByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) PruneDanglingEdges(ctx context.Context, projectID int64) (int, error) {
	return t.storage.pruneDanglingEdgesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, projectID int64, chunkID string) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), projectID, chunkID)
}

func (t *sqliteTx) DeleteEmbeddingsByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteEmbeddingsByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, projectID int64, vector []float32, limit int, floor float64) ([]VectorResult, error) {
	return t.storage.SearchVector(ctx, projectID, vector, limit, floor)
}

func (t *sqliteTx) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	return t.storage.GetStatus(ctx, projectID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
