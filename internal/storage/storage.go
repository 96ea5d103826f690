package storage

import (
	"context"
	"time"

	"codegraph/pkg/types"
)

// Storage persists indexed projects, files, chunks, edges, and embeddings.
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	GetProjectByID(ctx context.Context, projectID int64) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, projectID int64, chunkID string) (*Chunk, error)
	GetChunks(ctx context.Context, projectID int64, chunkIDs []string) (map[string]*Chunk, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error)
	ListChunkIDs(ctx context.Context, projectID int64) ([]string, error)
	DeleteChunksByFile(ctx context.Context, fileID int64) error

	// Edge operations
	InsertEdges(ctx context.Context, projectID, fileID int64, edges []types.DependencyEdge) error
	ListEdges(ctx context.Context, projectID int64) ([]types.DependencyEdge, error)
	DeleteEdgesByFile(ctx context.Context, fileID int64) error
	PruneDanglingEdges(ctx context.Context, projectID int64) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, projectID int64, chunkID string) (*Embedding, error)
	DeleteEmbeddingsByFile(ctx context.Context, fileID int64) error

	// Search operations
	SearchVector(ctx context.Context, projectID int64, vector []float32, limit int, floor float64) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction over the same operation set.
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Project is an indexed codebase root.
type Project struct {
	ID            int64
	RootPath      string
	ModuleName    string
	TotalFiles    int
	TotalChunks   int
	IndexVersion  string
	LastRunID     string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File is a tracked source file. FilePath is relative to the project root.
type File struct {
	ID            int64
	ProjectID     int64
	FilePath      string
	PackageName   string
	ContentHash   [32]byte
	SizeBytes     int64
	ParseError    *string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is a persisted code chunk row. ChunkID is the stable string
// identity ("path.go:Type.Method"); rows are keyed (project_id, chunk_id).
type Chunk struct {
	ProjectID     int64
	FileID        int64
	ChunkID       string
	FilePath      string // populated from the files table on reads
	Kind          string
	Name          string
	StartLine     int
	EndLine       int
	SourceText    string
	ContextHeader string
	ParentID      string
	ContentHash   [32]byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToCodeChunk rebuilds the domain chunk. ChildrenIDs and CapturedRefs are
// index-time scaffolding and are not persisted; retrieval does not read them.
func (c *Chunk) ToCodeChunk(projectID string) types.CodeChunk {
	return types.CodeChunk{
		ID:            c.ChunkID,
		ProjectID:     projectID,
		FilePath:      c.FilePath,
		Kind:          types.ChunkKind(c.Kind),
		Name:          c.Name,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		SourceText:    c.SourceText,
		ContextHeader: c.ContextHeader,
		ParentID:      c.ParentID,
		ContentHash:   c.ContentHash,
	}
}

// FromCodeChunk maps a domain chunk onto a storage row.
func FromCodeChunk(chunk *types.CodeChunk, projectID, fileID int64) *Chunk {
	return &Chunk{
		ProjectID:     projectID,
		FileID:        fileID,
		ChunkID:       chunk.ID,
		Kind:          string(chunk.Kind),
		Name:          chunk.Name,
		StartLine:     chunk.StartLine,
		EndLine:       chunk.EndLine,
		SourceText:    chunk.SourceText,
		ContextHeader: chunk.ContextHeader,
		ParentID:      chunk.ParentID,
		ContentHash:   chunk.ContentHash,
	}
}

// Embedding is a chunk's vector, serialized little-endian float32.
type Embedding struct {
	ProjectID int64
	ChunkID   string
	Vector    []byte
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// VectorResult is one similarity hit, already ordered by the search.
type VectorResult struct {
	ChunkID    string
	Similarity float64
}

// ProjectStatus summarizes an indexed project.
type ProjectStatus struct {
	Project         *Project
	FilesCount      int
	ChunksCount     int
	EdgesCount      int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus reports whether the index is usable for retrieval.
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	VectorSearchNative  bool
}
