package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ChunkKind represents the structural level a chunk was emitted at.
type ChunkKind string

const (
	ChunkFile         ChunkKind = "file"
	ChunkTypeDecl     ChunkKind = "type"
	ChunkFunction     ChunkKind = "function"
	ChunkField        ChunkKind = "field"
	ChunkContinuation ChunkKind = "continuation"
)

// CodeChunk is a structurally-coherent unit of source code plus the context
// header that makes it readable on its own. Chunks form a tree per file:
// the file chunk is the root, and every other chunk has exactly one parent
// whose span fully contains its own.
type CodeChunk struct {
	// ID is stable across re-indexing as long as the file path and
	// qualified name survive: "path/to/file.go:Type.Method", with a
	// "#partN" suffix for continuation-family members.
	ID        string
	ProjectID string
	FilePath  string
	Kind      ChunkKind
	Name      string

	StartLine int
	EndLine   int

	SourceText    string
	ContextHeader string

	ParentID    string
	ChildrenIDs []string

	// ContentHash is the SHA-256 of SourceText; a changed hash drives
	// re-embedding, not regeneration of unrelated chunk IDs.
	ContentHash [32]byte

	// Embedding is nil until the chunk has been embedded.
	Embedding []float32

	// CapturedRefs are consumed by the graph builder and not persisted
	// past edge resolution.
	CapturedRefs []Reference
}

// ChunkKind maps a structural node kind to the chunk kind it emits as.
func (k NodeKind) ChunkKind() ChunkKind {
	switch k {
	case NodeFile:
		return ChunkFile
	case NodeType:
		return ChunkTypeDecl
	case NodeFunction:
		return ChunkFunction
	case NodeBlock:
		return ChunkContinuation
	default:
		return ChunkField
	}
}

// ChunkID builds the stable identifier for a chunk of a file.
func ChunkID(filePath, qualifiedName string) string {
	if qualifiedName == "" {
		return filePath
	}
	return filePath + ":" + qualifiedName
}

// ContinuationID builds the identifier of the nth member of a continuation
// family (1-based).
func ContinuationID(baseID string, part int) string {
	return fmt.Sprintf("%s#part%d", baseID, part)
}

// Span returns the chunk's line range.
func (c *CodeChunk) Span() Span {
	return Span{StartLine: c.StartLine, EndLine: c.EndLine}
}

// ComputeContentHash computes the SHA-256 hash of the chunk's source text.
func (c *CodeChunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.SourceText))
}

// EmbeddingText returns the text submitted to the embedding provider:
// the context header followed by the source text.
func (c *CodeChunk) EmbeddingText() string {
	if c.ContextHeader == "" {
		return c.SourceText
	}
	return c.ContextHeader + "\n\n" + c.SourceText
}

// Validate performs structural validation of the chunk.
func (c *CodeChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID is required")
	}
	if c.ProjectID == "" {
		return errors.New("project ID is required")
	}
	if c.SourceText == "" {
		return errors.New("chunk source text cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	switch c.Kind {
	case ChunkFile, ChunkTypeDecl, ChunkFunction, ChunkField, ChunkContinuation:
	default:
		return fmt.Errorf("invalid chunk kind %q", c.Kind)
	}
	if c.Kind != ChunkFile && c.ParentID == "" {
		return errors.New("non-file chunks must have a parent")
	}
	var zero [32]byte
	if c.ContentHash == zero {
		return errors.New("content hash must be computed")
	}
	return nil
}
