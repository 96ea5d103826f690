package types

import "time"

// ContextResult is one retrieved chunk with its provenance: the final score
// after decay and edge weighting, the hop it was discovered at (0 = vector
// seed), and the chunk-ID path from its seed.
type ContextResult struct {
	Chunk CodeChunk
	Score float64
	Hop   int
	Path  []string
}

// RetrievalResponse is the ordered result set of one context query.
type RetrievalResponse struct {
	Results []ContextResult

	// Degraded is true when a later stage failed or timed out after at
	// least one seed succeeded; the results are best-effort, not empty.
	Degraded bool

	// DegradedReason explains the degradation when Degraded is true.
	DegradedReason string

	Duration time.Duration
}

// FileFailure records one file that failed during an indexing run.
type FileFailure struct {
	FilePath string
	Stage    string // "parse", "chunk", "embed"
	Message  string
}

// IndexReport is the structured summary every indexing run returns,
// including runs with per-file failures.
type IndexReport struct {
	RunID         string
	ProjectID     string
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	FilesRemoved  int
	ChunksCreated int
	EdgesCreated  int
	Duration      time.Duration
	Failures      []FileFailure
}
