package types

import "errors"

// Failure taxonomy. Per-file failures (parse, chunk) never abort a project
// run; they land in the IndexReport. Query-path failures surface to the
// caller with enough detail to retry or degrade.
var (
	// ErrUnsupportedLanguage is returned by the parser adapter for a
	// language hint it has no grammar for.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrVectorStoreUnavailable wraps vector index failures; retryable.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbeddingProvider wraps embedding provider failures; retryable.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrProjectNotIndexed is returned when querying a project that has
	// never been indexed.
	ErrProjectNotIndexed = errors.New("project not indexed")
)
