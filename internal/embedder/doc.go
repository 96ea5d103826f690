// Package embedder generates vector embeddings for chunk and query text.
//
// Providers implement the Embedder interface: Jina and OpenAI share an
// HTTP client for their OpenAI-compatible APIs, with exponential-backoff
// retry and an LRU cache keyed by content hash. A deterministic hash-based
// provider exists for tests and offline work; it carries no semantic
// signal and is never chosen unless named explicitly, so a missing API key
// surfaces as an error instead of a quietly broken index.
package embedder
