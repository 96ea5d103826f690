// Package searcher is the query-side orchestrator. It embeds query text,
// holds per-project graph snapshots and an LRU query cache with TTL, runs
// the retrieval engine, and degrades to symbol-name seeding when vector
// seeding is unavailable.
package searcher
