// Package mcp implements the Model Context Protocol server for codegraph.
//
// The server exposes three tools to MCP clients:
//   - index_codebase: chunk a project, build its dependency graph, embed chunks
//   - query_context: graph-augmented retrieval for a natural language query
//   - get_status: indexing statistics and index health
//
// MCP is a JSON-RPC 2.0 protocol over stdio. Stdout is reserved for the
// protocol; all logging goes to stderr.
//
// # Tool: index_codebase
//
//	{
//	  "name": "index_codebase",
//	  "arguments": {"path": "/path/to/project", "force_reindex": false}
//	}
//
// The response is the structured run report: files indexed, skipped,
// failed, and removed, chunk and edge counts, and the first few per-file
// failures when any occurred. A run never aborts on a single bad file.
//
// # Tool: query_context
//
//	{
//	  "name": "query_context",
//	  "arguments": {"path": "/path/to/project", "query": "retry backoff for http calls"}
//	}
//
// Results are ranked chunks with score, hop distance from the seed set,
// and the edge path that admitted them. When vector seeding is
// unavailable the response carries "degraded": true together with
// name-matched results rather than failing outright.
//
// # Tool: get_status
//
//	{
//	  "name": "get_status",
//	  "arguments": {"path": "/path/to/project"}
//	}
//
// Reports whether the project is indexed, per-table counts, and health
// flags including whether native vector search is compiled in.
//
// # Error codes
//
//   - -32602: invalid params (missing or malformed arguments)
//   - -32603: internal error (database, filesystem, embedder)
//   - -32002: an indexing run is already in progress
//   - -32003: project not indexed
//   - -32004: empty query
package mcp
