// Package storage persists the index in SQLite: projects, files, chunks,
// dependency edges, and embeddings.
//
// Chunks are keyed by (project_id, chunk_id) where chunk_id is the stable
// string identity a chunk keeps across re-indexing runs. Edges and
// embeddings reference chunks by that identity rather than a rowid, so
// replacing a file's chunks leaves cross-file edges intact.
//
// Two build modes select the SQLite driver:
//
//	sqlite_vec tag: mattn/go-sqlite3 with the sqlite-vec extension, vector
//	similarity computed in SQL.
//
//	default/purego: modernc.org/sqlite, no cgo, similarity computed in Go
//	over a full scan of the project's embeddings.
//
// Both modes return identical result ordering. The database runs in WAL
// mode with a single writer connection; concurrent readers see the last
// committed state.
package storage
