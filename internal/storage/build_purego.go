//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled without CGO. Uses the pure Go SQLite implementation; vector
// similarity falls back to a Go-side scan with identical result ordering.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
