// Package symtab builds the project-scoped symbol table that edge
// resolution reads. The table is never ambient global state: a Builder is
// filled during the merge phase of an indexing run, then frozen into an
// immutable Table that pass-2 resolution reads concurrently.
package symtab

import (
	"sort"
	"strings"
	"sync"

	"codegraph/pkg/types"
)

// Builder aggregates per-file symbol registrations during the merge phase.
// Safe for concurrent use; Freeze ends the phase.
type Builder struct {
	mu      sync.Mutex
	byFile  map[string][]entry
	version int
}

type entry struct {
	fqn     string
	name    string
	chunkID string
}

// NewBuilder creates an empty symbol table builder.
func NewBuilder() *Builder {
	return &Builder{byFile: make(map[string][]entry)}
}

// ReplaceFile replaces a file's registrations with the symbols declared by
// its chunks. Re-indexing a file calls this again with the new chunk set.
func (b *Builder) ReplaceFile(filePath, pkg string, chunks []*types.CodeChunk) {
	entries := make([]entry, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Kind == types.ChunkFile || chunk.Kind == types.ChunkContinuation {
			continue
		}
		if chunk.Name == "" {
			continue
		}
		entries = append(entries, entry{
			fqn:     FullyQualified(pkg, chunk.Name),
			name:    shortName(chunk.Name),
			chunkID: chunk.ID,
		})
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byFile[filePath] = entries
	b.version++
}

// RemoveFile drops a deleted file's registrations.
func (b *Builder) RemoveFile(filePath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byFile, filePath)
	b.version++
}

// Freeze produces the read-only table pass-2 resolution works against.
// Registration order across files is made deterministic by sorting file
// paths, so duplicate-name resolution does not depend on merge timing.
func (b *Builder) Freeze() *Table {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := make([]string, 0, len(b.byFile))
	for f := range b.byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	t := &Table{
		Version: b.version,
		byFQN:   make(map[string]string),
		byName:  make(map[string][]string),
	}
	for _, f := range files {
		for _, e := range b.byFile[f] {
			if _, exists := t.byFQN[e.fqn]; !exists {
				t.byFQN[e.fqn] = e.chunkID
			}
			t.byName[e.name] = append(t.byName[e.name], e.chunkID)
		}
	}
	return t
}

// Table is the frozen fully-qualified-name to chunk-ID mapping. Immutable
// after Freeze; safe for concurrent reads without locking.
type Table struct {
	Version int

	byFQN  map[string]string
	byName map[string][]string
}

// Resolve looks up a fully-qualified name.
func (t *Table) Resolve(fqn string) (chunkID string, ok bool) {
	chunkID, ok = t.byFQN[fqn]
	return chunkID, ok
}

// ResolveName looks up an unqualified short name and returns every chunk
// declaring it, in deterministic order. Used for qualified-reference
// fallback and for name-match query seeding.
func (t *Table) ResolveName(name string) []string {
	return t.byName[name]
}

// Len returns the number of fully-qualified registrations.
func (t *Table) Len() int {
	return len(t.byFQN)
}

// FullyQualified joins a package and a declared name (which may itself be
// "Type.Member") into the table key.
func FullyQualified(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// shortName returns the member part of a possibly qualified name:
// "Type.Method" resolves by "Method", plain names by themselves.
func shortName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
