// Package graph turns captured references into a weighted dependency
// multigraph over chunks. Edge building runs as a second pass after every
// file's symbols have been merged into the frozen table, so resolution does
// not depend on file ordering.
package graph

import (
	"sort"
	"strings"

	"codegraph/internal/symtab"
	"codegraph/pkg/types"
)

// Builder resolves one file's captured references against a frozen symbol
// table. Stateless apart from the table; safe for concurrent use across
// files.
type Builder struct {
	table *symtab.Table
}

// NewBuilder creates an edge builder over a frozen table.
func NewBuilder(table *symtab.Table) *Builder {
	return &Builder{table: table}
}

// BuildEdges resolves the references captured by a file's chunks into
// dependency edges. Unresolved targets collapse to the external sentinel,
// self-loops are dropped, and duplicate (source, target, type) triples keep
// the highest weight. Output order is deterministic.
func (b *Builder) BuildEdges(projectID string, pkg string, imports []types.Import, chunks []*types.CodeChunk) []types.DependencyEdge {
	aliases := importAliases(imports)

	type key struct {
		source string
		target string
		typ    types.EdgeType
	}
	best := make(map[key]float64)

	for _, chunk := range chunks {
		for _, ref := range chunk.CapturedRefs {
			edgeType := types.EdgeTypeForRef(ref.Kind)
			target := b.resolve(pkg, aliases, ref)
			if target == chunk.ID {
				continue
			}
			k := key{source: chunk.ID, target: target, typ: edgeType}
			w := edgeType.BaseWeight()
			if w > best[k] {
				best[k] = w
			}
		}
	}

	edges := make([]types.DependencyEdge, 0, len(best))
	for k, w := range best {
		edges = append(edges, types.DependencyEdge{
			ProjectID: projectID,
			SourceID:  k.source,
			TargetID:  k.target,
			Type:      k.typ,
			Weight:    w,
		})
	}
	sort.Slice(edges, func(i, j int) bool {
		a, z := edges[i], edges[j]
		if a.SourceID != z.SourceID {
			return a.SourceID < z.SourceID
		}
		if a.TargetID != z.TargetID {
			return a.TargetID < z.TargetID
		}
		return a.Type < z.Type
	})
	return edges
}

// resolve maps a reference to a chunk ID, or to the external sentinel when
// no indexed declaration matches.
func (b *Builder) resolve(pkg string, aliases map[string]string, ref types.Reference) string {
	if ref.Kind == types.RefImport {
		// Import edges always point outside the indexed chunk set.
		return types.ExternalTarget
	}

	// A qualifier naming an import alias means the target lives in another
	// package. Indexed cross-package symbols resolve by that package's
	// name; anything else is external.
	if ref.Qualifier != "" {
		if path, ok := aliases[ref.Qualifier]; ok {
			if id, ok := b.table.Resolve(symtab.FullyQualified(basePackage(path), ref.Name)); ok {
				return id
			}
			return types.ExternalTarget
		}
		// Qualifier is a local value (receiver, variable, field). Try the
		// same package as a Type.Member declaration first.
		if id, ok := b.table.Resolve(symtab.FullyQualified(pkg, ref.Qualifier+"."+ref.Name)); ok {
			return id
		}
	}

	if id, ok := b.table.Resolve(symtab.FullyQualified(pkg, ref.Name)); ok {
		return id
	}

	// Last chance: a unique short-name match anywhere in the project.
	if ids := b.table.ResolveName(ref.Name); len(ids) == 1 {
		return ids[0]
	}
	return types.ExternalTarget
}

func importAliases(imports []types.Import) map[string]string {
	m := make(map[string]string, len(imports))
	for _, imp := range imports {
		alias := imp.Alias
		if alias == "" {
			alias = basePackage(imp.Path)
		}
		m[alias] = imp.Path
	}
	return m
}

func basePackage(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
