package graph

import "codegraph/pkg/types"

// Neighbor is one traversable arc from the adjacency snapshot.
type Neighbor struct {
	ChunkID string
	Type    types.EdgeType
	Weight  float64
}

// Adjacency is an immutable traversal snapshot of a project's edge set.
// Chunk IDs are interned to dense ints so hop expansion works on slice
// indexes instead of string maps. Edges whose endpoint is the external
// sentinel, or whose endpoint no longer has a live chunk, are dropped at
// construction; a snapshot built mid-run may therefore lag writes that
// landed after it was taken, which retrieval tolerates.
type Adjacency struct {
	index   map[string]int
	ids     []string
	forward [][]arc
	reverse [][]arc
}

type arc struct {
	node   int
	typ    types.EdgeType
	weight float64
}

// NewAdjacency builds a snapshot from a project's edges. live reports
// whether a chunk ID still exists; dangling endpoints are pruned here
// rather than eagerly in storage.
func NewAdjacency(edges []types.DependencyEdge, live func(chunkID string) bool) *Adjacency {
	a := &Adjacency{index: make(map[string]int)}
	for _, e := range edges {
		if e.TargetID == types.ExternalTarget {
			continue
		}
		if !live(e.SourceID) || !live(e.TargetID) {
			continue
		}
		src := a.intern(e.SourceID)
		dst := a.intern(e.TargetID)
		a.forward[src] = append(a.forward[src], arc{node: dst, typ: e.Type, weight: e.Weight})
		a.reverse[dst] = append(a.reverse[dst], arc{node: src, typ: e.Type, weight: e.Weight})
	}
	return a
}

func (a *Adjacency) intern(id string) int {
	if n, ok := a.index[id]; ok {
		return n
	}
	n := len(a.ids)
	a.index[id] = n
	a.ids = append(a.ids, id)
	a.forward = append(a.forward, nil)
	a.reverse = append(a.reverse, nil)
	return n
}

// Neighbors returns every chunk one hop from id, in both edge directions.
// Dependencies and dependents are equally relevant context, so traversal
// ignores orientation.
func (a *Adjacency) Neighbors(id string) []Neighbor {
	n, ok := a.index[id]
	if !ok {
		return nil
	}
	out := make([]Neighbor, 0, len(a.forward[n])+len(a.reverse[n]))
	for _, e := range a.forward[n] {
		out = append(out, Neighbor{ChunkID: a.ids[e.node], Type: e.typ, Weight: e.weight})
	}
	for _, e := range a.reverse[n] {
		out = append(out, Neighbor{ChunkID: a.ids[e.node], Type: e.typ, Weight: e.weight})
	}
	return out
}

// Size returns the number of distinct chunks with at least one edge.
func (a *Adjacency) Size() int {
	return len(a.ids)
}
