package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/pkg/types"
)

func allLive(string) bool { return true }

func TestAdjacencyNeighborsBothDirections(t *testing.T) {
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "b", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "c", TargetID: "a", Type: types.EdgeTypeRef, Weight: 0.6},
	}
	adj := NewAdjacency(edges, allLive)

	require.Equal(t, 3, adj.Size())

	neighbors := adj.Neighbors("a")
	require.Len(t, neighbors, 2)
	assert.Contains(t, neighbors, Neighbor{ChunkID: "b", Type: types.EdgeCalls, Weight: 0.8})
	assert.Contains(t, neighbors, Neighbor{ChunkID: "c", Type: types.EdgeTypeRef, Weight: 0.6})

	assert.Equal(t, []Neighbor{{ChunkID: "a", Type: types.EdgeCalls, Weight: 0.8}}, adj.Neighbors("b"))
	assert.Nil(t, adj.Neighbors("unknown"))
}

func TestAdjacencyDropsExternalEdges(t *testing.T) {
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: types.ExternalTarget, Type: types.EdgeImport, Weight: 0.3},
		{SourceID: "a", TargetID: "b", Type: types.EdgeCalls, Weight: 0.8},
	}
	adj := NewAdjacency(edges, allLive)

	assert.Equal(t, 2, adj.Size())
	assert.Len(t, adj.Neighbors("a"), 1)
}

func TestAdjacencyDropsDeadEndpoints(t *testing.T) {
	edges := []types.DependencyEdge{
		{SourceID: "a", TargetID: "deleted", Type: types.EdgeCalls, Weight: 0.8},
		{SourceID: "a", TargetID: "b", Type: types.EdgeCalls, Weight: 0.8},
	}
	live := func(id string) bool { return id != "deleted" }
	adj := NewAdjacency(edges, live)

	assert.Equal(t, 2, adj.Size())
	assert.Equal(t, []Neighbor{{ChunkID: "b", Type: types.EdgeCalls, Weight: 0.8}}, adj.Neighbors("a"))
}
