package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeBaseWeights(t *testing.T) {
	assert.Equal(t, 1.0, EdgeExtends.BaseWeight())
	assert.Equal(t, 0.8, EdgeCalls.BaseWeight())
	assert.Equal(t, 0.6, EdgeTypeRef.BaseWeight())
	assert.Equal(t, 0.3, EdgeImport.BaseWeight())
	assert.Equal(t, 0.0, EdgeType("unknown").BaseWeight())
}

func TestEdgeTypeForRef(t *testing.T) {
	assert.Equal(t, EdgeExtends, EdgeTypeForRef(RefSupertype))
	assert.Equal(t, EdgeCalls, EdgeTypeForRef(RefCall))
	assert.Equal(t, EdgeTypeRef, EdgeTypeForRef(RefType))
	assert.Equal(t, EdgeImport, EdgeTypeForRef(RefImport))
}
