package types

import "errors"

// EdgeType classifies a dependency relation between two chunks.
type EdgeType string

const (
	EdgeExtends EdgeType = "extends"
	EdgeCalls   EdgeType = "calls"
	EdgeTypeRef EdgeType = "typeref"
	EdgeImport  EdgeType = "import"
)

// ExternalTarget is the synthetic node that unresolved references point at.
// Keeping these edges preserves graph completeness for coverage metrics.
const ExternalTarget = "external"

// BaseWeight returns the base weight used when propagating retrieval scores
// across an edge of this type.
func (t EdgeType) BaseWeight() float64 {
	switch t {
	case EdgeExtends:
		return 1.0
	case EdgeCalls:
		return 0.8
	case EdgeTypeRef:
		return 0.6
	case EdgeImport:
		return 0.3
	default:
		return 0
	}
}

// EdgeTypeForRef maps a captured reference kind to the edge type it produces.
func EdgeTypeForRef(kind RefKind) EdgeType {
	switch kind {
	case RefSupertype:
		return EdgeExtends
	case RefCall:
		return EdgeCalls
	case RefType:
		return EdgeTypeRef
	case RefImport:
		return EdgeImport
	default:
		return EdgeTypeRef
	}
}

// DependencyEdge is a typed, weighted, directed relation between two chunks
// of the same project. TargetID may be ExternalTarget for references that
// did not resolve inside the project. The graph holds at most one edge per
// (source, target, type) triple.
type DependencyEdge struct {
	ProjectID string
	SourceID  string
	TargetID  string
	Type      EdgeType
	Weight    float64
}

// Validate checks the graph invariants that hold for every edge.
func (e *DependencyEdge) Validate() error {
	if e.ProjectID == "" {
		return errors.New("edge project ID is required")
	}
	if e.SourceID == "" || e.TargetID == "" {
		return errors.New("edge endpoints are required")
	}
	if e.SourceID == e.TargetID {
		return errors.New("self-loops are not allowed")
	}
	if e.Weight <= 0 || e.Weight > 1 {
		return errors.New("edge weight must be in (0, 1]")
	}
	switch e.Type {
	case EdgeExtends, EdgeCalls, EdgeTypeRef, EdgeImport:
		return nil
	default:
		return errors.New("invalid edge type")
	}
}
