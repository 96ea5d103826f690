package types

// NodeKind identifies where a node sits in the structural taxonomy shared by
// all language adapters: file > type > function > field > block.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeType     NodeKind = "type"
	NodeFunction NodeKind = "function"
	NodeField    NodeKind = "field"
	NodeBlock    NodeKind = "block"
)

// Span is an inclusive line range in a source file.
type Span struct {
	StartLine int
	EndLine   int
}

// Lines returns the number of lines covered by the span.
func (s Span) Lines() int {
	if s.EndLine < s.StartLine {
		return 0
	}
	return s.EndLine - s.StartLine + 1
}

// Contains reports whether s fully covers other.
func (s Span) Contains(other Span) bool {
	return s.StartLine <= other.StartLine && other.EndLine <= s.EndLine
}

// Overlap returns the number of lines shared by the two spans.
func (s Span) Overlap(other Span) int {
	lo := s.StartLine
	if other.StartLine > lo {
		lo = other.StartLine
	}
	hi := s.EndLine
	if other.EndLine < hi {
		hi = other.EndLine
	}
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

// Node is the capability interface every language adapter translates its
// grammar nodes into. The chunker and graph builder only ever see this view,
// which keeps them language-agnostic.
type Node interface {
	// Kind returns the node's place in the structural taxonomy.
	Kind() NodeKind

	// Span returns the node's line range in the source file.
	Span() Span

	// Children returns the structural children in source order.
	Children() []Node

	// Text returns the node's source text.
	Text() string

	// Name returns the declared name, or "" for anonymous nodes.
	Name() string

	// Signature returns a one-line signature suitable for context headers.
	Signature() string

	// Refs returns the identifiers this node references.
	Refs() []Reference
}

// RefKind classifies a captured reference; it determines the edge type the
// graph builder emits when the reference resolves.
type RefKind string

const (
	RefCall      RefKind = "call"
	RefSupertype RefKind = "supertype"
	RefType      RefKind = "type"
	RefImport    RefKind = "import"
)

// Reference is an identifier captured from a structural node during parsing.
// Qualifier holds the receiver or package part for selector references
// (e.g. "Baz" in Baz.Qux()).
type Reference struct {
	Name      string
	Qualifier string
	Kind      RefKind
}

// Import is an import declaration in a source file.
type Import struct {
	Path  string
	Alias string
}

// AstView is the language-agnostic parse result handed to the chunker.
type AstView struct {
	Language string
	FilePath string
	Package  string
	Imports  []Import
	Root     Node

	// Errors holds non-fatal syntax errors; a view with errors may still
	// carry a partial Root.
	Errors []ParseError
}

// HasErrors reports whether any parse errors were recorded.
func (v *AstView) HasErrors() bool {
	return len(v.Errors) > 0
}

// ParseError is a non-fatal error encountered while parsing one file.
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error implements the error interface.
func (pe *ParseError) Error() string {
	return pe.Message
}
