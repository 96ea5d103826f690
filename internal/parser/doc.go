// Package parser turns source bytes into the language-agnostic AST view
// consumed by the chunker and graph builder.
//
// Each language is served by an Adapter that translates its concrete
// grammar into the shared structural taxonomy (file > type > function >
// field > block) behind the types.Node capability interface. The Go
// adapter is built on go/parser and go/ast.
//
// # Basic Usage
//
//	p := parser.New()
//	view, err := p.Parse(src, "internal/auth/token.go", "go")
//	if err != nil {
//	    return err
//	}
//	root := view.Root // file node, children are top-level declarations
//
// # Reference Capture
//
// While building the view, each structural node captures the identifiers
// it references, classified by kind:
//
//   - call targets (including selector receivers): RefCall
//   - embedded struct/interface types: RefSupertype
//   - field, parameter, result, and literal types: RefType
//   - import paths: RefImport (on the file node)
//
// These captured references are the raw material for dependency edge
// resolution; they are never interpreted here.
//
// # Error Handling
//
// Syntax errors are non-fatal. The adapter records them in the view and
// still returns whatever structure the grammar recovered:
//
//	view, err := p.Parse(src, path, "go")
//	if view.HasErrors() {
//	    // partial view; indexing continues, failure lands in the report
//	}
//
// An unknown language hint returns types.ErrUnsupportedLanguage.
package parser
