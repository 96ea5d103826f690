package parser

import (
	"fmt"
	"go/parser"
	"go/token"
	"strings"

	"codegraph/pkg/types"
)

// Adapter translates one language's grammar into the shared AST view.
type Adapter interface {
	// Language returns the language hint this adapter serves.
	Language() string

	// Parse turns source bytes into the common structural view. Syntax
	// errors are non-fatal: a partial view with recorded errors is still
	// returned when the grammar recovered enough structure.
	Parse(src []byte, filePath string) (*types.AstView, error)
}

// Parser dispatches source files to the adapter registered for their
// language hint.
type Parser struct {
	adapters map[string]Adapter
}

// New creates a Parser with the Go adapter registered.
func New() *Parser {
	p := &Parser{adapters: make(map[string]Adapter)}
	p.Register(newGoAdapter())
	return p
}

// Register adds a language adapter. Later registrations replace earlier
// ones for the same hint.
func (p *Parser) Register(a Adapter) {
	p.adapters[a.Language()] = a
}

// Parse parses source bytes using the adapter for the given language hint.
// An empty hint is inferred from the file extension.
func (p *Parser) Parse(src []byte, filePath, languageHint string) (*types.AstView, error) {
	hint := strings.ToLower(languageHint)
	if hint == "" {
		hint = inferLanguage(filePath)
	}
	adapter, ok := p.adapters[hint]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedLanguage, hint)
	}
	return adapter.Parse(src, filePath)
}

// Supports reports whether a registered adapter handles this file.
func (p *Parser) Supports(filePath string) bool {
	_, ok := p.adapters[inferLanguage(filePath)]
	return ok
}

// inferLanguage guesses a language hint from the file extension.
func inferLanguage(filePath string) string {
	if strings.HasSuffix(filePath, ".go") {
		return "go"
	}
	return ""
}

// goAdapter implements Adapter on top of go/parser and go/ast.
type goAdapter struct{}

func newGoAdapter() *goAdapter {
	return &goAdapter{}
}

func (g *goAdapter) Language() string {
	return "go"
}

// Parse parses Go source and builds the structural tree. Syntax errors are
// recorded in the view; a partial AST still yields partial structure.
func (g *goAdapter) Parse(src []byte, filePath string) (*types.AstView, error) {
	fset := token.NewFileSet()
	view := &types.AstView{
		Language: "go",
		FilePath: filePath,
	}

	file, err := parser.ParseFile(fset, filePath, src, parser.ParseComments)
	if err != nil {
		view.Errors = append(view.Errors, types.ParseError{
			File:    filePath,
			Message: fmt.Sprintf("syntax error: %v", err),
		})
	}
	if file == nil {
		return view, nil
	}

	b := &viewBuilder{
		fset:  fset,
		lines: strings.Split(string(src), "\n"),
	}
	view.Package = b.packageName(file)
	view.Imports = b.imports(file)
	view.Root = b.buildFileNode(file, view.Package, view.Imports)
	return view, nil
}
