package chunker

import (
	"path"
	"strings"

	"codegraph/pkg/types"
)

// headerScope tracks ancestor signatures while descending, so chunks
// emitted below a non-emitted container still carry enough context to be
// read standalone: package clause, applicable imports, and the enclosing
// signatures, never ancestor bodies.
type headerScope struct {
	pkg        string
	imports    []types.Import
	signatures []string
}

func newHeaderScope(view *types.AstView) *headerScope {
	return &headerScope{
		pkg:     view.Package,
		imports: view.Imports,
	}
}

// push adds an enclosing signature for the duration of a descent.
func (h *headerScope) push(signature string) *headerScope {
	if signature != "" {
		h.signatures = append(h.signatures, signature)
	}
	return h
}

func (h *headerScope) pop() {
	if len(h.signatures) > 0 {
		h.signatures = h.signatures[:len(h.signatures)-1]
	}
}

// lineCount estimates the lines the materialized header will add to a
// chunk, so window checks account for it.
func (h *headerScope) lineCount() int {
	n := 0
	if h.pkg != "" {
		n++
	}
	if len(h.imports) > 0 {
		n += len(h.imports) + 2
	}
	n += len(h.signatures)
	return n
}

// materialize renders the header for one chunk. Imports are narrowed to
// those the chunk actually references by qualifier; when the chunk has no
// qualified references, imports are omitted entirely.
func (h *headerScope) materialize(refs []types.Reference) string {
	var b strings.Builder
	if h.pkg != "" {
		b.WriteString("package " + h.pkg + "\n")
	}

	if used := applicableImports(h.imports, refs); len(used) > 0 {
		b.WriteString("\nimport (\n")
		for _, imp := range used {
			if imp.Alias != "" {
				b.WriteString("\t" + imp.Alias + " \"" + imp.Path + "\"\n")
			} else {
				b.WriteString("\t\"" + imp.Path + "\"\n")
			}
		}
		b.WriteString(")\n")
	}

	for _, sig := range h.signatures {
		b.WriteString("\n" + sig + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// applicableImports filters imports down to the ones whose local name
// appears as a reference qualifier in the chunk.
func applicableImports(imports []types.Import, refs []types.Reference) []types.Import {
	if len(imports) == 0 {
		return nil
	}
	qualifiers := make(map[string]bool)
	for _, ref := range refs {
		if ref.Qualifier != "" {
			qualifiers[ref.Qualifier] = true
		}
	}
	if len(qualifiers) == 0 {
		return nil
	}

	var used []types.Import
	for _, imp := range imports {
		local := imp.Alias
		if local == "" {
			local = path.Base(imp.Path)
		}
		if qualifiers[local] {
			used = append(used, imp)
		}
	}
	return used
}
