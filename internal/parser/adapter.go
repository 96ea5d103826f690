package parser

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"codegraph/pkg/types"
)

// astNode is the concrete types.Node produced by the Go adapter.
type astNode struct {
	kind     types.NodeKind
	span     types.Span
	name     string
	sig      string
	text     string
	children []types.Node
	refs     []types.Reference
}

func (n *astNode) Kind() types.NodeKind    { return n.kind }
func (n *astNode) Span() types.Span        { return n.span }
func (n *astNode) Children() []types.Node  { return n.children }
func (n *astNode) Text() string            { return n.text }
func (n *astNode) Name() string            { return n.name }
func (n *astNode) Signature() string       { return n.sig }
func (n *astNode) Refs() []types.Reference { return n.refs }

// viewBuilder translates go/ast declarations into the structural taxonomy.
type viewBuilder struct {
	fset  *token.FileSet
	lines []string
}

func (b *viewBuilder) packageName(file *ast.File) string {
	if file.Name == nil {
		return ""
	}
	return file.Name.Name
}

func (b *viewBuilder) imports(file *ast.File) []types.Import {
	imports := make([]types.Import, 0, len(file.Imports))
	for _, imp := range file.Imports {
		spec := types.Import{Path: strings.Trim(imp.Path.Value, `"`)}
		if imp.Name != nil {
			spec.Alias = imp.Name.Name
		}
		imports = append(imports, spec)
	}
	return imports
}

// buildFileNode builds the root file node with one child per top-level
// declaration. Malformed declarations are skipped per-node, never fatally.
func (b *viewBuilder) buildFileNode(file *ast.File, pkg string, imports []types.Import) types.Node {
	root := &astNode{
		kind: types.NodeFile,
		name: pkg,
		sig:  "package " + pkg,
		span: types.Span{StartLine: 1, EndLine: len(b.lines)},
		text: strings.Join(b.lines, "\n"),
	}
	for _, imp := range imports {
		root.refs = append(root.refs, types.Reference{
			Name: imp.Path,
			Kind: types.RefImport,
		})
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if node := b.buildFuncNode(d); node != nil {
				root.children = append(root.children, node)
			}
		case *ast.GenDecl:
			root.children = append(root.children, b.buildGenDeclNodes(d)...)
		}
	}
	return root
}

// buildFuncNode builds a function or method node. Top-level statements of
// the body become block children so the chunker can split an oversized
// body at statement boundaries.
func (b *viewBuilder) buildFuncNode(d *ast.FuncDecl) types.Node {
	if d.Name == nil {
		return nil
	}
	name := d.Name.Name
	receiver := ""
	if d.Recv != nil && len(d.Recv.List) > 0 {
		receiver = receiverTypeName(d.Recv.List[0].Type)
		if receiver != "" {
			name = receiver + "." + name
		}
	}

	node := &astNode{
		kind: types.NodeFunction,
		name: name,
		sig:  b.funcSignature(d),
		span: b.spanOf(d),
	}
	node.text = b.sliceText(node.span)

	// The receiver ties a method back to its type chunk.
	if receiver != "" {
		node.refs = append(node.refs, types.Reference{Name: receiver, Kind: types.RefType})
	}
	node.refs = append(node.refs, b.collectTypeRefs(d.Type)...)
	if d.Body != nil {
		node.refs = append(node.refs, b.collectBodyRefs(d.Body)...)
		for i, stmt := range d.Body.List {
			span := b.spanOf(stmt)
			node.children = append(node.children, &astNode{
				kind: types.NodeBlock,
				name: fmt.Sprintf("%s.stmt%d", name, i+1),
				span: span,
				text: b.sliceText(span),
			})
		}
	}
	return node
}

// buildGenDeclNodes builds nodes for type, const, and var declarations.
func (b *viewBuilder) buildGenDeclNodes(d *ast.GenDecl) []types.Node {
	var nodes []types.Node
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			if node := b.buildTypeNode(s, d); node != nil {
				nodes = append(nodes, node)
			}
		case *ast.ValueSpec:
			if node := b.buildValueNode(s, d); node != nil {
				nodes = append(nodes, node)
			}
		}
	}
	return nodes
}

// buildTypeNode builds a type declaration node with field children.
// Embedded types are captured as supertype references.
func (b *viewBuilder) buildTypeNode(s *ast.TypeSpec, decl *ast.GenDecl) types.Node {
	if s.Name == nil {
		return nil
	}
	span := b.spanOf(decl)
	if len(decl.Specs) > 1 {
		span = b.spanOf(s)
	}
	node := &astNode{
		kind: types.NodeType,
		name: s.Name.Name,
		span: span,
	}
	node.text = b.sliceText(node.span)

	switch t := s.Type.(type) {
	case *ast.StructType:
		node.sig = fmt.Sprintf("type %s struct", s.Name.Name)
		b.addStructMembers(node, s.Name.Name, t)
	case *ast.InterfaceType:
		node.sig = fmt.Sprintf("type %s interface", s.Name.Name)
		b.addInterfaceMembers(node, t)
	default:
		node.sig = fmt.Sprintf("type %s %s", s.Name.Name, exprString(s.Type))
		if name, qual := typeRefName(s.Type); name != "" {
			node.refs = append(node.refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefType})
		}
	}
	return node
}

// addStructMembers appends field children and captures references: named
// field types as type references, embedded fields as supertypes.
func (b *viewBuilder) addStructMembers(node *astNode, typeName string, t *ast.StructType) {
	if t.Fields == nil {
		return
	}
	for _, field := range t.Fields.List {
		name, qual := typeRefName(field.Type)
		if len(field.Names) == 0 {
			// Embedded field: inheritance-like relation.
			if name != "" {
				node.refs = append(node.refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefSupertype})
			}
			continue
		}
		if name != "" {
			node.refs = append(node.refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefType})
		}
		span := b.spanOf(field)
		node.children = append(node.children, &astNode{
			kind: types.NodeField,
			name: typeName + "." + field.Names[0].Name,
			sig:  fmt.Sprintf("%s %s", field.Names[0].Name, exprString(field.Type)),
			span: span,
			text: b.sliceText(span),
		})
	}
}

// addInterfaceMembers captures embedded interfaces as supertypes and method
// signature types as type references.
func (b *viewBuilder) addInterfaceMembers(node *astNode, t *ast.InterfaceType) {
	if t.Methods == nil {
		return
	}
	for _, m := range t.Methods.List {
		if len(m.Names) == 0 {
			if name, qual := typeRefName(m.Type); name != "" {
				node.refs = append(node.refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefSupertype})
			}
			continue
		}
		if ft, ok := m.Type.(*ast.FuncType); ok {
			node.refs = append(node.refs, b.collectTypeRefs(ft)...)
		}
	}
}

// buildValueNode builds a node for one const or var spec.
func (b *viewBuilder) buildValueNode(s *ast.ValueSpec, decl *ast.GenDecl) types.Node {
	if len(s.Names) == 0 {
		return nil
	}
	span := b.spanOf(s)
	if len(decl.Specs) == 1 {
		span = b.spanOf(decl)
	}
	node := &astNode{
		kind: types.NodeField,
		name: s.Names[0].Name,
		sig:  fmt.Sprintf("%s %s", decl.Tok, s.Names[0].Name),
		span: span,
	}
	node.text = b.sliceText(span)
	if s.Type != nil {
		if name, qual := typeRefName(s.Type); name != "" {
			node.refs = append(node.refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefType})
		}
	}
	return node
}

// collectBodyRefs walks a function body and captures call targets and
// composite literal types.
func (b *viewBuilder) collectBodyRefs(body *ast.BlockStmt) []types.Reference {
	var refs []types.Reference
	ast.Inspect(body, func(n ast.Node) bool {
		switch e := n.(type) {
		case *ast.CallExpr:
			switch fun := e.Fun.(type) {
			case *ast.Ident:
				refs = append(refs, types.Reference{Name: fun.Name, Kind: types.RefCall})
			case *ast.SelectorExpr:
				qual := ""
				if x, ok := fun.X.(*ast.Ident); ok {
					qual = x.Name
				}
				refs = append(refs, types.Reference{Name: fun.Sel.Name, Qualifier: qual, Kind: types.RefCall})
			}
		case *ast.CompositeLit:
			if name, qual := typeRefName(e.Type); name != "" {
				refs = append(refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefType})
			}
		}
		return true
	})
	return refs
}

// collectTypeRefs captures parameter and result types of a signature.
func (b *viewBuilder) collectTypeRefs(ft *ast.FuncType) []types.Reference {
	var refs []types.Reference
	capture := func(list *ast.FieldList) {
		if list == nil {
			return
		}
		for _, field := range list.List {
			if name, qual := typeRefName(field.Type); name != "" {
				refs = append(refs, types.Reference{Name: name, Qualifier: qual, Kind: types.RefType})
			}
		}
	}
	capture(ft.Params)
	capture(ft.Results)
	return refs
}

// spanOf converts a node's token positions to a line span.
func (b *viewBuilder) spanOf(n ast.Node) types.Span {
	return types.Span{
		StartLine: b.fset.Position(n.Pos()).Line,
		EndLine:   b.fset.Position(n.End()).Line,
	}
}

// sliceText extracts the source text covered by a span.
func (b *viewBuilder) sliceText(span types.Span) string {
	start := span.StartLine - 1
	end := span.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(b.lines) {
		end = len(b.lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(b.lines[start:end], "\n")
}

// funcSignature builds a one-line signature for context headers.
func (b *viewBuilder) funcSignature(d *ast.FuncDecl) string {
	var sig strings.Builder
	sig.WriteString("func ")
	if d.Recv != nil && len(d.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(d.Recv.List[0].Type))
		sig.WriteString(") ")
	}
	sig.WriteString(d.Name.Name)
	sig.WriteString("(")
	if d.Type.Params != nil {
		sig.WriteString(fieldListString(d.Type.Params))
	}
	sig.WriteString(")")
	if d.Type.Results != nil {
		results := fieldListString(d.Type.Results)
		if results != "" {
			if d.Type.Results.NumFields() > 1 {
				sig.WriteString(" (" + results + ")")
			} else {
				sig.WriteString(" " + results)
			}
		}
	}
	return sig.String()
}

// receiverTypeName extracts the bare type name from a method receiver.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr: // generic receiver
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

// typeRefName flattens a type expression to (name, qualifier), stripping
// pointers, slices, maps, and channels down to the named element type.
func typeRefName(expr ast.Expr) (name, qualifier string) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, ""
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return t.Sel.Name, x.Name
		}
		return t.Sel.Name, ""
	case *ast.StarExpr:
		return typeRefName(t.X)
	case *ast.ArrayType:
		return typeRefName(t.Elt)
	case *ast.MapType:
		return typeRefName(t.Value)
	case *ast.ChanType:
		return typeRefName(t.Value)
	case *ast.IndexExpr:
		return typeRefName(t.X)
	case *ast.Ellipsis:
		return typeRefName(t.Elt)
	}
	return "", ""
}

// fieldListString converts a field list to a string representation.
func fieldListString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}
	var parts []string
	for _, field := range fieldList.List {
		typeStr := exprString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}
	return strings.Join(parts, ", ")
}

// exprString converts a type expression to a compact string.
func exprString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprString(t.Key), exprString(t.Value))
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	default:
		return "..."
	}
}
