package chunker

import (
	"strings"

	"codegraph/pkg/types"
)

// splitContinuation splits a function body above the hard ceiling into an
// ordered continuation family. Splits happen only at top-level statement
// boundaries (the function's block children), never inside an open block.
// The first part keeps the function's identity and ID; later parts carry
// "#partN" suffixes and parent back to the first part, so the family shares
// one logical identity.
func (c *Chunker) splitContinuation(view *types.AstView, projectID string, parent *types.CodeChunk, node types.Node, header *headerScope) []*types.CodeChunk {
	stmts := node.Children()
	if len(stmts) == 0 {
		// No statement boundaries to split at; emit whole.
		return []*types.CodeChunk{c.emit(view, projectID, parent, node, header)}
	}

	windows := c.statementWindows(node, stmts)
	if len(windows) == 1 {
		return []*types.CodeChunk{c.emit(view, projectID, parent, node, header)}
	}

	baseID := types.ChunkID(view.FilePath, node.Name())
	headerText := header.materialize(node.Refs())
	fileLines := strings.Split(view.Root.Text(), "\n")

	chunks := make([]*types.CodeChunk, 0, len(windows))
	head := &types.CodeChunk{
		ID:            baseID,
		ProjectID:     projectID,
		FilePath:      view.FilePath,
		Kind:          types.ChunkFunction,
		Name:          node.Name(),
		StartLine:     windows[0].StartLine,
		EndLine:       windows[0].EndLine,
		SourceText:    sliceLines(fileLines, windows[0]),
		ContextHeader: headerText,
		ParentID:      parent.ID,
		CapturedRefs:  node.Refs(),
	}
	head.ComputeContentHash()
	parent.ChildrenIDs = append(parent.ChildrenIDs, head.ID)
	chunks = append(chunks, head)

	// Later parts are siblings of the head under the same parent: their
	// spans fall outside the head's range, so parenting them to the head
	// would break span nesting. The shared base ID in "#partN" keeps the
	// family's logical identity.
	for i := 1; i < len(windows); i++ {
		part := &types.CodeChunk{
			ID:            types.ContinuationID(baseID, i+1),
			ProjectID:     projectID,
			FilePath:      view.FilePath,
			Kind:          types.ChunkContinuation,
			Name:          node.Name(),
			StartLine:     windows[i].StartLine,
			EndLine:       windows[i].EndLine,
			SourceText:    sliceLines(fileLines, windows[i]),
			ContextHeader: headerText + "\n" + node.Signature() + " // continued",
			ParentID:      parent.ID,
		}
		part.ComputeContentHash()
		parent.ChildrenIDs = append(parent.ChildrenIDs, part.ID)
		chunks = append(chunks, part)
	}
	return chunks
}

// statementWindows packs consecutive top-level statements into spans of at
// most MaxLines. The first window starts at the function's signature line
// and the last one runs through its closing line, so the family covers the
// function exactly.
func (c *Chunker) statementWindows(node types.Node, stmts []types.Node) []types.Span {
	var windows []types.Span
	cur := types.Span{StartLine: node.Span().StartLine, EndLine: node.Span().StartLine}

	for _, stmt := range stmts {
		end := stmt.Span().EndLine
		if end-cur.StartLine+1 > c.opts.MaxLines && cur.EndLine > cur.StartLine {
			windows = append(windows, cur)
			cur = types.Span{StartLine: cur.EndLine + 1, EndLine: end}
			continue
		}
		cur.EndLine = end
	}
	cur.EndLine = node.Span().EndLine
	windows = append(windows, cur)
	return windows
}

// sliceLines extracts the text for one window.
func sliceLines(lines []string, span types.Span) string {
	start := span.StartLine - 1
	end := span.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
