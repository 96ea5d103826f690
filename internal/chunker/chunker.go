package chunker

import (
	"strings"

	"github.com/rs/zerolog/log"

	"codegraph/pkg/types"
)

const (
	// DefaultMinLines is the lower edge of the chunk window; consecutive
	// smaller siblings are merged up to it instead of emitted as fragments.
	DefaultMinLines = 150

	// DefaultMaxLines is the upper edge of the chunk window; structural
	// nodes above it are descended into rather than emitted whole.
	DefaultMaxLines = 300

	// DefaultFuncSplitCeiling is the hard ceiling above which a single
	// function body is split into a continuation family. Below it a
	// function is always emitted whole, even past DefaultMaxLines.
	DefaultFuncSplitCeiling = 600
)

// Options configure the chunk window.
type Options struct {
	MinLines         int
	MaxLines         int
	FuncSplitCeiling int
}

// DefaultOptions returns the standard chunk window.
func DefaultOptions() Options {
	return Options{
		MinLines:         DefaultMinLines,
		MaxLines:         DefaultMaxLines,
		FuncSplitCeiling: DefaultFuncSplitCeiling,
	}
}

func (o *Options) normalize() {
	if o.MinLines <= 0 {
		o.MinLines = DefaultMinLines
	}
	if o.MaxLines < o.MinLines {
		o.MaxLines = DefaultMaxLines
	}
	if o.FuncSplitCeiling < o.MaxLines {
		o.FuncSplitCeiling = 2 * o.MaxLines
	}
}

// Chunker turns AST views into chunk trees with preserved structural
// boundaries.
type Chunker struct {
	opts Options
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	opts.normalize()
	return &Chunker{opts: opts}
}

// Chunk walks the view's structural tree depth-first and emits the chunk
// set for one file. The file chunk is always emitted as the tree root;
// every other chunk is parented to its nearest emitted ancestor, so spans
// nest and siblings never overlap. Chunk boundaries never cross a
// structural node's boundary except for continuation families.
func (c *Chunker) Chunk(view *types.AstView, projectID string) []*types.CodeChunk {
	if view.Root == nil {
		return nil
	}

	root := c.newChunk(view, projectID, view.Root, types.ChunkFile, "")
	root.ID = types.ChunkID(view.FilePath, "")
	root.ContextHeader = ""
	chunks := []*types.CodeChunk{root}

	if view.Root.Span().Lines() > c.opts.MaxLines {
		header := newHeaderScope(view)
		chunks = append(chunks, c.chunkChildren(view, projectID, root, view.Root.Children(), header)...)
	}
	return chunks
}

// chunkChildren applies the emit/descend/merge window to the children of a
// structural node. parent is the nearest emitted ancestor.
func (c *Chunker) chunkChildren(view *types.AstView, projectID string, parent *types.CodeChunk, children []types.Node, header *headerScope) []*types.CodeChunk {
	var out []*types.CodeChunk

	// Run of consecutive below-window siblings pending a merge.
	var small []types.Node

	flushSmall := func() {
		if len(small) == 0 {
			return
		}
		out = append(out, c.mergeSiblings(view, projectID, parent, small, header)...)
		small = nil
	}

	for _, node := range children {
		if node == nil || node.Span().Lines() <= 0 {
			log.Debug().Str("file", view.FilePath).Msg("skipping malformed structural node")
			continue
		}
		lines := node.Span().Lines() + header.lineCount()

		switch {
		case lines > c.opts.MaxLines:
			flushSmall()
			out = append(out, c.chunkOversized(view, projectID, parent, node, header)...)
		case lines >= c.opts.MinLines:
			flushSmall()
			chunk := c.emit(view, projectID, parent, node, header)
			out = append(out, chunk)
		default:
			small = append(small, node)
			if c.runLines(small)+header.lineCount() >= c.opts.MinLines {
				flushSmall()
			}
		}
	}
	flushSmall()
	return out
}

// chunkOversized handles a node that exceeds the window: functions are
// split only past the hard ceiling, container nodes are descended into.
func (c *Chunker) chunkOversized(view *types.AstView, projectID string, parent *types.CodeChunk, node types.Node, header *headerScope) []*types.CodeChunk {
	if node.Kind() == types.NodeFunction {
		if node.Span().Lines() > c.opts.FuncSplitCeiling {
			return c.splitContinuation(view, projectID, parent, node, header)
		}
		// A function body is never split below the ceiling; emit whole
		// even though it exceeds the window.
		return []*types.CodeChunk{c.emit(view, projectID, parent, node, header)}
	}

	if len(node.Children()) == 0 {
		return []*types.CodeChunk{c.emit(view, projectID, parent, node, header)}
	}

	// Descend: the node itself is not emitted, so its signature moves
	// into the context header of its descendants.
	child := header.push(node.Signature())
	defer header.pop()
	chunks := c.chunkChildren(view, projectID, parent, node.Children(), child)

	// Ancestor refs still need a home so edges are not lost when only
	// descendants are emitted.
	if len(chunks) > 0 {
		chunks[0].CapturedRefs = append(chunks[0].CapturedRefs, node.Refs()...)
	}
	return chunks
}

// mergeSiblings emits one chunk covering a run of consecutive small
// siblings, rather than a fragment chunk per declaration.
func (c *Chunker) mergeSiblings(view *types.AstView, projectID string, parent *types.CodeChunk, run []types.Node, header *headerScope) []*types.CodeChunk {
	if len(run) == 1 {
		return []*types.CodeChunk{c.emit(view, projectID, parent, run[0], header)}
	}

	first, last := run[0], run[len(run)-1]
	span := types.Span{StartLine: first.Span().StartLine, EndLine: last.Span().EndLine}

	name := first.Name()
	if last.Name() != "" && last.Name() != name {
		name = name + ".." + last.Name()
	}

	chunk := &types.CodeChunk{
		ID:            types.ChunkID(view.FilePath, name),
		ProjectID:     projectID,
		FilePath:      view.FilePath,
		Kind:          run[0].Kind().ChunkKind(),
		Name:          name,
		StartLine:     span.StartLine,
		EndLine:       span.EndLine,
		SourceText:    sliceSpanText(view, run, span),
		ContextHeader: header.materialize(refsOf(run)),
		ParentID:      parent.ID,
	}
	for _, node := range run {
		chunk.CapturedRefs = append(chunk.CapturedRefs, node.Refs()...)
	}
	chunk.ComputeContentHash()
	parent.ChildrenIDs = append(parent.ChildrenIDs, chunk.ID)
	return []*types.CodeChunk{chunk}
}

// emit materializes one structural node as a chunk.
func (c *Chunker) emit(view *types.AstView, projectID string, parent *types.CodeChunk, node types.Node, header *headerScope) *types.CodeChunk {
	chunk := c.newChunk(view, projectID, node, node.Kind().ChunkKind(), parent.ID)
	chunk.ContextHeader = header.materialize(node.Refs())
	parent.ChildrenIDs = append(parent.ChildrenIDs, chunk.ID)
	return chunk
}

// newChunk builds the common chunk fields from a structural node.
func (c *Chunker) newChunk(view *types.AstView, projectID string, node types.Node, kind types.ChunkKind, parentID string) *types.CodeChunk {
	chunk := &types.CodeChunk{
		ID:           types.ChunkID(view.FilePath, node.Name()),
		ProjectID:    projectID,
		FilePath:     view.FilePath,
		Kind:         kind,
		Name:         node.Name(),
		StartLine:    node.Span().StartLine,
		EndLine:      node.Span().EndLine,
		SourceText:   node.Text(),
		ParentID:     parentID,
		CapturedRefs: node.Refs(),
	}
	if kind == types.ChunkFile {
		chunk.ID = types.ChunkID(view.FilePath, "")
	}
	chunk.ComputeContentHash()
	return chunk
}

// runLines sums the span of a run of consecutive siblings, including the
// gap lines between them.
func (c *Chunker) runLines(run []types.Node) int {
	if len(run) == 0 {
		return 0
	}
	return run[len(run)-1].Span().EndLine - run[0].Span().StartLine + 1
}

// refsOf collects the references of a sibling run.
func refsOf(run []types.Node) []types.Reference {
	var refs []types.Reference
	for _, node := range run {
		refs = append(refs, node.Refs()...)
	}
	return refs
}

// sliceSpanText extracts the source text for a merged span. The file
// node's text is the whole file, so siblings are sliced from it.
func sliceSpanText(view *types.AstView, run []types.Node, span types.Span) string {
	lines := strings.Split(view.Root.Text(), "\n")
	start := span.StartLine - 1
	end := span.EndLine
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		// Fall back to concatenating node texts when the span does not
		// line up with the file text (malformed input).
		var parts []string
		for _, node := range run {
			parts = append(parts, node.Text())
		}
		return strings.Join(parts, "\n")
	}
	return strings.Join(lines[start:end], "\n")
}
