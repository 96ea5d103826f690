// Package chunker divides parsed source files into structurally-coherent
// chunks for embedding and retrieval.
//
// The chunker walks the language-agnostic structural tree depth-first
// (file > type > function > field > block) and applies a line window to
// each node:
//
//   - a node that fits the [MinLines, MaxLines] window is emitted whole
//     and not descended into
//   - a node above MaxLines is descended into; its signature joins the
//     context header of the chunks emitted below it
//   - consecutive siblings below MinLines are merged into one chunk
//     instead of emitted as fragments
//
// Function bodies are the exception: they are never split across chunk
// boundaries, even above MaxLines. Only a body above the hard ceiling is
// split, at top-level statement boundaries, into an ordered continuation
// family sharing one logical identity.
//
// # Context Headers
//
// Every emitted chunk carries a materialized context header: the package
// clause, the imports it actually references, and the signatures of any
// enclosing declarations the walk descended through. Headers never repeat
// ancestor bodies.
//
// # Chunk Tree
//
//	c := chunker.New(chunker.DefaultOptions())
//	chunks := c.Chunk(view, projectID)
//
// The first chunk is always the file chunk, the root of the file's chunk
// tree. Every other chunk is parented to its nearest emitted ancestor;
// child spans nest inside their parent's span and siblings never overlap.
package chunker
