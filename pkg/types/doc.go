// Package types provides shared type definitions for the codegraph engine.
//
// This package defines the domain types used across components: the
// language-agnostic AST view, code chunks, dependency edges, retrieval
// results, and the failure taxonomy.
//
// # Core Types
//
// CodeChunk is a structurally-coherent unit of source code with a context
// header that makes it readable on its own:
//
//	chunk := &types.CodeChunk{
//	    ID:            "internal/auth/token.go:Manager.Verify",
//	    Kind:          types.ChunkFunction,
//	    SourceText:    methodBody,
//	    ContextHeader: header,
//	}
//
// Chunks form a tree per file: the file chunk is the root, every other
// chunk has exactly one parent, child spans nest inside their parent's
// span, and sibling spans never overlap.
//
// DependencyEdge is a typed, weighted, directed relation between two
// chunks. Edge types carry base weights used during score propagation:
//
//	types.EdgeExtends.BaseWeight() // 1.0
//	types.EdgeCalls.BaseWeight()   // 0.8
//	types.EdgeTypeRef.BaseWeight() // 0.6
//	types.EdgeImport.BaseWeight()  // 0.3
//
// References that do not resolve inside the project produce edges to the
// ExternalTarget sentinel instead of being dropped.
//
// # Parser Adapter Boundary
//
// Node is the capability interface per-language adapters translate their
// grammar nodes into (file > type > function > field > block). The chunker
// and graph builder only consume this view, which keeps them
// language-agnostic.
//
// # Validation
//
// Domain types implement validation methods to ensure data integrity:
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal().Err(err).Msg("invalid chunk")
//	}
package types
