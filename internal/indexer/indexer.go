package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"codegraph/internal/chunker"
	"codegraph/internal/embedder"
	"codegraph/internal/graph"
	"codegraph/internal/parser"
	"codegraph/internal/storage"
	"codegraph/internal/symtab"
	"codegraph/pkg/types"
)

// ErrIndexInProgress is returned when a run is already active for this
// Indexer.
var ErrIndexInProgress = errors.New("indexing already in progress")

// Indexer coordinates the pipeline: discover, parse+chunk+embed per file
// in parallel, merge symbols into the frozen table, then resolve edges.
type Indexer struct {
	parser   *parser.Parser
	chunker  *chunker.Chunker
	storage  storage.Storage
	embedder embedder.Embedder

	workers int
	lock    IndexLock
}

// Config controls one indexing run.
type Config struct {
	Workers       int  // concurrent file workers (default: runtime.NumCPU())
	IncludeTests  bool // index _test files
	IncludeVendor bool // descend into vendor/
	Force         bool // re-index unchanged files
}

// New creates an Indexer over the given store and embedder.
func New(store storage.Storage, emb embedder.Embedder) *Indexer {
	return &Indexer{
		parser:   parser.New(),
		chunker:  chunker.New(chunker.Options{}),
		storage:  store,
		embedder: emb,
		workers:  runtime.NumCPU(),
	}
}

// SetChunkWindow replaces the chunk window used by subsequent runs. Not
// safe to call while an indexing run is in flight.
func (idx *Indexer) SetChunkWindow(opts chunker.Options) {
	idx.chunker = chunker.New(opts)
}

// fileResult carries one parsed file's output from the parallel phase into
// the merge and edge-resolution phases.
type fileResult struct {
	fileID  int64
	relPath string
	pkg     string
	imports []types.Import
	chunks  []*types.CodeChunk
}

// IndexProject runs a full or incremental indexing pass over rootPath.
// Per-file failures are collected into the report, never fatal; only
// storage-level errors abort the run.
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*types.IndexReport, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{IncludeTests: true}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	idx.workers = config.Workers

	startTime := time.Now()
	report := &types.IndexReport{
		RunID: uuid.NewString(),
	}

	project, err := idx.getOrCreateProject(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}
	report.ProjectID = project.RootPath

	files, err := idx.discoverFiles(rootPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	log.Info().Str("run_id", report.RunID).Str("root", rootPath).
		Int("files", len(files)).Msg("indexing started")

	builder := symtab.NewBuilder()
	results, err := idx.processFiles(ctx, project, files, config, builder, report)
	if err != nil {
		return nil, err
	}

	if err := idx.removeDeletedFiles(ctx, project, files, builder, report); err != nil {
		return nil, err
	}

	// Merge phase ends here: the table freezes and edge resolution reads
	// it without locks.
	table := builder.Freeze()

	if err := idx.buildEdges(ctx, project, table, results, report); err != nil {
		return nil, err
	}

	if pruned, err := idx.storage.PruneDanglingEdges(ctx, project.ID); err != nil {
		log.Warn().Err(err).Msg("dangling edge sweep failed")
	} else if pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("removed dangling edges")
	}

	if err := idx.updateProjectStats(ctx, project, report.RunID); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	report.Duration = time.Since(startTime)
	log.Info().Str("run_id", report.RunID).
		Int("indexed", report.FilesIndexed).Int("skipped", report.FilesSkipped).
		Int("failed", report.FilesFailed).Int("removed", report.FilesRemoved).
		Int("chunks", report.ChunksCreated).Int("edges", report.EdgesCreated).
		Dur("duration", report.Duration).Msg("indexing finished")
	return report, nil
}

// GetLastSyncTime reports when the project was last indexed.
func (idx *Indexer) GetLastSyncTime(ctx context.Context, rootPath string) (time.Time, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err != nil {
		if err == storage.ErrNotFound {
			return time.Time{}, types.ErrProjectNotIndexed
		}
		return time.Time{}, err
	}
	return project.LastIndexedAt, nil
}

func (idx *Indexer) getOrCreateProject(ctx context.Context, rootPath string) (*storage.Project, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == nil {
		return project, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	project = &storage.Project{
		RootPath:     rootPath,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if module, err := readModuleName(filepath.Join(rootPath, "go.mod")); err == nil {
		project.ModuleName = module
	}

	if err := idx.storage.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// discoverFiles walks the tree for indexable sources, honoring .gitignore
// at the project root.
func (idx *Indexer) discoverFiles(rootPath string, config *Config) ([]string, error) {
	var matcher *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(rootPath, ".gitignore")); err == nil {
		matcher = gi
	}

	var files []string
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			return relErr
		}

		if info.IsDir() {
			if path == rootPath {
				return nil
			}
			if !config.IncludeVendor && info.Name() == "vendor" {
				return filepath.SkipDir
			}
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !idx.parser.Supports(path) {
			return nil
		}
		if !config.IncludeTests && strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// processFiles runs the parallel parse+chunk+embed phase. Every discovered
// file, changed or not, registers its symbols with the builder so the
// frozen table covers the whole project.
func (idx *Indexer) processFiles(ctx context.Context, project *storage.Project, files []string,
	config *Config, builder *symtab.Builder, report *types.IndexReport) ([]*fileResult, error) {

	var (
		indexed int32
		skipped int32
		failed  int32
		chunks  int32
	)
	var mu sync.Mutex // guards report.Failures and results
	results := make([]*fileResult, 0, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, filePath := range files {
		g.Go(func() error {
			res, failure, err := idx.processFile(gctx, project, filePath, config, builder)
			if err != nil {
				return err // storage-level, aborts the run
			}
			if failure != nil {
				mu.Lock()
				report.Failures = append(report.Failures, *failure)
				mu.Unlock()
				// A file whose chunks landed but whose embeddings did not
				// still counts as indexed; a parse or chunk failure does not.
				if res == nil {
					atomic.AddInt32(&failed, 1)
					return nil
				}
			}
			if res == nil {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&indexed, 1)
			atomic.AddInt32(&chunks, int32(len(res.chunks)))
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.FilesIndexed = int(indexed)
	report.FilesSkipped = int(skipped)
	report.FilesFailed = int(failed)
	report.ChunksCreated = int(chunks)
	return results, nil
}

// processFile handles one file. Returns (nil, nil, nil) when the file is
// unchanged and was skipped, (nil, failure, nil) for a recoverable per-file
// failure, and a non-nil error only for storage problems.
func (idx *Indexer) processFile(ctx context.Context, project *storage.Project, filePath string,
	config *Config, builder *symtab.Builder) (*fileResult, *types.FileFailure, error) {

	relPath, err := filepath.Rel(project.RootPath, filePath)
	if err != nil {
		return nil, nil, err
	}

	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &types.FileFailure{FilePath: relPath, Stage: "parse", Message: err.Error()}, nil
	}
	hash := sha256.Sum256(src)

	existing, err := idx.storage.GetFile(ctx, project.ID, relPath)
	if err != nil && err != storage.ErrNotFound {
		return nil, nil, err
	}
	if existing != nil && existing.ContentHash == hash && !config.Force {
		// Unchanged. Chunks and edges stay, but the symbol table still
		// needs this file's names for cross-file resolution.
		rows, err := idx.storage.ListChunksByFile(ctx, existing.ID)
		if err != nil {
			return nil, nil, err
		}
		stored := make([]*types.CodeChunk, len(rows))
		for i, row := range rows {
			c := row.ToCodeChunk(project.RootPath)
			stored[i] = &c
		}
		builder.ReplaceFile(relPath, existing.PackageName, stored)
		return nil, nil, nil
	}

	view, err := idx.parser.Parse(src, relPath, "")
	if err != nil {
		return nil, &types.FileFailure{FilePath: relPath, Stage: "parse", Message: err.Error()}, nil
	}
	if view.HasErrors() {
		// go/parser usually recovers a partial AST, but a file with syntax
		// errors still counts failed: its chunk identities would churn on
		// every edit until the file parses clean again.
		return nil, &types.FileFailure{FilePath: relPath, Stage: "parse", Message: view.Errors[0].Message}, nil
	}

	fileChunks := idx.chunker.Chunk(view, project.RootPath)
	if len(fileChunks) == 0 {
		return nil, &types.FileFailure{FilePath: relPath, Stage: "chunk", Message: "no structure recovered"}, nil
	}

	embeddings, embFailure := idx.embedChunks(ctx, fileChunks)
	// An embed failure still persists the chunks; the vector index just
	// won't surface them until the next run.

	fileID, err := idx.persistFile(ctx, project, relPath, hash, int64(len(src)), view, fileChunks, embeddings)
	if err != nil {
		return nil, nil, err
	}

	builder.ReplaceFile(relPath, view.Package, fileChunks)

	res := &fileResult{
		fileID:  fileID,
		relPath: relPath,
		pkg:     view.Package,
		imports: view.Imports,
		chunks:  fileChunks,
	}
	if embFailure != nil {
		embFailure.FilePath = relPath
		return res, embFailure, nil // chunks landed, vectors did not
	}
	return res, nil, nil
}

// embedChunks embeds chunk texts in provider-sized batches.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*types.CodeChunk) (map[string]*embedder.Embedding, *types.FileFailure) {
	if idx.embedder == nil {
		return nil, &types.FileFailure{Stage: "embed", Message: "no embedder configured"}
	}

	out := make(map[string]*embedder.Embedding, len(chunks))
	for start := 0; start < len(chunks); start += embedder.DefaultBatchSize {
		end := start + embedder.DefaultBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.EmbeddingText()
		}
		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return out, &types.FileFailure{Stage: "embed", Message: err.Error()}
		}
		for i, emb := range resp.Embeddings {
			out[batch[i].ID] = emb
			batch[i].Embedding = emb.Vector
		}
	}
	return out, nil
}

// persistFile writes the file row, chunks, and embeddings in one
// transaction, replacing whatever an earlier index run left behind.
func (idx *Indexer) persistFile(ctx context.Context, project *storage.Project, relPath string,
	hash [32]byte, size int64, view *types.AstView, chunks []*types.CodeChunk,
	embeddings map[string]*embedder.Embedding) (int64, error) {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	file := &storage.File{
		ProjectID:   project.ID,
		FilePath:    relPath,
		PackageName: view.Package,
		ContentHash: hash,
		SizeBytes:   size,
	}
	if err := tx.UpsertFile(ctx, file); err != nil {
		return 0, err
	}

	// Chunk identities can shift when the file changes shape, so old rows
	// go first. Cross-file edges pointing here survive as long as the
	// identities re-appear.
	if err := tx.DeleteEmbeddingsByFile(ctx, file.ID); err != nil {
		return 0, err
	}
	if err := tx.DeleteChunksByFile(ctx, file.ID); err != nil {
		return 0, err
	}

	for _, chunk := range chunks {
		if err := tx.UpsertChunk(ctx, storage.FromCodeChunk(chunk, project.ID, file.ID)); err != nil {
			return 0, fmt.Errorf("failed to store chunk %s: %w", chunk.ID, err)
		}
		if emb, ok := embeddings[chunk.ID]; ok {
			if err := tx.UpsertEmbedding(ctx, &storage.Embedding{
				ProjectID: project.ID,
				ChunkID:   chunk.ID,
				Vector:    storage.SerializeVector(emb.Vector),
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			}); err != nil {
				return 0, fmt.Errorf("failed to store embedding for %s: %w", chunk.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit file %s: %w", relPath, err)
	}
	return file.ID, nil
}

// removeDeletedFiles drops index data for files that vanished from disk.
func (idx *Indexer) removeDeletedFiles(ctx context.Context, project *storage.Project,
	discovered []string, builder *symtab.Builder, report *types.IndexReport) error {

	onDisk := make(map[string]struct{}, len(discovered))
	for _, f := range discovered {
		rel, err := filepath.Rel(project.RootPath, f)
		if err != nil {
			return err
		}
		onDisk[rel] = struct{}{}
	}

	tracked, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return err
	}

	for _, file := range tracked {
		if _, ok := onDisk[file.FilePath]; ok {
			continue
		}

		tx, err := idx.storage.BeginTx(ctx)
		if err != nil {
			return err
		}
		err = func() error {
			defer func() { _ = tx.Rollback() }()
			if err := tx.DeleteEmbeddingsByFile(ctx, file.ID); err != nil {
				return err
			}
			if err := tx.DeleteEdgesByFile(ctx, file.ID); err != nil {
				return err
			}
			if err := tx.DeleteChunksByFile(ctx, file.ID); err != nil {
				return err
			}
			if err := tx.DeleteFile(ctx, file.ID); err != nil {
				return err
			}
			return tx.Commit()
		}()
		if err != nil {
			return fmt.Errorf("failed to remove deleted file %s: %w", file.FilePath, err)
		}

		builder.RemoveFile(file.FilePath)
		report.FilesRemoved++
		log.Debug().Str("file", file.FilePath).Msg("removed deleted file from index")
	}
	return nil
}

// buildEdges is pass 2: resolve references against the frozen table,
// parallel per file since the table is read-only now.
func (idx *Indexer) buildEdges(ctx context.Context, project *storage.Project,
	table *symtab.Table, results []*fileResult, report *types.IndexReport) error {

	edgeBuilder := graph.NewBuilder(table)
	var edgeCount int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, res := range results {
		g.Go(func() error {
			edges := edgeBuilder.BuildEdges(project.RootPath, res.pkg, res.imports, res.chunks)

			tx, err := idx.storage.BeginTx(gctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			if err := tx.DeleteEdgesByFile(gctx, res.fileID); err != nil {
				return err
			}
			if err := tx.InsertEdges(gctx, project.ID, res.fileID, edges); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit edges for %s: %w", res.relPath, err)
			}
			atomic.AddInt32(&edgeCount, int32(len(edges)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report.EdgesCreated = int(edgeCount)
	return nil
}

func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project, runID string) error {
	files, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return err
	}
	ids, err := idx.storage.ListChunkIDs(ctx, project.ID)
	if err != nil {
		return err
	}

	project.TotalFiles = len(files)
	project.TotalChunks = len(ids)
	project.LastRunID = runID
	project.LastIndexedAt = time.Now()
	return idx.storage.UpdateProject(ctx, project)
}

// readModuleName extracts the module path from a go.mod file.
func readModuleName(goModPath string) (string, error) {
	content, err := os.ReadFile(goModPath)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module")), nil
		}
	}
	return "", fmt.Errorf("no module directive in %s", goModPath)
}
