package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"semdex/internal/contextutil"
	"semdex/internal/llm"
	"semdex/internal/source"
	"semdex/internal/storage"
	"semdex/internal/vectorstore"
)

// ErrIndexInProgress is returned when a reindex run is requested while another
// one is active. Concurrent runs against the same store are not supported.
var ErrIndexInProgress = errors.New("indexing already in progress")

// Source enumerates candidate documents, honouring excluded path prefixes.
type Source interface {
	Scan(ctx context.Context, excluded []string) ([]source.File, error)
}

// Options tunes a Pipeline.
type Options struct {
	ExcludedDirs   []string // Path prefixes skipped during discovery
	PublicDirs     []string // Path prefixes whose documents are flagged exposable
	MaxChunkTokens int      // Per-chunk token budget
	Concurrency    int      // Max documents embedded in flight
}

// Summary reports the outcome of one reindex run.
type Summary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Pipeline orchestrates indexing of corpus documents into SQLite and the vector store.
type Pipeline struct {
	src        Source
	docs       storage.DocumentStore
	chunks     storage.ChunkStore
	embedder   llm.Embedder
	vectors    vectorstore.VectorStore
	collection string
	chunker    *Chunker
	opts       Options

	indexing sync.Mutex // single-flight guard for reindex runs
	tracker  statusTracker
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	src Source,
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder llm.Embedder,
	vectors vectorstore.VectorStore,
	collection string,
	opts Options,
) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		src:        src,
		docs:       docs,
		chunks:     chunks,
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		chunker:    NewChunker(opts.MaxChunkTokens),
		opts:       opts,
	}
}

// Status returns the current index status.
func (p *Pipeline) Status() Status {
	return p.tracker.snapshot()
}

// Reindex reconciles the stores with the document source: new and changed
// documents are chunked, embedded and replaced; vanished documents are deleted;
// unchanged documents are skipped without any embedding call. A failure on one
// document is recorded in the summary and does not abort the run. Only one run
// may be active at a time; a second request fails with ErrIndexInProgress.
// Cancellation takes effect between documents, never inside a document's write.
func (p *Pipeline) Reindex(ctx context.Context) (Summary, error) {
	if !p.indexing.TryLock() {
		return Summary{}, ErrIndexInProgress
	}
	defer p.indexing.Unlock()

	p.tracker.begin()
	summary, err := p.reindex(ctx)
	p.tracker.finish(summary, err)
	return summary, err
}

func (p *Pipeline) reindex(ctx context.Context) (Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)
	var summary Summary

	files, err := p.src.Scan(ctx, p.opts.ExcludedDirs)
	if err != nil {
		return summary, fmt.Errorf("failed to scan corpus: %w", err)
	}

	stored, err := p.docs.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list stored documents: %w", err)
	}
	storedByPath := make(map[string]storage.DocumentRecord, len(stored))
	for _, doc := range stored {
		storedByPath[doc.Path] = doc
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}

	logger.InfoContext(ctx, "reindex started", "candidates", len(files), "stored", len(stored))

	// Delete documents whose path no longer exists in the source.
	for _, doc := range stored {
		if present[doc.Path] {
			continue
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		if err := p.deleteDocument(ctx, doc); err != nil {
			summary.Failed++
			logger.ErrorContext(ctx, "failed to delete document", "path", doc.Path, "error", err)
			continue
		}
		summary.Deleted++
	}

	// Index new and changed documents with bounded concurrency. Each document's
	// own replace is atomic; failures are recorded, never propagated.
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)

	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		var existing *storage.DocumentRecord
		if doc, ok := storedByPath[f.Path]; ok {
			docCopy := doc
			existing = &docCopy
		}
		g.Go(func() error {
			outcome, err := p.indexDocument(ctx, f, existing)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				logger.ErrorContext(ctx, "failed to index document", "path", f.Path, "error", err)
				return nil
			}
			switch outcome {
			case outcomeCreated:
				summary.Created++
			case outcomeUpdated:
				summary.Updated++
			case outcomeUnchanged:
				summary.Unchanged++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	logger.InfoContext(ctx, "reindex completed",
		"created", summary.Created,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
	)
	return summary, nil
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

// indexDocument diffs one candidate against its stored state and replaces its
// chunk set when the content hash changed. A visibility-only change updates
// the stored flag without re-embedding.
func (p *Pipeline) indexDocument(ctx context.Context, f source.File, existing *storage.DocumentRecord) (outcome, error) {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	public := source.MatchesPrefix(f.Path, p.opts.PublicDirs)

	if existing != nil && existing.Hash == hash {
		if existing.Public == public {
			logger.DebugContext(ctx, "skipping unchanged document", "path", f.Path)
			return outcomeUnchanged, nil
		}
		if err := p.docs.UpdateVisibility(ctx, existing.ID, public); err != nil {
			return 0, err
		}
		logger.InfoContext(ctx, "updated document visibility", "path", f.Path, "public", public)
		return outcomeUpdated, nil
	}

	chunks := p.chunker.Chunk(content)

	var vectors [][]float32
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}
		vectors, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors))
		}
	}

	docID := uuid.New().String()
	result := outcomeCreated
	if existing != nil {
		docID = existing.ID
		result = outcomeUpdated

		oldIDs, err := p.chunks.ListIDsByDocument(ctx, docID)
		if err != nil {
			return 0, fmt.Errorf("failed to list old chunk IDs: %w", err)
		}
		if err := p.vectors.Delete(ctx, p.collection, oldIDs); err != nil {
			// The new upsert below supersedes old points; log and continue.
			logger.WarnContext(ctx, "failed to delete old points", "path", f.Path, "count", len(oldIDs), "error", err)
		}
	}

	records := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		chunkID := uuid.New().String()
		records[i] = &storage.ChunkRecord{
			ID:         chunkID,
			DocumentID: docID,
			ChunkIndex: chunk.Index,
			Section:    chunk.Section,
			Text:       chunk.Text,
			TokenCount: chunk.TokenCount,
		}
		points[i] = vectorstore.Point{
			ID:     chunkID,
			Vector: vectors[i],
			Payload: map[string]any{
				"document_id": docID,
				"path":        f.Path,
				"section":     chunk.Section,
				"chunk_index": chunk.Index,
			},
		}
	}

	doc := &storage.DocumentRecord{
		ID:     docID,
		Path:   f.Path,
		Hash:   hash,
		Public: public,
	}
	if err := p.docs.Replace(ctx, doc, records); err != nil {
		return 0, fmt.Errorf("failed to replace document: %w", err)
	}
	if err := p.vectors.Upsert(ctx, p.collection, points); err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "indexed document", "path", f.Path, "chunks", len(chunks), "public", public)
	return result, nil
}

// deleteDocument removes a document's points from the vector store and its rows
// from the database.
func (p *Pipeline) deleteDocument(ctx context.Context, doc storage.DocumentRecord) error {
	ids, err := p.chunks.ListIDsByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list chunk IDs: %w", err)
	}
	if err := p.vectors.Delete(ctx, p.collection, ids); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	if err := p.docs.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Clear deletes every stored document and its points. Used by force reindexing.
func (p *Pipeline) Clear(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	stored, err := p.docs.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored documents: %w", err)
	}
	for _, doc := range stored {
		if err := p.deleteDocument(ctx, doc); err != nil {
			return err
		}
	}
	logger.InfoContext(ctx, "cleared indexed data", "documents", len(stored))
	return nil
}
