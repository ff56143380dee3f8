// Package search embeds queries and retrieves the closest chunks from the vector store.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"semdex/internal/contextutil"
	"semdex/internal/llm"
	"semdex/internal/storage"
	"semdex/internal/vectorstore"
)

const (
	// DefaultTopK is used when the caller requests zero or fewer results.
	DefaultTopK = 10
	// MaxTopK caps a single query's result count.
	MaxTopK = 50
)

// Result is one retrieved chunk with its owning document summary. Transient,
// never persisted.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Path       string  `json:"path"`
	Section    string  `json:"section,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	TokenCount int     `json:"token_count"`
	Score      float32 `json:"score"`
}

// Engine answers similarity queries over the indexed corpus.
type Engine struct {
	embedder   llm.Embedder
	vectors    vectorstore.VectorStore
	collection string
	chunks     storage.ChunkStore
	minScore   float32
}

// NewEngine creates a search engine. minScore is the cosine similarity floor;
// hits scoring below it are dropped.
func NewEngine(
	embedder llm.Embedder,
	vectors vectorstore.VectorStore,
	collection string,
	chunks storage.ChunkStore,
	minScore float32,
) *Engine {
	return &Engine{
		embedder:   embedder,
		vectors:    vectors,
		collection: collection,
		chunks:     chunks,
		minScore:   minScore,
	}
}

// Search embeds the query and returns up to topK results in non-increasing
// similarity order. Ties break on document path, then chunk index, so result
// order is deterministic. Fewer results than topK is normal, never an error.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	points, err := e.vectors.Search(ctx, e.collection, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, point := range points {
		if point.Score < e.minScore {
			continue
		}

		chunk, err := e.chunks.GetByID(ctx, point.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Point outlived its chunk row; the next reindex removes it.
				logger.WarnContext(ctx, "stale vector point", "point_id", point.ID)
				continue
			}
			return nil, fmt.Errorf("failed to fetch chunk: %w", err)
		}

		path, _ := point.Payload["path"].(string)
		section, _ := point.Payload["section"].(string)

		results = append(results, Result{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Path:       path,
			Section:    section,
			ChunkIndex: chunk.ChunkIndex,
			Text:       chunk.Text,
			TokenCount: chunk.TokenCount,
			Score:      point.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	logger.DebugContext(ctx, "search completed", "query_length", len(query), "top_k", topK, "results", len(results))
	return results, nil
}
