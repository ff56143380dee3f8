package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	llm_mocks "semdex/internal/llm/mocks"
	"semdex/internal/storage"
	storage_mocks "semdex/internal/storage/mocks"
	"semdex/internal/vectorstore"
	vectorstore_mocks "semdex/internal/vectorstore/mocks"
)

const testCollection = "test-collection"

func scored(id string, score float32, path string) vectorstore.ScoredPoint {
	return vectorstore.ScoredPoint{
		ID:    id,
		Score: score,
		Payload: map[string]any{
			"path":    path,
			"section": "# Top",
		},
	}
}

func chunkFor(id, docID string, index int) *storage.ChunkRecord {
	return &storage.ChunkRecord{
		ID:         id,
		DocumentID: docID,
		ChunkIndex: index,
		Section:    "# Top",
		Text:       "text of " + id,
		TokenCount: 3,
	}
}

func TestEngine_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectors := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	queryVector := []float32{1, 0, 0}
	embedder.EXPECT().Embed(gomock.Any(), []string{"charge"}).Return([][]float32{queryVector}, nil)
	vectors.EXPECT().Search(gomock.Any(), testCollection, queryVector, 5).Return([]vectorstore.ScoredPoint{
		scored("c1", 0.9, "physics/charge.md"),
		scored("c2", 0.7, "physics/current.md"),
	}, nil)
	chunks.EXPECT().GetByID(gomock.Any(), "c1").Return(chunkFor("c1", "d1", 0), nil)
	chunks.EXPECT().GetByID(gomock.Any(), "c2").Return(chunkFor("c2", "d2", 1), nil)

	engine := NewEngine(embedder, vectors, testCollection, chunks, 0.25)
	results, err := engine.Search(context.Background(), "charge", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "physics/charge.md", results[0].Path)
	assert.Equal(t, "# Top", results[0].Section)
	assert.Equal(t, float32(0.9), results[0].Score)
	assert.Equal(t, "c2", results[1].ChunkID)
}

func TestEngine_SearchEmptyQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewEngine(
		llm_mocks.NewMockEmbedder(ctrl),
		vectorstore_mocks.NewMockVectorStore(ctrl),
		testCollection,
		storage_mocks.NewMockChunkStore(ctrl),
		0,
	)

	_, err := engine.Search(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestEngine_SearchClampsTopK(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectors := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil).Times(2)
	// Zero falls back to the default, oversized clamps to the maximum.
	vectors.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), DefaultTopK).Return(nil, nil)
	vectors.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), MaxTopK).Return(nil, nil)

	engine := NewEngine(embedder, vectors, testCollection, chunks, 0)

	if _, err := engine.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search(topK=0) error = %v", err)
	}
	if _, err := engine.Search(context.Background(), "q", MaxTopK+100); err != nil {
		t.Fatalf("Search(topK=max+100) error = %v", err)
	}
}

func TestEngine_SearchDropsBelowMinScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectors := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil)
	vectors.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 10).Return([]vectorstore.ScoredPoint{
		scored("keep", 0.8, "a.md"),
		scored("drop", 0.1, "b.md"),
	}, nil)
	chunks.EXPECT().GetByID(gomock.Any(), "keep").Return(chunkFor("keep", "d1", 0), nil)

	engine := NewEngine(embedder, vectors, testCollection, chunks, 0.5)
	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].ChunkID)
}

func TestEngine_SearchSkipsStalePoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectors := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil)
	vectors.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 10).Return([]vectorstore.ScoredPoint{
		scored("stale", 0.9, "gone.md"),
		scored("live", 0.8, "here.md"),
	}, nil)
	chunks.EXPECT().GetByID(gomock.Any(), "stale").Return(nil, storage.ErrNotFound)
	chunks.EXPECT().GetByID(gomock.Any(), "live").Return(chunkFor("live", "d1", 0), nil)

	engine := NewEngine(embedder, vectors, testCollection, chunks, 0)
	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "live", results[0].ChunkID)
}

func TestEngine_SearchDeterministicTieBreak(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := llm_mocks.NewMockEmbedder(ctrl)
	vectors := vectorstore_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{1}}, nil)
	vectors.EXPECT().Search(gomock.Any(), testCollection, gomock.Any(), 10).Return([]vectorstore.ScoredPoint{
		scored("c-zebra", 0.5, "zebra.md"),
		scored("c-apple", 0.5, "apple.md"),
	}, nil)
	chunks.EXPECT().GetByID(gomock.Any(), "c-zebra").Return(chunkFor("c-zebra", "d1", 0), nil)
	chunks.EXPECT().GetByID(gomock.Any(), "c-apple").Return(chunkFor("c-apple", "d2", 0), nil)

	engine := NewEngine(embedder, vectors, testCollection, chunks, 0)
	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "apple.md", results[0].Path, "equal scores must order by path")
	assert.Equal(t, "zebra.md", results[1].Path)
}
