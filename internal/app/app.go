package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"semdex/internal/config"
	"semdex/internal/indexer"
	"semdex/internal/llm"
	"semdex/internal/rag"
	"semdex/internal/search"
	"semdex/internal/source"
	"semdex/internal/storage"
	"semdex/internal/vectorstore"
)

// App wires configuration, storage, and the indexing and query pipelines.
// Pipeline, Search, and Answerer are nil when the corresponding feature is
// not configured; callers must check before use.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Vectors  vectorstore.VectorStore
	Pipeline *indexer.Pipeline
	Search   *search.Engine
	Answerer *rag.Answerer
	Logger   *slog.Logger
}

// New builds the application from configuration. Missing provider credentials
// disable features rather than failing startup: without an embedding key the
// app still serves status and health, without an LLM key it still indexes and
// searches.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}

	embedder, err := llm.NewEmbeddingsClient(llm.EmbeddingsConfig{
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		VectorSize: cfg.VectorSize,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			db.Close()
			return nil, fmt.Errorf("failed to create embeddings client: %w", err)
		}
		logger.Info("embeddings not configured, indexing and search disabled")
		return app, nil
	}

	qdrant, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	if err := qdrant.EnsureCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		qdrant.Close()
		db.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	app.Vectors = qdrant

	docs := storage.NewDocumentRepo(db)
	chunks := storage.NewChunkRepo(db)

	app.Pipeline = indexer.NewPipeline(
		source.NewScanner(cfg.CorpusPath),
		docs,
		chunks,
		embedder,
		qdrant,
		cfg.QdrantCollection,
		indexer.Options{
			ExcludedDirs:   cfg.ExcludedDirs,
			PublicDirs:     cfg.PublicDirs,
			MaxChunkTokens: cfg.MaxChunkTokens,
			Concurrency:    cfg.IndexConcurrency,
		},
	)

	app.Search = search.NewEngine(embedder, qdrant, cfg.QdrantCollection, chunks, cfg.SearchMinScore)

	completer, err := llm.NewCompletionClient(llm.CompletionConfig{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			qdrant.Close()
			db.Close()
			return nil, fmt.Errorf("failed to create completion client: %w", err)
		}
		logger.Info("llm not configured, answer generation disabled")
		return app, nil
	}

	app.Answerer = rag.NewAnswerer(app.Search, completer, cfg.SystemPrompt, cfg.ContextTokens, cfg.SearchTopK)

	return app, nil
}

// Close releases the database and vector store connections.
func (a *App) Close() error {
	var errs []error
	if q, ok := a.Vectors.(*vectorstore.QdrantStore); ok && q != nil {
		if err := q.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close qdrant client: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
