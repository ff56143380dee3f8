package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSystemPrompt instructs the completion model to stay within the retrieved context.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions using only the provided " +
	"context passages from an indexed document corpus. If the context does not contain enough information " +
	"to answer the question, say so instead of guessing. Cite file paths when possible."

// Config holds all configuration for the application.
//
// A Config is immutable once loaded. When settings change, callers build a new
// Config (and from it a new set of components) rather than mutating this one.
type Config struct {
	// Corpus
	CorpusPath   string
	ExcludedDirs []string
	PublicDirs   []string
	IndexOnOpen  bool

	// Providers
	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingAPIKey  string
	LLMBaseURL       string
	LLMModel         string
	LLMAPIKey        string

	// Stores
	QdrantURL        string
	QdrantCollection string
	VectorSize       int
	DBPath           string

	// Pipeline tuning
	MaxChunkTokens   int
	IndexConcurrency int

	// Query tuning
	SearchTopK     int
	SearchMinScore float32
	ContextTokens  int
	SystemPrompt   string

	// Host
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// If a .env file exists in the current directory or an ancestor, it is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		CorpusPath:       getEnv("CORPUS_PATH", ""),
		ExcludedDirs:     splitList(getEnv("EXCLUDED_DIRS", "")),
		PublicDirs:       splitList(getEnv("PUBLIC_DIRS", "")),
		IndexOnOpen:      getEnv("INDEX_ON_OPEN", "false") == "true",
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModel:         getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "semdex"),
		DBPath:           getEnv("DB_PATH", "./data/semdex.db"),
		SystemPrompt:     getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.MaxChunkTokens, err = getEnvInt("MAX_CHUNK_TOKENS", 180); err != nil {
		return nil, err
	}
	if cfg.IndexConcurrency, err = getEnvInt("INDEX_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.SearchTopK, err = getEnvInt("SEARCH_TOP_K", 10); err != nil {
		return nil, err
	}
	if cfg.ContextTokens, err = getEnvInt("CONTEXT_TOKENS", 2048); err != nil {
		return nil, err
	}

	// Cosine similarity floor for search results. Results scoring below this are
	// dropped; 0.25 keeps loosely related passages out without hiding partial matches.
	minScoreStr := getEnv("SEARCH_MIN_SCORE", "0.25")
	minScore, err := strconv.ParseFloat(minScoreStr, 32)
	if err != nil {
		return nil, fmt.Errorf("SEARCH_MIN_SCORE must be a valid number: %w", err)
	}
	cfg.SearchMinScore = float32(minScore)

	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	if cfg.MaxChunkTokens <= 0 {
		return nil, fmt.Errorf("MAX_CHUNK_TOKENS must be greater than 0")
	}
	if cfg.IndexConcurrency <= 0 {
		cfg.IndexConcurrency = 1
	}
	if cfg.SearchEnabled() && cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE is required and must match the embedding model output size")
	}

	// Create the data directory up front so the SQLite open cannot fail on a missing parent.
	if dataDir := filepath.Dir(cfg.DBPath); dataDir != "" && dataDir != "." {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// SearchEnabled reports whether indexing and search are configured.
// Without an embedding API key or a corpus root there is nothing to index or query.
func (c *Config) SearchEnabled() bool {
	return c.EmbeddingAPIKey != "" && c.CorpusPath != "" && c.QdrantURL != ""
}

// AnswerEnabled reports whether generative answering is configured.
// Answering also requires search, since it retrieves context first.
func (c *Config) AnswerEnabled() bool {
	return c.SearchEnabled() && c.LLMAPIKey != ""
}

// loadDotEnv loads a .env file from the current directory or the nearest ancestor.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// splitList parses a comma-separated list of path prefixes, trimming whitespace
// and normalizing to forward slashes.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "/")
		if p != "" {
			out = append(out, filepath.ToSlash(p))
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
