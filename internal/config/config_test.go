package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

// clearEnv unsets every variable Load reads so ambient configuration cannot
// leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CORPUS_PATH", "EXCLUDED_DIRS", "PUBLIC_DIRS", "INDEX_ON_OPEN",
		"EMBEDDING_BASE_URL", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
		"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
		"QDRANT_URL", "QDRANT_COLLECTION", "VECTOR_SIZE", "DB_PATH",
		"MAX_CHUNK_TOKENS", "INDEX_CONCURRENCY",
		"SEARCH_TOP_K", "SEARCH_MIN_SCORE", "CONTEXT_TOKENS", "SYSTEM_PROMPT",
		"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "data", "test.db")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", testDBPath(t))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %s, want 9000", cfg.APIPort)
	}
	if cfg.QdrantCollection != "semdex" {
		t.Errorf("QdrantCollection = %s", cfg.QdrantCollection)
	}
	if cfg.MaxChunkTokens != 180 {
		t.Errorf("MaxChunkTokens = %d, want 180", cfg.MaxChunkTokens)
	}
	if cfg.SearchTopK != 10 {
		t.Errorf("SearchTopK = %d, want 10", cfg.SearchTopK)
	}
	if cfg.SearchMinScore != 0.25 {
		t.Errorf("SearchMinScore = %f, want 0.25", cfg.SearchMinScore)
	}
	if cfg.ContextTokens != 2048 {
		t.Errorf("ContextTokens = %d, want 2048", cfg.ContextTokens)
	}
	if cfg.IndexConcurrency != 4 {
		t.Errorf("IndexConcurrency = %d, want 4", cfg.IndexConcurrency)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.SystemPrompt != DefaultSystemPrompt {
		t.Error("SystemPrompt should default")
	}
	if cfg.SearchEnabled() {
		t.Error("SearchEnabled() should be false without an embedding key and corpus")
	}
	if cfg.AnswerEnabled() {
		t.Error("AnswerEnabled() should be false without keys")
	}
}

func TestLoad_FeatureGating(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", testDBPath(t))
	t.Setenv("CORPUS_PATH", "/corpus")
	t.Setenv("EMBEDDING_API_KEY", "ek")
	t.Setenv("VECTOR_SIZE", "1536")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.SearchEnabled() {
		t.Error("SearchEnabled() = false, want true")
	}
	if cfg.AnswerEnabled() {
		t.Error("AnswerEnabled() = true without LLM key, want false")
	}

	t.Setenv("LLM_API_KEY", "lk")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.AnswerEnabled() {
		t.Error("AnswerEnabled() = false with both keys, want true")
	}
}

func TestLoad_VectorSizeRequiredForSearch(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", testDBPath(t))
	t.Setenv("CORPUS_PATH", "/corpus")
	t.Setenv("EMBEDDING_API_KEY", "ek")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when search is enabled without VECTOR_SIZE")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"VECTOR_SIZE", "not-a-number"},
		{"MAX_CHUNK_TOKENS", "abc"},
		{"MAX_CHUNK_TOKENS", "0"},
		{"SEARCH_MIN_SCORE", "high"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DB_PATH", testDBPath(t))
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_ListParsing(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", testDBPath(t))
	t.Setenv("EXCLUDED_DIRS", " drafts/, archive , /tmp/cache/ ,")
	t.Setenv("PUBLIC_DIRS", "pub")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"drafts", "archive", "tmp/cache"}
	if len(cfg.ExcludedDirs) != len(want) {
		t.Fatalf("ExcludedDirs = %v, want %v", cfg.ExcludedDirs, want)
	}
	for i := range want {
		if cfg.ExcludedDirs[i] != want[i] {
			t.Errorf("ExcludedDirs[%d] = %s, want %s", i, cfg.ExcludedDirs[i], want[i])
		}
	}
	if len(cfg.PublicDirs) != 1 || cfg.PublicDirs[0] != "pub" {
		t.Errorf("PublicDirs = %v", cfg.PublicDirs)
	}
}

func TestLoad_LogLevels(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DB_PATH", testDBPath(t))
			t.Setenv("LOG_LEVEL", tt.value)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.want)
			}
		})
	}
}
