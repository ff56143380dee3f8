package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"semdex/internal/indexer"
	"semdex/internal/source"
	"semdex/internal/storage"
	"semdex/internal/vectorstore"
)

func newIdlePipeline(t *testing.T, src indexer.Source) *indexer.Pipeline {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if src == nil {
		src = source.NewScanner(t.TempDir())
	}
	return indexer.NewPipeline(
		src,
		storage.NewDocumentRepo(db),
		storage.NewChunkRepo(db),
		nil, // never reached with an empty corpus
		vectorstore.NewMemoryStore(),
		"c",
		indexer.Options{MaxChunkTokens: 180},
	)
}

// blockingSource blocks inside Scan until released.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Scan(ctx context.Context, excluded []string) ([]source.File, error) {
	close(s.started)
	<-s.release
	return nil, nil
}

func postIndex(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func waitForReady(t *testing.T, pipeline *indexer.Pipeline) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		status := pipeline.Status()
		if status.State != indexer.StateIndexing && !status.LastRun.IsZero() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("pipeline did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestIndexHandler_NotConfigured(t *testing.T) {
	handler := NewIndexHandler(nil)

	rec := postIndex(handler, "/api/index")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestIndexHandler_Accepted(t *testing.T) {
	pipeline := newIdlePipeline(t, nil)
	handler := NewIndexHandler(pipeline)

	rec := postIndex(handler, "/api/index")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	waitForReady(t, pipeline)
	status := pipeline.Status()
	if status.State != indexer.StateReady {
		t.Errorf("state after run = %q, want %q", status.State, indexer.StateReady)
	}
	if status.LastSummary == nil {
		t.Error("LastSummary missing after run")
	}
}

func TestIndexHandler_ConflictWhileIndexing(t *testing.T) {
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	pipeline := newIdlePipeline(t, src)
	handler := NewIndexHandler(pipeline)

	rec := postIndex(handler, "/api/index")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	<-src.started

	rec = postIndex(handler, "/api/index")
	if rec.Code != http.StatusConflict {
		t.Errorf("second request status = %d, want %d", rec.Code, http.StatusConflict)
	}

	close(src.release)
	waitForReady(t, pipeline)
}
