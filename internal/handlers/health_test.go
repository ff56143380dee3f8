package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"semdex/internal/vectorstore"
)

// failingVectorStore errors on every call.
type failingVectorStore struct {
	vectorstore.VectorStore
}

func (f *failingVectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return false, errors.New("connection refused")
}

func getHealth(t *testing.T, handler http.Handler) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, resp
}

func TestHealthHandler_NotConfigured(t *testing.T) {
	handler := NewHealthHandler(nil, "c")

	rec, resp := getHealth(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.Checks["vector_store"] != "not_configured" {
		t.Errorf("vector_store check = %q", resp.Checks["vector_store"])
	}
}

func TestHealthHandler_Healthy(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	if err := store.Upsert(context.Background(), "c", []vectorstore.Point{
		{ID: "p1", Vector: []float32{1}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	handler := NewHealthHandler(store, "c")

	rec, resp := getHealth(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Checks["vector_store"] != "ok" {
		t.Errorf("vector_store check = %q, want ok", resp.Checks["vector_store"])
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestHealthHandler_MissingCollection(t *testing.T) {
	handler := NewHealthHandler(vectorstore.NewMemoryStore(), "never-written")

	rec, resp := getHealth(t, handler)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy", resp.Status)
	}
	if resp.Checks["vector_store"] != "missing_collection" {
		t.Errorf("vector_store check = %q", resp.Checks["vector_store"])
	}
}

func TestHealthHandler_StoreUnavailable(t *testing.T) {
	handler := NewHealthHandler(&failingVectorStore{}, "c")

	rec, resp := getHealth(t, handler)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Checks["vector_store"] != "error" {
		t.Errorf("vector_store check = %q, want error", resp.Checks["vector_store"])
	}
	if len(resp.Issues) == 0 {
		t.Error("issues should name the failing dependency")
	}
}
