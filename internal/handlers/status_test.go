package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"semdex/internal/indexer"
)

func getStatus(t *testing.T, handler http.Handler) (*httptest.ResponseRecorder, StatusResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, resp
}

func TestStatusHandler_NotConfigured(t *testing.T) {
	handler := NewStatusHandler(nil, false, false)

	rec, resp := getStatus(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.State != "not_configured" {
		t.Errorf("state = %q, want not_configured", resp.State)
	}
	if resp.Features["search"] || resp.Features["answer"] {
		t.Errorf("features = %v, want all false", resp.Features)
	}
	if resp.Index != nil {
		t.Error("index status should be omitted when not configured")
	}
}

func TestStatusHandler_ReadyBeforeFirstRun(t *testing.T) {
	pipeline := indexer.NewPipeline(nil, nil, nil, nil, nil, "c", indexer.Options{})
	handler := NewStatusHandler(pipeline, true, false)

	rec, resp := getStatus(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.State != string(indexer.StateReady) {
		t.Errorf("state = %q, want %q", resp.State, indexer.StateReady)
	}
	if !resp.Features["search"] {
		t.Error("search feature should be reported enabled")
	}
	if resp.Features["answer"] {
		t.Error("answer feature should be reported disabled")
	}
	if resp.Index == nil {
		t.Fatal("index status missing")
	}
	if resp.Index.LastSummary != nil {
		t.Error("LastSummary should be empty before the first run")
	}
}
