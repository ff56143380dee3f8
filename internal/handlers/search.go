package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"semdex/internal/contextutil"
	"semdex/internal/llm"
	"semdex/internal/search"
)

// SearchEngine retrieves chunks by semantic similarity.
type SearchEngine interface {
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
}

// SearchHandler handles semantic search requests.
type SearchHandler struct {
	engine SearchEngine
}

// NewSearchHandler creates a new SearchHandler. engine may be nil when search
// is not configured.
func NewSearchHandler(engine SearchEngine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// SearchRequest is the JSON body for search queries.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResponse wraps the retrieved results.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.engine.Search(ctx, req.Query, req.TopK)
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "error", err)
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "embedding provider rate limited, retry later")
		case errors.Is(err, llm.ErrProvider):
			writeError(w, http.StatusBadGateway, "embedding provider unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "search failed")
		}
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
