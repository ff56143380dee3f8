package handlers

import (
	"context"
	"net/http"
	"time"

	"semdex/internal/contextutil"
	"semdex/internal/vectorstore"
)

// HealthHandler checks reachability of the system's dependencies.
type HealthHandler struct {
	vectors            vectorstore.VectorStore // nil when no store is configured
	collection         string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(vectors vectorstore.VectorStore, collection string) *HealthHandler {
	return &HealthHandler{
		vectors:            vectors,
		collection:         collection,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	switch {
	case h.vectors == nil:
		checks["vector_store"] = "not_configured"
	default:
		exists, err := h.vectors.CollectionExists(checkCtx, h.collection)
		if err != nil {
			logger.WarnContext(ctx, "vector store health check failed", "error", err)
			checks["vector_store"] = "error"
			issues = append(issues, "vector_store_unavailable")
		} else if !exists {
			checks["vector_store"] = "missing_collection"
			issues = append(issues, "vector_store_collection_missing")
		} else {
			checks["vector_store"] = "ok"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
