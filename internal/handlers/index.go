package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"semdex/internal/contextutil"
	"semdex/internal/indexer"
)

// IndexHandler triggers reindex runs.
type IndexHandler struct {
	pipeline *indexer.Pipeline
}

// NewIndexHandler creates a new IndexHandler. pipeline may be nil when
// indexing is not configured.
func NewIndexHandler(pipeline *indexer.Pipeline) *IndexHandler {
	return &IndexHandler{pipeline: pipeline}
}

// IndexResponse is the body returned when a run is accepted.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP starts a reindex run in the background and returns 202. A run
// already in flight yields 409. With ?force=true all stored state is cleared
// before indexing.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "indexing is not configured")
		return
	}
	if h.pipeline.Status().State == indexer.StateIndexing {
		writeError(w, http.StatusConflict, "indexing already in progress")
		return
	}

	force := r.URL.Query().Get("force") == "true"
	logger.InfoContext(ctx, "reindex triggered via API", "force", force)

	// Run in the background with a fresh context so indexing survives the request.
	go func() {
		runCtx := contextutil.WithLogger(context.Background(), slog.Default())
		if force {
			if err := h.pipeline.Clear(runCtx); err != nil {
				slog.Error("failed to clear indexed data", "error", err)
				return
			}
		}
		summary, err := h.pipeline.Reindex(runCtx)
		if err != nil {
			slog.Error("reindex failed", "error", err)
			return
		}
		slog.Info("reindex finished",
			"created", summary.Created,
			"updated", summary.Updated,
			"deleted", summary.Deleted,
			"unchanged", summary.Unchanged,
			"failed", summary.Failed,
		)
	}()

	message := "Indexing started."
	if force {
		message = "Force reindexing started; existing data cleared first."
	}
	writeJSON(w, http.StatusAccepted, IndexResponse{Message: message, Status: "accepted"})
}
