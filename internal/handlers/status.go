package handlers

import (
	"net/http"

	"semdex/internal/indexer"
)

// StatusHandler reports the index state and which features are configured.
type StatusHandler struct {
	pipeline      *indexer.Pipeline // nil when indexing is not configured
	searchEnabled bool
	answerEnabled bool
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(pipeline *indexer.Pipeline, searchEnabled, answerEnabled bool) *StatusHandler {
	return &StatusHandler{
		pipeline:      pipeline,
		searchEnabled: searchEnabled,
		answerEnabled: answerEnabled,
	}
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	// State is "not_configured", "indexing", "ready" or "error".
	State    string          `json:"state"`
	Features map[string]bool `json:"features"`
	Index    *indexer.Status `json:"index,omitempty"`
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State: "not_configured",
		Features: map[string]bool{
			"search": h.searchEnabled,
			"answer": h.answerEnabled,
		},
	}

	if h.pipeline != nil {
		status := h.pipeline.Status()
		resp.State = string(status.State)
		resp.Index = &status
	}

	writeJSON(w, http.StatusOK, resp)
}
