package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"semdex/internal/contextutil"
	"semdex/internal/llm"
	"semdex/internal/rag"
)

// AnswerEngine produces generated answers from retrieved context.
type AnswerEngine interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
}

// AskHandler handles generative answer requests.
type AskHandler struct {
	answerer AnswerEngine
}

// NewAskHandler creates a new AskHandler. answerer may be nil when answering
// is not configured.
func NewAskHandler(answerer AnswerEngine) *AskHandler {
	return &AskHandler{answerer: answerer}
}

// AskRequest is the JSON body for answer queries.
type AskRequest struct {
	Question string `json:"question"`
}

func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.answerer == nil {
		writeError(w, http.StatusServiceUnavailable, "answering is not configured")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.answerer.Answer(ctx, req.Question)
	if err != nil {
		logger.ErrorContext(ctx, "answer failed", "error", err)
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "provider rate limited, retry later")
		case errors.Is(err, llm.ErrProvider):
			writeError(w, http.StatusBadGateway, "provider unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "answer failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
