package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"semdex/internal/llm"
	"semdex/internal/rag"
)

// stubAnswerEngine returns a canned answer or error.
type stubAnswerEngine struct {
	answer rag.Answer
	err    error
}

func (s *stubAnswerEngine) Answer(ctx context.Context, question string) (rag.Answer, error) {
	return s.answer, s.err
}

func TestAskHandler_NotConfigured(t *testing.T) {
	handler := NewAskHandler(nil)

	rec := postJSON(t, handler, "/api/ask", `{"question":"q?"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestAskHandler_BadRequests(t *testing.T) {
	handler := NewAskHandler(&stubAnswerEngine{})

	for _, body := range []string{`{broken`, `{}`, `{"question":""}`} {
		rec := postJSON(t, handler, "/api/ask", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestAskHandler_Success(t *testing.T) {
	handler := NewAskHandler(&stubAnswerEngine{answer: rag.Answer{
		Text: "Charge is measured in coulombs.",
		References: []rag.Reference{
			{Path: "physics/charge.md", Section: "# Units", ChunkIndex: 1, Score: 0.88},
		},
	}})

	rec := postJSON(t, handler, "/api/ask", `{"question":"What is charge?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var answer rag.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if answer.Text != "Charge is measured in coulombs." {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.References) != 1 || answer.References[0].Path != "physics/charge.md" {
		t.Errorf("references = %+v", answer.References)
	}
}

func TestAskHandler_AbstentionIsOK(t *testing.T) {
	handler := NewAskHandler(&stubAnswerEngine{answer: rag.Answer{
		Text:       rag.NoAnswer,
		References: []rag.Reference{},
		Abstained:  true,
	}})

	rec := postJSON(t, handler, "/api/ask", `{"question":"anything?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("abstention must still be 200, got %d", rec.Code)
	}

	var answer rag.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !answer.Abstained || answer.Text != rag.NoAnswer {
		t.Errorf("answer = %+v, want abstention with sentinel text", answer)
	}
}

func TestAskHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", fmt.Errorf("embed: %w", llm.ErrRateLimited), http.StatusTooManyRequests},
		{"provider down", fmt.Errorf("embed: %w", llm.ErrProvider), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAskHandler(&stubAnswerEngine{err: tt.err})
			rec := postJSON(t, handler, "/api/ask", `{"question":"q?"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
