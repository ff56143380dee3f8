// Package rag synthesizes generated answers from retrieved corpus passages.
package rag

import (
	"context"
	"fmt"
	"strings"

	"semdex/internal/contextutil"
	"semdex/internal/llm"
	"semdex/internal/search"
)

// NoAnswer is the sentinel returned when no relevant context exists or the
// completion provider fails. Callers treat it as a normal outcome, not an error.
const NoAnswer = "I couldn't find anything in the indexed documents to answer that."

// Searcher retrieves the chunks most similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]search.Result, error)
}

// Reference points at a chunk that fed the answer.
type Reference struct {
	Path       string  `json:"path"`
	Section    string  `json:"section,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Answer is the outcome of one generative query.
type Answer struct {
	Text       string      `json:"answer"`
	References []Reference `json:"references"`
	Abstained  bool        `json:"abstained,omitempty"`
}

// Answerer assembles a bounded context window from retrieved chunks and drives
// the completion client.
type Answerer struct {
	searcher      Searcher
	completer     llm.Completer
	systemPrompt  string
	contextTokens int
	topK          int
}

// NewAnswerer creates an answer synthesizer. contextTokens bounds the combined
// size of system prompt, question and assembled context.
func NewAnswerer(searcher Searcher, completer llm.Completer, systemPrompt string, contextTokens, topK int) *Answerer {
	return &Answerer{
		searcher:      searcher,
		completer:     completer,
		systemPrompt:  systemPrompt,
		contextTokens: contextTokens,
		topK:          topK,
	}
}

// Answer retrieves context for the question and generates an answer. An empty
// retrieval abstains without calling the completion client; a completion
// failure abstains rather than surfacing the provider error. Store and
// embedding failures propagate.
func (a *Answerer) Answer(ctx context.Context, question string) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	results, err := a.searcher.Search(ctx, question, a.topK)
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		logger.InfoContext(ctx, "no relevant context found", "question_length", len(question))
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}

	contextText, references := a.assembleContext(question, results)
	if contextText == "" {
		logger.WarnContext(ctx, "context budget too small for any chunk", "budget", a.contextTokens)
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}

	text, err := a.completer.Complete(ctx, a.systemPrompt, contextText, question)
	if err != nil {
		logger.WarnContext(ctx, "completion failed, abstaining", "error", err)
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}

	logger.InfoContext(ctx, "answer generated", "chunks_used", len(references), "answer_length", len(text))
	return Answer{Text: text, References: references}, nil
}

// Stream behaves like Answer but delivers the generated text incrementally via
// the callback when the completion client supports streaming. The returned
// Answer carries the references and abstention flag; its Text is empty when
// the answer was streamed.
func (a *Answerer) Stream(ctx context.Context, question string, callback func(chunk string) error) (Answer, error) {
	streamer, ok := a.completer.(llm.StreamCompleter)
	if !ok {
		answer, err := a.Answer(ctx, question)
		if err != nil || answer.Abstained {
			return answer, err
		}
		if err := callback(answer.Text); err != nil {
			return Answer{}, err
		}
		answer.Text = ""
		return answer, nil
	}

	results, err := a.searcher.Search(ctx, question, a.topK)
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}

	contextText, references := a.assembleContext(question, results)
	if contextText == "" {
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}

	if err := streamer.StreamComplete(ctx, a.systemPrompt, contextText, question, callback); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "streaming completion failed, abstaining", "error", err)
		return Answer{Text: NoAnswer, References: []Reference{}, Abstained: true}, nil
	}
	return Answer{References: references}, nil
}

// assembleContext concatenates retrieved chunks in descending-similarity order
// until the token budget, net of the system prompt and question, is exhausted.
// Lowest-similarity chunks are the ones dropped.
func (a *Answerer) assembleContext(question string, results []search.Result) (string, []Reference) {
	budget := a.contextTokens - llm.EstimateTokens(a.systemPrompt) - llm.EstimateTokens(question)
	if budget <= 0 {
		return "", nil
	}

	var b strings.Builder
	references := make([]Reference, 0, len(results))

	header := "--- Context from indexed documents ---\n\n"
	footer := "--- End context ---"
	used := llm.EstimateTokens(header) + llm.EstimateTokens(footer)

	for _, result := range results {
		block := formatBlock(result)
		cost := llm.EstimateTokens(block)
		if used+cost > budget {
			break
		}
		b.WriteString(block)
		used += cost
		references = append(references, Reference{
			Path:       result.Path,
			Section:    result.Section,
			ChunkIndex: result.ChunkIndex,
			Score:      result.Score,
		})
	}

	if len(references) == 0 {
		return "", nil
	}
	return header + b.String() + footer, references
}

func formatBlock(result search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", result.Path)
	if result.Section != "" {
		fmt.Fprintf(&b, "Section: %s\n", result.Section)
	}
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(result.Text))
	return b.String()
}
