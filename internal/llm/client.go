package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completer.go -package=mocks semdex/internal/llm Completer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Completer converts a prompt into generated text. No retries are performed
// internally; retry policy belongs to the caller.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, contextText, question string) (string, error)
}

// StreamCompleter is implemented by completion clients that can stream the
// generated answer chunk by chunk.
type StreamCompleter interface {
	StreamComplete(ctx context.Context, systemPrompt, contextText, question string, callback func(chunk string) error) error
}

// CompletionConfig configures a CompletionClient.
type CompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// CompletionClient is a client for an OpenAI-compatible chat completions API.
type CompletionClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewCompletionClient creates a new completion client from the given configuration.
// Returns ErrNotConfigured when the API key is absent, so the caller can disable
// generative answering instead of failing at call time.
func NewCompletionClient(cfg CompletionConfig) (*CompletionClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: completion API key missing", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: completion base URL missing", ErrNotConfigured)
	}
	return &CompletionClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  http.DefaultClient,
	}, nil
}

// chatMessage is a single message in a chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request payload for chat completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// buildMessages assembles the message list: the system prompt, then the question
// followed by the retrieved context as the user turn.
func buildMessages(systemPrompt, contextText, question string) []chatMessage {
	user := question
	if contextText != "" {
		user = fmt.Sprintf("%s\n\n%s", question, contextText)
	}
	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}

// Complete sends a chat completion request and returns the generated answer text.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, contextText, question string) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: buildMessages(systemPrompt, contextText, question),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", statusError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrProvider, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrProvider)
	}

	return parsed.Choices[0].Message.Content, nil
}

// StreamComplete sends a streaming chat completion request and reads Server-Sent
// Events from the response, invoking the callback for each content chunk.
func (c *CompletionClient) StreamComplete(ctx context.Context, systemPrompt, contextText, question string, callback func(chunk string) error) error {
	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: buildMessages(systemPrompt, contextText, question),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, raw)
	}

	scanner := bufio.NewScanner(resp.Body)
	const dataPrefix = "data: "
	const doneMarker = "[DONE]"

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneMarker {
			break
		}

		var streamResp struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			// Skip malformed chunks
			continue
		}

		if len(streamResp.Choices) > 0 {
			if chunk := streamResp.Choices[0].Delta.Content; chunk != "" {
				if err := callback(chunk); err != nil {
					return fmt.Errorf("callback error: %w", err)
				}
			}
			if streamResp.Choices[0].FinishReason != "" {
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: failed to read stream: %v", ErrProvider, err)
	}

	return nil
}
