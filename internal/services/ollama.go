package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/chat"
)

// ollamaContextWindow fits the full rule book plus a long play history.
// Ollama's own default of 2048 tokens silently drops the system prompt.
const ollamaContextWindow = 8192

// OllamaService talks to a local Ollama server.
type OllamaService struct {
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger

	readyRetries int
	retryDelay   time.Duration
}

type ollamaChatRequest struct {
	Model     string             `json:"model"`
	Messages  []chat.ChatMessage `json:"messages"`
	Stream    bool               `json:"stream"`
	KeepAlive string             `json:"keep_alive,omitempty"`
	Options   ollamaOptions      `json:"options"`
}

type ollamaOptions struct {
	NumCtx int `json:"num_ctx"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func NewOllamaService(baseURL string, modelName string, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL:      strings.TrimRight(baseURL, "/"),
		modelName:    modelName,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		logger:       logger,
		readyRetries: 5,
		retryDelay:   2 * time.Second,
	}
}

// InitModel waits for the server and pulls the model when it is missing.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	models, err := s.waitForModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	// tags carry an explicit ":latest" when none was given
	if slices.Contains(models, modelName) || slices.Contains(models, modelName+":latest") {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	if err := s.pullModel(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model %s: %w", modelName, err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

// Chat sends one non-streaming chat request.
func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	var out ollamaChatResponse
	err := s.post(ctx, s.httpClient, "/api/chat", ollamaChatRequest{
		Model:     s.modelName,
		Messages:  messages,
		KeepAlive: "30m",
		Options:   ollamaOptions{NumCtx: ollamaContextWindow},
	}, &out)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Ollama chat completed",
		"model", s.modelName,
		"message_count", len(messages),
		"prompt_tokens", out.PromptEvalCount,
		"completion_tokens", out.EvalCount)
	if out.DoneReason == "length" {
		s.logger.Warn("Ollama response was cut off at the token limit", "model", s.modelName)
	}

	return &chat.ChatResponse{Message: out.Message.Content}, nil
}

// waitForModels polls /api/tags until the server answers and returns the
// installed model names.
func (s *OllamaService) waitForModels(ctx context.Context) ([]string, error) {
	var lastErr error
	for i := range s.readyRetries {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		models, err := s.listModels(ctx)
		if err == nil {
			return models, nil
		}
		lastErr = err
		s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)
	}
	return nil, fmt.Errorf("no answer after %d attempts: %w", s.readyRetries, lastErr)
}

func (s *OllamaService) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tags request failed with status: %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	// Pulling a model can take minutes.
	client := &http.Client{Timeout: 10 * time.Minute}
	return s.post(ctx, client, "/api/pull", map[string]any{"name": modelName, "stream": false}, nil)
}

// post sends a JSON body and decodes the answer into out when it is non-nil.
func (s *OllamaService) post(ctx context.Context, client *http.Client, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Ollama API returned error",
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", string(raw))
		return fmt.Errorf("ollama %s failed with status: %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Error("Failed to decode Ollama response", "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
