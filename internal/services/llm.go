package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/pkg/chat"
)

// LLMService defines the interface for interacting with a chat model.
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat generates one response for the given messages
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// Default model per engine when none is given.
var DefaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-5",
	"openai":    "gpt-4o-mini",
	"ollama":    "llama3.1",
	"gemini":    "gemini-2.5-flash",
	"mock":      "mock",
}

// NewLLMService creates the engine named engineName serving model modelIdx.
// An empty modelIdx selects the engine's default model.
func NewLLMService(ctx context.Context, engineName, modelIdx string, cfg *config.Config, logger *slog.Logger) (LLMService, string, error) {
	engine := strings.ToLower(strings.TrimSpace(engineName))
	model := modelIdx
	if model == "" {
		model = DefaultModels[engine]
	}

	switch engine {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, "", fmt.Errorf("anthropic API key is required")
		}
		return NewAnthropicService(cfg.AnthropicAPIKey, model, logger), model, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, "", fmt.Errorf("openai API key is required")
		}
		return NewOpenAIService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, logger), model, nil
	case "ollama":
		return NewOllamaService(cfg.OllamaURL, model, logger), model, nil
	case "gemini":
		svc, err := NewGeminiService(ctx, cfg.GeminiAPIKey, model, logger)
		if err != nil {
			return nil, "", err
		}
		return svc, model, nil
	case "mock":
		return NewMockLLM(), model, nil
	default:
		return nil, "", fmt.Errorf("unsupported engine %q: use anthropic, openai, ollama or gemini", engineName)
	}
}

// splitSystem pulls every system message into one prompt and returns the rest.
func splitSystem(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var rest []chat.ChatMessage
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	return strings.Join(systemParts, "\n\n"), rest
}
