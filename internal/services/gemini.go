package services

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/jwebster45206/goblin-king/pkg/chat"
)

const DefaultGeminiTemperature float32 = 0.7

// GeminiService implements LLMService with the Gemini API.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiService{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	system, contents := toGeminiContents(messages)
	if len(contents) == 0 {
		contents = []*genai.Content{genai.NewContentFromText("Begin.", genai.RoleUser)}
	}

	temperature := DefaultGeminiTemperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return &chat.ChatResponse{Message: resp.Text()}, nil
}

// toGeminiContents moves system messages into the system instruction and
// maps assistant turns to the model role.
func toGeminiContents(messages []chat.ChatMessage) (string, []*genai.Content) {
	system, rest := splitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == chat.ChatRoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return system, contents
}
