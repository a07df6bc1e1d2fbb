package services

import (
	"context"
	"strings"
	"sync"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/prompts"
)

// MockLLM is a mock implementation of LLMService for testing.
// Without ChatFunc it answers reducer requests with ReducerResponse,
// summary requests with SummaryResponse, and everything else from
// Responses in order, falling back to "Mock response".
type MockLLM struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	Responses       []string
	ReducerResponse string
	SummaryResponse string

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

func NewMockLLM(responses ...string) *MockLLM {
	return &MockLLM{
		Responses:       responses,
		ReducerResponse: "{}",
		SummaryResponse: "Mock summary",
		InitModelCalls:  make([]string, 0),
		ChatCalls:       make([]ChatCall, 0),
	}
}

func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

func (m *MockLLM) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]chat.ChatMessage, len(messages))
	copy(cp, messages)
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: cp})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}

	if len(messages) > 0 && messages[0].Role == chat.ChatRoleSystem {
		switch {
		case messages[0].Content == prompts.ReducerPrompt:
			return &chat.ChatResponse{Message: m.ReducerResponse}, nil
		case strings.HasPrefix(messages[0].Content, prompts.SummaryPrompt):
			return &chat.ChatResponse{Message: m.SummaryResponse}, nil
		}
	}

	if len(m.Responses) > 0 {
		next := m.Responses[0]
		m.Responses = m.Responses[1:]
		return &chat.ChatResponse{Message: next}, nil
	}
	return &chat.ChatResponse{Message: "Mock response"}, nil
}

// SetChatError makes every Chat call fail with err.
func (m *MockLLM) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// GetChatCalls returns a copy of the tracked Chat calls.
func (m *MockLLM) GetChatCalls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}

// Reset clears all call tracking
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.ChatCalls = make([]ChatCall, 0)
}
