package chat

import (
	"testing"

	"github.com/google/uuid"
)

func TestPlayerMessage(t *testing.T) {
	tests := []struct {
		name     string
		player   string
		message  string
		expected string
	}{
		{
			name:     "adds player prefix",
			player:   "Sarah",
			message:  "I knock on the door.",
			expected: "[PLAYER Sarah] I knock on the door.",
		},
		{
			name:     "no player leaves message untouched",
			player:   "",
			message:  "What is a test?",
			expected: "What is a test?",
		},
		{
			name:     "empty message keeps prefix",
			player:   "Toby",
			message:  "",
			expected: "[PLAYER Toby] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlayerMessage(tt.player, tt.message)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{name: "valid", req: ChatRequest{GameID: uuid.New(), Message: "hello"}},
		{name: "empty message", req: ChatRequest{GameID: uuid.New()}, wantErr: true},
		{name: "whitespace message", req: ChatRequest{Message: "   \n"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
