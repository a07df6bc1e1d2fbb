package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ChatRequest represents a player message sent to the goblin-king api.
type ChatRequest struct {
	GameID  uuid.UUID `json:"game_id"`          // Unique ID for the game
	Player  string    `json:"player,omitempty"` // Name of the acting player; empty means the current player
	Message string    `json:"message"`
}

// ChatResponse represents the Goblin King's answer returned by the goblin-king api.
type ChatResponse struct {
	GameID      uuid.UUID     `json:"game_id,omitempty"`
	Message     string        `json:"message,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"` // State updates that could not be applied
	Notes       []string      `json:"notes,omitempty"`    // Engine announcements such as remaining time
	NextPlayer  string        `json:"next_player,omitempty"`
	Outcome     string        `json:"outcome,omitempty"` // "success" or "failure" once the scene ends
	Ended       bool          `json:"ended,omitempty"`
	ChatHistory []ChatMessage `json:"chat_history,omitempty"`
	Error       string        `json:"error,omitempty"`
}

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Goblin King
	ChatRoleSystem = "system"    // Instructions and engine notes
)

// ChatMessage represents a single chat message in the conversation.
// Its shape matches the message objects accepted by the chat completion APIs.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func (cr *ChatRequest) Validate() error {
	if strings.TrimSpace(cr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// PlayerMessage prefixes a player's message with the speaker name so the
// Goblin King can tell players apart in a shared history.
func PlayerMessage(player, message string) string {
	if player == "" {
		return message
	}
	return fmt.Sprintf("[PLAYER %s] %s", player, message)
}
