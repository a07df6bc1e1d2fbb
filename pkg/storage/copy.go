package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/goblin-king/pkg/state"
)

// copyGameState deep-copies a game state through its JSON form, which is
// also how the Redis store persists it.
func copyGameState(gs *state.GameState) (*state.GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	var out state.GameState
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &out, nil
}
