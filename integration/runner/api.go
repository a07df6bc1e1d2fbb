package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

type createGameRequest struct {
	SceneIndex int      `json:"scene_index"`
	PlayerIDs  []string `json:"player_ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// createGame starts a game via POST /v1/games. Scene initialization runs
// on the model, so this can take as long as a chat step.
func (r *Runner) createGame(ctx context.Context, sceneIndex int, playerIDs []string) (*state.GameState, error) {
	var gs state.GameState
	status, err := r.do(ctx, http.MethodPost, "/v1/games", createGameRequest{SceneIndex: sceneIndex, PlayerIDs: playerIDs}, &gs)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("create game returned %d", status)
	}
	return &gs, nil
}

func (r *Runner) getGame(ctx context.Context, gameID uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	status, err := r.do(ctx, http.MethodGet, "/v1/games/"+gameID.String(), nil, &gs)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get game returned %d", status)
	}
	return &gs, nil
}

func (r *Runner) deleteGame(ctx context.Context, gameID uuid.UUID) error {
	status, err := r.do(ctx, http.MethodDelete, "/v1/games/"+gameID.String(), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("delete game returned %d", status)
	}
	return nil
}

// postChat sends one player message. Error statuses are returned, not
// treated as failures, so steps can expect them.
func (r *Runner) postChat(ctx context.Context, gameID uuid.UUID, player, message string) (int, *chat.ChatResponse, error) {
	req := chat.ChatRequest{GameID: gameID, Player: player, Message: message}
	var resp chat.ChatResponse
	status, err := r.do(ctx, http.MethodPost, "/v1/chat", req, &resp)
	if err != nil {
		return status, nil, err
	}
	return status, &resp, nil
}

// do sends a JSON request. Non-2xx bodies are decoded into out when they
// fit, otherwise their error message is wrapped into the returned error.
func (r *Runner) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out == nil || len(data) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 300 {
			var e errorResponse
			_ = json.Unmarshal(data, &e)
			return resp.StatusCode, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, e.Error)
		}
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
