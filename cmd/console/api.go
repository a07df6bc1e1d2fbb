package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/internal/handlers"
	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiClient talks to the goblin-king api.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func newAPIClient(client *http.Client, baseURL string) *apiClient {
	return &apiClient{client: client, baseURL: baseURL}
}

func (c *apiClient) testConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON (when not nil) and decodes a response with the
// wanted status into out.
func (c *apiClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) listScenes(ctx context.Context) ([]handlers.SceneSummary, error) {
	var scenes []handlers.SceneSummary
	err := c.do(ctx, http.MethodGet, "/v1/scenes", nil, http.StatusOK, &scenes)
	return scenes, err
}

func (c *apiClient) listPlayers(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.do(ctx, http.MethodGet, "/v1/players", nil, http.StatusOK, &ids)
	return ids, err
}

func (c *apiClient) createGame(ctx context.Context, sceneIdx int, playerIDs []string) (*state.GameState, error) {
	var gs state.GameState
	req := handlers.CreateGameRequest{SceneIndex: sceneIdx, PlayerIDs: playerIDs}
	if err := c.do(ctx, http.MethodPost, "/v1/games", req, http.StatusCreated, &gs); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &gs, nil
}

func (c *apiClient) getGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := c.do(ctx, http.MethodGet, "/v1/games/"+id.String(), nil, http.StatusOK, &gs); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &gs, nil
}

func (c *apiClient) nextScene(ctx context.Context, id uuid.UUID, sceneIdx int) (*state.GameState, error) {
	var gs state.GameState
	req := handlers.SceneRequest{SceneIndex: sceneIdx}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+id.String()+"/scene", req, http.StatusOK, &gs); err != nil {
		return nil, fmt.Errorf("failed to change scene: %w", err)
	}
	return &gs, nil
}

// sendChat posts one message. Refusals such as "not your turn" come back as
// errors carrying the api's message.
func (c *apiClient) sendChat(ctx context.Context, id uuid.UUID, playerName, message string) (*chat.ChatResponse, error) {
	var resp chat.ChatResponse
	req := chat.ChatRequest{GameID: id, Player: playerName, Message: message}
	if err := c.do(ctx, http.MethodPost, "/v1/chat", req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
