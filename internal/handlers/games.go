package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/manager"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// ManagerFactory returns a manager configured for the running engine.
type ManagerFactory func() *manager.Manager

// llmTimeout bounds requests that wait on the model.
const llmTimeout = 2 * time.Minute

// CreateGameRequest defines the request body for creating a new game
type CreateGameRequest struct {
	SceneIndex int              `json:"scene_index"`
	PlayerIDs  []string         `json:"player_ids,omitempty"` // pre-made sheets under data/players
	Players    []*player.Player `json:"players,omitempty"`
}

// SceneRequest moves a game to another scene.
type SceneRequest struct {
	SceneIndex int `json:"scene_index"`
}

type GameHandler struct {
	storage    storage.Storage
	newManager ManagerFactory
	logger     *slog.Logger
	locks      *gameLocks
}

func NewGameHandler(storage storage.Storage, newManager ManagerFactory, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		storage:    storage,
		newManager: newManager,
		logger:     logger,
		locks:      newGameLocks(),
	}
}

func parseGameID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid game id format")
	}
	return id, nil
}

// Create handles POST /v1/games: it builds the party, initializes the
// requested scene and stores the game.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if len(req.PlayerIDs) == 0 && len(req.Players) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "At least one player is required")
		return
	}

	mgr := h.newManager()
	for _, id := range req.PlayerIDs {
		p, err := h.storage.GetPlayer(r.Context(), id)
		if err != nil {
			h.logger.Warn("Failed to load player sheet", "player_id", id, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Failed to load player: "+id)
			return
		}
		if err := mgr.AddPlayer(p); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, p := range req.Players {
		if err := mgr.AddPlayer(p); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
	}

	if !h.initScene(w, r, mgr, req.SceneIndex) {
		return
	}

	gs := mgr.State()
	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save game", "game_id", gs.ID.String(), "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game")
		return
	}
	h.logger.Info("Game created", "game_id", gs.ID.String(), "players", len(gs.Players), "scene", gs.SceneIndex)
	writeJSON(w, h.logger, http.StatusCreated, gs)
}

// initScene loads the template and asks the model for the scene. It writes
// the error response itself and reports whether the scene was installed.
func (h *GameHandler) initScene(w http.ResponseWriter, r *http.Request, mgr *manager.Manager, idx int) bool {
	tmpl, err := h.storage.GetSceneTemplate(r.Context(), idx)
	if err != nil {
		h.logger.Warn("Failed to load scene template", "scene_index", idx, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrSceneNotFound) {
			status = http.StatusBadRequest
		}
		writeError(w, h.logger, status, "Failed to load scene: "+err.Error())
		return false
	}

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()
	if _, _, err := mgr.InitScene(ctx, idx, *tmpl); err != nil {
		h.logger.Error("Scene initialization failed", "scene_index", idx, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "Scene initialization failed: "+sceneErrorText(err))
		return false
	}
	return true
}

func sceneErrorText(err error) string {
	var missing *scene.MissingKeyError
	var typeErr *scene.TypeError
	var syntax *scene.SyntaxError
	switch {
	case errors.As(err, &missing), errors.As(err, &typeErr):
		return err.Error()
	case errors.As(err, &syntax):
		return "the model did not return valid JSON"
	default:
		return "the model could not be reached"
	}
}

// Get handles GET /v1/games/{id}.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseGameID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load game")
		return
	}
	if gs == nil {
		writeError(w, h.logger, http.StatusNotFound, "Game not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

// Delete handles DELETE /v1/games/{id}.
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseGameID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	unlock := h.locks.lock(id)
	defer unlock()

	if err := h.storage.DeleteGameState(r.Context(), id); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete game")
		return
	}
	h.logger.Info("Game deleted", "game_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// NextScene handles POST /v1/games/{id}/scene: the same party moves on to
// another scene.
func (h *GameHandler) NextScene(w http.ResponseWriter, r *http.Request) {
	id, err := parseGameID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	var req SceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	unlock := h.locks.lock(id)
	defer unlock()

	mgr, ok := h.loadManager(w, r, id)
	if !ok {
		return
	}
	if !h.initScene(w, r, mgr, req.SceneIndex) {
		return
	}
	gs := mgr.State()
	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save game")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

// loadManager loads a stored game into a fresh manager, writing the error
// response when it cannot.
func (h *GameHandler) loadManager(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*manager.Manager, bool) {
	return loadManager(w, r, h.storage, h.newManager, h.logger, id)
}

func loadManager(w http.ResponseWriter, r *http.Request, st storage.Storage, newManager ManagerFactory, logger *slog.Logger, id uuid.UUID) (*manager.Manager, bool) {
	gs, err := st.LoadGameState(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load game", "game_id", id.String(), "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Failed to load game")
		return nil, false
	}
	if gs == nil {
		writeError(w, logger, http.StatusNotFound, "Game not found")
		return nil, false
	}
	mgr := newManager()
	if err := mgr.LoadState(gs); err != nil {
		logger.Error("Stored game is invalid", "game_id", id.String(), "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Stored game is invalid")
		return nil, false
	}
	return mgr, true
}

// isConflict reports errors caused by the game's state rather than the server.
func isConflict(err error) bool {
	return errors.Is(err, state.ErrGameEnded) || manager.IsRecoverable(err) ||
		errors.Is(err, state.ErrNoActionScene) || errors.Is(err, state.ErrActionSceneActive)
}
