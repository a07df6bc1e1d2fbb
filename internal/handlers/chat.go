package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/manager"
	"github.com/jwebster45206/goblin-king/pkg/state"
	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// ChatHandler handles player messages
type ChatHandler struct {
	storage    storage.Storage
	newManager ManagerFactory
	logger     *slog.Logger
	locks      *gameLocks
}

// NewChatHandler creates a new chat handler. It shares game locks with the
// game handler so a scene change and a chat cannot interleave.
func NewChatHandler(storage storage.Storage, newManager ManagerFactory, logger *slog.Logger, games *GameHandler) *ChatHandler {
	locks := newGameLocks()
	if games != nil {
		locks = games.locks
	}
	return &ChatHandler{
		storage:    storage,
		newManager: newManager,
		logger:     logger,
		locks:      locks,
	}
}

// ServeHTTP handles POST /v1/chat
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for chat endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, chat.ChatResponse{
			Error: "Method not allowed. Only POST is supported.",
		})
		return
	}

	var request chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, chat.ChatResponse{
			Error: "Invalid request body. Expected JSON with 'game_id' and 'message' fields.",
		})
		return
	}
	if err := request.Validate(); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, chat.ChatResponse{Error: "Message cannot be empty."})
		return
	}

	unlock := h.locks.lock(request.GameID)
	defer unlock()

	mgr, ok := loadManager(w, r, h.storage, h.newManager, h.logger, request.GameID)
	if !ok {
		return
	}
	log := h.logger.With("game_id", request.GameID.String())

	cmd, err := mgr.TryCommand(request.Player, request.Message)
	if err != nil {
		log.Warn("Command rejected", "error", err)
		status := http.StatusBadRequest
		if isConflict(err) {
			status = http.StatusConflict
		}
		writeJSON(w, h.logger, status, chat.ChatResponse{GameID: request.GameID, Error: err.Error()})
		return
	}
	if cmd.Handled {
		if !h.save(w, mgr, r) {
			return
		}
		gs := mgr.State()
		writeJSON(w, h.logger, http.StatusOK, chat.ChatResponse{
			GameID:  request.GameID,
			Message: cmd.Message,
			Outcome: string(gs.Outcome),
			Ended:   gs.IsEnded,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), llmTimeout)
	defer cancel()

	result, err := mgr.PlayRound(ctx, request.Player, request.Message)
	if err != nil {
		if isConflict(err) {
			log.Info("Message refused", "error", err)
			// a turn expiry still moved the turn on
			if errors.Is(err, state.ErrTurnExpired) && !h.save(w, mgr, r) {
				return
			}
			writeJSON(w, h.logger, http.StatusConflict, chat.ChatResponse{GameID: request.GameID, Error: err.Error()})
			return
		}
		log.Error("Error generating chat response", "error", err)
		writeJSON(w, h.logger, http.StatusBadGateway, chat.ChatResponse{
			GameID: request.GameID,
			Error:  "Failed to generate response. Please try again.",
		})
		return
	}

	if !h.save(w, mgr, r) {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toChatResponse(request, result))
}

func (h *ChatHandler) save(w http.ResponseWriter, mgr *manager.Manager, r *http.Request) bool {
	gs := mgr.State()
	if err := h.storage.SaveGameState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save game", "game_id", gs.ID.String(), "error", err)
		writeJSON(w, h.logger, http.StatusInternalServerError, chat.ChatResponse{GameID: gs.ID, Error: "Failed to save game"})
		return false
	}
	return true
}

func toChatResponse(req chat.ChatRequest, res *manager.RoundResult) chat.ChatResponse {
	return chat.ChatResponse{
		GameID:     req.GameID,
		Message:    res.Response,
		Warnings:   res.Warnings,
		Notes:      res.Notes,
		Outcome:    string(res.Outcome),
		Ended:      res.Ended,
		NextPlayer: res.NextPlayer,
	}
}
