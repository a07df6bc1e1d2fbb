package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// SceneSummary is one entry of the scene list.
type SceneSummary struct {
	Index   int    `json:"index"`
	Chapter string `json:"chapter"`
	Scene   string `json:"scene"`
}

type ScenesHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewScenesHandler(storage storage.Storage, logger *slog.Logger) *ScenesHandler {
	return &ScenesHandler{storage: storage, logger: logger}
}

// List handles GET /v1/scenes.
func (h *ScenesHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.storage.ListSceneTemplates(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scenes", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scenes")
		return
	}
	out := make([]SceneSummary, len(templates))
	for i, t := range templates {
		out[i] = SceneSummary{Index: i, Chapter: t.Chapter, Scene: t.Scene}
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// ListPlayers handles GET /v1/players.
func (h *ScenesHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListPlayers(r.Context())
	if err != nil {
		h.logger.Error("Failed to list players", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list players")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ids)
}

// GetPlayer handles GET /v1/players/{id}.
func (h *ScenesHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := h.storage.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Warn("Player not found", "id", r.PathValue("id"), "error", err)
		writeError(w, h.logger, http.StatusNotFound, "Player not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, p)
}
