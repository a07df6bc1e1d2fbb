package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// NewRouter wires every endpoint of the goblin-king api.
func NewRouter(st storage.Storage, newManager ManagerFactory, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", NewHealthHandler(st, logger))

	scenes := NewScenesHandler(st, logger)
	mux.HandleFunc("GET /v1/scenes", scenes.List)
	mux.HandleFunc("GET /v1/players", scenes.ListPlayers)
	mux.HandleFunc("GET /v1/players/{id}", scenes.GetPlayer)

	games := NewGameHandler(st, newManager, logger)
	mux.HandleFunc("POST /v1/games", games.Create)
	mux.HandleFunc("GET /v1/games/{id}", games.Get)
	mux.HandleFunc("DELETE /v1/games/{id}", games.Delete)
	mux.HandleFunc("POST /v1/games/{id}/scene", games.NextScene)

	mux.Handle("/v1/chat", NewChatHandler(st, newManager, logger, games))
	return mux
}
