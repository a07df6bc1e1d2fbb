package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

var (
	ErrSceneNotFound  = errors.New("scene not found")
	ErrPlayerNotFound = errors.New("player not found")
)

// Storage defines a unified interface for all storage operations
// This interface combines gamestate persistence (Redis) with resource loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations (Redis-backed). LoadGameState returns nil, nil
	// when the game does not exist.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// Scene templates (filesystem-backed), addressed by their index in the scene list
	ListSceneTemplates(ctx context.Context) ([]scene.Template, error)
	GetSceneTemplate(ctx context.Context, idx int) (*scene.Template, error)

	// Pre-made player sheets (filesystem-backed)
	ListPlayers(ctx context.Context) ([]string, error)
	GetPlayer(ctx context.Context, id string) (*player.Player, error)
}
