package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	gamestates map[uuid.UUID]*state.GameState
	templates  []scene.Template
	players    map[string]*player.Player
	pingError  error
	saveError  error

	SaveCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gamestates: make(map[uuid.UUID]*state.GameState),
		players:    make(map[string]*player.Player),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveGameState
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) AddSceneTemplate(t scene.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, t)
}

func (m *MockStorage) AddPlayer(id string, p *player.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[id] = p
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState stores a copy so later mutations by the caller are not visible
func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	cp, err := copyGameState(gs)
	if err != nil {
		return err
	}
	m.gamestates[id] = cp
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gs, ok := m.gamestates[id]
	if !ok {
		return nil, nil
	}
	return copyGameState(gs)
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gamestates, id)
	return nil
}

func (m *MockStorage) ListSceneTemplates(ctx context.Context) ([]scene.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.templates), nil
}

func (m *MockStorage) GetSceneTemplate(ctx context.Context, idx int) (*scene.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx < 0 || idx >= len(m.templates) {
		return nil, fmt.Errorf("%w: index %d", ErrSceneNotFound, idx)
	}
	t := m.templates[idx]
	return &t, nil
}

func (m *MockStorage) ListPlayers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MockStorage) GetPlayer(ctx context.Context, id string) (*player.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	return p.Clone(), nil
}
