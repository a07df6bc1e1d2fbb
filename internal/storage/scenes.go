package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// sceneFiles are tried in order inside the data directory.
var sceneFiles = []string{"scenes.json", "scenes.yaml", "scenes.yml"}

// ScenesPath returns the first scene list found under dataDir.
func ScenesPath(dataDir string) (string, error) {
	for _, name := range sceneFiles {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no scenes file in %s", dataDir)
}

func (r *RedisStorage) ListSceneTemplates(ctx context.Context) ([]scene.Template, error) {
	path, err := ScenesPath(r.dataDir)
	if err != nil {
		return nil, err
	}
	templates, err := scene.LoadTemplates(path)
	if err != nil {
		r.logger.Error("Failed to load scene templates", "path", path, "error", err)
		return nil, err
	}
	return templates, nil
}

func (r *RedisStorage) GetSceneTemplate(ctx context.Context, idx int) (*scene.Template, error) {
	templates, err := r.ListSceneTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(templates) {
		return nil, fmt.Errorf("%w: index %d of %d", storage.ErrSceneNotFound, idx, len(templates))
	}
	t := templates[idx]
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene template %d: %w", idx, err)
	}
	return &t, nil
}

// IsNotFound reports whether err means a missing scene or player.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrSceneNotFound) || errors.Is(err, storage.ErrPlayerNotFound)
}
