package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/storage"
)

// Player operations (filesystem-backed sheets under data/players)

func (r *RedisStorage) playersDir() string {
	return filepath.Join(r.dataDir, "players")
}

func (r *RedisStorage) GetPlayer(ctx context.Context, id string) (*player.Player, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid player id %q", id)
	}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(r.playersDir(), id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read player file: %w", err)
		}
		return decodePlayer(data, ext)
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrPlayerNotFound, id)
}

func decodePlayer(data []byte, ext string) (*player.Player, error) {
	var p player.Player
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal player sheet: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisStorage) ListPlayers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.playersDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read players directory: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		switch ext {
		case ".json", ".yaml", ".yml":
			id := strings.TrimSuffix(entry.Name(), ext)
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids, nil
}
