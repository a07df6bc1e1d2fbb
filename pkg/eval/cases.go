package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/goblin-king/pkg/player"
)

// Case is one scripted player message for the response evaluation.
type Case struct {
	Name        string `json:"name" yaml:"name"`
	Player      string `json:"player" yaml:"player"`
	Message     string `json:"message" yaml:"message"`
	Expectation string `json:"expectation,omitempty" yaml:"expectation,omitempty"` // shown to the grader
}

// CaseFile is a response evaluation script: the party, the scene to play
// and the messages to send in order.
type CaseFile struct {
	SceneIndex int              `json:"scene_index" yaml:"scene_index"`
	Players    []*player.Player `json:"players" yaml:"players"`
	Cases      []Case           `json:"cases" yaml:"cases"`
}

// LoadCases reads a .json, .yaml or .yml case file.
func LoadCases(path string) (*CaseFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	var cf CaseFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cf)
	case ".json":
		err = json.Unmarshal(data, &cf)
	default:
		return nil, fmt.Errorf("unsupported case file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse case file: %w", err)
	}
	if len(cf.Players) == 0 {
		return nil, fmt.Errorf("case file has no players")
	}
	for i, c := range cf.Cases {
		if strings.TrimSpace(c.Message) == "" {
			return nil, fmt.Errorf("case %d has no message", i+1)
		}
	}
	return &cf, nil
}
