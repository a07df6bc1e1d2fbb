package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is a scene as written in the scenario book, before the Goblin
// King fills in the concrete NPCs, conditions and environment.
type Template struct {
	Chapter          string              `json:"chapter" yaml:"chapter"`
	Scene            string              `json:"scene" yaml:"scene"`
	SceneSummary     []string            `json:"scene_summary" yaml:"scene_summary"`
	NPCIngredients   map[string][]string `json:"npc_ingredients,omitempty" yaml:"npc_ingredients,omitempty"` // kin -> ingredients for generating NPCs
	SuccessCondition string              `json:"success_condition,omitempty" yaml:"success_condition,omitempty"`
	FailureCondition string              `json:"failure_condition,omitempty" yaml:"failure_condition,omitempty"`
	GameFlow         []string            `json:"game_flow,omitempty" yaml:"game_flow,omitempty"`
	Environment      []string            `json:"environment,omitempty" yaml:"environment,omitempty"`
	RandomTables     map[string][]string `json:"random_tables,omitempty" yaml:"random_tables,omitempty"`
	Consequences     string              `json:"consequences,omitempty" yaml:"consequences,omitempty"`
}

// Validate checks the fields every template needs.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Chapter) == "" {
		return fmt.Errorf("chapter is required")
	}
	if strings.TrimSpace(t.Scene) == "" {
		return fmt.Errorf("scene is required")
	}
	if len(t.SceneSummary) == 0 {
		return fmt.Errorf("scene %q: scene_summary is required", t.Scene)
	}
	for name, entries := range t.RandomTables {
		if len(entries) == 0 {
			return fmt.Errorf("scene %q: random table %q is empty", t.Scene, name)
		}
	}
	return nil
}

// LoadTemplates reads a list of scene templates from a .json, .yaml or .yml file.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read scenes file: %w", err)
	}
	return DecodeTemplates(data, filepath.Ext(path))
}

// DecodeTemplates decodes a list of templates; ext selects the format.
func DecodeTemplates(data []byte, ext string) ([]Template, error) {
	var templates []Template
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse scenes yaml: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse scenes json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenes file extension: %s", ext)
	}
	return templates, nil
}
