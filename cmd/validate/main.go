package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <data dir | scenes file | player sheet>...\n", os.Args[0])
		os.Exit(1)
	}

	validator := &DataValidator{}
	failed := false
	for _, path := range os.Args[1:] {
		if err := validator.validatePath(path); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("Data files are valid!")
}

// DataValidator checks scene books, player sheets and rule books strictly:
// unknown fields are errors.
type DataValidator struct {
	errors []string
}

func (v *DataValidator) validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return v.validateDataDir(path)
	}
	switch {
	case isScenesFile(path):
		return v.validateScenesFile(path)
	case strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) == "rules":
		return v.validateRulesFile(path)
	default:
		return v.validatePlayerFile(path)
	}
}

func isScenesFile(path string) bool {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) == "scenes"
}

// validateDataDir checks the scenes file, an optional rules.yaml and every
// sheet under players/.
func (v *DataValidator) validateDataDir(dir string) error {
	var errs []string
	found := false
	for _, name := range []string{"scenes.json", "scenes.yaml", "scenes.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		found = true
		if err := v.validateScenesFile(path); err != nil {
			errs = append(errs, err.Error())
		}
		break
	}
	if !found {
		errs = append(errs, fmt.Sprintf("no scenes file in %s", dir))
	}

	if _, err := os.Stat(filepath.Join(dir, "rules.yaml")); err == nil {
		if err := v.validateRulesFile(filepath.Join(dir, "rules.yaml")); err != nil {
			errs = append(errs, err.Error())
		}
	}

	sheets, _ := filepath.Glob(filepath.Join(dir, "players", "*"))
	for _, sheet := range sheets {
		if err := v.validatePlayerFile(sheet); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (v *DataValidator) validateScenesFile(path string) error {
	fmt.Printf("Validating %s...\n", path)
	v.errors = nil

	var templates []scene.Template
	if err := decodeStrict(path, &templates); err != nil {
		return err
	}
	if len(templates) == 0 {
		return fmt.Errorf("%s contains no scenes", path)
	}

	seen := make(map[string]int)
	for i, t := range templates {
		if err := t.Validate(); err != nil {
			v.addError(fmt.Sprintf("scene %d: %v", i, err))
		}
		key := t.Chapter + "/" + t.Scene
		if prev, ok := seen[key]; ok {
			v.addError(fmt.Sprintf("scene %d duplicates scene %d (%s)", i, prev, key))
		}
		seen[key] = i
		for table := range t.RandomTables {
			if !isValidID(table) {
				v.addError(fmt.Sprintf("scene %d: random table '%s' should be lowercase snake_case", i, table))
			}
		}
		if _, err := scene.InitPrompt(t); err != nil {
			v.addError(fmt.Sprintf("scene %d: cannot build init prompt: %v", i, err))
		}
	}
	return v.result(path)
}

func (v *DataValidator) validatePlayerFile(path string) error {
	fmt.Printf("Validating %s...\n", path)
	v.errors = nil

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !isValidID(id) {
		return fmt.Errorf("player filename '%s' must be lowercase snake_case (e.g., sarah.json)", filepath.Base(path))
	}

	var p player.Player
	if err := decodeStrict(path, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		v.addError(err.Error())
	}
	if len(p.Traits) == 0 {
		v.addError(fmt.Sprintf("player %s has no traits", p.Name))
	}
	if strings.TrimSpace(p.Goal) == "" {
		v.addError(fmt.Sprintf("player %s has no goal", p.Name))
	}
	return v.result(path)
}

func (v *DataValidator) validateRulesFile(path string) error {
	fmt.Printf("Validating %s...\n", path)
	v.errors = nil

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	book, err := rules.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for i, s := range book.Sections {
		if strings.TrimSpace(s.Title) == "" {
			v.addError(fmt.Sprintf("section %d has no title", i))
		}
		if len(s.Lines) == 0 {
			v.addError(fmt.Sprintf("section '%s' has no lines", s.Title))
		}
	}
	return v.result(path)
}

func (v *DataValidator) result(path string) error {
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", path, strings.Join(v.errors, "\n"))
	}
	return nil
}

// decodeStrict decodes JSON or YAML by extension, rejecting unknown fields.
func decodeStrict(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if !json.Valid(data) {
			return fmt.Errorf("file %s contains invalid JSON", path)
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(out); err != nil {
			return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", path, err)
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(out); err != nil {
			return fmt.Errorf("file %s failed strict YAML unmarshaling: %w", path, err)
		}
	default:
		return fmt.Errorf("file %s must be .json, .yaml or .yml", path)
	}
	return nil
}

func (v *DataValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
