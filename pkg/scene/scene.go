package scene

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/goblin-king/pkg/dice"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrUnknownTable = errors.New("unknown random table")

// NPC is a non-player character generated for a scene.
type NPC struct {
	Kin     string   `json:"kin"`
	Persona []string `json:"persona"`
	Goal    string   `json:"goal"`
	Trait   string   `json:"trait"`
	Flaw    string   `json:"flaw"`
}

// Scene is an initialized scene: the template plus everything the Goblin
// King generated for it.
type Scene struct {
	Chapter          string              `json:"chapter"`
	Scene            string              `json:"scene"`
	SceneSummary     []string            `json:"scene_summary"`
	NPCs             map[string]NPC      `json:"npcs"`
	GenerationRules  []string            `json:"generation_rules"`
	SuccessCondition string              `json:"success_condition"`
	FailureCondition string              `json:"failure_condition"`
	GameFlow         []string            `json:"game_flow"`
	Environment      map[string]string   `json:"environment"`
	RandomTables     map[string][]string `json:"random_tables"`
	Consequences     string              `json:"consequences"`
}

// New combines a template with the generated details.
func New(tmpl Template, gen *Generated) *Scene {
	s := &Scene{
		Chapter:      tmpl.Chapter,
		Scene:        tmpl.Scene,
		SceneSummary: slices.Clone(tmpl.SceneSummary),
		RandomTables: maps.Clone(tmpl.RandomTables),
		Consequences: tmpl.Consequences,
	}
	if s.RandomTables == nil {
		s.RandomTables = map[string][]string{}
	}
	if gen != nil {
		s.NPCs = gen.NPCs
		s.GenerationRules = gen.GenerationRules
		s.SuccessCondition = gen.SuccessCondition
		s.FailureCondition = gen.FailureCondition
		s.GameFlow = gen.GameFlow
		s.Environment = gen.Environment
	}
	if s.NPCs == nil {
		s.NPCs = map[string]NPC{}
	}
	if s.Environment == nil {
		s.Environment = map[string]string{}
	}
	return s
}

// HasNPC reports whether name is one of the scene's NPCs, ignoring case.
// It returns the canonical name.
func (s *Scene) HasNPC(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	for n := range s.NPCs {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// Draw picks a random entry from one of the scene's random tables.
func (s *Scene) Draw(table string, rng dice.Rand) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: no scene", ErrUnknownTable)
	}
	entries, ok := s.RandomTables[table]
	if !ok || len(entries) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return entries[rng.IntN(len(entries))], nil
}

// Show renders the scene for a human reader.
func (s *Scene) Show() string {
	if s == nil {
		return "No scene has been initialized."
	}
	title := cases.Title(language.English)

	var sb strings.Builder
	fmt.Fprintf(&sb, "CHAPTER: %s\n", s.Chapter)
	fmt.Fprintf(&sb, "SCENE: %s\n", s.Scene)
	sb.WriteString("SUMMARY\n")
	for _, line := range s.SceneSummary {
		sb.WriteString(line + "\n")
	}

	sb.WriteString("NPCS\n")
	for _, name := range slices.Sorted(maps.Keys(s.NPCs)) {
		npc := s.NPCs[name]
		fmt.Fprintf(&sb, "%s (%s)\n", name, title.String(npc.Kin))
		for i, p := range npc.Persona {
			fmt.Fprintf(&sb, "  (%d) %s\n", i+1, p)
		}
		fmt.Fprintf(&sb, "  Goal: %s\n  Trait: %s\n  Flaw: %s\n", npc.Goal, npc.Trait, npc.Flaw)
	}

	writeNumbered(&sb, "GENERATION RULES", s.GenerationRules)
	fmt.Fprintf(&sb, "SUCCESS CONDITION: %s\n", s.SuccessCondition)
	fmt.Fprintf(&sb, "FAILURE CONDITION: %s\n", s.FailureCondition)
	writeNumbered(&sb, "GAME FLOW", s.GameFlow)

	sb.WriteString("ENVIRONMENT\n")
	for i, obj := range slices.Sorted(maps.Keys(s.Environment)) {
		fmt.Fprintf(&sb, "(%d) %s: %s\n", i+1, obj, s.Environment[obj])
	}

	if len(s.RandomTables) > 0 {
		sb.WriteString("RANDOM TABLES\n")
		for _, name := range slices.Sorted(maps.Keys(s.RandomTables)) {
			fmt.Fprintf(&sb, "%s: %s\n", name, strings.Join(s.RandomTables[name], " / "))
		}
	}
	if s.Consequences != "" {
		fmt.Fprintf(&sb, "CONSEQUENCES: %s\n", s.Consequences)
	}
	return sb.String()
}

func writeNumbered(sb *strings.Builder, heading string, lines []string) {
	sb.WriteString(heading + "\n")
	for i, line := range lines {
		fmt.Fprintf(sb, "(%d) %s\n", i+1, line)
	}
}
