// Package rules holds the Labyrinth rule book and decides how much of it
// is handed to the Goblin King.
package rules

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/goblin-king/pkg/player"
)

// Limits enforced by the engine itself rather than left to the model.
const (
	MaxItems              = player.MaxItems
	ActionsPerTurn        = 1
	DefaultGameTimeLimit  = 60 * time.Minute
	DefaultTurnTimeLimit  = time.Minute
	PartyStayDifficulty   = 4
	RuleIntroduction      = "Here are the rules of the Labyrinth you should follow."
	RetrievedIntroduction = "Here are the rules of the Labyrinth related to the current message."
)

//go:embed rulebook.yaml
var rulebookYAML []byte

// Section is a titled group of rule lines.
type Section struct {
	Title string   `yaml:"title"`
	Lines []string `yaml:"lines"`
}

// Book is the full rule book.
type Book struct {
	Instruction []string  `yaml:"instruction"`
	Sections    []Section `yaml:"sections"`
}

// Default returns the built-in Labyrinth rule book.
func Default() *Book {
	b, err := Parse(rulebookYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule book is invalid: %v", err))
	}
	return b
}

// Parse decodes a YAML rule book.
func Parse(data []byte) (*Book, error) {
	var b Book
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse rule book: %w", err)
	}
	if len(b.Instruction) == 0 {
		return nil, fmt.Errorf("rule book has no instruction")
	}
	return &b, nil
}

// Lines returns every rule line, prefixed with its section title.
func (b *Book) Lines() []string {
	var out []string
	for _, s := range b.Sections {
		for _, l := range s.Lines {
			out = append(out, s.Title+": "+l)
		}
	}
	return out
}

// Summary joins each section's lines with spaces and the sections with newlines.
func (b *Book) Summary() string {
	parts := make([]string, len(b.Sections))
	for i, s := range b.Sections {
		parts[i] = strings.Join(s.Lines, " ")
	}
	return strings.Join(parts, "\n")
}

// Injection selects how the rule text reaches the model.
type Injection string

const (
	InjectionNone      Injection = "none"
	InjectionFull      Injection = "full"
	InjectionRetrieval Injection = "retrieval"
)

// ParseInjection accepts "", "none", "full" or "retrieval".
func ParseInjection(s string) (Injection, error) {
	switch Injection(strings.ToLower(strings.TrimSpace(s))) {
	case "", InjectionNone:
		return InjectionNone, nil
	case InjectionFull:
		return InjectionFull, nil
	case InjectionRetrieval:
		return InjectionRetrieval, nil
	default:
		return "", fmt.Errorf("unknown rule injection %q: use 'full', 'retrieval' or leave it empty", s)
	}
}

// SystemPrompt builds the Goblin King's system prompt. Only the full mode
// puts rule text here; retrieval adds excerpts per message instead.
func SystemPrompt(b *Book, mode Injection) string {
	prompt := strings.Join(b.Instruction, " ")
	if mode == InjectionFull {
		prompt = fmt.Sprintf("%s\n%s\n%s", prompt, RuleIntroduction, b.Summary())
	}
	return prompt
}
