package player

import (
	"errors"
	"fmt"
	"strings"
)

// MaxItems is the number of items a player can carry in the Labyrinth.
const MaxItems = 6

var (
	ErrInventoryFull   = errors.New("inventory is full")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrItemNotFound    = errors.New("item not found")
	ErrTraitNotFound   = errors.New("trait not found")
	ErrFlawNotFound    = errors.New("flaw not found")
)

// Item is a single inventory entry on the character sheet.
type Item struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Player is a Labyrinth player character, following the printed character sheet.
type Player struct {
	Name    string   `json:"name" yaml:"name"`
	Kin     string   `json:"kin" yaml:"kin"`
	Persona []string `json:"persona" yaml:"persona"`
	Goal    string   `json:"goal" yaml:"goal"`
	Traits  []string `json:"traits" yaml:"traits"`
	Flaws   []string `json:"flaws" yaml:"flaws"`
	Items   []Item   `json:"items" yaml:"items"`
}

// Validate checks the fields every sheet must carry.
func (p *Player) Validate() error {
	if p == nil {
		return fmt.Errorf("player cannot be nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	if strings.TrimSpace(p.Kin) == "" {
		return fmt.Errorf("player %s: kin is required", p.Name)
	}
	if len(p.Items) > MaxItems {
		return fmt.Errorf("player %s: %d items exceeds the limit of %d", p.Name, len(p.Items), MaxItems)
	}
	return nil
}

func numbered(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = fmt.Sprintf("(%d) %s", i+1, line)
	}
	return out
}

// PersonaLines returns the persona sentences numbered from 1.
func (p *Player) PersonaLines() []string { return numbered(p.Persona) }

// TraitLines returns the traits numbered from 1.
func (p *Player) TraitLines() []string { return numbered(p.Traits) }

// FlawLines returns the flaws numbered from 1.
func (p *Player) FlawLines() []string { return numbered(p.Flaws) }

// ItemLines returns the items numbered from 1 as "name: description".
func (p *Player) ItemLines() []string {
	out := make([]string, len(p.Items))
	for i, item := range p.Items {
		out[i] = fmt.Sprintf("(%d) %s: %s", i+1, item.Name, item.Description)
	}
	return out
}

// Sheet renders the character sheet as plain text.
func (p *Player) Sheet() string {
	var sb strings.Builder
	sb.WriteString("NAME: " + p.Name + "\n")
	sb.WriteString("KIN: " + p.Kin + "\n")
	sb.WriteString("PERSONA\n")
	writeLines(&sb, p.PersonaLines())
	sb.WriteString("GOAL: " + p.Goal + "\n")
	sb.WriteString("TRAITS\n")
	writeLines(&sb, p.TraitLines())
	sb.WriteString("FLAWS\n")
	writeLines(&sb, p.FlawLines())
	sb.WriteString("ITEMS\n")
	writeLines(&sb, p.ItemLines())
	return sb.String()
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, line := range lines {
		sb.WriteString(line + "\n")
	}
}

func (p *Player) AddTrait(trait string) {
	p.Traits = append(p.Traits, trait)
}

func (p *Player) AddFlaw(flaw string) {
	p.Flaws = append(p.Flaws, flaw)
}

// AddItem puts an item in the player's inventory.
// A full inventory is left untouched; the player has to drop something first.
func (p *Player) AddItem(name, description string) error {
	if len(p.Items) >= MaxItems {
		return fmt.Errorf("%s cannot take %q: %w", p.Name, name, ErrInventoryFull)
	}
	p.Items = append(p.Items, Item{Name: name, Description: description})
	return nil
}

func (p *Player) RemoveTrait(idx int) error {
	traits, err := removeAt(p.Traits, idx)
	if err != nil {
		return fmt.Errorf("remove trait: %w", err)
	}
	p.Traits = traits
	return nil
}

func (p *Player) RemoveFlaw(idx int) error {
	flaws, err := removeAt(p.Flaws, idx)
	if err != nil {
		return fmt.Errorf("remove flaw: %w", err)
	}
	p.Flaws = flaws
	return nil
}

func (p *Player) RemoveItem(idx int) error {
	items, err := removeAt(p.Items, idx)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	p.Items = items
	return nil
}

// RemoveItemByName drops the first item whose name matches, ignoring case.
func (p *Player) RemoveItemByName(name string) error {
	for i, item := range p.Items {
		if strings.EqualFold(item.Name, name) {
			return p.RemoveItem(i)
		}
	}
	return fmt.Errorf("%s has no %q: %w", p.Name, name, ErrItemNotFound)
}

// RemoveTraitByText drops the first trait equal to text, ignoring case.
func (p *Player) RemoveTraitByText(text string) error {
	for i, trait := range p.Traits {
		if strings.EqualFold(trait, text) {
			return p.RemoveTrait(i)
		}
	}
	return fmt.Errorf("%s has no trait %q: %w", p.Name, text, ErrTraitNotFound)
}

// RemoveFlawByText drops the first flaw equal to text, ignoring case.
func (p *Player) RemoveFlawByText(text string) error {
	for i, flaw := range p.Flaws {
		if strings.EqualFold(flaw, text) {
			return p.RemoveFlaw(i)
		}
	}
	return fmt.Errorf("%s has no flaw %q: %w", p.Name, text, ErrFlawNotFound)
}

// removeAt returns a new slice without element idx. The input is not modified.
func removeAt[T any](s []T, idx int) ([]T, error) {
	if idx < 0 || idx >= len(s) {
		return s, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, idx, len(s))
	}
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:idx]...)
	return append(out, s[idx+1:]...), nil
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.Persona = append([]string(nil), p.Persona...)
	c.Traits = append([]string(nil), p.Traits...)
	c.Flaws = append([]string(nil), p.Flaws...)
	c.Items = append([]Item(nil), p.Items...)
	return &c
}
