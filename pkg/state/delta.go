package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

// Delta is a compact description of what changed during one round of play.
// The reducer model writes it after each narration; it is much faster to
// generate than a full game state.
type Delta struct {
	Players           []PlayerUpdate     `json:"players,omitempty"`
	PartyJoin         []string           `json:"party_join,omitempty"`
	PartyLeave        []string           `json:"party_leave,omitempty"`
	ActionScene       *ActionSceneChange `json:"action_scene,omitempty"`
	GoblinKingAppears bool               `json:"goblin_king_appears,omitempty"`
	SceneOutcome      string             `json:"scene_outcome,omitempty"` // "success" or "failure"
}

// PlayerUpdate lists sheet changes for one player.
type PlayerUpdate struct {
	Name         string        `json:"name"`
	AddTraits    []string      `json:"add_traits,omitempty"`
	RemoveTraits []string      `json:"remove_traits,omitempty"`
	AddFlaws     []string      `json:"add_flaws,omitempty"`
	RemoveFlaws  []string      `json:"remove_flaws,omitempty"`
	AddItems     []player.Item `json:"add_items,omitempty"`
	RemoveItems  []string      `json:"remove_items,omitempty"`
}

// ActionSceneChange starts or ends an action scene.
type ActionSceneChange struct {
	Start string `json:"start,omitempty"` // initiator: a player name or "Goblin King"
	End   bool   `json:"end,omitempty"`
}

// IsEmpty checks if the Delta changes nothing.
func (d *Delta) IsEmpty() bool {
	return d == nil || (len(d.Players) == 0 &&
		len(d.PartyJoin) == 0 &&
		len(d.PartyLeave) == 0 &&
		d.ActionScene == nil &&
		!d.GoblinKingAppears &&
		d.SceneOutcome == "")
}

// ParseDelta extracts and decodes a Delta from model output. Unknown keys
// and wrongly typed values are rejected.
func ParseDelta(raw string) (*Delta, error) {
	obj := scene.ExtractJSON(raw)
	if obj == "" {
		return nil, fmt.Errorf("no json object in reducer output")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.DisallowUnknownFields()
	var d Delta
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("invalid delta: %w", err)
	}
	if d.SceneOutcome != "" {
		if _, err := ParseOutcome(d.SceneOutcome); err != nil {
			return nil, err
		}
	}
	if d.ActionScene != nil && d.ActionScene.End && strings.TrimSpace(d.ActionScene.Start) != "" {
		return nil, fmt.Errorf("invalid delta: action_scene cannot both start and end")
	}
	for i, u := range d.Players {
		if strings.TrimSpace(u.Name) == "" {
			return nil, fmt.Errorf("invalid delta: players[%d] has no name", i)
		}
	}
	return &d, nil
}
