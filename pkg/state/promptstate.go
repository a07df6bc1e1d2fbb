package state

import (
	"time"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

// PromptState is a reduced game state for LLM prompts. Chat history and
// bookkeeping fields are left out; they travel as messages.
type PromptState struct {
	Scene         *scene.Scene     `json:"scene,omitempty"`
	Players       []*player.Player `json:"players"`
	Party         []string         `json:"party"`
	CurrentPlayer string           `json:"current_player,omitempty"`
	ActionScene   *PromptAction    `json:"action_scene,omitempty"`
	TimeRemaining string           `json:"time_remaining,omitempty"`
	Outcome       string           `json:"outcome,omitempty"`
	IsEnded       bool             `json:"is_ended"`
}

// PromptAction is the running action scene as the model sees it.
type PromptAction struct {
	Initiator         string `json:"initiator"`
	TurnTimeRemaining string `json:"turn_time_remaining"`
}

func ToPromptState(gs *GameState, now time.Time) *PromptState {
	ps := &PromptState{
		Scene:   gs.Scene,
		Players: gs.Players,
		Party:   gs.Party,
		Outcome: string(gs.Outcome),
		IsEnded: gs.IsEnded,
	}
	if ps.Party == nil {
		ps.Party = []string{}
	}
	if p := gs.ActivePlayer(); p != nil {
		ps.CurrentPlayer = p.Name
	}
	if gs.TimeLimit > 0 {
		ps.TimeRemaining = gs.RemainingTime(now).Round(time.Second).String()
	}
	if gs.ActionScene != nil {
		ps.ActionScene = &PromptAction{
			Initiator:         gs.ActionScene.Initiator,
			TurnTimeRemaining: gs.ActionScene.Remaining(now, gs.TurnTimeLimit).Round(time.Second).String(),
		}
	}
	return ps
}
