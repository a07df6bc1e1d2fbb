package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/rules"
)

// ActivePlayer returns the player whose turn it is, or nil without players.
func (gs *GameState) ActivePlayer() *player.Player {
	if len(gs.Players) == 0 {
		return nil
	}
	return gs.Players[gs.CurrentPlayer]
}

// AdvanceTurn hands the turn to the next player in order.
func (gs *GameState) AdvanceTurn(now time.Time) {
	if len(gs.Players) > 0 {
		gs.CurrentPlayer = (gs.CurrentPlayer + 1) % len(gs.Players)
	}
	gs.TurnCounter++
	gs.ActionsTaken = 0
	if gs.ActionScene != nil {
		gs.ActionScene.TurnStartedAt = now
	}
}

// RecordAction spends one action of the named player. An empty name means
// the current player.
func (gs *GameState) RecordAction(name string) error {
	if gs.IsEnded {
		return ErrGameEnded
	}
	if len(gs.Players) == 0 {
		return ErrNoPlayers
	}
	if name != "" {
		_, idx, err := gs.findPlayer(name)
		if err != nil {
			return err
		}
		if idx != gs.CurrentPlayer {
			return fmt.Errorf("%w: %s, it is %s's turn", ErrNotPlayersTurn, name, gs.ActivePlayer().Name)
		}
	}
	if gs.ActionsTaken >= rules.ActionsPerTurn {
		return ErrActionLimitReached
	}
	gs.ActionsTaken++
	return nil
}

// TurnDone reports whether the current player has used every action.
func (gs *GameState) TurnDone() bool {
	return gs.ActionsTaken >= rules.ActionsPerTurn
}

// StartActionScene begins an action scene. A player initiator takes the
// first turn; when the Goblin King starts it, the first player in order does.
func (gs *GameState) StartActionScene(initiator string, now time.Time) error {
	if gs.IsEnded {
		return ErrGameEnded
	}
	if gs.ActionScene != nil {
		return ErrActionSceneActive
	}
	initiator = strings.TrimSpace(initiator)
	if initiator == "" || strings.EqualFold(initiator, GoblinKing) {
		initiator = GoblinKing
		gs.CurrentPlayer = 0
	} else {
		p, idx, err := gs.findPlayer(initiator)
		if err != nil {
			return err
		}
		initiator = p.Name
		gs.CurrentPlayer = idx
	}
	gs.ActionsTaken = 0
	gs.ActionScene = &ActionScene{
		Initiator:     initiator,
		StartedAt:     now,
		TurnStartedAt: now,
	}
	return nil
}

func (gs *GameState) EndActionScene() error {
	if gs.ActionScene == nil {
		return ErrNoActionScene
	}
	gs.ActionScene = nil
	return nil
}

// TurnExpired reports whether the current action-scene turn ran past its limit.
// Outside action scenes turns are untimed.
func (gs *GameState) TurnExpired(now time.Time) bool {
	if gs.ActionScene == nil || gs.TurnTimeLimit <= 0 {
		return false
	}
	return now.Sub(gs.ActionScene.TurnStartedAt) > gs.TurnTimeLimit
}
