package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/goblin-king/pkg/dice"
	"github.com/jwebster45206/goblin-king/pkg/rules"
)

// JoinParty adds a scene NPC to the party.
func (gs *GameState) JoinParty(npc string) error {
	if gs.Scene == nil {
		return ErrNoScene
	}
	name, ok := gs.Scene.HasNPC(npc)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNPC, npc)
	}
	if gs.InParty(name) {
		return fmt.Errorf("%w: %s", ErrAlreadyInParty, name)
	}
	gs.Party = append(gs.Party, name)
	return nil
}

func (gs *GameState) LeaveParty(npc string) error {
	idx := slices.IndexFunc(gs.Party, func(n string) bool { return strings.EqualFold(n, npc) })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotInParty, npc)
	}
	gs.Party = slices.Delete(slices.Clone(gs.Party), idx, idx+1)
	return nil
}

func (gs *GameState) InParty(npc string) bool {
	return slices.ContainsFunc(gs.Party, func(n string) bool { return strings.EqualFold(n, npc) })
}

// ResolvePartyStay rolls the stay test every party NPC faces when the
// Goblin King appears. NPCs that fail leave the party.
func (gs *GameState) ResolvePartyStay(rng dice.Rand) []dice.Result {
	results := make([]dice.Result, 0, len(gs.Party))
	kept := make([]string, 0, len(gs.Party))
	for _, npc := range gs.Party {
		res, err := dice.Test{Player: npc, Difficulty: rules.PartyStayDifficulty}.Resolve(rng)
		if err != nil {
			// PartyStayDifficulty is a valid constant
			kept = append(kept, npc)
			continue
		}
		results = append(results, res)
		if res.Success {
			kept = append(kept, npc)
		}
	}
	gs.Party = kept
	return results
}
