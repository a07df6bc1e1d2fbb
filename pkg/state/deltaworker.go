package state

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/dice"
)

// DeltaReport describes what applying a delta did.
type DeltaReport struct {
	Warnings    []string      // entries that could not be applied
	PartyChecks []dice.Result // stay tests rolled because the Goblin King appeared
	Ended       bool
}

// DeltaWorker applies a reducer delta to a game state. Invalid entries are
// skipped and reported; they never abort the rest of the delta.
type DeltaWorker struct {
	gs     *GameState
	delta  *Delta
	logger *slog.Logger
	now    time.Time
	rng    dice.Rand
}

func NewDeltaWorker(gs *GameState, delta *Delta, logger *slog.Logger) *DeltaWorker {
	return &DeltaWorker{
		gs:     gs,
		delta:  delta,
		logger: logger,
		now:    time.Now(),
	}
}

// WithClock sets the time used to start action scenes.
func (dw *DeltaWorker) WithClock(now time.Time) *DeltaWorker {
	dw.now = now
	return dw
}

// WithRand sets the dice used for party stay tests.
func (dw *DeltaWorker) WithRand(rng dice.Rand) *DeltaWorker {
	dw.rng = rng
	return dw
}

// Apply applies the delta in a fixed order: removals before additions so a
// full inventory can swap items, party leaves before joins, then the action
// scene, the Goblin King's appearance, and finally the scene outcome.
func (dw *DeltaWorker) Apply() *DeltaReport {
	report := &DeltaReport{}
	if dw.delta.IsEmpty() {
		return report
	}
	if dw.gs.IsEnded {
		report.Warnings = append(report.Warnings, "game has ended; changes ignored")
		return report
	}

	for _, u := range dw.delta.Players {
		dw.applyPlayer(u, report)
	}

	for _, npc := range dw.delta.PartyLeave {
		if err := dw.gs.LeaveParty(npc); err != nil {
			dw.warn(report, "party leave", err)
		}
	}
	for _, npc := range dw.delta.PartyJoin {
		if err := dw.gs.JoinParty(npc); err != nil {
			dw.warn(report, "party join", err)
		}
	}

	if c := dw.delta.ActionScene; c != nil {
		switch {
		case c.End:
			if err := dw.gs.EndActionScene(); err != nil {
				dw.warn(report, "action scene end", err)
			}
		case c.Start != "":
			if err := dw.gs.StartActionScene(c.Start, dw.now); err != nil {
				dw.warn(report, "action scene start", err)
			}
		}
	}

	if dw.delta.GoblinKingAppears && len(dw.gs.Party) > 0 {
		if dw.rng == nil {
			dw.rng = dice.NewRand(0)
		}
		report.PartyChecks = dw.gs.ResolvePartyStay(dw.rng)
	}

	if dw.delta.SceneOutcome != "" {
		outcome, err := ParseOutcome(dw.delta.SceneOutcome)
		if err != nil {
			dw.warn(report, "scene outcome", err)
		} else if err := dw.gs.EndScene(outcome); err != nil {
			dw.warn(report, "scene outcome", err)
		} else {
			report.Ended = true
			if dw.logger != nil {
				dw.logger.Info("Scene ended",
					"game_id", dw.gs.ID.String(),
					"outcome", string(outcome))
			}
		}
	}

	return report
}

func (dw *DeltaWorker) applyPlayer(u PlayerUpdate, report *DeltaReport) {
	p, err := dw.gs.Player(u.Name)
	if err != nil {
		dw.warn(report, "player update", err)
		return
	}
	for _, t := range u.RemoveTraits {
		if err := p.RemoveTraitByText(t); err != nil {
			dw.warn(report, "remove trait "+t, err)
		}
	}
	for _, f := range u.RemoveFlaws {
		if err := p.RemoveFlawByText(f); err != nil {
			dw.warn(report, "remove flaw "+f, err)
		}
	}
	for _, item := range u.RemoveItems {
		if err := p.RemoveItemByName(item); err != nil {
			dw.warn(report, "remove item "+item, err)
		}
	}
	for _, t := range u.AddTraits {
		p.AddTrait(t)
	}
	for _, f := range u.AddFlaws {
		p.AddFlaw(f)
	}
	for _, item := range u.AddItems {
		if err := p.AddItem(item.Name, item.Description); err != nil {
			dw.warn(report, fmt.Sprintf("%s cannot take %s", p.Name, item.Name), err)
		}
	}
}

func (dw *DeltaWorker) warn(report *DeltaReport, what string, err error) {
	msg := fmt.Sprintf("%s: %v", what, err)
	report.Warnings = append(report.Warnings, msg)
	if dw.logger != nil {
		dw.logger.Warn("Delta entry skipped",
			"game_id", dw.gs.ID.String(),
			"entry", what,
			"error", err)
	}
}

// ApplyDelta applies d without logging.
func (gs *GameState) ApplyDelta(d *Delta, now time.Time, rng dice.Rand) *DeltaReport {
	return NewDeltaWorker(gs, d, nil).WithClock(now).WithRand(rng).Apply()
}
