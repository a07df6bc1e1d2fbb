package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/prompts"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

// PlayRound handles one player message: it spends the player's action,
// gets the Goblin King's narration, applies the resulting state changes and
// passes the turn on when the player is done.
func (m *Manager) PlayRound(ctx context.Context, playerName, message string) (*RoundResult, error) {
	gs := m.gs
	now := m.opts.Now()
	log := m.logger.With("game_id", gs.ID.String())

	if gs.IsEnded {
		return nil, state.ErrGameEnded
	}
	if len(gs.Players) == 0 {
		return nil, state.ErrNoPlayers
	}
	gs.StartClock(now)

	result := &RoundResult{}

	if gs.TimeUp(now) {
		log.Info("Game clock ran out")
		if err := gs.EndScene(state.OutcomeFailure); err != nil {
			return nil, err
		}
		result.Notes = append(result.Notes, "Time is up. The thirteen hours have passed.")
		closing, err := m.closingNarration(ctx)
		if err != nil {
			return nil, err
		}
		result.Response = closing
		m.finish(result, now)
		return result, nil
	}

	if gs.TurnExpired(now) {
		late := gs.ActivePlayer().Name
		gs.AdvanceTurn(now)
		gs.Touch(now)
		log.Info("Action scene turn expired", "player", late, "next", gs.ActivePlayer().Name)
		return nil, fmt.Errorf("%w: %s ran out of time, it is now %s's turn", state.ErrTurnExpired, late, gs.ActivePlayer().Name)
	}

	if playerName == "" {
		playerName = gs.ActivePlayer().Name
	}
	if err := gs.RecordAction(playerName); err != nil {
		return nil, err
	}
	actor := gs.ActivePlayer().Name

	var notices []string
	if notice, ok := gs.TimeNotice(now); ok {
		notices = append(notices, notice)
		result.Notes = append(result.Notes, notice)
	}

	narration, err := m.chatRound(ctx, actor, message, notices...)
	if err != nil {
		gs.ActionsTaken--
		return nil, err
	}
	result.Response = narration
	gs.Rounds++

	// narration can take a while; later steps read the clock again
	report, err := m.reduce(ctx, chat.PlayerMessage(actor, message), narration, m.opts.Now())
	if err != nil {
		log.Warn("State update skipped", "error", err)
		result.Warnings = append(result.Warnings, "state update skipped: "+err.Error())
	} else {
		result.Warnings = append(result.Warnings, report.Warnings...)
		result.PartyChecks = report.PartyChecks
		for _, check := range report.PartyChecks {
			gs.AppendMessage(chat.ChatRoleSystem, check.String())
			result.Notes = append(result.Notes, check.String())
		}
	}

	if gs.IsEnded {
		closing, err := m.closingNarration(ctx)
		if err != nil {
			log.Warn("Closing narration failed", "error", err)
		} else {
			result.Response += "\n\n" + closing
		}
	}

	if m.opts.Summarization && m.summaryDue() {
		if err := m.summarize(ctx); err != nil {
			log.Warn("Summarization failed", "error", err)
			result.Warnings = append(result.Warnings, "summary skipped: "+err.Error())
		}
	}

	done := m.opts.Now()
	if !gs.IsEnded && gs.TurnDone() {
		gs.AdvanceTurn(done)
	}
	m.finish(result, done)
	return result, nil
}

func (m *Manager) finish(result *RoundResult, now time.Time) {
	result.Outcome = m.gs.Outcome
	result.Ended = m.gs.IsEnded
	if !m.gs.IsEnded {
		if p := m.gs.ActivePlayer(); p != nil {
			result.NextPlayer = p.Name
		}
	}
	m.gs.Touch(now)
}

// reduce asks the reducer model what changed and applies it.
func (m *Manager) reduce(ctx context.Context, playerMessage, narration string, now time.Time) (*state.DeltaReport, error) {
	messages, err := prompts.BuildReducerMessages(m.gs, playerMessage, narration, now)
	if err != nil {
		return nil, err
	}
	resp, err := m.reducer.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("reducer request failed: %w", err)
	}
	delta, err := state.ParseDelta(resp.Message)
	if err != nil {
		return nil, err
	}
	return state.NewDeltaWorker(m.gs, delta, m.logger).
		WithClock(now).
		WithRand(m.opts.Rand).
		Apply(), nil
}

// closingNarration asks the Goblin King to wrap up an ended scene.
func (m *Manager) closingNarration(ctx context.Context) (string, error) {
	return m.chatRound(ctx, "", "")
}

func (m *Manager) summaryDue() bool {
	if m.opts.SummPeriod <= 0 {
		return true
	}
	return m.gs.Rounds%m.opts.SummPeriod == 0
}

// summarize condenses the history recorded since the last summary.
func (m *Manager) summarize(ctx context.Context) error {
	pending := m.gs.Unsummarized()
	if len(pending) == 0 {
		return nil
	}
	resp, err := m.reducer.Chat(ctx, prompts.BuildSummaryMessages(pending))
	if err != nil {
		return fmt.Errorf("summary request failed: %w", err)
	}
	m.gs.AddSummary(resp.Message, m.opts.ClearRawLogs)
	m.logger.Debug("History summarized",
		"game_id", m.gs.ID.String(),
		"summaries", len(m.gs.Summaries),
		"cleared", m.opts.ClearRawLogs)
	return nil
}
