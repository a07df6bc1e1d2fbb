package state

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

var t0 = time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

func newTestGame(t *testing.T) *GameState {
	t.Helper()
	gs := NewGameState()
	for _, p := range []*player.Player{
		{Name: "Sarah", Kin: "human", Traits: []string{"Brave"}, Flaws: []string{"Impatient"}},
		{Name: "Hoggle", Kin: "dwarf", Traits: []string{"Knows the Labyrinth"}},
	} {
		if err := gs.AddPlayer(p); err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}
	gs.LoadScene(0, &scene.Scene{
		Chapter: "Chapter 1",
		Scene:   "The Worm",
		NPCs: map[string]scene.NPC{
			"The Worm":  {Kin: "worm"},
			"Mrs. Worm": {Kin: "worm"},
		},
	})
	return gs
}

func TestNewGameState(t *testing.T) {
	gs := NewGameState()
	if gs.ID == uuid.Nil {
		t.Error("Expected a generated ID")
	}
	if gs.TimeLimit != rules.DefaultGameTimeLimit {
		t.Errorf("Expected time limit %v, got %v", rules.DefaultGameTimeLimit, gs.TimeLimit)
	}
	if gs.TurnTimeLimit != rules.DefaultTurnTimeLimit {
		t.Errorf("Expected turn limit %v, got %v", rules.DefaultTurnTimeLimit, gs.TurnTimeLimit)
	}
	if err := gs.Validate(); err != nil {
		t.Errorf("Expected a valid state, got %v", err)
	}
}

func TestGameState_AddPlayer(t *testing.T) {
	gs := newTestGame(t)
	err := gs.AddPlayer(&player.Player{Name: "sarah", Kin: "human"})
	if !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("Expected ErrDuplicatePlayer, got %v", err)
	}
	if err := gs.AddPlayer(&player.Player{Name: "Ludo"}); err == nil {
		t.Error("Expected validation error for a player without kin")
	}
	if len(gs.Players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(gs.Players))
	}
	p, err := gs.Player("HOGGLE")
	if err != nil || p.Name != "Hoggle" {
		t.Errorf("Expected case-insensitive lookup, got %v, %v", p, err)
	}
}

func TestGameState_Turns(t *testing.T) {
	gs := newTestGame(t)

	if gs.ActivePlayer().Name != "Sarah" {
		t.Fatalf("Expected Sarah to start, got %s", gs.ActivePlayer().Name)
	}
	if err := gs.RecordAction("Hoggle"); !errors.Is(err, ErrNotPlayersTurn) {
		t.Errorf("Expected ErrNotPlayersTurn, got %v", err)
	}
	if err := gs.RecordAction("Jareth"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
	if err := gs.RecordAction("sarah"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !gs.TurnDone() {
		t.Error("Expected turn to be done after one action")
	}
	if err := gs.RecordAction(""); !errors.Is(err, ErrActionLimitReached) {
		t.Errorf("Expected ErrActionLimitReached, got %v", err)
	}

	gs.AdvanceTurn(t0)
	if gs.ActivePlayer().Name != "Hoggle" {
		t.Errorf("Expected Hoggle's turn, got %s", gs.ActivePlayer().Name)
	}
	if gs.TurnCounter != 1 || gs.ActionsTaken != 0 {
		t.Errorf("Expected counter 1 and no actions, got %d and %d", gs.TurnCounter, gs.ActionsTaken)
	}
	gs.AdvanceTurn(t0)
	if gs.ActivePlayer().Name != "Sarah" {
		t.Errorf("Expected turn order to wrap, got %s", gs.ActivePlayer().Name)
	}

	if err := gs.EndScene(OutcomeSuccess); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := gs.RecordAction(""); !errors.Is(err, ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded, got %v", err)
	}
}

func TestGameState_RecordActionWithoutPlayers(t *testing.T) {
	gs := NewGameState()
	if err := gs.RecordAction(""); !errors.Is(err, ErrNoPlayers) {
		t.Errorf("Expected ErrNoPlayers, got %v", err)
	}
}

func TestGameState_ActionScene(t *testing.T) {
	gs := newTestGame(t)

	if err := gs.EndActionScene(); !errors.Is(err, ErrNoActionScene) {
		t.Errorf("Expected ErrNoActionScene, got %v", err)
	}
	if gs.TurnExpired(t0.Add(time.Hour)) {
		t.Error("Turns outside action scenes are untimed")
	}

	if err := gs.StartActionScene("hoggle", t0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gs.ActivePlayer().Name != "Hoggle" {
		t.Errorf("Initiating player should act first, got %s", gs.ActivePlayer().Name)
	}
	if gs.ActionScene.Initiator != "Hoggle" {
		t.Errorf("Expected canonical initiator, got %q", gs.ActionScene.Initiator)
	}
	if err := gs.StartActionScene(GoblinKing, t0); !errors.Is(err, ErrActionSceneActive) {
		t.Errorf("Expected ErrActionSceneActive, got %v", err)
	}

	if got := gs.ActionScene.Remaining(t0.Add(20*time.Second), gs.TurnTimeLimit); got != 40*time.Second {
		t.Errorf("Expected 40s remaining, got %v", got)
	}
	if gs.TurnExpired(t0.Add(time.Minute)) {
		t.Error("Turn should not expire at exactly the limit")
	}
	if !gs.TurnExpired(t0.Add(61 * time.Second)) {
		t.Error("Expected turn to expire after the limit")
	}

	gs.AdvanceTurn(t0.Add(61 * time.Second))
	if gs.TurnExpired(t0.Add(90 * time.Second)) {
		t.Error("A new turn restarts the turn timer")
	}

	if err := gs.EndActionScene(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := gs.StartActionScene("", t0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gs.ActionScene.Initiator != GoblinKing || gs.CurrentPlayer != 0 {
		t.Errorf("Goblin King start should hand the first turn to player 0, got %q / %d", gs.ActionScene.Initiator, gs.CurrentPlayer)
	}
}

func TestGameState_Clock(t *testing.T) {
	gs := newTestGame(t)
	if gs.TimeUp(t0) {
		t.Error("Clock that has not started cannot be up")
	}
	gs.StartClock(t0)
	gs.StartClock(t0.Add(time.Hour))
	if !gs.StartedAt.Equal(t0) {
		t.Error("StartClock should only start the clock once")
	}

	if _, ok := gs.TimeNotice(t0.Add(59 * time.Second)); ok {
		t.Error("No notice expected before a full minute")
	}
	msg, ok := gs.TimeNotice(t0.Add(61 * time.Second))
	if !ok || msg != "58 minutes remain on the clock." {
		t.Errorf("Unexpected notice %q (%v)", msg, ok)
	}
	if _, ok := gs.TimeNotice(t0.Add(90 * time.Second)); ok {
		t.Error("Notice should not repeat within the same minute")
	}
	if n := gs.ElapsedMinutesSinceNotice(t0.Add(5 * time.Minute)); n != 4 {
		t.Errorf("Expected 4 minutes since notice, got %d", n)
	}

	if got := gs.RemainingTime(t0.Add(45 * time.Minute)); got != 15*time.Minute {
		t.Errorf("Expected 15m remaining, got %v", got)
	}
	if !gs.TimeUp(t0.Add(time.Hour)) {
		t.Error("Expected time up at the limit")
	}
	if gs.RemainingTime(t0.Add(2*time.Hour)) != 0 {
		t.Error("Remaining time should not go negative")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{30 * time.Second, "Less than a minute remains on the clock."},
		{time.Minute + 10*time.Second, "1 minute remains on the clock."},
		{42 * time.Minute, "42 minutes remain on the clock."},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.expected {
			t.Errorf("FormatRemaining(%v): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}

func TestGameState_Party(t *testing.T) {
	gs := newTestGame(t)

	if err := gs.JoinParty("the worm"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(gs.Party) != 1 || gs.Party[0] != "The Worm" {
		t.Errorf("Expected canonical NPC name in party, got %v", gs.Party)
	}
	if err := gs.JoinParty("The Worm"); !errors.Is(err, ErrAlreadyInParty) {
		t.Errorf("Expected ErrAlreadyInParty, got %v", err)
	}
	if err := gs.JoinParty("Ludo"); !errors.Is(err, ErrUnknownNPC) {
		t.Errorf("Expected ErrUnknownNPC, got %v", err)
	}
	if err := gs.LeaveParty("Ludo"); !errors.Is(err, ErrNotInParty) {
		t.Errorf("Expected ErrNotInParty, got %v", err)
	}
	if err := gs.LeaveParty("THE WORM"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(gs.Party) != 0 {
		t.Errorf("Expected empty party, got %v", gs.Party)
	}

	empty := NewGameState()
	if err := empty.JoinParty("The Worm"); !errors.Is(err, ErrNoScene) {
		t.Errorf("Expected ErrNoScene, got %v", err)
	}
}

type seqRand struct {
	values []int
	i      int
}

func (s *seqRand) IntN(n int) int {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v % n
}

func TestGameState_ResolvePartyStay(t *testing.T) {
	gs := newTestGame(t)
	_ = gs.JoinParty("The Worm")
	_ = gs.JoinParty("Mrs. Worm")

	// rolls 4 (pass) then 3 (fail)
	results := gs.ResolvePartyStay(&seqRand{values: []int{3, 2}})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success {
		t.Errorf("Unexpected results: %+v", results)
	}
	if results[0].Difficulty != rules.PartyStayDifficulty {
		t.Errorf("Expected difficulty %d, got %d", rules.PartyStayDifficulty, results[0].Difficulty)
	}
	if len(gs.Party) != 1 || gs.Party[0] != "The Worm" {
		t.Errorf("Expected only The Worm to stay, got %v", gs.Party)
	}
}

func TestGameState_EndScene(t *testing.T) {
	gs := newTestGame(t)
	_ = gs.JoinParty("The Worm")
	_ = gs.StartActionScene(GoblinKing, t0)

	if err := gs.EndScene("draw"); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("Expected ErrInvalidOutcome, got %v", err)
	}
	if err := gs.EndScene(OutcomeFailure); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !gs.IsEnded || gs.Outcome != OutcomeFailure {
		t.Errorf("Expected ended failure, got %v %q", gs.IsEnded, gs.Outcome)
	}
	if gs.Party != nil || gs.ActionScene != nil {
		t.Error("Party and action scene should be cleared at scene end")
	}

	if err := gs.EndScene(OutcomeSuccess); !errors.Is(err, ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded, got %v", err)
	}
	if gs.Outcome != OutcomeFailure {
		t.Errorf("Expected outcome to stay failure, got %q", gs.Outcome)
	}

	gs.LoadScene(1, &scene.Scene{Scene: "Next"})
	if gs.IsEnded || gs.Outcome != OutcomeNone || gs.SceneIndex != 1 {
		t.Error("Loading a scene should reset the outcome")
	}
}

func TestGameState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(gs *GameState)
		wantErr bool
	}{
		{name: "valid", mutate: func(gs *GameState) {}},
		{name: "nil id", mutate: func(gs *GameState) { gs.ID = uuid.Nil }, wantErr: true},
		{name: "current player out of range", mutate: func(gs *GameState) { gs.CurrentPlayer = 5 }, wantErr: true},
		{name: "too many actions", mutate: func(gs *GameState) { gs.ActionsTaken = 3 }, wantErr: true},
		{name: "bad outcome", mutate: func(gs *GameState) { gs.Outcome = "draw" }, wantErr: true},
		{name: "overfull inventory", mutate: func(gs *GameState) {
			gs.Players[0].Items = make([]player.Item, player.MaxItems+1)
			for i := range gs.Players[0].Items {
				gs.Players[0].Items[i] = player.Item{Name: "stone"}
			}
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newTestGame(t)
			tt.mutate(gs)
			err := gs.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGameState_HistoryWindow(t *testing.T) {
	gs := NewGameState()
	for _, m := range []string{"one", "two", "three"} {
		gs.AppendMessage(chat.ChatRoleUser, m)
		gs.AppendMessage(chat.ChatRoleSystem, "note "+m)
		gs.AppendMessage(chat.ChatRoleAgent, "reply "+m)
	}

	all := gs.HistoryWindow(ConcatSimple, 0)
	if len(all) != 9 {
		t.Errorf("Expected full history, got %d messages", len(all))
	}

	last := gs.HistoryWindow(ConcatSimple, 2)
	if len(last) != 6 || last[0].Content != "two" {
		t.Errorf("Expected last two turns starting at 'two', got %d messages starting %q", len(last), last[0].Content)
	}

	more := gs.HistoryWindow(ConcatSimple, 10)
	if len(more) != 9 {
		t.Errorf("Expected all messages when maxTurns exceeds history, got %d", len(more))
	}

	last[0].Content = "changed"
	if gs.ChatHistory[3].Content != "two" {
		t.Error("HistoryWindow must return a copy")
	}
}

func TestParseConcatPolicy(t *testing.T) {
	if p, err := ParseConcatPolicy(""); err != nil || p != ConcatSimple {
		t.Errorf("Expected simple default, got %q %v", p, err)
	}
	if _, err := ParseConcatPolicy("fancy"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestGameState_AddSummary(t *testing.T) {
	gs := NewGameState()
	gs.AppendMessage(chat.ChatRoleUser, "hello")
	gs.AddSummary("   ", true)
	if len(gs.Summaries) != 0 || len(gs.ChatHistory) != 1 {
		t.Error("Blank summaries should be ignored")
	}
	gs.AddSummary("Sarah met the worm.", false)
	if len(gs.ChatHistory) != 1 {
		t.Error("History should be kept without clearRaw")
	}
	if len(gs.Unsummarized()) != 0 {
		t.Error("Summarized history should not be returned again")
	}
	gs.AppendMessage(chat.ChatRoleAgent, "welcome")
	if u := gs.Unsummarized(); len(u) != 1 || u[0].Content != "welcome" {
		t.Errorf("Expected only the new message, got %v", u)
	}
	gs.AddSummary("Sarah went left.", true)
	if len(gs.Summaries) != 2 || len(gs.ChatHistory) != 0 {
		t.Errorf("Expected 2 summaries and cleared history, got %d and %d", len(gs.Summaries), len(gs.ChatHistory))
	}
	if gs.SummaryMark != 0 {
		t.Errorf("Expected mark reset, got %d", gs.SummaryMark)
	}
}

func TestToPromptState(t *testing.T) {
	gs := newTestGame(t)
	gs.StartClock(t0)
	_ = gs.StartActionScene("Sarah", t0)

	ps := ToPromptState(gs, t0.Add(30*time.Second))
	if ps.CurrentPlayer != "Sarah" {
		t.Errorf("Expected current player Sarah, got %q", ps.CurrentPlayer)
	}
	if ps.TimeRemaining != "59m30s" {
		t.Errorf("Expected 59m30s remaining, got %q", ps.TimeRemaining)
	}
	if ps.ActionScene == nil || ps.ActionScene.TurnTimeRemaining != "30s" {
		t.Errorf("Unexpected action scene %+v", ps.ActionScene)
	}
	if ps.Party == nil {
		t.Error("Party should serialize as an empty list")
	}
}
