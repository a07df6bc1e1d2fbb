package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/goblin-king/internal/services"
	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/dice"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/prompts"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
	"github.com/jwebster45206/goblin-king/pkg/textfilter"
)

const wormSceneJSON = `{
  "npcs": {"The Worm": {"kin": "worm", "persona": ["Polite."], "goal": "Have tea", "trait": "Friendly", "flaw": "Slow"}},
  "generation_rules": ["The worm never lies."],
  "success_condition": "The players find the hidden passage.",
  "failure_condition": "",
  "game_flow": ["Meet the worm", "Find the passage"],
  "environment": {"wall": "A wall covered in moss."}
}`

var wormTemplate = scene.Template{
	Chapter:      "Chapter 1",
	Scene:        "The Worm",
	SceneSummary: []string{"A worm lives in a crack in the wall."},
	RandomTables: map[string][]string{"questions": {"Would you like a cup of tea?"}},
}

// fixedRand always returns f, or the last index when f is out of range.
type fixedRand int

func (f fixedRand) IntN(n int) int { return min(int(f), n-1) }

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, llm *services.MockLLM, opts Options) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	if opts.Rand == nil {
		opts.Rand = fixedRand(5) // rolls a 6
	}
	m := New(llm, opts, discard())
	for _, p := range []*player.Player{
		{Name: "Sarah", Kin: "human", Traits: []string{"Brave"}, Items: []player.Item{{Name: "Red book"}}},
		{Name: "Hoggle", Kin: "dwarf", Traits: []string{"Knows the Labyrinth"}},
	} {
		if err := m.AddPlayer(p); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	return m, clock
}

func initWorm(t *testing.T, m *Manager) {
	t.Helper()
	if _, _, err := m.InitScene(context.Background(), 0, wormTemplate); err != nil {
		t.Fatalf("InitScene: %v", err)
	}
}

func TestInitScene(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, _ := newTestManager(t, llm, Options{})

	sc, raw, err := m.InitScene(context.Background(), 0, wormTemplate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if raw != wormSceneJSON {
		t.Error("Expected raw output to be returned")
	}
	if _, ok := sc.NPCs["The Worm"]; !ok {
		t.Errorf("Expected The Worm NPC, got %v", sc.NPCs)
	}
	if m.State().Scene != sc {
		t.Error("Expected scene to be installed")
	}
	if m.State().StartedAt.IsZero() {
		t.Error("Expected clock to start")
	}

	calls := llm.GetChatCalls()
	if len(calls) != 1 || !strings.Contains(calls[0].Messages[1].Content, "The Worm") {
		t.Errorf("Expected init prompt with template, got %+v", calls)
	}
}

func TestInitScene_KeepsPreviousSceneOnError(t *testing.T) {
	tests := []struct {
		name   string
		output string
		check  func(error) bool
	}{
		{
			name:   "syntax",
			output: "{not json",
			check: func(err error) bool {
				var target *scene.SyntaxError
				return errors.As(err, &target)
			},
		},
		{
			name:   "missing key",
			output: `{"npcs": {}}`,
			check: func(err error) bool {
				var target *scene.MissingKeyError
				return errors.As(err, &target)
			},
		},
		{
			name:   "wrong type",
			output: `{"npcs": {}, "generation_rules": "x", "success_condition": "", "failure_condition": "", "game_flow": [], "environment": {}}`,
			check: func(err error) bool {
				var target *scene.TypeError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLM(wormSceneJSON, tt.output)
			m, _ := newTestManager(t, llm, Options{})
			initWorm(t, m)
			before := m.State().Scene

			_, _, err := m.InitScene(context.Background(), 1, scene.Template{Chapter: "2", Scene: "Other"})
			if !tt.check(err) {
				t.Errorf("Unexpected error type %T: %v", err, err)
			}
			if m.State().Scene != before || m.State().SceneIndex != 0 {
				t.Error("Expected previous scene to be kept")
			}
		})
	}
}

func TestChatRound(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "  Ello!  ")
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)

	resp, err := m.ChatRound(context.Background(), "How many items can I carry?")
	if err != nil {
		t.Fatalf("ChatRound: %v", err)
	}
	if resp != "Ello!" {
		t.Errorf("Expected trimmed response, got %q", resp)
	}
	h := m.State().ChatHistory
	if len(h) != 2 || h[0].Role != chat.ChatRoleUser || h[1].Content != "Ello!" {
		t.Errorf("Unexpected history %+v", h)
	}
	if m.State().ActionsTaken != 0 || m.State().CurrentPlayer != 0 {
		t.Error("ChatRound must not touch the turn order")
	}

	m.ClearHistory()
	if len(m.State().ChatHistory) != 0 {
		t.Error("Expected empty history after ClearHistory")
	}
}

func TestChatRound_Filter(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "Damn, another wall.")
	m, _ := newTestManager(t, llm, Options{Filter: textfilter.Default()})
	initWorm(t, m)

	resp, err := m.ChatRound(context.Background(), "Where now?")
	if err != nil {
		t.Fatalf("ChatRound: %v", err)
	}
	if resp != "Dang, another wall." {
		t.Errorf("Expected filtered narration, got %q", resp)
	}
	if h := m.State().ChatHistory; h[len(h)-1].Content != resp {
		t.Errorf("Expected filtered narration in history, got %q", h[len(h)-1].Content)
	}
}

func TestChatRound_RetrievalInjection(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	book := &rules.Book{
		Instruction: []string{"You are the Goblin King."},
		Sections: []rules.Section{
			{Title: "Items", Lines: []string{"A player can carry six items."}},
			{Title: "Time", Lines: []string{"The game lasts thirteen hours."}},
		},
	}
	retriever := rules.NewRetriever(book, wordEmbedder{})
	m, _ := newTestManager(t, llm, Options{Book: book, Injection: rules.InjectionRetrieval, Retriever: retriever, TopK: 1})
	initWorm(t, m)

	if _, err := m.ChatRound(context.Background(), "how many items"); err != nil {
		t.Fatalf("ChatRound: %v", err)
	}
	calls := llm.GetChatCalls()
	last := calls[len(calls)-1].Messages
	found := false
	for _, msg := range last {
		if strings.HasPrefix(msg.Content, rules.RetrievedIntroduction) {
			found = true
			if !strings.Contains(msg.Content, "six items") || strings.Contains(msg.Content, "thirteen") {
				t.Errorf("Unexpected excerpts %q", msg.Content)
			}
		}
	}
	if !found {
		t.Error("Expected retrieved rules in the prompt")
	}
}

// wordEmbedder scores texts by two keywords.
type wordEmbedder struct{}

func (wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := []float32{0.01, 0.01}
	if strings.Contains(text, "item") {
		v[0] = 1
	}
	if strings.Contains(text, "hour") {
		v[1] = 1
	}
	return v, nil
}

func (w wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = w.Embed(ctx, t)
	}
	return out, nil
}

func TestPlayRound_AdvancesTurn(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "The worm waves.", "Hoggle grumbles.")
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)
	ctx := context.Background()

	res, err := m.PlayRound(ctx, "Sarah", "I greet the worm.")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if res.Response != "The worm waves." {
		t.Errorf("Unexpected response %q", res.Response)
	}
	if res.NextPlayer != "Hoggle" {
		t.Errorf("Expected Hoggle next, got %q", res.NextPlayer)
	}

	if _, err := m.PlayRound(ctx, "Sarah", "Again!"); !errors.Is(err, state.ErrNotPlayersTurn) {
		t.Errorf("Expected ErrNotPlayersTurn, got %v", err)
	}
	if !IsRecoverable(state.ErrNotPlayersTurn) {
		t.Error("Expected out-of-turn errors to be recoverable")
	}

	res, err = m.PlayRound(ctx, "", "Hmph.")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if res.NextPlayer != "Sarah" {
		t.Errorf("Expected Sarah next, got %q", res.NextPlayer)
	}
	if m.State().Rounds != 2 {
		t.Errorf("Expected 2 rounds, got %d", m.State().Rounds)
	}
	if h := m.State().ChatHistory; h[len(h)-2].Content != "[PLAYER Hoggle] Hmph." {
		t.Errorf("Expected prefixed player message, got %q", h[len(h)-2].Content)
	}
}

func TestPlayRound_AppliesDelta(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "The worm gives Sarah a teacup and joins you.")
	llm.ReducerResponse = `{"players":[{"name":"Sarah","add_items":[{"name":"Teacup","description":"Tiny"}]}],"party_join":["The Worm"]}`
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)

	res, err := m.PlayRound(context.Background(), "Sarah", "May I have some tea?")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}
	sarah, _ := m.State().Player("Sarah")
	if len(sarah.Items) != 2 || sarah.Items[1].Name != "Teacup" {
		t.Errorf("Expected teacup in inventory, got %+v", sarah.Items)
	}
	if !m.State().InParty("The Worm") {
		t.Error("Expected The Worm in the party")
	}
}

func TestPlayRound_ReducerErrorIsNotFatal(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "Nothing happens.")
	llm.ReducerResponse = "I am not json"
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)

	res, err := m.PlayRound(context.Background(), "Sarah", "I wait.")
	if err != nil {
		t.Fatalf("Expected reducer failure to be absorbed, got %v", err)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "state update skipped") {
		t.Errorf("Expected a state update warning, got %v", res.Warnings)
	}
	if res.NextPlayer != "Hoggle" {
		t.Errorf("Expected turn to pass, got %q", res.NextPlayer)
	}
}

func TestPlayRound_SceneOutcomeEndsGame(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "You find the passage!", "And so the party moves on.")
	llm.ReducerResponse = `{"scene_outcome":"success"}`
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)

	res, err := m.PlayRound(context.Background(), "Sarah", "I push the wall.")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if !res.Ended || res.Outcome != state.OutcomeSuccess {
		t.Errorf("Expected success ending, got %+v", res)
	}
	if !strings.HasSuffix(res.Response, "And so the party moves on.") {
		t.Errorf("Expected closing narration, got %q", res.Response)
	}

	calls := llm.GetChatCalls()
	closing := calls[len(calls)-1].Messages
	if !strings.HasPrefix(closing[len(closing)-1].Content, prompts.GameEndSystemPrompt) {
		t.Error("Expected closing request to end with the game end prompt")
	}

	if _, err := m.PlayRound(context.Background(), "Hoggle", "Wait!"); !errors.Is(err, state.ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded, got %v", err)
	}
}

func TestPlayRound_TimeUp(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "The clock strikes thirteen.")
	m, clock := newTestManager(t, llm, Options{GameTimeLimit: 10 * time.Minute})
	initWorm(t, m)

	clock.now = clock.now.Add(11 * time.Minute)
	res, err := m.PlayRound(context.Background(), "Sarah", "I run!")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if !res.Ended || res.Outcome != state.OutcomeFailure {
		t.Errorf("Expected failure on time up, got %+v", res)
	}
	if res.Response != "The clock strikes thirteen." {
		t.Errorf("Unexpected closing %q", res.Response)
	}

	if _, err := m.TryCommand("Sarah", "/end success"); !errors.Is(err, state.ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded, got %v", err)
	}
	if m.State().Outcome != state.OutcomeFailure {
		t.Errorf("Expected the game to stay a failure, got %q", m.State().Outcome)
	}
}

func TestPlayRound_TimeNotice(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, clock := newTestManager(t, llm, Options{})
	initWorm(t, m)

	clock.now = clock.now.Add(90 * time.Second)
	res, err := m.PlayRound(context.Background(), "Sarah", "Hello")
	if err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if len(res.Notes) != 1 || res.Notes[0] != "58 minutes remain on the clock." {
		t.Errorf("Expected time notice, got %v", res.Notes)
	}
}

func TestPlayRound_ActionSceneTurnExpiry(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON, "Goblins attack!")
	llm.ReducerResponse = `{"action_scene":{"start":"Goblin King"}}`
	m, clock := newTestManager(t, llm, Options{})
	initWorm(t, m)
	ctx := context.Background()

	if _, err := m.PlayRound(ctx, "Sarah", "I open the door."); err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if m.State().ActionScene == nil {
		t.Fatal("Expected an action scene")
	}
	// The Goblin King started it, so the first player acts first.
	if m.State().ActivePlayer().Name != "Sarah" {
		t.Fatalf("Expected Sarah's turn, got %s", m.State().ActivePlayer().Name)
	}

	clock.now = clock.now.Add(61 * time.Second)
	_, err := m.PlayRound(ctx, "Sarah", "I hide.")
	if !errors.Is(err, state.ErrTurnExpired) {
		t.Fatalf("Expected ErrTurnExpired, got %v", err)
	}
	if m.State().ActivePlayer().Name != "Hoggle" {
		t.Errorf("Expected turn to pass to Hoggle, got %s", m.State().ActivePlayer().Name)
	}
}

func TestPlayRound_NextTurnStartsAfterNarration(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, clock := newTestManager(t, llm, Options{})
	initWorm(t, m)
	ctx := context.Background()

	start := clock.now
	llm.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		if messages[0].Content == prompts.ReducerPrompt {
			return &chat.ChatResponse{Message: "{}"}, nil
		}
		// a slow model
		clock.now = clock.now.Add(50 * time.Second)
		return &chat.ChatResponse{Message: "Goblins swarm the wall."}, nil
	}

	if _, err := m.TryCommand("Sarah", "/action"); err != nil {
		t.Fatalf("/action: %v", err)
	}
	if _, err := m.PlayRound(ctx, "Sarah", "I climb."); err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	want := start.Add(50 * time.Second)
	if got := m.State().ActionScene.TurnStartedAt; !got.Equal(want) {
		t.Errorf("Expected Hoggle's turn to start at %v, got %v", want, got)
	}
	if !m.State().UpdatedAt.Equal(want) {
		t.Errorf("Expected UpdatedAt %v, got %v", want, m.State().UpdatedAt)
	}

	// 70 seconds after Sarah's round began, 20 into Hoggle's turn
	clock.now = clock.now.Add(20 * time.Second)
	if _, err := m.PlayRound(ctx, "Hoggle", "I follow."); err != nil {
		t.Fatalf("Expected Hoggle to still have time, got %v", err)
	}
}

func TestPlayRound_LLMErrorRefundsAction(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, _ := newTestManager(t, llm, Options{})
	initWorm(t, m)
	llm.SetChatError(errors.New("offline"))

	if _, err := m.PlayRound(context.Background(), "Sarah", "Hello"); err == nil {
		t.Fatal("Expected error")
	}
	if m.State().ActionsTaken != 0 || m.State().ActivePlayer().Name != "Sarah" {
		t.Error("Expected the action to be refunded")
	}
}

func TestPlayRound_Summarization(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, _ := newTestManager(t, llm, Options{Summarization: true, SummPeriod: 2, ClearRawLogs: true})
	initWorm(t, m)
	ctx := context.Background()

	if _, err := m.PlayRound(ctx, "Sarah", "One"); err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if len(m.State().Summaries) != 0 {
		t.Error("Expected no summary after the first round")
	}
	if _, err := m.PlayRound(ctx, "Hoggle", "Two"); err != nil {
		t.Fatalf("PlayRound: %v", err)
	}
	if len(m.State().Summaries) != 1 || m.State().Summaries[0] != "Mock summary" {
		t.Errorf("Expected one summary, got %v", m.State().Summaries)
	}
	if len(m.State().ChatHistory) != 0 {
		t.Errorf("Expected raw logs cleared, got %d messages", len(m.State().ChatHistory))
	}
}

func TestTestAndDraw(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, _ := newTestManager(t, llm, Options{Rand: fixedRand(2)}) // rolls a 3
	initWorm(t, m)

	helpers := []dice.Helper{{Player: "hoggle", UsesTrait: true}}
	res, err := m.Test("Sarah", 4, helpers)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if !res.Success || res.Difficulty != 3 {
		t.Errorf("Expected success against difficulty 3, got %+v", res)
	}
	if helpers[0].Player != "hoggle" {
		t.Error("Test must not modify the caller's helpers")
	}
	if _, err := m.Test("Sarah", 4, []dice.Helper{{Player: "Sarah"}}); err == nil {
		t.Error("Expected error when a player helps themself")
	}
	if _, err := m.Test("Jareth", 4, nil); !errors.Is(err, state.ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}

	card, err := m.DrawCard("questions")
	if err != nil || card != "Would you like a cup of tea?" {
		t.Errorf("Unexpected card %q, %v", card, err)
	}
	if _, err := m.DrawCard("missing"); !errors.Is(err, scene.ErrUnknownTable) {
		t.Errorf("Expected ErrUnknownTable, got %v", err)
	}

	h := m.State().ChatHistory
	if len(h) != 2 || h[0].Role != chat.ChatRoleSystem {
		t.Errorf("Expected test and draw notes in history, got %+v", h)
	}

	sheet, err := m.ShowScene()
	if err != nil || !strings.Contains(sheet, "The Worm") {
		t.Errorf("Unexpected scene sheet %q, %v", sheet, err)
	}
}

func TestLoadState(t *testing.T) {
	m := New(services.NewMockLLM(), Options{}, discard())
	if _, err := m.ShowScene(); !errors.Is(err, state.ErrNoScene) {
		t.Errorf("Expected ErrNoScene, got %v", err)
	}

	gs := state.NewGameState()
	if err := m.LoadState(gs); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if m.State() != gs {
		t.Error("Expected loaded state to be managed")
	}
	gs.CurrentPlayer = 3
	if err := m.LoadState(gs); err != nil {
		t.Errorf("Expected no players to skip the turn check, got %v", err)
	}
	bad := state.NewGameState()
	bad.ActionsTaken = 5
	if err := m.LoadState(bad); err == nil {
		t.Error("Expected invalid state to be rejected")
	}
}

func TestTryCommand(t *testing.T) {
	llm := services.NewMockLLM(wormSceneJSON)
	m, _ := newTestManager(t, llm, Options{Rand: fixedRand(5)})
	initWorm(t, m)

	res, err := m.TryCommand("", "I knock.")
	if err != nil || res.Handled {
		t.Fatalf("Expected plain text to pass through, got %+v, %v", res, err)
	}

	res, err = m.TryCommand("", "/roll 5 +Hoggle")
	if err != nil {
		t.Fatalf("/roll: %v", err)
	}
	if !res.Handled || res.Message != "Sarah rolled 6 against difficulty 4 and passed the test." {
		t.Errorf("Unexpected roll result %q", res.Message)
	}

	if _, err := m.TryCommand("", "/roll hard"); err == nil {
		t.Error("Expected error for a non-numeric difficulty")
	}
	if _, err := m.TryCommand("", "/roll 4 Hoggle"); err == nil {
		t.Error("Expected error for a helper without a sign")
	}

	res, err = m.TryCommand("Hoggle", "/sheet")
	if err != nil || !strings.Contains(res.Message, "Hoggle") {
		t.Errorf("Unexpected sheet %q, %v", res.Message, err)
	}

	res, err = m.TryCommand("", "/draw questions")
	if err != nil || res.Message != "Would you like a cup of tea?" {
		t.Errorf("Unexpected draw %q, %v", res.Message, err)
	}

	res, err = m.TryCommand("Hoggle", "/action")
	if err != nil {
		t.Fatalf("/action: %v", err)
	}
	if m.State().ActionScene == nil || m.State().ActivePlayer().Name != "Hoggle" {
		t.Error("Expected Hoggle to start an action scene and act first")
	}
	if _, err := m.TryCommand("", "/action end"); err != nil {
		t.Errorf("/action end: %v", err)
	}

	res, err = m.TryCommand("", "/time")
	if err != nil || res.Message != "60 minutes remain on the clock." {
		t.Errorf("Unexpected time %q, %v", res.Message, err)
	}

	if _, err := m.TryCommand("", "/end maybe"); !errors.Is(err, state.ErrInvalidOutcome) {
		t.Errorf("Expected ErrInvalidOutcome, got %v", err)
	}
	if _, err := m.TryCommand("", "/end failure"); err != nil {
		t.Fatalf("/end: %v", err)
	}
	if !m.State().IsEnded || m.State().Outcome != state.OutcomeFailure {
		t.Error("Expected the scene to end in failure")
	}
	if _, err := m.TryCommand("", "/end success"); !errors.Is(err, state.ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded on a second /end, got %v", err)
	}
	if _, err := m.TryCommand("", "/action"); !errors.Is(err, state.ErrGameEnded) {
		t.Errorf("Expected ErrGameEnded for /action after the end, got %v", err)
	}
}
