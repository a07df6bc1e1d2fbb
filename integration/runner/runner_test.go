package runner

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/goblin-king/internal/handlers"
	"github.com/jwebster45206/goblin-king/internal/services"
	"github.com/jwebster45206/goblin-king/pkg/manager"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
	"github.com/jwebster45206/goblin-king/pkg/storage"
)

const wormSceneJSON = `{
  "npcs": {"The Worm": {"kin": "worm", "persona": ["Polite."], "goal": "Have tea", "trait": "Friendly", "flaw": "Slow"}},
  "generation_rules": ["The worm never lies."],
  "success_condition": "The players find the hidden passage.",
  "failure_condition": "",
  "game_flow": ["Meet the worm", "Find the passage"],
  "environment": {"wall": "A wall covered in moss."}
}`

func ptr[T any](v T) *T { return &v }

func newTestAPI(t *testing.T, responses ...string) (*Runner, *storage.MockStorage) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := storage.NewMockStorage()
	st.AddSceneTemplate(scene.Template{
		Chapter:      "Chapter 1",
		Scene:        "The Worm",
		SceneSummary: []string{"A worm lives in a crack in the wall."},
	})
	st.AddPlayer("sarah", &player.Player{Name: "Sarah", Kin: "human"})
	st.AddPlayer("hoggle", &player.Player{Name: "Hoggle", Kin: "dwarf"})

	llm := services.NewMockLLM(append([]string{wormSceneJSON}, responses...)...)
	factory := func() *manager.Manager { return manager.New(llm, manager.Options{}, logger) }
	srv := httptest.NewServer(handlers.NewRouter(st, factory, logger))
	t.Cleanup(srv.Close)

	r := NewRunner(srv.URL + "/")
	r.Client = srv.Client()
	return r, st
}

func TestRunSuite(t *testing.T) {
	r, _ := newTestAPI(t, "The worm offers you tea.")

	suite := TestSuite{
		Name:      "worm tea",
		PlayerIDs: []string{"sarah", "hoggle"},
		Steps: []TestStep{
			{
				Name:    "greet",
				Player:  "Sarah",
				Message: "I greet the worm.",
				Expectations: Expectations{
					NextPlayer:       ptr("hoggle"),
					Rounds:           ptr(1),
					ResponseContains: []string{"TEA"},
				},
			},
			{
				Name:         "out of turn",
				Player:       "Sarah",
				Message:      "I greet the worm again.",
				Expectations: Expectations{Status: ptr(http.StatusConflict)},
			},
			{
				Name:    "end",
				Message: "/end success",
				Expectations: Expectations{
					IsEnded: ptr(true),
					Outcome: ptr("success"),
				},
			},
		},
	}

	result, err := r.RunSuite(t.Context(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 3)
	for _, step := range result.Results {
		assert.True(t, step.Success, step.StepName)
	}
	assert.Equal(t, "The worm offers you tea.", result.Results[0].ResponseText)

	_, err = r.getGame(t.Context(), result.GameID)
	assert.Error(t, err, "game should be deleted after the suite")
}

func TestRunSuite_ErrorHandlingMode(t *testing.T) {
	steps := []TestStep{
		{Name: "first", Message: "I look around.", Expectations: Expectations{ResponseContains: []string{"cake"}}},
		{Name: "second", Message: "I look again."},
	}

	t.Run("continue", func(t *testing.T) {
		r, _ := newTestAPI(t)
		result, err := r.RunSuite(t.Context(), TestSuite{PlayerIDs: []string{"sarah"}, Steps: steps})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step 0 (first)")
		require.Len(t, result.Results, 2)
		assert.False(t, result.Results[0].Success)
		assert.True(t, result.Results[1].Success)
	})

	t.Run("exit", func(t *testing.T) {
		r, _ := newTestAPI(t)
		r.ErrorHandlingMode = ErrorHandlingExit
		result, err := r.RunSuite(t.Context(), TestSuite{PlayerIDs: []string{"sarah"}, Steps: steps})
		require.Error(t, err)
		assert.Len(t, result.Results, 1)
	})
}

func TestRunSuite_UnknownPlayer(t *testing.T) {
	r, _ := newTestAPI(t)
	_, err := r.RunSuite(t.Context(), TestSuite{PlayerIDs: []string{"toby"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create game")
}

func TestCheckExpectations(t *testing.T) {
	gs := &state.GameState{
		Players: []*player.Player{
			{Name: "Sarah", Items: []player.Item{{Name: "Lantern"}, {Name: "Rope"}}},
			{Name: "Hoggle"},
		},
		CurrentPlayer: 1,
		Party:         []string{"The Worm"},
		Rounds:        3,
	}

	tests := []struct {
		name     string
		exp      Expectations
		response string
		wantErr  bool
	}{
		{name: "empty expectations", exp: Expectations{}},
		{name: "next player ignores case", exp: Expectations{NextPlayer: ptr("HOGGLE")}},
		{name: "wrong next player", exp: Expectations{NextPlayer: ptr("Sarah")}, wantErr: true},
		{name: "not ended", exp: Expectations{IsEnded: ptr(false)}},
		{name: "outcome mismatch", exp: Expectations{Outcome: ptr("failure")}, wantErr: true},
		{name: "no action scene", exp: Expectations{ActionScene: ptr(false)}},
		{name: "action scene expected", exp: Expectations{ActionScene: ptr(true)}, wantErr: true},
		{name: "rounds", exp: Expectations{Rounds: ptr(3)}},
		{name: "party", exp: Expectations{Party: []string{"the worm"}}},
		{name: "empty party expected", exp: Expectations{Party: []string{}}, wantErr: true},
		{name: "items any order", exp: Expectations{Items: map[string][]string{"Sarah": {"rope", "Lantern"}}}},
		{name: "missing item", exp: Expectations{Items: map[string][]string{"Sarah": {"Rope"}}}, wantErr: true},
		{name: "unknown player items", exp: Expectations{Items: map[string][]string{"Toby": nil}}, wantErr: true},
		{name: "contains", exp: Expectations{ResponseContains: []string{"riddle"}}, response: "A Riddle for you."},
		{name: "not contains", exp: Expectations{ResponseNotContains: []string{"riddle"}}, response: "A Riddle.", wantErr: true},
		{name: "regex", exp: Expectations{ResponseRegex: `^A \w+`}, response: "A riddle."},
		{name: "bad regex", exp: Expectations{ResponseRegex: `(`}, response: "A riddle.", wantErr: true},
		{name: "too short", exp: Expectations{ResponseMinLength: ptr(20)}, response: "short", wantErr: true},
		{name: "too long", exp: Expectations{ResponseMaxLength: ptr(3)}, response: "long", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkExpectations(tt.exp, gs, tt.response)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkExpectations() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	write("a.yaml", `
name: first
player_ids: [sarah]
steps:
  - name: hello
    message: Hello
    expect:
      next_player: Sarah
`)
	write("b.yaml", `
name: second
scene_index: 2
player_ids: [sarah, ludo]
steps:
  - message: /end failure
    expect:
      is_ended: true
      outcome: failure
`)
	seq := write("seq.yaml", `
name: both
cases: [a.yaml, b.yaml]
`)
	write("bad.yaml", `
name: nobody
steps:
  - message: Hello
`)

	jobs, err := LoadTestSuiteWithExpansion(seq, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "first", jobs[0].Name)
	assert.Equal(t, "Sarah", *jobs[0].Suite.Steps[0].Expectations.NextPlayer)
	assert.Equal(t, 2, jobs[1].Suite.SceneIndex)
	assert.Equal(t, "failure", *jobs[1].Suite.Steps[0].Expectations.Outcome)

	_, err = LoadTestSuite(filepath.Join(dir, "bad.yaml"))
	assert.Error(t, err)

	_, err = LoadTestSuiteWithExpansion(write("broken.yaml", "name: x\ncases: [missing.yaml]\n"), dir)
	assert.Error(t, err)
}
