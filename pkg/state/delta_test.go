package state

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jwebster45206/goblin-king/pkg/player"
)

func TestParseDelta(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, d *Delta)
	}{
		{
			name: "fenced delta",
			raw:  "Here you go:\n```json\n{\"players\":[{\"name\":\"Sarah\",\"add_items\":[{\"name\":\"Peach\",\"description\":\"Enchanted\"}]}],\"party_join\":[\"The Worm\"]}\n```",
			check: func(t *testing.T, d *Delta) {
				want := &Delta{
					Players: []PlayerUpdate{{
						Name:     "Sarah",
						AddItems: []player.Item{{Name: "Peach", Description: "Enchanted"}},
					}},
					PartyJoin: []string{"The Worm"},
				}
				if diff := cmp.Diff(want, d); diff != "" {
					t.Errorf("ParseDelta() mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name: "empty object",
			raw:  "{}",
			check: func(t *testing.T, d *Delta) {
				if !d.IsEmpty() {
					t.Error("Expected empty delta")
				}
			},
		},
		{name: "no json", raw: "Nothing changed.", wantErr: true},
		{name: "unknown key", raw: `{"hp": 3}`, wantErr: true},
		{name: "wrong type", raw: `{"party_join": "The Worm"}`, wantErr: true},
		{name: "bad outcome", raw: `{"scene_outcome": "draw"}`, wantErr: true},
		{name: "player without name", raw: `{"players":[{"add_traits":["Lucky"]}]}`, wantErr: true},
		{name: "start and end", raw: `{"action_scene":{"start":"Sarah","end":true}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDelta(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDelta() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, d)
			}
		})
	}
}

func TestApplyDelta(t *testing.T) {
	gs := newTestGame(t)
	sarah, _ := gs.Player("Sarah")
	for i := 0; i < player.MaxItems; i++ {
		_ = sarah.AddItem("Stone", "A plain stone")
	}

	d := &Delta{
		Players: []PlayerUpdate{
			{
				Name:         "sarah",
				RemoveItems:  []string{"stone"},
				AddItems:     []player.Item{{Name: "Peach", Description: "Enchanted"}, {Name: "Ring", Description: "Shiny"}},
				AddTraits:    []string{"Clever"},
				RemoveFlaws:  []string{"impatient"},
				RemoveTraits: []string{"Cowardly"},
			},
			{Name: "Jareth", AddTraits: []string{"Magic"}},
		},
		PartyJoin:   []string{"The Worm", "Ludo"},
		ActionScene: &ActionSceneChange{Start: "Hoggle"},
	}

	report := gs.ApplyDelta(d, t0, &seqRand{values: []int{5}})

	if len(sarah.Items) != player.MaxItems {
		t.Errorf("Expected a full inventory, got %d items", len(sarah.Items))
	}
	if sarah.Items[len(sarah.Items)-1].Name != "Peach" {
		t.Errorf("Expected the peach to replace a stone, got %v", sarah.Items)
	}
	if len(sarah.Traits) != 2 || len(sarah.Flaws) != 0 {
		t.Errorf("Unexpected traits %v flaws %v", sarah.Traits, sarah.Flaws)
	}
	if len(gs.Party) != 1 {
		t.Errorf("Expected only the known NPC to join, got %v", gs.Party)
	}
	if gs.ActionScene == nil || gs.ActivePlayer().Name != "Hoggle" {
		t.Error("Expected Hoggle's action scene to start")
	}

	expected := []string{"Cowardly", "Ring", "Jareth", "Ludo"}
	if len(report.Warnings) != len(expected) {
		t.Fatalf("Expected %d warnings, got %v", len(expected), report.Warnings)
	}
	for i, want := range expected {
		if !strings.Contains(report.Warnings[i], want) {
			t.Errorf("Warning %d: expected mention of %q, got %q", i, want, report.Warnings[i])
		}
	}
	if report.Ended {
		t.Error("Scene should not have ended")
	}
}

func TestApplyDelta_GoblinKingAndOutcome(t *testing.T) {
	gs := newTestGame(t)
	_ = gs.JoinParty("The Worm")

	report := gs.ApplyDelta(&Delta{GoblinKingAppears: true, SceneOutcome: "Success"}, t0, &seqRand{values: []int{0}})
	if len(report.PartyChecks) != 1 || report.PartyChecks[0].Success {
		t.Errorf("Expected one failed stay test, got %+v", report.PartyChecks)
	}
	if !report.Ended || gs.Outcome != OutcomeSuccess {
		t.Errorf("Expected the scene to end in success, got %v %q", report.Ended, gs.Outcome)
	}

	late := gs.ApplyDelta(&Delta{PartyJoin: []string{"The Worm"}}, t0, nil)
	if len(late.Warnings) != 1 || len(gs.Party) != 0 {
		t.Errorf("Deltas after the game ended should be ignored, got %v", late.Warnings)
	}
}

func TestApplyDelta_ActionSceneEnd(t *testing.T) {
	gs := newTestGame(t)
	report := gs.ApplyDelta(&Delta{ActionScene: &ActionSceneChange{End: true}}, t0, nil)
	if len(report.Warnings) != 1 {
		t.Errorf("Expected a warning ending a missing action scene, got %v", report.Warnings)
	}
	_ = gs.StartActionScene(GoblinKing, t0)
	report = gs.ApplyDelta(&Delta{ActionScene: &ActionSceneChange{End: true}}, t0, nil)
	if len(report.Warnings) != 0 || gs.ActionScene != nil {
		t.Errorf("Expected the action scene to end cleanly, got %v", report.Warnings)
	}
}
