package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a scripted play session against a running api.
// It either carries its own Steps or sequences other case files.
type TestSuite struct {
	Name       string     `yaml:"name"`
	SceneIndex int        `yaml:"scene_index"`
	PlayerIDs  []string   `yaml:"player_ids,omitempty"` // sheets under data/players
	Steps      []TestStep `yaml:"steps,omitempty"`
	Cases      []string   `yaml:"cases,omitempty"` // case files run in order, each on a fresh game
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one player message and what the game should look like after it.
// An empty Player sends as the current player.
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Player       string       `yaml:"player,omitempty"`
	Message      string       `yaml:"message"`
	Expectations Expectations `yaml:"expect"`
}

// Expectations defines what to check after a test step executes.
type Expectations struct {
	Status *int `yaml:"status,omitempty"` // HTTP status of the chat call, 200 when unset

	// Game state after the step
	NextPlayer  *string             `yaml:"next_player,omitempty"`
	IsEnded     *bool               `yaml:"is_ended,omitempty"`
	Outcome     *string             `yaml:"outcome,omitempty"`
	ActionScene *bool               `yaml:"action_scene,omitempty"` // true while an action scene runs
	Party       []string            `yaml:"party,omitempty"`        // order independent
	Items       map[string][]string `yaml:"items,omitempty"`        // player name to item names, order independent
	Rounds      *int                `yaml:"rounds,omitempty"`

	// Response analysis
	ResponseContains    []string `yaml:"response_contains,omitempty"`
	ResponseNotContains []string `yaml:"response_not_contains,omitempty"`
	ResponseRegex       string   `yaml:"response_regex,omitempty"`
	ResponseMinLength   *int     `yaml:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `yaml:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	Status       int
	ResponseText string
}

// TestJob is a loaded suite ready to run.
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID
}
