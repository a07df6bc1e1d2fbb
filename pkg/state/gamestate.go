package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

// GoblinKing is the initiator name used when the game master starts an action scene.
const GoblinKing = "Goblin King"

var (
	ErrGameEnded          = errors.New("game has ended")
	ErrNoPlayers          = errors.New("game has no players")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrDuplicatePlayer    = errors.New("player already exists")
	ErrNotPlayersTurn     = errors.New("it is not this player's turn")
	ErrActionLimitReached = errors.New("action limit reached for this turn")
	ErrTurnExpired        = errors.New("turn time limit exceeded")
	ErrActionSceneActive  = errors.New("an action scene is already running")
	ErrNoActionScene      = errors.New("no action scene is running")
	ErrNoScene            = errors.New("no scene is loaded")
	ErrUnknownNPC         = errors.New("unknown npc")
	ErrAlreadyInParty     = errors.New("npc is already in the party")
	ErrNotInParty         = errors.New("npc is not in the party")
	ErrInvalidOutcome     = errors.New("outcome must be success or failure")
)

// Outcome is how a scene ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ActionScene tracks a running timed segment of play.
type ActionScene struct {
	Initiator     string    `json:"initiator"`
	StartedAt     time.Time `json:"started_at"`
	TurnStartedAt time.Time `json:"turn_started_at"`
}

// Remaining returns how much of the current player turn is left.
func (a *ActionScene) Remaining(now time.Time, limit time.Duration) time.Duration {
	if a == nil {
		return 0
	}
	left := limit - now.Sub(a.TurnStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// GameState is the persisted state of one Labyrinth game session.
type GameState struct {
	ID            uuid.UUID        `json:"id"`
	SceneIndex    int              `json:"scene_index"`
	Scene         *scene.Scene     `json:"scene,omitempty"`
	Players       []*player.Player `json:"players"`
	Party         []string         `json:"party,omitempty"` // NPC names travelling with the players
	CurrentPlayer int              `json:"current_player"`
	TurnCounter   int              `json:"turn_counter"`
	ActionsTaken  int              `json:"actions_taken"` // in the current player turn
	ActionScene   *ActionScene     `json:"action_scene,omitempty"`

	StartedAt      time.Time     `json:"started_at,omitzero"`
	TimeLimit      time.Duration `json:"time_limit"`
	TurnTimeLimit  time.Duration `json:"turn_time_limit"`
	LastTimeNotice time.Time     `json:"last_time_notice,omitzero"`

	Rounds      int                `json:"rounds"` // player messages answered in this game
	ChatHistory []chat.ChatMessage `json:"chat_history,omitempty"`
	Summaries   []string           `json:"summaries,omitempty"`
	SummaryMark int                `json:"summary_mark,omitempty"` // history before this index is summarized

	Outcome   Outcome   `json:"outcome,omitempty"`
	IsEnded   bool      `json:"is_ended"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewGameState() *GameState {
	now := time.Now()
	return &GameState{
		ID:            uuid.New(),
		Players:       make([]*player.Player, 0),
		ChatHistory:   make([]chat.ChatMessage, 0),
		TimeLimit:     rules.DefaultGameTimeLimit,
		TurnTimeLimit: rules.DefaultTurnTimeLimit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the invariants a loaded game state must hold.
func (gs *GameState) Validate() error {
	if gs == nil {
		return fmt.Errorf("game state is nil")
	}
	if gs.ID == uuid.Nil {
		return fmt.Errorf("game state has no id")
	}
	if len(gs.Players) > 0 && (gs.CurrentPlayer < 0 || gs.CurrentPlayer >= len(gs.Players)) {
		return fmt.Errorf("current player %d out of range", gs.CurrentPlayer)
	}
	if gs.ActionsTaken < 0 || gs.ActionsTaken > rules.ActionsPerTurn {
		return fmt.Errorf("actions taken %d out of range", gs.ActionsTaken)
	}
	for _, p := range gs.Players {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	switch gs.Outcome {
	case OutcomeNone, OutcomeSuccess, OutcomeFailure:
	default:
		return ErrInvalidOutcome
	}
	return nil
}

// LoadScene installs a freshly initialized scene. The party and any action
// scene belong to the previous scene and are cleared.
func (gs *GameState) LoadScene(idx int, sc *scene.Scene) {
	gs.SceneIndex = idx
	gs.Scene = sc
	gs.Party = nil
	gs.ActionScene = nil
	gs.Outcome = OutcomeNone
	gs.IsEnded = false
	gs.ActionsTaken = 0
}

// AddPlayer appends a player to the turn order.
func (gs *GameState) AddPlayer(p *player.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, _, err := gs.findPlayer(p.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Name)
	}
	gs.Players = append(gs.Players, p)
	return nil
}

// Player looks a player up by name, ignoring case.
func (gs *GameState) Player(name string) (*player.Player, error) {
	p, _, err := gs.findPlayer(name)
	return p, err
}

func (gs *GameState) findPlayer(name string) (*player.Player, int, error) {
	for i, p := range gs.Players {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
}

// EndScene records the scene outcome and ends the game. The party disbands.
// An outcome, once recorded, is final.
func (gs *GameState) EndScene(outcome Outcome) error {
	if gs.IsEnded {
		return ErrGameEnded
	}
	if outcome != OutcomeSuccess && outcome != OutcomeFailure {
		return ErrInvalidOutcome
	}
	gs.Outcome = outcome
	gs.IsEnded = true
	gs.ActionScene = nil
	gs.Party = nil
	return nil
}

// AppendMessage adds a message to the chat history.
func (gs *GameState) AppendMessage(role, content string) {
	gs.ChatHistory = append(gs.ChatHistory, chat.ChatMessage{Role: role, Content: content})
}

// Touch updates the modification time.
func (gs *GameState) Touch(now time.Time) {
	gs.UpdatedAt = now
}

// ParseOutcome accepts "success" or "failure" in any case.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeSuccess:
		return OutcomeSuccess, nil
	case OutcomeFailure:
		return OutcomeFailure, nil
	default:
		return OutcomeNone, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}
