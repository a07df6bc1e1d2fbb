// Package manager runs a Labyrinth game: it sits between the players, the
// Goblin King model and the game state.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/dice"
	"github.com/jwebster45206/goblin-king/pkg/player"
	"github.com/jwebster45206/goblin-king/pkg/prompts"
	"github.com/jwebster45206/goblin-king/pkg/rules"
	"github.com/jwebster45206/goblin-king/pkg/scene"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

// LLM is the chat capability the manager needs. services.LLMService satisfies it.
type LLM interface {
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// TextFilter rewrites narration before it reaches players and history.
type TextFilter interface {
	Clean(text string) string
}

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	Reducer       LLM // model used for state deltas and summaries; defaults to the Goblin King model
	Book          *rules.Book
	Injection     rules.Injection
	Retriever     *rules.Retriever
	TopK          int
	ConcatPolicy  state.ConcatPolicy
	MaxTurns      int
	Summarization bool
	SummPeriod    int // rounds between summaries; 0 summarizes every round
	ClearRawLogs  bool
	Now           func() time.Time
	Rand          dice.Rand
	GameTimeLimit time.Duration
	TurnTimeLimit time.Duration
	Filter        TextFilter // nil leaves narration as generated
}

// RoundResult is what one player message produced.
type RoundResult struct {
	Response    string        `json:"response"`
	Warnings    []string      `json:"warnings,omitempty"`
	Notes       []string      `json:"notes,omitempty"` // engine messages shown to the players
	PartyChecks []dice.Result `json:"party_checks,omitempty"`
	Outcome     state.Outcome `json:"outcome,omitempty"`
	Ended       bool          `json:"ended"`
	NextPlayer  string        `json:"next_player,omitempty"`
}

// Manager drives one game. It is not safe for concurrent use.
type Manager struct {
	llm          LLM
	reducer      LLM
	opts         Options
	logger       *slog.Logger
	systemPrompt string
	gs           *state.GameState
}

func New(llm LLM, opts Options, logger *slog.Logger) *Manager {
	if opts.Reducer == nil {
		opts.Reducer = llm
	}
	if opts.Book == nil {
		opts.Book = rules.Default()
	}
	if opts.Injection == "" {
		opts.Injection = rules.InjectionNone
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ConcatPolicy == "" {
		opts.ConcatPolicy = state.ConcatSimple
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = dice.NewRand(0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gs := state.NewGameState()
	if opts.GameTimeLimit > 0 {
		gs.TimeLimit = opts.GameTimeLimit
	}
	if opts.TurnTimeLimit > 0 {
		gs.TurnTimeLimit = opts.TurnTimeLimit
	}

	return &Manager{
		llm:          llm,
		reducer:      opts.Reducer,
		opts:         opts,
		logger:       logger,
		systemPrompt: rules.SystemPrompt(opts.Book, opts.Injection),
		gs:           gs,
	}
}

// State returns the live game state.
func (m *Manager) State() *state.GameState {
	return m.gs
}

// LoadState replaces the managed game with a persisted one.
func (m *Manager) LoadState(gs *state.GameState) error {
	if err := gs.Validate(); err != nil {
		return fmt.Errorf("invalid game state: %w", err)
	}
	m.gs = gs
	return nil
}

// SystemPrompt returns the Goblin King instruction in use.
func (m *Manager) SystemPrompt() string {
	return m.systemPrompt
}

// AddPlayer adds a copy of p to the game.
func (m *Manager) AddPlayer(p *player.Player) error {
	if p == nil {
		return fmt.Errorf("player cannot be nil")
	}
	return m.gs.AddPlayer(p.Clone())
}

// InitScene asks the model to expand tmpl and installs the result. When the
// output does not validate the current scene stays and the parse error is
// returned together with the raw output.
func (m *Manager) InitScene(ctx context.Context, idx int, tmpl scene.Template) (*scene.Scene, string, error) {
	prompt, err := scene.InitPrompt(tmpl)
	if err != nil {
		return nil, "", err
	}
	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: m.systemPrompt},
		{Role: chat.ChatRoleUser, Content: prompt},
	}

	m.logger.Debug("Initializing scene", "game_id", m.gs.ID.String(), "scene", tmpl.Scene)
	resp, err := m.llm.Chat(ctx, messages)
	if err != nil {
		return nil, "", fmt.Errorf("scene initialization failed: %w", err)
	}

	gen, err := scene.Parse(resp.Message)
	if err != nil {
		m.logger.Warn("Scene output rejected",
			"game_id", m.gs.ID.String(),
			"scene", tmpl.Scene,
			"error", err)
		return nil, resp.Message, err
	}

	sc := scene.New(tmpl, gen)
	m.gs.LoadScene(idx, sc)
	m.gs.StartClock(m.opts.Now())
	m.gs.Touch(m.opts.Now())
	m.logger.Info("Scene initialized",
		"game_id", m.gs.ID.String(),
		"scene", sc.Scene,
		"npcs", len(sc.NPCs))
	return sc, resp.Message, nil
}

// ShowScene renders the current scene sheet.
func (m *Manager) ShowScene() (string, error) {
	if m.gs.Scene == nil {
		return "", state.ErrNoScene
	}
	return m.gs.Scene.Show(), nil
}

// ClearHistory drops the raw chat history.
func (m *Manager) ClearHistory() {
	m.gs.ClearHistory()
}

// ChatRound sends one message to the Goblin King without touching the
// turn order. Only the history changes.
func (m *Manager) ChatRound(ctx context.Context, message string) (string, error) {
	return m.chatRound(ctx, "", message)
}

func (m *Manager) chatRound(ctx context.Context, playerName, message string, notices ...string) (string, error) {
	now := m.opts.Now()
	messages, err := prompts.New().
		WithGameState(m.gs).
		WithSystemPrompt(m.systemPrompt).
		WithRuleExcerpts(m.ruleExcerpts(ctx, message)).
		WithHistory(m.opts.ConcatPolicy, m.opts.MaxTurns).
		WithUserMessage(message, playerName).
		WithNotices(notices...).
		WithClock(now).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := m.llm.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("goblin king response failed: %w", err)
	}

	narration := strings.TrimSpace(resp.Message)
	if m.opts.Filter != nil {
		narration = m.opts.Filter.Clean(narration)
	}
	if message != "" {
		m.gs.AppendMessage(chat.ChatRoleUser, chat.PlayerMessage(playerName, message))
	}
	m.gs.AppendMessage(chat.ChatRoleAgent, narration)
	return narration, nil
}

// ruleExcerpts returns retrieved rule lines for retrieval injection. A
// retrieval failure only costs the excerpts.
func (m *Manager) ruleExcerpts(ctx context.Context, message string) string {
	if m.opts.Injection != rules.InjectionRetrieval || m.opts.Retriever == nil || strings.TrimSpace(message) == "" {
		return ""
	}
	excerpts, err := m.opts.Retriever.Retrieve(ctx, message, m.opts.TopK)
	if err != nil {
		m.logger.Warn("Rule retrieval failed", "game_id", m.gs.ID.String(), "error", err)
		return ""
	}
	return rules.FormatExcerpts(excerpts)
}

// Test resolves a dice test for a player and notes the result in the history.
func (m *Manager) Test(playerName string, difficulty int, helpers []dice.Helper) (dice.Result, error) {
	p, err := m.gs.Player(playerName)
	if err != nil {
		return dice.Result{}, err
	}
	helpers = slices.Clone(helpers)
	for i, h := range helpers {
		hp, err := m.gs.Player(h.Player)
		if err != nil {
			return dice.Result{}, fmt.Errorf("helper: %w", err)
		}
		if strings.EqualFold(hp.Name, p.Name) {
			return dice.Result{}, fmt.Errorf("%s cannot help their own test", p.Name)
		}
		helpers[i].Player = hp.Name
	}

	result, err := dice.Test{Player: p.Name, Difficulty: difficulty, Helpers: helpers}.Resolve(m.opts.Rand)
	if err != nil {
		return dice.Result{}, err
	}
	m.gs.AppendMessage(chat.ChatRoleSystem, result.String())
	m.logger.Debug("Test resolved",
		"game_id", m.gs.ID.String(),
		"player", p.Name,
		"roll", result.Roll,
		"difficulty", result.Difficulty,
		"success", result.Success)
	return result, nil
}

// DrawCard draws from one of the scene's random tables.
func (m *Manager) DrawCard(table string) (string, error) {
	if m.gs.Scene == nil {
		return "", state.ErrNoScene
	}
	card, err := m.gs.Scene.Draw(table, m.opts.Rand)
	if err != nil {
		return "", err
	}
	m.gs.AppendMessage(chat.ChatRoleSystem, fmt.Sprintf("Drawn from %s: %s", table, card))
	return card, nil
}

// IsRecoverable reports whether a PlayRound error leaves the game playable,
// such as a message sent out of turn.
func IsRecoverable(err error) bool {
	return errors.Is(err, state.ErrNotPlayersTurn) ||
		errors.Is(err, state.ErrActionLimitReached) ||
		errors.Is(err, state.ErrUnknownPlayer) ||
		errors.Is(err, state.ErrTurnExpired)
}
