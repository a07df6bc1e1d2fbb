package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/state"
)

// Builder constructs chat messages for LLM interaction using a fluent interface.
// It separates prompt building logic from game state management.
type Builder struct {
	gs           *state.GameState
	systemPrompt string
	ruleExcerpts string
	userMessage  string
	player       string
	policy       state.ConcatPolicy
	maxTurns     int
	notices      []string
	now          time.Time
	messages     []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		policy:   state.ConcatSimple,
		now:      time.Now(),
		messages: make([]chat.ChatMessage, 0),
	}
}

func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithSystemPrompt sets the Goblin King instruction (and full rules, if injected).
func (b *Builder) WithSystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// WithRuleExcerpts sets retrieved rule text for this message.
func (b *Builder) WithRuleExcerpts(excerpts string) *Builder {
	b.ruleExcerpts = excerpts
	return b
}

// WithUserMessage sets the message and the name of the player who sent it.
// An empty player sends the message as is.
func (b *Builder) WithUserMessage(message, player string) *Builder {
	b.userMessage = message
	b.player = player
	return b
}

// WithHistory sets the concat policy and how many past turns to include.
func (b *Builder) WithHistory(policy state.ConcatPolicy, maxTurns int) *Builder {
	b.policy = policy
	b.maxTurns = maxTurns
	return b
}

// WithNotices adds engine notes, such as remaining-time announcements.
func (b *Builder) WithNotices(notices ...string) *Builder {
	b.notices = append(b.notices, notices...)
	return b
}

func (b *Builder) WithClock(now time.Time) *Builder {
	b.now = now
	return b
}

// Build constructs and returns the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}
	if strings.TrimSpace(b.systemPrompt) == "" {
		return nil, fmt.Errorf("system prompt is required")
	}

	b.messages = make([]chat.ChatMessage, 0)

	// 1. System prompt and state
	if err := b.addSystemPrompt(); err != nil {
		return nil, fmt.Errorf("error building system prompt: %w", err)
	}

	// 2. Summaries of earlier play
	b.addSummaries()

	// 3. Retrieved rules
	b.addSystem(b.ruleExcerpts)

	// 4. Windowed chat history
	b.messages = append(b.messages, b.gs.HistoryWindow(b.policy, b.maxTurns)...)

	// 5. User message
	b.addUserMessage()

	// 6. Engine notices
	for _, n := range b.notices {
		b.addSystem(n)
	}

	// 7. Final reminder
	b.addFinalPrompt()

	return b.messages, nil
}

func (b *Builder) addSystemPrompt() error {
	statePrompt, err := GetStatePrompt(b.gs, b.now)
	if err != nil {
		return err
	}
	b.addSystem(b.systemPrompt + "\n\n" + statePrompt.Content)
	return nil
}

func (b *Builder) addSummaries() {
	if len(b.gs.Summaries) == 0 {
		return
	}
	b.addSystem(SummaryIntroduction + "\n" + strings.Join(b.gs.Summaries, "\n"))
}

func (b *Builder) addUserMessage() {
	if b.userMessage == "" {
		return
	}
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: chat.PlayerMessage(b.player, b.userMessage),
	})
}

func (b *Builder) addSystem(content string) {
	if content == "" {
		return
	}
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: content,
	})
}

// addFinalPrompt adds the scene-end, action-scene or standard reminder.
func (b *Builder) addFinalPrompt() {
	switch {
	case b.gs.IsEnded:
		b.addSystem(fmt.Sprintf("%s\nOutcome: %s.", GameEndSystemPrompt, b.gs.Outcome))
	case b.gs.ActionScene != nil:
		b.addSystem(ActionScenePrompt)
	default:
		b.addSystem(UserPostPrompt)
	}
}
