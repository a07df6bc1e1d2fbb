package state

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/goblin-king/pkg/chat"
)

// ConcatPolicy decides which past messages are sent with a new one.
type ConcatPolicy string

// ConcatSimple keeps the most recent turns, oldest first.
const ConcatSimple ConcatPolicy = "simple"

func ParseConcatPolicy(s string) (ConcatPolicy, error) {
	switch ConcatPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConcatSimple:
		return ConcatSimple, nil
	default:
		return "", fmt.Errorf("unknown concat policy %q", s)
	}
}

// HistoryWindow returns the part of the chat history to include in a prompt.
// A turn is one user message and what follows it until the next user message;
// maxTurns <= 0 keeps everything. The returned slice is a copy.
func (gs *GameState) HistoryWindow(policy ConcatPolicy, maxTurns int) []chat.ChatMessage {
	return Window(gs.ChatHistory, policy, maxTurns)
}

// Window applies a concat policy to an arbitrary history.
func Window(history []chat.ChatMessage, policy ConcatPolicy, maxTurns int) []chat.ChatMessage {
	start := 0
	if policy == ConcatSimple && maxTurns > 0 {
		seen := 0
		start = -1
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role == chat.ChatRoleUser {
				seen++
				if seen == maxTurns {
					start = i
					break
				}
			}
		}
		if start < 0 {
			start = 0
		}
	}
	out := make([]chat.ChatMessage, len(history)-start)
	copy(out, history[start:])
	return out
}

// ClearHistory drops the raw chat history. Summaries are kept.
func (gs *GameState) ClearHistory() {
	gs.ChatHistory = make([]chat.ChatMessage, 0)
	gs.SummaryMark = 0
}

// Unsummarized returns the history recorded since the last summary.
func (gs *GameState) Unsummarized() []chat.ChatMessage {
	mark := min(max(gs.SummaryMark, 0), len(gs.ChatHistory))
	out := make([]chat.ChatMessage, len(gs.ChatHistory)-mark)
	copy(out, gs.ChatHistory[mark:])
	return out
}

// AddSummary stores a summary; when clearRaw is set the summarized raw
// messages are dropped.
func (gs *GameState) AddSummary(summary string, clearRaw bool) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	gs.Summaries = append(gs.Summaries, summary)
	if clearRaw {
		gs.ClearHistory()
		return
	}
	gs.SummaryMark = len(gs.ChatHistory)
}
