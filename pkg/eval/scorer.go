package eval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/jwebster45206/goblin-king/pkg/chat"
	"github.com/jwebster45206/goblin-king/pkg/prompts"
)

// Option is one grade a scorer can pick.
type Option struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Scorer picks a grade for what the Goblin King produced. prompt is the
// material being graded.
type Scorer interface {
	Select(ctx context.Context, prompt string, options []Option) (Option, error)
}

var ErrNoScores = errors.New("scripted scorer has no scores left")

// ScriptedScorer returns preset scores in order. Each score must match one
// of the offered options.
type ScriptedScorer struct {
	mu      sync.Mutex
	scores  []float64
	Prompts []string
}

func NewScriptedScorer(scores ...float64) *ScriptedScorer {
	return &ScriptedScorer{scores: scores}
}

func (s *ScriptedScorer) Select(ctx context.Context, prompt string, options []Option) (Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.scores) == 0 {
		return Option{}, ErrNoScores
	}
	next := s.scores[0]
	s.scores = s.scores[1:]
	for _, o := range options {
		if o.Score == next {
			return o, nil
		}
	}
	return Option{}, fmt.Errorf("score %.1f is not one of the options", next)
}

// LLM is the chat capability the judge needs.
type LLM interface {
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// JudgeScorer lets a model grade responses against the rule summary.
type JudgeScorer struct {
	llm         LLM
	ruleSummary string
}

func NewJudgeScorer(llm LLM, ruleSummary string) *JudgeScorer {
	return &JudgeScorer{llm: llm, ruleSummary: ruleSummary}
}

var firstNumber = regexp.MustCompile(`\d+`)

func (j *JudgeScorer) Select(ctx context.Context, prompt string, options []Option) (Option, error) {
	descriptions := make([]string, len(options))
	for i, o := range options {
		descriptions[i] = o.Description
	}
	resp, err := j.llm.Chat(ctx, prompts.BuildJudgeMessages(j.ruleSummary, prompt, descriptions))
	if err != nil {
		return Option{}, fmt.Errorf("judge request failed: %w", err)
	}
	return pickOption(resp.Message, options)
}

// pickOption reads a 1-based option number from text.
func pickOption(text string, options []Option) (Option, error) {
	m := firstNumber.FindString(text)
	if m == "" {
		return Option{}, fmt.Errorf("no option number in %q", text)
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 || n > len(options) {
		return Option{}, fmt.Errorf("option %s out of range 1-%d", m, len(options))
	}
	return options[n-1], nil
}
