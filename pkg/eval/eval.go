// Package eval grades the Goblin King: scene initialization, rule
// knowledge and in-game responses.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/goblin-king/pkg/manager"
	"github.com/jwebster45206/goblin-king/pkg/scene"
)

// Score is the grade for one evaluated item.
type Score struct {
	Item        string  `json:"item"`
	Prompt      string  `json:"prompt,omitempty"`
	Response    string  `json:"response,omitempty"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// InitScore maps a scene parse error to its fallback score. ok is false for
// errors that are not about the output's shape.
func InitScore(err error) (float64, bool) {
	var syntaxErr *scene.SyntaxError
	var missingErr *scene.MissingKeyError
	var typeErr *scene.TypeError
	switch {
	case errors.As(err, &syntaxErr):
		return InitSyntaxScore, true
	case errors.As(err, &missingErr):
		return InitMissingKeyScore, true
	case errors.As(err, &typeErr):
		return InitTypeScore, true
	default:
		return 0, false
	}
}

// EvaluateInit initializes a scene and grades the result. Output that does
// not validate gets a fixed score without asking the scorer.
func EvaluateInit(ctx context.Context, mgr *manager.Manager, idx int, tmpl scene.Template, scorer Scorer) (Score, error) {
	item := fmt.Sprintf("scene %d: %s", idx, tmpl.Scene)
	sc, raw, err := mgr.InitScene(ctx, idx, tmpl)
	if err != nil {
		if s, ok := InitScore(err); ok {
			return Score{Item: item, Response: raw, Score: s, Error: err.Error()}, nil
		}
		return Score{}, err
	}

	sheet := sc.Show()
	selected, err := scorer.Select(ctx, sheet, InitOptions)
	if err != nil {
		return Score{}, err
	}
	return Score{Item: item, Response: sheet, Score: selected.Score, Description: selected.Description}, nil
}

// EvaluateRules asks every rule question with a fresh history.
func EvaluateRules(ctx context.Context, mgr *manager.Manager, scorer Scorer, logger *slog.Logger) ([]Score, error) {
	scores := make([]Score, 0, len(RuleQuestions))
	for i, question := range RuleQuestions {
		query := fmt.Sprintf(RulesQuestionFormat, question)
		response, err := mgr.ChatRound(ctx, query)
		mgr.ClearHistory()
		if err != nil {
			return scores, fmt.Errorf("question %d: %w", i+1, err)
		}

		shown := fmt.Sprintf("QUESTION %d: %s\nANSWER: %s", i+1, question, response)
		selected, err := scorer.Select(ctx, shown, RuleOptions)
		if err != nil {
			return scores, err
		}
		scores = append(scores, Score{
			Item:        fmt.Sprintf("question %d", i+1),
			Prompt:      question,
			Response:    response,
			Score:       selected.Score,
			Description: selected.Description,
		})
		if logger != nil {
			logger.Debug("Rule question graded", "question", i+1, "score", selected.Score)
		}
	}
	return scores, nil
}

// EvaluateResponses plays scripted messages and grades each narration.
// Messages the game refuses, such as one sent out of turn, are recorded with
// a zero score and the run continues.
func EvaluateResponses(ctx context.Context, mgr *manager.Manager, cases []Case, scorer Scorer) ([]Score, error) {
	scores := make([]Score, 0, len(cases))
	for i, c := range cases {
		item := c.Name
		if item == "" {
			item = fmt.Sprintf("case %d", i+1)
		}
		res, err := mgr.PlayRound(ctx, c.Player, c.Message)
		if err != nil {
			if manager.IsRecoverable(err) {
				scores = append(scores, Score{Item: item, Prompt: c.Message, Error: err.Error()})
				continue
			}
			return scores, fmt.Errorf("%s: %w", item, err)
		}

		shown := fmt.Sprintf("PLAYER %s: %s\nGOBLIN KING: %s", c.Player, c.Message, res.Response)
		if c.Expectation != "" {
			shown += "\nEXPECTED: " + c.Expectation
		}
		selected, err := scorer.Select(ctx, shown, ResponseOptions)
		if err != nil {
			return scores, err
		}
		scores = append(scores, Score{
			Item:        item,
			Prompt:      c.Message,
			Response:    res.Response,
			Score:       selected.Score,
			Description: selected.Description,
		})
		if res.Ended {
			break
		}
	}
	return scores, nil
}
