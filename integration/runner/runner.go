package runner

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/goblin-king/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner plays scripted sessions against a running goblin-king api.
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // per chat step
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	SceneOverride     *int // if set, every suite starts in this scene
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 3 * time.Minute},
		Timeout:           2 * time.Minute,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if !suite.IsSequence() && len(suite.PlayerIDs) == 0 {
		return TestSuite{}, fmt.Errorf("test suite %s has no player_ids", filename)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Case paths are resolved against casesDir.
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates a game for the suite and plays its steps in order.
// The game is deleted afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{}

	sceneIndex := suite.SceneIndex
	if r.SceneOverride != nil {
		sceneIndex = *r.SceneOverride
	}

	gs, err := r.createGame(ctx, sceneIndex, suite.PlayerIDs)
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = gs.ID
	defer func() {
		if err := r.deleteGame(context.WithoutCancel(ctx), gs.ID); err != nil {
			r.Logger("    warning: failed to delete game %s: %v", gs.ID, err)
		}
	}()

	r.Logger("  %s: game %s in scene %d", suite.Name, gs.ID, sceneIndex)

	for i, step := range suite.Steps {
		stepResult := r.runStep(ctx, gs.ID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep retries once when the model call fails; the engine refunds the
// action in that case so the retry plays the same turn.
func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	var result TestResult
	for attempt := 1; attempt <= 2; attempt++ {
		result = r.executeStep(ctx, gameID, step)
		if result.Status != http.StatusBadGateway || expectedStatus(step.Expectations) == http.StatusBadGateway {
			return result
		}
		r.Logger("    model error, retrying step: %s", step.Name)
	}
	return result
}

func (r *Runner) executeStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	if result.StepName == "" {
		result.StepName = step.Message
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	status, resp, err := r.postChat(stepCtx, gameID, step.Player, step.Message)
	result.Status = status
	if err != nil {
		result.Error = fmt.Errorf("failed to post chat: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.ResponseText = resp.Message

	if want := expectedStatus(step.Expectations); status != want {
		result.Error = fmt.Errorf("expected status %d, got %d: %s", want, status, resp.Error)
		result.Duration = time.Since(start)
		return result
	}

	gs, err := r.getGame(ctx, gameID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get game after chat: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expectations, gs, resp.Message); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func expectedStatus(exp Expectations) int {
	if exp.Status != nil {
		return *exp.Status
	}
	return http.StatusOK
}

// checkExpectations validates a step's expectations against the game after it.
func checkExpectations(exp Expectations, gs *state.GameState, responseText string) error {
	if exp.NextPlayer != nil {
		active := gs.ActivePlayer()
		if active == nil || !strings.EqualFold(active.Name, *exp.NextPlayer) {
			got := ""
			if active != nil {
				got = active.Name
			}
			return fmt.Errorf("expected next player %s, got %s", *exp.NextPlayer, got)
		}
	}

	if exp.IsEnded != nil && gs.IsEnded != *exp.IsEnded {
		return fmt.Errorf("expected is_ended to be %t, got %t", *exp.IsEnded, gs.IsEnded)
	}

	if exp.Outcome != nil && string(gs.Outcome) != *exp.Outcome {
		return fmt.Errorf("expected outcome %q, got %q", *exp.Outcome, gs.Outcome)
	}

	if exp.ActionScene != nil && (gs.ActionScene != nil) != *exp.ActionScene {
		return fmt.Errorf("expected action scene active to be %t, got %t", *exp.ActionScene, gs.ActionScene != nil)
	}

	if exp.Rounds != nil && gs.Rounds != *exp.Rounds {
		return fmt.Errorf("expected rounds to be %d, got %d", *exp.Rounds, gs.Rounds)
	}

	if exp.Party != nil {
		if err := sameNames("party", exp.Party, gs.Party); err != nil {
			return err
		}
	}

	for name, want := range exp.Items {
		p, err := gs.Player(name)
		if err != nil {
			return fmt.Errorf("expected player %s: %w", name, err)
		}
		got := make([]string, len(p.Items))
		for i, item := range p.Items {
			got[i] = item.Name
		}
		if err := sameNames(name+" items", want, got); err != nil {
			return err
		}
	}

	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(responseText))
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(responseText))
	}

	return nil
}

// sameNames compares two name lists ignoring order and case.
func sameNames(what string, want, got []string) error {
	norm := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(strings.TrimSpace(s))
		}
		slices.Sort(out)
		return out
	}
	if !slices.Equal(norm(want), norm(got)) {
		return fmt.Errorf("expected %s %v, got %v", what, want, got)
	}
	return nil
}
