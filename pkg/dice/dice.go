// Package dice resolves Labyrinth tests: a single six-sided die rolled
// against a difficulty that helping players can push up or down.
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	Sides         = 6
	MinDifficulty = 2
	MaxDifficulty = 6
)

var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Rand is the subset of *rand.Rand used for rolls and table draws.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a seeded generator. Seed 0 picks a random seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Helper is another player lending a trait (easier) or a flaw (harder) to a test.
type Helper struct {
	Player    string `json:"player"`
	UsesTrait bool   `json:"uses_trait"`
}

// Test is a single Labyrinth test.
type Test struct {
	Player     string   `json:"player"`
	Difficulty int      `json:"difficulty"`
	Helpers    []Helper `json:"helpers,omitempty"`
}

// Result is the outcome of a resolved test.
type Result struct {
	Test       Test `json:"test"`
	Roll       int  `json:"roll"`
	Difficulty int  `json:"difficulty"` // final difficulty after helpers
	Success    bool `json:"success"`
}

// FinalDifficulty applies helpers to the base difficulty.
// Each trait lowers it by one, each flaw raises it by one, clamped to 2..6.
func (t Test) FinalDifficulty() (int, error) {
	if t.Difficulty < MinDifficulty || t.Difficulty > MaxDifficulty {
		return 0, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidDifficulty, t.Difficulty, MinDifficulty, MaxDifficulty)
	}
	d := t.Difficulty
	for _, h := range t.Helpers {
		if h.UsesTrait {
			d--
		} else {
			d++
		}
	}
	return min(max(d, MinDifficulty), MaxDifficulty), nil
}

// Roll rolls one die.
func Roll(rng Rand) int {
	return rng.IntN(Sides) + 1
}

// Resolve rolls for the test. The test passes when the roll meets or beats
// the final difficulty.
func (t Test) Resolve(rng Rand) (Result, error) {
	d, err := t.FinalDifficulty()
	if err != nil {
		return Result{}, err
	}
	roll := Roll(rng)
	return Result{
		Test:       t,
		Roll:       roll,
		Difficulty: d,
		Success:    roll >= d,
	}, nil
}

func (r Result) String() string {
	verdict := "failed"
	if r.Success {
		verdict = "passed"
	}
	return fmt.Sprintf("%s rolled %d against difficulty %d and %s the test.", r.Test.Player, r.Roll, r.Difficulty, verdict)
}
