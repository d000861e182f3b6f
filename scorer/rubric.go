// Package scorer grades executed strategies without calling back into a
// model: a fixed weighted checklist over the execution result.
package scorer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/snow-ghost/strategist/core"
)

const (
	testWeight    = 0.6
	successWeight = 0.2
	cleanWeight   = 0.1
	outputWeight  = 0.1

	// noTestsFactor is the share of the test weight granted when the run
	// executed no tests at all: not a pass, not a total failure.
	noTestsFactor = 0.5

	weaknessErrorLimit = 80
)

// Rubric implements core.Scorer as a pure, deterministic checklist. Every
// failed check contributes a weakness string so reflexion has something
// concrete to propagate.
type Rubric struct{}

// NewRubric returns the checklist scorer.
func NewRubric() Rubric { return Rubric{} }

// Score grades one execution. It never fails: a malformed result simply
// scores low.
func (Rubric) Score(_ context.Context, _ core.Strategy, result core.ExecutionResult) (core.Verdict, error) {
	var score float64
	var weaknesses []string

	total := result.TestsPassed + result.TestsFailed
	switch {
	case total == 0:
		score += testWeight * noTestsFactor
		weaknesses = append(weaknesses, "no tests were executed")
	case result.TestsFailed > 0:
		score += testWeight * float64(result.TestsPassed) / float64(total)
		weaknesses = append(weaknesses, fmt.Sprintf("%d of %d tests failed", result.TestsFailed, total))
	default:
		score += testWeight
	}

	if result.Success {
		score += successWeight
	} else {
		weaknesses = append(weaknesses, "execution reported failure")
	}

	if strings.TrimSpace(result.ErrorText) == "" {
		score += cleanWeight
	} else {
		weaknesses = append(weaknesses, "error output: "+headChars(result.ErrorText, weaknessErrorLimit))
	}

	if strings.TrimSpace(result.Output) != "" {
		score += outputWeight
	} else {
		weaknesses = append(weaknesses, "no output produced")
	}

	return core.Verdict{TotalScore: score, Weaknesses: weaknesses}, nil
}

func headChars(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
