package tokens

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// wordsToTokens is the rough tokens-per-word ratio for English prose.
const wordsToTokens = 1.3

// Heuristic estimates usage from a whitespace word count. This is the
// approximation-mode default: explicitly an estimate, never measured usage.
type Heuristic struct{}

// NewHeuristic returns the word-count estimator.
func NewHeuristic() Heuristic { return Heuristic{} }

// Estimate returns ~1.3 tokens per word, rounded up.
func (Heuristic) Estimate(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * wordsToTokens))
}

// Tiktoken estimates with a real BPE vocabulary.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktoken builds an estimator for the named encoding, typically
// "cl100k_base".
func NewTiktoken(encodingName string) (*Tiktoken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("get encoding %s: %w", encodingName, err)
	}
	return &Tiktoken{encoding: encoding}, nil
}

// Estimate returns the exact token count under the loaded encoding.
func (t *Tiktoken) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Fixed reports a constant count regardless of input. Useful in tests that
// need exact budget arithmetic.
type Fixed int

func (f Fixed) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return int(f)
}
