package mcts

import (
	"context"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/snow-ghost/strategist/core"
)

const (
	heuristicWeight = 0.4
	judgeWeight     = 0.6
	neutralScore    = 0.5

	maxKeywordMatches = 4
	keywordBonus      = 0.05
	judgeMemoSize     = 512
)

// actionKeywords signal that a thought commits to concrete work instead of
// restating the problem.
var actionKeywords = []string{
	"implement", "add", "create", "modify", "refactor", "replace",
	"extract", "rename", "move", "delete", "update", "rewrite",
	"test", "validate", "parse", "handle", "fix", "check", "write",
	"split", "merge", "cache", "index",
}

var sequencingWords = map[string]bool{
	"first": true, "second": true, "third": true, "then": true,
	"next": true, "finally": true, "afterwards": true, "lastly": true,
}

// Evaluator produces the hybrid score for intermediate thoughts:
// 0.4*heuristic + 0.6*model judge, clamped to [0,1]. Judge failures degrade
// to a neutral 0.5 and never abort the search. Successful judge calls are
// memoized so identical thoughts across branches are paid for once.
type Evaluator struct {
	exec   core.Executor
	logger *zap.Logger
	memo   *lru.Cache[string, float64]
}

// NewEvaluator builds an evaluator over the executor's judge call.
func NewEvaluator(exec core.Executor, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	memo, _ := lru.New[string, float64](judgeMemoSize)
	return &Evaluator{exec: exec, logger: logger, memo: memo}
}

// Score grades one thought in [0,1].
func (e *Evaluator) Score(ctx context.Context, thought string) float64 {
	h := heuristicScore(thought)
	j := e.judge(ctx, thought)
	return clamp01(heuristicWeight*h + judgeWeight*j)
}

func (e *Evaluator) judge(ctx context.Context, thought string) float64 {
	if v, ok := e.memo.Get(thought); ok {
		return v
	}
	score, err := e.exec.EvaluateThought(ctx, thought)
	if err != nil {
		e.logger.Debug("thought judge failed, degrading to neutral", zap.Error(err))
		return neutralScore
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		e.logger.Debug("thought judge returned out-of-range score, degrading to neutral",
			zap.Float64("score", score))
		return neutralScore
	}
	e.memo.Add(thought, score)
	return score
}

// heuristicScore applies cheap textual signals to one thought. It starts
// neutral and moves by fixed increments; the caller clamps after mixing.
func heuristicScore(thought string) float64 {
	score := neutralScore

	words := strings.Fields(thought)
	switch {
	case len(words) >= 5 && len(words) <= 50:
		score += 0.1
	case len(words) < 3:
		score -= 0.2
	}

	lower := strings.ToLower(thought)
	matches := 0
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			matches++
			if matches == maxKeywordMatches {
				break
			}
		}
	}
	score += float64(matches) * keywordBonus

	if snippet, ok := fencedSnippet(thought); ok {
		if strings.TrimSpace(snippet) != "" && balancedDelimiters(snippet) {
			score += 0.1
		} else {
			score -= 0.1
		}
	}

	if hasSequencingMarkers(lower) {
		score += 0.1
	}
	return score
}

// fencedSnippet extracts the body of the first fenced code block. An
// unterminated fence yields the remaining text, which the balance check
// will usually reject.
func fencedSnippet(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:] // drop the language tag line
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest, true
}

// balancedDelimiters reports whether parentheses, brackets and braces pair
// up. A cheap validity proxy, not a parser.
func balancedDelimiters(s string) bool {
	var stack []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			stack = append(stack, s[i])
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// hasSequencingMarkers detects ordinal words or numbered list lines.
func hasSequencingMarkers(lower string) bool {
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,:;()")
		if sequencingWords[w] {
			return true
		}
	}
	for _, line := range strings.Split(lower, "\n") {
		t := strings.TrimSpace(line)
		if len(t) >= 2 && t[0] >= '1' && t[0] <= '9' && (t[1] == '.' || t[1] == ')') {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
