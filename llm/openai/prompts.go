package openai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/snow-ghost/strategist/core"
)

const (
	thoughtSystem = "You are a senior software engineer planning a solution one step at a time. " +
		"Propose exactly one concrete next step. Reply with the step text only, under 50 words."

	strategySystem = "You are a senior software engineer. Produce a complete solution strategy as strict JSON " +
		`with fields: "id" (string), "summary" (string), "file_changes" (object mapping file path to full new file content). ` +
		"Reply with JSON only. No code fences, no commentary."

	judgeSystem = "You are a critical code reviewer. Rate how much the proposed step advances a correct solution. " +
		"Reply with a single number between 0 and 1."
)

func thoughtMessages(summary string, problem core.Problem, guidance string, slot, k int) []goopenai.ChatCompletionMessage {
	var sb strings.Builder
	sb.WriteString("Problem:\n")
	sb.WriteString(problem.Description)
	if problem.Type != "" {
		fmt.Fprintf(&sb, "\nProblem type: %s", problem.Type)
	}
	if problem.Hints != "" {
		fmt.Fprintf(&sb, "\nHints: %s", problem.Hints)
	}
	sb.WriteString("\n\nWork so far:\n")
	sb.WriteString(summary)
	if guidance != "" {
		sb.WriteString("\n\n")
		sb.WriteString(guidance)
	}
	fmt.Fprintf(&sb, "\n\nPropose candidate next step %d of %d. Make it distinct from the obvious first choice when possible.", slot+1, k)

	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: thoughtSystem},
		{Role: goopenai.ChatMessageRoleUser, Content: sb.String()},
	}
}

func strategyMessages(path []string, problem core.Problem, guidance string) []goopenai.ChatCompletionMessage {
	var sb strings.Builder
	sb.WriteString("Problem:\n")
	sb.WriteString(problem.Description)
	if problem.Type != "" {
		fmt.Fprintf(&sb, "\nProblem type: %s", problem.Type)
	}
	if problem.Hints != "" {
		fmt.Fprintf(&sb, "\nHints: %s", problem.Hints)
	}
	sb.WriteString("\n\nReasoning steps taken:\n")
	for i, step := range path {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	if guidance != "" {
		sb.WriteString("\n")
		sb.WriteString(guidance)
		sb.WriteString("\n")
	}
	sb.WriteString("\nProduce the complete strategy JSON now.")

	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: strategySystem},
		{Role: goopenai.ChatMessageRoleUser, Content: sb.String()},
	}
}

func judgeMessages(thought string) []goopenai.ChatCompletionMessage {
	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: judgeSystem},
		{Role: goopenai.ChatMessageRoleUser, Content: "Proposed step:\n" + thought + "\n\nScore:"},
	}
}

// parseStrategy decodes a strict-JSON strategy reply. Code fences are
// tolerated even though the prompt forbids them. A missing id falls back to
// fallbackID; an empty file_changes map is a generation failure.
func parseStrategy(raw, fallbackID string) (core.Strategy, error) {
	cleaned := stripFences(strings.TrimSpace(raw))

	var strategy core.Strategy
	if err := json.Unmarshal([]byte(cleaned), &strategy); err != nil {
		return core.Strategy{}, fmt.Errorf("parse strategy JSON: %w", err)
	}
	if strategy.ID == "" {
		strategy.ID = fallbackID
	}
	if len(strategy.FileChanges) == 0 {
		return core.Strategy{}, fmt.Errorf("strategy %s has no file changes", strategy.ID)
	}
	return strategy, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line.
		if first := strings.TrimSpace(s[:idx]); first == "" || !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseScore extracts the first number from a judge reply.
func parseScore(raw string) (float64, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ';', ':', '(', ')', '[', ']', '/':
			return true
		}
		return false
	})
	for _, f := range fields {
		f = strings.Trim(f, "*_`\"'")
		// Sentence-ending period; a leading dot can still start ".85".
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		if score, err := strconv.ParseFloat(f, 64); err == nil {
			return score, nil
		}
	}
	return 0, fmt.Errorf("no number in %q", headChars(raw, 80))
}
