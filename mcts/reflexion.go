package mcts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxRejectionItems = 5
	rawReasonLimit    = 100
	lowQValue         = 0.3
)

// errorClasses maps raw-error substrings to short remediation hints. Checked
// in order against the lowercased error; first match wins.
var errorClasses = []struct {
	needle string
	reason string
}{
	{"index out of range", "index out of range: re-check collection bounds and off-by-one arithmetic"},
	{"type mismatch", "type mismatch: align argument and return types across the change"},
	{"cannot use", "type mismatch: align argument and return types across the change"},
	{"has no attribute", "missing attribute: verify the field or method exists on the receiver"},
	{"no attribute", "missing attribute: verify the field or method exists on the receiver"},
	{"no module named", "missing module: add the import or dependency before using it"},
	{"cannot find module", "missing module: add the import or dependency before using it"},
	{"cannot find package", "missing module: add the import or dependency before using it"},
	{"syntax error", "syntax error: the generated code does not parse"},
	{"syntaxerror", "syntax error: the generated code does not parse"},
	{"undefined name", "undefined name: declare or import the identifier before use"},
	{"is not defined", "undefined name: declare or import the identifier before use"},
	{"undefined:", "undefined name: declare or import the identifier before use"},
}

// Reflexion turns failures into guidance text so failure knowledge flows
// sideways across the tree instead of being recomputed.
type Reflexion struct{}

// ExtractFailureReason condenses a failure into one short reason. Known
// error shapes get a remediation hint; unknown raw errors keep their first
// 100 characters; with no raw error the node's own statistics decide.
func (Reflexion) ExtractFailureReason(node *Node, rawError string) string {
	if rawError != "" {
		lower := strings.ToLower(rawError)
		for _, class := range errorClasses {
			if strings.Contains(lower, class.needle) {
				return class.reason
			}
		}
		return headRunes(strings.TrimSpace(rawError), rawReasonLimit)
	}
	if node == nil {
		return ""
	}
	if node.VisitCount > 0 && node.QValue < lowQValue {
		return fmt.Sprintf("branch kept scoring low (q=%.2f after %d visits)", node.QValue, node.VisitCount)
	}
	if node.ThoughtScore > 0 && node.ThoughtScore < neutralScore {
		return fmt.Sprintf("thought judged weak (score=%.2f)", node.ThoughtScore)
	}
	return "strategy underperformed without a recorded error"
}

// PropagateToParent records the reason on the parent so later sibling
// expansions see it. Root failures have nowhere to go.
func (Reflexion) PropagateToParent(node *Node, reason string) {
	if node == nil || node.Parent == nil || reason == "" {
		return
	}
	node.Parent.AddRejectionReason(reason)
}

// RejectionContext renders the node's recorded failure reasons as guidance
// text: deduplicated, at most 5 bullets, empty when nothing failed here.
func (Reflexion) RejectionContext(node *Node) string {
	if node == nil || len(node.RejectedReasons) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(node.RejectedReasons))
	items := make([]string, 0, maxRejectionItems)
	for _, r := range node.RejectedReasons {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		items = append(items, "- "+r)
		if len(items) == maxRejectionItems {
			break
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "Previous attempts from this point failed. Avoid these mistakes:\n" + strings.Join(items, "\n")
}

// headRunes cuts s after at most n characters without splitting a rune.
func headRunes(s string, n int) string {
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
