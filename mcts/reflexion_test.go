package mcts

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFailureReasonClassifiesKnownErrors(t *testing.T) {
	var r Reflexion
	tests := []struct {
		raw  string
		want string
	}{
		{"panic: runtime error: index out of range [3] with length 3", "index out of range"},
		{"IndexError: list index out of range", "index out of range"},
		{"TypeError: type mismatch in assignment", "type mismatch"},
		{"cannot use x (variable of type int) as string value", "type mismatch"},
		{"AttributeError: 'Foo' object has no attribute 'bar'", "missing attribute"},
		{"ModuleNotFoundError: No module named 'requests'", "missing module"},
		{"main.go:3: cannot find package \"left/pad\"", "missing module"},
		{"SyntaxError: invalid syntax", "syntax error"},
		{"main.go:10:2: syntax error: unexpected }", "syntax error"},
		{"NameError: name 'foo' is not defined", "undefined name"},
		{"main.go:7:9: undefined: helper", "undefined name"},
	}
	for _, tt := range tests {
		got := r.ExtractFailureReason(&Node{}, tt.raw)
		assert.True(t, strings.HasPrefix(got, tt.want), "raw=%q got=%q", tt.raw, got)
	}
}

func TestExtractFailureReasonFallsBackToHead(t *testing.T) {
	var r Reflexion
	long := strings.Repeat("x", 300)
	got := r.ExtractFailureReason(&Node{}, long)
	require.Equal(t, strings.Repeat("x", 100), got)

	short := "something odd happened"
	require.Equal(t, short, r.ExtractFailureReason(&Node{}, short))
}

func TestExtractFailureReasonFromNodeStats(t *testing.T) {
	var r Reflexion

	lowQ := &Node{VisitCount: 4, QValue: 0.1}
	got := r.ExtractFailureReason(lowQ, "")
	require.Contains(t, got, "q=0.10")

	weakThought := &Node{ThoughtScore: 0.2}
	got = r.ExtractFailureReason(weakThought, "")
	require.Contains(t, got, "score=0.20")

	require.NotEmpty(t, r.ExtractFailureReason(&Node{}, ""))
}

func TestPropagateToParent(t *testing.T) {
	var r Reflexion
	root := NewRoot("p")
	child := NewThought(root, "t")
	root.AddChild(child)

	r.PropagateToParent(child, "syntax error: the generated code does not parse")
	require.Equal(t, []string{"syntax error: the generated code does not parse"}, root.RejectedReasons)

	// Root has no parent: no-op, no panic.
	r.PropagateToParent(root, "reason")
	require.Empty(t, root.RejectedReasons[1:])

	r.PropagateToParent(child, "")
	require.Len(t, root.RejectedReasons, 1)
}

func TestRejectionContextEmpty(t *testing.T) {
	var r Reflexion
	require.Equal(t, "", r.RejectionContext(nil))
	require.Equal(t, "", r.RejectionContext(&Node{}))
	require.Equal(t, "", r.RejectionContext(&Node{RejectedReasons: []string{"", ""}}))
}

func TestRejectionContextDedupesAndCaps(t *testing.T) {
	var r Reflexion
	n := &Node{}
	for i := 0; i < 4; i++ {
		n.AddRejectionReason("syntax error: the generated code does not parse")
	}
	for i := 0; i < 10; i++ {
		n.AddRejectionReason(fmt.Sprintf("distinct failure %d", i))
	}

	ctx := r.RejectionContext(n)
	require.NotEmpty(t, ctx)

	lines := strings.Split(ctx, "\n")
	var bullets []string
	for _, l := range lines {
		if strings.HasPrefix(l, "- ") {
			bullets = append(bullets, l)
		}
	}
	require.Len(t, bullets, 5)
	require.Equal(t, "- syntax error: the generated code does not parse", bullets[0])
	require.Equal(t, "- distinct failure 0", bullets[1])
	require.Equal(t, "- distinct failure 3", bullets[4])
}
