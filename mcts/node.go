package mcts

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/snow-ghost/strategist/core"
)

// ucbEpsilon keeps the exploration denominator positive for zero-visit nodes.
const ucbEpsilon = 1e-6

// Node is one vertex of the search tree. Nodes are created detached and
// attached exactly once through AddChild, which keeps the tree acyclic and
// the depth/back-reference invariants in one place. All mutation happens on
// the single search goroutine.
type Node struct {
	ID             string
	Parent         *Node
	Children       []*Node
	Depth          int
	PartialThought string
	ThoughtDiff    string
	VisitCount     int
	QValue         float64
	ThoughtScore   float64
	IsTerminal     bool
	IsPromising    bool

	CompletedStrategy *core.Strategy
	RejectedReasons   []string
}

// NewRoot returns the tree root holding the problem statement.
func NewRoot(problem string) *Node {
	return &Node{ID: "root", PartialThought: problem}
}

// NewThought returns a detached node carrying one generated step. The
// parent's accumulated text plus the new step becomes the child's partial
// thought; the step itself is kept as the diff.
func NewThought(parent *Node, thought string) *Node {
	partial := thought
	if parent != nil && parent.PartialThought != "" {
		partial = parent.PartialThought + "\n" + thought
	}
	return &Node{PartialThought: partial, ThoughtDiff: thought}
}

// AddChild attaches child, assigning its deterministic id, depth and
// back-reference. Children keep insertion order.
func (n *Node) AddChild(child *Node) {
	child.ID = fmt.Sprintf("%s-%d", n.ID, len(n.Children))
	child.Parent = n
	child.Depth = n.Depth + 1
	n.Children = append(n.Children, child)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// UCB scores the node for selection among its already-visited siblings:
// q_value + c*sqrt(ln(parent.visits+1) / (visits+eps)).
func (n *Node) UCB(c float64) float64 {
	parentVisits := 1.0
	if n.Parent != nil {
		parentVisits = float64(n.Parent.VisitCount) + 1
	}
	return n.QValue + c*math.Sqrt(math.Log(parentVisits)/(float64(n.VisitCount)+ucbEpsilon))
}

// UpdateQValue folds one reward into the running mean and counts the visit.
func (n *Node) UpdateQValue(reward float64) {
	n.VisitCount++
	n.QValue += (reward - n.QValue) / float64(n.VisitCount)
}

// Summary returns a prompt-sized projection of the accumulated thought text.
// Truncation keeps the tail so the most recent steps survive.
func (n *Node) Summary(maxLen int) string {
	if maxLen <= 0 || len(n.PartialThought) <= maxLen {
		return n.PartialThought
	}
	cut := n.PartialThought[len(n.PartialThought)-maxLen:]
	for len(cut) > 0 && !utf8.RuneStart(cut[0]) {
		cut = cut[1:]
	}
	return "..." + cut
}

// FullPath returns the chain of nodes from the root to this node, inclusive.
func (n *Node) FullPath() []*Node {
	var rev []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		rev = append(rev, cur)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// ThoughtSequence returns the generated steps on the path, root-side first.
// The root's problem statement is not part of the sequence.
func (n *Node) ThoughtSequence() []string {
	path := n.FullPath()
	seq := make([]string, 0, len(path))
	for _, node := range path {
		if node.Parent == nil {
			continue
		}
		seq = append(seq, node.ThoughtDiff)
	}
	return seq
}

// AddRejectionReason records one failure reason for future sibling
// expansions. Deduplication happens when the context is rendered.
func (n *Node) AddRejectionReason(reason string) {
	if reason == "" {
		return
	}
	n.RejectedReasons = append(n.RejectedReasons, reason)
}
