package mcts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fanTree builds root -> {a, b}, a -> {a0, a1}, b -> {b0}.
func fanTree() (*Node, map[string]*Node) {
	root := NewRoot("p")
	byID := map[string]*Node{root.ID: root}
	a := NewThought(root, "a")
	root.AddChild(a)
	b := NewThought(root, "b")
	root.AddChild(b)
	a0 := NewThought(a, "a0")
	a.AddChild(a0)
	a1 := NewThought(a, "a1")
	a.AddChild(a1)
	b0 := NewThought(b, "b0")
	b.AddChild(b0)
	for _, n := range []*Node{a, b, a0, a1, b0} {
		byID[n.ID] = n
	}
	return root, byID
}

func TestCollectLeavesTreeOrder(t *testing.T) {
	root, _ := fanTree()

	leaves := CollectLeaves(root)
	ids := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		ids = append(ids, leaf.ID)
	}
	require.Equal(t, []string{"root-0-0", "root-0-1", "root-1-0"}, ids)
}

func TestCollectLeavesSingleNode(t *testing.T) {
	root := NewRoot("p")
	leaves := CollectLeaves(root)
	require.Len(t, leaves, 1)
	require.Same(t, root, leaves[0])
}

func TestCountNodesAndMaxDepth(t *testing.T) {
	root, byID := fanTree()
	require.Equal(t, 6, CountNodes(root))
	require.Equal(t, 2, MaxDepth(root))

	deep := NewThought(byID["root-1-0"], "deeper")
	byID["root-1-0"].AddChild(deep)
	require.Equal(t, 7, CountNodes(root))
	require.Equal(t, 3, MaxDepth(root))
}

func TestOpsHandleNilRoot(t *testing.T) {
	require.Nil(t, CollectLeaves(nil))
	require.Equal(t, 0, CountNodes(nil))
	require.Equal(t, 0, MaxDepth(nil))
}
