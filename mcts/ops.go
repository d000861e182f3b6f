package mcts

// Tree utilities use explicit work-lists instead of recursion: generated
// trees can be deep and wide, and the stack is not ours to spend.

// CollectLeaves returns every leaf reachable from root in depth-first tree
// order, which makes "first encountered" deterministic for tie-breaks.
func CollectLeaves(root *Node) []*Node {
	if root == nil {
		return nil
	}
	var leaves []*Node
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			leaves = append(leaves, n)
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return leaves
}

// CountNodes returns the number of nodes in the tree, root included.
func CountNodes(root *Node) int {
	if root == nil {
		return 0
	}
	count := 0
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, n.Children...)
	}
	return count
}

// MaxDepth returns the largest depth value present in the tree.
func MaxDepth(root *Node) int {
	if root == nil {
		return 0
	}
	max := 0
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Depth > max {
			max = n.Depth
		}
		stack = append(stack, n.Children...)
	}
	return max
}
