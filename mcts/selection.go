package mcts

import "math"

// Select walks from root toward the frontier. Unvisited children are taken
// before any UCB comparison so every sibling gets explored at least once;
// otherwise the child with the highest UCB wins, ties going to the first
// encountered for determinism. The walk stops at a leaf or at maxDepth.
// Pure function of tree state; no side effects.
func Select(root *Node, explorationConstant float64, maxDepth int) *Node {
	node := root
	for !node.IsLeaf() && node.Depth < maxDepth {
		var next *Node
		for _, child := range node.Children {
			if child.VisitCount == 0 {
				next = child
				break
			}
		}
		if next == nil {
			best := math.Inf(-1)
			for _, child := range node.Children {
				if u := child.UCB(explorationConstant); u > best {
					best = u
					next = child
				}
			}
		}
		node = next
	}
	return node
}
