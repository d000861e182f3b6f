package mcts

// Backpropagate folds the reward into every node from the simulated node up
// to the root, inclusive, and returns the path length. Strictly sequential:
// the single parent chain is the only mutation path.
func Backpropagate(node *Node, reward float64) int {
	steps := 0
	for cur := node; cur != nil; cur = cur.Parent {
		cur.UpdateQValue(reward)
		steps++
	}
	return steps
}
