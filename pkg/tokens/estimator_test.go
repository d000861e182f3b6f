package tokens

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicEstimate(t *testing.T) {
	h := NewHeuristic()

	require.Equal(t, 0, h.Estimate(""))
	require.Equal(t, 0, h.Estimate("   \n\t "))

	// 2 words * 1.3 = 2.6 rounds up to 3.
	require.Equal(t, 3, h.Estimate("hello world"))

	// 10 words * 1.3 = 13.
	require.Equal(t, 13, h.Estimate("one two three four five six seven eight nine ten"))
}

func TestHeuristicRoundsUp(t *testing.T) {
	h := NewHeuristic()
	// 1 word * 1.3 rounds up to 2.
	require.Equal(t, 2, h.Estimate("refactor"))
}

func TestFixedEstimate(t *testing.T) {
	f := Fixed(100)
	require.Equal(t, 100, f.Estimate("anything"))
	require.Equal(t, 0, f.Estimate(""))
}
