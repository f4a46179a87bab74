package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimizeCollapsesDoubleTranspose(t *testing.T) {
	rel := Operand("R:0", false, "p", "f")
	root := Operation(OpTranspose, Operation(OpTranspose, rel))
	out := Optimize(root, nil)
	assert.Same(t, rel, out)
}

func TestOptimizePushesTransposeThroughMul(t *testing.T) {
	a := Operand("R:0", false, "p", "f")
	b := Operand("R:1", false, "f", "c")
	root := Operation(OpTranspose, Operation(OpMul, a, b))
	out := Optimize(root, nil)
	// T(A·B) -> T(B)·T(A), and pushed all the way to the leaves since
	// both are plain (non-diagonal) operands.
	require := assert.New(t)
	require.Equal(KindOperation, out.Kind)
	require.Equal(OpMul, out.Op)
	require.Len(out.Children, 2)
	require.Same(b, out.Children[0])
	require.True(out.Children[0].Transposed)
	require.Same(a, out.Children[1])
	require.True(out.Children[1].Transposed)
}

func TestOptimizeDropsTransposeOfDiagonal(t *testing.T) {
	diag := Operand("L:0", true, "p", "p")
	diag.Label = 0
	root := Operation(OpTranspose, diag)
	out := Optimize(root, nil)
	assert.Same(t, diag, out)
}

func TestOptimizeEliminatesAdjacentDiagonalPair(t *testing.T) {
	l := Operand("L:0", true, "p", "p")
	l.Label = 0
	root := Operation(OpMul, l, l)
	out := Optimize(root, nil)
	assert.Same(t, l, out)
}

type fakeCard map[string]int64

func (f fakeCard) NVals(ref string) int64 { return f[ref] }

func TestOptimizeDistributesSparseSum(t *testing.T) {
	a := Operand("R:0", false, "x", "y")
	b := Operand("R:1", false, "y", "z")
	c := Operand("R:2", false, "y", "z")
	d := Operand("R:3", false, "z", "w")
	root := Operation(OpMul, a, Operation(OpAdd, b, c), d)

	card := fakeCard{"R:0": 1000, "R:1": 1, "R:2": 1, "R:3": 1000}
	out := Optimize(root, card)
	assert.Equal(t, OpAdd, out.Op)
	assert.Len(t, out.Children, 2)
	for _, term := range out.Children {
		assert.Equal(t, OpMul, term.Op)
	}
}
