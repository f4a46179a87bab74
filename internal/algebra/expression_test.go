package algebra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/matrixgraph/internal/runtime"
)

func friendOperand() *Expression {
	return Operand("R:0", false, "p", "f")
}

func TestSourceDestinationPropagateThroughMul(t *testing.T) {
	root := Operation(OpMul, Operand("L:0", true, "p", "p"), friendOperand())
	assert.Equal(t, "p", root.Source())
	assert.Equal(t, "f", root.Destination())
}

func TestTransposeFlipsSourceAndDestination(t *testing.T) {
	root := Operation(OpTranspose, friendOperand())
	assert.Equal(t, "f", root.Source())
	assert.Equal(t, "p", root.Destination())
	assert.True(t, root.IsTransposed())
}

func TestTransposeOfDiagonalIsNoOp(t *testing.T) {
	diag := Operand("L:0", true, "p", "p")
	assert.Same(t, diag, Transpose(diag))
}

func TestDoubleTransposeCollapses(t *testing.T) {
	rel := friendOperand()
	wrapped := Operation(OpTranspose, rel)
	assert.Same(t, rel, Transpose(wrapped))
}

func TestMultiplyRightFlattensExistingMul(t *testing.T) {
	a := Operand("L:0", true, "p", "p")
	b := friendOperand()
	root := Operation(OpMul, a, b)
	c := Operand("L:1", true, "f", "f")
	root = MultiplyRight(root, c)
	assert.Equal(t, 3, root.ChildCount())
	assert.Same(t, c, root.Children[2])
}

func TestOperandCount(t *testing.T) {
	root := Operation(OpMul,
		Operand("L:0", true, "p", "p"),
		Operation(OpAdd, friendOperand(), friendOperand()),
	)
	assert.Equal(t, 3, root.OperandCount())
}

func TestContainsOperandFiltersByLabel(t *testing.T) {
	lp := Operand("L:0", true, "p", "p")
	lp.Label = 0
	root := Operation(OpMul, lp, friendOperand())
	assert.True(t, root.ContainsOperand("", "", "", 0))
	assert.False(t, root.ContainsOperand("", "", "", 1))
}

func TestRemoveSourceUnwrapsSingleChildMul(t *testing.T) {
	a := Operand("L:0", true, "p", "p")
	b := friendOperand()
	root := Operation(OpMul, a, b)
	removed, newRoot := RemoveSource(root)
	assert.Same(t, a, removed)
	assert.Same(t, b, newRoot)
}

func TestRemoveDestThroughTranspose(t *testing.T) {
	rel := friendOperand()
	root := Operation(OpTranspose, Operation(OpMul, rel, Operand("L:1", true, "f", "f")))
	removed, newRoot := RemoveDest(root)
	// T(A·L) removing the rightmost leaf of the whole expression means
	// removing the leftmost leaf of the untransposed inner MUL (rel).
	assert.Same(t, rel, removed)
	assert.NotNil(t, newRoot)
}

func TestRemoveSourceOnBareOperandYieldsNilRoot(t *testing.T) {
	op := Operand("L:0", true, "p", "p")
	removed, newRoot := RemoveSource(op)
	assert.Same(t, op, removed)
	assert.Nil(t, newRoot)
}

// renderExpr stringifies an expression tree using each operand's
// MatrixRef as its label, so a removal result can be asserted against a
// plain string instead of walking pointers by hand.
func renderExpr(e *Expression) string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindOperand {
		return e.MatrixRef
	}
	parts := make([]string, len(e.Children))
	for i, c := range e.Children {
		parts[i] = renderExpr(c)
	}
	switch e.Op {
	case OpTranspose:
		return "T(" + parts[0] + ")"
	case OpAdd:
		return "ADD(" + strings.Join(parts, ",") + ")"
	default:
		return "MUL(" + strings.Join(parts, ",") + ")"
	}
}

func leaf(ref string) *Expression {
	return Operand(ref, false, "x", "y")
}

type removalCase struct {
	name        string
	build       func() *Expression
	wantRemoved string
	wantRoot    string
}

func runRemovalCases(t *testing.T, cases []removalCase, remove func(*Expression) (*Expression, *Expression)) {
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			root := c.build()
			removed, newRoot := remove(root)
			assert.Equal(t, c.wantRemoved, renderExpr(removed))
			assert.Equal(t, c.wantRoot, renderExpr(newRoot))
		})
	}
}

func TestRemoveSourceTable(t *testing.T) {
	cases := []removalCase{
		{
			name:        "bare operand collapses to nil",
			build:       func() *Expression { return leaf("A") },
			wantRemoved: "A",
			wantRoot:    "<nil>",
		},
		{
			name:        "MUL of two unwraps to the surviving child",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B")) },
			wantRemoved: "A",
			wantRoot:    "B",
		},
		{
			name:        "MUL of three keeps the node with two children",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B"), leaf("C")) },
			wantRemoved: "A",
			wantRoot:    "MUL(B,C)",
		},
		{
			name:        "MUL of four keeps the node with three children",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B"), leaf("C"), leaf("D")) },
			wantRemoved: "A",
			wantRoot:    "MUL(B,C,D)",
		},
		{
			name:        "ADD of two unwraps to the surviving child",
			build:       func() *Expression { return Operation(OpAdd, leaf("A"), leaf("B")) },
			wantRemoved: "A",
			wantRoot:    "B",
		},
		{
			name:        "ADD of three keeps the node with two children",
			build:       func() *Expression { return Operation(OpAdd, leaf("A"), leaf("B"), leaf("C")) },
			wantRemoved: "A",
			wantRoot:    "ADD(B,C)",
		},
		{
			name:        "TRANSPOSE of a bare operand collapses to nil",
			build:       func() *Expression { return Operation(OpTranspose, leaf("A")) },
			wantRemoved: "A",
			wantRoot:    "<nil>",
		},
		{
			name:        "TRANSPOSE of MUL(A,B) removes the far-side leaf and rewraps",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpMul, leaf("A"), leaf("B"))) },
			wantRemoved: "B",
			wantRoot:    "T(A)",
		},
		{
			name:        "TRANSPOSE of MUL(A,B,C) removes the far-side leaf and keeps the MUL",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpMul, leaf("A"), leaf("B"), leaf("C"))) },
			wantRemoved: "C",
			wantRoot:    "T(MUL(A,B))",
		},
		{
			name:        "TRANSPOSE of ADD(A,B) removes the far-side leaf and rewraps",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpAdd, leaf("A"), leaf("B"))) },
			wantRemoved: "B",
			wantRoot:    "T(A)",
		},
		{
			name: "nested MUL under ADD's first slot collapses in place",
			build: func() *Expression {
				return Operation(OpAdd, Operation(OpMul, leaf("A"), leaf("B")), leaf("C"))
			},
			wantRemoved: "A",
			wantRoot:    "ADD(B,C)",
		},
		{
			name:        "single-child unwrap surfaces an ADD subtree directly",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), Operation(OpAdd, leaf("B"), leaf("C"))) },
			wantRemoved: "A",
			wantRoot:    "ADD(B,C)",
		},
		{
			name:        "single-child unwrap surfaces a MUL subtree directly",
			build:       func() *Expression { return Operation(OpAdd, leaf("A"), Operation(OpMul, leaf("B"), leaf("C"))) },
			wantRemoved: "A",
			wantRoot:    "MUL(B,C)",
		},
	}
	runRemovalCases(t, cases, RemoveSource)
}

func TestRemoveDestTable(t *testing.T) {
	cases := []removalCase{
		{
			name:        "bare operand collapses to nil",
			build:       func() *Expression { return leaf("A") },
			wantRemoved: "A",
			wantRoot:    "<nil>",
		},
		{
			name:        "MUL of two unwraps to the surviving child",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B")) },
			wantRemoved: "B",
			wantRoot:    "A",
		},
		{
			name:        "MUL of three keeps the node with two children",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B"), leaf("C")) },
			wantRemoved: "C",
			wantRoot:    "MUL(A,B)",
		},
		{
			name:        "MUL of four keeps the node with three children",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), leaf("B"), leaf("C"), leaf("D")) },
			wantRemoved: "D",
			wantRoot:    "MUL(A,B,C)",
		},
		{
			name:        "ADD of two unwraps to the surviving child",
			build:       func() *Expression { return Operation(OpAdd, leaf("A"), leaf("B")) },
			wantRemoved: "B",
			wantRoot:    "A",
		},
		{
			name:        "ADD of three keeps the node with two children",
			build:       func() *Expression { return Operation(OpAdd, leaf("A"), leaf("B"), leaf("C")) },
			wantRemoved: "C",
			wantRoot:    "ADD(A,B)",
		},
		{
			name:        "TRANSPOSE of a bare operand collapses to nil",
			build:       func() *Expression { return Operation(OpTranspose, leaf("A")) },
			wantRemoved: "A",
			wantRoot:    "<nil>",
		},
		{
			name:        "TRANSPOSE of MUL(A,B) removes the near-side leaf and rewraps",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpMul, leaf("A"), leaf("B"))) },
			wantRemoved: "A",
			wantRoot:    "T(B)",
		},
		{
			name:        "TRANSPOSE of MUL(A,B,C) removes the near-side leaf and keeps the MUL",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpMul, leaf("A"), leaf("B"), leaf("C"))) },
			wantRemoved: "A",
			wantRoot:    "T(MUL(B,C))",
		},
		{
			name:        "TRANSPOSE of ADD(A,B) removes the near-side leaf and rewraps",
			build:       func() *Expression { return Operation(OpTranspose, Operation(OpAdd, leaf("A"), leaf("B"))) },
			wantRemoved: "A",
			wantRoot:    "T(B)",
		},
		{
			name: "nested MUL under ADD's last slot collapses in place",
			build: func() *Expression {
				return Operation(OpAdd, leaf("A"), Operation(OpMul, leaf("B"), leaf("C")))
			},
			wantRemoved: "C",
			wantRoot:    "ADD(A,B)",
		},
		{
			name:        "single-child unwrap surfaces an ADD subtree directly",
			build:       func() *Expression { return Operation(OpMul, Operation(OpAdd, leaf("A"), leaf("B")), leaf("C")) },
			wantRemoved: "C",
			wantRoot:    "ADD(A,B)",
		},
		{
			name:        "single-child unwrap surfaces a MUL subtree after a nested ADD",
			build:       func() *Expression { return Operation(OpMul, leaf("A"), Operation(OpAdd, leaf("B"), leaf("C"))) },
			wantRemoved: "C",
			wantRoot:    "MUL(A,B)",
		},
	}
	runRemovalCases(t, cases, RemoveDest)
}

func TestNoLabelSentinel(t *testing.T) {
	op := Operand("ADJ", false, "p", "f")
	assert.Equal(t, runtime.NoLabel, op.Label)
}
