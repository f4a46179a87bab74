// Package algebra implements the algebraic expression IR a pattern lowers
// to: a small n-ary tree of MUL/ADD/TRANSPOSE operations over matrix
// operands that refer, by name, to a graph's label/relation/adjacency
// matrices. Cypher's MATCH clause becomes a tree of matrix multiplies
// (traverse a relationship), additions (union alternative relationships),
// and transposes (reverse direction) over this IR, which Optimize rewrites
// and Evaluator folds into a result matrix.
package algebra

import "github.com/orneryd/matrixgraph/internal/runtime"

// Op identifies an Operation node's algebraic combinator.
type Op int

const (
	OpMul Op = iota
	OpAdd
	OpTranspose
)

func (o Op) String() string {
	switch o {
	case OpMul:
		return "MUL"
	case OpAdd:
		return "ADD"
	case OpTranspose:
		return "TRANSPOSE"
	default:
		return "?"
	}
}

// Kind distinguishes an operand leaf from an interior operation node.
type Kind int

const (
	KindOperand Kind = iota
	KindOperation
)

// VarLenRange is the (a,b) hop bound of a variable-length relationship
// pattern such as [:KNOWS*1..3]. Max == -1 means unbounded ("*a..").
type VarLenRange struct {
	Min, Max int
}

// Expression is one node of the AlgebraicExpression tree. Exactly one of
// the two field groups below is meaningful, selected by Kind.
type Expression struct {
	Kind Kind

	// Operand fields.
	MatrixRef  string // e.g. "L:0", "R:3", "ADJ" — resolved by the evaluator
	Diagonal   bool
	Transposed bool
	SrcVar     string
	DestVar    string
	EdgeVar    string
	Label      int // runtime.NoLabel if untyped
	VarLen     *VarLenRange

	// Operation fields.
	Op       Op
	Children []*Expression
}

// Operand constructs a leaf operand.
func Operand(matrixRef string, diagonal bool, src, dest string) *Expression {
	return &Expression{
		Kind:      KindOperand,
		MatrixRef: matrixRef,
		Diagonal:  diagonal,
		SrcVar:    src,
		DestVar:   dest,
		Label:     runtime.NoLabel,
	}
}

// Operation constructs an interior MUL/ADD node from children, or a
// TRANSPOSE node from a single child.
func Operation(op Op, children ...*Expression) *Expression {
	return &Expression{Kind: KindOperation, Op: op, Children: children}
}

// ChildCount returns len(Children) for an Operation, 0 for an Operand.
func (e *Expression) ChildCount() int {
	if e.Kind == KindOperand {
		return 0
	}
	return len(e.Children)
}

// OperandCount returns the number of Operand leaves in the subtree.
func (e *Expression) OperandCount() int {
	if e.Kind == KindOperand {
		return 1
	}
	n := 0
	for _, c := range e.Children {
		n += c.OperandCount()
	}
	return n
}

// boundaryOperand walks toward the leftmost (first=true) or rightmost
// (first=false) leaf, honoring TRANSPOSE's side flip, and returns it
// along with whether the path to it crossed an odd number of TRANSPOSE
// nodes.
func boundaryOperand(e *Expression, first bool) (*Expression, bool) {
	odd := false
	for e.Kind == KindOperation {
		switch e.Op {
		case OpTranspose:
			first = !first
			odd = !odd
			e = e.Children[0]
		case OpMul, OpAdd:
			if len(e.Children) == 0 {
				return nil, odd
			}
			if first {
				e = e.Children[0]
			} else {
				e = e.Children[len(e.Children)-1]
			}
		}
	}
	return e, odd
}

// Source returns the operand variable that anchors the expression's
// source domain, following the first-child propagation rule and honoring
// any TRANSPOSE flips along the way.
func (e *Expression) Source() string {
	op, odd := boundaryOperand(e, true)
	if op == nil {
		return ""
	}
	if odd {
		return op.DestVar
	}
	return op.SrcVar
}

// Destination is Source's mirror at the rightmost leaf.
func (e *Expression) Destination() string {
	op, odd := boundaryOperand(e, false)
	if op == nil {
		return ""
	}
	if odd {
		return op.SrcVar
	}
	return op.DestVar
}

// Edge returns the edge variable name carried by the expression's single
// named edge operand, if any, by depth-first search.
func (e *Expression) Edge() string {
	if e.Kind == KindOperand {
		return e.EdgeVar
	}
	for _, c := range e.Children {
		if v := c.Edge(); v != "" {
			return v
		}
	}
	return ""
}

// effectiveTransposed reports the parity of TRANSPOSE nodes on the
// leading path from e to a leaf — whether the expression is effectively
// transposed at its boundary once those nodes cancel or compose.
func (e *Expression) effectiveTransposed() bool {
	if e.Kind == KindOperand {
		return e.Transposed
	}
	if e.Op == OpTranspose {
		return !e.Children[0].effectiveTransposed()
	}
	if len(e.Children) == 0 {
		return false
	}
	return e.Children[0].effectiveTransposed()
}

// IsTransposed reports whether the expression is effectively transposed
// at its boundary.
func (e *Expression) IsTransposed() bool { return e.effectiveTransposed() }

// ContainsOperand reports whether the subtree has a leaf matching all of
// the given (non-empty) filters.
func (e *Expression) ContainsOperand(src, dest, edge string, label int) bool {
	return e.LocateOperand(src, dest, edge, label) != nil
}

// LocateOperand returns the first matching operand leaf, or nil.
func (e *Expression) LocateOperand(src, dest, edge string, label int) *Expression {
	if e.Kind == KindOperand {
		if src != "" && e.SrcVar != src {
			return nil
		}
		if dest != "" && e.DestVar != dest {
			return nil
		}
		if edge != "" && e.EdgeVar != edge {
			return nil
		}
		if label != runtime.NoLabel && e.Label != label {
			return nil
		}
		return e
	}
	for _, c := range e.Children {
		if found := c.LocateOperand(src, dest, edge, label); found != nil {
			return found
		}
	}
	return nil
}

// MultiplyLeft prepends A to root's MUL chain (flattening if root is
// already a MUL node), returning the new root.
func MultiplyLeft(a, root *Expression) *Expression {
	if root.Kind == KindOperation && root.Op == OpMul {
		root.Children = append([]*Expression{a}, root.Children...)
		return root
	}
	return Operation(OpMul, a, root)
}

// MultiplyRight appends A to root's MUL chain.
func MultiplyRight(root, a *Expression) *Expression {
	if root.Kind == KindOperation && root.Op == OpMul {
		root.Children = append(root.Children, a)
		return root
	}
	return Operation(OpMul, root, a)
}

// AddLeft prepends A to root's ADD chain.
func AddLeft(a, root *Expression) *Expression {
	if root.Kind == KindOperation && root.Op == OpAdd {
		root.Children = append([]*Expression{a}, root.Children...)
		return root
	}
	return Operation(OpAdd, a, root)
}

// AddRight appends A to root's ADD chain.
func AddRight(root, a *Expression) *Expression {
	if root.Kind == KindOperation && root.Op == OpAdd {
		root.Children = append(root.Children, a)
		return root
	}
	return Operation(OpAdd, root, a)
}

// Transpose wraps root in a TRANSPOSE node, collapsing T(T(X)) -> X and
// pushing directly onto a diagonal operand (T(L) -> L) rather than
// wrapping it, since a label matrix is its own transpose.
func Transpose(root *Expression) *Expression {
	if root.Kind == KindOperand && root.Diagonal {
		return root
	}
	if root.Kind == KindOperation && root.Op == OpTranspose {
		return root.Children[0]
	}
	return Operation(OpTranspose, root)
}

// RemoveSource removes the leftmost leaf from the expression, descending
// through TRANSPOSE (flipping which side is "leftmost" as it goes) and
// collapsing any MUL/ADD node left with a single child into that child.
// It returns the removed operand and the new root, which is nil if the
// whole expression was a single operand.
func RemoveSource(root *Expression) (removed, newRoot *Expression) {
	return removeBoundary(root, true)
}

// RemoveDest mirrors RemoveSource at the rightmost leaf.
func RemoveDest(root *Expression) (removed, newRoot *Expression) {
	return removeBoundary(root, false)
}

func removeBoundary(e *Expression, first bool) (removed, newRoot *Expression) {
	if e.Kind == KindOperand {
		return e, nil
	}
	if e.Op == OpTranspose {
		innerRemoved, innerNew := removeBoundary(e.Children[0], !first)
		if innerNew == nil {
			return innerRemoved, nil
		}
		return innerRemoved, Transpose(innerNew)
	}

	// OpMul / OpAdd: descend into the boundary child.
	idx := 0
	if !first {
		idx = len(e.Children) - 1
	}
	child := e.Children[idx]
	if child.Kind == KindOperand {
		removed = child
		remaining := make([]*Expression, 0, len(e.Children)-1)
		remaining = append(remaining, e.Children[:idx]...)
		remaining = append(remaining, e.Children[idx+1:]...)
		switch len(remaining) {
		case 0:
			return removed, nil
		case 1:
			return removed, remaining[0]
		default:
			e.Children = remaining
			return removed, e
		}
	}

	innerRemoved, innerNew := removeBoundary(child, first)
	if innerNew == nil {
		remaining := make([]*Expression, 0, len(e.Children)-1)
		remaining = append(remaining, e.Children[:idx]...)
		remaining = append(remaining, e.Children[idx+1:]...)
		switch len(remaining) {
		case 0:
			return innerRemoved, nil
		case 1:
			return innerRemoved, remaining[0]
		default:
			e.Children = remaining
			return innerRemoved, e
		}
	}
	e.Children[idx] = innerNew
	return innerRemoved, e
}
