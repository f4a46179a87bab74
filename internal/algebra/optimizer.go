package algebra

// Cardinality estimates nvals for a matrix reference, letting the
// distribution rewrite compare the common factor against the summed
// branches. Backed in practice by the Graph's label/relation live
// counters.
type Cardinality interface {
	NVals(matrixRef string) int64
}

// Optimize rewrites an expression tree to a fixed point: transpose
// push-down, redundant-operand elimination, and (when card is non-nil)
// multiplication-over-addition distribution.
func Optimize(root *Expression, card Cardinality) *Expression {
	for {
		rewritten, changed := rewriteOnce(root, card)
		root = rewritten
		if !changed {
			return root
		}
	}
}

func rewriteOnce(e *Expression, card Cardinality) (*Expression, bool) {
	if e.Kind == KindOperand {
		return e, false
	}

	changed := false
	for i, c := range e.Children {
		newC, did := rewriteOnce(c, card)
		e.Children[i] = newC
		changed = changed || did
	}

	switch e.Op {
	case OpTranspose:
		child := e.Children[0]
		switch {
		case child.Kind == KindOperation && child.Op == OpTranspose:
			// T(T(X)) -> X
			return child.Children[0], true
		case child.Kind == KindOperation && child.Op == OpMul:
			// T(A·B) -> T(B)·T(A)
			rev := make([]*Expression, len(child.Children))
			for i, c := range child.Children {
				rev[len(rev)-1-i] = Operation(OpTranspose, c)
			}
			return Operation(OpMul, rev...), true
		case child.Kind == KindOperation && child.Op == OpAdd:
			// T(A+B) -> T(A)+T(B)
			terms := make([]*Expression, len(child.Children))
			for i, c := range child.Children {
				terms[i] = Operation(OpTranspose, c)
			}
			return Operation(OpAdd, terms...), true
		case child.Kind == KindOperand && child.Diagonal:
			// T(L) -> L
			return child, true
		case child.Kind == KindOperand:
			// T(X) flips X's transposed flag, so T(T(X)) -> X
			child.Transposed = !child.Transposed
			return child, true
		}
		return e, changed

	case OpMul:
		if simplified, did := eliminateRedundant(e); did {
			return simplified, true
		}
		if card != nil {
			if distributed, did := distribute(e, card); did {
				return distributed, true
			}
		}
		return e, changed

	default:
		return e, changed
	}
}

// eliminateRedundant collapses adjacent diagonal operands carrying the
// same label into one: L·L -> L and T(L)·L -> L (a diagonal matrix is
// its own transpose, so either order collapses the same way). It does
// not fold a non-adjacent L_u·R·L_v triple down to L_u·R: that would
// only be sound if R's destination domain were already known to carry
// label L_v, a schema guarantee this package has no way to check.
func eliminateRedundant(mul *Expression) (*Expression, bool) {
	out := make([]*Expression, 0, len(mul.Children))
	for _, c := range mul.Children {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Kind == KindOperand && prev.Diagonal &&
				c.Kind == KindOperand && c.Diagonal &&
				prev.Label == c.Label {
				// L · L (possibly one transposed, diagonal so identical
				// either way) collapses to a single L.
				continue
			}
		}
		out = append(out, c)
	}
	if len(out) == len(mul.Children) {
		return mul, false
	}
	if len(out) == 1 {
		return out[0], true
	}
	mul.Children = out
	return mul, true
}

// distribute rewrites A·(B+C)·D into A·B·D + A·C·D when the combined
// sum operand is estimated sparser than the surrounding factors.
func distribute(mul *Expression, card Cardinality) (*Expression, bool) {
	for i, c := range mul.Children {
		if c.Kind != KindOperation || c.Op != OpAdd {
			continue
		}
		sumNvals := estimateNvals(c, card)
		outerNvals := int64(1)
		for j, o := range mul.Children {
			if j == i {
				continue
			}
			outerNvals *= estimateNvals(o, card)
		}
		if outerNvals != 0 && sumNvals >= outerNvals {
			continue // distribution would not help; leave the sum factored
		}
		terms := make([]*Expression, len(c.Children))
		for k, term := range c.Children {
			chain := make([]*Expression, 0, len(mul.Children))
			chain = append(chain, mul.Children[:i]...)
			chain = append(chain, term)
			chain = append(chain, mul.Children[i+1:]...)
			if len(chain) == 1 {
				terms[k] = chain[0]
			} else {
				terms[k] = Operation(OpMul, chain...)
			}
		}
		return Operation(OpAdd, terms...), true
	}
	return mul, false
}

func estimateNvals(e *Expression, card Cardinality) int64 {
	if e.Kind == KindOperand {
		return card.NVals(e.MatrixRef)
	}
	switch e.Op {
	case OpTranspose:
		return estimateNvals(e.Children[0], card)
	case OpAdd:
		var sum int64
		for _, c := range e.Children {
			sum += estimateNvals(c, card)
		}
		return sum
	default: // OpMul: approximate with the smallest factor
		min := int64(-1)
		for _, c := range e.Children {
			n := estimateNvals(c, card)
			if min == -1 || n < min {
				min = n
			}
		}
		if min == -1 {
			return 0
		}
		return min
	}
}
