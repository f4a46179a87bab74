package algebra

import (
	"strconv"
	"strings"

	"github.com/orneryd/matrixgraph/internal/bmatrix"
	"github.com/orneryd/matrixgraph/internal/errs"
	"github.com/orneryd/matrixgraph/internal/scratch"
	"github.com/orneryd/matrixgraph/internal/store"
)

// MatrixSource resolves an operand's MatrixRef to a live matrix view
// under the Graph's active sync policy. It is satisfied by *store.Graph;
// factored out as an interface so the evaluator can be exercised against
// a test double.
type MatrixSource interface {
	LabelMatrix(label int) *bmatrix.Matrix
	RelationMatrix(relation int, transposed bool) (*bmatrix.Matrix, error)
	Adjacency(transposed bool) *bmatrix.Matrix
	RequiredMatrixDim() int64
}

var _ MatrixSource = (*store.Graph)(nil)

// Evaluator folds an optimized expression tree into a single result
// matrix. It never mutates a matrix owned by the Graph: each MUL, ADD
// and TRANSPOSE step yields a freshly allocated matrix, and pool is drawn
// on only for the running power of a variable-length operand.
type Evaluator struct {
	Graph MatrixSource
	Pool  *scratch.Pool
}

// NewEvaluator constructs an Evaluator over g, drawing scratch matrices
// from pool.
func NewEvaluator(g MatrixSource, pool *scratch.Pool) *Evaluator {
	return &Evaluator{Graph: g, Pool: pool}
}

// Evaluate folds expr into its result matrix.
func (ev *Evaluator) Evaluate(expr *Expression) (*bmatrix.Matrix, error) {
	switch expr.Kind {
	case KindOperand:
		return ev.fetchOperand(expr)
	}

	switch expr.Op {
	case OpTranspose:
		inner, err := ev.Evaluate(expr.Children[0])
		if err != nil {
			return nil, err
		}
		return bmatrix.Transpose(inner), nil

	case OpMul:
		acc, err := ev.Evaluate(expr.Children[0])
		if err != nil {
			return nil, err
		}
		for _, c := range expr.Children[1:] {
			next, err := ev.Evaluate(c)
			if err != nil {
				return nil, err
			}
			acc, err = bmatrix.Mxm(acc, next)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil

	case OpAdd:
		acc, err := ev.Evaluate(expr.Children[0])
		if err != nil {
			return nil, err
		}
		for _, c := range expr.Children[1:] {
			next, err := ev.Evaluate(c)
			if err != nil {
				return nil, err
			}
			acc, err = bmatrix.Add(acc, next)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
	return nil, errs.ErrInvalidArgument
}

func (ev *Evaluator) fetchOperand(op *Expression) (*bmatrix.Matrix, error) {
	var m *bmatrix.Matrix
	switch {
	case op.MatrixRef == "ADJ":
		m = ev.Graph.Adjacency(op.Transposed)
	case strings.HasPrefix(op.MatrixRef, "L:"):
		label, err := strconv.Atoi(op.MatrixRef[2:])
		if err != nil {
			return nil, errs.ErrInvalidArgument
		}
		m = ev.Graph.LabelMatrix(label)
		if op.Transposed {
			m = bmatrix.Transpose(m) // diagonal: transpose is a no-op copy
		}
	case strings.HasPrefix(op.MatrixRef, "R:"):
		relation, err := strconv.Atoi(op.MatrixRef[2:])
		if err != nil {
			return nil, errs.ErrInvalidArgument
		}
		var err2 error
		m, err2 = ev.Graph.RelationMatrix(relation, op.Transposed)
		if err2 != nil {
			// fall back to fetching the forward matrix and transposing a
			// copy of it when the relation has no maintained transposed
			// companion.
			fwd, err3 := ev.Graph.RelationMatrix(relation, false)
			if err3 != nil {
				return nil, err3
			}
			m = bmatrix.Transpose(fwd)
		}
	default:
		return nil, errs.ErrInvalidArgument
	}

	if op.VarLen != nil {
		return ev.evaluateVarLen(m, op.VarLen)
	}
	return m, nil
}

// evaluateVarLen expands a variable-length operand into the union of
// base^Min through base^Max, each power computed by multiplying the
// previous one by base. An unbounded upper end
// (VarLen.Max == -1) is capped at the graph's current dimension, since
// no path can usefully exceed that many hops.
func (ev *Evaluator) evaluateVarLen(base *bmatrix.Matrix, r *VarLenRange) (*bmatrix.Matrix, error) {
	max := r.Max
	if max < 0 {
		max = int(ev.Graph.RequiredMatrixDim())
	}
	if r.Min < 1 {
		return nil, errs.ErrInvalidArgument
	}

	power := ev.Pool.Get(base.Nrows(), base.Ncols())
	power.CopyFrom(base)
	defer ev.Pool.Put(power)

	var acc *bmatrix.Matrix
	for hop := 1; hop <= max; hop++ {
		if hop > 1 {
			next, err := bmatrix.Mxm(power, base)
			if err != nil {
				return nil, err
			}
			power.CopyFrom(next)
		}
		if hop >= r.Min {
			if acc == nil {
				acc = power.Clone()
			} else {
				merged, err := bmatrix.Add(acc, power)
				if err != nil {
					return nil, err
				}
				acc = merged
			}
		}
	}
	if acc == nil {
		return bmatrix.New(base.Nrows(), base.Ncols()), nil // degenerate empty range
	}
	return acc, nil
}
