// Package scratch provides the thread-local pool of temporary matrices an
// Evaluator draws from while expanding a variable-length operand. Two
// scratch matrices typically suffice for a left-associated fold. The pool
// never hands out a matrix owned by the Graph — every entry here is
// evaluator-private, and the pool itself is explicitly thread-local rather
// than a shared sync.Pool.
package scratch

import "github.com/orneryd/matrixgraph/internal/bmatrix"

// Pool is a small LIFO stack of reusable matrices, owned by exactly one
// ExpressionEvaluator at a time.
type Pool struct {
	free    []*bmatrix.Matrix
	maxSize int
}

// New constructs a Pool that keeps at most maxSize idle matrices; a
// non-positive maxSize falls back to 2, which covers a left-associated
// fold's usual working set.
func New(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = 2
	}
	return &Pool{maxSize: maxSize}
}

// Get returns a matrix sized nrows x ncols, reusing a pooled one if
// available.
func (p *Pool) Get(nrows, ncols int64) *bmatrix.Matrix {
	if n := len(p.free); n > 0 {
		m := p.free[n-1]
		p.free = p.free[:n-1]
		m.Reset(nrows, ncols)
		return m
	}
	return bmatrix.New(nrows, ncols)
}

// Put returns m to the pool for reuse. Matrices beyond maxSize are simply
// dropped (left for the garbage collector) rather than pooled without
// bound.
func (p *Pool) Put(m *bmatrix.Matrix) {
	if m == nil || len(p.free) >= p.maxSize {
		return
	}
	p.free = append(p.free, m)
}

// Len reports how many matrices are currently idle in the pool.
func (p *Pool) Len() int { return len(p.free) }
