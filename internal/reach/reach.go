// Package reach implements directed reachability as an iterated vxm over
// the graph's adjacency matrix under the ANY-PAIR boolean semiring,
// masked to unvisited nodes, terminating when the destination is reached
// or the frontier empties. The frontier (Q) and visited mask (M) are
// each a 1xN row vector; every iteration replaces Q with the
// not-yet-visited neighbors of the current frontier, then folds those
// newly visited nodes into M before the next step.
package reach

import (
	"github.com/orneryd/matrixgraph/internal/bmatrix"
	"github.com/orneryd/matrixgraph/internal/store"
)

// Reachable reports whether a directed path exists from src to dest in g.
func Reachable(g *store.Graph, src, dest store.NodeID) bool {
	if src == dest {
		return true
	}

	n := g.RequiredMatrixDim()
	a := g.Adjacency(false)

	q := bmatrix.New(1, n)
	_ = q.Set(0, int64(src), bmatrix.Present)
	visited := bmatrix.New(1, n)

	for {
		next, err := bmatrix.Vxm(q, a, visited, true)
		if err != nil {
			return false
		}
		q = next

		if q.Nvals() == 0 {
			return false
		}
		if _, ok := q.Get(0, int64(dest)); ok {
			return true
		}

		merged, err := bmatrix.Add(visited, q)
		if err != nil {
			return false
		}
		visited = merged
	}
}
