// Package pending tracks which DeltaMatrices a Graph owns that still carry
// staged overlays, and flushes them on demand: either unconditionally
// (forceFlush) or gated by an overlay-size heuristic
// (nvals(plus)+nvals(minus) > alpha*nvals(M)) that defers a cheap flush
// until the overlay is big enough to be worth the pass.
package pending

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/delta"
)

// DefaultFlushRatio is the alpha used by ApplyAll's size heuristic.
const DefaultFlushRatio = 0.25

// Tracker registers DeltaMatrices and flushes them on demand.
type Tracker struct {
	mu       sync.Mutex
	ratio    float64
	matrices []*delta.DeltaMatrix
}

// New constructs a Tracker; a non-positive ratio falls back to
// DefaultFlushRatio.
func New(ratio float64) *Tracker {
	if ratio <= 0 {
		ratio = DefaultFlushRatio
	}
	return &Tracker{ratio: ratio}
}

// Register adds dm to the set of matrices ApplyAll considers. Safe to
// call concurrently with ApplyAll.
func (t *Tracker) Register(dm *delta.DeltaMatrix) {
	if dm == nil {
		return
	}
	t.mu.Lock()
	t.matrices = append(t.matrices, dm)
	t.mu.Unlock()
}

// ApplyAll flushes every registered, dirty matrix. When force is false,
// a matrix whose combined overlay is small relative to its committed
// size is left pending, deferring its flush cost to a later call.
func (t *Tracker) ApplyAll(force bool) error {
	t.mu.Lock()
	matrices := make([]*delta.DeltaMatrix, len(t.matrices))
	copy(matrices, t.matrices)
	ratio := t.ratio
	t.mu.Unlock()

	for _, dm := range matrices {
		if !dm.Dirty() {
			continue
		}
		if !force {
			plus, minus := dm.PendingCounts()
			committed := dm.Committed().Nvals()
			if committed > 0 && float64(plus+minus) <= ratio*float64(committed) {
				continue
			}
		}
		if err := dm.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many matrices are currently registered.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.matrices)
}
