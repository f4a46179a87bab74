// Package delta implements DeltaMatrix: a (committed, plus, minus) triple
// that presents a single logical matrix while letting writers touch only
// the small plus/minus overlays. This keeps the write path cheap and lets
// the read path observe a consistent snapshot without blocking on a full
// matrix rewrite for every mutation — the same "stage small, commit big"
// shape a transactional store uses to batch writes ahead of a commit.
package delta

import (
	"github.com/orneryd/matrixgraph/internal/bmatrix"
	"github.com/orneryd/matrixgraph/internal/errs"
)

// DeltaMatrix wraps a committed matrix with pending insertion (plus) and
// pending deletion (minus) overlays. Writers call Set/Delete under the
// Graph's writer lock; readers call Get/Flush under the Graph's reader
// lock, relying on the sync policy to decide whether Flush runs first.
type DeltaMatrix struct {
	m, plus, minus *bmatrix.Matrix
	dirty          bool
	poisoned       bool
}

// New constructs an empty DeltaMatrix of the given dimensions.
func New(nrows, ncols int64) *DeltaMatrix {
	return &DeltaMatrix{
		m:     bmatrix.New(nrows, ncols),
		plus:  bmatrix.New(nrows, ncols),
		minus: bmatrix.New(nrows, ncols),
	}
}

// Get returns the logical value at (i,j): present iff (M[i,j] or
// plus[i,j]) and not minus[i,j].
func (d *DeltaMatrix) Get(i, j int64) (uint64, bool) {
	if _, deleted := d.minus.Get(i, j); deleted {
		return 0, false
	}
	if v, ok := d.plus.Get(i, j); ok {
		return v, true
	}
	return d.m.Get(i, j)
}

// Set stages an insertion. If minus already marks (i,j) deleted and the
// committed matrix still has an entry there, the deletion is reverted
// in-place ("un-delete") rather than staging a redundant plus entry.
func (d *DeltaMatrix) Set(i, j int64, value uint64) error {
	if d.poisoned {
		return errs.ErrPoisoned
	}
	if _, deleted := d.minus.Get(i, j); deleted {
		if _, inCommitted := d.m.Get(i, j); inCommitted {
			if err := d.minus.Remove(i, j); err != nil {
				return err
			}
			d.dirty = true
			return nil
		}
	}
	if err := d.plus.Set(i, j, value); err != nil {
		return err
	}
	d.dirty = true
	return nil
}

// Delete stages a removal. If plus already marks (i,j) pending insertion,
// the insertion is simply withdrawn; otherwise minus is set.
func (d *DeltaMatrix) Delete(i, j int64) error {
	if d.poisoned {
		return errs.ErrPoisoned
	}
	if _, pending := d.plus.Get(i, j); pending {
		if err := d.plus.Remove(i, j); err != nil {
			return err
		}
		d.dirty = true
		return nil
	}
	if err := d.minus.Set(i, j, bmatrix.Present); err != nil {
		return err
	}
	d.dirty = true
	return nil
}

// Dirty reports whether plus or minus has pending overlays.
func (d *DeltaMatrix) Dirty() bool { return d.dirty }

// Poisoned reports whether a prior flush failed; Set, Delete and Flush
// then fail fast with ErrPoisoned until Unpoison is called by a caller
// that has retried the flush or decided to drop the matrix. Get does not
// check the flag and keeps answering from the current overlays.
func (d *DeltaMatrix) Poisoned() bool { return d.poisoned }

// Unpoison clears the poisoned flag, e.g. after the caller drops and
// recreates the matrix with more budget.
func (d *DeltaMatrix) Unpoison() { d.poisoned = false }

// Flush folds plus/minus into the committed matrix: M <- (M ∪ plus) \
// minus, then clears both overlays and the dirty flag. Flush is idempotent
// and a no-op when the matrix is not dirty.
func (d *DeltaMatrix) Flush() error {
	if !d.dirty {
		return nil
	}
	if d.poisoned {
		return errs.ErrPoisoned
	}
	merged, err := bmatrix.Add(d.m, d.plus)
	if err != nil {
		d.poisoned = true
		return err
	}
	it := d.minus.Tuples()
	for {
		tup, ok := it.Next()
		if !ok {
			break
		}
		if err := merged.Remove(tup.Row, tup.Col); err != nil {
			d.poisoned = true
			return err
		}
	}
	d.m = merged
	d.plus = bmatrix.New(d.m.Nrows(), d.m.Ncols())
	d.minus = bmatrix.New(d.m.Nrows(), d.m.Ncols())
	d.dirty = false
	return nil
}

// Resize grows all three companion matrices; it never shrinks below the
// current extent.
func (d *DeltaMatrix) Resize(n int64) error {
	if err := d.m.Resize(n, n); err != nil {
		return err
	}
	if err := d.plus.Resize(n, n); err != nil {
		return err
	}
	if err := d.minus.Resize(n, n); err != nil {
		return err
	}
	return nil
}

// Committed returns the committed matrix, for read operations that have
// already flushed (or that accept seeing only committed state, e.g. the
// RESIZE_ONLY / NOP sync policies).
func (d *DeltaMatrix) Committed() *bmatrix.Matrix { return d.m }

// PendingCounts returns nvals(plus) and nvals(minus), used by the pending
// tracker's flush-ratio heuristic.
func (d *DeltaMatrix) PendingCounts() (plus, minus int64) {
	return d.plus.Nvals(), d.minus.Nvals()
}

// Nvals returns the number of live logical entries: nvals(M) after
// accounting for unresolved plus/minus is only exact post-flush, so callers
// that need an exact live count during dirty state should Flush first; this
// helper is provided for the common case of inspecting a clean matrix.
func (d *DeltaMatrix) Nvals() int64 { return d.m.Nvals() }
