// Package bmatrix implements a sparse boolean matrix over non-negative
// int64 coordinates: presence is boolean under the ANY-PAIR semiring, but
// a cell can carry an arbitrary uint64 payload (used by the store to
// tag-encode single-edge vs. multi-edge relation entries).
//
// Matrix is one implementation of this contract, used throughout this
// module and its tests; any type with the same operations would serve a
// caller equally well. It is not internally synchronized — callers
// serialize access the same way the rest of the core does, under the
// Graph's reader/writer lock.
package bmatrix

import (
	"sort"

	"github.com/orneryd/matrixgraph/internal/errs"
)

// Present is the payload used for a plain structural (boolean) entry.
const Present uint64 = 1

// Matrix is a sparse row-major boolean/tagged matrix. Rows are kept as
// sorted slices of (col, value) pairs, giving O(log c) point lookup within
// a row and linear-merge multiplication — a CSR-style layout.
type Matrix struct {
	nrows, ncols int64
	rows         []rowVec
	nvals        int64
}

type cell struct {
	col   int64
	value uint64
}

type rowVec []cell

// New constructs an empty nrows x ncols matrix.
func New(nrows, ncols int64) *Matrix {
	return &Matrix{nrows: nrows, ncols: ncols, rows: make([]rowVec, nrows)}
}

// Nrows returns the row dimension.
func (m *Matrix) Nrows() int64 { return m.nrows }

// Ncols returns the column dimension.
func (m *Matrix) Ncols() int64 { return m.ncols }

func (m *Matrix) checkBounds(i, j int64) error {
	if i < 0 || i >= m.nrows || j < 0 || j >= m.ncols {
		return errs.ErrInvalidArgument
	}
	return nil
}

func (r rowVec) search(col int64) (int, bool) {
	idx := sort.Search(len(r), func(k int) bool { return r[k].col >= col })
	if idx < len(r) && r[idx].col == col {
		return idx, true
	}
	return idx, false
}

// Set idempotently writes value at (i,j). Writing the same coordinate again
// overwrites the payload without changing nvals.
func (m *Matrix) Set(i, j int64, value uint64) error {
	if err := m.checkBounds(i, j); err != nil {
		return err
	}
	row := m.rows[i]
	idx, found := row.search(j)
	if found {
		row[idx].value = value
		return nil
	}
	row = append(row, cell{})
	copy(row[idx+1:], row[idx:])
	row[idx] = cell{col: j, value: value}
	m.rows[i] = row
	m.nvals++
	return nil
}

// Remove clears (i,j), if present.
func (m *Matrix) Remove(i, j int64) error {
	if err := m.checkBounds(i, j); err != nil {
		return err
	}
	row := m.rows[i]
	idx, found := row.search(j)
	if !found {
		return nil
	}
	m.rows[i] = append(row[:idx], row[idx+1:]...)
	m.nvals--
	return nil
}

// Get returns the value at (i,j) and whether it is present.
func (m *Matrix) Get(i, j int64) (uint64, bool) {
	if i < 0 || i >= m.nrows || j < 0 || j >= m.ncols {
		return 0, false
	}
	idx, found := m.rows[i].search(j)
	if !found {
		return 0, false
	}
	return m.rows[i][idx].value, true
}

// Nvals returns the number of present entries.
func (m *Matrix) Nvals() int64 { return m.nvals }

// Resize grows the matrix to the given dimensions. It never shrinks below
// the current extent; rows beyond the old Nrows are simply appended.
func (m *Matrix) Resize(nrows, ncols int64) error {
	if nrows < m.nrows || ncols < m.ncols {
		return errs.ErrInvalidArgument
	}
	if nrows > m.nrows {
		grown := make([]rowVec, nrows)
		copy(grown, m.rows)
		m.rows = grown
	}
	m.nrows = nrows
	m.ncols = ncols
	return nil
}

// Transpose returns a new matrix that is the structural transpose of m.
func Transpose(m *Matrix) *Matrix {
	out := New(m.ncols, m.nrows)
	for i, row := range m.rows {
		for _, c := range row {
			_ = out.Set(c.col, int64(i), c.value)
		}
	}
	return out
}

// Add computes the elementwise (structural) union of a and b. Where both
// have a value, a's value wins (callers needing multi-edge merge semantics
// do that at the store layer, not here).
func Add(a, b *Matrix) (*Matrix, error) {
	if a.nrows != b.nrows || a.ncols != b.ncols {
		return nil, errs.ErrDomainMismatch
	}
	out := New(a.nrows, a.ncols)
	for i := int64(0); i < a.nrows; i++ {
		out.rows[i] = mergeUnion(a.rows[i], b.rows[i])
		out.nvals += int64(len(out.rows[i]))
	}
	return out, nil
}

func mergeUnion(a, b rowVec) rowVec {
	out := make(rowVec, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].col < b[j].col:
			out = append(out, a[i])
			i++
		case a[i].col > b[j].col:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i]) // a wins on collision
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Mxm computes the boolean matrix product under the ANY-PAIR semiring:
// result[i,k] is present iff there exists j with a[i,j] present and
// b[j,k] present. The result's payload at (i,k) is a.Get(i,j)'s value for
// the first such j found (arbitrary tie-break, matching the "ANY" in
// ANY-PAIR — the evaluator never depends on which j won).
func Mxm(a, b *Matrix) (*Matrix, error) {
	if a.ncols != b.nrows {
		return nil, errs.ErrDomainMismatch
	}
	out := New(a.nrows, b.ncols)
	for i := int64(0); i < a.nrows; i++ {
		seen := make(map[int64]struct{})
		var row rowVec
		for _, ac := range a.rows[i] {
			for _, bc := range b.rows[ac.col] {
				if _, dup := seen[bc.col]; dup {
					continue
				}
				seen[bc.col] = struct{}{}
				row = append(row, cell{col: bc.col, value: ac.value})
			}
		}
		sort.Slice(row, func(x, y int) bool { return row[x].col < row[y].col })
		out.rows[i] = row
		out.nvals += int64(len(row))
	}
	return out, nil
}

// Vxm computes w = u' * A restricted to mask, with optional structural
// complement: row-vector-times-matrix with masking. u and mask are row
// vectors represented as 1xN matrices (row 0 holds the vector). The
// output vector always replaces w entirely — the only mode the
// reachability kernel's frontier expansion needs.
func Vxm(u *Matrix, a *Matrix, mask *Matrix, complement bool) (*Matrix, error) {
	if u.ncols != a.nrows {
		return nil, errs.ErrDomainMismatch
	}
	out := New(1, a.ncols)
	seen := make(map[int64]struct{})
	var row rowVec
	for _, uc := range u.rows[0] {
		for _, ac := range a.rows[uc.col] {
			if _, dup := seen[ac.col]; dup {
				continue
			}
			if mask != nil {
				_, masked := mask.Get(0, ac.col)
				// complement=true (structural complement): keep entries
				// NOT in mask. complement=false: keep entries IN mask.
				if masked == complement {
					continue
				}
			}
			seen[ac.col] = struct{}{}
			row = append(row, cell{col: ac.col, value: Present})
		}
	}
	sort.Slice(row, func(x, y int) bool { return row[x].col < row[y].col })
	out.rows[0] = row
	out.nvals = int64(len(row))
	return out, nil
}

// Extract returns the submatrix with rows I and columns J, preserving
// order.
func (m *Matrix) Extract(rows, cols []int64) (*Matrix, error) {
	out := New(int64(len(rows)), int64(len(cols)))
	colIdx := make(map[int64]int64, len(cols))
	for j, c := range cols {
		colIdx[c] = int64(j)
	}
	for i, r := range rows {
		if r < 0 || r >= m.nrows {
			return nil, errs.ErrInvalidArgument
		}
		for _, c := range m.rows[r] {
			if nc, ok := colIdx[c.col]; ok {
				_ = out.Set(int64(i), nc, c.value)
			}
		}
	}
	return out, nil
}

// Tuple is one present entry, yielded by TupleIter.
type Tuple struct {
	Row, Col int64
	Value    uint64
}

// TupleIter is a lazy, restartable iterator over present entries, in
// row-major order.
type TupleIter struct {
	m      *Matrix
	row    int64
	offset int
}

// Tuples returns a restartable iterator positioned at the first entry.
func (m *Matrix) Tuples() *TupleIter {
	return &TupleIter{m: m}
}

// Next returns the next tuple, or ok=false when exhausted.
func (it *TupleIter) Next() (Tuple, bool) {
	for it.row < it.m.nrows {
		row := it.m.rows[it.row]
		if it.offset < len(row) {
			c := row[it.offset]
			it.offset++
			return Tuple{Row: it.row, Col: c.col, Value: c.value}, true
		}
		it.row++
		it.offset = 0
	}
	return Tuple{}, false
}

// Wait materializes any lazy pending state. The reference implementation
// has none — every operation above is already materialized — so Wait is a
// no-op kept to satisfy the contract (and to give a stable point for a
// future lazy implementation to hook into).
func (m *Matrix) Wait() error { return nil }

// Reset clears m in place and re-dimensions it to nrows x ncols, reusing
// its row slices' backing arrays where possible. It exists for the
// scratch-matrix pool: reusing a cleared Matrix avoids an allocation per
// evaluator step.
func (m *Matrix) Reset(nrows, ncols int64) {
	if int64(len(m.rows)) >= nrows {
		m.rows = m.rows[:nrows]
	} else {
		m.rows = make([]rowVec, nrows)
	}
	for i := range m.rows {
		m.rows[i] = m.rows[i][:0]
	}
	m.nrows = nrows
	m.ncols = ncols
	m.nvals = 0
}

// CopyFrom overwrites m in place with a deep copy of src, resizing as
// needed. It exists so a scratch-pooled matrix can be refilled without a
// fresh allocation.
func (m *Matrix) CopyFrom(src *Matrix) {
	m.Reset(src.nrows, src.ncols)
	for i, row := range src.rows {
		m.rows[i] = append(m.rows[i][:0], row...)
	}
	m.nvals = src.nvals
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := New(m.nrows, m.ncols)
	out.nvals = m.nvals
	for i, row := range m.rows {
		out.rows[i] = append(rowVec(nil), row...)
	}
	return out
}
