package scratch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/matrixgraph/internal/bmatrix"
)

func TestGetReusesPutMatrices(t *testing.T) {
	p := New(2)
	m1 := p.Get(4, 4)
	_ = m1.Set(0, 0, bmatrix.Present)
	p.Put(m1)
	assert.Equal(t, 1, p.Len())

	m2 := p.Get(3, 3)
	assert.Same(t, m1, m2, "should reuse the pooled matrix")
	assert.EqualValues(t, 0, m2.Nvals(), "reused matrix must be cleared")
	assert.EqualValues(t, 3, m2.Nrows())
}

func TestPutDropsBeyondMaxSize(t *testing.T) {
	p := New(1)
	p.Put(bmatrix.New(2, 2))
	p.Put(bmatrix.New(2, 2))
	assert.Equal(t, 1, p.Len())
}
