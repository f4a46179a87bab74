package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/matrixgraph/internal/pending"
)

func TestRelationInsertSingleThenMulti(t *testing.T) {
	s := newRelationStore(false, pending.New(pending.DefaultFlushRatio))
	s.growAll(4)

	first, err := s.insert(0, 0, 1, 10)
	assert.NoError(t, err)
	assert.True(t, first)
	assert.False(t, s.HasMultiEdges(0))

	first, err = s.insert(0, 0, 1, 11)
	assert.NoError(t, err)
	assert.False(t, first, "second edge on same pair is not the first")
	assert.True(t, s.HasMultiEdges(0))

	ids := s.edgeIDsAt(0, 0, 1)
	assert.ElementsMatch(t, []EdgeID{10, 11}, ids)
	assert.EqualValues(t, 2, s.EdgeCount(0))
}

func TestRelationRemoveCollapsesMultiToSingle(t *testing.T) {
	s := newRelationStore(false, pending.New(pending.DefaultFlushRatio))
	s.growAll(4)
	_, _ = s.insert(0, 0, 1, 10)
	_, _ = s.insert(0, 0, 1, 11)

	empty, err := s.remove(0, 0, 1, 10)
	assert.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, []EdgeID{11}, s.edgeIDsAt(0, 0, 1))

	empty, err = s.remove(0, 0, 1, 11)
	assert.NoError(t, err)
	assert.True(t, empty)
	assert.Nil(t, s.edgeIDsAt(0, 0, 1))
}

func TestRelationTransposedMirrorsForward(t *testing.T) {
	s := newRelationStore(true, pending.New(pending.DefaultFlushRatio))
	s.growAll(4)
	_, err := s.insert(1, 2, 3, 99)
	assert.NoError(t, err)

	e := s.entry(1)
	v, ok := e.transposed.Get(3, 2)
	assert.True(t, ok)
	assert.Equal(t, encodeSingle(99), v)

	empty, err := s.remove(1, 2, 3, 99)
	assert.NoError(t, err)
	assert.True(t, empty)
	_, ok = e.transposed.Get(3, 2)
	assert.False(t, ok)
}

func TestRelationCountAndSnapshot(t *testing.T) {
	s := newRelationStore(false, pending.New(pending.DefaultFlushRatio))
	s.growAll(4)
	_, _ = s.insert(0, 0, 1, 1)
	_, _ = s.insert(1, 0, 2, 2)
	assert.Equal(t, 2, s.RelationCount())
	snap := s.Snapshot()
	assert.EqualValues(t, 1, snap[0])
	assert.EqualValues(t, 1, snap[1])
}
