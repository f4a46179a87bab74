package datablock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/matrixgraph/internal/errs"
)

func TestAllocateGetStable(t *testing.T) {
	db := New[string](4)

	id0, err := db.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, db.Set(id0, "alice"))

	id1, err := db.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, db.Set(id1, "bob"))

	assert.Equal(t, ID(0), id0)
	assert.Equal(t, ID(1), id1)

	v, live, err := db.Get(id0)
	require.NoError(t, err)
	assert.True(t, live)
	assert.Equal(t, "alice", v)
}

func TestGrowsAcrossBlocks(t *testing.T) {
	db := New[int](2) // tiny blocks to exercise chaining

	var ids []ID
	for i := 0; i < 10; i++ {
		id, err := db.Allocate(1)
		require.NoError(t, err)
		require.NoError(t, db.Set(id, i*10))
		ids = append(ids, id)
	}

	for i, id := range ids {
		v, live, err := db.Get(id)
		require.NoError(t, err)
		assert.True(t, live)
		assert.Equal(t, i*10, v)
	}
	assert.Equal(t, 10, db.Len())
}

func TestDeleteMarksZombie(t *testing.T) {
	db := New[string](4)
	id, _ := db.Allocate(1)
	require.NoError(t, db.Set(id, "x"))

	require.NoError(t, db.Delete(id))

	_, live, err := db.Get(id)
	require.NoError(t, err)
	assert.False(t, live)
	assert.Equal(t, 1, db.DeletedLen())
	assert.Equal(t, 0, db.LiveLen())

	// deleting again is not found
	err = db.Delete(id)
	assert.Error(t, err)
}

func TestIterateYieldsOnlyLive(t *testing.T) {
	db := New[int](4)
	var ids []ID
	for i := 0; i < 5; i++ {
		id, _ := db.Allocate(1)
		require.NoError(t, db.Set(id, i))
		ids = append(ids, id)
	}
	require.NoError(t, db.Delete(ids[1]))
	require.NoError(t, db.Delete(ids[3]))

	var seen []int
	it := db.Iterate()
	for {
		_, v, ok := it.Next()
		if !ok {
			break
		}
		seen = append(seen, v)
	}
	assert.Equal(t, []int{0, 2, 4}, seen)
}

func TestShiftForCompaction(t *testing.T) {
	db := New[int](4)
	var ids []ID
	for i := 0; i < 6; i++ {
		id, _ := db.Allocate(1)
		ids = append(ids, id)
	}
	require.NoError(t, db.Delete(ids[1]))
	require.NoError(t, db.Delete(ids[3]))

	assert.Equal(t, 0, db.ShiftForCompaction(ids[0]))
	assert.Equal(t, 1, db.ShiftForCompaction(ids[2]))
	assert.Equal(t, 2, db.ShiftForCompaction(ids[4]))
	assert.Equal(t, 2, db.ShiftForCompaction(ids[5]))
}

func TestGetUnallocatedNotFound(t *testing.T) {
	db := New[int](4)
	_, _, err := db.Get(ID(42))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
