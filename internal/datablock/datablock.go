// Package datablock implements an append-only, block-chained record store:
// a DataBlock holds fixed-size records (nodes or edges) in blocks of
// capacity B, gives each record a stable id equal to its slot index, and
// never moves a live record once allocated.
//
// The block-chaining mirrors how an append-only key-value engine lays out
// its segments, but here the "key" is simply the dense integer slot index,
// which is what lets Get be O(1) instead of a B-tree lookup.
package datablock

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/errs"
)

// ID is a dense 64-bit identifier: the slot index inside a DataBlock.
type ID int64

// InvalidID is the reserved sentinel for "no entity".
const InvalidID ID = -1

// Flag distinguishes the state of a slot.
type Flag uint8

const (
	// FlagLive marks a slot whose record is present and referenced by at
	// least one matrix (a label matrix for nodes, a relation matrix for
	// edges).
	FlagLive Flag = iota
	// FlagDeleted marks a slot removed from every matrix but still held
	// because an iterator may be observing it (the "zombie" state).
	FlagDeleted
)

// DefaultBlockCap is the default number of records per block.
const DefaultBlockCap = 16384

type record[T any] struct {
	id      ID
	payload T
	flag    Flag
}

// DataBlock is an ordered sequence of fixed-capacity blocks. Records are
// appended but never relocated: a record's ID is stable for the lifetime of
// the DataBlock, and Get is O(1) because ID is exactly the linear slot index.
type DataBlock[T any] struct {
	mu         sync.RWMutex
	blockCap   int
	blocks     [][]record[T]
	count      int // total allocated slots (live + deleted), i.e. uncompacted count
	deletedIDs []ID // sorted ascending; append-only, used for id-compaction at serialization
}

// New creates an empty DataBlock with the given per-block capacity. A
// blockCap <= 0 falls back to DefaultBlockCap.
func New[T any](blockCap int) *DataBlock[T] {
	if blockCap <= 0 {
		blockCap = DefaultBlockCap
	}
	return &DataBlock[T]{blockCap: blockCap}
}

// Allocate reserves n consecutive slots, growing by whole blocks as needed,
// and returns the id of the first slot. Existing records are never moved.
func (d *DataBlock[T]) Allocate(n int) (ID, error) {
	if n <= 0 {
		return InvalidID, errs.ErrInvalidArgument
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	first := ID(d.count)
	for i := 0; i < n; i++ {
		d.appendSlot()
	}
	return first, nil
}

// appendSlot grows the block chain by exactly one record slot. Caller holds
// the write lock.
func (d *DataBlock[T]) appendSlot() {
	blockIdx := d.count / d.blockCap
	for blockIdx >= len(d.blocks) {
		d.blocks = append(d.blocks, make([]record[T], 0, d.blockCap))
	}
	id := ID(d.count)
	d.blocks[blockIdx] = append(d.blocks[blockIdx], record[T]{id: id, flag: FlagLive})
	d.count++
}

// slot returns a pointer to the record for id, or nil if id was never
// allocated. Caller holds at least the read lock.
func (d *DataBlock[T]) slot(id ID) *record[T] {
	if id < 0 || int(id) >= d.count {
		return nil
	}
	blockIdx := int(id) / d.blockCap
	offset := int(id) % d.blockCap
	return &d.blocks[blockIdx][offset]
}

// Set writes the payload for an allocated, live slot.
func (d *DataBlock[T]) Set(id ID, payload T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.slot(id)
	if r == nil {
		return errs.ErrInvalidArgument
	}
	r.payload = payload
	return nil
}

// Get returns the slot's payload and whether it is still live. A slot that
// was never allocated returns (_, false, errs.ErrNotFound).
func (d *DataBlock[T]) Get(id ID) (payload T, live bool, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r := d.slot(id)
	if r == nil {
		return payload, false, errs.ErrNotFound
	}
	return r.payload, r.flag == FlagLive, nil
}

// Delete marks id's slot deleted (the zombie state) and records it in the
// sorted deleted-ids list for later id-compaction. Deleting an
// already-deleted or unallocated id is a no-op returning errs.ErrNotFound.
func (d *DataBlock[T]) Delete(id ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.slot(id)
	if r == nil || r.flag == FlagDeleted {
		return errs.ErrNotFound
	}
	r.flag = FlagDeleted
	d.deletedIDs = insertSorted(d.deletedIDs, id)
	return nil
}

func insertSorted(ids []ID, id ID) []ID {
	i := len(ids)
	for i > 0 && ids[i-1] > id {
		i--
	}
	ids = append(ids, InvalidID)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// ShiftForCompaction returns how many positions id's on-disk index shifts
// down by, i.e. the count of deleted ids strictly less than id. Persistence
// uses this to compute the compacted src/dest id written to disk.
func (d *DataBlock[T]) ShiftForCompaction(id ID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lo, hi := 0, len(d.deletedIDs)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.deletedIDs[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Len returns the number of allocated slots, live or deleted
// ("uncompacted" count).
func (d *DataBlock[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.count
}

// DeletedLen returns the number of deleted (zombie) slots.
func (d *DataBlock[T]) DeletedLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.deletedIDs)
}

// LiveLen returns the number of live slots.
func (d *DataBlock[T]) LiveLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.count - len(d.deletedIDs)
}

// Iterator yields every live record exactly once, in ascending id order. It
// is a stable snapshot-style iterator: it is only safe against concurrent
// writes once the writer lock protecting this DataBlock has been released —
// DataBlocks are append-only under the writer lock and read-only under the
// reader lock.
type Iterator[T any] struct {
	d      *DataBlock[T]
	cursor ID
}

// Iterate returns a fresh Iterator positioned before the first record.
func (d *DataBlock[T]) Iterate() *Iterator[T] {
	return &Iterator[T]{d: d, cursor: 0}
}

// Next advances to the next live record, returning its id, payload and
// whether one was found.
func (it *Iterator[T]) Next() (id ID, payload T, ok bool) {
	it.d.mu.RLock()
	defer it.d.mu.RUnlock()
	for int(it.cursor) < it.d.count {
		r := it.d.slot(it.cursor)
		it.cursor++
		if r.flag == FlagLive {
			return r.id, r.payload, true
		}
	}
	return InvalidID, payload, false
}
