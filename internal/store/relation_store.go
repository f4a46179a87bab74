package store

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/delta"
	"github.com/orneryd/matrixgraph/internal/pending"
)

// multiEdgeTag is the tag bit distinguishing a relation matrix cell
// holding a single edge id from one holding a pointer into the
// multi-edge list table. Edge ids are non-negative so the high bit of a
// uint64 payload is always free for tagging.
const multiEdgeTag uint64 = 1 << 63

func encodeSingle(id EdgeID) uint64       { return uint64(id) }
func encodeMulti(listKey uint64) uint64   { return multiEdgeTag | listKey }
func isMultiEdge(payload uint64) bool     { return payload&multiEdgeTag != 0 }
func listKeyOf(payload uint64) uint64     { return payload &^ multiEdgeTag }
func singleEdgeOf(payload uint64) EdgeID  { return EdgeID(payload) }

// relationEntry is the per-relationship-type bookkeeping: the forward
// DeltaMatrix, an optional transposed companion, and the side-table of
// multi-edge lists referenced by tagged cells — a tag bit plus an
// out-of-band list table standing in for a proper sum type, since a
// matrix cell only holds one scalar payload.
type relationEntry struct {
	mu          sync.Mutex
	matrix      *delta.DeltaMatrix
	transposed  *delta.DeltaMatrix // nil if not maintained
	lists       map[uint64][]EdgeID
	nextListKey uint64
	edgeCount   int64
	hasMulti    bool
}

// RelationStore owns one (plus optionally one transposed) DeltaMatrix per
// relationship type, keyed by relation id.
type RelationStore struct {
	mu                 sync.Mutex
	byID               map[int]*relationEntry
	maintainTransposed bool
	dim                int64
	tracker            *pending.Tracker
}

func newRelationStore(maintainTransposed bool, tracker *pending.Tracker) *RelationStore {
	return &RelationStore{byID: make(map[int]*relationEntry), maintainTransposed: maintainTransposed, tracker: tracker}
}

func (s *RelationStore) entry(relation int) *relationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[relation]
	if !ok {
		e = &relationEntry{
			matrix: delta.New(s.dim, s.dim),
			lists:  make(map[uint64][]EdgeID),
		}
		s.tracker.Register(e.matrix)
		if s.maintainTransposed {
			e.transposed = delta.New(s.dim, s.dim)
			s.tracker.Register(e.transposed)
		}
		s.byID[relation] = e
	}
	return e
}

func (s *RelationStore) growAll(dim int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	for _, e := range s.byID {
		_ = e.matrix.Resize(dim)
		if e.transposed != nil {
			_ = e.transposed.Resize(dim)
		}
	}
}

// insert records a new edge id at (src,dest) for relation, converting the
// cell to a multi-edge list if an entry already exists there. It returns
// whether this was the first edge for the (src,dest) pair (i.e. whether
// adjacency needs an insert too).
func (s *RelationStore) insert(relation int, src, dest NodeID, id EdgeID) (firstForPair bool, err error) {
	e := s.entry(relation)
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.matrix.Get(int64(src), int64(dest))
	switch {
	case !ok:
		if err := e.matrix.Set(int64(src), int64(dest), encodeSingle(id)); err != nil {
			return false, err
		}
		firstForPair = true
	case isMultiEdge(existing):
		key := listKeyOf(existing)
		e.lists[key] = append(e.lists[key], id)
	default:
		// convert single -> multi
		oldID := singleEdgeOf(existing)
		key := e.nextListKey
		e.nextListKey++
		e.lists[key] = []EdgeID{oldID, id}
		if err := e.matrix.Set(int64(src), int64(dest), encodeMulti(key)); err != nil {
			return false, err
		}
		e.hasMulti = true
	}
	e.edgeCount++

	if e.transposed != nil {
		v, _ := e.matrix.Get(int64(src), int64(dest))
		if err := e.transposed.Set(int64(dest), int64(src), v); err != nil {
			return firstForPair, err
		}
	}
	return firstForPair, nil
}

// remove deletes id from relation's (src,dest) cell, splicing a multi-edge
// list or clearing the cell outright. It returns whether the (src,dest)
// pair no longer has ANY edge of this relation (i.e. whether adjacency
// might need to drop the pair, pending a check across other relations).
func (s *RelationStore) remove(relation int, src, dest NodeID, id EdgeID) (pairNowEmpty bool, err error) {
	e := s.entry(relation)
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.matrix.Get(int64(src), int64(dest))
	if !ok {
		return true, nil
	}
	if isMultiEdge(existing) {
		key := listKeyOf(existing)
		list := e.lists[key]
		for i, eid := range list {
			if eid == id {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		switch len(list) {
		case 0:
			delete(e.lists, key)
			if err := e.matrix.Delete(int64(src), int64(dest)); err != nil {
				return false, err
			}
			pairNowEmpty = true
		case 1:
			delete(e.lists, key)
			if err := e.matrix.Set(int64(src), int64(dest), encodeSingle(list[0])); err != nil {
				return false, err
			}
		default:
			e.lists[key] = list
		}
	} else {
		if err := e.matrix.Delete(int64(src), int64(dest)); err != nil {
			return false, err
		}
		pairNowEmpty = true
	}
	e.edgeCount--

	if e.transposed != nil {
		if pairNowEmpty {
			if err := e.transposed.Delete(int64(dest), int64(src)); err != nil {
				return pairNowEmpty, err
			}
		} else {
			v, _ := e.matrix.Get(int64(src), int64(dest))
			if err := e.transposed.Set(int64(dest), int64(src), v); err != nil {
				return pairNowEmpty, err
			}
		}
	}
	return pairNowEmpty, nil
}

// edgeIDsAt returns every live edge id stored at (src,dest) for relation.
func (s *RelationStore) edgeIDsAt(relation int, src, dest NodeID) []EdgeID {
	e := s.entry(relation)
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.matrix.Get(int64(src), int64(dest))
	if !ok {
		return nil
	}
	if isMultiEdge(v) {
		list := e.lists[listKeyOf(v)]
		out := make([]EdgeID, len(list))
		copy(out, list)
		return out
	}
	return []EdgeID{singleEdgeOf(v)}
}

// HasMultiEdges reports whether relation has ever held a multi-edge cell,
// a fast-path hint for callers deciding whether to bother checking for
// parallel edges between two nodes.
func (s *RelationStore) HasMultiEdges(relation int) bool {
	e := s.entry(relation)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMulti
}

// EdgeCount returns the live edge count for relation.
func (s *RelationStore) EdgeCount(relation int) int64 {
	e := s.entry(relation)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edgeCount
}

// RelationCount returns the number of distinct relation types registered.
func (s *RelationStore) RelationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Snapshot returns a copy of the per-relation live edge counts.
func (s *RelationStore) Snapshot() map[int]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int64, len(s.byID))
	for id, e := range s.byID {
		e.mu.Lock()
		out[id] = e.edgeCount
		e.mu.Unlock()
	}
	return out
}

// All returns a copy of the relation id -> entry map; each entry holds the
// forward DeltaMatrix and (if maintained) its transposed companion. Used
// by the Graph's edge lookups; ApplyAllPending goes through the tracker.
func (s *RelationStore) All() map[int]*relationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]*relationEntry, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}
