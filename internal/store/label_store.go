package store

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/delta"
	"github.com/orneryd/matrixgraph/internal/pending"
)

// LabelStore owns one DeltaMatrix per node label. Every label matrix is
// diagonal: M_L[id,id] is present iff the node at id carries label L.
type LabelStore struct {
	mu      sync.Mutex
	byID    map[int]*delta.DeltaMatrix
	count   map[int]int64 // live node count per label
	dim     int64
	tracker *pending.Tracker
}

func newLabelStore(tracker *pending.Tracker) *LabelStore {
	return &LabelStore{byID: make(map[int]*delta.DeltaMatrix), count: make(map[int]int64), tracker: tracker}
}

// matrix returns (creating if necessary) the DeltaMatrix for label,
// resized to at least the current dimension.
func (s *LabelStore) matrix(label int) *delta.DeltaMatrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	dm, ok := s.byID[label]
	if !ok {
		dm = delta.New(s.dim, s.dim)
		s.byID[label] = dm
		s.tracker.Register(dm)
	}
	return dm
}

// growAll resizes every existing label matrix up to dim; new labels created
// afterward start at dim via matrix().
func (s *LabelStore) growAll(dim int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dim = dim
	for _, dm := range s.byID {
		_ = dm.Resize(dim)
	}
}

func (s *LabelStore) incr(label int) {
	s.mu.Lock()
	s.count[label]++
	s.mu.Unlock()
}

func (s *LabelStore) decr(label int) {
	s.mu.Lock()
	s.count[label]--
	s.mu.Unlock()
}

// Count returns the live node count for label.
func (s *LabelStore) Count(label int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count[label]
}

// LabelCount returns the number of distinct labels registered.
func (s *LabelStore) LabelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Snapshot returns a copy of the per-label live counts, for GraphStatistics.
func (s *LabelStore) Snapshot() map[int]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int64, len(s.count))
	for k, v := range s.count {
		out[k] = v
	}
	return out
}

// All returns a copy of the label id -> DeltaMatrix map.
func (s *LabelStore) All() map[int]*delta.DeltaMatrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]*delta.DeltaMatrix, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}
