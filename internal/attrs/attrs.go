// Package attrs implements the attribute set attached to a node or edge:
// an ordered list of (attr_id, value) pairs, where attr_id is interned
// via a process-wide attribute-name table and values are a tagged union
// over {bool, int64, double, string, array, null}.
//
// Property sets are expected to be small, so lookup is deliberately
// linear rather than backed by a map — a fresh map per lookup would be
// the more expensive choice at this scale.
package attrs

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/errs"
)

// ID interns an attribute name to a small integer.
type ID int32

// Kind tags the type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindArray
)

// Value is a tagged union over {bool, int64, double, string, array, null}.
// Only one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Array []Value
}

// NullValue is the zero Value.
var NullValue = Value{Kind: KindNull}

func BoolValue(b bool) Value       { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value       { return Value{Kind: KindInt64, Int: i} }
func FloatValue(f float64) Value   { return Value{Kind: KindFloat64, Float: f} }
func StringValue(s string) Value   { return Value{Kind: KindString, Str: s} }
func ArrayValue(a []Value) Value   { return Value{Kind: KindArray, Array: a} }

// Pair is one (attr_id, value) entry in an attribute set.
type Pair struct {
	Attr  ID
	Value Value
}

// Set is the ordered, linearly-searched attribute set attached to a node
// or edge.
type Set struct {
	pairs []Pair
}

// Get returns the value for attr and whether it was present.
func (s *Set) Get(attr ID) (Value, bool) {
	for _, p := range s.pairs {
		if p.Attr == attr {
			return p.Value, true
		}
	}
	return NullValue, false
}

// Set writes (or overwrites) the value for attr, preserving insertion
// order for new attributes.
func (s *Set) Set(attr ID, v Value) {
	for i := range s.pairs {
		if s.pairs[i].Attr == attr {
			s.pairs[i].Value = v
			return
		}
	}
	s.pairs = append(s.pairs, Pair{Attr: attr, Value: v})
}

// Remove deletes attr from the set, if present.
func (s *Set) Remove(attr ID) {
	for i := range s.pairs {
		if s.pairs[i].Attr == attr {
			s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
			return
		}
	}
}

// Pairs returns the set's entries in insertion order. The returned slice
// must not be mutated by the caller.
func (s *Set) Pairs() []Pair { return s.pairs }

// Transform returns a new Set with every value passed through f, in the
// same insertion order. s itself is left untouched, so a caller can use
// this to derive a sealed or opened copy without aliasing the original
// pairs slice.
func (s *Set) Transform(f func(ID, Value) Value) Set {
	var out Set
	for _, p := range s.pairs {
		out.Set(p.Attr, f(p.Attr, p.Value))
	}
	return out
}

// Len returns the number of attributes in the set.
func (s *Set) Len() int { return len(s.pairs) }

// Interner is the process-wide attribute-name table: attribute names are
// interned once and referenced everywhere else by their small integer ID.
type Interner struct {
	mu      sync.RWMutex
	nameToID map[string]ID
	idToName []string
}

// NewInterner constructs an empty interner.
func NewInterner() *Interner {
	return &Interner{nameToID: make(map[string]ID)}
}

// Intern returns the ID for name, assigning a fresh one on first use.
func (in *Interner) Intern(name string) ID {
	in.mu.RLock()
	if id, ok := in.nameToID[name]; ok {
		in.mu.RUnlock()
		return id
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.nameToID[name]; ok {
		return id
	}
	id := ID(len(in.idToName))
	in.idToName = append(in.idToName, name)
	in.nameToID[name] = id
	return id
}

// Lookup returns the id for an already-interned name, if any.
func (in *Interner) Lookup(name string) (ID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.nameToID[name]
	return id, ok
}

// Name returns the interned name for id.
func (in *Interner) Name(id ID) (string, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(in.idToName) {
		return "", errs.ErrNotFound
	}
	return in.idToName[id], nil
}

// Count returns how many distinct names have been interned.
func (in *Interner) Count() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.idToName)
}
