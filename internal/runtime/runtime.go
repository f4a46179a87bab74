// Package runtime holds process-wide state with a lifecycle: the
// attribute-name interner, the label/relation dictionaries, the
// scratch-matrix pool configuration, and an optional attribute sealer
// are not hidden package globals here — they live on a Runtime handle
// that callers create once and pass into every Graph and
// ExpressionEvaluator they construct.
package runtime

import (
	"sync"

	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/errs"
)

// NoLabel / NoRelation / UnknownLabel / UnknownRelation: labels and
// relations are numbered [0-N); these negative sentinels mean "none" and
// "not yet registered" respectively.
const (
	NoLabel          int = -1
	NoRelation       int = -1
	UnknownLabel     int = -2
	UnknownRelation  int = -2
)

// TypeDict is a process-wide name<->id dictionary shared by every Graph
// built from the same Runtime — this is what makes label id 3 mean
// "Person" consistently across every graph that shares the Runtime.
type TypeDict struct {
	mu       sync.RWMutex
	nameToID map[string]int
	names    []string
}

func newTypeDict(initialCap int) *TypeDict {
	return &TypeDict{nameToID: make(map[string]int, initialCap)}
}

// IDFor returns the id for name, interning it if this is the first use.
func (d *TypeDict) IDFor(name string) int {
	d.mu.RLock()
	if id, ok := d.nameToID[name]; ok {
		d.mu.RUnlock()
		return id
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.nameToID[name]; ok {
		return id
	}
	id := len(d.names)
	d.names = append(d.names, name)
	d.nameToID[name] = id
	return id
}

// Lookup returns the id already assigned to name and true, or 0 and false when name is not registered.
func (d *TypeDict) Lookup(name string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.nameToID[name]
	return id, ok
}

// Name returns the name registered for id.
func (d *TypeDict) Name(id int) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 0 || id >= len(d.names) {
		return "", errs.ErrNotFound
	}
	return d.names[id], nil
}

// Count returns the number of distinct ids registered.
func (d *TypeDict) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// Runtime is the process-wide handle threaded through Graph and evaluator
// constructors instead of being kept as package-level state.
type Runtime struct {
	Attrs     *attrs.Interner
	Labels    *TypeDict
	Relations *TypeDict

	// ScratchPoolSize bounds how many temporary matrices an
	// ExpressionEvaluator keeps warm in its thread-local pool (two
	// scratch matrices typically suffice for a left-associated fold).
	ScratchPoolSize int

	// Sealer, when non-nil, is the encrypt-at-rest key used for any
	// attribute whose interned name carries the "sealed:" prefix. A
	// Graph built from this Runtime transparently seals such values on
	// write and opens them on read. Nil means no sealing: sensitive
	// attributes are stored as plain values.
	Sealer *attrs.Sealer
}

// Config controls initial capacities when constructing a Runtime.
type Config struct {
	LabelCap        int
	RelationCap     int
	ScratchPoolSize int
}

// DefaultConfig returns the default Runtime capacities.
func DefaultConfig() Config {
	return Config{
		LabelCap:        16,
		RelationCap:     16,
		ScratchPoolSize: 2,
	}
}

// New constructs a Runtime. The Runtime is typically created once per
// process (or per test) and shared by every Graph that should see the same
// label/relation namespace and attribute interner.
func New(cfg Config) *Runtime {
	if cfg.ScratchPoolSize <= 0 {
		cfg.ScratchPoolSize = 2
	}
	return &Runtime{
		Attrs:           attrs.NewInterner(),
		Labels:          newTypeDict(cfg.LabelCap),
		Relations:       newTypeDict(cfg.RelationCap),
		ScratchPoolSize: cfg.ScratchPoolSize,
	}
}
