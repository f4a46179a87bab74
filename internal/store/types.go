// Package store implements the matrix-backed graph: nodes and edges live
// in DataBlocks, each label and relationship type owns a DeltaMatrix,
// and a Graph ties them together behind a readers/writer lock with a
// pluggable matrix synchronization policy.
package store

import (
	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/datablock"
)

// NodeID and EdgeID are the dense slot ids — the same space as
// datablock.ID, renamed here for call-site clarity.
type NodeID = datablock.ID
type EdgeID = datablock.ID

// InvalidID is the reserved sentinel for "no entity".
const InvalidID = datablock.InvalidID

// EdgeDir selects which side of a node's incident edges to scan.
type EdgeDir int

const (
	DirIncoming EdgeDir = iota
	DirOutgoing
	DirBoth
)

// SyncPolicy selects how a matrix fetch reconciles pending overlays
// before returning a view: flush-and-resize, resize-only, or neither.
type SyncPolicy int

const (
	// FlushResize flushes then resizes on every read-side matrix fetch;
	// the default for readers running algebraic expressions.
	FlushResize SyncPolicy = iota
	// ResizeOnly skips flush and only resizes; used during bulk loads.
	ResizeOnly
	// Nop returns the matrix as-is; used while a single caller
	// orchestrates its own flushes.
	Nop
)

type nodePayload struct {
	label int
	attrs attrs.Set
}

type edgePayload struct {
	src, dest NodeID
	relation  int
	attrs     attrs.Set
}

// Node is the read-only view of a node returned to callers.
type Node struct {
	ID    NodeID
	Label int // runtime.NoLabel if the node has no label
	Attrs *attrs.Set
}

// Edge is the read-only view of an edge returned to callers.
type Edge struct {
	ID       EdgeID
	Src      NodeID
	Dest     NodeID
	Relation int
	Attrs    *attrs.Set
}
