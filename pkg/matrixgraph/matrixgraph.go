// Package matrixgraph is the embeddable API for the matrix-backed
// property graph: open or create a Graph, ingest mutation batches,
// evaluate pattern queries, and test reachability. It wires together
// internal/store, internal/algebra, internal/reach and internal/persist
// behind the engine's three public operations: ingest, evaluate,
// reachable.
package matrixgraph

import (
	"fmt"

	"github.com/orneryd/matrixgraph/internal/algebra"
	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/bmatrix"
	"github.com/orneryd/matrixgraph/internal/config"
	"github.com/orneryd/matrixgraph/internal/persist"
	"github.com/orneryd/matrixgraph/internal/reach"
	"github.com/orneryd/matrixgraph/internal/runtime"
	"github.com/orneryd/matrixgraph/internal/scratch"
	"github.com/orneryd/matrixgraph/internal/store"
)

// NodeID and EdgeID re-export the store's dense id types for callers who
// only import this package.
type NodeID = store.NodeID
type EdgeID = store.EdgeID

// Graph is the embeddable handle returned by Open/New. It owns a Runtime,
// a store.Graph, and the evaluator's scratch pool.
type Graph struct {
	rt    *runtime.Runtime
	g     *store.Graph
	pool  *scratch.Pool
	cfg   *config.Config
}

// DefaultConfig returns config.DefaultConfig's defaults.
func DefaultConfig() *config.Config { return config.DefaultConfig() }

// New constructs an empty, in-memory Graph from cfg (nil selects
// DefaultConfig). No BadgerDB is opened; callers wanting durability call
// Save below to write cfg.DataDir and Open to read it back.
func New(cfg *config.Config) *Graph {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	rt := runtime.New(cfg.RuntimeConfig())
	rt.Sealer = cfg.Sealer()
	return &Graph{
		rt:   rt,
		g:    store.New(rt, cfg.StoreConfig()),
		pool: scratch.New(rt.ScratchPoolSize),
		cfg:  cfg,
	}
}

// Open loads a Graph previously persisted under dataDir, or constructs a
// fresh empty one if no data exists yet there. cfg nil selects
// DefaultConfig, with DataDir overridden to dataDir.
func Open(dataDir string, cfg *config.Config) (*Graph, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := runtime.New(cfg.RuntimeConfig())
	rt.Sealer = cfg.Sealer()
	g, err := persist.Load(rt, cfg.StoreConfig(), persist.Options{DataDir: dataDir})
	if err != nil {
		return nil, fmt.Errorf("matrixgraph: open %s: %w", dataDir, err)
	}
	return &Graph{rt: rt, g: g, pool: scratch.New(rt.ScratchPoolSize), cfg: cfg}, nil
}

// Save persists the Graph's complete state to its configured DataDir.
func (mg *Graph) Save() error {
	return persist.Save(mg.g, persist.Options{DataDir: mg.cfg.DataDir})
}

// Close flushes any outstanding pending work. A Graph opened via New (no
// backing store) has nothing further to release.
func (mg *Graph) Close() error {
	return mg.g.ApplyAllPending(true)
}

// Runtime exposes the underlying Runtime, for callers constructing
// patterns that need label/relation ids (rt.Labels.IDFor, etc).
func (mg *Graph) Runtime() *runtime.Runtime { return mg.rt }

// Store exposes the underlying store.Graph for callers needing direct
// CRUD access beyond the Ingest batch API.
func (mg *Graph) Store() *store.Graph { return mg.g }

// --- ingest -----------------------------------------------------------

// NodeCreate and EdgeCreate describe entities to add in a MutationBatch;
// NodeDelete/EdgeDelete name entities to remove by id.
type NodeCreate struct {
	Label int
	Attrs []attrs.Pair
}

type EdgeCreate struct {
	Src, Dest NodeID
	Relation  int
	Attrs     []attrs.Pair
}

// AttrWrite sets a single attribute on an already-existing node or edge.
type AttrWrite struct {
	NodeID *NodeID // one of NodeID/EdgeID is set, never both
	EdgeID *EdgeID
	Attr   attrs.ID
	Value  attrs.Value
}

// MutationBatch is Ingest's argument: a batch of node/edge create/delete
// with optional attribute writes, applied under one write lock
// acquisition.
type MutationBatch struct {
	CreateNodes []NodeCreate
	CreateEdges []EdgeCreate
	DeleteNodes []NodeID
	DeleteEdges []EdgeID
	SetAttrs    []AttrWrite
}

// IngestResult reports the ids assigned to newly created entities, in the
// same order as MutationBatch.CreateNodes/CreateEdges.
type IngestResult struct {
	CreatedNodes []NodeID
	CreatedEdges []EdgeID
}

// Ingest applies a MutationBatch under the Graph's write lock, in the
// fixed order creates, attribute writes, then deletes — so a batch can
// create an entity and set its attributes in one call without a
// round trip, and deletes never race a same-batch create of the same id.
func (mg *Graph) Ingest(batch MutationBatch) (IngestResult, error) {
	mg.g.AcquireWrite()
	defer mg.g.ReleaseWrite()

	var result IngestResult
	for _, nc := range batch.CreateNodes {
		n, err := mg.g.CreateNode(nc.Label)
		if err != nil {
			return result, fmt.Errorf("matrixgraph: create node: %w", err)
		}
		for _, p := range nc.Attrs {
			if err := mg.g.SetNodeAttr(n.ID, p.Attr, p.Value); err != nil {
				return result, fmt.Errorf("matrixgraph: set node attr: %w", err)
			}
		}
		result.CreatedNodes = append(result.CreatedNodes, n.ID)
	}
	for _, ec := range batch.CreateEdges {
		e, err := mg.g.CreateEdge(ec.Src, ec.Dest, ec.Relation)
		if err != nil {
			return result, fmt.Errorf("matrixgraph: create edge: %w", err)
		}
		for _, p := range ec.Attrs {
			if err := mg.g.SetEdgeAttr(e.ID, p.Attr, p.Value); err != nil {
				return result, fmt.Errorf("matrixgraph: set edge attr: %w", err)
			}
		}
		result.CreatedEdges = append(result.CreatedEdges, e.ID)
	}
	for _, w := range batch.SetAttrs {
		switch {
		case w.NodeID != nil:
			if err := mg.g.SetNodeAttr(*w.NodeID, w.Attr, w.Value); err != nil {
				return result, fmt.Errorf("matrixgraph: set node attr: %w", err)
			}
		case w.EdgeID != nil:
			if err := mg.g.SetEdgeAttr(*w.EdgeID, w.Attr, w.Value); err != nil {
				return result, fmt.Errorf("matrixgraph: set edge attr: %w", err)
			}
		}
	}
	for _, id := range batch.DeleteEdges {
		if err := mg.g.DeleteEdge(id); err != nil {
			return result, fmt.Errorf("matrixgraph: delete edge: %w", err)
		}
	}
	for _, id := range batch.DeleteNodes {
		if err := mg.g.DeleteNode(id); err != nil {
			return result, fmt.Errorf("matrixgraph: delete node: %w", err)
		}
	}
	return result, nil
}

// --- evaluate -----------------------------------------------------------

// Tuple is one matched (src, dest) pair of a query's result stream.
type Tuple struct {
	Src, Dest NodeID
}

// Evaluate builds the expression list from pattern, optimizes each
// expression, evaluates it under a shared read lock, and concatenates
// every expression's result tuples into one stream. card (a cardinality
// estimator for the optimizer's distribution rewrite) may be nil, which
// simply skips that rewrite.
func (mg *Graph) Evaluate(pattern *algebra.Pattern, card algebra.Cardinality) ([][]Tuple, error) {
	mg.g.AcquireRead()
	defer mg.g.ReleaseRead()

	exprs := algebra.Build(pattern)
	ev := algebra.NewEvaluator(mg.g, mg.pool)

	out := make([][]Tuple, 0, len(exprs))
	for _, expr := range exprs {
		optimized := algebra.Optimize(expr, card)
		m, err := ev.Evaluate(optimized)
		if err != nil {
			return nil, fmt.Errorf("matrixgraph: evaluate: %w", err)
		}
		out = append(out, tuplesOf(m))
	}
	return out, nil
}

func tuplesOf(m *bmatrix.Matrix) []Tuple {
	var out []Tuple
	it := m.Tuples()
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, Tuple{Src: NodeID(t.Row), Dest: NodeID(t.Col)})
	}
	return out
}

// --- reachable ----------------------------------------------------------

// Reachable reports whether dest is reachable from src via any directed
// path of any relation.
func (mg *Graph) Reachable(src, dest NodeID) bool {
	mg.g.AcquireRead()
	defer mg.g.ReleaseRead()
	return reach.Reachable(mg.g, src, dest)
}
