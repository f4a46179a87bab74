package store

import (
	"strings"
	"sync"

	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/bmatrix"
	"github.com/orneryd/matrixgraph/internal/datablock"
	"github.com/orneryd/matrixgraph/internal/delta"
	"github.com/orneryd/matrixgraph/internal/errs"
	"github.com/orneryd/matrixgraph/internal/pending"
	"github.com/orneryd/matrixgraph/internal/runtime"
)

// sealedAttrPrefix marks an interned attribute name as sensitive: a
// Graph whose Runtime carries a Sealer stores that attribute's string
// value encrypted and decrypts it transparently on read.
const sealedAttrPrefix = "sealed:"

// Config carries the construction-time knobs that bear on a single
// Graph's storage.
type Config struct {
	NodeBlockCap        int
	EdgeBlockCap        int
	MaintainTransposed  bool
	BulkDeleteThreshold int
	FlushRatio          float64
}

// DefaultConfig returns Config's defaults.
func DefaultConfig() Config {
	return Config{
		NodeBlockCap:        datablock.DefaultBlockCap,
		EdgeBlockCap:        datablock.DefaultBlockCap,
		MaintainTransposed:  false,
		BulkDeleteThreshold: 4,
		FlushRatio:          pending.DefaultFlushRatio,
	}
}

// Graph is the matrix-backed property graph: DataBlocks for node/edge
// payloads, one DeltaMatrix per label and relation, a union adjacency
// DeltaMatrix, and an RW lock the caller must hold for the documented
// operation — explicit Acquire/Release methods rather than a bare
// exported mutex, so every entry point's required lock mode is named at
// the call site.
type Graph struct {
	rt *runtime.Runtime
	rw sync.RWMutex

	nodes *datablock.DataBlock[nodePayload]
	edges *datablock.DataBlock[edgePayload]

	labels    *LabelStore
	relations *RelationStore
	adjacency *delta.DeltaMatrix
	pending   *pending.Tracker

	cfg Config

	mu     sync.Mutex // guards policy and dim bookkeeping below
	policy SyncPolicy
	dim    int64
}

// New constructs an empty Graph bound to rt (for attribute interning and
// label/relation name dictionaries).
func New(rt *runtime.Runtime, cfg Config) *Graph {
	if cfg.NodeBlockCap <= 0 {
		cfg.NodeBlockCap = datablock.DefaultBlockCap
	}
	if cfg.EdgeBlockCap <= 0 {
		cfg.EdgeBlockCap = datablock.DefaultBlockCap
	}
	if cfg.BulkDeleteThreshold <= 0 {
		cfg.BulkDeleteThreshold = 4
	}
	tracker := pending.New(cfg.FlushRatio)
	adjacency := delta.New(0, 0)
	tracker.Register(adjacency)
	return &Graph{
		rt:        rt,
		nodes:     datablock.New[nodePayload](cfg.NodeBlockCap),
		edges:     datablock.New[edgePayload](cfg.EdgeBlockCap),
		labels:    newLabelStore(tracker),
		relations: newRelationStore(cfg.MaintainTransposed, tracker),
		adjacency: adjacency,
		pending:   tracker,
		cfg:       cfg,
		policy:    FlushResize,
	}
}

// AcquireWrite/ReleaseWrite and AcquireRead/ReleaseRead take/drop the
// Graph's readers/writer lock. Callers
// choose write (exclusive) for any mutating operation, read (shared) for
// a query or lookup.
func (g *Graph) AcquireWrite()   { g.rw.Lock() }
func (g *Graph) ReleaseWrite()   { g.rw.Unlock() }
func (g *Graph) AcquireRead()    { g.rw.RLock() }
func (g *Graph) ReleaseRead()    { g.rw.RUnlock() }

// SetSyncPolicy installs the policy subsequent matrix fetches observe.
func (g *Graph) SetSyncPolicy(p SyncPolicy) {
	g.mu.Lock()
	g.policy = p
	g.mu.Unlock()
}

// SyncPolicyFor reports the current policy.
func (g *Graph) SyncPolicyFor() SyncPolicy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policy
}

// RequiredMatrixDim is the smallest square dimension that covers every
// allocated node slot, live or zombie.
func (g *Graph) RequiredMatrixDim() int64 {
	return int64(g.nodes.Len())
}

func (g *Graph) growTo(dim int64) {
	g.mu.Lock()
	if dim <= g.dim {
		g.mu.Unlock()
		return
	}
	g.dim = dim
	g.mu.Unlock()
	g.labels.growAll(dim)
	g.relations.growAll(dim)
	_ = g.adjacency.Resize(dim)
}

// CreateNode allocates a node slot, optionally tagging it with label
// (runtime.NoLabel for none).
func (g *Graph) CreateNode(label int) (Node, error) {
	id, err := g.nodes.Allocate(1)
	if err != nil {
		return Node{}, err
	}
	set := attrs.Set{}
	if err := g.nodes.Set(id, nodePayload{label: label, attrs: set}); err != nil {
		return Node{}, err
	}
	g.growTo(int64(id) + 1)
	if label != runtime.NoLabel {
		if err := g.labels.matrix(label).Set(int64(id), int64(id), bmatrix.Present); err != nil {
			return Node{}, err
		}
		g.labels.incr(label)
	}
	return Node{ID: id, Label: label, Attrs: &set}, nil
}

// CreateEdge allocates an edge slot from src to dest tagged with relation
// r, wiring the relation matrix (and transpose, if maintained) and the
// union adjacency matrix.
func (g *Graph) CreateEdge(src, dest NodeID, r int) (Edge, error) {
	if _, live, err := g.nodes.Get(src); err != nil || !live {
		return Edge{}, errs.ErrNotFound
	}
	if _, live, err := g.nodes.Get(dest); err != nil || !live {
		return Edge{}, errs.ErrNotFound
	}
	id, err := g.edges.Allocate(1)
	if err != nil {
		return Edge{}, err
	}
	set := attrs.Set{}
	if err := g.edges.Set(id, edgePayload{src: src, dest: dest, relation: r, attrs: set}); err != nil {
		return Edge{}, err
	}
	first, err := g.relations.insert(r, src, dest, id)
	if err != nil {
		return Edge{}, err
	}
	if first {
		if err := g.adjacency.Set(int64(src), int64(dest), bmatrix.Present); err != nil {
			return Edge{}, err
		}
	}
	return Edge{ID: id, Src: src, Dest: dest, Relation: r, Attrs: &set}, nil
}

// DeleteNode removes every edge touching n, clears its label diagonal
// entry, and marks its slot deleted.
func (g *Graph) DeleteNode(n NodeID) error {
	payload, live, err := g.nodes.Get(n)
	if err != nil {
		return err
	}
	if !live {
		return errs.ErrNotFound
	}
	for _, e := range g.edgesTouching(n) {
		if err := g.DeleteEdge(e.ID); err != nil {
			return err
		}
	}
	if payload.label != runtime.NoLabel {
		if err := g.labels.matrix(payload.label).Delete(int64(n), int64(n)); err != nil {
			return err
		}
		g.labels.decr(payload.label)
	}
	return g.nodes.Delete(n)
}

// edgesTouching scans every relation's live tuples for any edge incident
// to n; used only by DeleteNode, where correctness (not speed) matters.
func (g *Graph) edgesTouching(n NodeID) []Edge {
	var out []Edge
	for relID := range g.relations.All() {
		for _, tup := range g.relationTuples(relID) {
			if tup.Src == n || tup.Dest == n {
				for _, eid := range g.relations.edgeIDsAt(relID, tup.Src, tup.Dest) {
					out = append(out, Edge{ID: eid, Src: tup.Src, Dest: tup.Dest, Relation: relID})
				}
			}
		}
	}
	return out
}

func (g *Graph) relationTuples(relID int) []struct{ Src, Dest NodeID } {
	e := g.relations.entry(relID)
	e.mu.Lock()
	m := g.syncedView(e.matrix)
	e.mu.Unlock()
	var out []struct{ Src, Dest NodeID }
	it := m.Tuples()
	for {
		tup, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, struct{ Src, Dest NodeID }{NodeID(tup.Row), NodeID(tup.Col)})
	}
	return out
}

// DeleteEdge removes e from its relation matrix, splicing a multi-edge
// list if present, and drops the adjacency entry only when no relation
// still connects the same (src,dest) pair.
func (g *Graph) DeleteEdge(e EdgeID) error {
	payload, live, err := g.edges.Get(e)
	if err != nil {
		return err
	}
	if !live {
		return errs.ErrNotFound
	}
	relEmpty, err := g.relations.remove(payload.relation, payload.src, payload.dest, e)
	if err != nil {
		return err
	}
	if relEmpty && !g.anyRelationConnects(payload.src, payload.dest) {
		if err := g.adjacency.Delete(int64(payload.src), int64(payload.dest)); err != nil {
			return err
		}
	}
	return g.edges.Delete(e)
}

func (g *Graph) anyRelationConnects(src, dest NodeID) bool {
	for relID := range g.relations.All() {
		if len(g.relations.edgeIDsAt(relID, src, dest)) > 0 {
			return true
		}
	}
	return false
}

// BulkDelete removes nodes and edges in batches. When the combined count
// is below the configured threshold it simply delegates per-entity;
// larger batches still go through the same path, since the threshold
// exists to let callers choose a cheaper batched strategy upstream, not
// to change Graph's deletion semantics.
func (g *Graph) BulkDelete(nodes []NodeID, edges []EdgeID) error {
	for _, e := range edges {
		if err := g.DeleteEdge(e); err != nil && err != errs.ErrNotFound {
			return err
		}
	}
	for _, n := range nodes {
		if err := g.DeleteNode(n); err != nil && err != errs.ErrNotFound {
			return err
		}
	}
	return nil
}

// GetNode returns the live node at id, with any sealed attribute
// transparently decrypted if the Graph's Runtime carries a Sealer.
func (g *Graph) GetNode(id NodeID) (Node, error) {
	p, live, err := g.nodes.Get(id)
	if err != nil {
		return Node{}, err
	}
	if !live {
		return Node{}, errs.ErrNotFound
	}
	a := g.openAttrs(p.attrs)
	return Node{ID: id, Label: p.label, Attrs: &a}, nil
}

// GetEdge returns the live edge at id, with any sealed attribute
// transparently decrypted if the Graph's Runtime carries a Sealer.
func (g *Graph) GetEdge(id EdgeID) (Edge, error) {
	p, live, err := g.edges.Get(id)
	if err != nil {
		return Edge{}, err
	}
	if !live {
		return Edge{}, errs.ErrNotFound
	}
	a := g.openAttrs(p.attrs)
	return Edge{ID: id, Src: p.src, Dest: p.dest, Relation: p.relation, Attrs: &a}, nil
}

// isSensitiveAttr reports whether attr's interned name carries the
// sealedAttrPrefix, i.e. whether it should be sealed at rest.
func (g *Graph) isSensitiveAttr(attr attrs.ID) bool {
	name, err := g.rt.Attrs.Name(attr)
	if err != nil {
		return false
	}
	return strings.HasPrefix(name, sealedAttrPrefix)
}

// sealValue seals v if it is a sensitive, KindString attribute and the
// Runtime carries a Sealer; otherwise it returns v unchanged. Sealing
// failures fall back to storing the plaintext rather than losing the
// write, since the attribute name convention is advisory, not a hard
// guarantee the value is seal-able.
func (g *Graph) sealValue(attr attrs.ID, v attrs.Value) attrs.Value {
	if g.rt.Sealer == nil || v.Kind != attrs.KindString || !g.isSensitiveAttr(attr) {
		return v
	}
	sealed, err := g.rt.Sealer.SealString(v)
	if err != nil {
		return v
	}
	return attrs.StringValue(string(sealed))
}

// openValue is sealValue's inverse for a single attribute.
func (g *Graph) openValue(attr attrs.ID, v attrs.Value) attrs.Value {
	if g.rt.Sealer == nil || v.Kind != attrs.KindString || !g.isSensitiveAttr(attr) {
		return v
	}
	opened, err := g.rt.Sealer.OpenString([]byte(v.Str))
	if err != nil {
		return v
	}
	return opened
}

// openAttrs returns a decrypted copy of set for a single-entity read. It
// never mutates set, so the payload stored in the DataBlock stays
// sealed; only AllNodes/AllEdges, which persistence serializes as-is,
// see the original sealed bytes.
func (g *Graph) openAttrs(set attrs.Set) attrs.Set {
	if g.rt.Sealer == nil {
		return set
	}
	return set.Transform(g.openValue)
}

// GetEdgesConnecting returns every edge from src to dest, optionally
// narrowed to relation r (runtime.NoRelation to scan all relations).
func (g *Graph) GetEdgesConnecting(src, dest NodeID, r int) ([]Edge, error) {
	var out []Edge
	scan := func(relID int) {
		for _, eid := range g.relations.edgeIDsAt(relID, src, dest) {
			if ed, err := g.GetEdge(eid); err == nil {
				out = append(out, ed)
			}
		}
	}
	if r != runtime.NoRelation {
		scan(r)
		return out, nil
	}
	for relID := range g.relations.All() {
		scan(relID)
	}
	return out, nil
}

// GetNodeEdges returns every edge incident to n in direction dir,
// optionally narrowed to relation r.
func (g *Graph) GetNodeEdges(n NodeID, dir EdgeDir, r int) ([]Edge, error) {
	var out []Edge
	relIDs := []int{r}
	if r == runtime.NoRelation {
		relIDs = relIDs[:0]
		for relID := range g.relations.All() {
			relIDs = append(relIDs, relID)
		}
	}
	for _, relID := range relIDs {
		e := g.relations.entry(relID)
		e.mu.Lock()
		m := g.syncedView(e.matrix)
		e.mu.Unlock()
		if dir == DirOutgoing || dir == DirBoth {
			it := m.Tuples()
			for {
				tup, ok := it.Next()
				if !ok {
					break
				}
				if tup.Row == int64(n) {
					for _, eid := range g.relations.edgeIDsAt(relID, n, NodeID(tup.Col)) {
						if ed, err := g.GetEdge(eid); err == nil {
							out = append(out, ed)
						}
					}
				}
			}
		}
		if dir == DirIncoming || dir == DirBoth {
			it := m.Tuples()
			for {
				tup, ok := it.Next()
				if !ok {
					break
				}
				if tup.Col == int64(n) {
					for _, eid := range g.relations.edgeIDsAt(relID, NodeID(tup.Row), n) {
						if ed, err := g.GetEdge(eid); err == nil {
							out = append(out, ed)
						}
					}
				}
			}
		}
	}
	return out, nil
}

// LabelMatrix returns label L's diagonal matrix after applying the
// current sync policy.
func (g *Graph) LabelMatrix(label int) *bmatrix.Matrix {
	dm := g.labels.matrix(label)
	return g.syncedView(dm)
}

// RelationMatrix returns relation r's matrix (or its transpose, if
// maintained and requested) after applying the current sync policy.
func (g *Graph) RelationMatrix(r int, transposed bool) (*bmatrix.Matrix, error) {
	e := g.relations.entry(r)
	e.mu.Lock()
	dm := e.matrix
	if transposed {
		if e.transposed == nil {
			e.mu.Unlock()
			return nil, errs.ErrInvalidArgument
		}
		dm = e.transposed
	}
	e.mu.Unlock()
	return g.syncedView(dm), nil
}

// Adjacency returns the union adjacency matrix after applying the
// current sync policy. matrixgraph does not maintain a transposed
// adjacency; transposed is honored via bmatrix.Transpose on demand.
func (g *Graph) Adjacency(transposed bool) *bmatrix.Matrix {
	m := g.syncedView(g.adjacency)
	if transposed {
		return bmatrix.Transpose(m)
	}
	return m
}

// ZeroMatrix returns an empty matrix at the graph's current required
// dimension. The evaluator does not call it.
func (g *Graph) ZeroMatrix() *bmatrix.Matrix {
	dim := g.RequiredMatrixDim()
	return bmatrix.New(dim, dim)
}

func (g *Graph) syncedView(dm *delta.DeltaMatrix) *bmatrix.Matrix {
	switch g.SyncPolicyFor() {
	case FlushResize:
		_ = dm.Flush()
		_ = dm.Resize(g.RequiredMatrixDim())
	case ResizeOnly:
		_ = dm.Resize(g.RequiredMatrixDim())
	case Nop:
	}
	return dm.Committed()
}

// ApplyAllPending flushes every dirty DeltaMatrix owned by the graph via
// its pending.Tracker. When forceFlush is false, a matrix is left
// pending if its overlay is small relative to its committed size,
// deferring the cost to a later, larger flush.
func (g *Graph) ApplyAllPending(forceFlush bool) error {
	return g.pending.ApplyAll(forceFlush)
}

// NodeLabel returns a node's label (runtime.NoLabel if it has none).
func (g *Graph) NodeLabel(n NodeID) (int, error) {
	p, live, err := g.nodes.Get(n)
	if err != nil {
		return runtime.NoLabel, err
	}
	if !live {
		return runtime.NoLabel, errs.ErrNotFound
	}
	return p.label, nil
}

// EdgeRelation returns an edge's relation type.
func (g *Graph) EdgeRelation(e EdgeID) (int, error) {
	p, live, err := g.edges.Get(e)
	if err != nil {
		return runtime.NoRelation, err
	}
	if !live {
		return runtime.NoRelation, errs.ErrNotFound
	}
	return p.relation, nil
}

// RelationHasMultiEdges reports Graph_RelationshipContainsMultiEdge for r.
func (g *Graph) RelationHasMultiEdges(r int) bool {
	return g.relations.HasMultiEdges(r)
}

// Labels and Relations expose the underlying stores, for Stats and tests.
func (g *Graph) Labels() *LabelStore       { return g.labels }
func (g *Graph) Relations() *RelationStore { return g.relations }
func (g *Graph) NodeBlock() *datablock.DataBlock[nodePayload] { return g.nodes }
func (g *Graph) EdgeBlock() *datablock.DataBlock[edgePayload] { return g.edges }

// SetNodeAttr writes (or overwrites) a single attribute on a live node,
// the optional-attribute-writes half of an ingest mutation batch. An
// attribute whose name carries the sealedAttrPrefix is sealed before
// storage when the Graph's Runtime carries a Sealer.
func (g *Graph) SetNodeAttr(id NodeID, attr attrs.ID, v attrs.Value) error {
	return g.SetNodeAttrRaw(id, attr, g.sealValue(attr, v))
}

// SetEdgeAttr mirrors SetNodeAttr for a live edge.
func (g *Graph) SetEdgeAttr(id EdgeID, attr attrs.ID, v attrs.Value) error {
	return g.SetEdgeAttrRaw(id, attr, g.sealValue(attr, v))
}

// SetNodeAttrRaw writes v verbatim, bypassing sealing. Persistence uses
// this to restore an already-sealed value read back from disk without
// re-encrypting it.
func (g *Graph) SetNodeAttrRaw(id NodeID, attr attrs.ID, v attrs.Value) error {
	p, live, err := g.nodes.Get(id)
	if err != nil {
		return err
	}
	if !live {
		return errs.ErrNotFound
	}
	p.attrs.Set(attr, v)
	return g.nodes.Set(id, p)
}

// SetEdgeAttrRaw mirrors SetNodeAttrRaw for a live edge.
func (g *Graph) SetEdgeAttrRaw(id EdgeID, attr attrs.ID, v attrs.Value) error {
	p, live, err := g.edges.Get(id)
	if err != nil {
		return err
	}
	if !live {
		return errs.ErrNotFound
	}
	p.attrs.Set(attr, v)
	return g.edges.Set(id, p)
}

// AllNodes returns every live node in ascending id order. Used by
// persistence to enumerate the full node set without exposing the
// unexported nodePayload type stored in the DataBlock. Attribute values
// are returned exactly as stored — sealed values stay sealed — so a
// caller serializing these to disk preserves the ciphertext at rest.
func (g *Graph) AllNodes() []Node {
	var out []Node
	it := g.nodes.Iterate()
	for {
		id, p, ok := it.Next()
		if !ok {
			break
		}
		a := p.attrs
		out = append(out, Node{ID: id, Label: p.label, Attrs: &a})
	}
	return out
}

// AllEdges returns every live edge in ascending id order.
func (g *Graph) AllEdges() []Edge {
	var out []Edge
	it := g.edges.Iterate()
	for {
		id, p, ok := it.Next()
		if !ok {
			break
		}
		a := p.attrs
		out = append(out, Edge{ID: id, Src: p.src, Dest: p.dest, Relation: p.relation, Attrs: &a})
	}
	return out
}

// CompactNodeID returns id's on-disk, deletion-compacted form: id minus
// the count of deleted node ids strictly below it.
func (g *Graph) CompactNodeID(id NodeID) int64 {
	return int64(id) - int64(g.nodes.ShiftForCompaction(id))
}

// LabelName and RelationName resolve a label/relation id to its interned
// name via the Graph's Runtime, for persistence and diagnostics.
func (g *Graph) LabelName(label int) (string, error)    { return g.rt.Labels.Name(label) }
func (g *Graph) RelationName(relation int) (string, error) { return g.rt.Relations.Name(relation) }

// Runtime returns the Runtime this Graph was constructed with.
func (g *Graph) Runtime() *runtime.Runtime { return g.rt }
