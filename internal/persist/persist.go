// Package persist implements the on-disk storage format on top of
// BadgerDB: per label, its id, name, and the live diagonal of its matrix;
// per relation, its id, name, and the live tuples (src, dest, edge_id,
// relation_id) with node ids written in their deletion-compacted form; per
// node and per edge, the full attribute set.
package persist

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/errs"
	"github.com/orneryd/matrixgraph/internal/runtime"
	"github.com/orneryd/matrixgraph/internal/store"
)

// Key prefixes, one byte each.
const (
	prefixLabelName    = byte(0x01) // label id (8 bytes BE) -> name
	prefixLabelNode    = byte(0x02) // label id + compacted node id -> {}
	prefixRelationName = byte(0x03) // relation id (8 bytes BE) -> name
	prefixRelationEdge = byte(0x04) // relation id + src + dest + edge ordinal -> {}
	prefixNodeAttrs    = byte(0x05) // compacted node id -> label + JSON(attrs)
	prefixEdgeAttrs    = byte(0x06) // edge ordinal -> relation + src + dest + JSON(attrs)
)

// Options selects how the backing BadgerDB is opened.
type Options struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

func open(opts Options) (*badger.DB, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("persist: open badger: %w", err)
	}
	return db, nil
}

func be64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func labelNameKey(label int) []byte {
	return append([]byte{prefixLabelName}, be64(int64(label))...)
}

func labelNodeKey(label int, compactedNode int64) []byte {
	k := make([]byte, 0, 17)
	k = append(k, prefixLabelNode)
	k = append(k, be64(int64(label))...)
	k = append(k, be64(compactedNode)...)
	return k
}

func relationNameKey(relation int) []byte {
	return append([]byte{prefixRelationName}, be64(int64(relation))...)
}

func relationEdgeKey(relation int, src, dest int64, ordinal int64) []byte {
	k := make([]byte, 0, 33)
	k = append(k, prefixRelationEdge)
	k = append(k, be64(int64(relation))...)
	k = append(k, be64(src)...)
	k = append(k, be64(dest)...)
	k = append(k, be64(ordinal)...)
	return k
}

func nodeAttrsKey(compactedNode int64) []byte {
	return append([]byte{prefixNodeAttrs}, be64(compactedNode)...)
}

func edgeAttrsKey(ordinal int64) []byte {
	return append([]byte{prefixEdgeAttrs}, be64(ordinal)...)
}

// nodeRecord and edgeRecord are the JSON payloads written alongside the
// index keys above; attributes are recorded by name string rather than
// interned id, so the record is self-describing independent of the
// writing process's Interner state.
type nodeRecord struct {
	Label int               `json:"label"`
	Attrs []attrPairRecord  `json:"attrs,omitempty"`
}

type edgeRecord struct {
	Relation int              `json:"relation"`
	Src      int64            `json:"src"`
	Dest     int64            `json:"dest"`
	Attrs    []attrPairRecord `json:"attrs,omitempty"`
}

type attrPairRecord struct {
	Name  string       `json:"name"`
	Kind  attrs.Kind   `json:"kind"`
	Bool  bool         `json:"bool,omitempty"`
	Int   int64        `json:"int,omitempty"`
	Float float64      `json:"float,omitempty"`
	Str   string       `json:"str,omitempty"`
	Array []attrPairRecord `json:"array,omitempty"`
}

func encodeValue(name string, v attrs.Value) attrPairRecord {
	r := attrPairRecord{Name: name, Kind: v.Kind, Bool: v.Bool, Int: v.Int, Float: v.Float, Str: v.Str}
	if v.Kind == attrs.KindArray {
		for i, e := range v.Array {
			r.Array = append(r.Array, encodeValue(fmt.Sprintf("%s[%d]", name, i), e))
		}
	}
	return r
}

func decodeValue(r attrPairRecord) attrs.Value {
	v := attrs.Value{Kind: r.Kind, Bool: r.Bool, Int: r.Int, Float: r.Float, Str: r.Str}
	if r.Kind == attrs.KindArray {
		for _, e := range r.Array {
			v.Array = append(v.Array, decodeValue(e))
		}
	}
	return v
}

func encodeAttrs(rt *runtime.Runtime, set *attrs.Set) ([]attrPairRecord, error) {
	if set == nil {
		return nil, nil
	}
	pairs := set.Pairs()
	out := make([]attrPairRecord, 0, len(pairs))
	for _, p := range pairs {
		name, err := rt.Attrs.Name(p.Attr)
		if err != nil {
			return nil, fmt.Errorf("persist: resolve attribute name: %w", err)
		}
		out = append(out, encodeValue(name, p.Value))
	}
	return out, nil
}

func applyAttrs(rt *runtime.Runtime, set func(attrs.ID, attrs.Value) error, records []attrPairRecord) error {
	for _, r := range records {
		id := rt.Attrs.Intern(r.Name)
		if err := set(id, decodeValue(r)); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the complete state of g to a BadgerDB at opts.DataDir (or
// purely in memory if opts.InMemory), then closes it. The graph's pending
// overlays are flushed first so every live node and edge is visible. A
// label or relation id with no registered name gets no name entry.
func Save(g *store.Graph, opts Options) error {
	if err := g.ApplyAllPending(true); err != nil {
		return fmt.Errorf("persist: flush pending before save: %w", err)
	}

	db, err := open(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	rt := g.Runtime()
	stats := g.Stats()

	return db.Update(func(txn *badger.Txn) error {
		for label := range stats.ByLabel {
			name, err := g.LabelName(label)
			if err == errs.ErrNotFound {
				continue // id used without a registered name: nothing to record
			}
			if err != nil {
				return fmt.Errorf("persist: resolve label %d: %w", label, err)
			}
			if err := txn.Set(labelNameKey(label), []byte(name)); err != nil {
				return err
			}
		}
		for relation := range stats.ByRelation {
			name, err := g.RelationName(relation)
			if err == errs.ErrNotFound {
				continue // id used without a registered name: nothing to record
			}
			if err != nil {
				return fmt.Errorf("persist: resolve relation %d: %w", relation, err)
			}
			if err := txn.Set(relationNameKey(relation), []byte(name)); err != nil {
				return err
			}
		}

		for _, n := range g.AllNodes() {
			compacted := g.CompactNodeID(n.ID)
			if n.Label != runtime.NoLabel {
				if err := txn.Set(labelNodeKey(n.Label, compacted), []byte{}); err != nil {
					return err
				}
			}
			attrRecords, err := encodeAttrs(rt, n.Attrs)
			if err != nil {
				return err
			}
			data, err := json.Marshal(nodeRecord{Label: n.Label, Attrs: attrRecords})
			if err != nil {
				return fmt.Errorf("persist: encode node %d: %w", n.ID, err)
			}
			if err := txn.Set(nodeAttrsKey(compacted), data); err != nil {
				return err
			}
		}

		for ordinal, e := range g.AllEdges() {
			src := g.CompactNodeID(e.Src)
			dest := g.CompactNodeID(e.Dest)
			if err := txn.Set(relationEdgeKey(e.Relation, src, dest, int64(ordinal)), []byte{}); err != nil {
				return err
			}
			attrRecords, err := encodeAttrs(rt, e.Attrs)
			if err != nil {
				return err
			}
			data, err := json.Marshal(edgeRecord{Relation: e.Relation, Src: src, Dest: dest, Attrs: attrRecords})
			if err != nil {
				return fmt.Errorf("persist: encode edge %d: %w", e.ID, err)
			}
			if err := txn.Set(edgeAttrsKey(int64(ordinal)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load rebuilds a Graph from a BadgerDB written by Save. The graph is
// held under the ResizeOnly sync policy for the duration of the load and
// a final forced ApplyAllPending commits every write in one flush. Node
// and edge ids are recreated in ascending compacted order, so the
// rebuilt graph's dense ids exactly match the ids Save recorded.
func Load(rt *runtime.Runtime, cfg store.Config, opts Options) (*store.Graph, error) {
	db, err := open(opts)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	g := store.New(rt, cfg)
	g.SetSyncPolicy(store.ResizeOnly)

	err = db.View(func(txn *badger.Txn) error {
		nodeIDs, err := loadNodes(txn, g, rt)
		if err != nil {
			return err
		}
		return loadEdges(txn, g, rt, nodeIDs)
	})
	if err != nil {
		return nil, err
	}

	if err := g.ApplyAllPending(true); err != nil {
		return nil, fmt.Errorf("persist: final flush after load: %w", err)
	}
	g.SetSyncPolicy(store.FlushResize)
	return g, nil
}

// loadNodes recreates every node record in ascending compacted-id order,
// returning the fresh NodeID assigned for each on-disk compacted id.
func loadNodes(txn *badger.Txn, g *store.Graph, rt *runtime.Runtime) (map[int64]store.NodeID, error) {
	type entry struct {
		compacted int64
		rec       nodeRecord
	}
	var entries []entry

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte{prefixNodeAttrs}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		compacted := int64(binary.BigEndian.Uint64(key[1:]))
		var rec nodeRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return nil, fmt.Errorf("persist: decode node %d: %w", compacted, err)
		}
		entries = append(entries, entry{compacted: compacted, rec: rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].compacted < entries[j].compacted })

	ids := make(map[int64]store.NodeID, len(entries))
	for _, e := range entries {
		n, err := g.CreateNode(e.rec.Label)
		if err != nil {
			return nil, fmt.Errorf("persist: recreate node %d: %w", e.compacted, err)
		}
		if err := applyAttrs(rt, func(id attrs.ID, v attrs.Value) error {
			return g.SetNodeAttrRaw(n.ID, id, v)
		}, e.rec.Attrs); err != nil {
			return nil, err
		}
		ids[e.compacted] = n.ID
	}
	return ids, nil
}

// loadEdges recreates every edge record in ascending ordinal order,
// translating the on-disk compacted src/dest node ids back to the fresh
// ids assigned by loadNodes.
func loadEdges(txn *badger.Txn, g *store.Graph, rt *runtime.Runtime, nodeIDs map[int64]store.NodeID) error {
	type entry struct {
		ordinal int64
		rec     edgeRecord
	}
	var entries []entry

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte{prefixEdgeAttrs}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		ordinal := int64(binary.BigEndian.Uint64(key[1:]))
		var rec edgeRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return fmt.Errorf("persist: decode edge %d: %w", ordinal, err)
		}
		entries = append(entries, entry{ordinal: ordinal, rec: rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ordinal < entries[j].ordinal })

	for _, e := range entries {
		src, ok := nodeIDs[e.rec.Src]
		if !ok {
			return fmt.Errorf("%w: edge %d references unknown node %d", errs.ErrInvalidArgument, e.ordinal, e.rec.Src)
		}
		dest, ok := nodeIDs[e.rec.Dest]
		if !ok {
			return fmt.Errorf("%w: edge %d references unknown node %d", errs.ErrInvalidArgument, e.ordinal, e.rec.Dest)
		}
		edge, err := g.CreateEdge(src, dest, e.rec.Relation)
		if err != nil {
			return fmt.Errorf("persist: recreate edge %d: %w", e.ordinal, err)
		}
		if err := applyAttrs(rt, func(id attrs.ID, v attrs.Value) error {
			return g.SetEdgeAttrRaw(edge.ID, id, v)
		}, e.rec.Attrs); err != nil {
			return err
		}
	}
	return nil
}
