package matrixgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/matrixgraph/internal/algebra"
)

const (
	labelPerson = 0
	labelCity   = 1

	relFriend = 0
	relVisit  = 1
	relWar    = 2
)

// buildFriendVisitWarGraph ingests a fixture graph through the public API
// and returns it plus the created node ids in creation order
// (p0, p1, c2, c3).
func buildFriendVisitWarGraph(t *testing.T) (*Graph, []NodeID) {
	t.Helper()
	g := New(nil)

	result, err := g.Ingest(MutationBatch{
		CreateNodes: []NodeCreate{
			{Label: labelPerson},
			{Label: labelPerson},
			{Label: labelCity},
			{Label: labelCity},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.CreatedNodes, 4)
	ids := result.CreatedNodes
	p0, p1, c2, c3 := ids[0], ids[1], ids[2], ids[3]

	_, err = g.Ingest(MutationBatch{
		CreateEdges: []EdgeCreate{
			{Src: p0, Dest: p1, Relation: relFriend},
			{Src: p1, Dest: p0, Relation: relFriend},
			{Src: p0, Dest: c2, Relation: relVisit},
			{Src: p0, Dest: c3, Relation: relVisit},
			{Src: p1, Dest: c2, Relation: relVisit},
			{Src: c2, Dest: c3, Relation: relWar},
			{Src: c3, Dest: c2, Relation: relWar},
		},
	})
	require.NoError(t, err)
	return g, ids
}

func TestOpenWithNilConfigUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	g, err := Open(tmpDir, nil)
	require.NoError(t, err)
	require.NotNil(t, g)
	defer g.Close()

	assert.Equal(t, tmpDir, g.cfg.DataDir)
	assert.NotNil(t, g.rt)
	assert.NotNil(t, g.Store())
}

func TestIngestThenReachableReflectsEdgeDirection(t *testing.T) {
	g, ids := buildFriendVisitWarGraph(t)
	defer g.Close()
	p0, c3, c2 := ids[0], ids[3], ids[2]

	assert.True(t, g.Reachable(p0, c3))
	assert.False(t, g.Reachable(c2, p0))
}

func TestIngestThenSaveOpenRoundTrips(t *testing.T) {
	tmpDir := t.TempDir()
	g := New(DefaultConfig())
	g.cfg.DataDir = tmpDir

	result, err := g.Ingest(MutationBatch{
		CreateNodes: []NodeCreate{{Label: labelPerson}, {Label: labelCity}},
	})
	require.NoError(t, err)
	_, err = g.Ingest(MutationBatch{
		CreateEdges: []EdgeCreate{
			{Src: result.CreatedNodes[0], Dest: result.CreatedNodes[1], Relation: relVisit},
		},
	})
	require.NoError(t, err)
	require.NoError(t, g.Save())
	require.NoError(t, g.Close())

	reopened, err := Open(tmpDir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.Store().Stats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestEvaluateWithNoIntermediateReturns(t *testing.T) {
	g, ids := buildFriendVisitWarGraph(t)
	defer g.Close()
	p0, p1, c2, c3 := ids[0], ids[1], ids[2], ids[3]

	pattern := &algebra.Pattern{
		Nodes: []algebra.PatternNode{
			{Name: "p", Label: labelPerson},
			{Name: "f", Label: labelPerson},
			{Name: "c", Label: labelCity},
			{Name: "e", Label: labelCity},
		},
		Edges: []algebra.PatternEdge{
			{Name: "r1", Src: "p", Dest: "f", Relation: relFriend, Dir: algebra.DirForward},
			{Name: "r2", Src: "f", Dest: "c", Relation: relVisit, Dir: algebra.DirForward},
			{Name: "r3", Src: "c", Dest: "e", Relation: relWar, Dir: algebra.DirForward},
		},
		Returns: map[string]bool{"p": true, "e": true},
	}

	results, err := g.Evaluate(pattern, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := map[Tuple]bool{
		{Src: p1, Dest: c2}: true,
		{Src: p0, Dest: c3}: true,
		{Src: p1, Dest: c3}: true,
	}
	got := map[Tuple]bool{}
	for _, tup := range results[0] {
		got[tup] = true
	}
	assert.Equal(t, want, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}
