package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/matrixgraph/internal/attrs"
	"github.com/orneryd/matrixgraph/internal/runtime"
	"github.com/orneryd/matrixgraph/internal/store"
)

func buildGraph(t *testing.T) *store.Graph {
	t.Helper()
	rt := runtime.New(runtime.DefaultConfig())
	g := store.New(rt, store.DefaultConfig())

	person := rt.Labels.IDFor("Person")
	city := rt.Labels.IDFor("City")
	visit := rt.Relations.IDFor("visit")

	alice, err := g.CreateNode(person)
	require.NoError(t, err)
	nameAttr := rt.Attrs.Intern("name")
	require.NoError(t, g.SetNodeAttr(alice.ID, nameAttr, attrs.StringValue("Alice")))

	paris, err := g.CreateNode(city)
	require.NoError(t, err)
	popAttr := rt.Attrs.Intern("population")
	require.NoError(t, g.SetNodeAttr(paris.ID, popAttr, attrs.IntValue(2_100_000)))

	edge, err := g.CreateEdge(alice.ID, paris.ID, visit)
	require.NoError(t, err)
	yearAttr := rt.Attrs.Intern("year")
	require.NoError(t, g.SetEdgeAttr(edge.ID, yearAttr, attrs.IntValue(2024)))

	return g
}

func TestSaveLoadRoundTripsNodesEdgesAndAttrs(t *testing.T) {
	g := buildGraph(t)
	dir := t.TempDir()

	require.NoError(t, Save(g, Options{DataDir: dir}))

	loaded, err := Load(runtime.New(runtime.DefaultConfig()), store.DefaultConfig(), Options{DataDir: dir})
	require.NoError(t, err)

	wantNodes := g.AllNodes()
	gotNodes := loaded.AllNodes()
	require.Len(t, gotNodes, len(wantNodes))
	for i := range wantNodes {
		assert.Equal(t, wantNodes[i].ID, gotNodes[i].ID)
		assert.Equal(t, wantNodes[i].Label, gotNodes[i].Label)
	}

	wantEdges := g.AllEdges()
	gotEdges := loaded.AllEdges()
	require.Len(t, gotEdges, len(wantEdges))
	for i := range wantEdges {
		assert.Equal(t, wantEdges[i].Src, gotEdges[i].Src)
		assert.Equal(t, wantEdges[i].Dest, gotEdges[i].Dest)
		assert.Equal(t, wantEdges[i].Relation, gotEdges[i].Relation)
	}

	loadedRt := loaded.Runtime()
	nameAttr, ok := loadedRt.Attrs.Lookup("name")
	require.True(t, ok)
	v, ok := gotNodes[0].Attrs.Get(nameAttr)
	require.True(t, ok)
	assert.Equal(t, "Alice", v.Str)

	yearAttr, ok := loadedRt.Attrs.Lookup("year")
	require.True(t, ok)
	v, ok = gotEdges[0].Attrs.Get(yearAttr)
	require.True(t, ok)
	assert.Equal(t, int64(2024), v.Int)
}

func TestSaveFlushesPendingBeforeWriting(t *testing.T) {
	rt := runtime.New(runtime.DefaultConfig())
	g := store.New(rt, store.DefaultConfig())
	label := rt.Labels.IDFor("Thing")

	for i := 0; i < 10; i++ {
		_, err := g.CreateNode(label)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	require.NoError(t, Save(g, Options{DataDir: dir}))

	loaded, err := Load(runtime.New(runtime.DefaultConfig()), store.DefaultConfig(), Options{DataDir: dir})
	require.NoError(t, err)
	assert.Len(t, loaded.AllNodes(), 10)
}
