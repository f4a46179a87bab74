package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/matrixgraph/internal/runtime"
	"github.com/orneryd/matrixgraph/internal/store"
)

const (
	labelPerson = 0
	labelCity   = 1

	relFriend = 0
	relVisit  = 1
	relWar    = 2
)

// buildFriendVisitWarGraph builds a fixture graph used for the
// reachability assertions below: Persons {p0,p1} and Cities {c2,c3}
// connected by friend/visit/war edges.
func buildFriendVisitWarGraph(t *testing.T) (*store.Graph, map[string]store.NodeID) {
	t.Helper()
	rt := runtime.New(runtime.DefaultConfig())
	g := store.New(rt, store.DefaultConfig())

	p0, err := g.CreateNode(labelPerson)
	require.NoError(t, err)
	p1, err := g.CreateNode(labelPerson)
	require.NoError(t, err)
	c2, err := g.CreateNode(labelCity)
	require.NoError(t, err)
	c3, err := g.CreateNode(labelCity)
	require.NoError(t, err)

	edges := [][3]store.NodeID{
		{p0.ID, p1.ID, relFriend},
		{p1.ID, p0.ID, relFriend},
		{p0.ID, c2.ID, relVisit},
		{p0.ID, c3.ID, relVisit},
		{p1.ID, c2.ID, relVisit},
		{c2.ID, c3.ID, relWar},
		{c3.ID, c2.ID, relWar},
	}
	for _, e := range edges {
		_, err := g.CreateEdge(e[0], e[1], int(e[2]))
		require.NoError(t, err)
	}

	return g, map[string]store.NodeID{"p0": p0.ID, "p1": p1.ID, "c2": c2.ID, "c3": c3.ID}
}

func TestReachabilityForwardPathFound(t *testing.T) {
	g, ids := buildFriendVisitWarGraph(t)
	assert.True(t, Reachable(g, ids["p0"], ids["c3"]))
}

func TestReachabilityAgainstEdgeDirectionFails(t *testing.T) {
	g, ids := buildFriendVisitWarGraph(t)
	assert.False(t, Reachable(g, ids["c2"], ids["p0"]))
}

func TestReachableSameNodeShortCircuits(t *testing.T) {
	g, ids := buildFriendVisitWarGraph(t)
	assert.True(t, Reachable(g, ids["p0"], ids["p0"]))
}

func TestReachableNoPath(t *testing.T) {
	rt := runtime.New(runtime.DefaultConfig())
	g := store.New(rt, store.DefaultConfig())
	a, _ := g.CreateNode(labelPerson)
	b, _ := g.CreateNode(labelPerson)
	assert.False(t, Reachable(g, a.ID, b.ID))
}
