package conversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertAdjacency checks that every edge joins an output format to an equal
// input format, and that every such pair is joined.
func assertAdjacency(t *testing.T, g *graph) {
	t.Helper()
	for _, n := range g.nodes {
		for _, next := range n.edges {
			assert.Equal(t, n.output(), next.input(), "edge %s -> %s", Describe(n.converter), Describe(next.converter))
		}
		want := 0
		for _, other := range g.nodes {
			if other.input() == n.output() {
				want++
			}
		}
		assert.Len(t, n.edges, want, "edges of %s", Describe(n.converter))
	}
}

func TestGraph_AddBackfillsBothDirections(t *testing.T) {
	g := newGraph()
	bc := g.add(tracing(nil, "b", "c", Good))
	ab := g.add(tracing(nil, "a", "b", Good))
	cd := g.add(tracing(nil, "c", "d", Bad))

	require.Len(t, ab.edges, 1)
	assert.Same(t, bc, ab.edges[0])
	require.Len(t, bc.edges, 1)
	assert.Same(t, cd, bc.edges[0])
	assert.Empty(t, cd.edges)

	assert.Equal(t, []*node{ab}, g.understands["a"])
	assert.Equal(t, []*node{cd}, g.supplies["d"])
	assertAdjacency(t, g)
}

func TestGraph_OrderIndependent(t *testing.T) {
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"b", "d"}, {"d", "d"}}

	forward := newGraph()
	for _, e := range edges {
		forward.add(tracing(nil, e[0], e[1], Good))
	}
	backward := newGraph()
	for i := len(edges) - 1; i >= 0; i-- {
		backward.add(tracing(nil, edges[i][0], edges[i][1], Good))
	}

	assertAdjacency(t, forward)
	assertAdjacency(t, backward)

	count := func(g *graph) int {
		n := 0
		for _, nd := range g.nodes {
			n += len(nd.edges)
		}
		return n
	}
	assert.Equal(t, count(forward), count(backward))
}

func TestGraph_DuplicatesAreParallel(t *testing.T) {
	g := newGraph()
	first := g.add(tracing(nil, "a", "b", Good))
	second := g.add(tracing(nil, "a", "b", Bad))
	next := g.add(tracing(nil, "b", "c", Good))

	assert.Len(t, g.understands["a"], 2)
	assert.Equal(t, []*node{next}, first.edges)
	assert.Equal(t, []*node{next}, second.edges)
}

func TestGraph_Remove(t *testing.T) {
	g := newGraph()
	ab := tracing(nil, "a", "b", Good)
	bc := tracing(nil, "b", "c", Good)
	g.add(ab)
	g.add(bc)
	g.add(ab)

	assert.Equal(t, 0, g.remove(tracing(nil, "a", "b", Good)), "distinct converter with same formats")
	assert.Equal(t, 2, g.remove(ab))

	assert.Len(t, g.nodes, 1)
	assert.NotContains(t, g.understands, "a")
	assert.NotContains(t, g.supplies, "b")
	assertAdjacency(t, g)

	assert.Equal(t, []string{"b", "c"}, g.formats())
}
