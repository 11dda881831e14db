package conversion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestPath_PrefersCheaperChain(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "json", "xml", Good))
	g.add(tracing(nil, "xml", "pdf", Bad))
	g.add(tracing(nil, "json", "csv", Good))
	g.add(tracing(nil, "csv", "pdf", Good))

	chain, err := g.shortestPath("json", "pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"json>csv", "csv>pdf"}, stepNames(chain))
	assert.Equal(t, 2, chain.Weight)
	assert.Equal(t, []string{"json", "csv", "pdf"}, chain.Formats())
}

func TestShortestPath_QualityPreference(t *testing.T) {
	g := newGraph()
	bad := tracing(nil, "x", "y", Bad)
	good := tracing(nil, "x", "y", Good)
	g.add(bad)
	g.add(good)

	chain, err := g.shortestPath("x", "y")
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())
	assert.Same(t, good, chain.Steps[0])
	assert.Equal(t, 1, chain.Weight)
}

func TestShortestPath_AllGoodBeatsEqualLengthWithBad(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "m", Good))
	g.add(tracing(nil, "m", "z", Bad))
	g.add(tracing(nil, "a", "n", Good))
	g.add(tracing(nil, "n", "z", Good))

	chain, err := g.shortestPath("a", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>n", "n>z"}, stepNames(chain))
}

func TestShortestPath_FirstHopWeightCounts(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "m", Bad))
	g.add(tracing(nil, "m", "z", Good))
	g.add(tracing(nil, "a", "n", Good))
	g.add(tracing(nil, "n", "z", Good))

	chain, err := g.shortestPath("a", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>n", "n>z"}, stepNames(chain))
	assert.Equal(t, 2, chain.Weight)
}

func TestShortestPath_LongerGoodChainCanWin(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "b", Bad))
	g.add(tracing(nil, "b", "z", Bad))
	g.add(tracing(nil, "a", "c", Good))
	g.add(tracing(nil, "c", "d", Good))
	g.add(tracing(nil, "d", "z", Good))

	chain, err := g.shortestPath("a", "z")
	require.NoError(t, err)
	assert.Equal(t, 3, chain.Weight)
	assert.Equal(t, []string{"a>c", "c>d", "d>z"}, stepNames(chain))
}

func TestShortestPath_TiesBreakByRegistrationOrder(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "b", Good))
	g.add(tracing(nil, "b", "z", Good))
	g.add(tracing(nil, "a", "c", Good))
	g.add(tracing(nil, "c", "z", Good))

	for i := 0; i < 5; i++ {
		chain, err := g.shortestPath("a", "z")
		require.NoError(t, err)
		assert.Equal(t, []string{"a>b", "b>z"}, stepNames(chain))
	}
}

func TestShortestPath_Cycles(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "b", Good))
	g.add(tracing(nil, "b", "a", Good))
	g.add(tracing(nil, "b", "b", Good))
	g.add(tracing(nil, "b", "c", Bad))

	chain, err := g.shortestPath("a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a>b", "b>c"}, stepNames(chain))

	_, err = g.shortestPath("a", "a-prime")
	var noPath *NoPathError
	require.ErrorAs(t, err, &noPath)
}

func TestShortestPath_Failures(t *testing.T) {
	g := newGraph()
	g.add(tracing(nil, "a", "b", Good))
	g.add(tracing(nil, "c", "d", Good))

	t.Run("unknown source", func(t *testing.T) {
		_, err := g.shortestPath("z", "c")
		var unknown *UnknownFormatError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "z", unknown.Format)
		assert.True(t, errors.Is(err, ErrUnknownFormat))
		assert.True(t, errors.Is(err, ErrNoConversionPath))
		assert.False(t, errors.Is(err, ErrNoPath))
	})

	t.Run("target never produced", func(t *testing.T) {
		_, err := g.shortestPath("a", "q")
		var noPath *NoPathError
		require.ErrorAs(t, err, &noPath)
		assert.Equal(t, "a", noPath.From)
		assert.Equal(t, "q", noPath.To)
	})

	t.Run("target produced but disconnected", func(t *testing.T) {
		_, err := g.shortestPath("a", "d")
		assert.True(t, errors.Is(err, ErrNoPath))
		assert.True(t, errors.Is(err, ErrNoConversionPath))
		assert.False(t, errors.Is(err, ErrUnknownFormat))
	})
}
