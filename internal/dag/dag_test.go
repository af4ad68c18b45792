package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Empty(t, g.order)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("a")
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.Empty(t, nodeA.deps)
	assert.Empty(t, nodeA.dependents)

	g.AddNode("a") // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Equal(t, []string{"a", "b"}, g.order)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		require.Len(t, g.nodes["b"].deps, 1)
		assert.Equal(t, "a", g.nodes["b"].deps[0].id)
		require.Len(t, g.nodes["a"].dependents, 1)
		assert.Equal(t, "b", g.nodes["a"].dependents[0].id)
	})

	t.Run("duplicate edge is ignored", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "b"))

		assert.Len(t, g.nodes["a"].dependents, 1)
		assert.Len(t, g.nodes["b"].deps, 1)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.EqualError(t, err, "source node not found: dne")

		err = g.AddEdge("a", "dne")
		assert.EqualError(t, err, "destination node not found: dne")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("no cycle", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "d"))
		require.NoError(t, g.AddEdge("c", "d"))

		assert.NoError(t, g.DetectCycles())
	})

	t.Run("simple cycle", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		err := g.DetectCycles()
		assert.EqualError(t, err, "cycle detected involving node 'a'")
	})

	t.Run("self loop", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		require.NoError(t, g.AddEdge("a", "a"))

		assert.EqualError(t, g.DetectCycles(), "cycle detected involving node 'a'")
	})

	t.Run("cycle behind acyclic prefix", func(t *testing.T) {
		g := New()
		for _, id := range []string{"root", "x", "y", "z"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("root", "x"))
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "x"))

		assert.EqualError(t, g.DetectCycles(), "cycle detected involving node 'x'")
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("respects dependencies", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		for _, id := range []string{"d", "c", "b", "a"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "d"))

		// --- Act ---
		order, err := g.TopologicalOrder(nil)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	})

	t.Run("hint breaks ties among ready nodes", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		for _, id := range []string{"p", "q", "r"} {
			g.AddNode(id)
		}
		hints := map[string]float64{"p": 2, "q": 1, "r": 1}

		// --- Act ---
		order, err := g.TopologicalOrder(func(id string) float64 { return hints[id] })

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"q", "r", "p"}, order, "equal hints keep insertion order")
	})

	t.Run("released nodes are sorted by hint", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		for _, id := range []string{"src", "late", "early"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("src", "late"))
		require.NoError(t, g.AddEdge("src", "early"))
		hints := map[string]float64{"late": 5, "early": -1}

		// --- Act ---
		order, err := g.TopologicalOrder(func(id string) float64 { return hints[id] })

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"src", "early", "late"}, order)
	})

	t.Run("hint never overrides dependencies", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		hints := map[string]float64{"a": 10, "b": -10}

		// --- Act ---
		order, err := g.TopologicalOrder(func(id string) float64 { return hints[id] })

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("cycle leaves nodes unscheduled", func(t *testing.T) {
		// --- Arrange ---
		g := New()
		for _, id := range []string{"a", "b", "c"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "b"))

		// --- Act ---
		order, err := g.TopologicalOrder(nil)

		// --- Assert ---
		var incomplete *IncompleteOrderError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, []string{"a"}, order)
		assert.Equal(t, []string{"b", "c"}, incomplete.Remaining)
	})
}
