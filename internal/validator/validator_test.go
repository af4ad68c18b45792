package validator_test

import (
	"testing"

	"github.com/specialistvlad/manimgraph/internal/catalog"
	"github.com/specialistvlad/manimgraph/internal/diag"
	"github.com/specialistvlad/manimgraph/internal/graph"
	"github.com/specialistvlad/manimgraph/internal/testutil"
	"github.com/specialistvlad/manimgraph/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	ctx, _ := testutil.Context(t)
	cat, err := catalog.Default(ctx)
	require.NoError(t, err)
	return validator.New(cat)
}

func messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func TestValidate_ValidChain(t *testing.T) {
	// --- Arrange ---
	v := newValidator(t)
	g := testutil.NewGraph().
		Node("c1", "Circle", "radius", "1").
		Node("f1", "FadeIn").
		Edge("c1", "shape", "f1", "mobject").
		Build()

	// --- Act ---
	ok, errs := v.Validate(g)

	// --- Assert ---
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidate_EmptyGraph(t *testing.T) {
	v := newValidator(t)

	ok, errs := v.Validate(&graph.Graph{})

	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "Graph is empty", errs[0].Error())
	assert.Empty(t, diag.NodeOf(errs[0]))
}

func TestValidate_NodeProblems(t *testing.T) {
	testCases := []struct {
		name    string
		graph   *graph.Graph
		wantMsg string
		wantID  string
	}{
		{
			name:    "unknown kind",
			graph:   testutil.NewGraph().Node("n1", "Blob").Build(),
			wantMsg: "Unknown node type: Blob",
			wantID:  "n1",
		},
		{
			name:    "missing required input",
			graph:   testutil.NewGraph().Node("f1", "FadeIn").Build(),
			wantMsg: "Missing required input: mobject",
			wantID:  "f1",
		},
		{
			name:    "sequence without animations",
			graph:   testutil.NewGraph().Node("s1", "Sequence").Build(),
			wantMsg: "Sequence node needs at least one animation connected",
			wantID:  "s1",
		},
		{
			name:    "group without objects",
			graph:   testutil.NewGraph().Node("g1", "Group").Build(),
			wantMsg: "Group node needs at least one object connected",
			wantID:  "g1",
		},
		{
			name:    "compose matrix without matrices",
			graph:   testutil.NewGraph().Node("m1", "ComposeMatrix").Build(),
			wantMsg: "ComposeMatrix node needs at least one matrix connected",
			wantID:  "m1",
		},
		{
			name:    "order outside its range",
			graph:   testutil.NewGraph().Node("c1", "Circle", "order", "500").Build(),
			wantMsg: "Invalid node parameters: parameter 'order': value 500 is above the maximum 100",
			wantID:  "c1",
		},
		{
			name:    "presentation not allowed",
			graph:   testutil.NewGraph().Node("c1", "Circle", "present", "explode").Build(),
			wantMsg: `Invalid node parameters: parameter 'present': value "explode" is not one of [none, show, create, fadein, write]`,
			wantID:  "c1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			v := newValidator(t)

			// --- Act ---
			ok, errs := v.Validate(tc.graph)

			// --- Assert ---
			assert.False(t, ok)
			require.Len(t, errs, 1, "got: %v", messages(errs))
			assert.Equal(t, tc.wantMsg, errs[0].Error())
			assert.Equal(t, tc.wantID, diag.NodeOf(errs[0]))
			assert.ErrorIs(t, errs[0], diag.ErrStructural)
		})
	}
}

func TestValidate_AllOptionalNeedsNothing(t *testing.T) {
	v := newValidator(t)
	g := testutil.NewGraph().Node("j1", "Junction").Node("r", "RIGHT").Build()

	ok, errs := v.Validate(g)

	assert.True(t, ok, "got: %v", messages(errs))
}

func TestValidate_OmittedHandleResolvesToFirstPort(t *testing.T) {
	v := newValidator(t)
	g := testutil.NewGraph().
		Node("c1", "Circle").
		Node("f1", "FadeIn").
		Edge("c1", "", "f1", "").
		Build()

	ok, errs := v.Validate(g)

	assert.True(t, ok, "got: %v", messages(errs))
}

func TestValidate_EdgeProblems(t *testing.T) {
	t.Run("missing endpoints are graph level", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("c1", "Circle").
			Edge("ghost", "shape", "c1", "param_color").
			Edge("c1", "shape", "phantom", "mobject").
			Build()

		// --- Act ---
		_, errs := v.Validate(g)

		// --- Assert ---
		assert.Equal(t, []string{
			"Edge references non-existent source node: ghost",
			"Edge references non-existent target node: phantom",
		}, messages(errs))
		for _, err := range errs {
			assert.Empty(t, diag.NodeOf(err))
		}
	})

	t.Run("type mismatch is attributed to target", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("n1", "Number").
			Node("f1", "FadeIn").
			Edge("n1", "value", "f1", "mobject").
			Build()

		// --- Act ---
		ok, errs := v.Validate(g)

		// --- Assert ---
		assert.False(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "Type mismatch: Number outputs 'Number' but FadeIn.mobject expects 'Mobject'", errs[0].Error())
		assert.Equal(t, "f1", diag.NodeOf(errs[0]))
		assert.ErrorIs(t, errs[0], diag.ErrTypeMismatch)
	})

	t.Run("second edge into one handle", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("a", "Circle").
			Node("b", "Square").
			Node("f1", "FadeIn").
			Edge("a", "shape", "f1", "mobject").
			Edge("b", "shape", "f1", "mobject").
			Build()

		// --- Act ---
		_, errs := v.Validate(g)

		// --- Assert ---
		require.Len(t, errs, 1)
		assert.Equal(t, "Input mobject has more than one connection", errs[0].Error())
		assert.Equal(t, "f1", diag.NodeOf(errs[0]))
	})

	t.Run("duplicate node ids", func(t *testing.T) {
		v := newValidator(t)
		g := testutil.NewGraph().Node("c1", "Circle").Node("c1", "Square").Build()

		_, errs := v.Validate(g)

		require.Len(t, errs, 1)
		assert.Equal(t, "Duplicate node id: c1", errs[0].Error())
	})
}

func TestValidate_JunctionIsTransparent(t *testing.T) {
	t.Run("compatible through junction", func(t *testing.T) {
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("c1", "Circle").
			Node("j1", "Junction").
			Node("j2", "Junction").
			Node("f1", "FadeIn").
			Edge("c1", "shape", "j1", "in").
			Edge("j1", "out", "j2", "in").
			Edge("j2", "out", "f1", "mobject").
			Build()

		ok, errs := v.Validate(g)

		assert.True(t, ok, "got: %v", messages(errs))
	})

	t.Run("mismatch reports the real producer", func(t *testing.T) {
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("n1", "Number").
			Node("j1", "Junction").
			Node("f1", "FadeIn").
			Edge("n1", "value", "j1", "in").
			Edge("j1", "out", "f1", "mobject").
			Build()

		_, errs := v.Validate(g)

		require.Len(t, errs, 1)
		assert.Equal(t, "Type mismatch: Number outputs 'Number' but FadeIn.mobject expects 'Mobject'", errs[0].Error())
	})
}

func TestValidate_UnfedJunction(t *testing.T) {
	t.Run("feeding a consumer is rejected", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("j1", "Junction").
			Node("j2", "Junction").
			Node("f1", "FadeIn").
			Edge("j1", "out", "j2", "in").
			Edge("j2", "out", "f1", "mobject").
			Build()

		// --- Act ---
		ok, errs := v.Validate(g)

		// --- Assert ---
		assert.False(t, ok)
		require.Len(t, errs, 1, "got: %v", messages(errs))
		assert.Equal(t, "Junction has no input connected", errs[0].Error())
		assert.Equal(t, "j1", diag.NodeOf(errs[0]))
		assert.ErrorIs(t, errs[0], diag.ErrStructural)
	})

	t.Run("dangling on its own is allowed", func(t *testing.T) {
		v := newValidator(t)
		g := testutil.NewGraph().Node("j1", "Junction").Build()

		ok, errs := v.Validate(g)

		assert.True(t, ok, "got: %v", messages(errs))
	})
}

func TestValidate_FrameNodesAreSkipped(t *testing.T) {
	v := newValidator(t)
	g := testutil.NewGraph().Node("frame", graph.FrameKind).Node("c1", "Circle").Build()

	ok, errs := v.Validate(g)

	assert.True(t, ok, "got: %v", messages(errs))
}

func TestValidate_CollectsExhaustively(t *testing.T) {
	// --- Arrange ---
	v := newValidator(t)
	g := testutil.NewGraph().
		Node("n1", "Blob").
		Node("f1", "FadeIn").
		Node("s1", "Sequence").
		Build()

	// --- Act ---
	_, errs := v.Validate(g)

	// --- Assert ---
	assert.Equal(t, []string{
		"Unknown node type: Blob",
		"Missing required input: mobject",
		"Sequence node needs at least one animation connected",
	}, messages(errs))
}

func TestValidate_Cycles(t *testing.T) {
	testCases := []struct {
		name  string
		graph *graph.Graph
	}{
		{
			name: "two node cycle",
			graph: testutil.NewGraph().
				Node("a", "Junction").
				Node("b", "Junction").
				Edge("a", "out", "b", "in").
				Edge("b", "out", "a", "in").
				Build(),
		},
		{
			name: "self loop",
			graph: testutil.NewGraph().
				Node("a", "Junction").
				Edge("a", "out", "a", "in").
				Build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			v := newValidator(t)

			// --- Act ---
			ok, errs := v.Validate(tc.graph)
			order, orderErr := v.ExecutionOrder(tc.graph)

			// --- Assert ---
			assert.False(t, ok)
			require.NotEmpty(t, errs)
			last := errs[len(errs)-1]
			assert.Equal(t, "Graph contains circular dependencies", last.Error())
			assert.ErrorIs(t, last, diag.ErrCycle)
			assert.True(t, v.HasCycle(tc.graph))
			assert.Nil(t, order)
			assert.ErrorIs(t, orderErr, diag.ErrCycle)
		})
	}
}

func TestExecutionOrder(t *testing.T) {
	t.Run("diamond respects dependencies", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("a", "Circle").
			Node("b", "FadeIn").
			Node("c", "Indicate").
			Node("d", "Group").
			Edge("a", "shape", "b", "mobject").
			Edge("a", "shape", "c", "mobject").
			Edge("b", "shape_out", "d", "obj1").
			Edge("c", "shape_out", "d", "obj2").
			Build()

		// --- Act ---
		order, err := v.ExecutionOrder(g)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	})

	t.Run("order hint breaks ties", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("p", "Circle", "order", "2").
			Node("q", "Circle", "order", "1").
			Node("r", "Circle").
			Node("s", "Circle", "order", "1").
			Build()

		// --- Act ---
		order, err := v.ExecutionOrder(g)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"r", "q", "s", "p"}, order)
	})

	t.Run("hint applies to newly ready nodes", func(t *testing.T) {
		// --- Arrange ---
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("c1", "Circle").
			Node("late", "FadeIn", "order", "3").
			Node("early", "FadeOut", "order", "-3").
			Edge("c1", "shape", "late", "mobject").
			Edge("c1", "shape", "early", "mobject").
			Build()

		// --- Act ---
		order, err := v.ExecutionOrder(g)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "early", "late"}, order)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		v := newValidator(t)
		g := testutil.NewGraph().
			Node("x", "Circle").Node("y", "Square").Node("z", "Dot").
			Build()

		first, err := v.ExecutionOrder(g)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := v.ExecutionOrder(g)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestOrderHint(t *testing.T) {
	assert.Equal(t, 2.5, validator.OrderHint(graph.Node{Data: map[string]string{"order": " 2.5 "}}))
	assert.Zero(t, validator.OrderHint(graph.Node{Data: map[string]string{"order": "soon"}}))
	assert.Zero(t, validator.OrderHint(graph.Node{}))
}
