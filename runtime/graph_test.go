package runtime

import (
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/stepflow/types"
)

func dumbStep() types.Step {
	return types.StepFunc(func(ctx types.Context, input types.Data) *types.StepResult {
		return types.Succeed(input)
	})
}

func assertReason(t *testing.T, err error, reason error, nodeID string) {
	t.Helper()
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, reason), "want %v, got %v", reason, err)

	var gve *types.GraphValidationError
	require.True(t, errors.As(err, &gve), "%v", err)
	if nodeID != "" {
		assert.Equal(t, nodeID, gve.NodeID)
	}
}

func TestBuild_Pipeline(t *testing.T) {
	g := newOrderPipeline().graph(t)

	assert.Equal(t, "orders", g.Name())
	assert.Equal(t, "ResolveIdentity", g.Entry())
	assert.Equal(t, 3, g.StepCount())
	assert.Equal(t, []string{
		"ResolveIdentity", "ChoiceAfterResolveIdentity",
		"FetchRecords", "ChoiceAfterFetchRecords",
		"AggregateResult", "ChoiceAfterAggregateResult",
		DefaultSucceedID, DefaultFailID,
	}, g.NodeIDs())
	assert.Equal(t, []string{DefaultSucceedID}, g.Terminals(types.TerminalSucceeded))
	assert.Equal(t, []string{DefaultFailID}, g.Terminals(types.TerminalFailed))

	v, exists := g.Node(BranchID("FetchRecords"))
	require.True(t, exists)
	assert.Equal(t, types.BranchNode, v.Kind)
	assert.Equal(t, DefaultFailID, v.OnMatch)
	assert.Equal(t, "AggregateResult", v.OnNoMatch)

	v, _ = g.Node(BranchID("AggregateResult"))
	assert.Equal(t, DefaultSucceedID, v.OnNoMatch)

	v, _ = g.Node(DefaultFailID)
	assert.Equal(t, DefaultErrorTag, v.ErrorTag)

	_, exists = g.Node("nope")
	assert.False(t, exists)
}

func TestBuild_Options(t *testing.T) {
	g, err := Build("opts", []types.StepDefinition{{ID: "only", Step: dumbStep()}},
		WithTerminalIDs("Done", "Broken"), WithErrorTag("Lookup Failed"))
	require.Nil(t, err)
	assert.Equal(t, []string{"Done"}, g.Terminals(types.TerminalSucceeded))
	v, _ := g.Node("Broken")
	assert.Equal(t, "Lookup Failed", v.ErrorTag)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build("empty", nil)
	assertReason(t, err, types.ErrInvalidEntry, "")

	_, err = Build("dup", []types.StepDefinition{
		{ID: "a", Step: dumbStep()},
		{ID: "a", Step: dumbStep()},
	})
	assertReason(t, err, types.ErrDuplicateNode, "a")

	// a step may not take a terminal's id
	_, err = Build("clash", []types.StepDefinition{{ID: DefaultSucceedID, Step: dumbStep()}})
	assertReason(t, err, types.ErrDuplicateNode, DefaultSucceedID)

	_, err = Build("nil", []types.StepDefinition{{ID: "a"}})
	assertReason(t, err, types.ErrInvalidEdge, "a")

	_, err = Build("unknown", []types.StepDefinition{{ID: "a", Step: dumbStep(), OnFailure: "rescue"}})
	assertReason(t, err, types.ErrUnknownNode, BranchID("a"))

	_, err = Build("backwards", []types.StepDefinition{
		{ID: "a", Step: dumbStep()},
		{ID: "b", Step: dumbStep(), OnFailure: "a"},
	})
	assertReason(t, err, types.ErrCyclicReference, "")
}

func TestGraphSpec(t *testing.T) {
	gs := NewGraphSpec("explicit")
	// definition order does not matter
	assert.Nil(t, gs.AddTerminal("ok", types.TerminalSucceeded, "ignored"))
	assert.Nil(t, gs.AddBranch("check", nil, "ko", "ok"))
	assert.Nil(t, gs.AddTerminal("ko", types.TerminalFailed, "Bad"))
	assert.Nil(t, gs.AddStep("work", dumbStep(), "check"))

	g, err := gs.Compile()
	require.Nil(t, err)
	assert.Equal(t, "work", g.Entry())
	v, _ := g.Node("ok")
	assert.Empty(t, v.ErrorTag)

	// the nil condition routes failures to onMatch
	next, err := g.Evaluate("check", types.Failf("boom"))
	assert.Nil(t, err)
	assert.Equal(t, "ko", next)

	assert.NotNil(t, gs.AddStep("work", dumbStep(), "check"))
	assert.NotNil(t, gs.AddTerminal("weird", types.TerminalKind("MAYBE"), ""))
}

func TestGraphSpec_Errors(t *testing.T) {
	type build func(gs *GraphSpec)
	terminals := func(gs *GraphSpec) {
		gs.AddTerminal("ok", types.TerminalSucceeded, "")
		gs.AddTerminal("ko", types.TerminalFailed, "")
	}

	cases := []struct {
		name   string
		build  build
		reason error
		nodeID string
	}{
		{"cycle", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "s2")
			gs.AddStep("s2", dumbStep(), "b2")
			gs.AddBranch("b2", nil, "ko", "s1")
		}, types.ErrCyclicReference, ""},
		{"dangling", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "")
		}, types.ErrTerminalUnreachable, "b1"},
		{"unknown", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "s9")
		}, types.ErrUnknownNode, "b1"},
		{"step to terminal", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "ok")
		}, types.ErrInvalidEdge, "s1"},
		{"branch to branch", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "b2")
			gs.AddBranch("b2", nil, "ko", "ok")
		}, types.ErrInvalidEdge, "b1"},
		{"no failed terminal", func(gs *GraphSpec) {
			gs.AddTerminal("ok", types.TerminalSucceeded, "")
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ok", "ok")
		}, types.ErrMissingTerminal, ""},
		{"unreachable", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "ok")
			gs.AddStep("island", dumbStep(), "b1")
		}, types.ErrUnreachableNode, "island"},
		{"branch entry", func(gs *GraphSpec) {
			terminals(gs)
			gs.AddStep("s1", dumbStep(), "b1")
			gs.AddBranch("b1", nil, "ko", "ok")
			gs.SetEntry("b1")
		}, types.ErrInvalidEntry, "b1"},
		{"empty", func(gs *GraphSpec) {}, types.ErrInvalidEntry, ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gs := NewGraphSpec(c.name)
			c.build(gs)
			g, err := gs.Compile()
			assert.Nil(t, g)
			assertReason(t, err, c.reason, c.nodeID)
		})
	}
}

// walkPaths calls fn with the node ids of every path from the entry to a terminal.
func walkPaths(g *Graph, fn func(path []string)) {
	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		path = append(path, id)
		v := g.vertices[id]
		if v.Kind == types.TerminalNode {
			fn(append([]string(nil), path...))
			return
		}
		for _, to := range v.edges() {
			walk(to, path)
		}
	}
	walk(g.entry, nil)
}

func TestBuild_EveryPathTerminates(t *testing.T) {
	for n := 1; n <= 6; n++ {
		defs := make([]types.StepDefinition, 0, n)
		for i := 0; i < n; i++ {
			defs = append(defs, types.StepDefinition{ID: fmt.Sprintf("step%d", i), Step: dumbStep()})
		}
		g, err := Build(fmt.Sprintf("pipeline%d", n), defs)
		require.Nil(t, err)
		assert.Equal(t, n+1, g.MaxHops())

		reached := make(map[string]bool)
		paths := 0
		walkPaths(g, func(path []string) {
			paths++
			steps := 0
			for _, id := range path {
				reached[id] = true
				if g.vertices[id].Kind == types.StepNode {
					steps++
				}
			}
			// hops between steps plus the final hop into the terminal
			assert.LessOrEqual(t, steps, g.MaxHops()-1)
			assert.LessOrEqual(t, len(path), 2*g.MaxHops()-1)
		})
		// one way out after each step, plus the success path
		assert.Equal(t, n+1, paths)
		assert.Len(t, reached, len(g.NodeIDs()))
	}
}
