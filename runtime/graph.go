package runtime

import (
	"sort"

	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

const (
	DefaultSucceedID = "SucceedState"
	DefaultFailID    = "FailState"
	DefaultErrorTag  = "Request Failed"

	branchPrefix = "ChoiceAfter"
)

// Vertex is one node of a workflow graph. Which fields are meaningful
// depends on Kind.
type Vertex struct {
	ID   string
	Kind types.NodeKind

	// step
	Next string
	step types.Step

	// branch
	OnMatch   string
	OnNoMatch string
	cond      types.Condition

	// terminal
	Terminal types.TerminalKind
	ErrorTag string
}

func (v *Vertex) edges() []string {
	switch v.Kind {
	case types.StepNode:
		return []string{v.Next}
	case types.BranchNode:
		return []string{v.OnMatch, v.OnNoMatch}
	}
	return nil
}

/**
 * GraphSpec collects node definitions keyed by id. Nodes may be added in any
 * order; references are only resolved by Compile.
 */
type GraphSpec struct {
	name     string
	entry    string
	order    []string
	vertices map[string]*Vertex
}

func NewGraphSpec(name string) *GraphSpec {
	return &GraphSpec{name: name, vertices: make(map[string]*Vertex)}
}

func (gs *GraphSpec) add(v *Vertex) error {
	if v.ID == "" {
		return types.NewGraphValidationErrorf(v.ID, types.ErrInvalidEdge, "empty node id")
	}
	if _, exists := gs.vertices[v.ID]; exists {
		return types.NewGraphValidationError(v.ID, types.ErrDuplicateNode)
	}
	gs.vertices[v.ID] = v
	gs.order = append(gs.order, v.ID)
	return nil
}

func (gs *GraphSpec) AddStep(id string, step types.Step, next string) error {
	if step == nil {
		return types.NewGraphValidationErrorf(id, types.ErrInvalidEdge, "step executor is nil")
	}
	return gs.add(&Vertex{ID: id, Kind: types.StepNode, step: step, Next: next})
}

// AddBranch adds a decision node; a nil cond routes failed results to onMatch.
func (gs *GraphSpec) AddBranch(id string, cond types.Condition, onMatch, onNoMatch string) error {
	if cond == nil {
		cond = types.StatusIs(types.StepFailed)
	}
	return gs.add(&Vertex{ID: id, Kind: types.BranchNode, cond: cond, OnMatch: onMatch, OnNoMatch: onNoMatch})
}

func (gs *GraphSpec) AddTerminal(id string, kind types.TerminalKind, errorTag string) error {
	if kind != types.TerminalSucceeded && kind != types.TerminalFailed {
		return types.NewGraphValidationErrorf(id, types.ErrMissingTerminal, "unknown terminal kind %q", kind)
	}
	if kind == types.TerminalSucceeded {
		errorTag = ""
	}
	return gs.add(&Vertex{ID: id, Kind: types.TerminalNode, Terminal: kind, ErrorTag: errorTag})
}

// SetEntry picks the entry node. Without it the first added step is used.
func (gs *GraphSpec) SetEntry(id string) {
	gs.entry = id
}

// Compile validates the definition and freezes it into a Graph.
func (gs *GraphSpec) Compile() (*Graph, error) {
	entry := gs.entry
	if entry == "" {
		for _, id := range gs.order {
			if gs.vertices[id].Kind == types.StepNode {
				entry = id
				break
			}
		}
	}

	if err := validate(gs.order, gs.vertices, entry); err != nil {
		return nil, errors.Trace(err)
	}

	g := &Graph{
		name:     gs.name,
		entry:    entry,
		order:    append([]string(nil), gs.order...),
		vertices: make(map[string]*Vertex, len(gs.vertices)),
	}
	for id, v := range gs.vertices {
		copied := *v
		g.vertices[id] = &copied
		if v.Kind == types.StepNode {
			g.steps++
		}
	}
	return g, nil
}

/**
 * Graph is an immutable, validated workflow. It holds no execution state
 * and is safe to share across concurrent executions.
 */
type Graph struct {
	name     string
	entry    string
	order    []string
	steps    int
	vertices map[string]*Vertex
}

func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) Entry() string {
	return g.entry
}

// Node returns a copy of the node definition.
func (g *Graph) Node(id string) (Vertex, bool) {
	v, exists := g.vertices[id]
	if !exists {
		return Vertex{}, false
	}
	return *v, true
}

// NodeIDs returns ids in definition order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

func (g *Graph) StepCount() int {
	return g.steps
}

// MaxHops bounds how many step-to-step hops any execution can take before
// it lands on a terminal. Branch nodes do not count as a hop.
func (g *Graph) MaxHops() int {
	return g.steps + 1
}

// Terminals returns the terminal ids of the given kind, sorted.
func (g *Graph) Terminals(kind types.TerminalKind) []string {
	ids := make([]string, 0, 2)
	for id, v := range g.vertices {
		if v.Kind == types.TerminalNode && v.Terminal == kind {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type buildOptions struct {
	succeedID string
	failID    string
	errorTag  string
}

type GraphOption func(*buildOptions)

func WithTerminalIDs(succeedID, failID string) GraphOption {
	return func(o *buildOptions) {
		o.succeedID = succeedID
		o.failID = failID
	}
}

func WithErrorTag(tag string) GraphOption {
	return func(o *buildOptions) {
		o.errorTag = tag
	}
}

func BranchID(stepID string) string {
	return branchPrefix + stepID
}

/**
 * Build turns an ordered list of steps into a pipeline graph:
 * every step is followed by a branch that sends a failed result to the Failed
 * terminal (or the step's OnFailure node) and anything else to the next step,
 * the last step continuing to the Succeeded terminal.
 */
func Build(name string, defs []types.StepDefinition, opts ...GraphOption) (*Graph, error) {
	o := &buildOptions{succeedID: DefaultSucceedID, failID: DefaultFailID, errorTag: DefaultErrorTag}
	for _, opt := range opts {
		opt(o)
	}
	if len(defs) == 0 {
		return nil, types.NewGraphValidationErrorf(name, types.ErrInvalidEntry, "no steps")
	}

	gs := NewGraphSpec(name)
	for i, def := range defs {
		if err := gs.AddStep(def.ID, def.Step, BranchID(def.ID)); err != nil {
			return nil, errors.Trace(err)
		}

		next := o.succeedID
		if i+1 < len(defs) {
			next = defs[i+1].ID
		}
		onFailure := def.OnFailure
		if onFailure == "" {
			onFailure = o.failID
		}
		if err := gs.AddBranch(BranchID(def.ID), types.StatusIs(types.StepFailed), onFailure, next); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := gs.AddTerminal(o.succeedID, types.TerminalSucceeded, ""); err != nil {
		return nil, errors.Trace(err)
	}
	if err := gs.AddTerminal(o.failID, types.TerminalFailed, o.errorTag); err != nil {
		return nil, errors.Trace(err)
	}
	gs.SetEntry(defs[0].ID)

	g, err := gs.Compile()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return g, nil
}
