package runtime

import (
	"github.com/warriorguo/stepflow/types"
)

const (
	unvisited = 0
	visiting  = 1
	done      = 2
)

func validate(order []string, vertices map[string]*Vertex, entry string) error {
	if len(vertices) == 0 {
		return types.NewGraphValidationErrorf(entry, types.ErrInvalidEntry, "graph is empty")
	}
	if v, exists := vertices[entry]; !exists || v.Kind != types.StepNode {
		return types.NewGraphValidationErrorf(entry, types.ErrInvalidEntry, "entry must be a step node")
	}
	if err := checkEdges(order, vertices); err != nil {
		return err
	}
	if err := checkTerminals(order, vertices); err != nil {
		return err
	}
	if err := checkAcyclic(order, vertices); err != nil {
		return err
	}
	return checkReachable(order, vertices, entry)
}

func checkEdges(order []string, vertices map[string]*Vertex) error {
	for _, id := range order {
		v := vertices[id]
		for _, to := range v.edges() {
			if to == "" {
				return types.NewGraphValidationErrorf(id, types.ErrTerminalUnreachable, "outgoing edge is not set")
			}
			target, exists := vertices[to]
			if !exists {
				return types.NewGraphValidationErrorf(id, types.ErrUnknownNode, "references %q", to)
			}
			switch v.Kind {
			case types.StepNode:
				if target.Kind != types.BranchNode {
					return types.NewGraphValidationErrorf(id, types.ErrInvalidEdge, "step must continue to a branch, %q is a %s", to, target.Kind)
				}
			case types.BranchNode:
				if target.Kind == types.BranchNode {
					return types.NewGraphValidationErrorf(id, types.ErrInvalidEdge, "branch can not route to branch %q", to)
				}
			}
		}
	}
	return nil
}

func checkTerminals(order []string, vertices map[string]*Vertex) error {
	var hasSucceed, hasFail bool
	for _, id := range order {
		v := vertices[id]
		if v.Kind != types.TerminalNode {
			continue
		}
		switch v.Terminal {
		case types.TerminalSucceeded:
			hasSucceed = true
		case types.TerminalFailed:
			hasFail = true
		}
	}
	if !hasSucceed {
		return types.NewGraphValidationErrorf(string(types.TerminalSucceeded), types.ErrMissingTerminal, "no succeeded terminal")
	}
	if !hasFail {
		return types.NewGraphValidationErrorf(string(types.TerminalFailed), types.ErrMissingTerminal, "no failed terminal")
	}
	return nil
}

// checkAcyclic runs a depth first search over every node, so cycles in parts
// of the graph the entry can not reach are reported too.
func checkAcyclic(order []string, vertices map[string]*Vertex) error {
	state := make(map[string]int, len(vertices))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return types.NewGraphValidationError(id, types.ErrCyclicReference)
		case done:
			return nil
		}
		state[id] = visiting
		for _, to := range vertices[id].edges() {
			if err := visit(to); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func checkReachable(order []string, vertices map[string]*Vertex, entry string) error {
	reached := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range vertices[id].edges() {
			if !reached[to] {
				reached[to] = true
				queue = append(queue, to)
			}
		}
	}

	for _, id := range order {
		if !reached[id] {
			return types.NewGraphValidationError(id, types.ErrUnreachableNode)
		}
	}
	return nil
}
