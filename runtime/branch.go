package runtime

import (
	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

// evaluate picks the branch target for a step result. The result is
// normalized first, so a missing or malformed status routes like a failure,
// and only the status reaches the condition.
func (v *Vertex) evaluate(result *types.StepResult) string {
	status := result.Normalize().Status
	if v.cond(status) {
		return v.OnMatch
	}
	return v.OnNoMatch
}

// Evaluate returns the node the given branch routes result to.
func (g *Graph) Evaluate(branchID string, result *types.StepResult) (string, error) {
	v, exists := g.vertices[branchID]
	if !exists {
		return "", errors.NotFoundf("branch %q", branchID)
	}
	if v.Kind != types.BranchNode {
		return "", errors.NotValidf("node %q is a %s, branch", branchID, v.Kind)
	}
	return v.evaluate(result), nil
}
