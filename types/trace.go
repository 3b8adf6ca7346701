package types

import "time"

// TraceEntry records one visited node. Result is nil for branch and terminal nodes.
type TraceEntry struct {
	NodeID string      `json:"nodeId"`
	Kind   NodeKind    `json:"kind"`
	Result *StepResult `json:"result,omitempty"`
	Next   string      `json:"next,omitempty"`
	// Terminal and ErrorTag are only set on terminal entries.
	Terminal  TerminalKind `json:"terminal,omitempty"`
	ErrorTag  string       `json:"errorTag,omitempty"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
}

type ExecutionTrace struct {
	ExecutionID string       `json:"executionId"`
	Workflow    string       `json:"workflow"`
	Entries     []TraceEntry `json:"entries"`
}

// Steps returns the step entries in visiting order.
func (t *ExecutionTrace) Steps() []TraceEntry {
	if t == nil {
		return nil
	}
	steps := make([]TraceEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Kind == StepNode {
			steps = append(steps, e)
		}
	}
	return steps
}

// Visited returns the node ids in visiting order.
func (t *ExecutionTrace) Visited() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		ids = append(ids, e.NodeID)
	}
	return ids
}

// Outcome is the final state of one execution.
type Outcome struct {
	Kind        TerminalKind
	TerminalID  string
	ErrorTag    string
	Payload     Data
	ErrorDetail string
	// Cause is the in-process error of the last failed step, if any.
	Cause error
	Trace *ExecutionTrace
}

func (o *Outcome) Succeeded() bool {
	return o != nil && o.Kind == TerminalSucceeded
}
