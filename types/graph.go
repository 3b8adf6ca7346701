package types

type NodeKind int

const (
	StepNode     NodeKind = 1
	BranchNode   NodeKind = 2
	TerminalNode NodeKind = 3
)

func (k NodeKind) String() string {
	switch k {
	case StepNode:
		return "step"
	case BranchNode:
		return "branch"
	case TerminalNode:
		return "terminal"
	}
	return "unknown"
}

type TerminalKind string

const (
	TerminalSucceeded TerminalKind = "SUCCEEDED"
	TerminalFailed    TerminalKind = "FAILED"
)

// Condition is a branch predicate. It only ever sees a normalized status,
// never the payload.
type Condition func(status StepStatus) bool

func StatusIs(status StepStatus) Condition {
	return func(s StepStatus) bool {
		return s == status
	}
}

// StepDefinition is one entry of the ordered pipeline handed to Build.
type StepDefinition struct {
	ID   string
	Step Step
	// OnFailure overrides where a failed result routes; empty means the
	// graph's Failed terminal.
	OnFailure string
}
