package types

import (
	"context"
)

// StatusType is the lifecycle state of an execution started through the engine.
type StatusType int32

const (
	None      StatusType = 0
	Pending   StatusType = 1
	Running   StatusType = 2
	Succeeded StatusType = 3
	Failed    StatusType = 5
)

func (s StatusType) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return "NONE"
}

type Context interface {
	context.Context

	GetExecutionID() string
	GetCurrentNode() string
}
