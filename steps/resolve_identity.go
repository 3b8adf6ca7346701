package steps

import (
	"strings"

	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

const (
	ResolveIdentityID = "GetUsername"

	KeyIdentifier = "identifier"
	KeyEmail      = "email"
	KeyUsername   = "username"
)

var (
	_ types.Step = &ResolveIdentity{}
)

type customerReply struct {
	Customer []struct {
		Username string `json:"Username"`
	} `json:"Customer"`
}

// ResolveIdentity maps {identifier: <e-mail>} to {username: ...} through
// the GetCustomer action. "email" is accepted in place of "identifier".
type ResolveIdentity struct {
	client *Client
}

func NewResolveIdentity(client *Client) *ResolveIdentity {
	return &ResolveIdentity{client: client}
}

func (s *ResolveIdentity) Execute(ctx types.Context, input types.Data) *types.StepResult {
	identifier := lookupString(input, KeyIdentifier, KeyEmail)
	if identifier == "" {
		return types.Fail(types.NewStepExecutionErrorf(ResolveIdentityID, "missing %s", KeyIdentifier))
	}

	var reply customerReply
	filter := map[string]any{"Email": []string{identifier}}
	if err := s.client.Call(ctx, ActionGetCustomer, filter, &reply); err != nil {
		return types.Fail(types.NewStepExecutionError(ResolveIdentityID, err))
	}
	if len(reply.Customer) == 0 || reply.Customer[0].Username == "" {
		return types.Fail(types.NewStepExecutionError(ResolveIdentityID, errors.NotFoundf("customer %s", identifier)))
	}
	return types.Succeed(types.Data{KeyUsername: reply.Customer[0].Username})
}

func lookupString(input types.Data, keys ...string) string {
	for _, key := range keys {
		if v, exists := input.GetString(key); exists {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
