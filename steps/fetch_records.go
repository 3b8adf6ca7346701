package steps

import (
	"github.com/warriorguo/stepflow/types"
)

const (
	FetchRecordsID = "GetOrders"

	KeyOrders = "orders"
)

var (
	_ types.Step = &FetchRecords{}

	// OrderOutputSelector lists the order fields requested from GetOrder.
	OrderOutputSelector = []string{
		"Email",
		"SalesChannel",
		"GrandTotal",
		"ShippingTotal",
		"OrderType",
		"OrderStatus",
		"DatePlaced",
		"DatePaid",
		"OrderLine",
		"OrderLine.ProductName",
		"OrderLine.Quantity",
		"OrderLine.UnitPrice",
	}
)

type orderReply struct {
	Order []types.Data `json:"Order"`
}

// FetchRecords maps {username} to {orders: [...]} through the GetOrder
// action. A customer without orders succeeds with an empty list.
type FetchRecords struct {
	client *Client
}

func NewFetchRecords(client *Client) *FetchRecords {
	return &FetchRecords{client: client}
}

func (s *FetchRecords) Execute(ctx types.Context, input types.Data) *types.StepResult {
	username := lookupString(input, KeyUsername, "value")
	if username == "" {
		return types.Fail(types.NewStepExecutionErrorf(FetchRecordsID, "missing %s", KeyUsername))
	}

	var reply orderReply
	filter := map[string]any{
		"Username":       username,
		"OutputSelector": OrderOutputSelector,
	}
	if err := s.client.Call(ctx, ActionGetOrder, filter, &reply); err != nil {
		return types.Fail(types.NewStepExecutionError(FetchRecordsID, err))
	}

	orders := make([]any, 0, len(reply.Order))
	for _, o := range reply.Order {
		orders = append(orders, o)
	}
	return types.Succeed(types.Data{KeyOrders: orders})
}
