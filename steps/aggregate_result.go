package steps

import (
	"encoding/json"
	"math"

	"github.com/juju/errors"
	"github.com/spf13/cast"
	"github.com/warriorguo/stepflow/types"
)

const (
	AggregateResultID = "FormatData"

	KeyGrandTotal = "GrandTotal"

	OutputOrder    = "Order"
	OutputCustomer = "Customer"
	OutputTotal    = "Total"

	DefaultCustomerLabel = "test"
)

var (
	_ types.Step = &AggregateResult{}
)

// AggregateResult turns {orders: [...]} into {Order, Customer, Total}
// where Total is the sum of every GrandTotal rounded on its own.
type AggregateResult struct {
	customerLabel string
}

func NewAggregateResult(customerLabel string) *AggregateResult {
	if customerLabel == "" {
		customerLabel = DefaultCustomerLabel
	}
	return &AggregateResult{customerLabel: customerLabel}
}

func (s *AggregateResult) Execute(ctx types.Context, input types.Data) *types.StepResult {
	raw, exists := input.Get(KeyOrders)
	if !exists {
		// GetOrder replies carry the list under "Order"
		raw, exists = input.Get(OutputOrder)
	}
	if !exists {
		return types.Fail(types.NewStepExecutionErrorf(AggregateResultID, "missing %s", KeyOrders))
	}

	orders, err := toRecords(raw)
	if err != nil {
		return types.Fail(types.NewStepExecutionError(AggregateResultID, err))
	}
	total, err := SumRounded(orders)
	if err != nil {
		return types.Fail(types.NewStepExecutionError(AggregateResultID, err))
	}

	return types.Succeed(types.Data{
		OutputOrder:    orders,
		OutputCustomer: s.customerLabel,
		OutputTotal:    total,
	})
}

// SumRounded rounds each GrandTotal half up to a whole number first, then
// sums. A missing or non-numeric GrandTotal is an error.
func SumRounded(orders []types.Data) (int64, error) {
	var total int64
	for i, order := range orders {
		v, exists := order.Get(KeyGrandTotal)
		if !exists || v == nil {
			return 0, errors.NotValidf("order %d without %s", i, KeyGrandTotal)
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errors.NotValidf("order %d %s %v", i, KeyGrandTotal, v)
		}
		total += int64(math.Floor(f + 0.5))
	}
	return total, nil
}

func toRecords(v any) ([]types.Data, error) {
	switch records := v.(type) {
	case nil:
		return []types.Data{}, nil
	case []types.Data:
		return records, nil
	case []map[string]any:
		out := make([]types.Data, 0, len(records))
		for _, r := range records {
			out = append(out, types.Data(r))
		}
		return out, nil
	case []any:
		out := make([]types.Data, 0, len(records))
		for i, r := range records {
			switch record := r.(type) {
			case types.Data:
				out = append(out, record)
			case map[string]any:
				out = append(out, types.Data(record))
			default:
				return nil, errors.NotValidf("order %d of type %T", i, r)
			}
		}
		return out, nil
	}

	// anything else gets one chance through its JSON form
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NotValidf("orders of type %T", v)
	}
	var out []types.Data
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.NotValidf("orders of type %T", v)
	}
	return out, nil
}
