package steps

import (
	"github.com/juju/errors"
	"github.com/warriorguo/stepflow/types"
)

// CustomerOrdersWorkflow is the name the order lookup pipeline registers under.
const CustomerOrdersWorkflow = "CustomerOrders"

// Definitions returns the order lookup pipeline:
// GetUsername -> GetOrders -> FormatData.
func Definitions(client *Client) []types.StepDefinition {
	return []types.StepDefinition{
		{ID: ResolveIdentityID, Step: NewResolveIdentity(client)},
		{ID: FetchRecordsID, Step: NewFetchRecords(client)},
		{ID: AggregateResultID, Step: NewAggregateResult(client.Config().CustomerLabel)},
	}
}

// Register builds a Neto client from config and registers the pipeline.
func Register(engine types.FlowEngine, config Config) error {
	client, err := NewClient(config)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(engine.RegisterWorkflow(CustomerOrdersWorkflow, Definitions(client)))
}
