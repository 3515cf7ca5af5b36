package component

import (
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// AWSTwin costs IoT TwinMaker's L4 layer: per-entity, per-query, and
// per-API-call action costs, plus S3-standard-rate storage for any
// uploaded 3D model assets.
//
// Grounded on components/aws/twinmaker.py::calculate_cost.
func AWSTwin(p pricing.ProviderPricing, entityCount, queriesPerMonth, apiCallsPerMonth, modelStorageGB float64) float64 {
	entityCost := p.TwinEntityPrice * entityCount
	queryCost := formula.ActionBased(p.TwinQueryPrice, queriesPerMonth)
	apiCost := formula.ActionBased(p.TwinAPICallPrice, apiCallsPerMonth)
	var storageCost float64
	if modelStorageGB > 0 {
		storageCost = formula.StorageBased(0.023, modelStorageGB, 1.0)
	}
	return entityCost + queryCost + apiCost + storageCost
}

// AzureTwin costs Azure Digital Twins' L4 layer: per-operation actions
// (entity CRUD), per-query actions, and per-message property updates.
//
// Grounded on components/azure/digital_twins.py::calculate_cost.
func AzureTwin(p pricing.ProviderPricing, operationsPerMonth, queriesPerMonth, messagesPerMonth float64) float64 {
	operationCost := formula.ActionBased(p.TwinEntityPrice, operationsPerMonth)
	queryCost := formula.ActionBased(p.TwinQueryPrice, queriesPerMonth)
	messageCost := formula.MessageBased(p.TwinAPICallPrice, messagesPerMonth)
	return operationCost + queryCost + messageCost
}

// GCP has no digital-twin service equivalent to TwinMaker or Azure
// Digital Twins; its L4 cost is a fixed future-work zero, handled in
// internal/cost/layer rather than here, since there is no per-call
// rate to compose.
