package layer

import (
	"github.com/twin2multicloud/deployer/internal/cost/component"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// L1AWS aggregates AWS's data-acquisition layer: IoT Core ingestion
// plus a dispatcher Lambda that routes each message into L2.
func L1AWS(p pricing.ProviderPricing, numberOfDevices, messagesPerMonth, averageMessageSizeKB float64) Result {
	req, freeReq, gbSec, freeGBSec := executionPrice(p)
	dataSizeGB := (messagesPerMonth * averageMessageSizeKB) / (1024 * 1024)
	components := map[string]float64{
		"iot_core":   component.AWSMessaging(p, numberOfDevices, messagesPerMonth, averageMessageSizeKB),
		"dispatcher": component.Execution(req, freeReq, gbSec, freeGBSec, messagesPerMonth),
	}
	return Result{Provider: "aws", Layer: "L1", TotalCost: sum(components), DataSizeGB: dataSizeGB, Messages: messagesPerMonth, Components: components}
}

// L1Azure aggregates Azure's data-acquisition layer: IoT Hub ingestion,
// a dispatcher Function, and the Event Grid subscription that wires
// IoT Hub's events into it.
func L1Azure(p pricing.ProviderPricing, messagesPerMonth float64, units int) Result {
	req, freeReq, gbSec, freeGBSec := executionPrice(p)
	components := map[string]float64{
		"iot_hub":       component.AzureMessaging(p, messagesPerMonth, units),
		"dispatcher":    component.Execution(req, freeReq, gbSec, freeGBSec, messagesPerMonth),
		"event_routing": component.Execution(req, freeReq, gbSec, freeGBSec, messagesPerMonth),
	}
	return Result{Provider: "azure", Layer: "L1", TotalCost: sum(components), Messages: messagesPerMonth, Components: components}
}

// L1GCP aggregates GCP's data-acquisition layer: Pub/Sub ingestion,
// billed by data volume, plus a dispatcher Cloud Function.
func L1GCP(p pricing.ProviderPricing, messagesPerMonth, averageMessageSizeKB float64) Result {
	req, freeReq, gbSec, freeGBSec := executionPrice(p)
	dataSizeGB := (messagesPerMonth * averageMessageSizeKB) / (1024 * 1024)
	components := map[string]float64{
		"pubsub":     component.GCPMessaging(p, dataSizeGB),
		"dispatcher": component.Execution(req, freeReq, gbSec, freeGBSec, messagesPerMonth),
	}
	return Result{Provider: "gcp", Layer: "L1", TotalCost: sum(components), DataSizeGB: dataSizeGB, Messages: messagesPerMonth, Components: components}
}
