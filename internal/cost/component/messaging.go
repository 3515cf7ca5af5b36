package component

import (
	"math"

	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// AWSMessaging costs IoT Core ingestion: per-device connectivity, two
// rule actions per billable message (route-to-L2 plus store/forward),
// and tiered per-message pricing. AWS IoT Core bills in 5KB increments,
// so a message over 5KB counts as multiple billable messages.
//
// Grounded on components/aws/iot_core.py::calculate_cost.
func AWSMessaging(p pricing.ProviderPricing, numberOfDevices, messagesPerMonth, averageMessageSizeKB float64) float64 {
	billableMessages := messagesPerMonth
	if averageMessageSizeKB > 5 {
		billableMessages = messagesPerMonth * math.Ceil(averageMessageSizeKB/5.0)
	}

	deviceCost := numberOfDevices * p.MessagePricePerDevice
	rulesCost := formula.ActionBased(p.MessagePriceRuleAction, billableMessages*2)
	tieredCost := formula.TieredMessage(billableMessages, p.MessageTiers)
	return deviceCost + rulesCost + tieredCost
}

// AzureMessaging costs IoT Hub ingestion: a flat per-unit cost covering
// an included message allotment, plus a per-message rate for messages
// beyond that allotment.
//
// Grounded on components/azure/iot_hub.py::calculate_cost.
func AzureMessaging(p pricing.ProviderPricing, messagesPerMonth float64, units int) float64 {
	included := p.MessageIncludedPerUnit
	if included == 0 {
		included = 400_000
	}
	unitCost := p.MessagePricePerDevice * float64(units)
	includedMessages := included * float64(units)
	extraMessages := messagesPerMonth - includedMessages
	if extraMessages < 0 {
		extraMessages = 0
	}
	additionalCost := formula.MessageBased(p.MessagePriceRuleAction, extraMessages)
	return unitCost + additionalCost
}

// GCPMessaging costs Pub/Sub ingestion, which GCP bills by data volume
// rather than message count.
//
// Grounded on components/gcp/pubsub.py::calculate_cost.
func GCPMessaging(p pricing.ProviderPricing, dataVolumeGB float64) float64 {
	return formula.Transfer(p.MessagePriceRuleAction, dataVolumeGB)
}
