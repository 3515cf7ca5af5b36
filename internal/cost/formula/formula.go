// Package formula implements the six provider-independent pricing
// primitives the optimizer is built from, plus the two tiered-pricing
// walkers used by message and transfer costs.
//
// Grounded on
// original_source/2-twin2clouds/backend/calculation_v2/formulas/core_formulas.py,
// ported function-for-function; the teacher's internal/cost/providers.go
// supplies the per-component-wrapper style these primitives are composed
// into (internal/cost/component).
package formula

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MessageBased is CM: price per message times message count.
func MessageBased(pricePerMessage, numMessages float64) float64 {
	return pricePerMessage * numMessages
}

// ExecutionBased is CE: request cost plus compute-time cost, each
// clipped at its own free tier.
func ExecutionBased(pricePerExecution, numExecutions, freeExecutions, pricePerComputeUnit, totalComputeUnits, freeComputeUnits float64) float64 {
	requestCost := pricePerExecution * math.Max(0, numExecutions-freeExecutions)
	computeCost := pricePerComputeUnit * math.Max(0, totalComputeUnits-freeComputeUnits)
	return requestCost + computeCost
}

// ActionBased is CA: price per action times action count. Used by
// DynamoDB read/write units, Step Functions transitions, EventBridge
// events, Logic Apps actions, Event Grid operations, Cloud Workflow
// steps, and dashboard-query-driven reader/gateway calls.
func ActionBased(pricePerAction, numActions float64) float64 {
	return pricePerAction * numActions
}

// StorageBased is CS: price per GB-month times volume times duration.
func StorageBased(pricePerGBMonth, volumeGB, durationMonths float64) float64 {
	return pricePerGBMonth * volumeGB * durationMonths
}

// UserBased is CU: seat cost (editor+viewer) plus hourly VM cost.
func UserBased(pricePerEditor float64, numEditors float64, pricePerViewer float64, numViewers float64, pricePerHour, totalHours float64) float64 {
	seatCost := pricePerEditor*numEditors + pricePerViewer*numViewers
	timeCost := pricePerHour * totalHours
	return seatCost + timeCost
}

// Transfer is CT: price per GB times GB transferred.
func Transfer(pricePerGB, gbTransferred float64) float64 {
	return pricePerGB * gbTransferred
}

// Tier is one band of a tiered-pricing schedule: every unit up to Limit
// (cumulative, not this band's width) costs Price. A JSON limit of the
// string "Infinity" decodes to +Inf, matching the Python sentinel.
type Tier struct {
	Limit float64 `json:"-"`
	Price float64 `json:"price"`
}

// UnmarshalJSON accepts either a numeric limit or the string "Infinity".
func (t *Tier) UnmarshalJSON(data []byte) error {
	var raw struct {
		Limit json.RawMessage `json:"limit"`
		Price float64         `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Price = raw.Price

	var asString string
	if err := json.Unmarshal(raw.Limit, &asString); err == nil {
		if asString == "Infinity" || asString == "infinity" {
			t.Limit = math.Inf(1)
			return nil
		}
		return fmt.Errorf("formula: tier limit %q is not a number or \"Infinity\"", asString)
	}
	var asNumber float64
	if err := json.Unmarshal(raw.Limit, &asNumber); err != nil {
		return fmt.Errorf("formula: tier limit must be a number or \"Infinity\": %w", err)
	}
	t.Limit = asNumber
	return nil
}

// MarshalJSON renders +Inf back to the "Infinity" sentinel.
func (t Tier) MarshalJSON() ([]byte, error) {
	limit := interface{}(t.Limit)
	if math.IsInf(t.Limit, 1) {
		limit = "Infinity"
	}
	return json.Marshal(struct {
		Limit interface{} `json:"limit"`
		Price float64     `json:"price"`
	}{limit, t.Price})
}

// tieredCost walks tiers (a copy sorted by ascending Limit) and sums
// quantity × price per band, stopping once the full quantity has been
// billed. Shared by TieredMessage and TieredTransfer since both apply
// the identical band-subtraction algorithm to a different unit.
func tieredCost(quantity float64, tiers []Tier) float64 {
	total := 0.0
	remaining := quantity
	previousLimit := 0.0

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Limit < sorted[j].Limit })

	for _, tier := range sorted {
		capacity := tier.Limit - previousLimit
		inTier := math.Min(remaining, capacity)
		total += inTier * tier.Price
		remaining -= inTier
		previousLimit = tier.Limit
		if remaining <= 0 {
			break
		}
	}
	return total
}

// TieredMessage applies tiered per-message pricing (AWS IoT Core and
// similar volume-discounted message ingestion).
func TieredMessage(numMessages float64, tiers []Tier) float64 {
	return tieredCost(numMessages, tiers)
}

// TieredTransfer applies tiered per-GB egress pricing.
func TieredTransfer(gbTransferred float64, tiers []Tier) float64 {
	return tieredCost(gbTransferred, tiers)
}

// Round12 quantizes a value to 12 decimal places, matching
// Decimal(...).quantize(Decimal("0.000000000001")) in original_source.
// Applied only at the USD->EUR conversion boundary, never mid-calculation.
func Round12(v float64) float64 {
	const scale = 1e12
	return math.Round(v*scale) / scale
}
