// Package pricing defines the per-provider pricing table the optimizer
// is fed with and validates it before any cost is computed, so a
// missing rate surfaces as a named configuration error instead of a
// silent zero cost.
//
// Grounded on
// original_source/2-twin2clouds/backend/calculation_v2/components/{aws,azure,gcp}/*.py
// (the pricing keys each component wrapper reads) for field shape, and
// original_source/2-twin2clouds/backend/pricing_utils.py::validate_pricing_schema
// for the validation behavior (missing required keys reported by name,
// never guessed at).
package pricing

import (
	"fmt"

	"github.com/twin2multicloud/deployer/internal/cost/formula"
)

// ProviderPricing holds every rate one cloud's component wrappers need.
// Field groups mirror the component files they feed: Messaging (IoT
// Core/Hub/Pub-Sub), Execution (Lambda/Functions/Cloud Functions),
// hot/cool/archive Storage (DynamoDB/Cosmos/Firestore and the
// cool/archive object-storage tiers), Twin (TwinMaker/Digital Twins),
// User (Grafana), Transfer (egress to each of the three providers), and
// Glue (the cross-cloud connector/ingestion/reader/gateway functions
// layer strategies stand up when L1/L3/L4 land on different clouds
// than their neighbor).
type ProviderPricing struct {
	MessagePricePerDevice   float64        `json:"message_price_per_device_month"`
	MessagePriceRuleAction  float64        `json:"message_price_rule_action"`
	MessageTiers            []formula.Tier `json:"message_tiers"`
	MessageIncludedPerUnit  float64        `json:"message_included_per_unit"`

	ExecutionPricePerRequest    float64 `json:"execution_price_per_request"`
	ExecutionFreeRequests       float64 `json:"execution_free_requests"`
	ExecutionPricePerGBSecond   float64 `json:"execution_price_per_gb_second"`
	ExecutionFreeGBSeconds      float64 `json:"execution_free_gb_seconds"`

	HotWritePrice    float64 `json:"hot_write_price"`
	HotReadPrice     float64 `json:"hot_read_price"`
	HotStoragePrice  float64 `json:"hot_storage_price_per_gb_month"`
	HotFreeStorageGB float64 `json:"hot_free_storage_gb"`

	CoolStoragePrice    float64 `json:"cool_storage_price_per_gb_month"`
	ArchiveStoragePrice float64 `json:"archive_storage_price_per_gb_month"`

	TwinEntityPrice  float64 `json:"twin_entity_price"`
	TwinQueryPrice   float64 `json:"twin_query_price"`
	TwinAPICallPrice float64 `json:"twin_api_call_price"`

	GrafanaEditorPrice float64 `json:"grafana_editor_price"`
	GrafanaViewerPrice float64 `json:"grafana_viewer_price"`

	TransferToAWSPrice   float64 `json:"transfer_to_aws_price_per_gb"`
	TransferToAzurePrice float64 `json:"transfer_to_azure_price_per_gb"`
	TransferToGCPPrice   float64 `json:"transfer_to_gcp_price_per_gb"`

	ConnectorFunctionPrice float64 `json:"connector_function_price_per_execution"`
	IngestionFunctionPrice float64 `json:"ingestion_function_price_per_execution"`
	ReaderFunctionPrice    float64 `json:"reader_function_price_per_execution"`
	APIGatewayPrice        float64 `json:"api_gateway_price_per_request"`
}

// Table is the full three-provider pricing input to the optimizer.
type Table struct {
	AWS   ProviderPricing `json:"aws"`
	Azure ProviderPricing `json:"azure"`
	GCP   ProviderPricing `json:"gcp"`
}

// ValidationResult reports whether a provider's pricing table is
// complete enough to cost every component that reads from it.
type ValidationResult struct {
	Status      string   `json:"status"` // "valid" or "invalid"
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// requiredField names a ProviderPricing field and how to read it, so
// Validate can report the JSON key instead of a Go field name.
type requiredField struct {
	key string
	get func(ProviderPricing) float64
}

var requiredFields = []requiredField{
	{"message_price_per_device_month", func(p ProviderPricing) float64 { return p.MessagePricePerDevice }},
	{"execution_price_per_request", func(p ProviderPricing) float64 { return p.ExecutionPricePerRequest }},
	{"execution_price_per_gb_second", func(p ProviderPricing) float64 { return p.ExecutionPricePerGBSecond }},
	{"hot_write_price", func(p ProviderPricing) float64 { return p.HotWritePrice }},
	{"hot_read_price", func(p ProviderPricing) float64 { return p.HotReadPrice }},
	{"hot_storage_price_per_gb_month", func(p ProviderPricing) float64 { return p.HotStoragePrice }},
	{"cool_storage_price_per_gb_month", func(p ProviderPricing) float64 { return p.CoolStoragePrice }},
	{"archive_storage_price_per_gb_month", func(p ProviderPricing) float64 { return p.ArchiveStoragePrice }},
	{"grafana_editor_price", func(p ProviderPricing) float64 { return p.GrafanaEditorPrice }},
	{"grafana_viewer_price", func(p ProviderPricing) float64 { return p.GrafanaViewerPrice }},
}

// Validate checks that provider's table has every rate the component
// wrappers require. A rate of exactly zero is treated as "missing"
// rather than "free", since no real cloud prices every one of these at
// zero simultaneously — matching validate_pricing_schema's intent that
// a blank pricing fetch should fail loudly, not compute a free twin.
func Validate(provider string, table ProviderPricing) ValidationResult {
	var missing []string
	for _, f := range requiredFields {
		if f.get(table) == 0 {
			missing = append(missing, fmt.Sprintf("%s.%s", provider, f.key))
		}
	}
	if len(missing) > 0 {
		return ValidationResult{Status: "invalid", MissingKeys: missing}
	}
	return ValidationResult{Status: "valid"}
}

// ValidateTable validates whichever providers present marks true,
// skipping providers the caller never populated (mirroring
// calculate_cheapest_costs's `if pricing.get("aws")` guard).
func ValidateTable(t Table, present map[string]bool) map[string]ValidationResult {
	results := make(map[string]ValidationResult, 3)
	if present["aws"] {
		results["aws"] = Validate("aws", t.AWS)
	}
	if present["azure"] {
		results["azure"] = Validate("azure", t.Azure)
	}
	if present["gcp"] {
		results["gcp"] = Validate("gcp", t.GCP)
	}
	return results
}
