package solver

import (
	"testing"

	"github.com/twin2multicloud/deployer/internal/cost/layer"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

func flatTransfer(v float64) map[string]map[string]float64 {
	m := map[string]map[string]float64{}
	for _, from := range Providers {
		m[from] = map[string]float64{}
		for _, to := range Providers {
			m[from][to] = v
		}
	}
	return m
}

func zeroTransferMatrix() TransferMatrix {
	return TransferMatrix{
		IngestionToHot: flatTransfer(0),
		HotToCool:      flatTransfer(0),
		CoolToArchive:  flatTransfer(0),
	}
}

func resultWithCost(provider, l string, cost float64) layer.Result {
	return layer.Result{Provider: provider, Layer: l, TotalCost: cost}
}

func TestSolvePicksCheapestEveryLayerWhenOneProviderIsCheapestEverywhere(t *testing.T) {
	costs := map[string]ProviderCosts{
		"aws":   {Ingestion: resultWithCost("aws", "L1", 10), Processing: resultWithCost("aws", "L2", 10), HotStorage: resultWithCost("aws", "L3_hot", 10), CoolStorage: resultWithCost("aws", "L3_cool", 10), ArchiveStorage: resultWithCost("aws", "L3_archive", 10), TwinManagement: resultWithCost("aws", "L4", 10), Visualization: resultWithCost("aws", "L5", 10)},
		"azure": {Ingestion: resultWithCost("azure", "L1", 20), Processing: resultWithCost("azure", "L2", 20), HotStorage: resultWithCost("azure", "L3_hot", 20), CoolStorage: resultWithCost("azure", "L3_cool", 20), ArchiveStorage: resultWithCost("azure", "L3_archive", 20), TwinManagement: resultWithCost("azure", "L4", 20), Visualization: resultWithCost("azure", "L5", 20)},
		"gcp":   {Ingestion: resultWithCost("gcp", "L1", 30), Processing: resultWithCost("gcp", "L2", 30), HotStorage: resultWithCost("gcp", "L3_hot", 30), CoolStorage: resultWithCost("gcp", "L3_cool", 30), ArchiveStorage: resultWithCost("gcp", "L3_archive", 30), TwinManagement: resultWithCost("gcp", "L4", 30), Visualization: resultWithCost("gcp", "L5", 30)},
	}
	prices := map[string]pricing.ProviderPricing{"aws": {}, "azure": {}, "gcp": {}}

	result := Solve(costs, prices, zeroTransferMatrix(), GlueParams{})

	if result.Assignment.Hot != "aws" || result.Assignment.Cool != "aws" || result.Assignment.Archive != "aws" {
		t.Errorf("expected aws swept every storage tier, got %+v", result.Assignment)
	}
	if result.Assignment.L1 != "aws" || result.Assignment.L4 != "aws" || result.Assignment.L5 != "aws" {
		t.Errorf("expected aws swept every layer, got %+v", result.Assignment)
	}
	if result.ProcessingHotOverride != nil || result.ProcessingOverride != nil || result.TwinOverride != nil || result.CoolOverride != nil {
		t.Errorf("expected no overrides when one provider is cheapest everywhere, got %+v", result)
	}
}

func TestSolveRecordsDataGravityOverrideWhenHotIsCheaperCombinedButNotAlone(t *testing.T) {
	costs := map[string]ProviderCosts{
		// Azure's hot storage alone is cheapest, but AWS's processing
		// is so much cheaper that the combined total favors AWS.
		"aws":   {Processing: resultWithCost("aws", "L2", 1), HotStorage: resultWithCost("aws", "L3_hot", 50), CoolStorage: resultWithCost("aws", "L3_cool", 10), ArchiveStorage: resultWithCost("aws", "L3_archive", 10), Ingestion: resultWithCost("aws", "L1", 10), Visualization: resultWithCost("aws", "L5", 10)},
		"azure": {Processing: resultWithCost("azure", "L2", 100), HotStorage: resultWithCost("azure", "L3_hot", 5), CoolStorage: resultWithCost("azure", "L3_cool", 10), ArchiveStorage: resultWithCost("azure", "L3_archive", 10), Ingestion: resultWithCost("azure", "L1", 10), Visualization: resultWithCost("azure", "L5", 10)},
	}
	prices := map[string]pricing.ProviderPricing{"aws": {}, "azure": {}}

	result := Solve(costs, prices, zeroTransferMatrix(), GlueParams{})

	if result.Assignment.Hot != "aws" {
		t.Fatalf("expected combined-cost argmin to pick aws, got %v", result.Assignment.Hot)
	}
	if result.ProcessingHotOverride == nil {
		t.Fatal("expected a data-gravity override since azure's hot storage alone was cheaper")
	}
	if result.ProcessingHotOverride.CheapestProvider != "azure" {
		t.Errorf("CheapestProvider = %v, want azure", result.ProcessingHotOverride.CheapestProvider)
	}
}

func TestSolveSkipsFutureWorkLayerFromL4Selection(t *testing.T) {
	costs := map[string]ProviderCosts{
		"aws": {Processing: resultWithCost("aws", "L2", 1), HotStorage: resultWithCost("aws", "L3_hot", 1), CoolStorage: resultWithCost("aws", "L3_cool", 1), ArchiveStorage: resultWithCost("aws", "L3_archive", 1), Ingestion: resultWithCost("aws", "L1", 1), TwinManagement: resultWithCost("aws", "L4", 5), Visualization: resultWithCost("aws", "L5", 1)},
		"gcp": {Processing: resultWithCost("gcp", "L2", 1), HotStorage: resultWithCost("gcp", "L3_hot", 1), CoolStorage: resultWithCost("gcp", "L3_cool", 1), ArchiveStorage: resultWithCost("gcp", "L3_archive", 1), Ingestion: resultWithCost("gcp", "L1", 1), TwinManagement: layer.Result{Provider: "gcp", Layer: "L4", TotalCost: 0, FutureWork: true}, Visualization: resultWithCost("gcp", "L5", 1)},
	}
	prices := map[string]pricing.ProviderPricing{"aws": {}, "gcp": {}}

	result := Solve(costs, prices, zeroTransferMatrix(), GlueParams{})

	if result.Assignment.L4 != "aws" {
		t.Errorf("expected gcp's future-work L4 excluded from selection, got %v", result.Assignment.L4)
	}
}

func TestSolveAddsGlueCostWhenL1CrossesProviders(t *testing.T) {
	costs := map[string]ProviderCosts{
		"aws":   {Ingestion: resultWithCost("aws", "L1", 1), Processing: resultWithCost("aws", "L2", 1), HotStorage: resultWithCost("aws", "L3_hot", 1), CoolStorage: resultWithCost("aws", "L3_cool", 1), ArchiveStorage: resultWithCost("aws", "L3_archive", 1), TwinManagement: resultWithCost("aws", "L4", 1), Visualization: resultWithCost("aws", "L5", 1)},
		"azure": {Ingestion: resultWithCost("azure", "L1", 0.5), Processing: resultWithCost("azure", "L2", 100), HotStorage: resultWithCost("azure", "L3_hot", 100), CoolStorage: resultWithCost("azure", "L3_cool", 100), ArchiveStorage: resultWithCost("azure", "L3_archive", 100), TwinManagement: resultWithCost("azure", "L4", 100), Visualization: resultWithCost("azure", "L5", 100)},
	}
	prices := map[string]pricing.ProviderPricing{
		"aws":   {ConnectorFunctionPrice: 0.01, IngestionFunctionPrice: 0.01},
		"azure": {ConnectorFunctionPrice: 0.01, IngestionFunctionPrice: 0.01},
	}

	result := Solve(costs, prices, zeroTransferMatrix(), GlueParams{GlueExecutionsPerMonth: 1_000_000})

	// azure's raw L1 cost (0.5) is far cheaper than aws's (1), but the
	// glue penalty for crossing from azure L1 into aws Hot should be
	// large enough to tip the winner back to aws.
	if result.Assignment.L1 != "aws" {
		t.Errorf("expected glue penalty to favor colocated L1, got %v", result.Assignment.L1)
	}
}
