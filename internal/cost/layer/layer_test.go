package layer

import (
	"math"
	"testing"

	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

func testPricing() pricing.ProviderPricing {
	return pricing.ProviderPricing{
		MessagePricePerDevice:     0.08,
		MessagePriceRuleAction:    0.15 / 1_000_000,
		MessageTiers:              []formula.Tier{{Limit: math.Inf(1), Price: 1.0}},
		MessageIncludedPerUnit:    400_000,
		ExecutionPricePerRequest:  0.0000002,
		ExecutionFreeRequests:     1_000_000,
		ExecutionPricePerGBSecond: 0.0000166667,
		ExecutionFreeGBSeconds:    400_000,
		HotWritePrice:             0.00000125,
		HotReadPrice:              0.00000025,
		HotStoragePrice:           0.25,
		HotFreeStorageGB:          25,
		CoolStoragePrice:          0.0125,
		ArchiveStoragePrice:       0.00099,
		TwinEntityPrice:           0.00012,
		TwinQueryPrice:            0.000083,
		TwinAPICallPrice:          0.000095,
		GrafanaEditorPrice:        9,
		GrafanaViewerPrice:        5,
	}
}

func TestL1AWSComputesDataSizeAndCost(t *testing.T) {
	r := L1AWS(testPricing(), 1000, 2_000_000, 2)
	if r.TotalCost <= 0 {
		t.Fatalf("expected positive cost, got %v", r.TotalCost)
	}
	wantDataGB := (2_000_000.0 * 2) / (1024 * 1024)
	if r.DataSizeGB != wantDataGB {
		t.Errorf("DataSizeGB = %v, want %v", r.DataSizeGB, wantDataGB)
	}
	if _, ok := r.Components["iot_core"]; !ok {
		t.Error("expected iot_core component breakdown")
	}
}

func TestL2AddsOptionalComponentsOnlyWhenEnabled(t *testing.T) {
	p := testPricing()
	p.ExecutionFreeRequests = 0
	p.ExecutionFreeGBSeconds = 0
	base := L2("aws", p, ProcessingParams{ExecutionsPerMonth: 1_000_000, NumberOfDeviceTypes: 1})
	if len(base.Components) != 2 {
		t.Fatalf("expected 2 base components, got %d: %v", len(base.Components), base.Components)
	}

	withEvents := L2("aws", p, ProcessingParams{
		ExecutionsPerMonth:  1_000_000,
		NumberOfDeviceTypes: 1,
		UseEventChecking:    true,
		EventTriggerRate:    0.1,
	})
	if withEvents.TotalCost <= base.TotalCost {
		t.Errorf("expected event checking to add cost: base=%v withEvents=%v", base.TotalCost, withEvents.TotalCost)
	}
}

func TestL3HotSkipsReaderWhenNoQueries(t *testing.T) {
	p := testPricing()
	p.ExecutionFreeRequests = 0
	p.ExecutionFreeGBSeconds = 0
	r := L3Hot("aws", p, 1000, 2000, 10, 0)
	if _, ok := r.Components["hot_reader"]; ok {
		t.Error("expected no hot_reader component when queries are zero")
	}

	withReaders := L3Hot("aws", p, 1000, 2000, 10, 50_000)
	if withReaders.TotalCost <= r.TotalCost {
		t.Errorf("expected reader queries to add cost: without=%v with=%v", r.TotalCost, withReaders.TotalCost)
	}
}

func TestL3CoolAndArchiveDefaultMoverCadence(t *testing.T) {
	p := testPricing()
	p.ExecutionFreeRequests = 0
	p.ExecutionFreeGBSeconds = 0
	cool := L3Cool("aws", p, 500, 1000, 0, 0)
	archive := L3Archive("aws", p, 500, 1000, 0, 0.02, 0)
	if cool.Components["mover"] <= archive.Components["mover"] {
		t.Errorf("expected cool's daily mover to cost more than archive's weekly mover: cool=%v archive=%v", cool.Components["mover"], archive.Components["mover"])
	}
}

func TestL4FutureWorkFlagCarriesThrough(t *testing.T) {
	r := L4("gcp", 0, true)
	if !r.FutureWork {
		t.Error("expected FutureWork to be true")
	}
	if r.TotalCost != 0 {
		t.Errorf("expected zero total for future-work layer, got %v", r.TotalCost)
	}
}
