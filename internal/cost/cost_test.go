package cost

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/twin2multicloud/deployer/internal/cost/currency"
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
	"github.com/twin2multicloud/deployer/internal/cost/solver"
)

func testRatesClient(source currency.RateSource) *currency.CachedClient {
	return currency.NewCachedClient(source, nil, nil)
}

func testProviderPricing() pricing.ProviderPricing {
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
		TransferToAWSPrice:        0.02,
		TransferToAzurePrice:      0.02,
		TransferToGCPPrice:        0.02,
		ConnectorFunctionPrice:    0.0000002,
		IngestionFunctionPrice:    0.0000002,
		ReaderFunctionPrice:       0.0000002,
		APIGatewayPrice:           0.0000035,
	}
}

func testPricingTable() pricing.Table {
	p := testProviderPricing()
	return pricing.Table{AWS: p, Azure: p, GCP: p}
}

func flatMatrix(v float64) map[string]map[string]float64 {
	m := map[string]map[string]float64{}
	for _, from := range solver.Providers {
		m[from] = map[string]float64{}
		for _, to := range solver.Providers {
			m[from][to] = v
		}
	}
	return m
}

func zeroTransfer() solver.TransferMatrix {
	return solver.TransferMatrix{
		IngestionToHot: flatMatrix(0),
		HotToCool:      flatMatrix(0),
		CoolToArchive:  flatMatrix(0),
	}
}

func baselineParams() Params {
	return Params{
		NumberOfDevices:                1000,
		DeviceSendingIntervalInMinutes: 5,
		AverageSizeOfMessageInKB:       2,
		HotStorageDurationInMonths:     1,
		CoolStorageDurationInMonths:    3,
		ArchiveStorageDurationInMonths: 12,
		EntityCount:                    1000,
		DashboardRefreshesPerHour:      4,
		DashboardActiveHoursPerDay:     8,
		AmountOfActiveEditors:          2,
		AmountOfActiveViewers:          5,
		NumberOfDeviceTypes:            1,
		Currency:                       "USD",
	}
}

func TestCalculateCheapestCostsAllProvidersPresent(t *testing.T) {
	present := map[string]bool{"aws": true, "azure": true, "gcp": true}

	result, err := CalculateCheapestCosts(context.Background(), baselineParams(), testPricingTable(), present, zeroTransfer(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalCost <= 0 {
		t.Fatalf("expected positive total cost, got %v", result.TotalCost)
	}
	if result.Currency != "USD" {
		t.Errorf("Currency = %v, want USD", result.Currency)
	}
	if result.Placement.Hot == "" || result.Placement.L1 == "" || result.Placement.L5 == "" {
		t.Errorf("expected every layer assigned a provider, got %+v", result.Placement)
	}
	if len(result.ProviderCosts) != 3 {
		t.Errorf("expected costs computed for all 3 providers, got %d", len(result.ProviderCosts))
	}
}

func TestCalculateCheapestCostsSkipsAbsentProvider(t *testing.T) {
	present := map[string]bool{"aws": true, "azure": true}

	result, err := CalculateCheapestCosts(context.Background(), baselineParams(), testPricingTable(), present, zeroTransfer(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Placement.Hot == "gcp" {
		t.Error("expected gcp excluded from placement since it was not present")
	}
	if _, ok := result.ProviderCosts["gcp"]; ok {
		t.Error("expected no gcp cost entry when gcp is absent")
	}
}

func TestCalculateCheapestCostsRejectsInvalidPricing(t *testing.T) {
	table := testPricingTable()
	table.AWS.HotStoragePrice = 0 // zero is treated as missing, matching Validate's intent

	_, err := CalculateCheapestCosts(context.Background(), baselineParams(), table, map[string]bool{"aws": true}, zeroTransfer(), nil, nil)
	if err == nil {
		t.Fatal("expected an error for incomplete aws pricing")
	}
}

type stubRateSource struct {
	rate float64
	err  error
}

func (s stubRateSource) USDToEUR(ctx context.Context) (float64, error) {
	return s.rate, s.err
}

func TestCalculateCheapestCostsConvertsToEUR(t *testing.T) {
	params := baselineParams()
	params.Currency = "EUR"
	rates := testRatesClient(stubRateSource{rate: 0.9})

	result, err := CalculateCheapestCosts(context.Background(), params, testPricingTable(), map[string]bool{"aws": true, "azure": true, "gcp": true}, zeroTransfer(), rates, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Currency != "EUR" {
		t.Fatalf("Currency = %v, want EUR", result.Currency)
	}
	want := formula.Round12(result.MonthlyCostUSD * 0.9)
	if result.TotalCost != want {
		t.Errorf("TotalCost = %v, want %v", result.TotalCost, want)
	}
}

func TestCalculateCheapestCostsFallsBackToUSDOnRateError(t *testing.T) {
	params := baselineParams()
	params.Currency = "EUR"
	rates := testRatesClient(stubRateSource{err: errors.New("rate service down")})

	result, err := CalculateCheapestCosts(context.Background(), params, testPricingTable(), map[string]bool{"aws": true, "azure": true, "gcp": true}, zeroTransfer(), rates, nil)
	if err != nil {
		t.Fatalf("expected currency failure to fall back silently, got error: %v", err)
	}
	if result.Currency != "USD" {
		t.Errorf("Currency = %v, want USD fallback", result.Currency)
	}
	if result.TotalCost != result.MonthlyCostUSD {
		t.Errorf("TotalCost = %v, want unconverted MonthlyCostUSD %v", result.TotalCost, result.MonthlyCostUSD)
	}
}

func TestValidateCredentialsRejectsUnknownProvider(t *testing.T) {
	_, err := ValidateCredentials("oracle", testPricingTable())
	if err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestValidateCredentialsAcceptsCompleteTable(t *testing.T) {
	result, err := ValidateCredentials("aws", testPricingTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "valid" {
		t.Errorf("Status = %v, want valid, missing: %v", result.Status, result.MissingKeys)
	}
}
