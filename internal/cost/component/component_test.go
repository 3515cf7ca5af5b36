package component

import (
	"math"
	"testing"

	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

func samplePricing() pricing.ProviderPricing {
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

func TestHotStorageAppliesFreeTier(t *testing.T) {
	p := samplePricing()
	got := HotStorage(p, 1000, 2000, 10)
	if got <= 0 {
		t.Fatalf("expected positive cost, got %v", got)
	}

	// storage below the free tier contributes zero storage cost
	withoutStorage := HotStorage(p, 1000, 2000, 0)
	onlyStorageCost := got - withoutStorage
	if onlyStorageCost != 0 {
		t.Errorf("expected 10GB (below 25GB free tier) to cost 0, got %v", onlyStorageCost)
	}
}

func TestCoolAndArchiveStorage(t *testing.T) {
	p := samplePricing()
	cool := CoolStorage(p, 500, 1000, 0)
	archive := ArchiveStorage(p, 500, 1000, 0, 0.02)
	if cool <= 0 || archive <= 0 {
		t.Fatalf("expected positive costs, got cool=%v archive=%v", cool, archive)
	}
	if archive >= cool {
		t.Errorf("expected archive storage cost to undercut cool for equal volume, got archive=%v cool=%v", archive, cool)
	}
}

func TestExecutionUnderFreeTierIsZero(t *testing.T) {
	got := Execution(0.0000002, 1_000_000, 0.0000166667, 400_000, 500_000)
	if got != 0 {
		t.Errorf("expected zero cost under free tier, got %v", got)
	}
}

func TestAWSMessagingAppliesFiveKBMultiplier(t *testing.T) {
	p := samplePricing()
	small := AWSMessaging(p, 100, 1_000_000, 2)
	large := AWSMessaging(p, 100, 1_000_000, 12)
	if large <= small {
		t.Errorf("expected larger messages to bill more due to 5KB multiplier: small=%v large=%v", small, large)
	}
}

func TestAzureMessagingChargesOnlyOverage(t *testing.T) {
	p := samplePricing()
	underIncluded := AzureMessaging(p, 300_000, 1)
	overIncluded := AzureMessaging(p, 500_000, 1)
	if overIncluded <= underIncluded {
		t.Errorf("expected overage to cost more: under=%v over=%v", underIncluded, overIncluded)
	}
}

func TestGCPMessagingIsVolumeBased(t *testing.T) {
	p := samplePricing()
	got := GCPMessaging(p, 10)
	want := formula.Transfer(p.MessagePriceRuleAction, 10)
	if got != want {
		t.Errorf("GCPMessaging() = %v, want %v", got, want)
	}
}

func TestAWSTwinIncludesModelStorageOnlyWhenPresent(t *testing.T) {
	p := samplePricing()
	withoutModel := AWSTwin(p, 100, 1000, 1000, 0)
	withModel := AWSTwin(p, 100, 1000, 1000, 5)
	if withModel <= withoutModel {
		t.Errorf("expected model storage to add cost: without=%v with=%v", withoutModel, withModel)
	}
}

func TestAzureUserCombinesEditorsAndViewersIntoOneSeatRate(t *testing.T) {
	p := samplePricing()
	got := AzureUser(p, 2, 3)
	want := formula.UserBased(p.GrafanaEditorPrice, 5, 0, 0, p.GrafanaViewerPrice, 730)
	if got != want {
		t.Errorf("AzureUser() = %v, want %v", got, want)
	}
}

func TestAWSUserPricesEditorsAndViewersSeparately(t *testing.T) {
	p := samplePricing()
	got := AWSUser(p, 2, 3)
	want := p.GrafanaEditorPrice*2 + p.GrafanaViewerPrice*3
	if got != want {
		t.Errorf("AWSUser() = %v, want %v", got, want)
	}
}
