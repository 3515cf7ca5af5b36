package formula

import (
	"encoding/json"
	"math"
	"testing"
)

func TestMessageBased(t *testing.T) {
	if got, want := MessageBased(0.001, 2000), 2.0; got != want {
		t.Errorf("MessageBased() = %v, want %v", got, want)
	}
}

func TestExecutionBasedClipsFreeTier(t *testing.T) {
	got := ExecutionBased(0.0000002, 500_000, 1_000_000, 0.0000166667, 100, 400_000)
	if got != 0 {
		t.Errorf("expected both terms clipped to zero by free tiers, got %v", got)
	}

	got = ExecutionBased(0.0000002, 2_000_000, 1_000_000, 0.0000166667, 500_000, 400_000)
	want := 0.0000002*1_000_000 + 0.0000166667*100_000
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ExecutionBased() = %v, want %v", got, want)
	}
}

func TestActionBased(t *testing.T) {
	if got, want := ActionBased(0.25, 1_000_000), 250000.0; got != want {
		t.Errorf("ActionBased() = %v, want %v", got, want)
	}
}

func TestStorageBased(t *testing.T) {
	if got, want := StorageBased(0.023, 100, 2), 4.6; math.Abs(got-want) > 1e-9 {
		t.Errorf("StorageBased() = %v, want %v", got, want)
	}
}

func TestUserBased(t *testing.T) {
	got := UserBased(9, 3, 5, 10, 0, 0)
	if want := 27.0 + 50.0; got != want {
		t.Errorf("UserBased() = %v, want %v", got, want)
	}
}

func TestTransfer(t *testing.T) {
	if got, want := Transfer(0.09, 50), 4.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("Transfer() = %v, want %v", got, want)
	}
}

func TestTieredMessageAppliesBandsInOrder(t *testing.T) {
	tiers := []Tier{
		{Limit: 1_000_000_000, Price: 1.0},
		{Limit: 4_000_000_000, Price: 0.8},
		{Limit: math.Inf(1), Price: 0.7},
	}
	got := TieredMessage(1_500_000_000, tiers)
	want := 1_000_000_000*1.0 + 500_000_000*0.8
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("TieredMessage() = %v, want %v", got, want)
	}
}

func TestTieredTransferFreeFirstBand(t *testing.T) {
	tiers := []Tier{
		{Limit: 100, Price: 0.0},
		{Limit: 10240, Price: 0.09},
		{Limit: math.Inf(1), Price: 0.05},
	}
	got := TieredTransfer(150, tiers)
	want := 50 * 0.09
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("TieredTransfer() = %v, want %v", got, want)
	}
}

func TestTierUnmarshalsInfinitySentinel(t *testing.T) {
	var tier Tier
	if err := json.Unmarshal([]byte(`{"limit":"Infinity","price":0.7}`), &tier); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !math.IsInf(tier.Limit, 1) {
		t.Errorf("expected +Inf limit, got %v", tier.Limit)
	}
}

func TestTierUnmarshalsNumericLimit(t *testing.T) {
	var tier Tier
	if err := json.Unmarshal([]byte(`{"limit":4000000000,"price":0.8}`), &tier); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if tier.Limit != 4_000_000_000 {
		t.Errorf("Limit = %v, want 4e9", tier.Limit)
	}
}

func TestRound12(t *testing.T) {
	got := Round12(1.0 / 3.0)
	want := 0.333333333333
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Round12() = %v, want %v", got, want)
	}
}
