package pricing

import "testing"

func complete() ProviderPricing {
	return ProviderPricing{
		MessagePricePerDevice:     0.08,
		ExecutionPricePerRequest:  0.0000002,
		ExecutionPricePerGBSecond: 0.0000166667,
		HotWritePrice:             0.00000125,
		HotReadPrice:              0.00000025,
		HotStoragePrice:           0.25,
		CoolStoragePrice:          0.0125,
		ArchiveStoragePrice:       0.00099,
		GrafanaEditorPrice:        9,
		GrafanaViewerPrice:        5,
	}
}

func TestValidateAcceptsCompleteTable(t *testing.T) {
	got := Validate("aws", complete())
	if got.Status != "valid" {
		t.Errorf("Status = %q, want valid; missing=%v", got.Status, got.MissingKeys)
	}
}

func TestValidateReportsEachMissingKey(t *testing.T) {
	p := complete()
	p.HotStoragePrice = 0
	p.GrafanaViewerPrice = 0

	got := Validate("azure", p)
	if got.Status != "invalid" {
		t.Fatalf("Status = %q, want invalid", got.Status)
	}
	if len(got.MissingKeys) != 2 {
		t.Fatalf("MissingKeys = %v, want 2 entries", got.MissingKeys)
	}
}

func TestValidateTableSkipsAbsentProviders(t *testing.T) {
	table := Table{AWS: complete()}
	results := ValidateTable(table, map[string]bool{"aws": true})
	if _, ok := results["azure"]; ok {
		t.Error("expected azure to be skipped when not present")
	}
	if results["aws"].Status != "valid" {
		t.Errorf("aws result = %+v", results["aws"])
	}
}
