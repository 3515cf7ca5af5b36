package cleanup

import "testing"

func TestHasPrefixMatchesEitherForm(t *testing.T) {
	if !hasPrefix("factory-twin_dispatcher", "factory-twin", "factory_twin") {
		t.Error("expected match on hyphenated prefix")
	}
	if !hasPrefix("factory_twin_dispatcher", "factory-twin", "factory_twin") {
		t.Error("expected match on underscored prefix")
	}
	if hasPrefix("unrelated-resource", "factory-twin", "factory_twin") {
		t.Error("expected no match for an unrelated name")
	}
}

func TestResourceGroupOfExtractsSegment(t *testing.T) {
	id := "/subscriptions/sub-1/resourceGroups/factory-twin-rg/providers/Microsoft.Cosmos/databaseAccounts/x"
	if got, want := resourceGroupOf(id), "factory-twin-rg"; got != want {
		t.Errorf("resourceGroupOf() = %q, want %q", got, want)
	}
	if got := resourceGroupOf("not-an-arm-id"); got != "" {
		t.Errorf("resourceGroupOf(malformed) = %q, want empty", got)
	}
}

func TestReportRecordsFoundDeletedAndErrored(t *testing.T) {
	r := &Report{}
	r.found("s3.Bucket", "factory-twin-cold")
	r.deleted("s3.Bucket", "factory-twin-cold")
	r.errored("iam.Role", "factory-twin-role", errTest{"access denied"})

	if len(r.Found) != 1 || r.Found[0] != "s3.Bucket:factory-twin-cold" {
		t.Errorf("Found = %v", r.Found)
	}
	if len(r.Deleted) != 1 {
		t.Errorf("Deleted = %v", r.Deleted)
	}
	if len(r.Errors) != 1 {
		t.Errorf("Errors = %v", r.Errors)
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
