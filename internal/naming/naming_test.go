package naming

import "testing"

func TestValidTwinName(t *testing.T) {
	cases := map[string]bool{
		"factory-twin": true,
		"a":            false, // too short
		"Factory":      false, // uppercase
		"factory_twin": false, // underscore not allowed
		"ok-123":       true,
	}
	for name, want := range cases {
		if got := ValidTwinName(name); got != want {
			t.Errorf("ValidTwinName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNamesArePrefixedAndStable(t *testing.T) {
	n := New("factory-twin")

	if got, want := n.DispatcherFn(), "factory-twin-dispatcher"; got != want {
		t.Errorf("DispatcherFn() = %q, want %q", got, want)
	}
	if got, want := n.HotTable(), "factory_twin_hot"; got != want {
		t.Errorf("HotTable() = %q, want %q", got, want)
	}
	// Stability: calling twice yields the same name.
	if n.CoolBucket() != n.CoolBucket() {
		t.Error("CoolBucket() is not stable across calls")
	}
	// Every generated name must start with the twin prefix (in one of
	// its two forms) so Fallback Cleanup's prefix scan finds it.
	for _, got := range []string{n.DispatcherFn(), n.HotTable(), n.CoolBucket(), n.GlueReceiverFn("l1_to_l2")} {
		if !(hasPrefix(got, n.Prefix()) || hasPrefix(got, n.UnderscorePrefix())) {
			t.Errorf("name %q does not begin with twin prefix %q or %q", got, n.Prefix(), n.UnderscorePrefix())
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
