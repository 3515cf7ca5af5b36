package notify

import (
	"errors"
	"testing"
)

func TestConfigEnabledRequiresHostAndRecipients(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"host only", Config{SMTPHost: "smtp.example.com"}, false},
		{"recipients only", Config{Recipients: []string{"a@example.com"}}, false},
		{"both", Config{SMTPHost: "smtp.example.com", Recipients: []string{"a@example.com"}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.cfg.Enabled(); got != c.want {
				t.Errorf("Enabled() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	if m := New(Config{}); m != nil {
		t.Error("expected nil Mailer for a disabled config")
	}
}

func TestNewReturnsMailerWhenEnabled(t *testing.T) {
	cfg := Config{SMTPHost: "smtp.example.com", SMTPPort: 587, Recipients: []string{"a@example.com"}}
	m := New(cfg)
	if m == nil {
		t.Fatal("expected a non-nil Mailer for an enabled config")
	}
}

func TestNilMailerAlertIsNoOp(t *testing.T) {
	var m *Mailer
	if err := m.Alert(FailureInfo{ProjectName: "twin", Err: errors.New("boom")}); err != nil {
		t.Errorf("expected nil-receiver Alert to no-op, got error: %v", err)
	}
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" a@example.com, b@example.com ,,c@example.com")
	want := []string{"a@example.com", "b@example.com", "c@example.com"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitCSVEmptyInput(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
