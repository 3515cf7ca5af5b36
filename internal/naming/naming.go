// Package naming generates deterministic per-twin resource names.
//
// Every resource name built here begins with the twin name (or its
// underscored form) so that Fallback Cleanup (internal/cleanup) can find
// orphans by name; the one exception is StorageAccount, which drops the
// hyphens and appends "sa". Keep this package pure: no I/O, no
// provider SDKs, just string formatting against each provider's naming
// rules.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

// twinNamePattern is deliberately the intersection of every target
// provider's strictest identifier rule: lowercase letters, digits, and
// hyphens, 3-24 characters, starting with a letter. S3/GCS bucket rules
// and IoT thing-name rules are both satisfied by this.
var twinNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{2,23}$`)

// ValidTwinName reports whether name satisfies every provider's
// strictest naming rule.
func ValidTwinName(name string) bool {
	return twinNamePattern.MatchString(name)
}

// Naming is bound to a single twin name and produces every resource
// name the deployer needs, per provider.
type Naming struct {
	Twin string
}

// New returns a Naming bound to twin. It does not validate twin; callers
// should call ValidTwinName first (typically during config load).
func New(twin string) Naming {
	return Naming{Twin: twin}
}

func (n Naming) join(parts ...string) string {
	all := append([]string{n.Twin}, parts...)
	return strings.Join(all, "-")
}

// underscored returns the twin name with hyphens replaced by
// underscores, for providers/services that forbid hyphens (AWS IoT
// rule names, Azure some resource types).
func (n Naming) underscored(parts ...string) string {
	return strings.ReplaceAll(n.join(parts...), "-", "_")
}

// --- Generic, cross-layer names ---------------------------------------

func (n Naming) IotRole() string       { return n.join("iot-role") }
func (n Naming) DispatcherFn() string  { return n.join("dispatcher") }
func (n Naming) ProcessorFn(deviceType string) string {
	return n.join("processor", sanitize(deviceType))
}
func (n Naming) PersisterFn() string      { return n.join("persister") }
func (n Naming) EventCheckerFn() string   { return n.join("event-checker") }
func (n Naming) EventFeedbackFn() string  { return n.join("event-feedback") }
func (n Naming) NotificationWorkflow() string { return n.join("notify-workflow") }
func (n Naming) ErrorBusFn() string       { return n.join("error-bus") }

// --- Storage -------------------------------------------------------------

func (n Naming) HotTable() string { return n.underscored("hot") }
func (n Naming) HotReaderFn() string { return n.join("hot-reader") }
func (n Naming) HotRangeReaderFn() string { return n.join("hot-reader-range") }
func (n Naming) HotLastReaderFn() string  { return n.join("hot-reader-last") }

// CoolBucket and ArchiveBucket must be globally-unique, lowercase,
// no-underscore names (the strictest S3/GCS rule), so they get a
// dedicated formatter rather than reusing join().
func (n Naming) CoolBucket() string    { return lowerDash(n.join("cool")) }
func (n Naming) ArchiveBucket() string { return lowerDash(n.join("archive")) }

// StorageAccount satisfies Azure's strictest rule among the services
// this deployer touches: lowercase letters and digits only, 3-24
// characters, no hyphens or underscores.
func (n Naming) StorageAccount() string {
	var b strings.Builder
	for _, r := range strings.ToLower(n.Twin) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s := b.String() + "sa"
	if len(s) > 24 {
		s = s[:24]
	}
	return s
}
func (n Naming) CoolMoverFn() string    { return n.join("cool-mover") }
func (n Naming) ArchiveMoverFn() string { return n.join("archive-mover") }

// --- Twin management (L4) ------------------------------------------------

func (n Naming) TwinmakerWorkspace() string { return n.join("workspace") }
func (n Naming) DigitalTwinsInstance() string { return n.join("dt") }
func (n Naming) EntityName(deviceID string) string {
	if deviceID == "" {
		return n.join("entity")
	}
	return n.join("entity", sanitize(deviceID))
}

// --- Visualization (L5) ---------------------------------------------------

func (n Naming) GrafanaWorkspace() string { return n.join("grafana") }
func (n Naming) GrafanaDatasource() string { return n.join("datasource") }

// --- Glue (L0) -------------------------------------------------------------

// GlueReceiverFn names the receiver function for a boundary such as
// "l1_to_l2" or "l3hot_to_l4".
func (n Naming) GlueReceiverFn(boundary string) string {
	return n.join("glue", sanitize(boundary))
}

// --- IaC / IAM -------------------------------------------------------------

func (n Naming) IamRole(suffix string) string   { return n.join("role", sanitize(suffix)) }
func (n Naming) IamPolicy(suffix string) string { return n.join("policy", sanitize(suffix)) }

// Prefix is what Fallback Cleanup scans for: the twin name itself, plus
// its underscored variant for services that forbid hyphens.
func (n Naming) Prefix() string            { return n.Twin }
func (n Naming) UnderscorePrefix() string { return strings.ReplaceAll(n.Twin, "-", "_") }

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func lowerDash(s string) string {
	return fmt.Sprintf("%s", strings.ToLower(strings.ReplaceAll(s, "_", "-")))
}
