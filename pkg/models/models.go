// Package models holds the DTOs this deployer exposes across its
// external surface: the CLI's JSON output mode and (out of scope here)
// the HTTP façade a caller can build on top of internal/orchestrator
// and internal/cost. Kept decoupled from the internal packages' own
// types so the wire shape doesn't change every time an internal
// refactor touches depctx.LayerInfo or solver.Assignment.
package models

import "time"

// TwinSummary is the top-level status view of one deployed twin.
type TwinSummary struct {
	ProjectName string        `json:"project_name"`
	RunID       string        `json:"run_id"`
	Layers      []LayerStatus `json:"layers"`
	Glue        []GlueStatus  `json:"glue"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// LayerStatus reports one pipeline layer's provider and lifecycle state.
type LayerStatus struct {
	Layer    string `json:"layer"`
	Provider string `json:"provider"`
	State    string `json:"state"`
	Detail   string `json:"detail,omitempty"`
}

// GlueStatus reports one cross-provider boundary's receiver status.
type GlueStatus struct {
	Boundary string `json:"boundary"`
	Present  bool   `json:"present"`
	Detail   string `json:"detail,omitempty"`
}

// DeployResult is the outcome of a deploy or destroy run.
type DeployResult struct {
	ProjectName string        `json:"project_name"`
	RunID       string        `json:"run_id"`
	Action      string        `json:"action"` // "deploy" or "destroy"
	Success     bool          `json:"success"`
	Layers      []LayerStatus `json:"layers"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// CleanupReport mirrors internal/cleanup.Report for the external
// surface, one entry per provider the sweep touched.
type CleanupReport struct {
	Provider string   `json:"provider"`
	Found    []string `json:"found"`
	Deleted  []string `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// CostEstimate is the public shape of an internal/cost.Result: the
// cheapest placement found for a twin's configured parameters, and
// what it costs per month.
type CostEstimate struct {
	Placement      map[string]string  `json:"placement"` // layer -> provider
	MonthlyCostUSD float64            `json:"monthly_cost_usd"`
	Currency       string             `json:"currency"`
	TotalCost      float64            `json:"total_cost"`
	ProviderCosts  map[string]float64 `json:"provider_costs"`
	Overrides      []CostOverride     `json:"overrides,omitempty"`
}

// CostOverride records one case where the solver picked a more
// expensive provider for a layer because a different constraint
// (data gravity, a cheaper combined path) outweighed that layer's
// standalone cheapest option.
type CostOverride struct {
	Layer            string  `json:"layer"`
	ChosenProvider   string  `json:"chosen_provider"`
	CheapestProvider string  `json:"cheapest_provider"`
	Reason           string  `json:"reason"`
	ExtraCostUSD     float64 `json:"extra_cost_usd"`
}

// CredentialValidation is the public shape of a
// pricing.ValidationResult for one provider.
type CredentialValidation struct {
	Provider    string   `json:"provider"`
	Status      string   `json:"status"` // "valid" or "incomplete"
	MissingKeys []string `json:"missing_keys,omitempty"`
}
