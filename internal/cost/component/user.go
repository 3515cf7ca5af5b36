package component

import (
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// AWSUser costs Managed Grafana's L5 layer with separate editor and
// viewer seat prices and no hourly compute component.
//
// Grounded on components/aws/grafana.py::calculate_cost.
func AWSUser(p pricing.ProviderPricing, numEditors, numViewers float64) float64 {
	return formula.UserBased(p.GrafanaEditorPrice, numEditors, p.GrafanaViewerPrice, numViewers, 0, 0)
}

// AzureUser costs Azure Managed Grafana's L5 layer: Azure charges a
// single per-active-user rate (no editor/viewer split) plus an hourly
// compute rate assumed to run the full month (730 hours).
//
// Grounded on components/azure/grafana.py::calculate_cost.
func AzureUser(p pricing.ProviderPricing, numEditors, numViewers float64) float64 {
	const monthlyHours = 730
	totalUsers := numEditors + numViewers
	return formula.UserBased(p.GrafanaEditorPrice, totalUsers, 0, 0, p.GrafanaViewerPrice, monthlyHours)
}

// GCPUser costs Cloud Monitoring dashboards' L5 layer the same way as
// AWSUser: GCP's dashboard surface has no managed-Grafana-style
// per-user billing split in this deployer's pricing table, so it
// reuses the editor/viewer seat shape.
func GCPUser(p pricing.ProviderPricing, numEditors, numViewers float64) float64 {
	return formula.UserBased(p.GrafanaEditorPrice, numEditors, p.GrafanaViewerPrice, numViewers, 0, 0)
}
