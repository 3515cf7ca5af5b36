// Package solver finds the cheapest cross-cloud placement for a
// deployment's five layers by walking a small directed graph: one node
// per provider at the Hot/Cool/Archive storage tiers (9 nodes total),
// edges weighted by that tier's own cost plus the egress cost of
// reaching it from the previous tier's chosen provider.
//
// Grounded step-for-step on
// original_source/2-twin2clouds/backend/calculation/engine.py::calculate_cheapest_costs
// (and its decision.build_graph_for_storage/find_cheapest_storage_path
// helpers, folded in here since the search space is exhaustively small)
// — layer numbers below follow this module's L1 ingestion/L2
// processing/L3 hot-cool-archive storage/L4 twin/L5 visualization
// convention rather than engine.py's older L2-storage/L3-processing
// numbering, which calculation_v2's layer files already superseded.
// The adjacency-list idiom itself is grounded on the teacher's
// internal/analysis/graph package, hand-rolled rather than pulled from
// a graph library because 9 nodes is too small a space to warrant one.
package solver

import (
	"sort"

	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/layer"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
)

// Providers enumerates the three clouds in the fixed order every
// argmin scan and path label uses.
var Providers = []string{"aws", "azure", "gcp"}

// ProviderCosts is one provider's fully-aggregated layer costs, as
// produced by internal/cost/layer for that provider's configuration.
type ProviderCosts struct {
	Ingestion      layer.Result
	Processing     layer.Result
	HotStorage     layer.Result
	CoolStorage    layer.Result
	ArchiveStorage layer.Result
	TwinManagement layer.Result
	Visualization  layer.Result
}

// TransferMatrix holds the per-provider-pair egress cost for each of
// the three storage-tier transitions a deployment's data crosses.
type TransferMatrix struct {
	IngestionToHot map[string]map[string]float64
	HotToCool      map[string]map[string]float64
	CoolToArchive  map[string]map[string]float64
}

// GlueParams carries the quantities the cross-cloud glue functions are
// billed against: one execution per device-message when L1 and the
// Hot provider differ, one query when L3 Hot and L4 differ.
type GlueParams struct {
	GlueExecutionsPerMonth float64
	DashboardQueriesPerMonth float64
}

// Override records a case where the placement chosen for Data Gravity
// or combined-cost reasons diverges from what would have been
// cheapest for that layer alone. Savings is the selected provider's
// layer cost minus the cheapest provider's, i.e. the extra cost (never
// negative) accepted by not taking the cheapest option.
type Override struct {
	SelectedProvider string
	CheapestProvider string
	Savings          float64
}

// Assignment is the provider chosen for each layer.
type Assignment struct {
	L1      string
	L2      string
	Hot     string
	Cool    string
	Archive string
	L4      string
	L5      string
}

// Result is the solver's full output: the chosen assignment, the
// human-readable path, and every override the selection triggered.
type Result struct {
	Assignment           Assignment
	Path                 []string
	ProcessingHotOverride *Override
	ProcessingOverride    *Override
	TwinOverride          *Override
	CoolOverride          *Override
}

type option struct {
	provider string
	cost     float64
}

func argmin(opts []option) option {
	sorted := make([]option, len(opts))
	copy(sorted, opts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].cost < sorted[j].cost })
	return sorted[0]
}

func costFor(opts []option, provider string) float64 {
	for _, o := range opts {
		if o.provider == provider {
			return o.cost
		}
	}
	return 0
}

// Solve runs the full five-step placement: combined Processing+Hot
// argmin fixes the Hot provider (Data Gravity), exhaustive enumeration
// over Cool/Archive picks the rest of the storage path, L1 and L4
// argmin with cross-cloud glue penalties couple to the Hot provider,
// and L5 is chosen independently.
func Solve(costs map[string]ProviderCosts, prices map[string]pricing.ProviderPricing, transfer TransferMatrix, glue GlueParams) Result {
	present := presentProviders(costs)

	// Step 1: combined Processing + Hot Storage argmin fixes the Hot
	// provider under Data Gravity — processing stays colocated with
	// where the hot data lives, so the two costs are summed before
	// picking a winner.
	var combined, hotOnly, processingOnly []option
	for _, p := range present {
		c := costs[p]
		combined = append(combined, option{p, c.Processing.TotalCost + c.HotStorage.TotalCost})
		hotOnly = append(hotOnly, option{p, c.HotStorage.TotalCost})
		processingOnly = append(processingOnly, option{p, c.Processing.TotalCost})
	}
	hotWinner := argmin(combined)
	hotProvider := hotWinner.provider

	var processingHotOverride *Override
	if cheapestHot := argmin(hotOnly); cheapestHot.provider != hotProvider {
		processingHotOverride = &Override{
			SelectedProvider: hotProvider,
			CheapestProvider: cheapestHot.provider,
			Savings:          costFor(hotOnly, hotProvider) - cheapestHot.cost,
		}
	}
	var processingOverride *Override
	if cheapestProcessing := argmin(processingOnly); cheapestProcessing.provider != hotProvider {
		processingOverride = &Override{
			SelectedProvider: hotProvider,
			CheapestProvider: cheapestProcessing.provider,
			Savings:          costFor(processingOnly, hotProvider) - cheapestProcessing.cost,
		}
	}

	// Step 2: exhaustive 9-subpath enumeration (3 cool x 3 archive)
	// starting from the fixed Hot provider.
	type subpath struct {
		cool, archive string
		cost          float64
	}
	var subpaths []subpath
	for _, coolP := range present {
		coolCost := costs[coolP].CoolStorage.TotalCost + transfer.HotToCool[hotProvider][coolP]
		for _, archiveP := range present {
			archiveCost := costs[archiveP].ArchiveStorage.TotalCost + transfer.CoolToArchive[coolP][archiveP]
			subpaths = append(subpaths, subpath{coolP, archiveP, coolCost + archiveCost})
		}
	}
	sort.SliceStable(subpaths, func(i, j int) bool { return subpaths[i].cost < subpaths[j].cost })
	best := subpaths[0]

	var coolOverride *Override
	var coolOnly []option
	for _, p := range present {
		coolOnly = append(coolOnly, option{p, costs[p].CoolStorage.TotalCost})
	}
	if cheapestCool := argmin(coolOnly); cheapestCool.provider != best.cool {
		coolOverride = &Override{
			SelectedProvider: best.cool,
			CheapestProvider: cheapestCool.provider,
			Savings:          costFor(coolOnly, best.cool) - cheapestCool.cost,
		}
	}

	// Step 3: L1 argmin, adding connector+ingestion glue costs when L1
	// lands on a different provider than the Hot storage it feeds.
	var l1Options []option
	for _, p := range present {
		cost := costs[p].Ingestion.TotalCost + transfer.IngestionToHot[p][hotProvider]
		if p != hotProvider {
			cost += formula.ActionBased(prices[p].ConnectorFunctionPrice, glue.GlueExecutionsPerMonth)
			cost += formula.ActionBased(prices[hotProvider].IngestionFunctionPrice, glue.GlueExecutionsPerMonth)
		}
		l1Options = append(l1Options, option{p, cost})
	}
	l1Winner := argmin(l1Options)

	// Step 4: L4 argmin, adding API-gateway+reader glue costs (priced
	// against the Hot provider's rates) when L4 lands elsewhere.
	apiGatewayCost := formula.ActionBased(prices[hotProvider].APIGatewayPrice, glue.DashboardQueriesPerMonth)
	readerCost := formula.ActionBased(prices[hotProvider].ReaderFunctionPrice, glue.DashboardQueriesPerMonth)

	var l4Final, l4Only []option
	for _, p := range present {
		c := costs[p].TwinManagement
		if c.FutureWork {
			continue
		}
		l4Only = append(l4Only, option{p, c.TotalCost})
		final := c.TotalCost
		if p != hotProvider {
			final += apiGatewayCost + readerCost
		}
		l4Final = append(l4Final, option{p, final})
	}

	var l4Provider string
	var twinOverride *Override
	if len(l4Final) > 0 {
		l4Winner := argmin(l4Final)
		l4Provider = l4Winner.provider
		if cheapestL4 := argmin(l4Only); cheapestL4.provider != l4Provider {
			twinOverride = &Override{
				SelectedProvider: l4Provider,
				CheapestProvider: cheapestL4.provider,
				Savings:          costFor(l4Only, l4Provider) - cheapestL4.cost,
			}
		}
	}

	// Step 5: L5 is chosen independently, with no cross-cloud glue
	// penalty — a dashboard queries whichever storage serves it over
	// the open internet either way.
	var l5Options []option
	for _, p := range present {
		l5Options = append(l5Options, option{p, costs[p].Visualization.TotalCost})
	}
	l5Winner := argmin(l5Options)

	assignment := Assignment{
		L1:      l1Winner.provider,
		L2:      hotProvider,
		Hot:     hotProvider,
		Cool:    best.cool,
		Archive: best.archive,
		L4:      l4Provider,
		L5:      l5Winner.provider,
	}

	path := []string{assignment.L1, "Hot:" + assignment.Hot, "Cool:" + assignment.Cool, "Archive:" + assignment.Archive}
	if assignment.L4 != "" {
		path = append(path, "L4:"+assignment.L4)
	}
	path = append(path, "L5:"+assignment.L5)

	return Result{
		Assignment:            assignment,
		Path:                  path,
		ProcessingHotOverride: processingHotOverride,
		ProcessingOverride:    processingOverride,
		TwinOverride:          twinOverride,
		CoolOverride:          coolOverride,
	}
}

func presentProviders(costs map[string]ProviderCosts) []string {
	var present []string
	for _, p := range Providers {
		if _, ok := costs[p]; ok {
			present = append(present, p)
		}
	}
	return present
}
