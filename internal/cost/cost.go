package cost

import (
	"context"
	"fmt"

	"github.com/twin2multicloud/deployer/internal/cost/component"
	"github.com/twin2multicloud/deployer/internal/cost/currency"
	"github.com/twin2multicloud/deployer/internal/cost/formula"
	"github.com/twin2multicloud/deployer/internal/cost/layer"
	"github.com/twin2multicloud/deployer/internal/cost/pricing"
	"github.com/twin2multicloud/deployer/internal/cost/solver"
	"github.com/twin2multicloud/deployer/internal/logging"
)

// Params captures every input the optimizer needs to cost and place a
// deployment, mirroring engine.py::calculate_cheapest_costs's params
// dict field-for-field.
type Params struct {
	NumberOfDevices                int
	DeviceSendingIntervalInMinutes float64
	AverageSizeOfMessageInKB       float64
	HotStorageDurationInMonths     float64
	CoolStorageDurationInMonths    float64
	ArchiveStorageDurationInMonths float64
	EntityCount                    int
	DashboardRefreshesPerHour      float64
	DashboardActiveHoursPerDay     float64
	AmountOfActiveEditors          int
	AmountOfActiveViewers          int
	Needs3DModel                   bool
	ModelStorageGB                 float64
	NumberOfDeviceTypes            int
	UseEventChecking               bool
	TriggerNotificationWorkflow    bool
	ReturnFeedbackToDevice         bool
	IntegrateErrorHandling         bool
	OrchestrationActionsPerMessage int
	EventsPerMessage               float64
	Currency                       string // "USD" (default) or "EUR"
}

// messagesPerMonth assumes every device sends on its configured
// interval for a full 730-hour month.
func (p Params) messagesPerMonth() float64 {
	return float64(p.NumberOfDevices) * (60 / p.DeviceSendingIntervalInMinutes) * 730
}

func (p Params) dataSizeGB(messages float64) float64 {
	return (messages * p.AverageSizeOfMessageInKB) / (1024 * 1024)
}

// Result is the optimizer's full output: the cheapest placement, its
// per-provider cost breakdowns, and every Data-Gravity override the
// placement triggered.
type Result struct {
	Placement      solver.Assignment
	Path           []string
	MonthlyCostUSD float64
	Currency       string
	TotalCost      float64
	ProviderCosts  map[string]solver.ProviderCosts
	Overrides      Overrides
}

// Overrides surfaces the solver's Override records under names that
// read naturally on a deployment plan rather than the solver's
// internal layer labels.
type Overrides struct {
	DataGravity    *solver.Override
	Processing     *solver.Override
	TwinManagement *solver.Override
	CoolStorage    *solver.Override
}

// CalculateCheapestCosts prices every present provider's full L1-L5
// stack, solves for the cheapest cross-cloud placement, and converts
// the total to params.Currency if it is "EUR" — falling back to USD
// with a logged warning if the rate lookup fails, never an error.
func CalculateCheapestCosts(ctx context.Context, params Params, prices pricing.Table, present map[string]bool, transfer solver.TransferMatrix, rates *currency.CachedClient, log *logging.Logger) (Result, error) {
	if log == nil {
		log = logging.NewNop()
	}

	validation := pricing.ValidateTable(prices, present)
	for provider, v := range validation {
		if v.Status != "valid" {
			return Result{}, fmt.Errorf("cost: invalid pricing data for %s, missing keys: %v", provider, v.MissingKeys)
		}
	}

	messages := params.messagesPerMonth()
	dataSizeGB := params.dataSizeGB(messages)
	writesPerMonth := messages
	readsPerMonth := messages * 0.1 // one query per ten ingested readings, a conservative dashboard/query ratio

	hotGB := dataSizeGB * params.HotStorageDurationInMonths
	coolGB := dataSizeGB * params.CoolStorageDurationInMonths
	archiveGB := dataSizeGB * params.ArchiveStorageDurationInMonths

	numQueries := params.DashboardActiveHoursPerDay * params.DashboardRefreshesPerHour * 30
	modelStorageGB := 0.0
	if params.Needs3DModel {
		modelStorageGB = params.ModelStorageGB
	}

	costs := map[string]solver.ProviderCosts{}
	pricesByProvider := map[string]pricing.ProviderPricing{}

	if present["aws"] {
		p := prices.AWS
		pricesByProvider["aws"] = p
		costs["aws"] = solver.ProviderCosts{
			Ingestion:      layer.L1AWS(p, float64(params.NumberOfDevices), messages, params.AverageSizeOfMessageInKB),
			Processing:     layer.L2("aws", p, processingParams(params, messages)),
			HotStorage:     layer.L3Hot("aws", p, writesPerMonth, readsPerMonth, hotGB, numQueries),
			CoolStorage:    layer.L3Cool("aws", p, coolGB, writesPerMonth, 0, 0),
			ArchiveStorage: layer.L3Archive("aws", p, archiveGB, writesPerMonth, 0, 0.02, 0),
			TwinManagement: layer.L4("aws", component.AWSTwin(p, float64(params.EntityCount), numQueries, numQueries, modelStorageGB), false),
			Visualization:  layer.L5("aws", component.AWSUser(p, float64(params.AmountOfActiveEditors), float64(params.AmountOfActiveViewers))),
		}
	}
	if present["azure"] {
		p := prices.Azure
		pricesByProvider["azure"] = p
		costs["azure"] = solver.ProviderCosts{
			Ingestion:      layer.L1Azure(p, messages, 1),
			Processing:     layer.L2("azure", p, processingParams(params, messages)),
			HotStorage:     layer.L3Hot("azure", p, writesPerMonth, readsPerMonth, hotGB, numQueries),
			CoolStorage:    layer.L3Cool("azure", p, coolGB, writesPerMonth, 0, 0),
			ArchiveStorage: layer.L3Archive("azure", p, archiveGB, writesPerMonth, 0, 0.02, 0),
			TwinManagement: layer.L4("azure", component.AzureTwin(p, numQueries, numQueries, messages), false),
			Visualization:  layer.L5("azure", component.AzureUser(p, float64(params.AmountOfActiveEditors), float64(params.AmountOfActiveViewers))),
		}
	}
	if present["gcp"] {
		p := prices.GCP
		pricesByProvider["gcp"] = p
		costs["gcp"] = solver.ProviderCosts{
			Ingestion:      layer.L1GCP(p, messages, params.AverageSizeOfMessageInKB),
			Processing:     layer.L2("gcp", p, processingParams(params, messages)),
			HotStorage:     layer.L3Hot("gcp", p, writesPerMonth, readsPerMonth, hotGB, numQueries),
			CoolStorage:    layer.L3Cool("gcp", p, coolGB, writesPerMonth, 0, 0),
			ArchiveStorage: layer.L3Archive("gcp", p, archiveGB, writesPerMonth, 0, 0.02, 0),
			// GCP carries no digital-twin service in this deployer; L4 is
			// explicit future work rather than a silently-missing cost.
			TwinManagement: layer.L4("gcp", 0, true),
			Visualization:  layer.L5("gcp", component.GCPUser(p, float64(params.AmountOfActiveEditors), float64(params.AmountOfActiveViewers))),
		}
	}

	if transfer.IngestionToHot == nil && transfer.HotToCool == nil && transfer.CoolToArchive == nil {
		transfer = autoTransferMatrix(pricesByProvider, dataSizeGB, hotGB, coolGB)
	}

	glueExecutions := float64(params.NumberOfDevices) * (60 / params.DeviceSendingIntervalInMinutes) * 730
	solved := solver.Solve(costs, pricesByProvider, transfer, solver.GlueParams{
		GlueExecutionsPerMonth:   glueExecutions,
		DashboardQueriesPerMonth: numQueries,
	})

	total := totalCost(costs, solved.Assignment)

	result := Result{
		Placement:      solved.Assignment,
		Path:           solved.Path,
		MonthlyCostUSD: total,
		Currency:       "USD",
		TotalCost:      total,
		ProviderCosts:  costs,
		Overrides: Overrides{
			DataGravity:    solved.ProcessingHotOverride,
			Processing:     solved.ProcessingOverride,
			TwinManagement: solved.TwinOverride,
			CoolStorage:    solved.CoolOverride,
		},
	}

	if params.Currency == "EUR" && rates != nil {
		rate, err := rates.USDToEUR(ctx)
		if err != nil {
			log.Warn("cost: currency conversion failed, reporting USD", "error", err)
			return result, nil
		}
		result.TotalCost = formula.Round12(currency.Convert(total, rate))
		result.Currency = "EUR"
	}

	return result, nil
}

// autoTransferMatrix builds the cross-cloud egress costs a caller
// didn't supply one of, from each present provider's own transfer
// price and the data volume crossing that hop. Same-provider hops
// cost nothing: an intra-cloud move never leaves the provider's
// network. Grounded on
// original_source/2-twin2clouds/backend/calculation/engine.py's
// per-pair transfer_cost_from_* helpers, which likewise price a hop
// only when source and destination clouds differ.
func autoTransferMatrix(prices map[string]pricing.ProviderPricing, ingestGB, hotGB, coolGB float64) solver.TransferMatrix {
	return solver.TransferMatrix{
		IngestionToHot: egressGrid(prices, ingestGB),
		HotToCool:      egressGrid(prices, hotGB),
		CoolToArchive:  egressGrid(prices, coolGB),
	}
}

func egressGrid(prices map[string]pricing.ProviderPricing, gb float64) map[string]map[string]float64 {
	grid := make(map[string]map[string]float64, len(prices))
	for from, p := range prices {
		row := make(map[string]float64, len(prices))
		for to := range prices {
			if to == from {
				row[to] = 0
				continue
			}
			row[to] = formula.Transfer(egressPrice(p, to), gb)
		}
		grid[from] = row
	}
	return grid
}

func egressPrice(p pricing.ProviderPricing, to string) float64 {
	switch to {
	case "aws":
		return p.TransferToAWSPrice
	case "azure":
		return p.TransferToAzurePrice
	case "gcp":
		return p.TransferToGCPPrice
	default:
		return 0
	}
}

func processingParams(params Params, messages float64) layer.ProcessingParams {
	return layer.ProcessingParams{
		ExecutionsPerMonth:          messages,
		NumberOfDeviceTypes:         params.NumberOfDeviceTypes,
		UseEventChecking:            params.UseEventChecking,
		TriggerNotificationWorkflow: params.TriggerNotificationWorkflow,
		ReturnFeedbackToDevice:      params.ReturnFeedbackToDevice,
		IntegrateErrorHandling:      params.IntegrateErrorHandling,
		NumEventActions:             params.OrchestrationActionsPerMessage,
		EventsPerMessage:            params.EventsPerMessage,
		EventTriggerRate:            0.1,
	}
}

func totalCost(costs map[string]solver.ProviderCosts, a solver.Assignment) float64 {
	total := costs[a.L1].Ingestion.TotalCost
	total += costs[a.L2].Processing.TotalCost
	total += costs[a.Hot].HotStorage.TotalCost
	total += costs[a.Cool].CoolStorage.TotalCost
	total += costs[a.Archive].ArchiveStorage.TotalCost
	if a.L4 != "" {
		total += costs[a.L4].TwinManagement.TotalCost
	}
	total += costs[a.L5].Visualization.TotalCost
	return total
}

// ValidateCredentials checks that a provider's required pricing keys
// are present before any deployment or cost calculation is attempted,
// so a missing rate surfaces before a deploy begins rather than mid-run.
func ValidateCredentials(provider string, table pricing.Table) (pricing.ValidationResult, error) {
	switch provider {
	case "aws":
		return pricing.Validate(provider, table.AWS), nil
	case "azure":
		return pricing.Validate(provider, table.Azure), nil
	case "gcp":
		return pricing.Validate(provider, table.GCP), nil
	default:
		return pricing.ValidationResult{}, fmt.Errorf("cost: unknown provider %q", provider)
	}
}
