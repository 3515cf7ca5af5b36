package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/twin2multicloud/deployer/internal/cleanup"
	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/cost"
	"github.com/twin2multicloud/deployer/internal/cost/solver"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
	"github.com/twin2multicloud/deployer/pkg/models"
)

func (c *CLI) deployCmd() *cobra.Command {
	var (
		projectPath  string
		progressAddr string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy every layer assigned in config_providers.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := runContext()
			defer cancel()

			o, hub, err := c.buildOrchestrator(progressAddr != "")
			if err != nil {
				return err
			}
			stopProgress := maybeServeProgress(progressAddr, hub)
			defer stopProgress()

			runID := newRunID()
			dc, err := o.Build(ctx, filepath.Base(projectPath), projectPath, runID)
			if err != nil {
				return err
			}

			started := time.Now()
			deployErr := o.DeployAll(ctx, dc)
			result := models.DeployResult{
				ProjectName: dc.ProjectName,
				RunID:       runID,
				Action:      "deploy",
				Success:     deployErr == nil,
				StartedAt:   started,
				FinishedAt:  time.Now(),
			}
			if deployErr != nil {
				result.Error = deployErr.Error()
			}
			printDeployResult(result)
			return deployErr
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "path to the project directory holding config*.json")
	cmd.Flags().StringVar(&progressAddr, "progress-addr", "", "optional host:port to serve live deploy progress over websocket (e.g. :8090)")
	return cmd
}

func (c *CLI) destroyCmd() *cobra.Command {
	var (
		projectPath string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down every deployed layer and sweep for orphaned resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := runContext()
			defer cancel()

			o, _, err := c.buildOrchestrator(false)
			if err != nil {
				return err
			}

			runID := newRunID()
			dc, err := o.Build(ctx, filepath.Base(projectPath), projectPath, runID)
			if err != nil {
				return err
			}

			started := time.Now()
			reports, destroyErr := o.DestroyAll(ctx, dc, dryRun)
			result := models.DeployResult{
				ProjectName: dc.ProjectName,
				RunID:       runID,
				Action:      "destroy",
				Success:     destroyErr == nil,
				StartedAt:   started,
				FinishedAt:  time.Now(),
			}
			if destroyErr != nil {
				result.Error = destroyErr.Error()
			}
			printDeployResult(result)
			printCleanupReports(reports, dryRun)
			return destroyErr
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "path to the project directory holding config*.json")
	cmd.Flags().BoolVar(&dryRun, "cleanup-dry-run", false, "report what the post-destroy sweep would delete without deleting it")
	return cmd
}

func (c *CLI) infoCmd() *cobra.Command {
	var (
		projectPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the current state of every layer and glue boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := runContext()
			defer cancel()

			o, _, err := c.buildOrchestrator(false)
			if err != nil {
				return err
			}

			dc, err := o.Build(ctx, filepath.Base(projectPath), projectPath, newRunID())
			if err != nil {
				return err
			}

			layers, glueStatus, err := o.InfoAll(ctx, dc)
			if err != nil {
				return err
			}

			summary := toTwinSummary(dc, layers, glueStatus)
			if asJSON {
				return printJSON(summary)
			}
			printTwinSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "path to the project directory holding config*.json")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON instead of a table")
	return cmd
}

func (c *CLI) costCmd() *cobra.Command {
	var (
		projectPath  string
		currencyCode string
		p            cost.Params
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Solve for the cheapest cross-cloud placement given a workload shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := runContext()
			defer cancel()

			providers, err := config.LoadProviders(projectPath)
			if err != nil {
				return err
			}
			prices, err := config.LoadPricing(projectPath)
			if err != nil {
				return err
			}

			present := presentProviders(providers)
			p.Currency = currencyCode

			solveStart := time.Now()
			result, err := cost.CalculateCheapestCosts(ctx, p, prices, present, solver.TransferMatrix{}, currencyClient(), c.log)
			c.metrics.ObserveSolve(time.Since(solveStart).Seconds())
			if err != nil {
				return err
			}
			printCostEstimate(toCostEstimate(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "path to the project directory holding config_providers.json/config_pricing.json")
	cmd.Flags().StringVar(&currencyCode, "currency", "USD", "USD or EUR")
	cmd.Flags().IntVar(&p.NumberOfDevices, "devices", 1000, "number of IoT devices sending telemetry")
	cmd.Flags().Float64Var(&p.DeviceSendingIntervalInMinutes, "interval-minutes", 5, "minutes between messages from one device")
	cmd.Flags().Float64Var(&p.AverageSizeOfMessageInKB, "message-size-kb", 2, "average message size in KB")
	cmd.Flags().Float64Var(&p.HotStorageDurationInMonths, "hot-months", 1, "months of data kept in hot storage")
	cmd.Flags().Float64Var(&p.CoolStorageDurationInMonths, "cool-months", 3, "months of data kept in cool storage")
	cmd.Flags().Float64Var(&p.ArchiveStorageDurationInMonths, "archive-months", 12, "months of data kept in archive storage")
	cmd.Flags().IntVar(&p.EntityCount, "entities", 1000, "number of twin entities modeled")
	cmd.Flags().Float64Var(&p.DashboardRefreshesPerHour, "dashboard-refreshes-per-hour", 12, "dashboard auto-refresh rate")
	cmd.Flags().Float64Var(&p.DashboardActiveHoursPerDay, "dashboard-hours-per-day", 8, "hours per day the dashboard is actively viewed")
	cmd.Flags().IntVar(&p.AmountOfActiveEditors, "editors", 2, "number of active dashboard editors")
	cmd.Flags().IntVar(&p.AmountOfActiveViewers, "viewers", 10, "number of active dashboard viewers")
	cmd.Flags().BoolVar(&p.Needs3DModel, "model-3d", false, "whether the twin needs a 3D model stored")
	cmd.Flags().Float64Var(&p.ModelStorageGB, "model-storage-gb", 0, "3D model storage size in GB, if model-3d is set")
	cmd.Flags().IntVar(&p.NumberOfDeviceTypes, "device-types", 1, "number of distinct device types")
	cmd.Flags().BoolVar(&p.UseEventChecking, "event-checking", false, "enable per-message event-rule evaluation")
	cmd.Flags().BoolVar(&p.TriggerNotificationWorkflow, "notification-workflow", false, "trigger a notification workflow on matched events")
	cmd.Flags().BoolVar(&p.ReturnFeedbackToDevice, "feedback-to-device", false, "send a feedback command back to the originating device")
	cmd.Flags().BoolVar(&p.IntegrateErrorHandling, "error-handling", false, "add dead-letter/error-handling actions to the processing layer")
	cmd.Flags().IntVar(&p.OrchestrationActionsPerMessage, "orchestration-actions", 0, "number of orchestration actions run per matched event")
	cmd.Flags().Float64Var(&p.EventsPerMessage, "events-per-message", 0, "average number of rule matches per ingested message")
	return cmd
}

func (c *CLI) validateCmd() *cobra.Command {
	var (
		projectPath string
		provider    string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check one provider's config_pricing.json entry is complete",
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := config.LoadPricing(projectPath)
			if err != nil {
				return err
			}
			result, err := cost.ValidateCredentials(provider, prices)
			if err != nil {
				return twinerrors.Validation(err.Error())
			}
			printCredentialValidation(models.CredentialValidation{
				Provider:    provider,
				Status:      result.Status,
				MissingKeys: result.MissingKeys,
			})
			if result.Status != "valid" {
				return twinerrors.Validation(fmt.Sprintf("%s pricing table is incomplete", provider))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "path to the project directory holding config_pricing.json")
	cmd.Flags().StringVar(&provider, "provider", "", "aws, azure, or gcp")
	cmd.MarkFlagRequired("provider")
	return cmd
}

// presentProviders maps config's registry-facing provider names (which
// use "google" to match depctx.Adapter.Name()/registry keys) onto the
// cost package's domain-facing labels (which use "gcp", inherited from
// engine.py's calculate_cheapest_costs). The Deployer Core and the Cost
// Optimizer Core are two distinct cores sharing only the Twin concept,
// so this translation lives at the CLI boundary between them rather
// than in either core.
func presentProviders(providers map[config.LayerSlot]config.Provider) map[string]bool {
	present := map[string]bool{}
	for _, p := range providers {
		switch p {
		case config.AWS:
			present["aws"] = true
		case config.Azure:
			present["azure"] = true
		case config.Google:
			present["gcp"] = true
		}
	}
	return present
}

func maybeServeProgress(addr string, hub interface{ ServeHTTP(http.ResponseWriter, *http.Request) }) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/progress", hub)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		fmt.Printf("Serving live deploy progress at ws://%s/progress\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, "progress server stopped:", err)
		}
	}()
	return func() {
		ctx, cancel := runContextWithTimeout(5 * time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toTwinSummary(dc *depctx.DeploymentContext, layers map[config.LayerSlot]depctx.LayerInfo, glueStatus map[string]depctx.ResourceStatus) models.TwinSummary {
	summary := models.TwinSummary{
		ProjectName: dc.ProjectName,
		RunID:       dc.RunID,
		GeneratedAt: time.Now(),
	}
	for _, slot := range config.AllLayerSlots {
		info, ok := layers[slot]
		if !ok {
			continue
		}
		summary.Layers = append(summary.Layers, models.LayerStatus{
			Layer:    info.Layer,
			Provider: info.Provider,
			State:    string(info.State),
		})
	}
	for boundary, status := range glueStatus {
		summary.Glue = append(summary.Glue, models.GlueStatus{
			Boundary: boundary,
			Present:  status.Present,
			Detail:   status.Detail,
		})
	}
	return summary
}

func toCostEstimate(result cost.Result) models.CostEstimate {
	placement := map[string]string{
		"L1": result.Placement.L1,
		"L2": result.Placement.L2,
		"L3_hot": result.Placement.Hot,
		"L3_cold": result.Placement.Cool,
		"L3_archive": result.Placement.Archive,
		"L4": result.Placement.L4,
		"L5": result.Placement.L5,
	}
	providerCosts := make(map[string]float64, len(result.ProviderCosts))
	for provider, c := range result.ProviderCosts {
		providerCosts[provider] = c.Ingestion.TotalCost + c.Processing.TotalCost + c.HotStorage.TotalCost +
			c.CoolStorage.TotalCost + c.ArchiveStorage.TotalCost + c.TwinManagement.TotalCost + c.Visualization.TotalCost
	}

	estimate := models.CostEstimate{
		Placement:      placement,
		MonthlyCostUSD: result.MonthlyCostUSD,
		Currency:       result.Currency,
		TotalCost:      result.TotalCost,
		ProviderCosts:  providerCosts,
	}
	for _, o := range []solverOverride{
		{"L2+L3_hot", "data gravity: processing stays with its hot-storage provider", result.Overrides.DataGravity},
		{"L2", "combined processing+hot-storage cost beat solving each alone", result.Overrides.Processing},
		{"L4", "twin management stays with its hot-storage provider", result.Overrides.TwinManagement},
		{"L3_cold", "combined hot+cool transfer cost beat the cheapest cool storage alone", result.Overrides.CoolStorage},
	} {
		if o.override == nil {
			continue
		}
		estimate.Overrides = append(estimate.Overrides, models.CostOverride{
			Layer:            o.layer,
			ChosenProvider:   o.override.SelectedProvider,
			CheapestProvider: o.override.CheapestProvider,
			Reason:           o.reason,
			ExtraCostUSD:     o.override.Savings,
		})
	}
	return estimate
}

type solverOverride struct {
	layer    string
	reason   string
	override *solver.Override
}

func printDeployResult(r models.DeployResult) {
	fmt.Printf("%s: project=%s run=%s success=%v (%s)\n", r.Action, r.ProjectName, r.RunID, r.Success, r.FinishedAt.Sub(r.StartedAt))
	if r.Error != "" {
		fmt.Println("error:", r.Error)
	}
}

func printCleanupReports(reports map[string]*cleanup.Report, dryRun bool) {
	if len(reports) == 0 {
		return
	}
	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Provider", "Found", verb, "Errors"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for provider, r := range reports {
		table.Append([]string{provider, fmt.Sprint(len(r.Found)), fmt.Sprint(len(r.Deleted)), fmt.Sprint(len(r.Errors))})
	}
	table.Render()
}

func printTwinSummary(s models.TwinSummary) {
	fmt.Printf("Twin: %s (run %s)\n\n", s.ProjectName, s.RunID)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Layer", "Provider", "State"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, l := range s.Layers {
		table.Append([]string{l.Layer, l.Provider, l.State})
	}
	table.Render()

	if len(s.Glue) == 0 {
		return
	}
	fmt.Println("\nGlue boundaries:")
	glueTable := tablewriter.NewWriter(os.Stdout)
	glueTable.SetHeader([]string{"Boundary", "Present"})
	glueTable.SetBorder(false)
	glueTable.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, g := range s.Glue {
		present := "✗"
		if g.Present {
			present = "✓"
		}
		glueTable.Append([]string{g.Boundary, present})
	}
	glueTable.Render()
}

func printCostEstimate(e models.CostEstimate) {
	fmt.Printf("Cheapest placement (%s/month):\n\n", e.Currency)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Layer", "Provider"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, slot := range []string{"L1", "L2", "L3_hot", "L3_cold", "L3_archive", "L4", "L5"} {
		table.Append([]string{slot, e.Placement[slot]})
	}
	table.Render()

	fmt.Printf("\nTotal: %.2f %s\n", e.TotalCost, e.Currency)
	for _, o := range e.Overrides {
		fmt.Printf("  override: %s kept on %s instead of cheaper %s (+%.2f) — %s\n",
			o.Layer, o.ChosenProvider, o.CheapestProvider, o.ExtraCostUSD, o.Reason)
	}
}

func printCredentialValidation(v models.CredentialValidation) {
	status := "✓ valid"
	if v.Status != "valid" {
		status = "✗ incomplete"
	}
	fmt.Printf("%s: %s\n", v.Provider, status)
	for _, key := range v.MissingKeys {
		fmt.Println("  missing:", key)
	}
}
