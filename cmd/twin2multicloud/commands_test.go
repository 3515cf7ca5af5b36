package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/cost"
	"github.com/twin2multicloud/deployer/internal/cost/layer"
	"github.com/twin2multicloud/deployer/internal/cost/solver"
	"github.com/twin2multicloud/deployer/internal/depctx"
)

func TestPresentProvidersMapsGoogleToGCP(t *testing.T) {
	providers := map[config.LayerSlot]config.Provider{
		config.L1:        config.AWS,
		config.L2:        config.Azure,
		config.L3Hot:     config.Google,
		config.L3Cold:    config.Google,
		config.L3Archive: config.None,
	}

	present := presentProviders(providers)

	assert.Equal(t, map[string]bool{"aws": true, "azure": true, "gcp": true}, present)
}

func TestPresentProvidersIgnoresNone(t *testing.T) {
	providers := map[config.LayerSlot]config.Provider{
		config.L1: config.None,
	}

	present := presentProviders(providers)

	assert.Empty(t, present)
}

func TestToCostEstimateMapsPlacementAndTotals(t *testing.T) {
	result := cost.Result{
		Placement: solver.Assignment{
			L1: "aws", L2: "aws", Hot: "aws", Cool: "azure", Archive: "azure", L4: "aws", L5: "gcp",
		},
		Currency:       "USD",
		MonthlyCostUSD: 123.45,
		TotalCost:      123.45,
		ProviderCosts: map[string]solver.ProviderCosts{
			"aws": {
				Ingestion:      layer.Result{TotalCost: 10},
				Processing:     layer.Result{TotalCost: 20},
				HotStorage:     layer.Result{TotalCost: 5},
				CoolStorage:    layer.Result{TotalCost: 0},
				ArchiveStorage: layer.Result{TotalCost: 0},
				TwinManagement: layer.Result{TotalCost: 8},
				Visualization:  layer.Result{TotalCost: 2},
			},
		},
	}

	estimate := toCostEstimate(result)

	assert.Equal(t, "aws", estimate.Placement["L1"])
	assert.Equal(t, "azure", estimate.Placement["L3_cold"])
	assert.Equal(t, "gcp", estimate.Placement["L5"])
	assert.Equal(t, 123.45, estimate.TotalCost)
	assert.Equal(t, 45.0, estimate.ProviderCosts["aws"])
	assert.Empty(t, estimate.Overrides)
}

func TestToCostEstimateRecordsOverrides(t *testing.T) {
	result := cost.Result{
		Placement: solver.Assignment{L1: "aws", L2: "aws", Hot: "aws", Cool: "aws", Archive: "aws", L4: "aws", L5: "aws"},
		Currency:  "USD",
		Overrides: cost.Overrides{
			DataGravity: &solver.Override{SelectedProvider: "aws", CheapestProvider: "azure", Savings: 3.5},
		},
	}

	estimate := toCostEstimate(result)

	if assert.Len(t, estimate.Overrides, 1) {
		o := estimate.Overrides[0]
		assert.Equal(t, "L2+L3_hot", o.Layer)
		assert.Equal(t, "aws", o.ChosenProvider)
		assert.Equal(t, "azure", o.CheapestProvider)
		assert.Equal(t, 3.5, o.ExtraCostUSD)
	}
}

func TestToTwinSummaryCollectsLayersAndGlue(t *testing.T) {
	dc := &depctx.DeploymentContext{ProjectName: "factory-twin", RunID: "run-1"}
	layers := map[config.LayerSlot]depctx.LayerInfo{
		config.L1: {Layer: "L1", Provider: "aws", State: depctx.StateReady},
	}
	glueStatus := map[string]depctx.ResourceStatus{
		"aws->azure": {Present: true, Detail: "receiver live"},
	}

	summary := toTwinSummary(dc, layers, glueStatus)

	assert.Equal(t, "factory-twin", summary.ProjectName)
	assert.Equal(t, "run-1", summary.RunID)
	if assert.Len(t, summary.Layers, 1) {
		assert.Equal(t, "aws", summary.Layers[0].Provider)
	}
	if assert.Len(t, summary.Glue, 1) {
		assert.True(t, summary.Glue[0].Present)
	}
}

func TestMaybeServeProgressNoAddrReturnsNoop(t *testing.T) {
	stop := maybeServeProgress("", nil)
	assert.NotPanics(t, stop)
}
