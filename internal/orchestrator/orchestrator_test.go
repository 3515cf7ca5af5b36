package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tconfig "github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/lock"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/notify"
	"github.com/twin2multicloud/deployer/internal/registry"
)

type fakeStrategy struct {
	depctx.Strategy
	deployedLayers  []string
	destroyedLayers []string
	failLayer       string
	infoState       depctx.State
}

func (f *fakeStrategy) state() depctx.State {
	if f.infoState == "" {
		return depctx.StateReady
	}
	return f.infoState
}

func (f *fakeStrategy) DeployGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (string, string, error) {
	return "https://receiver.example/" + boundary, "tok-" + boundary, nil
}
func (f *fakeStrategy) DestroyGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) error {
	return nil
}
func (f *fakeStrategy) InfoGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (depctx.ResourceStatus, error) {
	return depctx.ResourceStatus{Present: true}, nil
}

func (f *fakeStrategy) deployStep(name string) error {
	f.deployedLayers = append(f.deployedLayers, name)
	if f.failLayer == name {
		return errors.New("simulated failure")
	}
	return nil
}
func (f *fakeStrategy) destroyStep(name string) error {
	f.destroyedLayers = append(f.destroyedLayers, name)
	return nil
}

func (f *fakeStrategy) DeployL1(context.Context, *depctx.DeploymentContext) error      { return f.deployStep("L1") }
func (f *fakeStrategy) DeployL2(context.Context, *depctx.DeploymentContext) error      { return f.deployStep("L2") }
func (f *fakeStrategy) DeployL3Hot(context.Context, *depctx.DeploymentContext) error    { return f.deployStep("L3_hot") }
func (f *fakeStrategy) DeployL3Cold(context.Context, *depctx.DeploymentContext) error   { return f.deployStep("L3_cold") }
func (f *fakeStrategy) DeployL3Archive(context.Context, *depctx.DeploymentContext) error { return f.deployStep("L3_archive") }
func (f *fakeStrategy) DeployL4(context.Context, *depctx.DeploymentContext) error       { return f.deployStep("L4") }
func (f *fakeStrategy) DeployL5(context.Context, *depctx.DeploymentContext) error       { return f.deployStep("L5") }

func (f *fakeStrategy) DestroyL5(context.Context, *depctx.DeploymentContext) error       { return f.destroyStep("L5") }
func (f *fakeStrategy) DestroyL4(context.Context, *depctx.DeploymentContext) error       { return f.destroyStep("L4") }
func (f *fakeStrategy) DestroyL3Archive(context.Context, *depctx.DeploymentContext) error { return f.destroyStep("L3_archive") }
func (f *fakeStrategy) DestroyL3Cold(context.Context, *depctx.DeploymentContext) error   { return f.destroyStep("L3_cold") }
func (f *fakeStrategy) DestroyL3Hot(context.Context, *depctx.DeploymentContext) error    { return f.destroyStep("L3_hot") }
func (f *fakeStrategy) DestroyL2(context.Context, *depctx.DeploymentContext) error       { return f.destroyStep("L2") }
func (f *fakeStrategy) DestroyL1(context.Context, *depctx.DeploymentContext) error       { return f.destroyStep("L1") }

func (f *fakeStrategy) InfoL1(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L1", State: f.state()}, nil
}
func (f *fakeStrategy) InfoL2(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L2", State: depctx.StateReady}, nil
}
func (f *fakeStrategy) InfoL3Hot(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L3_hot", State: depctx.StateReady}, nil
}
func (f *fakeStrategy) InfoL3Cold(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L3_cold", State: depctx.StateReady}, nil
}
func (f *fakeStrategy) InfoL3Archive(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L3_archive", State: depctx.StateReady}, nil
}
func (f *fakeStrategy) InfoL4(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L4", State: depctx.StateReady}, nil
}
func (f *fakeStrategy) InfoL5(context.Context, *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{Layer: "L5", State: depctx.StateReady}, nil
}

type fakeAdapter struct {
	name     string
	strategy *fakeStrategy
}

func (a *fakeAdapter) Name() string                                                { return a.name }
func (a *fakeAdapter) Initialize(context.Context, tconfig.Credentials, string) error { return nil }
func (a *fakeAdapter) Clients() depctx.ClientBundle                                { return nil }
func (a *fakeAdapter) Naming() naming.Naming                                       { return naming.New("twin") }
func (a *fakeAdapter) TwinExists(context.Context) (bool, error)                    { return false, nil }
func (a *fakeAdapter) Strategy() depctx.Strategy                                   { return a.strategy }

func testOrchestrator() *Orchestrator {
	return New(registry.New(), lock.NewProcessLocker(), nil, nil, nil, nil, nil)
}

func singleProviderContext(t *testing.T) (*depctx.DeploymentContext, *fakeAdapter) {
	t.Helper()
	dir := t.TempDir()
	aws := &fakeAdapter{name: "aws", strategy: &fakeStrategy{}}
	cfg := &tconfig.TwinConfig{
		TwinName: "twin",
		Providers: map[tconfig.LayerSlot]tconfig.Provider{
			tconfig.L1:        tconfig.AWS,
			tconfig.L2:        tconfig.AWS,
			tconfig.L3Hot:     tconfig.AWS,
			tconfig.L3Cold:    tconfig.AWS,
			tconfig.L3Archive: tconfig.AWS,
			tconfig.L4:        tconfig.AWS,
			tconfig.L5:        tconfig.AWS,
		},
	}
	dc := depctx.New("twin", dir, cfg, map[string]depctx.Adapter{"aws": aws}, nil, "run-1", nil)
	return dc, aws
}

func TestDeployAllRunsLayersInOrder(t *testing.T) {
	dc, aws := singleProviderContext(t)
	o := testOrchestrator()

	require.NoError(t, o.DeployAll(context.Background(), dc))
	assert.Equal(t, []string{"L1", "L2", "L3_hot", "L3_cold", "L3_archive", "L4", "L5"}, aws.strategy.deployedLayers)
}

func TestDeployAllStopsAtFirstFailure(t *testing.T) {
	dc, aws := singleProviderContext(t)
	aws.strategy.failLayer = "L3_hot"
	o := testOrchestrator()

	err := o.DeployAll(context.Background(), dc)
	require.Error(t, err)
	assert.Equal(t, []string{"L1", "L2", "L3_hot"}, aws.strategy.deployedLayers)
}

func TestDestroyAllRunsInReverseOrderAndAlwaysSweeps(t *testing.T) {
	dc, aws := singleProviderContext(t)
	o := testOrchestrator()

	reports, err := o.DestroyAll(context.Background(), dc, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"L5", "L4", "L3_archive", "L3_cold", "L3_hot", "L2", "L1"}, aws.strategy.destroyedLayers)
	assert.Contains(t, reports, "aws")
}

func TestInfoAllReturnsEveryAssignedLayer(t *testing.T) {
	dc, _ := singleProviderContext(t)
	o := testOrchestrator()

	layers, _, err := o.InfoAll(context.Background(), dc)
	require.NoError(t, err)
	assert.Len(t, layers, 7)
	assert.Equal(t, depctx.StateReady, layers[tconfig.L1].State)
}

func TestInfoAllSurvivesFailedPartialWithNoAlertsConfigured(t *testing.T) {
	dc, aws := singleProviderContext(t)
	aws.strategy.infoState = depctx.StateFailedPartial
	o := New(registry.New(), lock.NewProcessLocker(), nil, notify.New(notify.Config{}), nil, nil, nil)

	layers, _, err := o.InfoAll(context.Background(), dc)
	require.NoError(t, err)
	assert.Equal(t, depctx.StateFailedPartial, layers[tconfig.L1].State)
}
