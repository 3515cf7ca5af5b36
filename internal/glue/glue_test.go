package glue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tconfig "github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/naming"
)

type fakeStrategy struct {
	depctx.Strategy
	deployed  map[string]bool
	destroyed map[string]bool
}

func newFakeStrategy() *fakeStrategy {
	return &fakeStrategy{deployed: map[string]bool{}, destroyed: map[string]bool{}}
}

func (f *fakeStrategy) DeployGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (string, string, error) {
	f.deployed[boundary] = true
	return "https://receiver.example/" + boundary, "tok-" + boundary, nil
}

func (f *fakeStrategy) DestroyGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) error {
	f.destroyed[boundary] = true
	return nil
}

func (f *fakeStrategy) InfoGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (depctx.ResourceStatus, error) {
	return depctx.ResourceStatus{Present: f.deployed[boundary]}, nil
}

type fakeAdapter struct {
	name     string
	strategy *fakeStrategy
}

func (a *fakeAdapter) Name() string                                              { return a.name }
func (a *fakeAdapter) Initialize(context.Context, tconfig.Credentials, string) error { return nil }
func (a *fakeAdapter) Clients() depctx.ClientBundle                              { return nil }
func (a *fakeAdapter) Naming() naming.Naming                                     { return naming.New("twin") }
func (a *fakeAdapter) TwinExists(context.Context) (bool, error)                  { return false, nil }
func (a *fakeAdapter) Strategy() depctx.Strategy                                 { return a.strategy }

func testContext(t *testing.T, providers map[tconfig.LayerSlot]tconfig.Provider) (*depctx.DeploymentContext, *fakeAdapter, *fakeAdapter) {
	t.Helper()
	dir := t.TempDir()

	aws := &fakeAdapter{name: "aws", strategy: newFakeStrategy()}
	azure := &fakeAdapter{name: "azure", strategy: newFakeStrategy()}

	cfg := &tconfig.TwinConfig{TwinName: "twin", Providers: providers}
	dc := depctx.New("twin", dir, cfg, map[string]depctx.Adapter{"aws": aws, "azure": azure}, nil, "run-1", nil)
	return dc, aws, azure
}

func TestCrossesProviderDetection(t *testing.T) {
	b := Boundaries[0]
	cfg := &tconfig.TwinConfig{Providers: map[tconfig.LayerSlot]tconfig.Provider{
		tconfig.L1: tconfig.AWS,
		tconfig.L2: tconfig.Azure,
	}}
	assert.True(t, b.CrossesProvider(cfg))

	cfg.Providers[tconfig.L2] = tconfig.AWS
	assert.False(t, b.CrossesProvider(cfg))
}

func TestDeployOnlyCreatesReceiversForCrossingBoundaries(t *testing.T) {
	dc, _, azure := testContext(t, map[tconfig.LayerSlot]tconfig.Provider{
		tconfig.L1:        tconfig.AWS,
		tconfig.L2:        tconfig.Azure,
		tconfig.L3Hot:     tconfig.Azure,
		tconfig.L3Cold:    tconfig.Azure,
		tconfig.L3Archive: tconfig.Azure,
		tconfig.L4:        tconfig.Azure,
	})

	require.NoError(t, Deploy(context.Background(), dc))

	assert.True(t, azure.strategy.deployed["l1_to_l2"])
	assert.False(t, azure.strategy.deployed["l2_to_l3hot"])

	file, err := tconfig.LoadInterCloud(dc.ProjectPath)
	require.NoError(t, err)
	conn, ok := file.Connections["l1_to_l2"]
	require.True(t, ok)
	assert.Equal(t, "https://receiver.example/l1_to_l2", conn.URL)
}

func TestDestroyRemovesPersistedConnections(t *testing.T) {
	dc, _, azure := testContext(t, map[tconfig.LayerSlot]tconfig.Provider{
		tconfig.L1: tconfig.AWS,
		tconfig.L2: tconfig.Azure,
	})
	require.NoError(t, Deploy(context.Background(), dc))
	require.NoError(t, Destroy(context.Background(), dc))

	assert.True(t, azure.strategy.destroyed["l1_to_l2"])
	file, err := tconfig.LoadInterCloud(dc.ProjectPath)
	require.NoError(t, err)
	_, ok := file.Connections["l1_to_l2"]
	assert.False(t, ok)
}

func TestInfoReportsOnlyCrossingBoundaries(t *testing.T) {
	dc, _, _ := testContext(t, map[tconfig.LayerSlot]tconfig.Provider{
		tconfig.L1: tconfig.AWS,
		tconfig.L2: tconfig.AWS,
	})
	statuses, err := Info(context.Background(), dc)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
