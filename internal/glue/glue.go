// Package glue implements the Glue Layer orchestration ("L0"): the
// cross-cloud HTTP receivers that stand in for Lambda's
// direct-invoke/EventBridge routing whenever two adjacent layers are
// assigned to different providers.
//
// L0 is deliberately not a config-assignable layer slot: it has no
// "layer_0_provider" entry in config_providers.json. Each boundary's
// receiver is deployed by whichever provider hosts the downstream
// layer, and its URL/token are persisted into config_inter_cloud.json
// so the upstream layer's sender can find them.
//
// Grounded on original_source/3-cloud-deployer/src/providers/aws/layers/l0_adapter.py,
// which enumerates the exact five boundaries this package checks, and
// on src/core/config_loader.py's save_inter_cloud_connection for the
// persistence step.
package glue

import (
	"context"
	"fmt"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Boundary names one potential cross-cloud hop between two adjacent
// layers, identified the way the original tool names its connection
// IDs.
type Boundary struct {
	ID       string
	Upstream config.LayerSlot
	Downstream config.LayerSlot
}

// Boundaries is the fixed set of adjacent-layer pairs the pipeline can
// ever need a receiver for. L4-to-L5 is deliberately absent: L5
// (visualization) reads from L4 through each provider's own native
// integration, never through a glue receiver.
var Boundaries = []Boundary{
	{ID: "l1_to_l2", Upstream: config.L1, Downstream: config.L2},
	{ID: "l2_to_l3hot", Upstream: config.L2, Downstream: config.L3Hot},
	{ID: "l3hot_to_l3cold", Upstream: config.L3Hot, Downstream: config.L3Cold},
	{ID: "l3cold_to_l3archive", Upstream: config.L3Cold, Downstream: config.L3Archive},
	{ID: "l3hot_to_l4", Upstream: config.L3Hot, Downstream: config.L4},
}

// CrossesProvider reports whether this boundary's two layers are
// assigned to different providers in cfg, which is precisely the
// condition under which a receiver must exist.
func (b Boundary) CrossesProvider(cfg *config.TwinConfig) bool {
	up := cfg.ProviderForLayer(b.Upstream)
	down := cfg.ProviderForLayer(b.Downstream)
	return up != config.None && down != config.None && up != down
}

// Deploy walks every boundary, deploying a receiver on the downstream
// layer's provider wherever the providers differ, and persists the
// resulting URL/token into config_inter_cloud.json. Boundaries whose
// two layers share a provider are skipped entirely: same-provider
// hops always use that provider's native direct-invoke path instead.
func Deploy(ctx context.Context, dc *depctx.DeploymentContext) error {
	file, err := config.LoadInterCloud(dc.ProjectPath)
	if err != nil {
		return err
	}
	if file.Connections == nil {
		file.Connections = map[string]config.InterCloudConn{}
	}

	deployed := 0
	for _, b := range Boundaries {
		if !b.CrossesProvider(dc.Config) {
			continue
		}
		log := dc.SetActiveLayer("L0")
		log.Info("deploying glue receiver", "boundary", b.ID)

		adapter, err := dc.GetProviderForLayer(b.Downstream)
		if err != nil {
			return err
		}
		url, token, err := adapter.Strategy().DeployGlueReceiver(ctx, dc, b.ID)
		if err != nil {
			return twinerrors.Deployment("L0", adapter.Name(), fmt.Sprintf("glue receiver %s failed", b.ID)).Wrap(err)
		}
		file.Connections[b.ID] = config.InterCloudConn{URL: url, Token: token}
		deployed++
	}

	if deployed == 0 {
		return nil
	}
	return config.SaveInterCloud(dc.ProjectPath, file)
}

// Destroy tears down every receiver whose boundary still crosses
// providers, in the reverse of the order Deploy created them, and drops their
// entries from config_inter_cloud.json.
func Destroy(ctx context.Context, dc *depctx.DeploymentContext) error {
	file, err := config.LoadInterCloud(dc.ProjectPath)
	if err != nil {
		return err
	}

	for i := len(Boundaries) - 1; i >= 0; i-- {
		b := Boundaries[i]
		if !b.CrossesProvider(dc.Config) {
			continue
		}
		adapter, err := dc.GetProviderForLayer(b.Downstream)
		if err != nil {
			return err
		}
		if err := adapter.Strategy().DestroyGlueReceiver(ctx, dc, b.ID); err != nil {
			return twinerrors.ResourceDeletion("L0", adapter.Name(), "glue-receiver", b.ID, err)
		}
		delete(file.Connections, b.ID)
	}
	return config.SaveInterCloud(dc.ProjectPath, file)
}

// Info reports the status of every boundary that currently crosses
// providers.
func Info(ctx context.Context, dc *depctx.DeploymentContext) (map[string]depctx.ResourceStatus, error) {
	result := make(map[string]depctx.ResourceStatus)
	for _, b := range Boundaries {
		if !b.CrossesProvider(dc.Config) {
			continue
		}
		adapter, err := dc.GetProviderForLayer(b.Downstream)
		if err != nil {
			return nil, err
		}
		status, err := adapter.Strategy().InfoGlueReceiver(ctx, dc, b.ID)
		if err != nil {
			return nil, err
		}
		result[b.ID] = status
	}
	return result, nil
}
