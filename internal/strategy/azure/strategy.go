// Package azure implements the Azure layer strategy and this
// provider's Glue receiver.
//
// Grounded on original_source/3-cloud-deployer/src/providers/azure/deployer_strategy.py
// and src/providers/azure/layers/layer_*.py for the per-layer resource
// list; the Digital Twins DTDL/NDJSON coupling is implemented in
// internal/postdeploy, called from DeployL4 here after the
// IaC-provisioned instance exists.
package azure

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azdigitaltwins/azdigitaltwins"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cosmos/armcosmos"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dashboard/armdashboard"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/iothub/armiothub"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/cenkalti/backoff/v4"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/iac"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/postdeploy"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

const (
	keyResources      = "resources"
	keyIoTHub         = "iothub"
	keyAppService     = "appservice"
	keyCosmos         = "cosmos"
	keyDashboard      = "dashboard"
	keyBlob           = "blob"
	keyDigitalTwins   = "digitaltwins"
	keyResourceGroup  = "resource_group"
)

// Strategy is the Azure depctx.Strategy implementation.
type Strategy struct {
	clients depctx.ClientBundle
	n       naming.Naming
}

func New(clients depctx.ClientBundle, n naming.Naming) *Strategy {
	return &Strategy{clients: clients, n: n}
}

func (s *Strategy) rg() string { rg, _ := s.clients[keyResourceGroup].(string); return rg }
func (s *Strategy) iotHub() *armiothub.ResourceClient { c, _ := s.clients[keyIoTHub].(*armiothub.ResourceClient); return c }
func (s *Strategy) appService() *armappservice.WebAppsClient {
	c, _ := s.clients[keyAppService].(*armappservice.WebAppsClient)
	return c
}
func (s *Strategy) cosmos() *armcosmos.DatabaseAccountsClient {
	c, _ := s.clients[keyCosmos].(*armcosmos.DatabaseAccountsClient)
	return c
}
func (s *Strategy) dashboard() *armdashboard.GrafanaClient {
	c, _ := s.clients[keyDashboard].(*armdashboard.GrafanaClient)
	return c
}
func (s *Strategy) blob() *azblob.Client { c, _ := s.clients[keyBlob].(*azblob.Client); return c }
func (s *Strategy) digitalTwins() *azdigitaltwins.Client {
	c, _ := s.clients[keyDigitalTwins].(*azdigitaltwins.Client)
	return c
}

func (s *Strategy) moduleDir(dc *depctx.DeploymentContext, layer string) string {
	return filepath.Join(dc.ProjectPath, "terraform", "azure", layer)
}

func (s *Strategy) driver(dc *depctx.DeploymentContext, layer string) *iac.Driver {
	return iac.New("", dc.SetActiveLayer(layer))
}

func retry(ctx context.Context, op func() error) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

// --- Layer 1: Data Acquisition (IoT Hub) ------------------------------------

func (s *Strategy) DeployL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l1")
	vars := map[string]interface{}{
		"twin_name":       s.n.Twin,
		"resource_group":  s.rg(),
		"hub_name":        s.n.IotRole(),
		"dispatcher_name": s.n.DispatcherFn(),
	}
	if err := s.driver(dc, "L1").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L1", "azure", "IaC apply failed for IoT Hub/dispatcher baseline").Wrap(err)
	}
	return retry(ctx, func() error {
		_, err := s.iotHub().Get(ctx, s.rg(), s.n.IotRole(), nil)
		return err
	})
}

func (s *Strategy) DestroyL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L1").Destroy(ctx, s.moduleDir(dc, "l1"), nil); err != nil {
		return twinerrors.ResourceDeletion("L1", "azure", "iothub", s.n.IotRole(), err)
	}
	return nil
}

func (s *Strategy) InfoL1(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L1", Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.iotHub().Get(ctx, s.rg(), s.n.IotRole(), nil)
	info.Resources["iot_hub"] = statusFromErr(err)
	_, err = s.appService().Get(ctx, s.rg(), s.n.DispatcherFn(), nil)
	info.Resources["dispatcher"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 2: Processing (Function App on a dedicated plan) ----------------

func (s *Strategy) DeployL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l2")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"resource_group": s.rg(),
		"persister_name": s.n.PersisterFn(),
		"shared_plan":    false, // dedicated app-service plan per twin; see DESIGN.md Open Question
	}
	if err := s.driver(dc, "L2").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L2", "azure", "IaC apply failed for persister function app").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L2").Destroy(ctx, s.moduleDir(dc, "l2"), nil); err != nil {
		return twinerrors.ResourceDeletion("L2", "azure", "function-app", s.n.PersisterFn(), err)
	}
	return nil
}

func (s *Strategy) InfoL2(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L2", Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.appService().Get(ctx, s.rg(), s.n.PersisterFn(), nil)
	info.Resources["persister"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 3: Storage --------------------------------------------------------

func (s *Strategy) DeployL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l3_hot")
	vars := map[string]interface{}{
		"twin_name":       s.n.Twin,
		"resource_group":  s.rg(),
		"cosmos_account":  s.n.HotTable(),
	}
	if err := s.driver(dc, "L3_hot").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L3_hot", "azure", "IaC apply failed for Cosmos DB hot account").Wrap(err)
	}
	return retry(ctx, func() error {
		_, err := s.cosmos().Get(ctx, s.rg(), s.n.HotTable(), nil)
		return err
	})
}

func (s *Strategy) DestroyL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_hot").Destroy(ctx, s.moduleDir(dc, "l3_hot"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_hot", "azure", "cosmosdb-account", s.n.HotTable(), err)
	}
	return nil
}

func (s *Strategy) InfoL3Hot(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L3_hot", Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.cosmos().Get(ctx, s.rg(), s.n.HotTable(), nil)
	info.Resources["cosmos_account"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

func (s *Strategy) deployContainerTier(ctx context.Context, dc *depctx.DeploymentContext, layer, container string) error {
	dir := s.moduleDir(dc, layer)
	vars := map[string]interface{}{
		"twin_name":       s.n.Twin,
		"resource_group":  s.rg(),
		"storage_account": s.n.StorageAccount(),
		"container_name":  container,
	}
	if err := s.driver(dc, layer).Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment(layer, "azure", "IaC apply failed for "+container).Wrap(err)
	}
	return nil
}

func (s *Strategy) DeployL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployContainerTier(ctx, dc, "L3_cold", s.n.CoolBucket())
}
func (s *Strategy) DestroyL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_cold").Destroy(ctx, s.moduleDir(dc, "l3_cold"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_cold", "azure", "blob-container", s.n.CoolBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Cold(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoContainer(ctx, "L3_cold", s.n.CoolBucket())
}

func (s *Strategy) DeployL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployContainerTier(ctx, dc, "L3_archive", s.n.ArchiveBucket())
}
func (s *Strategy) DestroyL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_archive").Destroy(ctx, s.moduleDir(dc, "l3_archive"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_archive", "azure", "blob-container", s.n.ArchiveBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Archive(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoContainer(ctx, "L3_archive", s.n.ArchiveBucket())
}

func (s *Strategy) infoContainer(ctx context.Context, layer, container string) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: layer, Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	pager := s.blob().NewListContainersPager(nil)
	present := false
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			info.Resources["container"] = depctx.ResourceStatus{Present: false, Detail: err.Error()}
			info.State = stateFromResources(info.Resources)
			return info, nil
		}
		for _, c := range page.ContainerItems {
			if c.Name != nil && *c.Name == container {
				present = true
			}
		}
	}
	info.Resources["container"] = depctx.ResourceStatus{Present: present}
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 4: Twin Management (Azure Digital Twins) -------------------------

func (s *Strategy) DeployL4(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l4")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"resource_group": s.rg(),
		"instance_name":  s.n.DigitalTwinsInstance(),
	}
	if err := s.driver(dc, "L4").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L4", "azure", "IaC apply failed for Digital Twins instance").Wrap(err)
	}

	if err := retry(ctx, func() error {
		_, err := s.digitalTwins().GetDigitalTwin(ctx, s.n.EntityName(""), nil)
		if err != nil && !isNotFound(err) {
			return err
		}
		return nil
	}); err != nil {
		return err
	}

	if len(dc.Config.Hierarchy) == 0 {
		return nil
	}
	return postdeploy.UploadHierarchy(ctx, dc, dc.Config.Hierarchy)
}

func (s *Strategy) DestroyL4(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L4").Destroy(ctx, s.moduleDir(dc, "l4"), nil); err != nil {
		return twinerrors.ResourceDeletion("L4", "azure", "digitaltwins-instance", s.n.DigitalTwinsInstance(), err)
	}
	return nil
}

func (s *Strategy) InfoL4(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L4", Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.digitalTwins().GetDigitalTwin(ctx, s.n.EntityName(""), nil)
	info.Resources["twin_instance"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 5: Visualization (Azure Managed Grafana) -------------------------

func (s *Strategy) DeployL5(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l5")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"resource_group": s.rg(),
		"workspace_name": s.n.GrafanaWorkspace(),
	}
	if err := s.driver(dc, "L5").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L5", "azure", "IaC apply failed for Grafana workspace").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL5(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L5").Destroy(ctx, s.moduleDir(dc, "l5"), nil); err != nil {
		return twinerrors.ResourceDeletion("L5", "azure", "grafana-workspace", s.n.GrafanaWorkspace(), err)
	}
	return nil
}

func (s *Strategy) InfoL5(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L5", Provider: "azure", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.dashboard().Get(ctx, s.rg(), s.n.GrafanaWorkspace(), nil)
	info.Resources["workspace"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Glue receiver (4.I, Azure side) ----------------------------------------

func (s *Strategy) DeployGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (string, string, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	dir := s.moduleDir(dc, "l0_"+boundary)
	vars := map[string]interface{}{"twin_name": s.n.Twin, "resource_group": s.rg(), "receiver_name": fnName}
	if err := s.driver(dc, "L0").Apply(ctx, dir, vars); err != nil {
		return "", "", twinerrors.Deployment("L0", "azure", "IaC apply failed for glue receiver "+boundary).Wrap(err)
	}

	app, err := s.appService().Get(ctx, s.rg(), fnName, nil)
	if err != nil {
		return "", "", twinerrors.ResourceCreation("L0", "azure", "function-app", fnName, err)
	}
	url := ""
	if app.Properties != nil && app.Properties.DefaultHostName != nil {
		url = fmt.Sprintf("https://%s", *app.Properties.DefaultHostName)
	}

	token, err := randomToken()
	if err != nil {
		return "", "", twinerrors.New(twinerrors.KindResourceCreation, "failed to generate glue token").Layer("L0").Provider("azure").Wrap(err).Err()
	}
	return url, token, nil
}

func (s *Strategy) DestroyGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) error {
	if err := s.driver(dc, "L0").Destroy(ctx, s.moduleDir(dc, "l0_"+boundary), nil); err != nil {
		return twinerrors.ResourceDeletion("L0", "azure", "glue-receiver", boundary, err)
	}
	return nil
}

func (s *Strategy) InfoGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (depctx.ResourceStatus, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	_, err := s.appService().Get(ctx, s.rg(), fnName, nil)
	return statusFromErr(err), nil
}

// --- shared helpers ----------------------------------------------------------

func statusFromErr(err error) depctx.ResourceStatus {
	if err == nil {
		return depctx.ResourceStatus{Present: true}
	}
	if isNotFound(err) {
		return depctx.ResourceStatus{Present: false}
	}
	return depctx.ResourceStatus{Present: false, Detail: err.Error()}
}

func stateFromResources(resources map[string]depctx.ResourceStatus) depctx.State {
	if len(resources) == 0 {
		return depctx.StateNotDeployed
	}
	all, any := true, false
	for _, r := range resources {
		if r.Present {
			any = true
		} else {
			all = false
		}
	}
	switch {
	case all:
		return depctx.StateReady
	case any:
		return depctx.StateFailedPartial
	default:
		return depctx.StateNotDeployed
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
