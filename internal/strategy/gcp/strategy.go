// Package gcp implements the GCP layer strategy for L1-L3.
//
// Grounded on original_source/3-cloud-deployer/src/providers/gcp/deployer_strategy.py
// (a stub in the original — GCP was Terraform-only and info-only there)
// and src/providers/gcp/naming.py for the per-layer resource names.
// L4/L5 have no native GCP Digital Twin or Grafana-equivalent managed
// service in scope, so they return an explicit FutureWork marker rather
// than silently doing nothing (see DESIGN.md Open Question decision).
package gcp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"path/filepath"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/cloudfunctions/v2"
	"google.golang.org/api/googleapi"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/iac"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

const (
	keyPubSub         = "pubsub"
	keyStorage        = "storage"
	keyFirestore      = "firestore"
	keyCloudFunctions = "cloudfunctions"
	keyProjectID      = "project_id"
	keyRegion         = "region"
)

// Strategy is the GCP depctx.Strategy implementation.
type Strategy struct {
	clients depctx.ClientBundle
	n       naming.Naming
}

func New(clients depctx.ClientBundle, n naming.Naming) *Strategy {
	return &Strategy{clients: clients, n: n}
}

func (s *Strategy) projectID() string { p, _ := s.clients[keyProjectID].(string); return p }
func (s *Strategy) pubsubc() *pubsub.Client { c, _ := s.clients[keyPubSub].(*pubsub.Client); return c }
func (s *Strategy) storagec() *storage.Client { c, _ := s.clients[keyStorage].(*storage.Client); return c }
func (s *Strategy) firestorec() *firestore.Client {
	c, _ := s.clients[keyFirestore].(*firestore.Client)
	return c
}
func (s *Strategy) functionsc() *cloudfunctions.Service {
	c, _ := s.clients[keyCloudFunctions].(*cloudfunctions.Service)
	return c
}

func (s *Strategy) moduleDir(dc *depctx.DeploymentContext, layer string) string {
	return filepath.Join(dc.ProjectPath, "terraform", "gcp", layer)
}

func (s *Strategy) driver(dc *depctx.DeploymentContext, layer string) *iac.Driver {
	return iac.New("", dc.SetActiveLayer(layer))
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 404
	}
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}

// --- Layer 1: Data Acquisition (Pub/Sub) ------------------------------------

func (s *Strategy) DeployL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l1")
	vars := map[string]interface{}{
		"twin_name":       s.n.Twin,
		"project_id":      s.projectID(),
		"telemetry_topic": s.n.Twin + "-telemetry",
		"events_topic":    s.n.Twin + "-events",
		"dispatcher_name": s.n.DispatcherFn(),
	}
	if err := s.driver(dc, "L1").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L1", "google", "IaC apply failed for Pub/Sub topics and dispatcher").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L1").Destroy(ctx, s.moduleDir(dc, "l1"), nil); err != nil {
		return twinerrors.ResourceDeletion("L1", "google", "pubsub-topic", s.n.Twin+"-telemetry", err)
	}
	return nil
}

func (s *Strategy) InfoL1(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L1", Provider: "google", Resources: map[string]depctx.ResourceStatus{}}
	for key, topic := range map[string]string{"telemetry_topic": s.n.Twin + "-telemetry", "events_topic": s.n.Twin + "-events"} {
		ok, err := s.pubsubc().Topic(topic).Exists(ctx)
		if err != nil {
			info.Resources[key] = depctx.ResourceStatus{Present: false, Detail: err.Error()}
			continue
		}
		info.Resources[key] = depctx.ResourceStatus{Present: ok}
	}
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 2: Processing (Cloud Functions) ----------------------------------

func (s *Strategy) DeployL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l2")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"project_id":     s.projectID(),
		"persister_name": s.n.PersisterFn(),
	}
	if err := s.driver(dc, "L2").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L2", "google", "IaC apply failed for persister function").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L2").Destroy(ctx, s.moduleDir(dc, "l2"), nil); err != nil {
		return twinerrors.ResourceDeletion("L2", "google", "cloud-function", s.n.PersisterFn(), err)
	}
	return nil
}

func (s *Strategy) InfoL2(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L2", Provider: "google", Resources: map[string]depctx.ResourceStatus{}}
	name := "projects/" + s.projectID() + "/locations/" + s.regionOrDefault() + "/functions/" + s.n.PersisterFn()
	_, err := s.functionsc().Projects.Locations.Functions.Get(name).Context(ctx).Do()
	info.Resources["persister"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

func (s *Strategy) regionOrDefault() string {
	r, _ := s.clients[keyRegion].(string)
	if r == "" {
		return "europe-west1"
	}
	return r
}

// --- Layer 3: Storage --------------------------------------------------------

func (s *Strategy) DeployL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l3_hot")
	vars := map[string]interface{}{
		"twin_name":  s.n.Twin,
		"project_id": s.projectID(),
		"collection": s.n.Twin + "-hot-data",
	}
	if err := s.driver(dc, "L3_hot").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L3_hot", "google", "IaC apply failed for Firestore database").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_hot").Destroy(ctx, s.moduleDir(dc, "l3_hot"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_hot", "google", "firestore-collection", s.n.Twin+"-hot-data", err)
	}
	return nil
}

func (s *Strategy) InfoL3Hot(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L3_hot", Provider: "google", Resources: map[string]depctx.ResourceStatus{}}
	collection := s.n.Twin + "-hot-data"
	_, err := s.firestorec().Collection(collection).Limit(1).Documents(ctx).GetAll()
	info.Resources["hot_collection"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

func (s *Strategy) deployBucketTier(ctx context.Context, dc *depctx.DeploymentContext, layer, bucket string) error {
	dir := s.moduleDir(dc, layer)
	vars := map[string]interface{}{
		"twin_name":  s.n.Twin,
		"project_id": s.projectID(),
		"bucket":     bucket,
	}
	if err := s.driver(dc, layer).Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment(layer, "google", "IaC apply failed for "+bucket).Wrap(err)
	}
	return nil
}

func (s *Strategy) coldBucket() string    { return s.projectID() + "-" + s.n.Twin + "-cold" }
func (s *Strategy) archiveBucket() string { return s.projectID() + "-" + s.n.Twin + "-archive" }

func (s *Strategy) DeployL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployBucketTier(ctx, dc, "L3_cold", s.coldBucket())
}
func (s *Strategy) DestroyL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_cold").Destroy(ctx, s.moduleDir(dc, "l3_cold"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_cold", "google", "gcs-bucket", s.coldBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Cold(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoBucket(ctx, "L3_cold", s.coldBucket())
}

func (s *Strategy) DeployL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployBucketTier(ctx, dc, "L3_archive", s.archiveBucket())
}
func (s *Strategy) DestroyL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_archive").Destroy(ctx, s.moduleDir(dc, "l3_archive"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_archive", "google", "gcs-bucket", s.archiveBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Archive(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoBucket(ctx, "L3_archive", s.archiveBucket())
}

func (s *Strategy) infoBucket(ctx context.Context, layer, bucket string) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: layer, Provider: "google", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.storagec().Bucket(bucket).Attrs(ctx)
	info.Resources["bucket"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 4/5: no native managed service in scope --------------------------

func (s *Strategy) DeployL4(ctx context.Context, dc *depctx.DeploymentContext) error {
	return twinerrors.New(twinerrors.KindDeployment, "GCP has no native Digital Twin service in scope; L4 is future work").
		Layer("L4").Provider("google").Err()
}
func (s *Strategy) DestroyL4(ctx context.Context, dc *depctx.DeploymentContext) error { return nil }
func (s *Strategy) InfoL4(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{
		Layer: "L4", Provider: "google", State: depctx.StateNotDeployed,
		Resources: map[string]depctx.ResourceStatus{"future_work": {Present: false, Detail: "GCP L4 not implemented"}},
	}, nil
}

func (s *Strategy) DeployL5(ctx context.Context, dc *depctx.DeploymentContext) error {
	return twinerrors.New(twinerrors.KindDeployment, "GCP has no Grafana-equivalent managed service in scope; L5 is future work").
		Layer("L5").Provider("google").Err()
}
func (s *Strategy) DestroyL5(ctx context.Context, dc *depctx.DeploymentContext) error { return nil }
func (s *Strategy) InfoL5(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return depctx.LayerInfo{
		Layer: "L5", Provider: "google", State: depctx.StateNotDeployed,
		Resources: map[string]depctx.ResourceStatus{"future_work": {Present: false, Detail: "GCP L5 not implemented"}},
	}, nil
}

// --- Glue receiver (4.I, GCP side) ------------------------------------------

func (s *Strategy) DeployGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (string, string, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	dir := s.moduleDir(dc, "l0_"+boundary)
	vars := map[string]interface{}{"twin_name": s.n.Twin, "project_id": s.projectID(), "receiver_name": fnName}
	if err := s.driver(dc, "L0").Apply(ctx, dir, vars); err != nil {
		return "", "", twinerrors.Deployment("L0", "google", "IaC apply failed for glue receiver "+boundary).Wrap(err)
	}

	name := "projects/" + s.projectID() + "/locations/" + s.regionOrDefault() + "/functions/" + fnName
	fn, err := s.functionsc().Projects.Locations.Functions.Get(name).Context(ctx).Do()
	if err != nil {
		return "", "", twinerrors.ResourceCreation("L0", "google", "cloud-function", fnName, err)
	}
	url := ""
	if fn.ServiceConfig != nil {
		url = fn.ServiceConfig.Uri
	}

	token, err := randomToken()
	if err != nil {
		return "", "", twinerrors.New(twinerrors.KindResourceCreation, "failed to generate glue token").
			Layer("L0").Provider("google").Wrap(err).Err()
	}
	return url, token, nil
}

func (s *Strategy) DestroyGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) error {
	if err := s.driver(dc, "L0").Destroy(ctx, s.moduleDir(dc, "l0_"+boundary), nil); err != nil {
		return twinerrors.ResourceDeletion("L0", "google", "glue-receiver", boundary, err)
	}
	return nil
}

func (s *Strategy) InfoGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (depctx.ResourceStatus, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	name := "projects/" + s.projectID() + "/locations/" + s.regionOrDefault() + "/functions/" + fnName
	_, err := s.functionsc().Projects.Locations.Functions.Get(name).Context(ctx).Do()
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

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
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
