// Package depctx implements component 4.D, the Deployment Context: an
// explicit dependency container built once per operation (deploy,
// destroy, info, optimize) and passed down through every layer call.
// No module-global mutable state substitutes for it.
//
// The Provider Adapter and Layer Strategy interfaces (4.C, 4.H) live
// here rather than in their own packages because they are mutually
// referential with DeploymentContext: a Strategy's methods take a
// *DeploymentContext, and a DeploymentContext holds Adapters whose
// Strategy() method returns a Strategy. Concrete adapters
// (internal/provider/aws, .../azure, .../gcp) and strategies
// (internal/strategy/aws, ...) import this package; it imports none of
// them, so there is no cycle.
//
// Grounded on original_source/3-cloud-deployer/src/core/context.py and
// the teacher's per-request dependency containers
// (internal/api/models, internal/cqrs).
package depctx

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/logging"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// ClientBundle is the opaque name->SDK-client map an Adapter exposes
// to its Strategy. Keys are adapter-defined (e.g. "dynamodb", "iam",
// "lambda" for AWS).
type ClientBundle map[string]interface{}

// ResourceStatus reports whether one dynamic SDK-level resource is
// present, for the per-layer Info operations.
type ResourceStatus struct {
	Present bool   `json:"present"`
	Detail  string `json:"detail,omitempty"`
}

// LayerInfo is the result of an InfoLN call: the state of one layer's
// resources, keyed by resource name.
type LayerInfo struct {
	Layer     string                    `json:"layer"`
	Provider  string                    `json:"provider"`
	State     State                     `json:"state"`
	Resources map[string]ResourceStatus `json:"resources"`
}

// AllPresent reports whether every resource this layer expects is
// present, used by pre-flight checks in Strategy.DeployLN.
func (i LayerInfo) AllPresent() bool {
	if len(i.Resources) == 0 {
		return false
	}
	for _, r := range i.Resources {
		if !r.Present {
			return false
		}
	}
	return true
}

// State is a layer's position in the per-layer state machine:
// NotDeployed -> Provisioning -> Provisioned -> PostDeploying -> Ready,
// with Failure-transitions to FailedPartial.
type State string

const (
	StateNotDeployed  State = "NotDeployed"
	StateProvisioning State = "Provisioning"
	StateProvisioned  State = "Provisioned"
	StatePostDeploying State = "PostDeploying"
	StateReady        State = "Ready"
	StateFailedPartial State = "FailedPartial"
)

// Adapter is component 4.C, the Provider Adapter: one per cloud,
// constructed fresh per deployment by the Provider Registry.
type Adapter interface {
	// Name is the registered provider name ("aws", "azure", "google").
	Name() string

	// Initialize constructs every SDK client this adapter's layers
	// need from credentials and binds the adapter to twinName. It
	// fails fast with a ConfigurationError naming the missing field;
	// it never silently degrades.
	Initialize(ctx context.Context, credentials config.Credentials, twinName string) error

	// Clients returns the opaque SDK client bundle built by Initialize.
	Clients() ClientBundle

	// Naming returns the Naming instance bound to this adapter's twin.
	Naming() naming.Naming

	// TwinExists reports whether any resource carrying this twin's
	// prefix can be found, used by checkTwinExists and pre-deploy
	// idempotence checks.
	TwinExists(ctx context.Context) (bool, error)

	// Strategy returns this provider's layer strategy.
	Strategy() Strategy
}

// Strategy is component 4.H, the Layer Strategy: the ordered
// deploy/destroy/info operations for every layer a provider can host.
// DeployLN/DestroyLN/InfoLN are valid to call even for a layer this
// provider isn't assigned in a given twin; the Orchestrator only calls
// the ones the provider mapping actually routes through this adapter.
type Strategy interface {
	// DeployGlueReceiver stands up this provider's receiver for one
	// inter-cloud boundary (e.g. "L1_to_L2") and returns its URL and
	// bearer token. Called by internal/glue, not directly by the
	// Orchestrator, since L0 is not a provider-assignable slot: it is
	// derived from where adjacent layer providers differ.
	DeployGlueReceiver(ctx context.Context, dc *DeploymentContext, boundary string) (url, token string, err error)
	DestroyGlueReceiver(ctx context.Context, dc *DeploymentContext, boundary string) error
	InfoGlueReceiver(ctx context.Context, dc *DeploymentContext, boundary string) (ResourceStatus, error)

	DeployL1(ctx context.Context, dc *DeploymentContext) error
	DeployL2(ctx context.Context, dc *DeploymentContext) error
	DeployL3Hot(ctx context.Context, dc *DeploymentContext) error
	DeployL3Cold(ctx context.Context, dc *DeploymentContext) error
	DeployL3Archive(ctx context.Context, dc *DeploymentContext) error
	DeployL4(ctx context.Context, dc *DeploymentContext) error
	DeployL5(ctx context.Context, dc *DeploymentContext) error

	DestroyL5(ctx context.Context, dc *DeploymentContext) error
	DestroyL4(ctx context.Context, dc *DeploymentContext) error
	DestroyL3Archive(ctx context.Context, dc *DeploymentContext) error
	DestroyL3Cold(ctx context.Context, dc *DeploymentContext) error
	DestroyL3Hot(ctx context.Context, dc *DeploymentContext) error
	DestroyL2(ctx context.Context, dc *DeploymentContext) error
	DestroyL1(ctx context.Context, dc *DeploymentContext) error

	InfoL1(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL2(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL3Hot(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL3Cold(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL3Archive(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL4(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
	InfoL5(ctx context.Context, dc *DeploymentContext) (LayerInfo, error)
}

// DeploymentContext is the explicit dependency container of 4.D.
// Created at request start, discarded at request end; never shared
// globally. Multiple contexts may exist concurrently for different
// twins.
type DeploymentContext struct {
	ProjectName string
	ProjectPath string
	Config      *config.TwinConfig
	Providers   map[string]Adapter
	Credentials map[string]config.Credentials
	ActiveLayer string
	RunID       string
	Log         *logging.Logger
}

// New builds a DeploymentContext. Providers must already be
// Initialize()-d by the caller (the Orchestrator), keyed by provider
// name.
func New(projectName, projectPath string, cfg *config.TwinConfig, providers map[string]Adapter, credentials map[string]config.Credentials, runID string, log *logging.Logger) *DeploymentContext {
	return &DeploymentContext{
		ProjectName: projectName,
		ProjectPath: projectPath,
		Config:      cfg,
		Providers:   providers,
		Credentials: credentials,
		RunID:       runID,
		Log:         log,
	}
}

// GetProviderForLayer reads the provider mapping for slot and returns
// the corresponding initialized Adapter.
func (dc *DeploymentContext) GetProviderForLayer(slot config.LayerSlot) (Adapter, error) {
	name := string(dc.Config.ProviderForLayer(slot))
	if name == string(config.None) || name == "" {
		return nil, twinerrors.New(twinerrors.KindConfiguration, fmt.Sprintf("layer %s has no provider assigned", slot)).
			Layer(string(slot)).Err()
	}
	adapter, ok := dc.Providers[name]
	if !ok {
		return nil, twinerrors.ProviderNotFound(name, dc.providerNames())
	}
	return adapter, nil
}

func (dc *DeploymentContext) providerNames() []string {
	names := make([]string, 0, len(dc.Providers))
	for n := range dc.Providers {
		names = append(names, n)
	}
	return names
}

// GetUploadPath joins parts onto the project path, mirroring the
// original's get_upload_path helper used by hierarchy/DTDL staging.
func (dc *DeploymentContext) GetUploadPath(parts ...string) string {
	all := append([]string{dc.ProjectPath}, parts...)
	return filepath.Join(all...)
}

// GetInterCloudConnection looks up a persisted glue connection by its
// "<source>_to_<target>" key. Unknown routes are a hard error: a
// downstream layer must never silently run without its sender wired.
func (dc *DeploymentContext) GetInterCloudConnection(source, target string) (config.InterCloudConn, error) {
	key := fmt.Sprintf("%s_to_%s", source, target)
	conn, ok := dc.Config.InterCloudConnections[key]
	if !ok {
		return config.InterCloudConn{}, twinerrors.New(twinerrors.KindConfiguration,
			fmt.Sprintf("no inter-cloud connection registered for %s", key)).Field(key).Err()
	}
	return conn, nil
}

// SetActiveLayer updates the mutable active-layer marker used for
// log scoping, and returns a logger already bound to it.
func (dc *DeploymentContext) SetActiveLayer(layer string) *logging.Logger {
	dc.ActiveLayer = layer
	if dc.Log == nil {
		return logging.NewNop()
	}
	provider := ""
	if adapter, err := dc.GetProviderForLayer(config.LayerSlot(layer)); err == nil {
		provider = adapter.Name()
	}
	return dc.Log.WithLayer(layer, provider)
}
