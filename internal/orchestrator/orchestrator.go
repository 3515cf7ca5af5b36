// Package orchestrator is the composition root (component 4.M): it
// builds a depctx.DeploymentContext from loaded configuration and
// initialized provider adapters, then drives the layer-by-layer
// deploy/destroy sequence with the L0 Glue Layer deployed before the
// first layer (and torn down before the layers on destroy), a
// post-destroy cleanup sweep, and live progress events for any
// attached TUI/websocket client.
//
// Grounded on original_source/3-cloud-deployer/src/core/__init__.py's
// top-level deploy_all/destroy_all orchestration (fixed layer order,
// cleanup run unconditionally after destroy) and the teacher's service composition pattern of
// wiring collaborators by hand in one place rather than through a DI
// framework.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/twin2multicloud/deployer/internal/cleanup"
	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/glue"
	"github.com/twin2multicloud/deployer/internal/lock"
	"github.com/twin2multicloud/deployer/internal/logging"
	"github.com/twin2multicloud/deployer/internal/metrics"
	"github.com/twin2multicloud/deployer/internal/notify"
	"github.com/twin2multicloud/deployer/internal/postdeploy"
	"github.com/twin2multicloud/deployer/internal/registry"
	"github.com/twin2multicloud/deployer/internal/telemetry"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// maxConcurrentProviders bounds how many provider adapters Initialize
// concurrently — three clouds today, capped well above that so a
// future fourth provider doesn't need this number revisited.
const maxConcurrentProviders = 8

// Orchestrator drives deploy/destroy/info runs for one twin project
// against a fixed provider registry and lock backend.
type Orchestrator struct {
	Registry *registry.Registry
	Locker   lock.Locker
	Progress *glue.ProgressHub
	Alerts   *notify.Mailer
	Log      *logging.Logger
	Metrics  *metrics.Metrics
	Tracer   *telemetry.Provider
}

// New builds an Orchestrator. progress and alerts may be nil: a nil
// progress hub disables live events, and a nil *notify.Mailer is
// already a safe no-op receiver (see notify.Mailer.Alert). m and
// tracer may also be nil; both types are safe no-op receivers so a
// caller that doesn't care about metrics or tracing wires nothing.
func New(reg *registry.Registry, locker lock.Locker, progress *glue.ProgressHub, alerts *notify.Mailer, log *logging.Logger, m *metrics.Metrics, tracer *telemetry.Provider) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{Registry: reg, Locker: locker, Progress: progress, Alerts: alerts, Log: log, Metrics: m, Tracer: tracer}
}

func (o *Orchestrator) publish(ev glue.ProgressEvent) {
	if o.Progress != nil {
		o.Progress.Publish(ev)
	}
}

// layerStep names one pipeline slot plus the Strategy methods that
// deploy/destroy it, so DeployAll/DestroyAll can walk the fixed order
// declaratively instead of repeating a deploy-check-log block seven
// times.
type layerStep struct {
	slot   config.LayerSlot
	deploy func(context.Context, depctx.Strategy, *depctx.DeploymentContext) error
	destroy func(context.Context, depctx.Strategy, *depctx.DeploymentContext) error
}

var steps = []layerStep{
	{config.L1, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL1(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL1(ctx, dc) }},
	{config.L2, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL2(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL2(ctx, dc) }},
	{config.L3Hot, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL3Hot(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL3Hot(ctx, dc) }},
	{config.L3Cold, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL3Cold(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL3Cold(ctx, dc) }},
	{config.L3Archive, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL3Archive(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL3Archive(ctx, dc) }},
	{config.L4, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL4(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL4(ctx, dc) }},
	{config.L5, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DeployL5(ctx, dc) }, func(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext) error { return s.DestroyL5(ctx, dc) }},
}

// Build loads config.json and its satellite files, initializes every
// provider the mapping references, and returns a ready
// DeploymentContext. runID is an opaque correlation ID the caller
// supplies (typically a UUID or timestamp).
func (o *Orchestrator) Build(ctx context.Context, projectName, projectPath, runID string) (*depctx.DeploymentContext, error) {
	cfg, err := config.Load(projectPath, o.Log)
	if err != nil {
		return nil, err
	}

	needed := map[config.Provider]bool{}
	for _, slot := range config.AllLayerSlots {
		if p := cfg.ProviderForLayer(slot); p != config.None {
			needed[p] = true
		}
	}

	providers := make(map[string]depctx.Adapter, len(needed))
	credentials := make(map[string]config.Credentials, len(needed))

	var g errgroup.Group
	g.SetLimit(maxConcurrentProviders)

	type built struct {
		name    string
		adapter depctx.Adapter
		creds   config.Credentials
	}
	results := make(chan built, len(needed))

	for p := range needed {
		p := p
		g.Go(func() error {
			adapter, err := o.Registry.Get(string(p))
			if err != nil {
				return err
			}
			creds, err := config.LoadCredentials(projectPath, p)
			if err != nil {
				return err
			}
			if err := adapter.Initialize(ctx, creds, cfg.TwinName); err != nil {
				return twinerrors.Deployment("init", string(p), "initializing provider adapter").Wrap(err)
			}
			results <- built{name: string(p), adapter: adapter, creds: creds}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	for b := range results {
		providers[b.name] = b.adapter
		credentials[b.name] = b.creds
	}

	return depctx.New(projectName, projectPath, cfg, providers, credentials, runID, o.Log), nil
}

// DeployAll runs Deploy, acquiring the project's exclusive lock first
// and releasing it unconditionally when the run ends.
func (o *Orchestrator) DeployAll(ctx context.Context, dc *depctx.DeploymentContext) error {
	unlock, err := o.Locker.Acquire(ctx, dc.ProjectName)
	if err != nil {
		return err
	}
	defer unlock()

	ctx, span := o.Tracer.Start(ctx, "DeployAll", "all", "", "deploy")
	start := time.Now()
	err = o.deployLocked(ctx, dc)
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	o.Metrics.ObserveDeploy(time.Since(start).Seconds(), outcome)
	telemetry.End(span, err)
	return err
}

func (o *Orchestrator) deployLocked(ctx context.Context, dc *depctx.DeploymentContext) error {
	// The Glue Layer's receivers and their URL/token entries in
	// config_inter_cloud.json are deployed once, before the first
	// layer, so every upstream layer finds its target endpoint ready.
	if err := glue.Deploy(ctx, dc); err != nil {
		return err
	}

	for _, step := range steps {
		provider := dc.Config.ProviderForLayer(step.slot)
		if provider == config.None {
			continue
		}
		adapter, err := dc.GetProviderForLayer(step.slot)
		if err != nil {
			return err
		}
		log := dc.SetActiveLayer(string(step.slot))
		o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "provisioning"})

		stepCtx, span := o.Tracer.Start(ctx, "DeployLayer", string(step.slot), adapter.Name(), "deploy")
		err = step.deploy(stepCtx, adapter.Strategy(), dc)
		telemetry.End(span, err)
		if err != nil {
			o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "failed", Message: err.Error()})
			o.Metrics.RecordLayerOutcome(string(step.slot), adapter.Name(), "deploy", "failed")
			return fmt.Errorf("deploying %s: %w", step.slot, err)
		}
		log.Info("layer deployed", "layer", step.slot)
		o.Metrics.RecordLayerOutcome(string(step.slot), adapter.Name(), "deploy", "success")
		o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "provisioned"})

		if step.slot == config.L1 {
			if err := postdeploy.RegisterDevices(ctx, dc); err != nil {
				return fmt.Errorf("registering IoT devices: %w", err)
			}
		}
	}
	o.publish(glue.ProgressEvent{Layer: "all", State: "ready"})
	return nil
}

// DestroyAll tears every layer down in reverse order, then runs the
// fallback cleanup sweep regardless of whether destroy fully
// succeeded, so a partial failure never leaves orphaned resources
// behind silently.
func (o *Orchestrator) DestroyAll(ctx context.Context, dc *depctx.DeploymentContext, dryRunCleanup bool) (map[string]*cleanup.Report, error) {
	unlock, err := o.Locker.Acquire(ctx, dc.ProjectName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := o.Tracer.Start(ctx, "DestroyAll", "all", "", "destroy")
	start := time.Now()
	destroyErr := o.destroyLocked(ctx, dc)
	outcome := "success"
	if destroyErr != nil {
		outcome = "failed"
	}
	o.Metrics.ObserveDestroy(time.Since(start).Seconds(), outcome)
	telemetry.End(span, destroyErr)

	reports := cleanup.Sweep(ctx, dc, dryRunCleanup)
	return reports, destroyErr
}

func (o *Orchestrator) destroyLocked(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := glue.Destroy(ctx, dc); err != nil {
		dc.Log.Warn("glue teardown failed, continuing with layer destroy", "error", err)
	}

	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		provider := dc.Config.ProviderForLayer(step.slot)
		if provider == config.None {
			continue
		}
		adapter, err := dc.GetProviderForLayer(step.slot)
		if err != nil {
			return err
		}
		log := dc.SetActiveLayer(string(step.slot))
		o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "destroying"})

		stepCtx, span := o.Tracer.Start(ctx, "DestroyLayer", string(step.slot), adapter.Name(), "destroy")
		err = step.destroy(stepCtx, adapter.Strategy(), dc)
		telemetry.End(span, err)
		if err != nil {
			o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "failed", Message: err.Error()})
			o.Metrics.RecordLayerOutcome(string(step.slot), adapter.Name(), "destroy", "failed")
			return fmt.Errorf("destroying %s: %w", step.slot, err)
		}
		log.Info("layer destroyed", "layer", step.slot)
		o.Metrics.RecordLayerOutcome(string(step.slot), adapter.Name(), "destroy", "success")
		o.publish(glue.ProgressEvent{Layer: string(step.slot), Provider: adapter.Name(), State: "destroyed"})
	}
	return nil
}

// InfoAll gathers every layer's LayerInfo plus the Glue Layer's
// boundary status, for the info/status CLI surface.
func (o *Orchestrator) InfoAll(ctx context.Context, dc *depctx.DeploymentContext) (map[config.LayerSlot]depctx.LayerInfo, map[string]depctx.ResourceStatus, error) {
	layers := make(map[config.LayerSlot]depctx.LayerInfo, len(config.AllLayerSlots))
	for _, slot := range config.AllLayerSlots {
		provider := dc.Config.ProviderForLayer(slot)
		if provider == config.None {
			continue
		}
		adapter, err := dc.GetProviderForLayer(slot)
		if err != nil {
			return nil, nil, err
		}
		info, err := infoFor(ctx, adapter.Strategy(), dc, slot)
		if err != nil {
			return nil, nil, err
		}
		layers[slot] = info

		if info.State == depctx.StateFailedPartial {
			if alertErr := o.Alerts.Alert(notify.FailureInfo{
				ProjectName: dc.ProjectName,
				RunID:       dc.RunID,
				Layer:       string(slot),
				Provider:    adapter.Name(),
			}); alertErr != nil {
				dc.Log.Warn("partial-failure alert not sent", "layer", slot, "error", alertErr)
			}
		}
	}

	glueInfo, err := glue.Info(ctx, dc)
	if err != nil {
		return nil, nil, err
	}
	return layers, glueInfo, nil
}

func infoFor(ctx context.Context, s depctx.Strategy, dc *depctx.DeploymentContext, slot config.LayerSlot) (depctx.LayerInfo, error) {
	switch slot {
	case config.L1:
		return s.InfoL1(ctx, dc)
	case config.L2:
		return s.InfoL2(ctx, dc)
	case config.L3Hot:
		return s.InfoL3Hot(ctx, dc)
	case config.L3Cold:
		return s.InfoL3Cold(ctx, dc)
	case config.L3Archive:
		return s.InfoL3Archive(ctx, dc)
	case config.L4:
		return s.InfoL4(ctx, dc)
	case config.L5:
		return s.InfoL5(ctx, dc)
	default:
		return depctx.LayerInfo{}, fmt.Errorf("orchestrator: unknown layer slot %q", slot)
	}
}
