package cleanup

import (
	"context"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/logging"
)

// Sweep runs the fallback cleanup sweep against every provider
// registered in dc, keyed by provider name. Called after destroy
// completes (or fails partway) so nothing left in an account survives
// a torn-down twin. "cleanup" isn't one of the five layer slots, so it
// logs via WithLayer directly instead of dc.SetActiveLayer, which would
// otherwise look up a nonexistent layer slot and drop the provider name.
func Sweep(ctx context.Context, dc *depctx.DeploymentContext, dryRun bool) map[string]*Report {
	reports := make(map[string]*Report, len(dc.Providers))
	prefix := dc.Config.TwinName
	base := dc.Log
	if base == nil {
		base = logging.NewNop()
	}

	for name, adapter := range dc.Providers {
		log := base.WithLayer("cleanup", adapter.Name())
		switch adapter.Name() {
		case "aws":
			reports[name] = AWS(ctx, adapter.Clients(), prefix, dryRun, log)
		case "azure":
			reports[name] = Azure(ctx, adapter.Clients(), prefix, dryRun, log)
		case "google":
			reports[name] = GCP(ctx, adapter.Clients(), prefix, dryRun, log)
		}
	}
	return reports
}
