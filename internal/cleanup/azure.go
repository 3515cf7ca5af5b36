package cleanup

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cosmos/armcosmos"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dashboard/armdashboard"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/digitaltwins/armdigitaltwins"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/iothub/armiothub"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/logging"
)

// resourceGroupOf extracts the resource group segment from an ARM
// resource ID ("/subscriptions/.../resourceGroups/<rg>/...").
func resourceGroupOf(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		if strings.EqualFold(p, "resourceGroups") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// Azure sweeps every Azure resource type this deployer can create,
// then deletes the twin's resource group itself as the nuclear option
// once the sweep above has run (a resource group delete cascades, but
// the per-type passes log each orphan individually first so a partial
// failure is still visible).
func Azure(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger) *Report {
	report := &Report{}

	cred, _ := clients["credential"].(azcore.TokenCredential)
	subscriptionID, _ := clients["subscription_id"].(string)
	if cred == nil || subscriptionID == "" {
		log.Warn("azure cleanup skipped: no credential/subscription in client bundle")
		return report
	}

	sweepCosmos(ctx, clients, prefix, dryRun, log, report)
	sweepAzureGrafana(ctx, clients, prefix, dryRun, log, report)
	sweepIoTHub(ctx, clients, prefix, dryRun, log, report)
	sweepDigitalTwinsInstances(ctx, cred, subscriptionID, prefix, dryRun, log, report)
	sweepFunctionApps(ctx, clients, prefix, dryRun, log, report)
	sweepStorageAccounts(ctx, cred, subscriptionID, prefix, dryRun, log, report)
	sweepAppServicePlans(ctx, cred, subscriptionID, prefix, dryRun, log, report)
	sweepResourceGroups(ctx, cred, subscriptionID, prefix, dryRun, log, report)

	return report
}

func sweepCosmos(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["cosmos"].(*armcosmos.DatabaseAccountsClient)
	if client == nil {
		return
	}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("cosmos list failed", "error", err)
			return
		}
		for _, account := range page.Value {
			if account.Name == nil || !strings.Contains(*account.Name, prefix) {
				continue
			}
			report.found("cosmos.Account", *account.Name)
			if dryRun || account.ID == nil {
				continue
			}
			rg := resourceGroupOf(*account.ID)
			poller, err := client.BeginDelete(ctx, rg, *account.Name, nil)
			if err != nil {
				report.errored("cosmos.Account", *account.Name, err)
				continue
			}
			if _, err := poller.PollUntilDone(ctx, nil); err != nil {
				report.errored("cosmos.Account", *account.Name, err)
				continue
			}
			report.deleted("cosmos.Account", *account.Name)
		}
	}
}

func sweepAzureGrafana(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["dashboard"].(*armdashboard.GrafanaClient)
	if client == nil {
		return
	}
	pager := client.NewListBySubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("azure grafana list failed", "error", err)
			return
		}
		for _, ws := range page.Value {
			if ws.Name == nil || !strings.Contains(*ws.Name, prefix) {
				continue
			}
			report.found("dashboard.Grafana", *ws.Name)
			if dryRun || ws.ID == nil {
				continue
			}
			rg := resourceGroupOf(*ws.ID)
			poller, err := client.BeginDelete(ctx, rg, *ws.Name, nil)
			if err != nil {
				report.errored("dashboard.Grafana", *ws.Name, err)
				continue
			}
			if _, err := poller.PollUntilDone(ctx, nil); err != nil {
				report.errored("dashboard.Grafana", *ws.Name, err)
				continue
			}
			report.deleted("dashboard.Grafana", *ws.Name)
		}
	}
}

func sweepIoTHub(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["iothub"].(*armiothub.ResourceClient)
	if client == nil {
		return
	}
	pager := client.NewListBySubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("iot hub list failed", "error", err)
			return
		}
		for _, hub := range page.Value {
			if hub.Name == nil || !strings.Contains(*hub.Name, prefix) {
				continue
			}
			report.found("iothub.Resource", *hub.Name)
			if dryRun || hub.ID == nil {
				continue
			}
			rg := resourceGroupOf(*hub.ID)
			poller, err := client.BeginDelete(ctx, rg, *hub.Name, nil)
			if err != nil {
				report.errored("iothub.Resource", *hub.Name, err)
				continue
			}
			if _, err := poller.PollUntilDone(ctx, nil); err != nil {
				report.errored("iothub.Resource", *hub.Name, err)
				continue
			}
			report.deleted("iothub.Resource", *hub.Name)
		}
	}
}

func sweepDigitalTwinsInstances(ctx context.Context, cred azcore.TokenCredential, subscriptionID, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, err := armdigitaltwins.NewClient(subscriptionID, cred, nil)
	if err != nil {
		log.Warn("armdigitaltwins client build failed", "error", err)
		return
	}
	pager := client.NewListBySubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("digital twins list failed", "error", err)
			return
		}
		for _, instance := range page.Value {
			if instance.Name == nil || !strings.Contains(*instance.Name, prefix) {
				continue
			}
			report.found("digitaltwins.Instance", *instance.Name)
			if dryRun || instance.ID == nil {
				continue
			}
			rg := resourceGroupOf(*instance.ID)
			poller, err := client.BeginDelete(ctx, rg, *instance.Name, nil)
			if err != nil {
				report.errored("digitaltwins.Instance", *instance.Name, err)
				continue
			}
			if _, err := poller.PollUntilDone(ctx, nil); err != nil {
				report.errored("digitaltwins.Instance", *instance.Name, err)
				continue
			}
			report.deleted("digitaltwins.Instance", *instance.Name)
		}
	}
}

func sweepFunctionApps(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["appservice"].(*armappservice.WebAppsClient)
	if client == nil {
		return
	}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("function app list failed", "error", err)
			return
		}
		for _, app := range page.Value {
			if app.Name == nil || !strings.Contains(*app.Name, prefix) {
				continue
			}
			report.found("appservice.WebApp", *app.Name)
			if dryRun || app.ID == nil {
				continue
			}
			rg := resourceGroupOf(*app.ID)
			if _, err := client.Delete(ctx, rg, *app.Name, nil); err != nil {
				report.errored("appservice.WebApp", *app.Name, err)
				continue
			}
			report.deleted("appservice.WebApp", *app.Name)
		}
	}
}

func sweepStorageAccounts(ctx context.Context, cred azcore.TokenCredential, subscriptionID, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, err := armstorage.NewAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		log.Warn("armstorage client build failed", "error", err)
		return
	}
	prefixNoHyphen := strings.ReplaceAll(prefix, "-", "")
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("storage account list failed", "error", err)
			return
		}
		for _, account := range page.Value {
			if account.Name == nil || !hasPrefix(*account.Name, prefix, prefixNoHyphen) {
				continue
			}
			report.found("storage.Account", *account.Name)
			if dryRun || account.ID == nil {
				continue
			}
			rg := resourceGroupOf(*account.ID)
			if _, err := client.Delete(ctx, rg, *account.Name, nil); err != nil {
				report.errored("storage.Account", *account.Name, err)
				continue
			}
			report.deleted("storage.Account", *account.Name)
		}
	}
}

func sweepAppServicePlans(ctx context.Context, cred azcore.TokenCredential, subscriptionID, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	plansClient, err := armappservice.NewPlansClient(subscriptionID, cred, nil)
	if err != nil {
		log.Warn("appservice plans client build failed", "error", err)
		return
	}
	pager := plansClient.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("app service plan list failed", "error", err)
			return
		}
		for _, plan := range page.Value {
			if plan.Name == nil || !strings.Contains(*plan.Name, prefix) {
				continue
			}
			report.found("appservice.Plan", *plan.Name)
			if dryRun || plan.ID == nil {
				continue
			}
			rg := resourceGroupOf(*plan.ID)
			if _, err := plansClient.Delete(ctx, rg, *plan.Name, nil); err != nil {
				report.errored("appservice.Plan", *plan.Name, err)
				continue
			}
			report.deleted("appservice.Plan", *plan.Name)
		}
	}
}

func sweepResourceGroups(ctx context.Context, cred azcore.TokenCredential, subscriptionID, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		log.Warn("armresources resource groups client build failed", "error", err)
		return
	}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			log.Warn("resource group list failed", "error", err)
			return
		}
		for _, rg := range page.Value {
			if rg.Name == nil || !strings.Contains(*rg.Name, prefix) {
				continue
			}
			report.found("resources.ResourceGroup", *rg.Name)
			if dryRun {
				continue
			}
			poller, err := client.BeginDelete(ctx, *rg.Name, nil)
			if err != nil {
				report.errored("resources.ResourceGroup", *rg.Name, err)
				continue
			}
			if _, err := poller.PollUntilDone(ctx, nil); err != nil {
				report.errored("resources.ResourceGroup", *rg.Name, err)
				continue
			}
			report.deleted("resources.ResourceGroup", *rg.Name)
		}
	}
}
