// Package azure implements the Azure provider adapter.
//
// Grounded on original_source/3-cloud-deployer/src/providers/azure/clients.py
// for the client set, and the teacher's internal/cloud/azure client
// construction style (azidentity credential chain + per-resource
// armSOMETHING.NewClient(subscriptionID, cred, nil)).
package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azdigitaltwins/azdigitaltwins"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cosmos/armcosmos"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/dashboard/armdashboard"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/iothub/armiothub"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	tconfig "github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/naming"
	stratAzure "github.com/twin2multicloud/deployer/internal/strategy/azure"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Client bundle keys, shared with internal/strategy/azure.
const (
	KeyResources      = "resources"
	KeyIoTHub         = "iothub"
	KeyAppService     = "appservice"
	KeyCosmos         = "cosmos"
	KeyDashboard      = "dashboard"
	KeyBlob           = "blob"
	KeyDigitalTwins   = "digitaltwins"
	KeySubscriptionID = "subscription_id"
	KeyResourceGroup  = "resource_group"
)

// Adapter is the Azure depctx.Adapter implementation.
type Adapter struct {
	twinName string
	n        naming.Naming
	clients  depctx.ClientBundle
}

// New returns an uninitialized Azure adapter.
func New() depctx.Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return string(tconfig.Azure) }

// Initialize builds every Azure SDK client the Azure strategy needs.
// Static credentials supply subscription_id/tenant_id/client_id/client_secret
// or, if those are absent, azidentity.NewDefaultAzureCredential falls
// back to environment/managed-identity/CLI login, matching the same
// degrade-gracefully policy as the AWS adapter.
func (a *Adapter) Initialize(ctx context.Context, creds tconfig.Credentials, twinName string) error {
	if !naming.ValidTwinName(twinName) {
		return twinerrors.Configuration("config.json", "digital_twin_name", "twin name fails naming validation")
	}
	a.twinName = twinName
	a.n = naming.New(twinName)

	subscriptionID := creds["subscription_id"]
	if subscriptionID == "" {
		return twinerrors.Configuration("config_credentials.json", "subscription_id", "azure credentials missing subscription_id")
	}
	resourceGroup := creds["resource_group"]
	if resourceGroup == "" {
		resourceGroup = a.n.Twin + "-rg"
	}

	var cred azcore.TokenCredential
	var err error
	if creds["tenant_id"] != "" && creds["client_id"] != "" && creds["client_secret"] != "" {
		cred, err = azidentity.NewClientSecretCredential(creds["tenant_id"], creds["client_id"], creds["client_secret"], nil)
	} else {
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build Azure credential").
			Provider("azure").Wrap(err).Err()
	}

	resourcesClient, err := armresources.NewClient(subscriptionID, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build armresources client").Provider("azure").Wrap(err).Err()
	}
	iotHubClient, err := armiothub.NewResourceClient(subscriptionID, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build armiothub client").Provider("azure").Wrap(err).Err()
	}
	appServiceClient, err := armappservice.NewWebAppsClient(subscriptionID, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build armappservice client").Provider("azure").Wrap(err).Err()
	}
	cosmosClient, err := armcosmos.NewDatabaseAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build armcosmos client").Provider("azure").Wrap(err).Err()
	}
	dashboardClient, err := armdashboard.NewGrafanaClient(subscriptionID, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build armdashboard client").Provider("azure").Wrap(err).Err()
	}

	blobServiceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", a.n.StorageAccount())
	blobClient, err := azblob.NewClient(blobServiceURL, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build azblob client").Provider("azure").Wrap(err).Err()
	}

	region := creds["region"]
	if region == "" {
		region = "westeurope"
	}
	dtEndpoint := fmt.Sprintf("https://%s.api.%s.digitaltwins.azure.net", a.n.DigitalTwinsInstance(), region)
	dtClient, err := azdigitaltwins.NewClient(dtEndpoint, cred, nil)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build azdigitaltwins client").Provider("azure").Wrap(err).Err()
	}

	a.clients = depctx.ClientBundle{
		KeyResources:      resourcesClient,
		KeyIoTHub:         iotHubClient,
		KeyAppService:     appServiceClient,
		KeyCosmos:         cosmosClient,
		KeyDashboard:      dashboardClient,
		KeyBlob:           blobClient,
		KeyDigitalTwins:   dtClient,
		KeySubscriptionID: subscriptionID,
		KeyResourceGroup:  resourceGroup,
		"credential":      cred,
	}
	return nil
}

func (a *Adapter) Clients() depctx.ClientBundle { return a.clients }
func (a *Adapter) Naming() naming.Naming        { return a.n }

// TwinExists lists resources in the resource group and checks for the
// twin's prefix, matching the sweep Fallback Cleanup later performs.
func (a *Adapter) TwinExists(ctx context.Context) (bool, error) {
	client, _ := a.clients[KeyResources].(*armresources.Client)
	rg, _ := a.clients[KeyResourceGroup].(string)
	if client == nil {
		return false, twinerrors.New(twinerrors.KindConfiguration, "adapter not initialized").Provider("azure").Err()
	}
	pager := client.NewListByResourceGroupPager(rg, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, twinerrors.ResourceCreation("info", "azure", "armresources.List", rg, err)
		}
		for _, res := range page.Value {
			if res.Name != nil && strings.HasPrefix(*res.Name, a.n.Prefix()) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (a *Adapter) Strategy() depctx.Strategy {
	return stratAzure.New(a.clients, a.n)
}
