// Package gcp implements the GCP provider adapter.
//
// Grounded on original_source/3-cloud-deployer/src/providers/gcp/provider.py:
// the original notes SDK clients are used for status checks only since
// deployment is Terraform-only, which this module follows exactly for
// L1-L3. L4/L5 are FutureWork here (see DESIGN.md Open Question
// decision) since no GCP-native Digital Twin or Grafana-equivalent
// managed service is in scope.
package gcp

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/cloudfunctions/v2"
	"google.golang.org/api/option"

	tconfig "github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/naming"
	stratGCP "github.com/twin2multicloud/deployer/internal/strategy/gcp"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Client bundle keys, shared with internal/strategy/gcp.
const (
	KeyPubSub         = "pubsub"
	KeyStorage        = "storage"
	KeyFirestore      = "firestore"
	KeyCloudFunctions = "cloudfunctions"
	KeyProjectID      = "project_id"
	KeyRegion         = "region"
)

// Adapter is the GCP depctx.Adapter implementation.
type Adapter struct {
	twinName string
	n        naming.Naming
	clients  depctx.ClientBundle
}

// New returns an uninitialized GCP adapter.
func New() depctx.Adapter { return &Adapter{} }

func (a *Adapter) Name() string { return string(tconfig.Google) }

// Initialize builds the GCP SDK clients this provider needs for status
// checks and post-deploy operations; layer provisioning itself runs
// entirely through Terraform, as in the original GCP provider.
func (a *Adapter) Initialize(ctx context.Context, creds tconfig.Credentials, twinName string) error {
	if !naming.ValidTwinName(twinName) {
		return twinerrors.Configuration("config.json", "digital_twin_name", "twin name fails naming validation")
	}
	a.twinName = twinName
	a.n = naming.New(twinName)

	region := creds["gcp_region"]
	if region == "" {
		return twinerrors.Configuration("config_credentials.json", "gcp_region", "gcp credentials missing gcp_region")
	}
	projectID := creds["gcp_project_id"]
	if projectID == "" {
		projectID = a.n.Twin + "-project"
	}

	var opts []option.ClientOption
	if keyfile := creds["gcp_credentials_file"]; keyfile != "" {
		opts = append(opts, option.WithCredentialsFile(keyfile))
	}

	pubsubClient, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build pubsub client").Provider("gcp").Wrap(err).Err()
	}
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build storage client").Provider("gcp").Wrap(err).Err()
	}
	firestoreClient, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build firestore client").Provider("gcp").Wrap(err).Err()
	}
	functionsClient, err := cloudfunctions.NewService(ctx, opts...)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to build cloudfunctions client").Provider("gcp").Wrap(err).Err()
	}

	a.clients = depctx.ClientBundle{
		KeyPubSub:         pubsubClient,
		KeyStorage:        storageClient,
		KeyFirestore:      firestoreClient,
		KeyCloudFunctions: functionsClient,
		KeyProjectID:      projectID,
		KeyRegion:         region,
	}
	return nil
}

func (a *Adapter) Clients() depctx.ClientBundle { return a.clients }
func (a *Adapter) Naming() naming.Naming        { return a.n }

// TwinExists checks the Firestore hot-data collection for any document,
// mirroring the original GCPProvider.check_if_twin_exists: Firestore is
// the most reliable single marker since it's created in L3.
func (a *Adapter) TwinExists(ctx context.Context) (bool, error) {
	client, _ := a.clients[KeyFirestore].(*firestore.Client)
	if client == nil {
		return false, twinerrors.New(twinerrors.KindConfiguration, "adapter not initialized").Provider("gcp").Err()
	}
	collection := a.n.Twin + "-hot-data"
	docs, err := client.Collection(collection).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") {
			return false, nil
		}
		return false, nil
	}
	return len(docs) > 0, nil
}

func (a *Adapter) Strategy() depctx.Strategy {
	return stratGCP.New(a.clients, a.n)
}
