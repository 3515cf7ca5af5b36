package cleanup

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/cloudfunctions/v2"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/logging"
)

// GCP has no SDK-level fallback sweep in the original tool — GCP
// provisioning there is Terraform-only end to end, so nothing orphans
// outside Terraform state. This module's GCP adapter keeps SDK clients
// around for status checks regardless (internal/provider/gcp), so the
// same clients are reused here for symmetry with the AWS/Azure sweeps:
// topics, buckets, functions and hot-data documents matching the twin's
// prefix.
func GCP(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger) *Report {
	report := &Report{}

	projectID, _ := clients["project_id"].(string)
	region, _ := clients["region"].(string)
	if projectID == "" {
		log.Warn("gcp cleanup skipped: no project_id in client bundle")
		return report
	}
	if region == "" {
		region = "europe-west1"
	}

	sweepPubSub(ctx, clients, prefix, dryRun, log, report)
	sweepGCS(ctx, clients, prefix, dryRun, log, report)
	sweepCloudFunctions(ctx, clients, projectID, region, prefix, dryRun, log, report)
	sweepFirestore(ctx, clients, prefix, dryRun, log, report)

	return report
}

func sweepPubSub(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["pubsub"].(*pubsub.Client)
	if client == nil {
		return
	}
	it := client.Topics(ctx)
	for {
		topic, err := it.Next()
		if err != nil {
			break
		}
		id := topic.ID()
		if !strings.Contains(id, prefix) {
			continue
		}
		report.found("pubsub.Topic", id)
		if dryRun {
			continue
		}
		if err := topic.Delete(ctx); err != nil {
			report.errored("pubsub.Topic", id, err)
			continue
		}
		report.deleted("pubsub.Topic", id)
	}
}

func sweepGCS(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["storage"].(*storage.Client)
	if client == nil {
		return
	}
	projectID, _ := clients["project_id"].(string)
	it := client.Buckets(ctx, projectID)
	for {
		attrs, err := it.Next()
		if err != nil {
			break
		}
		if !strings.Contains(attrs.Name, prefix) {
			continue
		}
		report.found("storage.Bucket", attrs.Name)
		if dryRun {
			continue
		}
		bucket := client.Bucket(attrs.Name)
		objIt := bucket.Objects(ctx, nil)
		for {
			obj, err := objIt.Next()
			if err != nil {
				break
			}
			bucket.Object(obj.Name).Delete(ctx)
		}
		if err := bucket.Delete(ctx); err != nil {
			report.errored("storage.Bucket", attrs.Name, err)
			continue
		}
		report.deleted("storage.Bucket", attrs.Name)
	}
}

func sweepCloudFunctions(ctx context.Context, clients depctx.ClientBundle, projectID, region, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["cloudfunctions"].(*cloudfunctions.Service)
	if client == nil {
		return
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", projectID, region)
	resp, err := client.Projects.Locations.Functions.List(parent).Context(ctx).Do()
	if err != nil {
		log.Warn("cloud functions list failed", "error", err)
		return
	}
	for _, fn := range resp.Functions {
		name := fn.Name
		short := name[strings.LastIndex(name, "/")+1:]
		if !strings.Contains(short, prefix) {
			continue
		}
		report.found("cloudfunctions.Function", short)
		if dryRun {
			continue
		}
		if _, err := client.Projects.Locations.Functions.Delete(name).Context(ctx).Do(); err != nil {
			report.errored("cloudfunctions.Function", short, err)
			continue
		}
		report.deleted("cloudfunctions.Function", short)
	}
}

func sweepFirestore(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["firestore"].(*firestore.Client)
	if client == nil {
		return
	}
	collections := client.Collections(ctx)
	for {
		col, err := collections.Next()
		if err != nil {
			break
		}
		if !strings.Contains(col.ID, prefix) {
			continue
		}
		report.found("firestore.Collection", col.ID)
		if dryRun {
			continue
		}
		docs, err := col.Documents(ctx).GetAll()
		if err != nil {
			report.errored("firestore.Collection", col.ID, err)
			continue
		}
		for _, d := range docs {
			d.Ref.Delete(ctx)
		}
		report.deleted("firestore.Collection", col.ID)
	}
}
