// Package cleanup implements the fallback sweep that runs after a
// destroy: Terraform state can drift from reality, and a resource IaC
// never learned about (or failed mid-apply before writing state) is
// still billing. Each provider's sweep walks every resource type this
// deployer ever creates, matches names that contain the twin name (or
// its underscored form, where that applies), and deletes in
// dependency order so a child resource is never orphaned ahead of its
// parent.
//
// Grounded 1:1 on
// original_source/3-cloud-deployer/src/providers/aws/cleanup.py and its
// Azure/GCP siblings; the ordering, the per-resource try/continue
// fault tolerance, and the dry-run log-only mode all come from there.
package cleanup

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iottwinmaker"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/managedgrafana"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/logging"
)

// Report collects what a sweep found and (unless DryRun) deleted, so
// callers can surface a summary instead of just trusting log lines.
type Report struct {
	Found   []string
	Deleted []string
	Errors  []string
}

func (r *Report) found(kind, name string)   { r.Found = append(r.Found, kind+":"+name) }
func (r *Report) deleted(kind, name string) { r.Deleted = append(r.Deleted, kind+":"+name) }
func (r *Report) errored(kind, name string, err error) {
	r.Errors = append(r.Errors, kind+":"+name+": "+err.Error())
}

func hasPrefix(name, prefix, prefixUnderscore string) bool {
	return strings.Contains(name, prefix) || strings.Contains(name, prefixUnderscore)
}

// AWS sweeps every AWS resource type this deployer can create, in the
// order the original tool requires: TwinMaker workspaces must shed
// their entities/scenes/component-types before the workspace itself
// can go, and IAM roles are always last since every other delete can
// still need its role's permissions mid-sweep.
func AWS(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger) *Report {
	report := &Report{}
	prefixUnderscore := strings.ReplaceAll(prefix, "-", "_")

	sweepTwinMaker(ctx, clients, prefix, dryRun, log, report)
	sweepGrafana(ctx, clients, prefix, dryRun, log, report)
	sweepS3(ctx, clients, prefix, dryRun, log, report)
	sweepLambda(ctx, clients, prefix, prefixUnderscore, dryRun, log, report)
	sweepIoT(ctx, clients, prefix, prefixUnderscore, dryRun, log, report)
	sweepDynamoDB(ctx, clients, prefix, dryRun, log, report)
	sweepCloudWatchLogs(ctx, clients, prefix, prefixUnderscore, dryRun, log, report)
	sweepIAM(ctx, clients, prefix, prefixUnderscore, dryRun, log, report)

	return report
}

func sweepTwinMaker(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["iottwinmaker"].(*iottwinmaker.Client)
	if client == nil {
		return
	}
	out, err := client.ListWorkspaces(ctx, &iottwinmaker.ListWorkspacesInput{})
	if err != nil {
		log.Warn("twinmaker list failed", "error", err)
		return
	}
	for _, ws := range out.WorkspaceSummaries {
		name := *ws.WorkspaceId
		if !strings.Contains(name, prefix) {
			continue
		}
		report.found("twinmaker.Workspace", name)
		if dryRun {
			continue
		}
		if entities, err := client.ListEntities(ctx, &iottwinmaker.ListEntitiesInput{WorkspaceId: &name}); err == nil {
			for _, e := range entities.EntitySummaries {
				client.DeleteEntity(ctx, &iottwinmaker.DeleteEntityInput{WorkspaceId: &name, EntityId: e.EntityId, IsRecursive: true})
			}
		}
		if scenes, err := client.ListScenes(ctx, &iottwinmaker.ListScenesInput{WorkspaceId: &name}); err == nil {
			for _, s := range scenes.SceneSummaries {
				client.DeleteScene(ctx, &iottwinmaker.DeleteSceneInput{WorkspaceId: &name, SceneId: s.SceneId})
			}
		}
		if types, err := client.ListComponentTypes(ctx, &iottwinmaker.ListComponentTypesInput{WorkspaceId: &name}); err == nil {
			for _, ct := range types.ComponentTypeSummaries {
				if ct.ComponentTypeId != nil && !strings.HasPrefix(*ct.ComponentTypeId, "com.amazon") {
					client.DeleteComponentType(ctx, &iottwinmaker.DeleteComponentTypeInput{WorkspaceId: &name, ComponentTypeId: ct.ComponentTypeId})
				}
			}
		}
		if _, err := client.DeleteWorkspace(ctx, &iottwinmaker.DeleteWorkspaceInput{WorkspaceId: &name}); err != nil {
			report.errored("twinmaker.Workspace", name, err)
			continue
		}
		report.deleted("twinmaker.Workspace", name)
	}
}

func sweepGrafana(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["managedgrafana"].(*managedgrafana.Client)
	if client == nil {
		return
	}
	out, err := client.ListWorkspaces(ctx, &managedgrafana.ListWorkspacesInput{})
	if err != nil {
		log.Warn("grafana list failed", "error", err)
		return
	}
	for _, ws := range out.Workspaces {
		if ws.Name == nil || !strings.Contains(*ws.Name, prefix) {
			continue
		}
		report.found("grafana.Workspace", *ws.Name)
		if dryRun {
			continue
		}
		if _, err := client.DeleteWorkspace(ctx, &managedgrafana.DeleteWorkspaceInput{WorkspaceId: ws.Id}); err != nil {
			report.errored("grafana.Workspace", *ws.Name, err)
			continue
		}
		report.deleted("grafana.Workspace", *ws.Name)
	}
}

func sweepS3(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["s3"].(*s3.Client)
	if client == nil {
		return
	}
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		log.Warn("s3 list failed", "error", err)
		return
	}
	for _, b := range out.Buckets {
		if b.Name == nil || !strings.Contains(*b.Name, prefix) {
			continue
		}
		report.found("s3.Bucket", *b.Name)
		if dryRun {
			continue
		}
		objects, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: b.Name})
		if err == nil {
			for _, o := range objects.Contents {
				client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: b.Name, Key: o.Key})
			}
		}
		if _, err := client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: b.Name}); err != nil {
			report.errored("s3.Bucket", *b.Name, err)
			continue
		}
		report.deleted("s3.Bucket", *b.Name)
	}
}

func sweepLambda(ctx context.Context, clients depctx.ClientBundle, prefix, prefixUnderscore string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["lambda"].(*lambda.Client)
	if client == nil {
		return
	}
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Warn("lambda list failed", "error", err)
			return
		}
		for _, fn := range page.Functions {
			if fn.FunctionName == nil || !hasPrefix(*fn.FunctionName, prefix, prefixUnderscore) {
				continue
			}
			report.found("lambda.Function", *fn.FunctionName)
			if dryRun {
				continue
			}
			if _, err := client.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: fn.FunctionName}); err != nil {
				report.errored("lambda.Function", *fn.FunctionName, err)
				continue
			}
			report.deleted("lambda.Function", *fn.FunctionName)
		}
	}
}

func sweepIoT(ctx context.Context, clients depctx.ClientBundle, prefix, prefixUnderscore string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["iot"].(*iot.Client)
	if client == nil {
		return
	}
	rules, err := client.ListTopicRules(ctx, &iot.ListTopicRulesInput{})
	if err != nil {
		log.Warn("iot list topic rules failed", "error", err)
	} else {
		for _, r := range rules.Rules {
			if r.RuleName == nil || !hasPrefix(*r.RuleName, prefix, prefixUnderscore) {
				continue
			}
			report.found("iot.TopicRule", *r.RuleName)
			if dryRun {
				continue
			}
			if _, err := client.DeleteTopicRule(ctx, &iot.DeleteTopicRuleInput{RuleName: r.RuleName}); err != nil {
				report.errored("iot.TopicRule", *r.RuleName, err)
				continue
			}
			report.deleted("iot.TopicRule", *r.RuleName)
		}
	}

	things, err := client.ListThings(ctx, &iot.ListThingsInput{})
	if err != nil {
		log.Warn("iot list things failed", "error", err)
		return
	}
	for _, t := range things.Things {
		if t.ThingName == nil || !strings.Contains(*t.ThingName, prefix) {
			continue
		}
		report.found("iot.Thing", *t.ThingName)
		if dryRun {
			continue
		}
		if principals, err := client.ListThingPrincipals(ctx, &iot.ListThingPrincipalsInput{ThingName: t.ThingName}); err == nil {
			for _, p := range principals.Principals {
				client.DetachThingPrincipal(ctx, &iot.DetachThingPrincipalInput{ThingName: t.ThingName, Principal: &p})
			}
		}
		if _, err := client.DeleteThing(ctx, &iot.DeleteThingInput{ThingName: t.ThingName}); err != nil {
			report.errored("iot.Thing", *t.ThingName, err)
			continue
		}
		report.deleted("iot.Thing", *t.ThingName)
	}
}

func sweepDynamoDB(ctx context.Context, clients depctx.ClientBundle, prefix string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["dynamodb"].(*dynamodb.Client)
	if client == nil {
		return
	}
	out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		log.Warn("dynamodb list tables failed", "error", err)
		return
	}
	for _, name := range out.TableNames {
		if !strings.Contains(name, prefix) {
			continue
		}
		report.found("dynamodb.Table", name)
		if dryRun {
			continue
		}
		tableName := name
		if _, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: &tableName}); err != nil {
			report.errored("dynamodb.Table", name, err)
			continue
		}
		report.deleted("dynamodb.Table", name)
	}
}

func sweepCloudWatchLogs(ctx context.Context, clients depctx.ClientBundle, prefix, prefixUnderscore string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["cloudwatchlogs"].(*cloudwatchlogs.Client)
	if client == nil {
		return
	}
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(client, &cloudwatchlogs.DescribeLogGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Warn("cloudwatch logs list failed", "error", err)
			return
		}
		for _, lg := range page.LogGroups {
			if lg.LogGroupName == nil || !hasPrefix(*lg.LogGroupName, prefix, prefixUnderscore) {
				continue
			}
			report.found("logs.LogGroup", *lg.LogGroupName)
			if dryRun {
				continue
			}
			if _, err := client.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{LogGroupName: lg.LogGroupName}); err != nil {
				report.errored("logs.LogGroup", *lg.LogGroupName, err)
				continue
			}
			report.deleted("logs.LogGroup", *lg.LogGroupName)
		}
	}
}

func sweepIAM(ctx context.Context, clients depctx.ClientBundle, prefix, prefixUnderscore string, dryRun bool, log *logging.Logger, report *Report) {
	client, _ := clients["iam"].(*iam.Client)
	if client == nil {
		return
	}
	paginator := iam.NewListRolesPaginator(client, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Warn("iam list roles failed", "error", err)
			return
		}
		for _, role := range page.Roles {
			if role.RoleName == nil || !hasPrefix(*role.RoleName, prefix, prefixUnderscore) {
				continue
			}
			report.found("iam.Role", *role.RoleName)
			if dryRun {
				continue
			}
			if attached, err := client.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{RoleName: role.RoleName}); err == nil {
				for _, p := range attached.AttachedPolicies {
					client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{RoleName: role.RoleName, PolicyArn: p.PolicyArn})
				}
			}
			if inline, err := client.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: role.RoleName}); err == nil {
				for _, pn := range inline.PolicyNames {
					name := pn
					client.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{RoleName: role.RoleName, PolicyName: &name})
				}
			}
			if _, err := client.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: role.RoleName}); err != nil {
				report.errored("iam.Role", *role.RoleName, err)
				continue
			}
			report.deleted("iam.Role", *role.RoleName)
		}
	}
}
