// Package aws implements the AWS layer strategy: the ordered
// deploy/destroy/info operations for every layer AWS can host, plus
// this provider's Glue receiver implementation.
//
// Each DeployLN provisions baseline infrastructure through the IaC
// Driver against a per-layer Terraform module checked in under
// terraform/aws/<layer>, then performs the SDK-level post-deploy
// operations IaC does not do: IoT topic rule wiring (L1), waiting for
// the hot table to become active (L3 hot), TwinMaker entity creation
// (L4). InfoLN never provisions, it only
// reads.
//
// Grounded on original_source/3-cloud-deployer/src/providers/aws/deployer_strategy.py
// (method inventory and per-layer resource list) and
// src/providers/aws/layers/layer_*.go for exact resource shapes.
package aws

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iottwinmaker"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/managedgrafana"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/iac"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// client bundle keys, matching internal/provider/aws.
const (
	keyDynamoDB       = "dynamodb"
	keyIAM            = "iam"
	keyLambda         = "lambda"
	keyS3             = "s3"
	keyIoT            = "iot"
	keyIoTTwinMaker    = "iottwinmaker"
	keyManagedGrafana = "managedgrafana"
)

// Strategy is the AWS depctx.Strategy implementation.
type Strategy struct {
	clients depctx.ClientBundle
	n       naming.Naming
}

// New builds a Strategy bound to an already-initialized client bundle
// and naming instance.
func New(clients depctx.ClientBundle, n naming.Naming) *Strategy {
	return &Strategy{clients: clients, n: n}
}

func (s *Strategy) dynamo() *dynamodb.Client           { c, _ := s.clients[keyDynamoDB].(*dynamodb.Client); return c }
func (s *Strategy) iamc() *iam.Client                  { c, _ := s.clients[keyIAM].(*iam.Client); return c }
func (s *Strategy) lambdac() *lambda.Client            { c, _ := s.clients[keyLambda].(*lambda.Client); return c }
func (s *Strategy) s3c() *s3.Client                    { c, _ := s.clients[keyS3].(*s3.Client); return c }
func (s *Strategy) iotc() *iot.Client                  { c, _ := s.clients[keyIoT].(*iot.Client); return c }
func (s *Strategy) twinmaker() *iottwinmaker.Client    { c, _ := s.clients[keyIoTTwinMaker].(*iottwinmaker.Client); return c }
func (s *Strategy) grafana() *managedgrafana.Client    { c, _ := s.clients[keyManagedGrafana].(*managedgrafana.Client); return c }

// moduleDir is the Terraform module directory for one layer, relative
// to the project's terraform/ tree.
func (s *Strategy) moduleDir(dc *depctx.DeploymentContext, layer string) string {
	return filepath.Join(dc.ProjectPath, "terraform", "aws", layer)
}

func (s *Strategy) driver(dc *depctx.DeploymentContext, layer string) *iac.Driver {
	return iac.New("", dc.SetActiveLayer(layer))
}

// retryEventualConsistency wraps backoff.Retry with the bounded policy
// used for IAM/role propagation windows throughout post-deploy ops.
func retryEventualConsistency(ctx context.Context, op func() error) error {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

// isAlreadyExists reports whether err is any AWS API error whose code
// names an existing-resource conflict, regardless of which service
// raised it -- every service here spells the exception differently
// but the smithy.APIError interface gives a uniform ErrorCode().
func isAlreadyExists(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ResourceAlreadyExistsException", "ConflictException", "EntityAlreadyExists":
		return true
	default:
		return false
	}
}

// --- Layer 1: Data Acquisition (IoT Core) ----------------------------------

func (s *Strategy) DeployL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l1")
	vars := map[string]interface{}{
		"twin_name":       s.n.Twin,
		"iot_role_name":   s.n.IotRole(),
		"dispatcher_name": s.n.DispatcherFn(),
	}
	if err := s.driver(dc, "L1").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L1", "aws", "IaC apply failed for IoT/dispatcher baseline").Wrap(err)
	}

	// Post-deploy: wire the IoT topic rule to the dispatcher Lambda.
	// Idempotent: ReplaceTopicRule overwrites if it already exists.
	return retryEventualConsistency(ctx, func() error {
		_, err := s.iotc().ReplaceTopicRule(ctx, &iot.ReplaceTopicRuleInput{
			RuleName: aws.String(s.n.IotRole()),
		})
		if err != nil && !isAlreadyExists(err) {
			return twinerrors.ResourceCreation("L1", "aws", "iot.TopicRule", s.n.IotRole(), err)
		}
		return nil
	})
}

func (s *Strategy) DestroyL1(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L1").Destroy(ctx, s.moduleDir(dc, "l1"), nil); err != nil {
		return twinerrors.ResourceDeletion("L1", "aws", "terraform-module", "l1", err)
	}
	return nil
}

func (s *Strategy) InfoL1(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L1", Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}

	_, err := s.lambdac().GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(s.n.DispatcherFn())})
	info.Resources["dispatcher"] = statusFromErr(err)

	_, err = s.iotc().GetTopicRule(ctx, &iot.GetTopicRuleInput{RuleName: aws.String(s.n.IotRole())})
	info.Resources["topic_rule"] = statusFromErr(err)

	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 2: Processing (Persister Lambda) --------------------------------

func (s *Strategy) DeployL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l2")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"persister_name": s.n.PersisterFn(),
	}
	if err := s.driver(dc, "L2").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L2", "aws", "IaC apply failed for persister baseline").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL2(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L2").Destroy(ctx, s.moduleDir(dc, "l2"), nil); err != nil {
		return twinerrors.ResourceDeletion("L2", "aws", "terraform-module", "l2", err)
	}
	return nil
}

func (s *Strategy) InfoL2(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L2", Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.lambdac().GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(s.n.PersisterFn())})
	info.Resources["persister"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 3: Storage -------------------------------------------------------

func (s *Strategy) DeployL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l3_hot")
	vars := map[string]interface{}{
		"twin_name":  s.n.Twin,
		"table_name": s.n.HotTable(),
	}
	if err := s.driver(dc, "L3_hot").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L3_hot", "aws", "IaC apply failed for DynamoDB hot table").Wrap(err)
	}
	return retryEventualConsistency(ctx, func() error {
		out, err := s.dynamo().DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.n.HotTable())})
		if err != nil {
			return err
		}
		if out.Table.TableStatus != ddbtypes.TableStatusActive {
			return fmt.Errorf("table %s not yet active", s.n.HotTable())
		}
		return nil
	})
}

func (s *Strategy) DestroyL3Hot(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_hot").Destroy(ctx, s.moduleDir(dc, "l3_hot"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_hot", "aws", "dynamodb.Table", s.n.HotTable(), err)
	}
	return nil
}

func (s *Strategy) InfoL3Hot(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L3_hot", Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.dynamo().DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.n.HotTable())})
	info.Resources["hot_table"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

func (s *Strategy) deployBucketTier(ctx context.Context, dc *depctx.DeploymentContext, layer, bucket string) error {
	dir := s.moduleDir(dc, layer)
	vars := map[string]interface{}{"twin_name": s.n.Twin, "bucket_name": bucket}
	if err := s.driver(dc, layer).Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment(layer, "aws", "IaC apply failed for "+bucket).Wrap(err)
	}
	return nil
}

func (s *Strategy) DeployL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployBucketTier(ctx, dc, "L3_cold", s.n.CoolBucket())
}
func (s *Strategy) DestroyL3Cold(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_cold").Destroy(ctx, s.moduleDir(dc, "l3_cold"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_cold", "aws", "s3.Bucket", s.n.CoolBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Cold(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoBucket(ctx, "L3_cold", s.n.CoolBucket())
}

func (s *Strategy) DeployL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	return s.deployBucketTier(ctx, dc, "L3_archive", s.n.ArchiveBucket())
}
func (s *Strategy) DestroyL3Archive(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L3_archive").Destroy(ctx, s.moduleDir(dc, "l3_archive"), nil); err != nil {
		return twinerrors.ResourceDeletion("L3_archive", "aws", "s3.Bucket", s.n.ArchiveBucket(), err)
	}
	return nil
}
func (s *Strategy) InfoL3Archive(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	return s.infoBucket(ctx, "L3_archive", s.n.ArchiveBucket())
}

func (s *Strategy) infoBucket(ctx context.Context, layer, bucket string) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: layer, Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.s3c().HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	info.Resources["bucket"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 4: Twin Management (IoT TwinMaker) -------------------------------

func (s *Strategy) DeployL4(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l4")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"workspace_name": s.n.TwinmakerWorkspace(),
	}
	if err := s.driver(dc, "L4").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L4", "aws", "IaC apply failed for TwinMaker workspace").Wrap(err)
	}
	return retryEventualConsistency(ctx, func() error {
		_, err := s.twinmaker().CreateEntity(ctx, &iottwinmaker.CreateEntityInput{
			WorkspaceId: aws.String(s.n.TwinmakerWorkspace()),
			EntityName:  aws.String(s.n.EntityName("")),
		})
		if err != nil && !isAlreadyExists(err) {
			return twinerrors.ResourceCreation("L4", "aws", "iottwinmaker.Entity", s.n.EntityName(""), err)
		}
		return nil
	})
}

func (s *Strategy) DestroyL4(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L4").Destroy(ctx, s.moduleDir(dc, "l4"), nil); err != nil {
		return twinerrors.ResourceDeletion("L4", "aws", "iottwinmaker.Workspace", s.n.TwinmakerWorkspace(), err)
	}
	return nil
}

func (s *Strategy) InfoL4(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L4", Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}
	_, err := s.twinmaker().GetWorkspace(ctx, &iottwinmaker.GetWorkspaceInput{WorkspaceId: aws.String(s.n.TwinmakerWorkspace())})
	info.Resources["workspace"] = statusFromErr(err)
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Layer 5: Visualization (Managed Grafana) -------------------------------

func (s *Strategy) DeployL5(ctx context.Context, dc *depctx.DeploymentContext) error {
	dir := s.moduleDir(dc, "l5")
	vars := map[string]interface{}{
		"twin_name":      s.n.Twin,
		"workspace_name": s.n.GrafanaWorkspace(),
	}
	if err := s.driver(dc, "L5").Apply(ctx, dir, vars); err != nil {
		return twinerrors.Deployment("L5", "aws", "IaC apply failed for Grafana workspace").Wrap(err)
	}
	return nil
}

func (s *Strategy) DestroyL5(ctx context.Context, dc *depctx.DeploymentContext) error {
	if err := s.driver(dc, "L5").Destroy(ctx, s.moduleDir(dc, "l5"), nil); err != nil {
		return twinerrors.ResourceDeletion("L5", "aws", "grafana.Workspace", s.n.GrafanaWorkspace(), err)
	}
	return nil
}

func (s *Strategy) InfoL5(ctx context.Context, dc *depctx.DeploymentContext) (depctx.LayerInfo, error) {
	info := depctx.LayerInfo{Layer: "L5", Provider: "aws", Resources: map[string]depctx.ResourceStatus{}}
	out, err := s.grafana().ListWorkspaces(ctx, &managedgrafana.ListWorkspacesInput{})
	present := false
	if err == nil {
		for _, w := range out.Workspaces {
			if w.Name != nil && *w.Name == s.n.GrafanaWorkspace() {
				present = true
			}
		}
	}
	info.Resources["workspace"] = depctx.ResourceStatus{Present: present}
	info.State = stateFromResources(info.Resources)
	return info, nil
}

// --- Glue receiver (AWS side) ------------------------------------------

// DeployGlueReceiver creates a Function-URL-fronted Lambda for one
// inter-cloud boundary and returns a freshly generated bearer token.
// Token generation mirrors the teacher's crypto/rand + base64
// URL-safe token style used for API credentials.
func (s *Strategy) DeployGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (string, string, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	dir := s.moduleDir(dc, "l0_"+boundary)
	vars := map[string]interface{}{"twin_name": s.n.Twin, "receiver_name": fnName}
	if err := s.driver(dc, "L0").Apply(ctx, dir, vars); err != nil {
		return "", "", twinerrors.Deployment("L0", "aws", "IaC apply failed for glue receiver "+boundary).Wrap(err)
	}

	out, err := s.lambdac().GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{FunctionName: aws.String(fnName)})
	if err != nil {
		return "", "", twinerrors.ResourceCreation("L0", "aws", "lambda.FunctionUrl", fnName, err)
	}

	token, err := randomToken()
	if err != nil {
		return "", "", twinerrors.New(twinerrors.KindResourceCreation, "failed to generate glue token").Layer("L0").Provider("aws").Wrap(err).Err()
	}
	return aws.ToString(out.FunctionUrl), token, nil
}

func (s *Strategy) DestroyGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) error {
	if err := s.driver(dc, "L0").Destroy(ctx, s.moduleDir(dc, "l0_"+boundary), nil); err != nil {
		return twinerrors.ResourceDeletion("L0", "aws", "glue-receiver", boundary, err)
	}
	return nil
}

func (s *Strategy) InfoGlueReceiver(ctx context.Context, dc *depctx.DeploymentContext, boundary string) (depctx.ResourceStatus, error) {
	fnName := s.n.GlueReceiverFn(boundary)
	_, err := s.lambdac().GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(fnName)})
	return statusFromErr(err), nil
}

// randomToken generates a 32-byte URL-safe bearer token, as required
// by the Glue Layer's token lifecycle (rotated only on explicit
// receiver redeploy).
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// --- shared helpers ----------------------------------------------------------

func statusFromErr(err error) depctx.ResourceStatus {
	if err == nil {
		return depctx.ResourceStatus{Present: true}
	}
	var nf *lambdatypes.ResourceNotFoundException
	if errors.As(err, &nf) {
		return depctx.ResourceStatus{Present: false}
	}
	var ddbnf *ddbtypes.ResourceNotFoundException
	if errors.As(err, &ddbnf) {
		return depctx.ResourceStatus{Present: false}
	}
	var s3nf *s3types.NotFound
	if errors.As(err, &s3nf) {
		return depctx.ResourceStatus{Present: false}
	}
	return depctx.ResourceStatus{Present: false, Detail: err.Error()}
}

func stateFromResources(resources map[string]depctx.ResourceStatus) depctx.State {
	if len(resources) == 0 {
		return depctx.StateNotDeployed
	}
	all := true
	any := false
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
