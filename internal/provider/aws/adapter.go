// Package aws implements the AWS provider adapter: SDK client bundle
// construction and twin-existence probing. The ordered
// per-layer deploy/destroy/info operations live in
// internal/strategy/aws, kept separate so the adapter stays a thin
// "what do I need to talk to AWS" construction step.
//
// Grounded on original_source/3-cloud-deployer/src/providers/aws/clients.py
// for the client set, and the teacher's internal/cloud/aws client
// construction style (aws-sdk-go-v2 config.LoadDefaultConfig +
// NewFromConfig per service).
package aws

import (
	"context"
	"strings"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iottwinmaker"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/managedgrafana"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	tconfig "github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	stratAWS "github.com/twin2multicloud/deployer/internal/strategy/aws"
	"github.com/twin2multicloud/deployer/internal/naming"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Client bundle keys, shared with internal/strategy/aws.
const (
	KeyDynamoDB       = "dynamodb"
	KeyIAM            = "iam"
	KeyLambda         = "lambda"
	KeyS3             = "s3"
	KeyIoT            = "iot"
	KeyIoTTwinMaker    = "iottwinmaker"
	KeyManagedGrafana = "managedgrafana"
	KeyEventBridge    = "eventbridge"
	KeyAPIGateway     = "apigateway"
	KeyCloudWatchLogs = "cloudwatchlogs"
	KeySTS            = "sts"
)

// Adapter is the AWS depctx.Adapter implementation.
type Adapter struct {
	twinName string
	n        naming.Naming
	clients  depctx.ClientBundle
}

// New returns an uninitialized AWS adapter, suitable for
// registry.Factory.
func New() depctx.Adapter {
	return &Adapter{}
}

func (a *Adapter) Name() string { return string(tconfig.AWS) }

// Initialize builds every AWS SDK client the AWS strategy might need.
// It accepts static credentials from the Credentials map when present
// (access_key_id/secret_access_key/session_token/region) and falls
// back to the default provider chain (env vars, shared config,
// attached role) otherwise -- the same degrade-gracefully pattern the
// teacher's role-assumption helper uses.
func (a *Adapter) Initialize(ctx context.Context, creds tconfig.Credentials, twinName string) error {
	if !naming.ValidTwinName(twinName) {
		return twinerrors.Configuration("config.json", "digital_twin_name", "twin name fails naming validation")
	}
	a.twinName = twinName
	a.n = naming.New(twinName)

	opts := []func(*awscfg.LoadOptions) error{}
	if region := creds["region"]; region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	if ak, sk := creds["access_key_id"], creds["secret_access_key"]; ak != "" && sk != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, creds["session_token"]),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return twinerrors.New(twinerrors.KindConfiguration, "failed to load AWS credentials").
			Provider("aws").Wrap(err).Err()
	}

	a.clients = depctx.ClientBundle{
		KeyDynamoDB:       dynamodb.NewFromConfig(cfg),
		KeyIAM:            iam.NewFromConfig(cfg),
		KeyLambda:         lambda.NewFromConfig(cfg),
		KeyS3:             s3.NewFromConfig(cfg),
		KeyIoT:            iot.NewFromConfig(cfg),
		KeyIoTTwinMaker:    iottwinmaker.NewFromConfig(cfg),
		KeyManagedGrafana: managedgrafana.NewFromConfig(cfg),
		KeyEventBridge:    eventbridge.NewFromConfig(cfg),
		KeyAPIGateway:     apigateway.NewFromConfig(cfg),
		KeyCloudWatchLogs: cloudwatchlogs.NewFromConfig(cfg),
		KeySTS:            sts.NewFromConfig(cfg),
		"aws.Config":       cfg,
	}
	return nil
}

func (a *Adapter) Clients() depctx.ClientBundle { return a.clients }
func (a *Adapter) Naming() naming.Naming        { return a.n }

// TwinExists probes S3 (the service every twin touches, since Cool and
// Archive buckets are always AWS-nameable even when unused) and
// DynamoDB for any resource carrying this twin's prefix.
func (a *Adapter) TwinExists(ctx context.Context) (bool, error) {
	s3c, _ := a.clients[KeyS3].(*s3.Client)
	if s3c == nil {
		return false, twinerrors.New(twinerrors.KindConfiguration, "adapter not initialized").Provider("aws").Err()
	}
	out, err := s3c.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return false, twinerrors.ResourceCreation("info", "aws", "s3.ListBuckets", "", err)
	}
	for _, b := range out.Buckets {
		if b.Name != nil && strings.HasPrefix(*b.Name, a.n.Prefix()) {
			return true, nil
		}
	}

	ddbc, _ := a.clients[KeyDynamoDB].(*dynamodb.Client)
	tables, err := ddbc.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return false, twinerrors.ResourceCreation("info", "aws", "dynamodb.ListTables", "", err)
	}
	for _, t := range tables.TableNames {
		if strings.HasPrefix(t, a.n.UnderscorePrefix()) {
			return true, nil
		}
	}
	return false, nil
}

func (a *Adapter) Strategy() depctx.Strategy {
	return stratAWS.New(a.clients, a.n)
}
