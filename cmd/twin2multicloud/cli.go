// Package main implements the twin2multicloud command-line interface:
// the composition root that wires internal/registry, internal/config,
// internal/orchestrator, and internal/cost together behind a small set
// of cobra subcommands.
//
// Grounded structurally on
// _examples/varadharajaan-multicloud-spot-analyzer/internal/cli/cli.go's
// CLI{rootCmd}/buildCommands()/subcommand-builder-method pattern, and
// on the teacher's cmd/driftmgr/main.go for the no-args
// help-plus-credential-status fallback and the plain, emoji-free
// output texture (✓/✗ status glyphs, tablewriter tables, no banner
// graphics beyond the root command's Long description).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/twin2multicloud/deployer/internal/cost/currency"
	"github.com/twin2multicloud/deployer/internal/glue"
	"github.com/twin2multicloud/deployer/internal/lock"
	"github.com/twin2multicloud/deployer/internal/logging"
	"github.com/twin2multicloud/deployer/internal/metrics"
	"github.com/twin2multicloud/deployer/internal/notify"
	"github.com/twin2multicloud/deployer/internal/orchestrator"
	"github.com/twin2multicloud/deployer/internal/provider/aws"
	"github.com/twin2multicloud/deployer/internal/provider/azure"
	"github.com/twin2multicloud/deployer/internal/provider/gcp"
	"github.com/twin2multicloud/deployer/internal/registry"
	"github.com/twin2multicloud/deployer/internal/telemetry"
)

// CLI encapsulates the command-line interface.
type CLI struct {
	rootCmd *cobra.Command
	reg     *registry.Registry
	log     *logging.Logger
	metrics *metrics.Metrics
	tracer  *telemetry.Provider
}

// New builds the CLI: a provider registry carrying all three clouds,
// a root logger, a Prometheus metrics collector, an optional tracer
// provider (see tracerFromEnv), and the full command tree.
func New() *CLI {
	reg := registry.New()
	reg.MustRegister("aws", aws.New)
	reg.MustRegister("azure", azure.New)
	reg.MustRegister("google", gcp.New)

	c := &CLI{
		reg:     reg,
		log:     logging.New(logging.DefaultConfig()),
		metrics: metrics.New(),
		tracer:  tracerFromEnv(),
	}
	c.buildCommands()
	return c
}

// Execute runs the CLI, flushing any tracer provider on the way out.
func (c *CLI) Execute() error {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.tracer.Shutdown(ctx); err != nil {
			c.log.Warn("tracer shutdown failed", "error", err)
		}
	}()
	return c.rootCmd.Execute()
}

// tracerFromEnv builds a telemetry.Provider honoring
// TWIN2MULTICLOUD_TRACE_EXPORTER (stdout, otlp, jaeger) and
// TWIN2MULTICLOUD_TRACE_ENDPOINT. Tracing is opt-in: set
// TWIN2MULTICLOUD_TRACE_EXPORTER to enable it, otherwise tracerFromEnv
// returns nil and every Tracer.Start call is a safe no-op.
func tracerFromEnv() *telemetry.Provider {
	exporter := os.Getenv("TWIN2MULTICLOUD_TRACE_EXPORTER")
	if exporter == "" {
		return nil
	}
	provider, err := telemetry.New(context.Background(), "twin2multicloud", telemetry.Config{
		Exporter:       telemetry.Exporter(exporter),
		Endpoint:       os.Getenv("TWIN2MULTICLOUD_TRACE_ENDPOINT"),
		ServiceVersion: "0.1.0",
		Environment:    os.Getenv("TWIN2MULTICLOUD_ENV"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "twin2multicloud: tracing disabled: %v\n", err)
		return nil
	}
	return provider
}

func (c *CLI) buildCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "twin2multicloud",
		Short: "Deploy and cost a five-layer IoT Digital Twin across AWS, Azure, and GCP",
		Long: `twin2multicloud stands up, tears down, and prices a Digital Twin's
five pipeline layers (ingestion, processing, hot/cool/archive storage,
twin management, visualization) independently on AWS, Azure, or GCP,
wiring cross-cloud glue receivers at every provider boundary.`,
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			printUsage(cmd)
			fmt.Println()
			showCredentialStatus()
			return nil
		},
	}

	c.rootCmd.AddCommand(c.deployCmd())
	c.rootCmd.AddCommand(c.destroyCmd())
	c.rootCmd.AddCommand(c.infoCmd())
	c.rootCmd.AddCommand(c.costCmd())
	c.rootCmd.AddCommand(c.validateCmd())
}

func printUsage(cmd *cobra.Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage: twin2multicloud [command] [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  deploy     Deploy every configured layer in order")
	fmt.Println("  destroy    Tear down every configured layer and sweep for orphans")
	fmt.Println("  info       Show the current state of every layer and glue boundary")
	fmt.Println("  cost       Solve for the cheapest cross-cloud placement")
	fmt.Println("  validate   Check one provider's pricing table is complete")
}

// showCredentialStatus reports whether each provider's default
// credential file is present under the current directory's
// credentials_<provider>.json, the same no-args status check
// cmd/driftmgr/main.go runs before any command is given.
func showCredentialStatus() {
	fmt.Println("Detected provider credential files (in the current directory):")
	fmt.Println("-----------------------------------------------")
	for _, p := range []string{"aws", "azure", "google"} {
		path := "credentials_" + p + ".json"
		status := "✗ not found"
		if _, err := os.Stat(path); err == nil {
			status = "✓ found"
		}
		fmt.Printf("%-10s %s\n", p+":", status)
	}
	fmt.Println("-----------------------------------------------")
	fmt.Println("A provider with no credentials file still works if its SDK finds")
	fmt.Println("ambient credentials (an attached IAM role, az login, or ADC).")
}

// buildOrchestrator wires an Orchestrator from environment-derived
// collaborators: the distributed lock (etcd if ETCD_ENDPOINTS is set,
// in-process otherwise), the optional SMTP failure-alert mailer, and an
// optional live progress hub.
func (c *CLI) buildOrchestrator(withProgress bool) (*orchestrator.Orchestrator, *glue.ProgressHub, error) {
	locker, err := lock.FromEnv("twin2multicloud")
	if err != nil {
		return nil, nil, fmt.Errorf("building lock backend: %w", err)
	}

	mailer := notify.New(notify.FromEnv())

	var hub *glue.ProgressHub
	if withProgress {
		hub = glue.NewProgressHub()
	}

	return orchestrator.New(c.reg, locker, hub, mailer, c.log, c.metrics, c.tracer), hub, nil
}

// defaultTimeout bounds one deploy/destroy/info run: long enough for a
// full five-layer provision across three clouds, short enough that a
// hung SDK call doesn't block the CLI forever.
const defaultTimeout = 30 * time.Minute

// runContext returns a context cancelled on SIGINT/SIGTERM or after
// defaultTimeout, so a deploy or destroy in flight gets a chance to
// return its in-progress results instead of being killed mid-call.
func runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, timeoutCancel := context.WithTimeout(ctx, defaultTimeout)
	return ctx, func() { timeoutCancel(); cancel() }
}

func runContextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func newRunID() string {
	return uuid.NewString()
}

func currencyClient() *currency.CachedClient {
	url := os.Getenv("TWIN2MULTICLOUD_RATE_URL")
	if url == "" {
		return nil
	}
	source := currency.NewHTTPRateSource(url, nil)
	return currency.NewCachedClient(source, nil, nil)
}
