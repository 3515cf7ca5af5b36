// Package iac implements component 4.J, the IaC Driver: a uniform
// wrapper around an external declarative provisioning tool
// (Terraform). Each layer's Strategy calls Apply with a working
// directory holding that layer's module and a var map; the driver
// writes a sidecar tfvars file (removed after the run, even on
// failure, since it may carry secrets), shells out, and surfaces
// failures as a DeploymentError carrying the tool's captured output.
//
// Grounded on the teacher's os/exec-based terraform wrapping in
// internal/terraform/remediation/state_manager.go (tfvars/state
// handling) and cmd/driftmgr's exec.Command usage; output parsing
// uses the same github.com/hashicorp/terraform-json the teacher
// already depends on.
package iac

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	tfjson "github.com/hashicorp/terraform-json"

	"github.com/twin2multicloud/deployer/internal/logging"
	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

// Driver runs terraform against one module directory.
type Driver struct {
	Binary string // defaults to "terraform"
	Log    *logging.Logger
}

// New returns a Driver using the given logger for captured tool
// output. binary may be empty to use "terraform" from PATH.
func New(binary string, log *logging.Logger) *Driver {
	if binary == "" {
		binary = "terraform"
	}
	return &Driver{Binary: binary, Log: log}
}

// varsFileName is the sidecar file name written before every run and
// removed immediately after, success or failure.
const varsFileName = ".deployer.auto.tfvars.json"

// Init runs `terraform init` in dir.
func (d *Driver) Init(ctx context.Context, dir string) error {
	return d.run(ctx, dir, "init", "-input=false")
}

// Plan runs `terraform plan` with vars written to the sidecar file.
func (d *Driver) Plan(ctx context.Context, dir string, vars map[string]interface{}) error {
	cleanup, err := d.writeVars(dir, vars)
	defer cleanup()
	if err != nil {
		return err
	}
	return d.run(ctx, dir, "plan", "-input=false", "-var-file="+varsFileName)
}

// Apply runs `terraform apply -auto-approve` with vars written to the
// sidecar file. Blocks until the tool returns.
func (d *Driver) Apply(ctx context.Context, dir string, vars map[string]interface{}) error {
	cleanup, err := d.writeVars(dir, vars)
	defer cleanup()
	if err != nil {
		return err
	}
	return d.run(ctx, dir, "apply", "-input=false", "-auto-approve", "-var-file="+varsFileName)
}

// Destroy runs `terraform destroy -auto-approve`.
func (d *Driver) Destroy(ctx context.Context, dir string, vars map[string]interface{}) error {
	cleanup, err := d.writeVars(dir, vars)
	defer cleanup()
	if err != nil {
		return err
	}
	return d.run(ctx, dir, "destroy", "-input=false", "-auto-approve", "-var-file="+varsFileName)
}

// Outputs runs `terraform show -json` and parses it with
// hashicorp/terraform-json, returning the named output values.
func (d *Driver) Outputs(ctx context.Context, dir string) (map[string]interface{}, error) {
	cmd := exec.CommandContext(ctx, d.Binary, "show", "-json")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, twinerrors.Deployment("iac", "", "terraform show -json failed").
			Wrap(err).Detail("stderr", stderr.String())
	}

	var state tfjson.State
	if err := json.Unmarshal(stdout.Bytes(), &state); err != nil {
		return nil, twinerrors.Deployment("iac", "", "failed to parse terraform show -json output").Wrap(err)
	}

	out := make(map[string]interface{}, len(state.Values.Outputs))
	if state.Values != nil {
		for name, o := range state.Values.Outputs {
			out[name] = o.Value
		}
	}
	return out, nil
}

func (d *Driver) writeVars(dir string, vars map[string]interface{}) (func(), error) {
	path := filepath.Join(dir, varsFileName)
	cleanup := func() { os.Remove(path) }

	if vars == nil {
		vars = map[string]interface{}{}
	}
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return cleanup, twinerrors.Deployment("iac", "", "failed to marshal tfvars").Wrap(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cleanup, twinerrors.Deployment("iac", "", "failed to create module directory").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return cleanup, twinerrors.Deployment("iac", "", "failed to write tfvars sidecar").Wrap(err)
	}
	return cleanup, nil
}

func (d *Driver) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, d.Binary, args...)
	cmd.Dir = dir
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if d.Log != nil {
		for _, line := range splitLines(combined.String()) {
			d.Log.Debug("terraform", "line", line)
		}
	}
	if err != nil {
		return twinerrors.Deployment("iac", "", "terraform "+args[0]+" failed").
			Wrap(err).Detail("output", combined.String())
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
