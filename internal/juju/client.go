// Package juju wraps the juju CLI: model management, bundle deployment,
// action invocation and action schema lookup. It is the harness's only
// boundary with the orchestrator control plane.
package juju

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/canonical/ceph-bench/internal/execution"
)

// StatusCompleted is the action status reported for a successful run.
// Anything else is a benchmark failure.
const StatusCompleted = "completed"

// Runner executes CLI commands. Satisfied by execution.Client; tests
// substitute a fake returning canned output.
type Runner interface {
	Run(ctx context.Context, req execution.Request) (execution.Result, error)
}

// Client drives the juju CLI against one model.
type Client struct {
	runner Runner
	logger *log.Logger
	bin    string
	model  string
}

// NewClient returns a client running juju commands through the given runner.
// An empty model means the currently selected one.
func NewClient(runner Runner, logger *log.Logger, model string) *Client {
	return &Client{
		runner: runner,
		logger: logger,
		bin:    "juju",
		model:  model,
	}
}

// ActionResult is the parsed outcome of one action invocation on a unit.
type ActionResult struct {
	ID      string         `yaml:"id"`
	Status  string         `yaml:"status"`
	Message string         `yaml:"message"`
	Results map[string]any `yaml:"results"`
}

// RawOutput returns the string payload stored under the given results key,
// or an error if it is missing or not a string.
func (r *ActionResult) RawOutput(key string) (string, error) {
	val, ok := r.Results[key]
	if !ok {
		return "", fmt.Errorf("action results have no %q key", key)
	}
	raw, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("action result %q is not a string (got %T)", key, val)
	}
	return raw, nil
}

// AddModel creates a new model.
func (c *Client) AddModel(ctx context.Context, name string) error {
	res, err := c.runner.Run(ctx, execution.Request{
		Command: fmt.Sprintf("%s add-model %s", c.bin, shellQuote(name)),
	})
	if err != nil {
		return fmt.Errorf("add-model %s: %w: %s", name, err, strings.TrimSpace(res.Output))
	}
	return nil
}

// Switch selects the model for subsequent interactive juju commands.
func (c *Client) Switch(ctx context.Context, name string) error {
	res, err := c.runner.Run(ctx, execution.Request{
		Command: fmt.Sprintf("%s switch %s", c.bin, shellQuote(name)),
	})
	if err != nil {
		return fmt.Errorf("switch %s: %w: %s", name, err, strings.TrimSpace(res.Output))
	}
	return nil
}

// DeployBundle submits a bundle file to the model.
func (c *Client) DeployBundle(ctx context.Context, path string) error {
	res, err := c.runner.Run(ctx, execution.Request{
		Command: fmt.Sprintf("%s deploy %s%s", c.bin, c.modelFlag(), shellQuote(path)),
	})
	if err != nil {
		return fmt.Errorf("deploy %s: %w: %s", path, err, strings.TrimSpace(res.Output))
	}
	return nil
}

// RunAction invokes an action on a unit and waits for it to finish. The
// returned result carries the action status; a non-completed status is not
// an error here, callers decide how to surface it.
func (c *Client) RunAction(ctx context.Context, unit, action string, params map[string]any) (*ActionResult, error) {
	cmd := fmt.Sprintf("%s run %s--format yaml %s %s%s",
		c.bin, c.modelFlag(), shellQuote(unit), shellQuote(action), paramArgs(params))

	res, runErr := c.runner.Run(ctx, execution.Request{Command: cmd})

	// juju exits non-zero for failed actions but still prints the result;
	// prefer the parsed result over the exit status.
	var byUnit map[string]*ActionResult
	if err := yaml.Unmarshal([]byte(res.Output), &byUnit); err != nil || len(byUnit) == 0 {
		if runErr != nil {
			return nil, fmt.Errorf("run action %s on %s: %w: %s", action, unit, runErr, strings.TrimSpace(res.Output))
		}
		if err != nil {
			return nil, fmt.Errorf("parsing action output for %s: %w", action, err)
		}
		return nil, fmt.Errorf("empty action output for %s", action)
	}

	if result, ok := byUnit[unit]; ok {
		return result, nil
	}
	// Single-entry output keyed differently (e.g. leader syntax).
	for _, result := range byUnit {
		return result, nil
	}
	return nil, fmt.Errorf("no action result for unit %s", unit)
}

// Exec runs a raw command on a unit via juju ssh and returns its output.
func (c *Client) Exec(ctx context.Context, unit, command string) (string, error) {
	cmd := fmt.Sprintf("%s ssh %s%s %s", c.bin, c.modelFlag(), shellQuote(unit), shellQuote(command))
	res, err := c.runner.Run(ctx, execution.Request{Command: cmd})
	if err != nil {
		return res.Output, fmt.Errorf("juju ssh %s: %w", unit, err)
	}
	return res.Output, nil
}

// Units lists the unit names of an application, sorted.
func (c *Client) Units(ctx context.Context, application string) ([]string, error) {
	cmd := fmt.Sprintf("%s status %s%s --format yaml", c.bin, c.modelFlag(), shellQuote(application))
	res, err := c.runner.Run(ctx, execution.Request{Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("juju status %s: %w", application, err)
	}

	var status struct {
		Applications map[string]struct {
			Units map[string]any `yaml:"units"`
		} `yaml:"applications"`
	}
	if err := yaml.Unmarshal([]byte(res.Output), &status); err != nil {
		return nil, fmt.Errorf("parsing juju status: %w", err)
	}
	app, ok := status.Applications[application]
	if !ok {
		return nil, fmt.Errorf("application %s not found in model", application)
	}

	units := make([]string, 0, len(app.Units))
	for name := range app.Units {
		units = append(units, name)
	}
	sort.Strings(units)
	return units, nil
}

func (c *Client) modelFlag() string {
	if c.model == "" {
		return ""
	}
	return fmt.Sprintf("-m %s ", shellQuote(c.model))
}

// paramArgs renders action parameters as key=value CLI arguments in a
// stable order.
func paramArgs(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&out, " %s=%s", k, shellQuote(fmt.Sprintf("%v", params[k])))
	}
	return out.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
