// Package harness ties the pieces together: it deploys the benchmarking
// topology and runs benchmarks end to end, from action invocation through
// parsing, reporting and result storage.
package harness

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/canonical/ceph-bench/internal/config"
	"github.com/canonical/ceph-bench/internal/execution"
	"github.com/canonical/ceph-bench/internal/juju"
)

// Orchestrator is the control-plane surface the harness needs. Satisfied by
// *juju.Client; tests substitute a fake.
type Orchestrator interface {
	AddModel(ctx context.Context, name string) error
	Switch(ctx context.Context, name string) error
	DeployBundle(ctx context.Context, path string) error
	RunAction(ctx context.Context, unit, action string, params map[string]any) (*juju.ActionResult, error)
	CoerceParams(ctx context.Context, application, action string, params map[string]string) map[string]any
}

// Harness executes deployment and benchmark workflows.
type Harness struct {
	cfg    *config.Config
	orch   Orchestrator
	logger *log.Logger
	out    io.Writer

	// dial connects to a host for direct mode; swapped out in tests.
	dial func(execution.Host) (execution.Client, error)
}

// New returns a harness writing user-facing output to out.
func New(cfg *config.Config, orch Orchestrator, logger *log.Logger, out io.Writer) *Harness {
	return &Harness{
		cfg:    cfg,
		orch:   orch,
		logger: logger,
		out:    out,
		dial:   execution.NewSSHClient,
	}
}

// NewLogger creates the harness logger per the logging configuration:
// stdout unless a file path is configured.
func NewLogger(cfg *config.Config) (*log.Logger, func(), error) {
	if cfg.Harness.Logging != nil && cfg.Harness.Logging.Path != "" {
		file, err := os.Create(cfg.Harness.Logging.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("creating log file: %w", err)
		}
		return log.New(file, "", log.LstdFlags), func() { file.Close() }, nil
	}
	return log.New(os.Stdout, "", log.LstdFlags), func() {}, nil
}

// pairsToParams converts a flat "key value key value ..." argument list
// into a parameter map.
func pairsToParams(args []string) (map[string]string, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("parameters must be key value pairs, got %d arguments", len(args))
	}
	params := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		params[args[i]] = args[i+1]
	}
	return params, nil
}
