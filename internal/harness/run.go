package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/canonical/ceph-bench/internal/bench"
	"github.com/canonical/ceph-bench/internal/execution"
	"github.com/canonical/ceph-bench/internal/juju"
)

// resultsKey is where the woodpecker actions put their raw report.
const resultsKey = "test-results"

// Run invokes a benchmark action on the configured unit, parses the raw
// report and prints and stores the summary. Unknown benchmark names and
// failed actions are user-facing diagnostics, not errors.
func (h *Harness) Run(ctx context.Context, name string, args []string) error {
	parser := bench.ParserFor(name)
	if parser == nil {
		fmt.Fprintf(h.out, "invalid benchmark specified: %s (one of %s)\n",
			name, strings.Join(bench.Benchmarks(), ", "))
		return nil
	}

	params, err := pairsToParams(args)
	if err != nil {
		return err
	}
	coerced := h.orch.CoerceParams(ctx, h.cfg.Run.Application, name, params)

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout())
	defer cancel()

	started := time.Now()
	h.logger.Printf("running benchmark %s on %s", name, h.cfg.Run.Unit)
	result, err := h.orch.RunAction(ctx, h.cfg.Run.Unit, name, coerced)
	if err != nil {
		return fmt.Errorf("invoking %s: %w", name, err)
	}
	if result.Status != juju.StatusCompleted {
		fmt.Fprintf(h.out, "benchmark failed: %s\n", result.Message)
		return nil
	}

	raw, err := result.RawOutput(resultsKey)
	if err != nil {
		return err
	}
	_, err = h.finishRun(runRecord{
		benchmark: name,
		unit:      h.cfg.Run.Unit,
		params:    params,
		started:   started,
	}, parser, raw)
	return err
}

// RunDirect executes the benchmark wrapper over SSH on a configured host,
// bypassing the orchestrator, and feeds the output to the same parser.
func (h *Harness) RunDirect(ctx context.Context, hostAlias, name string, args []string) error {
	parser := bench.ParserFor(name)
	if parser == nil {
		fmt.Fprintf(h.out, "invalid benchmark specified: %s (one of %s)\n",
			name, strings.Join(bench.Benchmarks(), ", "))
		return nil
	}

	host, ok := h.cfg.Hosts[hostAlias]
	if !ok {
		return fmt.Errorf("unknown host %q", hostAlias)
	}
	params, err := pairsToParams(args)
	if err != nil {
		return err
	}

	client, err := h.dial(host)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout())
	defer cancel()

	if src := h.cfg.Run.AgentSource; src != "" {
		h.logger.Printf("uploading benchmark agent to %s:%s", hostAlias, h.cfg.Run.AgentPath)
		if err := client.Upload(ctx, src, h.cfg.Run.AgentPath); err != nil {
			return fmt.Errorf("uploading benchmark agent: %w", err)
		}
	}

	started := time.Now()
	h.logger.Printf("running benchmark %s on host %s", name, hostAlias)
	res, err := client.Run(ctx, execution.Request{Command: agentCommand(h.cfg.Run.AgentPath, name, params)})
	if err != nil || res.ExitCode != 0 {
		fmt.Fprintf(h.out, "benchmark failed: %s\n", strings.TrimSpace(res.Output))
		return nil
	}

	runDir, err := h.finishRun(runRecord{
		benchmark: name,
		host:      hostAlias,
		params:    params,
		started:   started,
	}, parser, res.Output)
	if err != nil {
		return err
	}

	// The raw report file the tool writes on the host is kept alongside
	// the run metadata when collection is configured.
	if remote := h.cfg.Run.Collect; remote != "" && runDir != "" {
		local := filepath.Join(runDir, filepath.Base(remote))
		if err := client.Fetch(ctx, remote, local); err != nil {
			h.logger.Printf("failed to collect %s from %s: %v", remote, hostAlias, err)
		}
	}
	return nil
}

type runRecord struct {
	benchmark string
	unit      string
	host      string
	params    map[string]string
	started   time.Time
}

// finishRun parses the raw report, prints the summary and stores the run,
// returning the run directory (empty when storage failed). A reporting
// precondition failure is recovered here: the run is recorded, it just
// could not be summarized.
func (h *Harness) finishRun(rec runRecord, parser bench.Parser, raw string) (string, error) {
	result, err := parser.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %s output: %w", rec.benchmark, err)
	}

	if err := bench.Report(h.out, rec.benchmark, result); err != nil {
		fmt.Fprintf(h.out, "failed to print results: %v\n", err)
	}

	runDir, err := h.storeRun(rec, result)
	if err != nil {
		h.logger.Printf("failed to store run results: %v", err)
		return "", nil
	}
	return runDir, nil
}

func (h *Harness) storeRun(rec runRecord, result *bench.Result) (string, error) {
	outputDir := h.cfg.Harness.OutputDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	runID := generateRunID(outputDir)
	runDir := filepath.Join(outputDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metadata := &RunMetadata{
		RunID:     runID,
		Benchmark: rec.benchmark,
		Unit:      rec.unit,
		Host:      rec.host,
		StartTime: rec.started,
		EndTime:   time.Now(),
		Params:    rec.params,
		Result:    result,
	}
	if err := saveMetadata(metadata, runDir); err != nil {
		return "", err
	}

	historyPath := filepath.Join(outputDir, "results.csv")
	if err := bench.AppendHistory(historyPath, rec.benchmark, rec.started, result); err != nil {
		return "", err
	}
	h.logger.Printf("results saved to %s", runDir)
	return runDir, nil
}

// agentCommand renders the direct-mode wrapper invocation with parameters
// in a stable order.
func agentCommand(agentPath, name string, params map[string]string) string {
	var out strings.Builder
	out.WriteString(agentPath)
	out.WriteString(" ")
	out.WriteString(name)
	for _, k := range sortedKeys(params) {
		fmt.Fprintf(&out, " %s='%s'", k, strings.ReplaceAll(params[k], "'", `'\''`))
	}
	return out.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
