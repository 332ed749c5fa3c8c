//go:build integration

package test

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/canonical/ceph-bench/internal/config"
	"github.com/canonical/ceph-bench/internal/execution"
	"github.com/canonical/ceph-bench/internal/harness"
	"github.com/canonical/ceph-bench/internal/juju"
)

const commandTimeout = 30 * time.Second

// stubJuju installs a fake juju binary on PATH that serves canned action
// results, so the full command pipeline runs without a controller.
func stubJuju(t *testing.T, actionResultYAML string) {
	t.Helper()
	binDir := t.TempDir()

	resultPath := filepath.Join(binDir, "action-result.yaml")
	if err := os.WriteFile(resultPath, []byte(actionResultYAML), 0644); err != nil {
		t.Fatal(err)
	}

	script := fmt.Sprintf(`#!/bin/sh
case "$1" in
run)
	cat %s
	;;
actions)
	echo "{}"
	;;
*)
	exit 0
	;;
esac
`, resultPath)
	if err := os.WriteFile(filepath.Join(binDir, "juju"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Harness.OutputDir = t.TempDir()
	return cfg
}

func TestRunThroughModel(t *testing.T) {
	fioOutput := `{"jobs":[{"elapsed":30,` +
		`"read":{"total_ios":3000,"iops":100.0,"bw":4096},` +
		`"write":{"total_ios":1500,"iops":50.0,"bw":2048}}]}`
	stubJuju(t, fmt.Sprintf(`"woodpecker/0":
  id: "4"
  status: completed
  results:
    test-results: '%s'
`, fioOutput))

	cfg := testConfig(t)
	logger := log.New(io.Discard, "", 0)
	jc := juju.NewClient(execution.NewLocalClient(), logger, "")
	h := harness.New(cfg, jc, logger, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.Run(ctx, "fio", []string{"runtime", "30"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	md, err := harness.LoadRunMetadata(filepath.Join(cfg.Harness.OutputDir, "1", "metadata.json"))
	if err != nil {
		t.Fatalf("expected stored run: %v", err)
	}
	if md.Result == nil || md.Result.Read.Ops != 3000 || md.Result.Write.IOPS != 50.0 {
		t.Fatalf("unexpected stored result: %+v", md.Result)
	}

	history, err := os.ReadFile(filepath.Join(cfg.Harness.OutputDir, "results.csv"))
	if err != nil {
		t.Fatalf("expected history file: %v", err)
	}
	if !strings.Contains(string(history), ",fio,30,3000,100,4096,1500,50,2048") {
		t.Fatalf("unexpected history contents:\n%s", history)
	}
}

func TestRunFailedAction(t *testing.T) {
	stubJuju(t, `"woodpecker/0":
  id: "5"
  status: failed
  message: rbd pool missing
`)

	cfg := testConfig(t)
	logger := log.New(io.Discard, "", 0)
	jc := juju.NewClient(execution.NewLocalClient(), logger, "")

	var out strings.Builder
	h := harness.New(cfg, jc, logger, &out)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.Run(ctx, "rbd-bench", nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "benchmark failed: rbd pool missing") {
		t.Fatalf("expected failure message, got %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(cfg.Harness.OutputDir, "1")); !os.IsNotExist(err) {
		t.Fatal("no run should be stored for a failed action")
	}
}
