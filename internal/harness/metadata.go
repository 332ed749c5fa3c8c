package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/canonical/ceph-bench/internal/bench"
)

// RunMetadata holds everything recorded about one benchmark run.
type RunMetadata struct {
	RunID     string            `json:"run_id"`
	Benchmark string            `json:"benchmark"`
	Unit      string            `json:"unit,omitempty"`
	Host      string            `json:"host,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Params    map[string]string `json:"params,omitempty"`
	Result    *bench.Result     `json:"result,omitempty"`
	Custom    map[string]string `json:"custom,omitempty"`
}

// generateRunID returns the next free run directory name, a simple
// increasing counter.
func generateRunID(outputDir string) string {
	for runNum := 1; ; runNum++ {
		runID := fmt.Sprintf("%d", runNum)
		if _, err := os.Stat(filepath.Join(outputDir, runID)); os.IsNotExist(err) {
			return runID
		}
	}
}

// saveMetadata writes metadata.json into the run directory.
func saveMetadata(metadata *RunMetadata, runDir string) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), data, 0644); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}
	return nil
}

// LoadRunMetadata reads a run's metadata.json.
func LoadRunMetadata(path string) (*RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run metadata: %w", err)
	}
	var md RunMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("unmarshalling run metadata: %w", err)
	}
	return &md, nil
}
