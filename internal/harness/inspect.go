package harness

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goforj/godump"

	"github.com/canonical/ceph-bench/internal/bench"
)

// InspectRun renders a stored run's metadata. With verbose set, the full
// metadata structure is dumped.
func InspectRun(runPath string, verbose bool) string {
	md, err := LoadRunMetadata(filepath.Join(runPath, "metadata.json"))
	if err != nil {
		return "error reading run metadata: " + err.Error()
	}

	var out strings.Builder
	fmt.Fprintf(&out, "benchmark: %s\n", md.Benchmark)
	if md.Unit != "" {
		fmt.Fprintf(&out, "unit: %s\n", md.Unit)
	}
	if md.Host != "" {
		fmt.Fprintf(&out, "host: %s\n", md.Host)
	}
	fmt.Fprintf(&out, "start time: %s\n", md.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&out, "end time: %s\n", md.EndTime.Format(time.RFC3339))

	if err := bench.Report(&out, md.Benchmark, md.Result); err != nil {
		fmt.Fprintf(&out, "no result summary: %v\n", err)
	}

	if verbose {
		out.WriteString(godump.DumpStr(md))
	}
	return out.String()
}
