package harness

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Comparison is one compared metric between two runs.
type Comparison interface {
	Key() string
	Format() string
}

// CompareRuns compares the metrics of two stored runs. Numeric metrics get
// a percentage change, everything else a plain before/after.
func CompareRuns(a, b *RunMetadata) []Comparison {
	ma, mb := metricsMap(a), metricsMap(b)

	keys := map[string]struct{}{}
	for k := range ma {
		keys[k] = struct{}{}
	}
	for k := range mb {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	results := make([]Comparison, 0, len(ordered))
	for _, key := range ordered {
		va, oka := ma[key]
		vb, okb := mb[key]

		fa, faOK := parseFloat(va)
		fb, fbOK := parseFloat(vb)
		if faOK && fbOK {
			results = append(results, &floatComparison{key: key, a: fa, b: fb})
			continue
		}
		results = append(results, &stringComparison{key: key, a: va, b: vb, hasA: oka, hasB: okb})
	}
	return results
}

// FormatComparisons renders one comparison per line.
func FormatComparisons(results []Comparison) string {
	var out strings.Builder
	for _, r := range results {
		out.WriteString(r.Format() + "\n")
	}
	return out.String()
}

// metricsMap flattens a run's result and custom metadata into comparable
// string metrics.
func metricsMap(md *RunMetadata) map[string]string {
	out := map[string]string{
		"benchmark": md.Benchmark,
	}
	if res := md.Result; res != nil {
		out["elapsed"] = formatFloat(res.Elapsed)
		if res.Read != nil {
			out["read_ops"] = strconv.FormatInt(res.Read.Ops, 10)
			out["read_iops"] = formatFloat(res.Read.IOPS)
			out["read_bw"] = formatFloat(res.Read.Bandwidth)
		}
		if res.Write != nil {
			out["write_ops"] = strconv.FormatInt(res.Write.Ops, 10)
			out["write_iops"] = formatFloat(res.Write.IOPS)
			out["write_bw"] = formatFloat(res.Write.Bandwidth)
		}
	}
	for k, v := range md.Custom {
		out[k] = v
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

type floatComparison struct {
	key  string
	a, b float64
}

func (c *floatComparison) Key() string { return c.key }

func (c *floatComparison) Format() string {
	if c.a != 0 {
		change := (c.b - c.a) / c.a * 100
		return fmt.Sprintf("%s: %s -> %s (%.1f%% change)", c.key, formatFloat(c.a), formatFloat(c.b), change)
	}
	return fmt.Sprintf("%s: %s -> %s", c.key, formatFloat(c.a), formatFloat(c.b))
}

type stringComparison struct {
	key        string
	a, b       string
	hasA, hasB bool
}

func (c *stringComparison) Key() string { return c.key }

func (c *stringComparison) Format() string {
	switch {
	case !c.hasA:
		return fmt.Sprintf("%s: (missing) -> %s", c.key, c.b)
	case !c.hasB:
		return fmt.Sprintf("%s: %s -> (missing)", c.key, c.a)
	default:
		return fmt.Sprintf("%s: %s -> %s", c.key, c.a, c.b)
	}
}
