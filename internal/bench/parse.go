package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNotImplemented is returned by parsers for benchmark formats that are
// recognized but whose report format has not been implemented yet. This is
// distinct from an unknown benchmark name, which ParserFor signals by
// returning nil.
var ErrNotImplemented = errors.New("benchmark format not implemented")

// Parser converts the raw output of one benchmark tool variant into a
// normalized Result.
type Parser interface {
	Parse(raw string) (*Result, error)
}

// Recognized benchmark names.
const (
	NameFio        = "fio"
	NameRBDBench   = "rbd-bench"
	NameRadosBench = "rados-bench"
)

var parsers = map[string]Parser{
	NameFio:        fioParser{},
	NameRBDBench:   rbdBenchParser{},
	NameRadosBench: radosBenchParser{},
}

// ParserFor returns the parser registered for the given benchmark name, or
// nil if the name is not recognized. Callers are expected to surface a
// user-facing diagnostic on nil rather than treating it as a crash.
func ParserFor(name string) Parser {
	return parsers[name]
}

// Benchmarks returns the sorted list of recognized benchmark names.
func Benchmarks() []string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// extractNums parses one line of "label value label value ..." output into
// an IOStats triple: token 1 as the op count, tokens 3 and 5 as rate and
// bandwidth. The line must carry at least six whitespace-separated tokens.
func extractNums(line string) (IOStats, error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return IOStats{}, fmt.Errorf("expected at least 6 fields, got %d in line %q", len(fields), line)
	}
	ops, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return IOStats{}, fmt.Errorf("parsing op count from line %q: %w", line, err)
	}
	iops, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return IOStats{}, fmt.Errorf("parsing op rate from line %q: %w", line, err)
	}
	bw, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return IOStats{}, fmt.Errorf("parsing bandwidth from line %q: %w", line, err)
	}
	return IOStats{Ops: ops, IOPS: iops, Bandwidth: bw}, nil
}

// fioParser handles fio's structured JSON report. Only the first job entry
// is consulted; fio emits one entry per job but the harness runs one job
// per invocation.
type fioParser struct{}

type fioReport struct {
	Jobs []fioJob `json:"jobs"`
}

type fioJob struct {
	Elapsed float64         `json:"elapsed"`
	Read    json.RawMessage `json:"read"`
	Write   json.RawMessage `json:"write"`
}

func (fioParser) Parse(raw string) (*Result, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var report fioReport
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding fio report: %w", err)
	}
	if len(report.Jobs) == 0 {
		return nil, errors.New("fio report has no job entries")
	}

	job := report.Jobs[0]
	res := &Result{Elapsed: job.Elapsed}

	read, err := parseFioDirection(job.Read)
	if err != nil {
		return nil, fmt.Errorf("fio read stats: %w", err)
	}
	res.Read = read

	write, err := parseFioDirection(job.Write)
	if err != nil {
		return nil, fmt.Errorf("fio write stats: %w", err)
	}
	res.Write = write

	return res, nil
}

// parseFioDirection extracts (total_ios, iops, bw) from one direction of a
// fio job entry. An absent or empty object means the job produced no traffic
// in that direction and yields nil. A non-empty object missing one of the
// required keys is a parse error, never silently defaulted.
func parseFioDirection(raw json.RawMessage) (*IOStats, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var entry map[string]any
	if err := dec.Decode(&entry); err != nil {
		return nil, err
	}
	if len(entry) == 0 {
		return nil, nil
	}

	ops, err := intField(entry, "total_ios")
	if err != nil {
		return nil, err
	}
	iops, err := floatField(entry, "iops")
	if err != nil {
		return nil, err
	}
	bw, err := floatField(entry, "bw")
	if err != nil {
		return nil, err
	}
	return &IOStats{Ops: ops, IOPS: iops, Bandwidth: bw}, nil
}

func intField(entry map[string]any, key string) (int64, error) {
	num, err := numberField(entry, key)
	if err != nil {
		return 0, err
	}
	n, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

func floatField(entry map[string]any, key string) (float64, error) {
	num, err := numberField(entry, key)
	if err != nil {
		return 0, err
	}
	f, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return f, nil
}

func numberField(entry map[string]any, key string) (json.Number, error) {
	val, ok := entry[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	num, ok := val.(json.Number)
	if !ok {
		return "", fmt.Errorf("field %q is not a number", key)
	}
	return num, nil
}

// rbdBenchParser handles the line-oriented report produced by the rbd bench
// wrapper: one fact per line, "label value label value ..." shaped. Lines
// without a recognized marker are ignored, and a repeated marker overwrites
// the earlier value.
type rbdBenchParser struct{}

func (rbdBenchParser) Parse(raw string) (*Result, error) {
	res := &Result{}
	for line := range strings.Lines(raw) {
		switch {
		case strings.Contains(line, "read_ops"):
			stats, err := extractNums(line)
			if err != nil {
				return nil, err
			}
			res.Read = &stats
		case strings.Contains(line, "write_ops"):
			stats, err := extractNums(line)
			if err != nil {
				return nil, err
			}
			res.Write = &stats
		case strings.Contains(line, "elapsed"):
			stats, err := extractNums(line)
			if err != nil {
				return nil, err
			}
			res.Elapsed = float64(stats.Ops)
		}
	}
	return res, nil
}

// radosBenchParser is a declared stub: the cluster-wide object benchmark
// report format is not handled yet, and invoking it must fail loudly rather
// than silently produce an empty record.
type radosBenchParser struct{}

func (radosBenchParser) Parse(string) (*Result, error) {
	return nil, fmt.Errorf("rados-bench: %w", ErrNotImplemented)
}
