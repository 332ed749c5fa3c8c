//go:build unit

package bench

import (
	"errors"
	"strings"
	"testing"
)

func TestParserForRecognizedNames(t *testing.T) {
	for _, name := range []string{"fio", "rbd-bench", "rados-bench"} {
		if ParserFor(name) == nil {
			t.Fatalf("expected a parser for %q", name)
		}
	}
}

func TestParserForUnknownNames(t *testing.T) {
	for _, name := range []string{"", "fio2", "rados", "bogus", "RBD-BENCH"} {
		if p := ParserFor(name); p != nil {
			t.Fatalf("expected nil parser for %q, got %T", name, p)
		}
	}
}

func TestBenchmarksSorted(t *testing.T) {
	names := Benchmarks()
	if len(names) != 3 {
		t.Fatalf("expected 3 benchmarks, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("benchmark names not sorted: %v", names)
		}
	}
}

func TestFioReadOnly(t *testing.T) {
	raw := `{"jobs":[{"elapsed":12.5,"read":{"total_ios":500,"iops":40.0,"bw":2000}}]}`
	res, err := ParserFor("fio").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Elapsed != 12.5 {
		t.Fatalf("expected elapsed 12.5, got %v", res.Elapsed)
	}
	if res.Write != nil {
		t.Fatalf("expected write to be absent, got %+v", res.Write)
	}
	if res.Read == nil {
		t.Fatal("expected read to be present")
	}
	if res.Read.Ops != 500 || res.Read.IOPS != 40.0 || res.Read.Bandwidth != 2000 {
		t.Fatalf("unexpected read stats: %+v", res.Read)
	}
}

func TestFioReadAndWrite(t *testing.T) {
	// Entry order inside the job object must not matter.
	raws := []string{
		`{"jobs":[{"elapsed":30,"read":{"total_ios":100,"iops":3.3,"bw":512},"write":{"total_ios":200,"iops":6.6,"bw":1024}}]}`,
		`{"jobs":[{"write":{"total_ios":200,"iops":6.6,"bw":1024},"read":{"total_ios":100,"iops":3.3,"bw":512},"elapsed":30}]}`,
	}
	for _, raw := range raws {
		res, err := ParserFor("fio").Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Read == nil || res.Write == nil {
			t.Fatalf("expected both directions, got %+v", res)
		}
		if res.Read.Ops != 100 || res.Read.IOPS != 3.3 || res.Read.Bandwidth != 512 {
			t.Fatalf("unexpected read stats: %+v", res.Read)
		}
		if res.Write.Ops != 200 || res.Write.IOPS != 6.6 || res.Write.Bandwidth != 1024 {
			t.Fatalf("unexpected write stats: %+v", res.Write)
		}
	}
}

func TestFioEmptyDirectionIsAbsent(t *testing.T) {
	raw := `{"jobs":[{"elapsed":5,"read":{},"write":{"total_ios":1,"iops":0.2,"bw":8}}]}`
	res, err := ParserFor("fio").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Read != nil {
		t.Fatalf("expected empty read entry to stay absent, got %+v", res.Read)
	}
	if res.Write == nil {
		t.Fatal("expected write to be present")
	}
}

func TestFioStructuralErrors(t *testing.T) {
	cases := map[string]string{
		"not json":        "flat text output",
		"missing jobs":    `{"version":"fio-3.20"}`,
		"empty jobs":      `{"jobs":[]}`,
		"incomplete read": `{"jobs":[{"elapsed":1,"read":{"iops":4.0,"bw":8}}]}`,
		"non-numeric":     `{"jobs":[{"elapsed":1,"read":{"total_ios":"many","iops":4.0,"bw":8}}]}`,
	}
	for label, raw := range cases {
		if _, err := ParserFor("fio").Parse(raw); err == nil {
			t.Fatalf("%s: expected an error", label)
		}
	}
}

func TestRBDBenchBothDirections(t *testing.T) {
	raw := strings.Join([]string{
		"read_ops: 100 iops: 50.5 bw: 1024",
		"write_ops: 80 iops: 40.0 bw: 900",
		"elapsed: 12 sec: 0 total: 0",
	}, "\n")
	res, err := ParserFor("rbd-bench").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Read == nil || res.Read.Ops != 100 || res.Read.IOPS != 50.5 || res.Read.Bandwidth != 1024.0 {
		t.Fatalf("unexpected read stats: %+v", res.Read)
	}
	if res.Write == nil || res.Write.Ops != 80 || res.Write.IOPS != 40.0 || res.Write.Bandwidth != 900.0 {
		t.Fatalf("unexpected write stats: %+v", res.Write)
	}
	if res.Elapsed != 12 {
		t.Fatalf("expected elapsed 12, got %v", res.Elapsed)
	}
}

func TestRBDBenchLastLineWins(t *testing.T) {
	raw := strings.Join([]string{
		"elapsed: 10 sec: 0 total: 0",
		"some noise the tool prints",
		"elapsed: 42 sec: 0 total: 0",
	}, "\n")
	res, err := ParserFor("rbd-bench").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Elapsed != 42 {
		t.Fatalf("expected the last elapsed line to win, got %v", res.Elapsed)
	}
}

func TestRBDBenchIgnoresUnmarkedLines(t *testing.T) {
	raw := "starting benchmark\nno markers here\ndone\n"
	res, err := ParserFor("rbd-bench").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Read != nil || res.Write != nil || res.Elapsed != 0 {
		t.Fatalf("expected an all-absent record, got %+v", res)
	}
}

func TestRBDBenchMalformedMarkerLine(t *testing.T) {
	cases := []string{
		"read_ops: 100 iops: 50.5",           // too few tokens
		"read_ops: lots iops: 50.5 bw: 1024", // non-numeric count
		"write_ops: 80 iops: fast bw: 900",   // non-numeric rate
	}
	for _, raw := range cases {
		if _, err := ParserFor("rbd-bench").Parse(raw); err == nil {
			t.Fatalf("expected parse error for %q", raw)
		}
	}
}

func TestRadosBenchNotImplemented(t *testing.T) {
	for _, raw := range []string{"", "anything", `{"jobs":[]}`} {
		_, err := ParserFor("rados-bench").Parse(raw)
		if !errors.Is(err, ErrNotImplemented) {
			t.Fatalf("expected ErrNotImplemented, got %v", err)
		}
	}
}

func TestEndToEndFioThenReport(t *testing.T) {
	raw := `{"jobs":[{"elapsed":12.5,"read":{"total_ios":500,"iops":40.0,"bw":2000}}]}`
	res, err := ParserFor("fio").Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out strings.Builder
	err = Report(&out, "fio", res)
	if !errors.Is(err, ErrIncompleteResult) {
		t.Fatalf("expected ErrIncompleteResult for missing write, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no partial output, got %q", out.String())
	}
}
