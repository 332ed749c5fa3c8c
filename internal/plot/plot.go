// Package plot renders charts of benchmark history from the results CSV
// the harness appends to after every run.
package plot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Options selects what to chart from the history file.
type Options struct {
	Metric    string // history column to chart, e.g. read_iops
	Benchmark string // optional filter on the benchmark column
	Title     string
	Kind      string // time_series (default) or histogram
}

const (
	KindTimeSeries = "time_series"
	KindHistogram  = "histogram"

	defaultWidth  = 6 * vg.Inch
	defaultHeight = 4 * vg.Inch
	defaultBins   = 16
)

var (
	fillColor = color.RGBA{R: 127, G: 188, B: 165, A: 255}
	lineColor = color.RGBA{R: 255, A: 255}
)

// History renders a chart of one history metric to exportPath. The format
// is derived from the export path extension (png, svg, pdf).
func History(historyPath, exportPath string, opts Options) error {
	if opts.Metric == "" {
		return errors.New("no metric selected")
	}
	kind := opts.Kind
	if kind == "" {
		kind = KindTimeSeries
	}

	series, err := loadSeries(historyPath, opts)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no data points for metric %s", opts.Metric)
	}

	p := gonumplot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = opts.Metric
	}
	p.Y.Label.Text = opts.Metric

	switch kind {
	case KindTimeSeries:
		err = addTimeSeries(p, series)
	case KindHistogram:
		err = addHistogram(p, series)
	default:
		return fmt.Errorf("unsupported plot kind: %s", kind)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0755); err != nil {
		return err
	}
	return p.Save(defaultWidth, defaultHeight, exportPath)
}

type point struct {
	when  time.Time
	value float64
}

// loadSeries reads the history CSV and extracts the selected metric,
// skipping rows where it was not recorded.
func loadSeries(historyPath string, opts Options) ([]point, error) {
	file, err := os.Open(historyPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("history has no data rows")
	}

	header := rows[0]
	timeIdx, benchIdx, metricIdx := -1, -1, -1
	for i, col := range header {
		switch col {
		case "timestamp":
			timeIdx = i
		case "benchmark":
			benchIdx = i
		case opts.Metric:
			metricIdx = i
		}
	}
	if metricIdx == -1 {
		return nil, fmt.Errorf("metric %s not found in history columns %v", opts.Metric, header)
	}
	if timeIdx == -1 || benchIdx == -1 {
		return nil, errors.New("history is missing timestamp or benchmark columns")
	}

	series := make([]point, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= metricIdx || row[metricIdx] == "" {
			continue
		}
		if opts.Benchmark != "" && row[benchIdx] != opts.Benchmark {
			continue
		}
		when, err := time.Parse(time.RFC3339, row[timeIdx])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(row[metricIdx], 64)
		if err != nil {
			continue
		}
		series = append(series, point{when: when, value: value})
	}
	return series, nil
}

func addTimeSeries(p *gonumplot.Plot, series []point) error {
	points := make(plotter.XYs, len(series))
	for i, s := range series {
		points[i] = plotter.XY{X: float64(s.when.Unix()), Y: s.value}
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return err
	}
	line.Color = lineColor
	p.Add(line)
	p.X.Tick.Marker = gonumplot.TimeTicks{Format: "2006-01-02\n15:04"}
	return nil
}

func addHistogram(p *gonumplot.Plot, series []point) error {
	values := make(plotter.Values, len(series))
	for i, s := range series {
		values[i] = s.value
	}

	hist, err := plotter.NewHist(values, defaultBins)
	if err != nil {
		return err
	}
	hist.FillColor = fillColor
	p.Add(hist)
	return nil
}
