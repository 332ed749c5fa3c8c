package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// HistoryColumns is the column layout of the results history CSV, one row
// per benchmark run. Absent read/write stats are recorded as empty cells.
var HistoryColumns = []string{
	"timestamp", "benchmark", "elapsed",
	"read_ops", "read_iops", "read_bw",
	"write_ops", "write_iops", "write_bw",
}

// AppendHistory appends one result row to the history CSV at path, writing
// the header first when the file does not exist yet.
func AppendHistory(path, name string, when time.Time, res *Result) error {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(HistoryColumns); err != nil {
			return err
		}
	}

	row := []string{
		when.Format(time.RFC3339),
		name,
		strconv.FormatFloat(res.Elapsed, 'f', -1, 64),
	}
	row = append(row, statsCells(res.Read)...)
	row = append(row, statsCells(res.Write)...)
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func statsCells(stats *IOStats) []string {
	if stats == nil {
		return []string{"", "", ""}
	}
	return []string{
		strconv.FormatInt(stats.Ops, 10),
		strconv.FormatFloat(stats.IOPS, 'f', -1, 64),
		strconv.FormatFloat(stats.Bandwidth, 'f', -1, 64),
	}
}
