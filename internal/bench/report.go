package bench

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrIncompleteResult is returned by Report when the record is missing one
// of its traffic directions. Callers recover from it: the run completed but
// could not be summarized.
var ErrIncompleteResult = errors.New("result is missing read or write data")

// Report renders a fixed-format summary of a benchmark result. It requires
// both read and write stats to be present; on a violated precondition it
// writes nothing and returns ErrIncompleteResult so the caller can print a
// diagnostic and carry on.
func Report(w io.Writer, name string, res *Result) error {
	if res == nil {
		return fmt.Errorf("%w: no result", ErrIncompleteResult)
	}
	if res.Read == nil {
		return fmt.Errorf("%w: read stats absent", ErrIncompleteResult)
	}
	if res.Write == nil {
		return fmt.Errorf("%w: write stats absent", ErrIncompleteResult)
	}
	if res.Elapsed <= 0 {
		return fmt.Errorf("invalid elapsed time %v", res.Elapsed)
	}

	numOps := res.Read.Ops + res.Write.Ops
	bandwidth := res.Read.Bandwidth + res.Write.Bandwidth

	var out strings.Builder
	fmt.Fprintf(&out, "ran benchmark: %s\n", name)
	fmt.Fprintf(&out, "elapsed time:\t%.2f\tops/sec:\t%.2f\t\tbandwidth:\t%v\n",
		res.Elapsed, float64(numOps)/res.Elapsed, bandwidth)
	fmt.Fprintf(&out, "read ops:\t%d\tread_ops/sec:\t%.2f\t\tread BW:\t%v\n",
		res.Read.Ops, res.Read.IOPS, res.Read.Bandwidth)
	fmt.Fprintf(&out, "write ops:\t%d\twrite_ops/sec:\t%.2f\t\twrite BW:\t%v\n",
		res.Write.Ops, res.Write.IOPS, res.Write.Bandwidth)

	_, err := io.WriteString(w, out.String())
	return err
}
