// Package bench turns raw benchmark tool output into normalized result
// records and renders them for display.
package bench

// IOStats describes one direction of benchmark traffic.
type IOStats struct {
	// Ops is the total number of operations performed.
	Ops int64 `json:"ops"`
	// IOPS is the operation rate in operations per second.
	IOPS float64 `json:"iops"`
	// Bandwidth is the throughput reported by the tool, in the tool's unit.
	Bandwidth float64 `json:"bandwidth"`
}

// Result is the normalized record produced from one benchmark invocation.
// Read and Write are independently optional: a benchmark may exercise only
// one direction of traffic, and a nil pointer means "no data", not an error.
type Result struct {
	// Elapsed is the benchmark duration in seconds.
	Elapsed float64  `json:"elapsed"`
	Read    *IOStats `json:"read,omitempty"`
	Write   *IOStats `json:"write,omitempty"`
}
