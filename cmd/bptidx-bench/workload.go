package main

import "math/rand"

// workload names the mixed operation distributions the harness drives
// each index through, mirroring the read/write ratios a query planner
// would see from OLTP point lookups versus OLAP bulk loads. The Reporting
// workload is all reads; as in the other two, every read is a single-key
// equality lookup, so no range scan is run.
type workload string

const (
	workloadOLTP      workload = "OLTP (90/10)"
	workloadOLAP      workload = "OLAP (10/90)"
	workloadReporting workload = "Reporting (range)"
)

// opCounts returns how many of n total operations should be reads vs
// writes for the given workload.
func opCounts(w workload, n int) (reads, writes int) {
	switch w {
	case workloadOLTP:
		reads = n * 90 / 100
	case workloadOLAP:
		reads = n * 10 / 100
	default:
		reads = n
	}
	return reads, n - reads
}

// randomKeys returns n keys drawn uniformly from [0, space), used so both
// indexes under comparison see the same access pattern.
func randomKeys(rng *rand.Rand, space, n int) []int32 {
	keys := make([]int32, n)
	for i := range keys {
		keys[i] = int32(rng.Intn(space))
	}
	return keys
}
