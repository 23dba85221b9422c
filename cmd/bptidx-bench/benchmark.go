package main

import (
	"encoding/csv"
	"runtime"
	"strconv"
)

// benchResult is one measured row of the comparison: which structure, which
// workload, and the latency/memory it cost.
type benchResult struct {
	Structure string
	Workload  string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type memStats struct {
	AllocMB     uint64
	HeapObjects uint64
}

// sampleMem forces a GC so the reading reflects live data rather than
// garbage still waiting to be collected.
func sampleMem() memStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return memStats{AllocMB: m.Alloc / 1024 / 1024, HeapObjects: m.HeapObjects}
}

func recordResult(w *csv.Writer, r benchResult) error {
	return w.Write([]string{
		r.Structure,
		r.Workload,
		strconv.FormatInt(r.LatencyNs, 10),
		strconv.FormatUint(r.MemMB, 10),
		strconv.FormatUint(r.Objects, 10),
	})
}
