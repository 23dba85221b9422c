// Command bptidx-bench drives the bptree library and a Pebble LSM instance
// through identical insert/scan workloads and reports latency and memory
// per structure, optionally as a PNG chart. It exists purely to exercise
// and compare this repository's B+ tree against a real-world baseline; it
// is never imported by the library itself.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/tinyidx/bptree"
)

func main() {
	n := flag.Int("n", 20000, "number of keys to load before running workloads")
	outCSV := flag.String("csv", "bench_results.csv", "path to write CSV results")
	outPNG := flag.String("chart", "", "optional path to write a latency bar chart PNG")
	flag.Parse()

	f, err := os.Create(*outCSV)
	if err != nil {
		log.Fatalf("bptidx-bench: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Structure", "Workload", "LatencyNs", "MemMB", "HeapObjects"}); err != nil {
		log.Fatalf("bptidx-bench: %v", err)
	}

	results, err := runAll(*n)
	if err != nil {
		log.Fatalf("bptidx-bench: %v", err)
	}
	for _, r := range results {
		if err := recordResult(w, r); err != nil {
			log.Fatalf("bptidx-bench: write result: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("bptidx-bench: flush: %v", err)
	}
	log.Printf("wrote %d results to %s", len(results), *outCSV)

	if *outPNG != "" {
		if err := renderChart(results, *outPNG); err != nil {
			log.Fatalf("bptidx-bench: chart: %v", err)
		}
		log.Printf("wrote latency chart to %s", *outPNG)
	}
}

func runAll(n int) ([]benchResult, error) {
	var results []benchResult

	bt, btClose, err := openBptree(n)
	if err != nil {
		return nil, err
	}
	defer btClose()
	pb, pbClose, err := openPebble(n)
	if err != nil {
		return nil, err
	}
	defer pbClose()

	rng := rand.New(rand.NewSource(1))
	for _, w := range []workload{workloadOLTP, workloadOLAP, workloadReporting} {
		r, err := runBptreeWorkload(bt, w, n, rng)
		if err != nil {
			return nil, err
		}
		results = append(results, r)

		r, err = runPebbleWorkload(pb, w, n, rng)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// openBptree creates a fresh on-disk index and loads it with n sequential
// (key, key) rows, returning a ready-to-scan handle.
func openBptree(n int) (int, func(), error) {
	if err := bptree.Init(); err != nil {
		return 0, nil, fmt.Errorf("bptree init: %w", err)
	}
	dir, err := os.MkdirTemp("", "bptidx-bench-*")
	if err != nil {
		return 0, nil, err
	}
	path := filepath.Join(dir, "bench.idx")
	desc := bptree.Descriptor{Kind: bptree.KindInt32, Width: 4}
	if err := bptree.Create(path, desc, desc); err != nil {
		return 0, nil, fmt.Errorf("bptree create: %w", err)
	}
	h, err := bptree.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("bptree open: %w", err)
	}
	for k := 0; k < n; k++ {
		if err := bptree.Insert(h, enc32(int32(k)), enc32(int32(k))); err != nil {
			return 0, nil, fmt.Errorf("bptree insert: %w", err)
		}
	}
	cleanup := func() {
		bptree.Close(h)
		bptree.Shutdown()
		os.RemoveAll(dir)
	}
	return h, cleanup, nil
}

func openPebble(n int) (*pebbleIndex, func(), error) {
	dir, err := os.MkdirTemp("", "bptidx-bench-pebble-*")
	if err != nil {
		return nil, nil, err
	}
	p, err := openPebbleRef(dir)
	if err != nil {
		return nil, nil, err
	}
	for k := 0; k < n; k++ {
		if err := p.Insert(int32(k), enc32(int32(k))); err != nil {
			return nil, nil, fmt.Errorf("pebble insert: %w", err)
		}
	}
	cleanup := func() {
		p.Close()
		os.RemoveAll(dir)
	}
	return p, cleanup, nil
}

func runBptreeWorkload(h int, w workload, n int, rng *rand.Rand) (benchResult, error) {
	reads, writes := opCounts(w, n/10)
	start := time.Now()
	for _, k := range randomKeys(rng, n, reads) {
		if err := scanOneEqual(h, k); err != nil {
			return benchResult{}, err
		}
	}
	for i, k := range randomKeys(rng, n*2, writes) {
		if err := bptree.Insert(h, enc32(int32(n+i)), enc32(k)); err != nil {
			return benchResult{}, fmt.Errorf("bptree insert: %w", err)
		}
	}
	elapsed := time.Since(start)
	stats := sampleMem()
	ops := reads + writes
	if ops == 0 {
		ops = 1
	}
	return benchResult{
		Structure: "bptree",
		Workload:  string(w),
		LatencyNs: elapsed.Nanoseconds() / int64(ops),
		MemMB:     stats.AllocMB,
		Objects:   stats.HeapObjects,
	}, nil
}

func scanOneEqual(h int, key int32) error {
	sh, err := bptree.OpenScan(h, bptree.OpEqual, enc32(key))
	if err != nil {
		return fmt.Errorf("bptree openscan: %w", err)
	}
	defer bptree.CloseScan(sh)
	for {
		_, err := bptree.Next(sh)
		if err != nil {
			if be, ok := err.(*bptree.Error); ok && be.Code == bptree.CodeEndOfStream {
				return nil
			}
			return fmt.Errorf("bptree next: %w", err)
		}
	}
}

func runPebbleWorkload(p *pebbleIndex, w workload, n int, rng *rand.Rand) (benchResult, error) {
	reads, writes := opCounts(w, n/10)
	start := time.Now()
	for _, k := range randomKeys(rng, n, reads) {
		if _, _, err := p.ScanEqual(k); err != nil {
			return benchResult{}, err
		}
	}
	for i, k := range randomKeys(rng, n*2, writes) {
		if err := p.Insert(int32(n+i), enc32(k)); err != nil {
			return benchResult{}, fmt.Errorf("pebble insert: %w", err)
		}
	}
	elapsed := time.Since(start)
	stats := sampleMem()
	ops := reads + writes
	if ops == 0 {
		ops = 1
	}
	return benchResult{
		Structure: "pebble",
		Workload:  string(w),
		LatencyNs: elapsed.Nanoseconds() / int64(ops),
		MemMB:     stats.AllocMB,
		Objects:   stats.HeapObjects,
	}, nil
}

func enc32(v int32) []byte {
	b := make([]byte, 4)
	u := uint32(v)
	b[0], b[1], b[2], b[3] = byte(u), byte(u>>8), byte(u>>16), byte(u>>24)
	return b
}
