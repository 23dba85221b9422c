package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// renderChart draws one grouped bar per workload comparing bptree's and
// pebble's per-op latency, saved as a PNG.
func renderChart(results []benchResult, path string) error {
	workloads := []string{string(workloadOLTP), string(workloadOLAP), string(workloadReporting)}

	p := plot.New()
	p.Title.Text = "bptidx-bench: per-op latency (ns)"
	p.Y.Label.Text = "ns/op"
	p.NominalX(workloads...)

	bptreeVals := make(plotter.Values, len(workloads))
	pebbleVals := make(plotter.Values, len(workloads))
	for i, w := range workloads {
		bptreeVals[i] = float64(latencyFor(results, "bptree", w))
		pebbleVals[i] = float64(latencyFor(results, "pebble", w))
	}

	width := vg.Points(15)
	bars1, err := plotter.NewBarChart(bptreeVals, width)
	if err != nil {
		return fmt.Errorf("bptidx-bench: bar chart: %w", err)
	}
	bars1.Offset = -width

	bars2, err := plotter.NewBarChart(pebbleVals, width)
	if err != nil {
		return fmt.Errorf("bptidx-bench: bar chart: %w", err)
	}
	bars2.Offset = width

	p.Add(bars1, bars2)
	p.Legend.Add("bptree", bars1)
	p.Legend.Add("pebble", bars2)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

func latencyFor(results []benchResult, structure, workload string) int64 {
	for _, r := range results {
		if r.Structure == structure && r.Workload == workload {
			return r.LatencyNs
		}
	}
	return 0
}
