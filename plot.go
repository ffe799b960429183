package main

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotLatencies draws a grouped bar chart of per-operation latency, one
// group per operation and one bar per structure, and saves it to path. The
// image format follows the file extension.
func PlotLatencies(results []BenchResult, path string) error {
	var names, ops []string
	seenName, seenOp := map[string]bool{}, map[string]bool{}
	latency := map[[2]string]float64{}
	for _, r := range results {
		if !seenName[r.Name] {
			seenName[r.Name] = true
			names = append(names, r.Name)
		}
		if !seenOp[r.Operation] {
			seenOp[r.Operation] = true
			ops = append(ops, r.Operation)
		}
		latency[[2]string{r.Name, r.Operation}] = float64(r.LatencyNs)
	}

	p := plot.New()
	p.Title.Text = "Latency per operation"
	p.Y.Label.Text = "ns/op"

	w := vg.Points(20)
	for i, name := range names {
		vals := make(plotter.Values, len(ops))
		for j, op := range ops {
			vals[j] = latency[[2]string{name, op}]
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return errors.Wrap(err, "plot")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = w * vg.Length(2*i-len(names)+1) / 2
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.Legend.Top = true
	p.NominalX(ops...)

	return errors.Wrap(p.Save(8*vg.Inch, 4*vg.Inch, path), "plot: save")
}
