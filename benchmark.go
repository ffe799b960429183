package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/btree-query-bench/blockidx/dbms/index/btree"
	"github.com/btree-query-bench/blockidx/dbms/index/lsm"
	"github.com/cockroachdb/errors"
)

type BenchResult struct {
	Name      string
	Operation string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem samples the heap after a forced GC so it reflects live data.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

var benchHeader = []string{"Structure", "TestType", "LatencyNs", "MemMB", "HeapObjects"}

// Record writes one result row.
func Record(w *csv.Writer, res BenchResult) error {
	return w.Write([]string{
		res.Name,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}

// backend opens one index under dir.
type backend struct {
	name string
	open func(dir string) (index.Index, error)
}

func benchBackends(opts *btree.Options) []backend {
	return []backend{
		{"B-Tree (block file)", func(dir string) (index.Index, error) {
			return btree.Create(filepath.Join(dir, "bench.idx"), opts)
		}},
		{"LSM-Tree (pebble)", func(dir string) (index.Index, error) {
			return lsm.Open(filepath.Join(dir, "pebble"))
		}},
	}
}

// runSuite loads n sequential keys into idx, then times each workload.
func runSuite(name string, idx index.Index, n int, seed int64, progress io.Writer) ([]BenchResult, error) {
	fmt.Fprintf(progress, "Testing %s (n=%d)\n", name, n)
	rng := rand.New(rand.NewSource(seed))
	perOp := func(start time.Time, ops int) int64 {
		if ops == 0 {
			return 0
		}
		return time.Since(start).Nanoseconds() / int64(ops)
	}

	// 1. Pure Insert (Initial Load)
	start := time.Now()
	for k := 0; k < n; k++ {
		if err := idx.Insert(uint64(k), uint64(k)); err != nil {
			return nil, errors.Wrapf(err, "%s: load", name)
		}
	}
	stats := GetDetailedMem()
	results := []BenchResult{{
		Name:      name,
		Operation: "Load",
		LatencyNs: perOp(start, n),
		MemMB:     stats.AllocMB,
		Objects:   stats.HeapObjects,
	}}

	workloads := []struct {
		op   string
		typ  WorkloadType
		runs int
	}{
		{"Workload_OLTP", OLTP, n / 2},
		{"Workload_OLAP", OLAP, n / 2},
		{"Workload_Range", Reporting, 100},
	}
	for _, wl := range workloads {
		start = time.Now()
		if err := ExecuteWorkload(idx, rng, wl.typ, wl.runs, n); err != nil {
			return nil, errors.Wrapf(err, "%s", name)
		}
		lat := perOp(start, wl.runs)
		stats = GetDetailedMem()
		results = append(results, BenchResult{name, wl.op, lat, stats.AllocMB, stats.HeapObjects})
	}
	return results, nil
}

func (c *cli) bench(args []string) (err error) {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	n := fs.Int("n", 10000, "Number of sequential keys to load into each backend.")
	dir := fs.String("dir", "", "Working directory for index files (default: a temporary directory).")
	out := fs.String("out", "bench_results.csv", "CSV file for results; a PNG chart is written next to it.")
	seed := fs.Int64("seed", 1, "Seed for workload key selection.")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 || *n <= 0 {
		return errUsage
	}

	work := *dir
	if work == "" {
		if work, err = os.MkdirTemp("", "blockidx-bench-"); err != nil {
			return err
		}
		defer os.RemoveAll(work)
	}

	var all []BenchResult
	for i, b := range benchBackends(c.opts) {
		sub := filepath.Join(work, strconv.Itoa(i))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return err
		}
		idx, err := b.open(sub)
		if err != nil {
			return err
		}
		res, err := runSuite(b.name, idx, *n, *seed, c.stdout)
		if err = errors.CombineErrors(err, idx.Close()); err != nil {
			return err
		}
		all = append(all, res...)
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, f.Close())
	}()
	w := csv.NewWriter(f)
	if err := w.Write(benchHeader); err != nil {
		return err
	}
	for _, r := range all {
		if err := Record(w, r); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	chart := chartPath(*out)
	if err := PlotLatencies(all, chart); err != nil {
		return err
	}
	c.ok.Fprintf(c.stdout, "Benchmark complete: %s, %s\n", *out, chart)
	return nil
}

func chartPath(csvPath string) string {
	return csvPath[:len(csvPath)-len(filepath.Ext(csvPath))] + ".png"
}
