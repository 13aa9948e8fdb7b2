// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bench times repeated stencil applications and reports
// throughput and effective memory bandwidth.
//
// A run is: one warm-up application, one calibration application that
// fixes the iteration count (enough to fill the target time, at least one),
// then a number of timed repetitions of that many applications. Every timed
// phase reports GFLOP/s and the effective bandwidth for each neighbor reuse
// level R = 0..7, with and without read-for-ownership of the output. The
// run ends with overall byte totals and per-kernel counts.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ajroetker/go-dslash/dslash"
)

// Workload is the kernel under test.
type Workload struct {
	// Name labels the kernel in the report.
	Name string

	// Lanes is the vector length of the layout.
	Lanes int

	// Sites is the number of output sites one application updates.
	Sites int

	// RealSize is the size in bytes of one real number.
	RealSize int

	// Sign is the Dslash sign reported with every line.
	Sign int

	// Apply runs one application to completion.
	Apply func() error
}

// Config controls the timing loop.
type Config struct {
	// TargetTime is the wall time each repetition should take. Used only
	// when FixedIters is zero.
	TargetTime time.Duration

	// FixedIters, when positive, skips calibration-based sizing.
	FixedIters int

	// Reps is the number of timed repetitions.
	Reps int
}

// DefaultConfig matches the usual benchmarking setup: 10s repetitions,
// three of them.
func DefaultConfig() Config {
	return Config{TargetTime: 10 * time.Second, Reps: 3}
}

// Rep is one timed repetition.
type Rep struct {
	Iters   int
	Elapsed time.Duration
	GFlops  float64
}

// Result summarizes a run.
type Result struct {
	Calibration time.Duration
	Iters       int
	Reps        []Rep
}

// BestGFlops returns the highest repetition throughput.
func (r *Result) BestGFlops() float64 {
	return lo.Max(lo.Map(r.Reps, func(rep Rep, _ int) float64 { return rep.GFlops }))
}

// MeanGFlops returns the average repetition throughput.
func (r *Result) MeanGFlops() float64 {
	if len(r.Reps) == 0 {
		return 0
	}
	return lo.SumBy(r.Reps, func(rep Rep) float64 { return rep.GFlops }) / float64(len(r.Reps))
}

// Run benchmarks w. The context is checked between repetitions; an
// application in flight is never interrupted.
func Run(ctx context.Context, w Workload, cfg Config, rep Reporter) (*Result, error) {
	if w.Apply == nil {
		return nil, errors.New("bench: workload has no Apply")
	}
	if w.Sites <= 0 || w.RealSize <= 0 {
		return nil, fmt.Errorf("bench: workload %q has %d sites of %d-byte reals", w.Name, w.Sites, w.RealSize)
	}
	if cfg.Reps <= 0 {
		cfg.Reps = 1
	}
	name := cases.Title(language.English).String(w.Name)

	rep.Infof("Running %s timing for VectorLength=%d", name, w.Lanes)
	rep.Infof("isign=%d First run (warm-up)", w.Sign)
	if err := w.Apply(); err != nil {
		return nil, fmt.Errorf("warm-up: %w", err)
	}

	rep.Infof("Calibrating")
	elapsed, err := timeIters(w, 1)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	res := &Result{Calibration: elapsed}
	rep.Infof("One application=%16.8e (sec)", elapsed.Seconds())
	reportRates(rep, w, 1, elapsed)

	res.Iters = cfg.FixedIters
	if res.Iters <= 0 {
		res.Iters = max(int(cfg.TargetTime.Seconds()/elapsed.Seconds()), 1)
	}
	rep.Infof("Setting Timing iters=%d", res.Iters)

	for i := range cfg.Reps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		elapsed, err := timeIters(w, res.Iters)
		if err != nil {
			return res, fmt.Errorf("repetition %d: %w", i, err)
		}
		secs := elapsed.Seconds()
		rep.Infof("isign=%d Time for %d iters: %f (s)  => %f (us)/iter",
			w.Sign, res.Iters, secs, secs/float64(res.Iters)*1e6)
		gflops := reportRates(rep, w, res.Iters, elapsed)
		res.Reps = append(res.Reps, Rep{Iters: res.Iters, Elapsed: elapsed, GFlops: gflops})
	}

	reportTotals(rep, w, int64(res.Iters)*int64(cfg.Reps))
	rep.Infof("%s: best %.3f GFLOPS, mean %.3f GFLOPS over %d reps",
		name, res.BestGFlops(), res.MeanGFlops(), len(res.Reps))
	return res, nil
}

func timeIters(w Workload, iters int) (time.Duration, error) {
	start := time.Now()
	for range iters {
		if err := w.Apply(); err != nil {
			return 0, err
		}
	}
	return max(time.Since(start), time.Nanosecond), nil
}

// reportRates reports GFLOP/s and the bandwidth sweep of iters applications
// taking elapsed, and returns the GFLOP/s.
func reportRates(rep Reporter, w Workload, iters int, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	updates := int64(w.Sites) * int64(iters)
	gflops := float64(dslash.FlopsPerSite) * float64(updates) / (secs * 1e9)
	rep.Infof("isign=%d Performance: %f GFLOPS", w.Sign, gflops)

	for _, r := range reuseLevels() {
		t := traffic(r, w.RealSize).Scale(updates)
		gbs := func(n int64) float64 { return float64(n) / (secs * 1e9) }
		rep.Infof("isign=%d  R=%d Effective READ BW (RFO=0): %f GB/sec", w.Sign, r, gbs(t.Read))
		rep.Infof("isign=%d  R=%d Effective READ BW (RFO=1): %f GB/sec", w.Sign, r, gbs(t.ReadRFO()))
		rep.Infof("isign=%d  R=%d Effective WRITE BW: %f GB/sec", w.Sign, r, gbs(t.Write))
		rep.Infof("isign=%d  R=%d Effective Total BW (RFO=0): %f GB/sec", w.Sign, r, gbs(t.Total(false)))
		rep.Infof("isign=%d  R=%d Effective Total BW (RFO=1): %f GB/sec", w.Sign, r, gbs(t.Total(true)))
	}
	return gflops
}

// reportTotals reports byte counts over all timed applications and per
// application.
func reportTotals(rep Reporter, w Workload, applications int64) {
	rep.Infof("Overall stats (excluding setup/tuning):")
	sites := int64(w.Sites)
	for _, r := range reuseLevels() {
		t := traffic(r, w.RealSize).Scale(sites * applications)
		rep.Infof("isign=%d  R=%d RFO=0  Bytes Read: %d  Bytes Written: %d   Total bytes: %d",
			w.Sign, r, t.Read, t.Write, t.Total(false))
		rep.Infof("isign=%d  R=%d RFO=1  Bytes Read: %d  Bytes Written: %d   Total bytes: %d",
			w.Sign, r, t.ReadRFO(), t.Write, t.Total(true))
	}

	rep.Infof("Per Kernel counts:")
	for _, r := range reuseLevels() {
		t := traffic(r, w.RealSize).Scale(sites)
		rep.Infof("isign=%d  R=%d RFO=0  Bytes Read/kernel: %d  Bytes Written/kernel: %d   Total bytes/kernel: %d",
			w.Sign, r, t.Read, t.Write, t.Total(false))
		rep.Infof("isign=%d  R=%d RFO=1  Bytes Read/kernel: %d  Bytes Written/kernel: %d   Total bytes/kernel: %d",
			w.Sign, r, t.ReadRFO(), t.Write, t.Total(true))
	}
}

func reuseLevels() []int {
	return lo.Range(dslash.MaxReuse + 1)
}

// traffic is SiteTraffic for levels known to be valid.
func traffic(r, realSize int) dslash.Traffic {
	t, err := dslash.SiteTraffic(r, realSize)
	if err != nil {
		panic(err)
	}
	return t
}
