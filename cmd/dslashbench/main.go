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

// Command dslashbench times the vectorized Wilson-Dslash on a random SU(3)
// gauge field.
//
// Usage:
//
//	dslashbench --lattice 32,32,32,32 --vlen 8 --precision float32
//
// Every flag can also be set through a DSLASH_<FLAG> environment variable
// (dashes become underscores) or a key in the file named by --config. The
// HWY_NO_SIMD environment variable forces the scalar dispatch level.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-dslash/bench"
	"github.com/ajroetker/go-dslash/convert"
	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/dslash"
	"github.com/ajroetker/go-dslash/field"
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
	"github.com/ajroetker/go-dslash/reference"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dslashbench",
		Short:         "Benchmark the vectorized Wilson-Dslash stencil",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := newViper(cmd.Flags())
		if err != nil {
			return err
		}
		opts, err := loadOptions(v)
		if err != nil {
			return err
		}
		rep := newReporter(cmd, opts)
		if opts.Precision == "float64" {
			return run[float64](cmd.Context(), opts, rep)
		}
		return run[float32](cmd.Context(), opts, rep)
	}
	return cmd
}

func newReporter(cmd *cobra.Command, opts options) bench.Reporter {
	out := cmd.OutOrStdout()
	switch opts.LogFormat {
	case "slog-text":
		return bench.NewSlogReporter(slog.New(slog.NewTextHandler(out, nil)))
	case "slog-json":
		return bench.NewSlogReporter(slog.New(slog.NewJSONHandler(out, nil)))
	}
	return bench.NewWriterReporter(out, opts.Locale)
}

// chooseLayout uses the requested vector length, or the natural SIMD width
// for T halved until it folds onto the lattice.
func chooseLayout[T hwy.Floats](geom lattice.Geometry, vlen int) (lattice.Layout, error) {
	if vlen != 0 {
		return lattice.NewLayout(geom, vlen)
	}
	for vlen = min(hwy.PreferredLanes[T](), 16); vlen > 1; vlen /= 2 {
		if l, err := lattice.NewLayout(geom, vlen); err == nil {
			return l, nil
		}
	}
	return lattice.NewLayout(geom, 1)
}

func run[T hwy.Floats](ctx context.Context, opts options, rep bench.Reporter) error {
	dev := device.NewCPU(
		device.WithWorkers(opts.Workers),
		device.WithBatch(opts.Batch),
		device.WithMemoryLimit(opts.MemoryLimit),
	)
	defer dev.Close()
	rep.Infof("Using Device: %s", dev.Name())

	layout, err := chooseLayout[T](opts.Geometry, opts.VectorLen)
	if err != nil {
		return err
	}
	rep.Infof("Lattice %v, layout %v, %s, dispatch %s", opts.Geometry, layout, opts.Precision, hwy.CurrentName())
	table := lattice.Resolve(layout)

	refU := reference.RandomGauge(opts.Geometry, opts.Seed)
	refPsi := reference.RandomFermion(opts.Geometry, opts.Seed+1)

	// The benchmark maps even input sites to odd output sites.
	u, err := convert.ImportGauge[T](dev, layout, refU)
	if err != nil {
		return err
	}
	dc, err := field.BuildDoubleCopy(dev, u, table, lattice.Odd)
	u.Release()
	if err != nil {
		return err
	}
	defer dc.Release()

	in, err := convert.ImportSpinor[T](dev, layout, refPsi, lattice.Even)
	if err != nil {
		return err
	}
	defer in.Release()
	out, err := field.NewSpinor[T](dev, layout, lattice.Odd)
	if err != nil {
		return err
	}
	defer out.Release()

	op := dslash.New[T](dev, table)
	apply := func() error {
		ev, err := op.Apply(in, dc, out, opts.Sign)
		if err != nil {
			return err
		}
		return ev.Wait()
	}

	if opts.Verify {
		if err := verify(apply, out, refU, refPsi, opts.Sign, field.RealSize[T](), rep); err != nil {
			return err
		}
	}

	cfg := bench.DefaultConfig()
	cfg.TargetTime = opts.Target
	cfg.FixedIters = opts.Iters
	cfg.Reps = opts.Reps
	_, err = bench.Run(ctx, bench.Workload{
		Name:     "dslash",
		Lanes:    layout.Lanes(),
		Sites:    opts.Geometry.CBVolume(),
		RealSize: field.RealSize[T](),
		Sign:     opts.Sign,
		Apply:    apply,
	}, cfg, rep)
	return err
}

// errVerify reports a result too far from the scalar reference.
var errVerify = errors.New("result differs from the scalar reference")

func verify[T hwy.Floats](apply func() error, out *field.Spinor[T], refU *reference.Gauge, refPsi *reference.Fermion, sign, realSize int, rep bench.Reporter) error {
	if err := apply(); err != nil {
		return err
	}
	got := reference.NewFermion(refPsi.Geom)
	if err := convert.ExportSpinor(out, got); err != nil {
		return err
	}
	want := reference.NewFermion(refPsi.Geom)
	if err := reference.Dslash(want, refU, refPsi, sign, lattice.Odd); err != nil {
		return err
	}
	rel := math.Sqrt(reference.Diff2(got, want) / want.Norm2())
	tol := 1e-12
	if realSize == 4 {
		tol = 1e-5
	}
	rep.Infof("Verify: relative difference to reference %.3e (tolerance %.0e)", rel, tol)
	if rel > tol {
		return fmt.Errorf("%w: %.3e > %.0e", errVerify, rel, tol)
	}
	return nil
}
