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

// Package dslash applies the Wilson-Dslash stencil to checkerboarded spinor
// fields in the vectorized layout:
//
//	out(x) = sum_mu U_mu(x) (1 - sign γ_mu) in(x+mu) + U_mu(x-mu)† (1 + sign γ_mu) in(x-mu)
//
// with γ_mu in the DeGrand-Rossi basis. Every output site lives on the
// checkerboard opposite to the input.
//
// The kernel processes one lane group at a time as V-wide vectors. For each
// of the 8 directions it loads the neighbor group named by the
// lattice.NeighborTable (shuffling lanes when the step crosses a lane
// block), projects the 4-spinor onto a half-spinor, multiplies it by the
// resident link of the double-copy gauge field and accumulates the
// reconstructed 4-spinor. The output group is written once.
//
// Usage:
//
//	table := lattice.Resolve(layout)
//	op := dslash.New[float32](dev, table)
//	ev, err := op.Apply(psiEven, gaugeOdd, chiOdd, +1)
//	if err != nil {
//	    return err
//	}
//	return ev.Wait()
package dslash

import (
	"fmt"
	"sync"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/field"
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
)

// halfReals is the number of reals of one half-spinor (2 spins × 3 colors).
const halfReals = 2 * field.NumColors * 2

// Operator applies Dslash on one layout.
type Operator[T hwy.Floats] struct {
	dev   device.Device
	table *lattice.NeighborTable

	// kernels recycles per-batch scratch across batches and launches.
	kernels sync.Pool
}

// New returns an operator launching on dev for the layout of table.
func New[T hwy.Floats](dev device.Device, table *lattice.NeighborTable) *Operator[T] {
	op := &Operator[T]{dev: dev, table: table}
	op.kernels.New = func() any { return newKernel[T](table) }
	return op
}

// Layout returns the layout the operator works on.
func (op *Operator[T]) Layout() lattice.Layout {
	return op.table.Layout()
}

// Apply enqueues out = Dslash(in) with the given sign and returns the event
// of the launch. All preconditions are checked before anything is
// launched; on error nothing is written.
//
// in and out must be distinct fields on opposite checkerboards, and u must
// have been built for the checkerboard of out. in, u and the double copy
// are only read, so they may be shared by concurrent applications.
func (op *Operator[T]) Apply(in *field.Spinor[T], u *field.DoubleCopyGauge[T], out *field.Spinor[T], sign int) (*device.Event, error) {
	if err := op.validate(in, u, out, sign); err != nil {
		return nil, err
	}
	return op.dev.Launch("dslash", op.table.Layout().NumGroups(), func(start, end int) {
		k := op.kernels.Get().(*kernel[T])
		k.bind(in, u, out, sign)
		for g := start; g < end; g++ {
			k.site(g)
		}
		k.bind(nil, nil, nil, 0)
		op.kernels.Put(k)
	})
}

func (op *Operator[T]) validate(in *field.Spinor[T], u *field.DoubleCopyGauge[T], out *field.Spinor[T], sign int) error {
	if in == nil || u == nil || out == nil {
		return fmt.Errorf("%w: nil field", lattice.ErrConfiguration)
	}
	if in == out || in.Aliases(out) {
		return fmt.Errorf("%w: input and output spinors share storage", lattice.ErrAliasing)
	}
	if in.Released() || u.Released() || out.Released() {
		return fmt.Errorf("dslash: %w", field.ErrReleased)
	}
	l := op.table.Layout()
	if in.Layout() != l || out.Layout() != l || u.Layout() != l {
		return fmt.Errorf("%w: operator %v, in %v, out %v, gauge %v",
			lattice.ErrGeometryMismatch, l, in.Layout(), out.Layout(), u.Layout())
	}
	if in.Checkerboard() == out.Checkerboard() {
		return fmt.Errorf("%w: input and output both on %v sites", lattice.ErrGeometryMismatch, in.Checkerboard())
	}
	if u.Checkerboard() != out.Checkerboard() {
		return fmt.Errorf("%w: double-copy gauge built for %v sites, output on %v",
			lattice.ErrGeometryMismatch, u.Checkerboard(), out.Checkerboard())
	}
	if sign != 1 && sign != -1 {
		return fmt.Errorf("%w: sign %d, want +1 or -1", lattice.ErrConfiguration, sign)
	}
	return nil
}

// kernel holds the scratch of one batch of groups.
type kernel[T hwy.Floats] struct {
	table *lattice.NeighborTable
	cb    lattice.Checkerboard
	in    *field.Spinor[T]
	u     *field.DoubleCopyGauge[T]
	out   *field.Spinor[T]
	sign  int
	v     int

	nb  []T // permuted neighbor group
	h   []T // projected half-spinor
	uh  []T // transported half-spinor
	acc []T // output group
}

func newKernel[T hwy.Floats](table *lattice.NeighborTable) *kernel[T] {
	v := table.Layout().Lanes()
	scratch := make([]T, (2*field.SpinorReals+2*halfReals)*v)
	return &kernel[T]{
		table: table,
		v:     v,
		nb:    scratch[:field.SpinorReals*v],
		acc:   scratch[field.SpinorReals*v : 2*field.SpinorReals*v],
		h:     scratch[2*field.SpinorReals*v : (2*field.SpinorReals+halfReals)*v],
		uh:    scratch[(2*field.SpinorReals+halfReals)*v:],
	}
}

// bind points k at the fields of one launch. Scratch contents carry no
// state between groups.
func (k *kernel[T]) bind(in *field.Spinor[T], u *field.DoubleCopyGauge[T], out *field.Spinor[T], sign int) {
	k.in, k.u, k.out, k.sign = in, u, out, sign
	if out != nil {
		k.cb = out.Checkerboard()
	}
}

// vec returns component i of buf as a V-lane vector.
func (k *kernel[T]) vec(buf []T, i int) hwy.Vec[T] {
	return hwy.View(buf[i*k.v:], k.v)
}

// spinorIdx is the component index of (spin, color, re/im) in a spinor group.
func spinorIdx(spin, color, reim int) int {
	return (spin*field.NumColors+color)*2 + reim
}

// halfIdx is the component index of (row, color, re/im) in a half-spinor.
func halfIdx(r, color, reim int) int {
	return (r*field.NumColors+color)*2 + reim
}

// linkIdx is the component index of (d, row, col, re/im) in a double-copy
// gauge group.
func linkIdx(d lattice.Direction, row, col, reim int) int {
	return ((int(d)*field.NumColors+row)*field.NumColors+col)*2 + reim
}

// site computes the output group g.
func (k *kernel[T]) site(g int) {
	clear(k.acc)
	links := k.u.Group(g)
	for _, d := range lattice.Directions() {
		step := k.table.Step(k.cb, g, d)
		nb := k.in.Group(int(step.Group))
		if step.Perm != 0 {
			perm := k.table.Permutation(step.Perm)
			for i := range field.SpinorReals {
				hwy.TableLookupLanes(k.vec(k.nb, i), k.vec(nb, i), perm)
			}
			nb = k.nb
		}

		s := k.sign
		if d.IsForward() {
			s = -s
		}
		k.project(nb, d.Axis(), s)
		k.transport(links, d)
		k.reconstruct(d.Axis(), s)
	}
	copy(k.out.Group(g), k.acc)
}

// project computes h = upper half of (1 + s γ_mu) psi. The lower half is
// recovered from it in reconstruct.
func (k *kernel[T]) project(psi []T, mu, s int) {
	for r, row := range projTable[mu] {
		p := row.ph.signed(s)
		for c := range field.NumColors {
			re, im := k.vec(k.h, halfIdx(r, c, 0)), k.vec(k.h, halfIdx(r, c, 1))
			hwy.Copy(re, k.vec(psi, spinorIdx(r, c, 0)))
			hwy.Copy(im, k.vec(psi, spinorIdx(r, c, 1)))
			addPhase(re, im, k.vec(psi, spinorIdx(2+row.k, c, 0)), k.vec(psi, spinorIdx(2+row.k, c, 1)), p)
		}
	}
}

// transport computes uh = U_d · h on both half-spinor rows.
func (k *kernel[T]) transport(links []T, d lattice.Direction) {
	clear(k.uh)
	for r := range 2 {
		for i := range field.NumColors {
			outRe, outIm := k.vec(k.uh, halfIdx(r, i, 0)), k.vec(k.uh, halfIdx(r, i, 1))
			for j := range field.NumColors {
				ure, uim := k.vec(links, linkIdx(d, i, j, 0)), k.vec(links, linkIdx(d, i, j, 1))
				hre, him := k.vec(k.h, halfIdx(r, j, 0)), k.vec(k.h, halfIdx(r, j, 1))
				hwy.MulAddTo(outRe, ure, hre)
				hwy.NegMulAddTo(outRe, uim, him)
				hwy.MulAddTo(outIm, ure, him)
				hwy.MulAddTo(outIm, uim, hre)
			}
		}
	}
}

// reconstruct adds the transported half-spinor to the upper spins and its
// s·conj(A)-rotated copy to the lower spins.
func (k *kernel[T]) reconstruct(mu, s int) {
	for r, row := range projTable[mu] {
		p := row.ph.conj().signed(s)
		for c := range field.NumColors {
			hre, him := k.vec(k.uh, halfIdx(r, c, 0)), k.vec(k.uh, halfIdx(r, c, 1))
			hwy.AddTo(k.vec(k.acc, spinorIdx(r, c, 0)), hre)
			hwy.AddTo(k.vec(k.acc, spinorIdx(r, c, 1)), him)
			addPhase(k.vec(k.acc, spinorIdx(2+row.k, c, 0)), k.vec(k.acc, spinorIdx(2+row.k, c, 1)), hre, him, p)
		}
	}
}
