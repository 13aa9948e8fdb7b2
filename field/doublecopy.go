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

package field

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
)

// buildChunk is the number of groups one build task converts.
const buildChunk = 64

// DoubleCopyGauge holds, for every site of one checkerboard, the 8 links the
// stencil multiplies by: U_mu(x) in the forward slots and U_mu(x-mu)† in the
// backward slots. The backward links are gathered into the lanes of the
// site that uses them, so the kernel reads every link with a plain vector
// load.
//
// Storage is [group][dir 8][row 3][col 3][re/im 2][lane V]. The field is
// read-only once built.
type DoubleCopyGauge[T hwy.Floats] struct {
	buf    buffer[T]
	layout lattice.Layout
	cb     lattice.Checkerboard
}

// BuildDoubleCopy builds the double-copy gauge field for the sites of cb
// from u, locating the x-mu neighbors through table.
func BuildDoubleCopy[T hwy.Floats](dev device.Device, u *Gauge[T], table *lattice.NeighborTable, cb lattice.Checkerboard) (*DoubleCopyGauge[T], error) {
	if u == nil || table == nil {
		return nil, fmt.Errorf("%w: nil gauge or neighbor table", lattice.ErrConfiguration)
	}
	if u.Released() {
		return nil, fmt.Errorf("double copy: %w", ErrReleased)
	}
	if !cb.Valid() {
		return nil, fmt.Errorf("%w: checkerboard %d", lattice.ErrConfiguration, cb)
	}
	layout := u.Layout()
	if table.Layout() != layout {
		return nil, fmt.Errorf("%w: gauge %v, neighbor table %v", lattice.ErrGeometryMismatch, layout, table.Layout())
	}

	ng := layout.NumGroups()
	buf, err := allocBuffer[T](dev, ng*lattice.NumDirections*LinkReals*layout.Lanes())
	if err != nil {
		return nil, fmt.Errorf("double copy %v: %w", layout, err)
	}
	dc := &DoubleCopyGauge[T]{buf: buf, layout: layout, cb: cb}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < ng; start += buildChunk {
		end := min(start+buildChunk, ng)
		eg.Go(func() error {
			for g := start; g < end; g++ {
				dc.fillGroup(u, table, g)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		dc.Release()
		return nil, err
	}
	return dc, nil
}

func (dc *DoubleCopyGauge[T]) fillGroup(u *Gauge[T], table *lattice.NeighborTable, g int) {
	v := dc.layout.Lanes()
	dst := dc.Group(g)
	fwd := u.Group(dc.cb, g)
	for mu := range lattice.NumDims {
		// Forward slots share the single-copy [row][col][re/im][lane] order.
		n := LinkReals * v
		copy(dst[mu*n:(mu+1)*n], fwd[mu*n:(mu+1)*n])

		bwd := lattice.Backward(mu)
		for lane := range v {
			e := table.Entry(dc.cb, g, lane, bwd)
			src := u.Group(dc.cb.Other(), int(e.Group))
			for row := range NumColors {
				for col := range NumColors {
					si := ((mu*NumColors+col)*NumColors+row)*2*v + int(e.Lane)
					di := ((int(bwd)*NumColors+row)*NumColors+col)*2*v + lane
					dst[di] = src[si]
					dst[di+v] = -src[si+v]
				}
			}
		}
	}
}

// Layout returns the layout of the field.
func (dc *DoubleCopyGauge[T]) Layout() lattice.Layout { return dc.layout }

// Checkerboard returns the parity of the sites the links belong to, which
// is the parity of the stencil output.
func (dc *DoubleCopyGauge[T]) Checkerboard() lattice.Checkerboard { return dc.cb }

// Released reports whether Release has been called.
func (dc *DoubleCopyGauge[T]) Released() bool { return dc.buf.released() }

// Release returns the storage to the device.
func (dc *DoubleCopyGauge[T]) Release() { dc.buf.release() }

// GroupStride returns the number of reals per lane group.
func (dc *DoubleCopyGauge[T]) GroupStride() int {
	return lattice.NumDirections * LinkReals * dc.layout.Lanes()
}

// Group returns the 8 links of lane group g. Element (d, row, col, re/im)
// occupies lanes [(((d*3+row)*3+col)*2+reim)*V, +V).
func (dc *DoubleCopyGauge[T]) Group(g int) []T {
	n := dc.GroupStride()
	return dc.buf.data[g*n : (g+1)*n : (g+1)*n]
}

// Link returns element (row, col) of the link multiplying the neighbor in
// direction d of the site held by lane of group.
func (dc *DoubleCopyGauge[T]) Link(group, lane int, d lattice.Direction, row, col int) complex128 {
	if debugChecks {
		checkIndex("group", group, dc.layout.NumGroups())
		checkIndex("lane", lane, dc.layout.Lanes())
		checkIndex("direction", int(d), lattice.NumDirections)
		checkIndex("row", row, NumColors)
		checkIndex("col", col, NumColors)
	}
	v := dc.layout.Lanes()
	i := (((group*lattice.NumDirections+int(d))*NumColors+row)*NumColors+col)*2*v + lane
	return complex(float64(dc.buf.data[i]), float64(dc.buf.data[i+v]))
}
