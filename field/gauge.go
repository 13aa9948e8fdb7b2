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

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
)

// LinkReals is the number of reals in one SU(3) link.
const LinkReals = NumColors * NumColors * 2

// Gauge is the single-copy gauge field: one link per site and forward axis,
// on both checkerboards.
//
// Storage is [cb 2][group][mu 4][row 3][col 3][re/im 2][lane V].
type Gauge[T hwy.Floats] struct {
	buf    buffer[T]
	layout lattice.Layout
}

// NewGauge allocates a zero gauge field.
func NewGauge[T hwy.Floats](dev device.Device, layout lattice.Layout) (*Gauge[T], error) {
	n := lattice.NumCheckerboards * layout.NumGroups() * lattice.NumDims * LinkReals * layout.Lanes()
	buf, err := allocBuffer[T](dev, n)
	if err != nil {
		return nil, fmt.Errorf("gauge %v: %w", layout, err)
	}
	return &Gauge[T]{buf: buf, layout: layout}, nil
}

// Layout returns the layout of the field.
func (u *Gauge[T]) Layout() lattice.Layout { return u.layout }

// Released reports whether Release has been called.
func (u *Gauge[T]) Released() bool { return u.buf.released() }

// Release returns the storage to the device.
func (u *Gauge[T]) Release() { u.buf.release() }

// GroupStride returns the number of reals per lane group.
func (u *Gauge[T]) GroupStride() int {
	return lattice.NumDims * LinkReals * u.layout.Lanes()
}

// Group returns the raw storage of lane group g on cb.
func (u *Gauge[T]) Group(cb lattice.Checkerboard, g int) []T {
	n := u.GroupStride()
	base := (int(cb)*u.layout.NumGroups() + g) * n
	return u.buf.data[base : base+n : base+n]
}

func (u *Gauge[T]) index(cb lattice.Checkerboard, group, lane, mu, row, col int) int {
	if debugChecks {
		checkIndex("checkerboard", int(cb), lattice.NumCheckerboards)
		checkIndex("group", group, u.layout.NumGroups())
		checkIndex("lane", lane, u.layout.Lanes())
		checkIndex("mu", mu, lattice.NumDims)
		checkIndex("row", row, NumColors)
		checkIndex("col", col, NumColors)
	}
	v := u.layout.Lanes()
	g := int(cb)*u.layout.NumGroups() + group
	return (((g*lattice.NumDims+mu)*NumColors+row)*NumColors+col)*2*v + lane
}

// Link returns element (row, col) of U_mu at the site held by lane of group
// on cb.
func (u *Gauge[T]) Link(cb lattice.Checkerboard, group, lane, mu, row, col int) complex128 {
	i := u.index(cb, group, lane, mu, row, col)
	v := u.layout.Lanes()
	return complex(float64(u.buf.data[i]), float64(u.buf.data[i+v]))
}

// SetLink stores element (row, col) of U_mu at the site held by lane of
// group on cb.
func (u *Gauge[T]) SetLink(cb lattice.Checkerboard, group, lane, mu, row, col int, c complex128) {
	i := u.index(cb, group, lane, mu, row, col)
	v := u.layout.Lanes()
	u.buf.data[i] = T(real(c))
	u.buf.data[i+v] = T(imag(c))
}

// Clone returns an independent copy of u.
func (u *Gauge[T]) Clone() (*Gauge[T], error) {
	if u.Released() {
		return nil, ErrReleased
	}
	c, err := NewGauge[T](u.buf.dev, u.layout)
	if err != nil {
		return nil, err
	}
	copy(c.buf.data, u.buf.data)
	return c, nil
}
