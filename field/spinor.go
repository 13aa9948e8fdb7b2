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

const (
	// NumSpins is the number of Dirac spin components.
	NumSpins = 4
	// NumColors is the number of SU(3) color components.
	NumColors = 3
)

// SpinorReals is the number of reals per site of a spinor field.
const SpinorReals = NumSpins * NumColors * 2

// Spinor is a fermion field on one checkerboard.
//
// Each lane group is stored as [spin 4][color 3][re/im 2][lane V] reals, so
// every (spin, color, re/im) component of a group is one contiguous V-lane
// vector.
type Spinor[T hwy.Floats] struct {
	buf    buffer[T]
	layout lattice.Layout
	cb     lattice.Checkerboard
}

// NewSpinor allocates a zero spinor on cb.
func NewSpinor[T hwy.Floats](dev device.Device, layout lattice.Layout, cb lattice.Checkerboard) (*Spinor[T], error) {
	if !cb.Valid() {
		return nil, fmt.Errorf("%w: checkerboard %d", lattice.ErrConfiguration, cb)
	}
	buf, err := allocBuffer[T](dev, layout.NumGroups()*SpinorReals*layout.Lanes())
	if err != nil {
		return nil, fmt.Errorf("spinor %v: %w", layout, err)
	}
	return &Spinor[T]{buf: buf, layout: layout, cb: cb}, nil
}

// Layout returns the layout of the field.
func (s *Spinor[T]) Layout() lattice.Layout { return s.layout }

// Checkerboard returns the parity the field lives on.
func (s *Spinor[T]) Checkerboard() lattice.Checkerboard { return s.cb }

// Released reports whether Release has been called.
func (s *Spinor[T]) Released() bool { return s.buf.released() }

// Release returns the storage to the device. Further element access panics
// and other operations fail with ErrReleased.
func (s *Spinor[T]) Release() { s.buf.release() }

// Aliases reports whether s and o share storage.
func (s *Spinor[T]) Aliases(o *Spinor[T]) bool {
	return s.buf.aliases(&o.buf)
}

// GroupStride returns the number of reals per lane group.
func (s *Spinor[T]) GroupStride() int {
	return SpinorReals * s.layout.Lanes()
}

// Group returns the raw storage of lane group g. Component (spin, color,
// re/im) occupies lanes [((spin*3+color)*2+reim)*V, +V).
func (s *Spinor[T]) Group(g int) []T {
	n := s.GroupStride()
	return s.buf.data[g*n : (g+1)*n : (g+1)*n]
}

// Data returns the whole field storage.
func (s *Spinor[T]) Data() []T { return s.buf.data }

func (s *Spinor[T]) index(group, lane, spin, color int) int {
	if debugChecks {
		checkIndex("group", group, s.layout.NumGroups())
		checkIndex("lane", lane, s.layout.Lanes())
		checkIndex("spin", spin, NumSpins)
		checkIndex("color", color, NumColors)
	}
	v := s.layout.Lanes()
	return ((group*NumSpins+spin)*NumColors+color)*2*v + lane
}

// Get returns component (spin, color) of the site held by lane of group.
func (s *Spinor[T]) Get(group, lane, spin, color int) complex128 {
	i := s.index(group, lane, spin, color)
	v := s.layout.Lanes()
	return complex(float64(s.buf.data[i]), float64(s.buf.data[i+v]))
}

// Set stores component (spin, color) of the site held by lane of group.
func (s *Spinor[T]) Set(group, lane, spin, color int, c complex128) {
	i := s.index(group, lane, spin, color)
	v := s.layout.Lanes()
	s.buf.data[i] = T(real(c))
	s.buf.data[i+v] = T(imag(c))
}

// Zero clears the field.
func (s *Spinor[T]) Zero() error {
	if s.Released() {
		return ErrReleased
	}
	clear(s.buf.data)
	return nil
}

// Clone returns an independent copy of s allocated on the same device.
func (s *Spinor[T]) Clone() (*Spinor[T], error) {
	if s.Released() {
		return nil, ErrReleased
	}
	c, err := NewSpinor[T](s.buf.dev, s.layout, s.cb)
	if err != nil {
		return nil, err
	}
	copy(c.buf.data, s.buf.data)
	return c, nil
}

// CopyFrom overwrites s with the contents of src. Both must share layout
// and checkerboard.
func (s *Spinor[T]) CopyFrom(src *Spinor[T]) error {
	if s.Released() || src.Released() {
		return ErrReleased
	}
	if s.layout != src.layout || s.cb != src.cb {
		return fmt.Errorf("%w: copy %v/%v into %v/%v", lattice.ErrGeometryMismatch,
			src.layout, src.cb, s.layout, s.cb)
	}
	copy(s.buf.data, src.buf.data)
	return nil
}
