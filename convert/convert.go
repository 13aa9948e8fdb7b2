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

// Package convert moves fields between the flat reference layout and the
// vectorized containers. Conversions are lossless: float64 round trips are
// bit-identical, and so are float32 ones for values representable in
// float32.
package convert

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/field"
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
	"github.com/ajroetker/go-dslash/reference"
)

// chunk is the number of lane groups converted by one task.
const chunk = 32

// forGroups runs fn over every group of l, in parallel chunks.
func forGroups(l lattice.Layout, fn func(group int)) error {
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	ng := l.NumGroups()
	for start := 0; start < ng; start += chunk {
		end := min(start+chunk, ng)
		eg.Go(func() error {
			for g := start; g < end; g++ {
				fn(g)
			}
			return nil
		})
	}
	return eg.Wait()
}

func checkGeometry(l lattice.Layout, g lattice.Geometry) error {
	if l.Geometry() != g {
		return fmt.Errorf("%w: layout %v, field %v", lattice.ErrGeometryMismatch, l, g)
	}
	return nil
}

// ImportSpinor allocates a spinor on cb and fills it with the sites of src
// on that checkerboard.
func ImportSpinor[T hwy.Floats](dev device.Device, l lattice.Layout, src *reference.Fermion, cb lattice.Checkerboard) (*field.Spinor[T], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source fermion", lattice.ErrConfiguration)
	}
	if err := checkGeometry(l, src.Geom); err != nil {
		return nil, err
	}
	s, err := field.NewSpinor[T](dev, l, cb)
	if err != nil {
		return nil, err
	}
	err = forGroups(l, func(g int) {
		for lane := range l.Lanes() {
			site := src.At(l.SiteOf(cb, g, lane))
			for sp := range field.NumSpins {
				for c := range field.NumColors {
					s.Set(g, lane, sp, c, site[sp][c])
				}
			}
		}
	})
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// ExportSpinor writes the sites of s into dst. Sites of the other
// checkerboard are left untouched.
func ExportSpinor[T hwy.Floats](s *field.Spinor[T], dst *reference.Fermion) error {
	if s == nil || dst == nil {
		return fmt.Errorf("%w: nil spinor or destination fermion", lattice.ErrConfiguration)
	}
	if s.Released() {
		return field.ErrReleased
	}
	l := s.Layout()
	if err := checkGeometry(l, dst.Geom); err != nil {
		return err
	}
	cb := s.Checkerboard()
	return forGroups(l, func(g int) {
		for lane := range l.Lanes() {
			site := dst.At(l.SiteOf(cb, g, lane))
			for sp := range field.NumSpins {
				for c := range field.NumColors {
					site[sp][c] = s.Get(g, lane, sp, c)
				}
			}
		}
	})
}

// ImportGauge allocates a single-copy gauge field holding the links of src.
func ImportGauge[T hwy.Floats](dev device.Device, l lattice.Layout, src *reference.Gauge) (*field.Gauge[T], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source gauge", lattice.ErrConfiguration)
	}
	if err := checkGeometry(l, src.Geom); err != nil {
		return nil, err
	}
	u, err := field.NewGauge[T](dev, l)
	if err != nil {
		return nil, err
	}
	err = forGroups(l, func(g int) {
		for cb := range lattice.NumCheckerboards {
			cb := lattice.Checkerboard(cb)
			for lane := range l.Lanes() {
				c := l.SiteOf(cb, g, lane)
				for mu := range lattice.NumDims {
					m := src.Link(c, mu)
					for row := range field.NumColors {
						for col := range field.NumColors {
							u.SetLink(cb, g, lane, mu, row, col, m[row][col])
						}
					}
				}
			}
		}
	})
	if err != nil {
		u.Release()
		return nil, err
	}
	return u, nil
}

// ExportGauge returns the links of u in the reference layout.
func ExportGauge[T hwy.Floats](u *field.Gauge[T]) (*reference.Gauge, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: nil gauge", lattice.ErrConfiguration)
	}
	if u.Released() {
		return nil, field.ErrReleased
	}
	l := u.Layout()
	dst := reference.NewGauge(l.Geometry())
	err := forGroups(l, func(g int) {
		for cb := range lattice.NumCheckerboards {
			cb := lattice.Checkerboard(cb)
			for lane := range l.Lanes() {
				c := l.SiteOf(cb, g, lane)
				for mu := range lattice.NumDims {
					m := dst.Link(c, mu)
					for row := range field.NumColors {
						for col := range field.NumColors {
							m[row][col] = u.Link(cb, g, lane, mu, row, col)
						}
					}
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}
