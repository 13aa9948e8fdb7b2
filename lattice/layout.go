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

package lattice

import (
	"fmt"
	"slices"
)

// VectorLengths lists the supported lane-group sizes.
var VectorLengths = []int{1, 2, 4, 8, 16}

// splitOrder is the preference order for folding lanes onto axes. X is the
// checkerboarded axis and is never split.
var splitOrder = [...]int{T, Z, Y}

// Layout maps the sites of one checkerboard onto lane groups.
//
// The lattice is folded into V = Lanes() sub-lattices ("virtual nodes") by
// splitting some of the y, z, t axes into equal blocks. Lane l holds the
// sites of sub-lattice l; group g holds, in every lane, the site at the same
// outer (per-block) coordinate. Each split block has an even extent, so all
// lanes of a group share the checkerboard parity of their outer coordinate
// and step along x identically.
//
// Group indices enumerate outer coordinates with x (halved) fastest; lane
// indices enumerate lane coordinates with y fastest. Both checkerboards use
// the same group and lane numbering.
//
// Layout is a comparable value; two layouts are interchangeable iff ==.
type Layout struct {
	geom   Geometry
	lanes  int
	split  [NumDims]int
	outer  [NumDims]int
	groups int
}

// NewLayout folds vlen lanes onto geom.
//
// Axes are split in halves, each time choosing among t, z, y the one with
// the largest outer extent whose half is still even (ties go to t, then z).
// If vlen is not a supported vector length, or the lattice is too small to
// fold vlen lanes, NewLayout returns an ErrConfiguration error.
func NewLayout(geom Geometry, vlen int) (Layout, error) {
	if err := geom.Validate(); err != nil {
		return Layout{}, err
	}
	if !slices.Contains(VectorLengths, vlen) {
		return Layout{}, fmt.Errorf("%w: vector length %d not in %v", ErrConfiguration, vlen, VectorLengths)
	}

	l := Layout{geom: geom, lanes: vlen}
	l.split = [NumDims]int{1, 1, 1, 1}
	l.outer = geom
	l.outer[X] = geom[X] / 2

	for folded := 1; folded < vlen; folded *= 2 {
		best := -1
		for _, mu := range splitOrder {
			if (l.outer[mu]/2)%2 != 0 || l.outer[mu] < 4 {
				continue
			}
			if best < 0 || l.outer[mu] > l.outer[best] {
				best = mu
			}
		}
		if best < 0 {
			return Layout{}, fmt.Errorf("%w: cannot fold %d lanes onto a %v lattice (split %v)",
				ErrConfiguration, vlen, geom, l.split)
		}
		l.split[best] *= 2
		l.outer[best] /= 2
	}

	l.groups = 1
	for _, n := range l.outer {
		l.groups *= n
	}
	return l, nil
}

// Geometry returns the lattice extents.
func (l Layout) Geometry() Geometry {
	return l.geom
}

// Lanes returns the vector length V.
func (l Layout) Lanes() int {
	return l.lanes
}

// NumGroups returns the number of lane groups per checkerboard.
func (l Layout) NumGroups() int {
	return l.groups
}

// Split returns how many lanes axis mu is folded into.
func (l Layout) Split(mu int) int {
	return l.split[mu]
}

// OuterExtent returns the per-lane block extent along axis mu. Along X it
// is the checkerboarded (halved) extent.
func (l Layout) OuterExtent(mu int) int {
	return l.outer[mu]
}

// VectorizedAxis returns the axis split into the most lanes, or -1 for the
// scalar layout (V = 1). Ties go to t, then z, then y.
func (l Layout) VectorizedAxis() int {
	best := -1
	for _, mu := range splitOrder {
		if l.split[mu] > 1 && (best < 0 || l.split[mu] > l.split[best]) {
			best = mu
		}
	}
	return best
}

// SiteOf returns the coordinate of the site held by lane of group on cb.
func (l Layout) SiteOf(cb Checkerboard, group, lane int) Coord {
	o := l.outerCoord(group)
	lc := l.laneCoord(lane)
	var c Coord
	for mu := Y; mu < NumDims; mu++ {
		c[mu] = lc[mu]*l.outer[mu] + o[mu]
	}
	c[X] = 2*o[X] + (int(cb)+c[Y]+c[Z]+c[T])&1
	return c
}

// Locate is the inverse of SiteOf.
func (l Layout) Locate(c Coord) (cb Checkerboard, group, lane int) {
	var o, lc Coord
	for mu := Y; mu < NumDims; mu++ {
		lc[mu] = c[mu] / l.outer[mu]
		o[mu] = c[mu] % l.outer[mu]
	}
	o[X] = c[X] / 2
	return CheckerboardOf(c), l.groupIndex(o), l.laneIndex(lc)
}

func (l Layout) String() string {
	return fmt.Sprintf("%v V=%d split=%v", l.geom, l.lanes, l.split)
}

// outerCoord decodes a group index into the per-block coordinate; the X
// component is the checkerboarded x/2.
func (l Layout) outerCoord(group int) Coord {
	var o Coord
	for mu := range NumDims {
		o[mu] = group % l.outer[mu]
		group /= l.outer[mu]
	}
	return o
}

func (l Layout) groupIndex(o Coord) int {
	g := 0
	for mu := NumDims - 1; mu >= 0; mu-- {
		g = g*l.outer[mu] + o[mu]
	}
	return g
}

func (l Layout) laneCoord(lane int) Coord {
	var lc Coord
	for mu := range NumDims {
		lc[mu] = lane % l.split[mu]
		lane /= l.split[mu]
	}
	return lc
}

func (l Layout) laneIndex(lc Coord) int {
	lane := 0
	for mu := NumDims - 1; mu >= 0; mu-- {
		lane = lane*l.split[mu] + lc[mu]
	}
	return lane
}

// outerParity is the parity x takes on every site of a group on cb: the
// split blocks are even, so it only depends on the outer coordinate.
func (l Layout) outerParity(cb Checkerboard, o Coord) int {
	return (int(cb) + o[Y] + o[Z] + o[T]) & 1
}
