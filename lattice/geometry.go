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

import "fmt"

// Axis indices. X is the checkerboarded axis.
const (
	X = iota
	Y
	Z
	T
)

// NumDims is the number of space-time dimensions.
const NumDims = 4

// Coord is a site coordinate (x, y, z, t).
type Coord [NumDims]int

// Geometry holds the lattice extents (x, y, z, t).
type Geometry [NumDims]int

// Validate checks that every extent is positive and even.
//
// Evenness is required in every axis, not only the checkerboarded one: with
// periodic boundaries an odd extent would make a site's wrapped neighbor
// land on its own checkerboard.
func (g Geometry) Validate() error {
	for mu, n := range g {
		if n <= 0 {
			return fmt.Errorf("%w: lattice extent %d in dimension %d must be positive", ErrConfiguration, n, mu)
		}
		if n%2 != 0 {
			return fmt.Errorf("%w: lattice extent %d in dimension %d must be even", ErrConfiguration, n, mu)
		}
	}
	return nil
}

// Volume returns the total number of sites.
func (g Geometry) Volume() int {
	v := 1
	for _, n := range g {
		v *= n
	}
	return v
}

// CBVolume returns the number of sites on one checkerboard.
func (g Geometry) CBVolume() int {
	return g.Volume() / 2
}

// Index returns the lexicographic index of c, x running fastest.
func (g Geometry) Index(c Coord) int {
	return ((c[T]*g[Z]+c[Z])*g[Y]+c[Y])*g[X] + c[X]
}

// Coord is the inverse of Index.
func (g Geometry) Coord(index int) Coord {
	var c Coord
	for mu := range NumDims {
		c[mu] = index % g[mu]
		index /= g[mu]
	}
	return c
}

// Neighbor returns the periodic neighbor of c in direction d and whether the
// step wrapped around the lattice boundary.
func (g Geometry) Neighbor(c Coord, d Direction) (Coord, bool) {
	mu := d.Axis()
	n := c
	wrapped := false
	if d.IsForward() {
		n[mu]++
		if n[mu] == g[mu] {
			n[mu] = 0
			wrapped = true
		}
	} else {
		n[mu]--
		if n[mu] < 0 {
			n[mu] = g[mu] - 1
			wrapped = true
		}
	}
	return n, wrapped
}

// String formats the geometry as "XxYxZxT".
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", g[X], g[Y], g[Z], g[T])
}
