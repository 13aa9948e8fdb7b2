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
	"slices"

	"github.com/ajroetker/go-dslash/hwy"
)

// Tag classifies how a neighbor is reached from a site.
type Tag uint8

const (
	// LocalShift: the neighbor sits in the same lane of some group of the
	// opposite checkerboard (for half of the x steps, the same group
	// index). A plain vector load reaches it.
	LocalShift Tag = iota

	// LanePermute: stepping a split axis across its lane block. The
	// neighbor sits in a different lane and the loaded group has to be
	// shuffled across lanes.
	LanePermute

	// BoundaryWrap: the step crossed the periodic lattice boundary. On a
	// split axis it is a LanePermute mechanically; on an unsplit axis it is
	// a plain load. Boundaries are always periodic.
	BoundaryWrap
)

func (t Tag) String() string {
	switch t {
	case LocalShift:
		return "local-shift"
	case LanePermute:
		return "lane-permute"
	case BoundaryWrap:
		return "boundary-wrap"
	default:
		return "unknown"
	}
}

// Neighbor locates the neighbor of one site in one direction. The neighbor
// always lives on the opposite checkerboard.
type Neighbor struct {
	Tag   Tag
	Group int32
	Lane  int32
}

// Step is the group-level view of a neighbor access: every lane of a group
// reads group Group, shuffled by permutation Perm (0 is the identity).
type Step struct {
	Group int32
	Perm  uint8
}

// NeighborTable holds the resolved neighbor of every (checkerboard, site,
// direction) for one layout. It is immutable after Resolve and safe for
// concurrent use.
type NeighborTable struct {
	layout  Layout
	entries [NumCheckerboards][]Neighbor
	steps   [NumCheckerboards][]Step
	perms   [][]int32
}

// Resolve computes the neighbor table of l.
//
// Resolve is total: with periodic boundaries every site has a neighbor in
// every direction. The x-step parity rule (whether +x stays at the same
// group index or moves to the next one) is folded into the table here so
// kernels never branch on it.
func Resolve(l Layout) *NeighborTable {
	v := l.Lanes()
	ng := l.NumGroups()
	t := &NeighborTable{
		layout: l,
		perms:  [][]int32{hwy.IndicesIota(v)},
	}
	permIDs := make(map[Direction]uint8)

	for cb := range NumCheckerboards {
		entries := make([]Neighbor, ng*v*NumDirections)
		steps := make([]Step, ng*NumDirections)
		for g := range ng {
			o := l.outerCoord(g)
			for _, d := range Directions() {
				no, crossed := l.stepOuter(Checkerboard(cb), o, d)
				ngroup := int32(l.groupIndex(no))

				var perm uint8
				if crossed && l.split[d.Axis()] > 1 {
					id, ok := permIDs[d]
					if !ok {
						idx := hwy.IndicesFromFunc(v, func(lane int) int {
							src, _ := l.stepLane(lane, d)
							return src
						})
						// Identity shuffles share slot 0 so the kernel
						// loads them directly.
						if !hwy.IsIdentity(idx) {
							id = uint8(len(t.perms))
							t.perms = append(t.perms, idx)
						}
						permIDs[d] = id
					}
					perm = id
				}
				steps[g*NumDirections+int(d)] = Step{Group: ngroup, Perm: perm}

				for lane := range v {
					nl, wrapped := lane, false
					if crossed {
						nl, wrapped = l.stepLane(lane, d)
					}
					tag := LocalShift
					switch {
					case wrapped:
						tag = BoundaryWrap
					case nl != lane:
						tag = LanePermute
					}
					entries[(g*v+lane)*NumDirections+int(d)] = Neighbor{Tag: tag, Group: ngroup, Lane: int32(nl)}
				}
			}
		}
		t.entries[cb] = entries
		t.steps[cb] = steps
	}
	return t
}

// Layout returns the layout the table was resolved for.
func (t *NeighborTable) Layout() Layout {
	return t.layout
}

// Entry returns the neighbor of the site held by lane of group on cb.
func (t *NeighborTable) Entry(cb Checkerboard, group, lane int, d Direction) Neighbor {
	return t.entries[cb][(group*t.layout.lanes+lane)*NumDirections+int(d)]
}

// Step returns the group-level access for direction d from group on cb.
func (t *NeighborTable) Step(cb Checkerboard, group int, d Direction) Step {
	return t.steps[cb][group*NumDirections+int(d)]
}

// Steps returns all 8 group-level accesses of group on cb, in direction
// order. The returned slice must not be modified.
func (t *NeighborTable) Steps(cb Checkerboard, group int) []Step {
	base := group * NumDirections
	return t.steps[cb][base : base+NumDirections : base+NumDirections]
}

// Permutation returns the lane permutation with the given id: lane i reads
// lane Permutation(id)[i]. Id 0 is the identity. The returned slice must
// not be modified.
func (t *NeighborTable) Permutation(id uint8) []int32 {
	return t.perms[id]
}

// NumPermutations returns the number of distinct lane permutations,
// including the identity.
func (t *NeighborTable) NumPermutations() int {
	return len(t.perms)
}

// Equal reports whether t and o resolve every site identically.
func (t *NeighborTable) Equal(o *NeighborTable) bool {
	if t.layout != o.layout || len(t.perms) != len(o.perms) {
		return false
	}
	for cb := range NumCheckerboards {
		if !slices.Equal(t.entries[cb], o.entries[cb]) || !slices.Equal(t.steps[cb], o.steps[cb]) {
			return false
		}
	}
	for i := range t.perms {
		if !slices.Equal(t.perms[i], o.perms[i]) {
			return false
		}
	}
	return true
}

// stepOuter moves outer coordinate o one step in direction d and reports
// whether the step left the per-lane block (which, on an unsplit axis,
// means it wrapped around the lattice).
func (l Layout) stepOuter(cb Checkerboard, o Coord, d Direction) (Coord, bool) {
	mu := d.Axis()
	n := o
	if mu == X {
		// x is stored halved: a site with odd x moves to x/2+1 going
		// forward, a site with even x moves to x/2-1 going backward.
		odd := l.outerParity(cb, o) == 1
		switch {
		case d.IsForward() && odd:
			n[X]++
			if n[X] == l.outer[X] {
				n[X] = 0
				return n, true
			}
		case !d.IsForward() && !odd:
			n[X]--
			if n[X] < 0 {
				n[X] = l.outer[X] - 1
				return n, true
			}
		}
		return n, false
	}

	if d.IsForward() {
		n[mu]++
		if n[mu] == l.outer[mu] {
			n[mu] = 0
			return n, true
		}
		return n, false
	}
	n[mu]--
	if n[mu] < 0 {
		n[mu] = l.outer[mu] - 1
		return n, true
	}
	return n, false
}

// stepLane returns the lane holding the neighbor after a block crossing in
// direction d, and whether that crossing wrapped around the lattice.
func (l Layout) stepLane(lane int, d Direction) (int, bool) {
	mu := d.Axis()
	lc := l.laneCoord(lane)
	wrapped := false
	if d.IsForward() {
		lc[mu]++
		if lc[mu] == l.split[mu] {
			lc[mu] = 0
			wrapped = true
		}
	} else {
		lc[mu]--
		if lc[mu] < 0 {
			lc[mu] = l.split[mu] - 1
			wrapped = true
		}
	}
	return l.laneIndex(lc), wrapped
}
