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

package dslash

import (
	"fmt"

	"github.com/ajroetker/go-dslash/lattice"
)

// FlopsPerSite is the conventional floating point operation count of one
// Wilson-Dslash output site.
const FlopsPerSite = 1320

// MaxReuse is the largest neighbor reuse level accepted by SiteTraffic.
const MaxReuse = 7

// Traffic is the memory traffic of one output site, in bytes.
type Traffic struct {
	Read  int64
	Write int64
}

// SiteTraffic returns the traffic of one output site when r of the 8
// neighbor spinors are assumed to come from cache. Gauge links are always
// read. realBytes is the size of one real number.
//
// The reuse level is a reporting model only; it never changes what the
// kernel computes.
func SiteTraffic(r, realBytes int) (Traffic, error) {
	if r < 0 || r > MaxReuse {
		return Traffic{}, fmt.Errorf("%w: reuse level %d outside [0, %d]", lattice.ErrConfiguration, r, MaxReuse)
	}
	const spinorReals = 4 * 3 * 2
	const linkReals = 3 * 3 * 2
	return Traffic{
		Read:  int64(((lattice.NumDirections-r)*spinorReals + lattice.NumDirections*linkReals) * realBytes),
		Write: int64(spinorReals * realBytes),
	}, nil
}

// ReadRFO returns the bytes read when every written line is first read for
// ownership.
func (t Traffic) ReadRFO() int64 {
	return t.Read + t.Write
}

// Total returns read plus written bytes, with or without read-for-ownership.
func (t Traffic) Total(rfo bool) int64 {
	if rfo {
		return t.ReadRFO() + t.Write
	}
	return t.Read + t.Write
}

// Scale returns the traffic of n site updates.
func (t Traffic) Scale(n int64) Traffic {
	return Traffic{Read: t.Read * n, Write: t.Write * n}
}
