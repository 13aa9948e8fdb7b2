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
	"github.com/ajroetker/go-dslash/hwy"
	"github.com/ajroetker/go-dslash/lattice"
)

// phase is a unit complex factor from {1, -1, i, -i}.
type phase uint8

const (
	phaseOne phase = iota
	phaseMinusOne
	phaseI
	phaseMinusI
)

func (p phase) neg() phase {
	return p ^ 1
}

func (p phase) conj() phase {
	switch p {
	case phaseI:
		return phaseMinusI
	case phaseMinusI:
		return phaseI
	}
	return p
}

// signed returns s·p for s = ±1.
func (p phase) signed(s int) phase {
	if s < 0 {
		return p.neg()
	}
	return p
}

// projRow describes one row of the off-diagonal block A of a DeGrand-Rossi
// gamma matrix γ = [[0, A], [A†, 0]]: A[r][k] = ph and zero elsewhere.
type projRow struct {
	k  int
	ph phase
}

// projTable[mu][r] is row r of A for γ_mu.
var projTable = [lattice.NumDims][2]projRow{
	lattice.X: {{k: 1, ph: phaseI}, {k: 0, ph: phaseI}},
	lattice.Y: {{k: 1, ph: phaseMinusOne}, {k: 0, ph: phaseOne}},
	lattice.Z: {{k: 0, ph: phaseI}, {k: 1, ph: phaseMinusI}},
	lattice.T: {{k: 0, ph: phaseOne}, {k: 1, ph: phaseOne}},
}

// addPhase computes (re, im) += p·(xre, xim) lane-wise.
func addPhase[T hwy.Floats](re, im, xre, xim hwy.Vec[T], p phase) {
	switch p {
	case phaseOne:
		hwy.AddTo(re, xre)
		hwy.AddTo(im, xim)
	case phaseMinusOne:
		hwy.SubTo(re, xre)
		hwy.SubTo(im, xim)
	case phaseI:
		hwy.SubTo(re, xim)
		hwy.AddTo(im, xre)
	case phaseMinusI:
		hwy.AddTo(re, xim)
		hwy.SubTo(im, xre)
	}
}
