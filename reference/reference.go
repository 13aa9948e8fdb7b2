// Package reference holds lattice fields in a flat, lexicographically
// ordered layout together with a straightforward scalar Wilson-Dslash. It
// is the ground truth the vectorized engine is checked against and the
// format fields are imported from.
package reference

import (
	"fmt"
	"math/cmplx"

	"github.com/ajroetker/go-dslash/lattice"
)

// ColorMatrix is a 3x3 complex matrix, row-major.
type ColorMatrix [3][3]complex128

// Spinor is one site of a fermion field: [spin][color].
type Spinor [4][3]complex128

// Fermion is a fermion field over the whole lattice, indexed by
// lattice.Geometry.Index.
type Fermion struct {
	Geom  lattice.Geometry
	Sites []Spinor
}

// Gauge is a gauge field: one link per site and forward axis.
type Gauge struct {
	Geom  lattice.Geometry
	Links [lattice.NumDims][]ColorMatrix
}

// NewFermion returns a zero fermion field on geom.
func NewFermion(geom lattice.Geometry) *Fermion {
	return &Fermion{Geom: geom, Sites: make([]Spinor, geom.Volume())}
}

// NewGauge returns a gauge field on geom with every link zero.
func NewGauge(geom lattice.Geometry) *Gauge {
	u := &Gauge{Geom: geom}
	for mu := range u.Links {
		u.Links[mu] = make([]ColorMatrix, geom.Volume())
	}
	return u
}

// UnitGauge returns the free-field gauge configuration: every link is 1.
func UnitGauge(geom lattice.Geometry) *Gauge {
	u := NewGauge(geom)
	for mu := range u.Links {
		for i := range u.Links[mu] {
			u.Links[mu][i] = Identity()
		}
	}
	return u
}

// At returns the spinor at c.
func (f *Fermion) At(c lattice.Coord) *Spinor {
	return &f.Sites[f.Geom.Index(c)]
}

// Link returns U_mu at c.
func (u *Gauge) Link(c lattice.Coord, mu int) *ColorMatrix {
	return &u.Links[mu][u.Geom.Index(c)]
}

// Identity returns the unit color matrix.
func Identity() ColorMatrix {
	return ColorMatrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m*o.
func (m *ColorMatrix) Mul(o *ColorMatrix) ColorMatrix {
	var r ColorMatrix
	for i := range 3 {
		for j := range 3 {
			for k := range 3 {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

// Dagger returns the Hermitian conjugate of m.
func (m *ColorMatrix) Dagger() ColorMatrix {
	var r ColorMatrix
	for i := range 3 {
		for j := range 3 {
			r[i][j] = cmplx.Conj(m[j][i])
		}
	}
	return r
}

// Det returns the determinant of m.
func (m *ColorMatrix) Det() complex128 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inner returns <a, b> = sum over sites of conj(a)·b.
func Inner(a, b *Fermion) (complex128, error) {
	if a.Geom != b.Geom {
		return 0, fmt.Errorf("%w: inner product of %v and %v", lattice.ErrGeometryMismatch, a.Geom, b.Geom)
	}
	var sum complex128
	for i := range a.Sites {
		for s := range 4 {
			for c := range 3 {
				sum += cmplx.Conj(a.Sites[i][s][c]) * b.Sites[i][s][c]
			}
		}
	}
	return sum, nil
}

// Norm2 returns <f, f>.
func (f *Fermion) Norm2() float64 {
	var sum float64
	for i := range f.Sites {
		for s := range 4 {
			for c := range 3 {
				z := f.Sites[i][s][c]
				sum += real(z)*real(z) + imag(z)*imag(z)
			}
		}
	}
	return sum
}

// Diff2 returns |a - b|^2 summed over the sites of a.
func Diff2(a, b *Fermion) float64 {
	var sum float64
	for i := range a.Sites {
		for s := range 4 {
			for c := range 3 {
				z := a.Sites[i][s][c] - b.Sites[i][s][c]
				sum += real(z)*real(z) + imag(z)*imag(z)
			}
		}
	}
	return sum
}

// Mask zeroes every site not on cb.
func (f *Fermion) Mask(cb lattice.Checkerboard) {
	for i := range f.Sites {
		if lattice.CheckerboardOf(f.Geom.Coord(i)) != cb {
			f.Sites[i] = Spinor{}
		}
	}
}
