package reference

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/ajroetker/go-dslash/lattice"
)

// newRand returns a deterministic generator for seed.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// gaussian draws a complex number with independent unit-variance normal
// real and imaginary parts.
func gaussian(r *rand.Rand) complex128 {
	return complex(r.NormFloat64(), r.NormFloat64())
}

// RandomGauge returns a gauge field whose links are gaussian matrices
// projected onto SU(3). The same seed always gives the same field.
func RandomGauge(geom lattice.Geometry, seed uint64) *Gauge {
	r := newRand(seed)
	u := NewGauge(geom)
	for mu := range u.Links {
		for i := range u.Links[mu] {
			m := &u.Links[mu][i]
			for row := range 3 {
				for col := range 3 {
					m[row][col] = gaussian(r)
				}
			}
			Reunit(m)
		}
	}
	return u
}

// RandomFermion returns a fermion field with gaussian components on every
// site.
func RandomFermion(geom lattice.Geometry, seed uint64) *Fermion {
	r := newRand(seed)
	f := NewFermion(geom)
	for i := range f.Sites {
		for s := range 4 {
			for c := range 3 {
				f.Sites[i][s][c] = gaussian(r)
			}
		}
	}
	return f
}

// Reunit projects m onto SU(3): the first two rows are orthonormalized and
// the third is the conjugate cross product of the first two, which fixes
// the determinant to 1.
func Reunit(m *ColorMatrix) {
	normalize(&m[0])

	var dot complex128
	for c := range 3 {
		dot += cmplx.Conj(m[0][c]) * m[1][c]
	}
	for c := range 3 {
		m[1][c] -= dot * m[0][c]
	}
	normalize(&m[1])

	m[2][0] = cmplx.Conj(m[0][1]*m[1][2] - m[0][2]*m[1][1])
	m[2][1] = cmplx.Conj(m[0][2]*m[1][0] - m[0][0]*m[1][2])
	m[2][2] = cmplx.Conj(m[0][0]*m[1][1] - m[0][1]*m[1][0])
}

func normalize(row *[3]complex128) {
	var n float64
	for _, z := range row {
		n += real(z)*real(z) + imag(z)*imag(z)
	}
	n = 1 / math.Sqrt(n)
	for c := range row {
		row[c] *= complex(n, 0)
	}
}
