package reference

import (
	"fmt"

	"github.com/ajroetker/go-dslash/lattice"
)

// Gamma holds the Dirac matrices of the DeGrand-Rossi basis, indexed by
// axis (x, y, z, t).
var Gamma = [lattice.NumDims][4][4]complex128{
	{
		{0, 0, 0, 1i},
		{0, 0, 1i, 0},
		{0, -1i, 0, 0},
		{-1i, 0, 0, 0},
	},
	{
		{0, 0, 0, -1},
		{0, 0, 1, 0},
		{0, 1, 0, 0},
		{-1, 0, 0, 0},
	},
	{
		{0, 0, 1i, 0},
		{0, 0, 0, -1i},
		{-1i, 0, 0, 0},
		{0, 1i, 0, 0},
	},
	{
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	},
}

// Dslash computes, on every site of target,
//
//	out(x) = sum_mu U_mu(x) (1 - sign γ_mu) in(x+mu) + U_mu(x-mu)† (1 + sign γ_mu) in(x-mu)
//
// and zeroes the sites of the other checkerboard. Only sites of the
// opposite parity of in are read.
func Dslash(out *Fermion, u *Gauge, in *Fermion, sign int, target lattice.Checkerboard) error {
	if sign != 1 && sign != -1 {
		return fmt.Errorf("%w: sign %d", lattice.ErrConfiguration, sign)
	}
	geom := in.Geom
	if out.Geom != geom || u.Geom != geom {
		return fmt.Errorf("%w: in %v, out %v, gauge %v", lattice.ErrGeometryMismatch, geom, out.Geom, u.Geom)
	}
	if out == in {
		return lattice.ErrAliasing
	}
	s := complex(float64(sign), 0)

	for i := range out.Sites {
		c := geom.Coord(i)
		if lattice.CheckerboardOf(c) != target {
			out.Sites[i] = Spinor{}
			continue
		}
		var acc Spinor
		for mu := range lattice.NumDims {
			fwd, _ := geom.Neighbor(c, lattice.Forward(mu))
			h := project(in.At(fwd), mu, -s)
			addMul(&acc, u.Link(c, mu), &h)

			bwd, _ := geom.Neighbor(c, lattice.Backward(mu))
			h = project(in.At(bwd), mu, s)
			ud := u.Link(bwd, mu).Dagger()
			addMul(&acc, &ud, &h)
		}
		out.Sites[i] = acc
	}
	return nil
}

// project returns (1 + s γ_mu) psi.
func project(psi *Spinor, mu int, s complex128) Spinor {
	var r Spinor
	for a := range 4 {
		for c := range 3 {
			r[a][c] = psi[a][c]
			for b := range 4 {
				r[a][c] += s * Gamma[mu][a][b] * psi[b][c]
			}
		}
	}
	return r
}

// addMul adds m·psi (color multiplication on every spin) to acc.
func addMul(acc *Spinor, m *ColorMatrix, psi *Spinor) {
	for a := range 4 {
		for i := range 3 {
			for j := range 3 {
				acc[a][i] += m[i][j] * psi[a][j]
			}
		}
	}
}
