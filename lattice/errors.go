package lattice

import "errors"

// Error taxonomy shared by every package of the stencil engine. Callers
// match with errors.Is; the wrapping error carries the details.
var (
	// ErrConfiguration reports parameters that cannot describe a valid
	// setup: a bad geometry, a vector length that cannot be folded onto
	// the lattice, an invalid sign. Choosing other parameters recovers.
	ErrConfiguration = errors.New("configuration error")

	// ErrGeometryMismatch reports fields, tables or gauge copies built for
	// different geometries, layouts or checkerboards being used together.
	ErrGeometryMismatch = errors.New("geometry mismatch")

	// ErrAliasing reports an input and an output field sharing storage.
	ErrAliasing = errors.New("input and output fields alias")
)
