package lattice

// Checkerboard is one half of the even/odd partition of the lattice.
type Checkerboard int

const (
	Even Checkerboard = iota
	Odd
)

// NumCheckerboards is the number of checkerboards.
const NumCheckerboards = 2

// CheckerboardOf returns the checkerboard of c: the parity of x+y+z+t.
func CheckerboardOf(c Coord) Checkerboard {
	return Checkerboard((c[X] + c[Y] + c[Z] + c[T]) & 1)
}

// Other returns the opposite checkerboard.
func (cb Checkerboard) Other() Checkerboard {
	return 1 - cb
}

// Valid reports whether cb is Even or Odd.
func (cb Checkerboard) Valid() bool {
	return cb == Even || cb == Odd
}

func (cb Checkerboard) String() string {
	switch cb {
	case Even:
		return "even"
	case Odd:
		return "odd"
	default:
		return "invalid"
	}
}

// Direction is one of the 8 nearest-neighbor directions. Forward
// directions come first (+x, +y, +z, +t), then backward ones.
type Direction uint8

// NumDirections is the number of stencil directions.
const NumDirections = 2 * NumDims

// Forward returns the positive direction along axis mu.
func Forward(mu int) Direction {
	return Direction(mu)
}

// Backward returns the negative direction along axis mu.
func Backward(mu int) Direction {
	return Direction(mu + NumDims)
}

// Directions returns all 8 directions in stencil order.
func Directions() [NumDirections]Direction {
	var ds [NumDirections]Direction
	for i := range ds {
		ds[i] = Direction(i)
	}
	return ds
}

// Axis returns the axis the direction steps along.
func (d Direction) Axis() int {
	return int(d) % NumDims
}

// IsForward reports whether d steps in the positive direction.
func (d Direction) IsForward() bool {
	return int(d) < NumDims
}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	return Direction((int(d) + NumDims) % NumDirections)
}

func (d Direction) String() string {
	sign := "+"
	if !d.IsForward() {
		sign = "-"
	}
	return sign + string("xyzt"[d.Axis()])
}
