// Package hwy provides portable lane vectors for group-at-a-time kernels.
//
// A Vec is a window of N lanes over caller-owned storage. Kernels that pack
// N independent work items into one lane group (N lattice sites, for
// example) express their arithmetic as whole-vector operations, and the
// lane-cooperative steps (moving a value from one lane to another) as
// shuffles such as TableLookupLanes.
//
// Unlike value-returning SIMD wrappers, every operation here writes into a
// destination Vec, so inner loops run without allocating:
//
//	import "github.com/ajroetker/go-dslash/hwy"
//
//	acc := hwy.View(accBuf, lanes)
//	hwy.MulAddTo(acc, hwy.View(a, lanes), hwy.View(b, lanes)) // acc += a*b
package hwy

// Floats is a constraint for floating-point types.
type Floats interface {
	~float32 | ~float64
}

// Vec is a lane vector viewing caller-owned storage.
//
// Vec instances should not be created directly; use View.
// Two Vecs created over the same storage alias each other.
type Vec[T Floats] struct {
	data []T
}

// View returns a Vec over the first n elements of buf.
// Panics if buf holds fewer than n elements.
func View[T Floats](buf []T, n int) Vec[T] {
	return Vec[T]{data: buf[:n:n]}
}

// NumLanes returns the number of lanes in the vector.
func (v Vec[T]) NumLanes() int {
	return len(v.data)
}

// Data returns the underlying lanes. Writes through the slice are visible
// to every Vec viewing the same storage.
func (v Vec[T]) Data() []T {
	return v.data
}

// Lane returns the value held in lane i.
func (v Vec[T]) Lane(i int) T {
	return v.data[i]
}
