package hwy

// This file provides the lane-cooperative operations: moving values between
// lanes of one vector. These are the only steps in which a lane reads data
// owned by another lane of its group.

// TableLookupLanes performs a lane-level table lookup: dst[i] = tbl[idx[i]].
// Lanes whose index is out of range are set to zero.
//
// dst must not alias tbl.
func TableLookupLanes[T Floats](dst, tbl Vec[T], idx []int32) {
	n := min(len(dst.data), len(idx))
	for i := range n {
		j := int(idx[i])
		if j >= 0 && j < len(tbl.data) {
			dst.data[i] = tbl.data[j]
		} else {
			dst.data[i] = 0
		}
	}
}

// IndicesIota returns the identity lane permutation [0, 1, ..., n-1].
func IndicesIota(n int) []int32 {
	idx := make([]int32, n)
	for i := range idx {
		idx[i] = int32(i)
	}
	return idx
}

// IndicesFromFunc builds a lane permutation where lane i reads from f(i).
func IndicesFromFunc(n int, f func(lane int) int) []int32 {
	idx := make([]int32, n)
	for i := range idx {
		idx[i] = int32(f(i))
	}
	return idx
}

// IsIdentity reports whether idx maps every lane to itself.
func IsIdentity(idx []int32) bool {
	for i, j := range idx {
		if int(j) != i {
			return false
		}
	}
	return true
}
