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

package hwy

// Element-wise operations. All of them process min(lanes) of their operands
// and write into dst, which may alias any source operand.

// Copy copies src's lanes into dst.
func Copy[T Floats](dst, src Vec[T]) {
	copy(dst.data, src.data)
}

// AddTo performs dst += a.
func AddTo[T Floats](dst, a Vec[T]) {
	n := min(len(dst.data), len(a.data))
	d, x := dst.data[:n], a.data[:n]
	for i := range d {
		d[i] += x[i]
	}
}

// SubTo performs dst -= a.
func SubTo[T Floats](dst, a Vec[T]) {
	n := min(len(dst.data), len(a.data))
	d, x := dst.data[:n], a.data[:n]
	for i := range d {
		d[i] -= x[i]
	}
}

// MulAddTo performs dst += a * b.
//
// The product is rounded before the addition, so results do not depend on
// whether the CPU has FMA.
func MulAddTo[T Floats](dst, a, b Vec[T]) {
	n := min(len(dst.data), len(a.data), len(b.data))
	d, x, y := dst.data[:n], a.data[:n], b.data[:n]
	for i := range d {
		d[i] += T(x[i] * y[i])
	}
}

// NegMulAddTo performs dst -= a * b.
func NegMulAddTo[T Floats](dst, a, b Vec[T]) {
	n := min(len(dst.data), len(a.data), len(b.data))
	d, x, y := dst.data[:n], a.data[:n], b.data[:n]
	for i := range d {
		d[i] -= T(x[i] * y[i])
	}
}
