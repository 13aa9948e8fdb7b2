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

package field

import (
	"fmt"
	"unsafe"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/hwy"
)

// RealSize returns the size in bytes of one real number of type T.
func RealSize[T hwy.Floats]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// buffer is device-accounted storage shared by all container types.
type buffer[T hwy.Floats] struct {
	dev    device.Device
	data   []T
	nbytes int64
}

func allocBuffer[T hwy.Floats](dev device.Device, n int) (buffer[T], error) {
	if dev == nil {
		return buffer[T]{}, &device.Error{Op: "alloc", Err: fmt.Errorf("nil device")}
	}
	nbytes := int64(n) * int64(RealSize[T]())
	if err := dev.Reserve(nbytes); err != nil {
		return buffer[T]{}, err
	}
	return buffer[T]{dev: dev, data: make([]T, n), nbytes: nbytes}, nil
}

func (b *buffer[T]) release() {
	if b.data == nil {
		return
	}
	b.dev.Free(b.nbytes)
	b.data = nil
}

func (b *buffer[T]) released() bool {
	return b.data == nil
}

// aliases reports whether b and o share any storage.
func (b *buffer[T]) aliases(o *buffer[T]) bool {
	if len(b.data) == 0 || len(o.data) == 0 {
		return false
	}
	size := uintptr(RealSize[T]())
	b0 := uintptr(unsafe.Pointer(unsafe.SliceData(b.data)))
	o0 := uintptr(unsafe.Pointer(unsafe.SliceData(o.data)))
	return b0 < o0+uintptr(len(o.data))*size && o0 < b0+uintptr(len(b.data))*size
}

func checkIndex(what string, i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("field: %s index %d out of range [0, %d)", what, i, n))
	}
}
