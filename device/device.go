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

// Package device is the execution capability the stencil engine is written
// against: a parallel-for over lane groups, dispatched asynchronously on an
// in-order queue, plus accounting of device-resident memory.
//
// A kernel receives a contiguous range of group indices and processes each
// group as one V-lane vector; lanes of a group cooperate through the hwy
// shuffle operations. Groups never communicate with each other during a
// launch.
//
// Usage:
//
//	dev := device.NewCPU()
//	defer dev.Close()
//
//	ev, err := dev.Launch("dslash", numGroups, func(start, end int) {
//	    for g := start; g < end; g++ {
//	        processGroup(g)
//	    }
//	})
//	if err != nil {
//	    return err
//	}
//	return ev.Wait()
package device

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Kernel processes the lane groups [start, end). Distinct ranges of one
// launch may run concurrently.
type Kernel func(start, end int)

// Device executes kernels over lane groups.
//
// Launches are queued in order: a launch starts only after every earlier
// launch on the same device has completed, so a kernel reading the output
// of the previous launch always observes it. Launch itself does not block
// on execution.
type Device interface {
	// Name describes the device.
	Name() string

	// Launch enqueues kernel over numGroups groups and returns immediately.
	Launch(name string, numGroups int, kernel Kernel) (*Event, error)

	// Synchronize blocks until every launch queued so far has completed and
	// returns the first failure among them.
	Synchronize() error

	// Reserve accounts nbytes of device memory, failing with an *Error if
	// the device cannot hold it.
	Reserve(nbytes int64) error

	// Free returns nbytes previously reserved.
	Free(nbytes int64)

	// Close stops accepting launches and waits for queued ones to finish.
	Close() error
}

// ErrDevice is matched by every *Error.
var ErrDevice = errors.New("device error")

// ErrClosed is wrapped by launches on a closed device.
var ErrClosed = errors.New("device closed")

// ErrOutOfMemory is wrapped by reservations beyond the memory limit.
var ErrOutOfMemory = errors.New("out of device memory")

// Error is a transient device-level failure: allocation or launch. It is
// never retried by the engine.
type Error struct {
	Op  string // "alloc", "launch" or "execute"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrDevice, e.Err}
}

// Event tracks one launch.
type Event struct {
	name     string
	done     chan struct{}
	err      error
	started  time.Time
	finished time.Time
}

func newEvent(name string) *Event {
	return &Event{name: name, done: make(chan struct{})}
}

// Name returns the kernel name the event was launched with.
func (e *Event) Name() string {
	return e.name
}

// Done is closed when the launch has completed.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the launch has completed and returns its failure, if
// any, as an *Error.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Elapsed returns the execution time of the launch, excluding queueing.
// It is zero until the launch has completed.
func (e *Event) Elapsed() time.Duration {
	select {
	case <-e.done:
		return e.finished.Sub(e.started)
	default:
		return 0
	}
}

func (e *Event) complete(err error) {
	e.err = err
	e.finished = time.Now()
	close(e.done)
}

// memory is a byte budget shared by the containers of one device.
type memory struct {
	mu    sync.Mutex
	limit int64 // <= 0 means unlimited
	used  int64
}

func (m *memory) reserve(nbytes int64) error {
	if nbytes < 0 {
		return &Error{Op: "alloc", Err: fmt.Errorf("negative size %d", nbytes)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit > 0 && m.used+nbytes > m.limit {
		return &Error{Op: "alloc", Err: fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrOutOfMemory, nbytes, m.used, m.limit)}
	}
	m.used += nbytes
	return nil
}

func (m *memory) free(nbytes int64) {
	m.mu.Lock()
	m.used = max(m.used-nbytes, 0)
	m.mu.Unlock()
}

func (m *memory) inUse() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
