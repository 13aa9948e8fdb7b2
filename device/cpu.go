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

package device

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"

	"github.com/ajroetker/go-dslash/hwy"
)

// DefaultBatch is the number of groups a worker grabs at a time. Small
// enough to balance a 4^4 lattice over a handful of workers, large enough
// to keep atomic traffic negligible on 32^4.
const DefaultBatch = 16

// queueDepth bounds the number of launches waiting to run. Launch blocks
// once it is reached.
const queueDepth = 64

// CPU runs kernels on a persistent pool of goroutines.
type CPU struct {
	pool  *pool
	batch int
	mem   memory
	queue chan *job

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
	drained chan struct{}

	errMu   sync.Mutex
	lastErr error
}

type job struct {
	ev        *Event
	numGroups int
	kernel    Kernel
}

// Option configures a CPU device.
type Option func(*CPU)

// WithWorkers sets the number of worker goroutines. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *CPU) {
		c.pool = newPool(n)
	}
}

// WithMemoryLimit caps the bytes Reserve will hand out. n <= 0 is unlimited.
func WithMemoryLimit(n int64) Option {
	return func(c *CPU) {
		c.mem.limit = n
	}
}

// WithBatch sets how many groups a worker takes per grab.
func WithBatch(n int) Option {
	return func(c *CPU) {
		if n > 0 {
			c.batch = n
		}
	}
}

// NewCPU creates a CPU device and starts its queue.
func NewCPU(opts ...Option) *CPU {
	c := &CPU{
		batch:   DefaultBatch,
		queue:   make(chan *job, queueDepth),
		drained: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = newPool(0)
	}
	go c.dispatch()
	return c
}

// dispatch runs queued launches one after another.
func (c *CPU) dispatch() {
	defer close(c.drained)
	for j := range c.queue {
		j.ev.started = time.Now()
		var err error
		if perr := c.pool.parallelFor(j.numGroups, c.batch, j.kernel); perr != nil {
			err = &Error{Op: "execute", Err: fmt.Errorf("%s: %w", j.ev.name, perr)}
			c.errMu.Lock()
			if c.lastErr == nil {
				c.lastErr = err
			}
			c.errMu.Unlock()
		}
		j.ev.complete(err)
		c.pending.Done()
	}
}

// Name returns the CPU brand, SIMD level, FMA support and worker count.
func (c *CPU) Name() string {
	brand := strings.TrimSpace(cpuid.CPU.BrandName)
	if brand == "" {
		brand = "unknown CPU"
	}
	simd := hwy.CurrentName()
	if hwy.HasFMA() {
		simd += "+fma"
	}
	return fmt.Sprintf("%s (%s, %d workers)", brand, simd, c.pool.numWorkers)
}

// Workers returns the number of worker goroutines.
func (c *CPU) Workers() int {
	return c.pool.numWorkers
}

// Launch enqueues kernel over numGroups groups.
func (c *CPU) Launch(name string, numGroups int, kernel Kernel) (*Event, error) {
	if kernel == nil {
		return nil, &Error{Op: "launch", Err: fmt.Errorf("%s: nil kernel", name)}
	}
	if numGroups < 0 {
		return nil, &Error{Op: "launch", Err: fmt.Errorf("%s: negative group count %d", name, numGroups)}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, &Error{Op: "launch", Err: fmt.Errorf("%s: %w", name, ErrClosed)}
	}
	ev := newEvent(name)
	c.pending.Add(1)
	c.queue <- &job{ev: ev, numGroups: numGroups, kernel: kernel}
	return ev, nil
}

// Synchronize waits for every queued launch and returns, then clears, the
// first execution failure seen since the previous Synchronize.
func (c *CPU) Synchronize() error {
	c.pending.Wait()
	c.errMu.Lock()
	defer c.errMu.Unlock()
	err := c.lastErr
	c.lastErr = nil
	return err
}

// Reserve accounts nbytes against the memory limit.
func (c *CPU) Reserve(nbytes int64) error {
	return c.mem.reserve(nbytes)
}

// Free returns nbytes to the budget.
func (c *CPU) Free(nbytes int64) {
	c.mem.free(nbytes)
}

// MemoryInUse returns the bytes currently reserved.
func (c *CPU) MemoryInUse() int64 {
	return c.mem.inUse()
}

// Close stops accepting launches, lets queued ones finish and shuts the
// workers down. Calling Close multiple times is safe.
func (c *CPU) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	<-c.drained
	c.pool.close()
	return nil
}

var _ Device = (*CPU)(nil)
