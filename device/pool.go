// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// pool is a persistent set of worker goroutines that executes the group
// ranges of one launch at a time. Workers are spawned once and reused
// across launches, so repeated stencil applications pay no spawn cost.
type pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
}

// workItem is one worker's share of a launch.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// newPool creates a pool with numWorkers persistent workers.
// If numWorkers <= 0, uses GOMAXPROCS.
func newPool(numWorkers int) *pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

func (p *pool) close() {
	p.closeOnce.Do(func() {
		close(p.workC)
	})
}

// parallelFor runs fn over [0, n) in batches of batchSize indices handed
// out with an atomic counter, and blocks until every batch has run.
//
// A panic inside fn stops the remaining batches of that worker and is
// returned as an error after all workers have finished.
func (p *pool) parallelFor(n, batchSize int, fn func(start, end int)) error {
	if n <= 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)

	var (
		nextBatch atomic.Int64
		failed    atomic.Bool
		firstErr  error
		errOnce   sync.Once
		wg        sync.WaitGroup
	)

	run := func() {
		defer func() {
			if r := recover(); r != nil {
				failed.Store(true)
				errOnce.Do(func() { firstErr = fmt.Errorf("kernel panic: %v", r) })
			}
		}()
		for !failed.Load() {
			batch := int(nextBatch.Add(1)) - 1
			start := batch * batchSize
			if start >= n {
				return
			}
			fn(start, min(start+batchSize, n))
		}
	}

	if workers == 1 {
		run()
		return firstErr
	}

	wg.Add(workers)
	for range workers {
		p.workC <- workItem{fn: run, barrier: &wg}
	}
	wg.Wait()
	return firstErr
}
