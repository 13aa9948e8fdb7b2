// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package device

import (
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
)

func TestNewPool(t *testing.T) {
	p := newPool(4)
	defer p.close()

	if p.numWorkers != 4 {
		t.Errorf("numWorkers = %d, want 4", p.numWorkers)
	}
}

func TestNewPoolDefault(t *testing.T) {
	p := newPool(0)
	defer p.close()

	if p.numWorkers != runtime.GOMAXPROCS(0) {
		t.Errorf("numWorkers = %d, want %d", p.numWorkers, runtime.GOMAXPROCS(0))
	}
}

func TestParallelFor(t *testing.T) {
	p := newPool(4)
	defer p.close()

	for _, batch := range []int{0, 1, 7, 16, 1000} {
		n := 100
		results := make([]int, n)
		err := p.parallelFor(n, batch, func(start, end int) {
			for i := start; i < end; i++ {
				results[i] += i * 2
			}
		})
		if err != nil {
			t.Fatalf("batch=%d: parallelFor: %v", batch, err)
		}
		for i := range n {
			if results[i] != i*2 {
				t.Errorf("batch=%d: results[%d] = %d, want %d", batch, i, results[i], i*2)
			}
		}
	}
}

func TestParallelForEmpty(t *testing.T) {
	p := newPool(2)
	defer p.close()

	called := false
	if err := p.parallelFor(0, 4, func(start, end int) { called = true }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called for n=0")
	}
}

func TestParallelForSingleWorker(t *testing.T) {
	p := newPool(1)
	defer p.close()

	var count atomic.Int64
	if err := p.parallelFor(50, 3, func(start, end int) {
		count.Add(int64(end - start))
	}); err != nil {
		t.Fatal(err)
	}
	if count.Load() != 50 {
		t.Errorf("count = %d, want 50", count.Load())
	}
}

func TestParallelForPanic(t *testing.T) {
	p := newPool(4)
	defer p.close()

	err := p.parallelFor(64, 1, func(start, end int) {
		if start == 5 {
			panic("boom")
		}
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("parallelFor error = %v, want kernel panic", err)
	}

	// The pool is still usable afterwards.
	var count atomic.Int64
	if err := p.parallelFor(64, 8, func(start, end int) { count.Add(int64(end - start)) }); err != nil {
		t.Fatal(err)
	}
	if count.Load() != 64 {
		t.Errorf("count after panic = %d, want 64", count.Load())
	}
}

func BenchmarkParallelFor(b *testing.B) {
	p := newPool(0)
	defer p.close()

	data := make([]float64, 1<<16)
	for b.Loop() {
		_ = p.parallelFor(len(data), 256, func(start, end int) {
			for i := start; i < end; i++ {
				data[i] = data[i]*0.5 + 1
			}
		})
	}
}
