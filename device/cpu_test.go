// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ajroetker/go-dslash/hwy"
)

func TestCPUOptions(t *testing.T) {
	dev := NewCPU(WithWorkers(3), WithBatch(5), WithMemoryLimit(1024))
	defer dev.Close()

	if dev.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", dev.Workers())
	}
	if dev.batch != 5 {
		t.Errorf("batch = %d, want 5", dev.batch)
	}
	if !strings.Contains(dev.Name(), "3 workers") {
		t.Errorf("Name() = %q, want worker count", dev.Name())
	}
	if !strings.Contains(dev.Name(), hwy.CurrentName()) {
		t.Errorf("Name() = %q, want SIMD level %q", dev.Name(), hwy.CurrentName())
	}
	if got := strings.Contains(dev.Name(), "+fma"); got != hwy.HasFMA() {
		t.Errorf("Name() = %q reports fma=%v, HasFMA() = %v", dev.Name(), got, hwy.HasFMA())
	}
}

func TestLaunchCoversAllGroups(t *testing.T) {
	dev := NewCPU(WithWorkers(4), WithBatch(3))
	defer dev.Close()

	const n = 131
	hits := make([]atomic.Int32, n)
	ev, err := dev.Launch("cover", n, func(start, end int) {
		for g := start; g < end; g++ {
			hits[g].Add(1)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ev.Wait(); err != nil {
		t.Fatal(err)
	}
	for g := range hits {
		if hits[g].Load() != 1 {
			t.Errorf("group %d processed %d times, want 1", g, hits[g].Load())
		}
	}
	if ev.Name() != "cover" {
		t.Errorf("Name() = %q, want cover", ev.Name())
	}
	if ev.Elapsed() <= 0 {
		t.Errorf("Elapsed() = %v, want > 0", ev.Elapsed())
	}
}

// A launch observes everything written by earlier launches.
func TestLaunchInOrder(t *testing.T) {
	dev := NewCPU(WithWorkers(4))
	defer dev.Close()

	var stage atomic.Int32
	var seen []int32
	for i := range 10 {
		_, err := dev.Launch("step", 1, func(start, end int) {
			if i == 0 {
				time.Sleep(5 * time.Millisecond)
			}
			seen = append(seen, stage.Load())
			stage.Add(1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.Synchronize(); err != nil {
		t.Fatal(err)
	}
	for i, s := range seen {
		if s != int32(i) {
			t.Fatalf("launch %d saw stage %d", i, s)
		}
	}
	if len(seen) != 10 {
		t.Fatalf("%d launches ran, want 10", len(seen))
	}
}

func TestLaunchPanicIsDeviceError(t *testing.T) {
	dev := NewCPU(WithWorkers(2))
	defer dev.Close()

	ev, err := dev.Launch("bad", 8, func(start, end int) { panic("kernel fault") })
	if err != nil {
		t.Fatal(err)
	}
	err = ev.Wait()
	if !errors.Is(err, ErrDevice) {
		t.Fatalf("Wait() = %v, want ErrDevice", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Op != "execute" {
		t.Errorf("Wait() = %#v, want *Error with Op execute", err)
	}
	if err := dev.Synchronize(); !errors.Is(err, ErrDevice) {
		t.Errorf("Synchronize() = %v, want ErrDevice", err)
	}
	if err := dev.Synchronize(); err != nil {
		t.Errorf("second Synchronize() = %v, want nil", err)
	}

	// Later launches still run.
	ev, err = dev.Launch("good", 8, func(start, end int) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := ev.Wait(); err != nil {
		t.Errorf("Wait() after failure = %v", err)
	}
}

func TestLaunchInvalid(t *testing.T) {
	dev := NewCPU()
	defer dev.Close()

	if _, err := dev.Launch("nil", 4, nil); !errors.Is(err, ErrDevice) {
		t.Errorf("Launch(nil kernel) = %v, want ErrDevice", err)
	}
	if _, err := dev.Launch("neg", -1, func(int, int) {}); !errors.Is(err, ErrDevice) {
		t.Errorf("Launch(-1 groups) = %v, want ErrDevice", err)
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	dev := NewCPU(WithWorkers(2))

	var ran atomic.Int32
	for range 5 {
		if _, err := dev.Launch("work", 4, func(start, end int) { ran.Add(int32(end - start)) }); err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}
	if ran.Load() != 20 {
		t.Errorf("ran = %d groups before close returned, want 20", ran.Load())
	}

	_, err := dev.Launch("late", 1, func(int, int) {})
	if !errors.Is(err, ErrClosed) || !errors.Is(err, ErrDevice) {
		t.Errorf("Launch after Close = %v, want ErrClosed and ErrDevice", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestMemoryLimit(t *testing.T) {
	dev := NewCPU(WithMemoryLimit(100))
	defer dev.Close()

	if err := dev.Reserve(60); err != nil {
		t.Fatal(err)
	}
	err := dev.Reserve(60)
	if !errors.Is(err, ErrOutOfMemory) || !errors.Is(err, ErrDevice) {
		t.Fatalf("Reserve over limit = %v, want ErrOutOfMemory", err)
	}
	if dev.MemoryInUse() != 60 {
		t.Errorf("MemoryInUse() = %d, want 60", dev.MemoryInUse())
	}
	dev.Free(60)
	if err := dev.Reserve(100); err != nil {
		t.Errorf("Reserve after Free = %v", err)
	}
	if err := dev.Reserve(-1); !errors.Is(err, ErrDevice) {
		t.Errorf("Reserve(-1) = %v, want ErrDevice", err)
	}
}

func TestMemoryUnlimited(t *testing.T) {
	dev := NewCPU()
	defer dev.Close()

	if err := dev.Reserve(1 << 40); err != nil {
		t.Errorf("Reserve on unlimited device = %v", err)
	}
	dev.Free(1 << 41)
	if dev.MemoryInUse() != 0 {
		t.Errorf("MemoryInUse() = %d after over-free, want 0", dev.MemoryInUse())
	}
}
