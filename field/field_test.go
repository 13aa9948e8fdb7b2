package field

import (
	"errors"
	"math/cmplx"
	"slices"
	"testing"

	"github.com/ajroetker/go-dslash/device"
	"github.com/ajroetker/go-dslash/lattice"
)

func newTestDevice(t testing.TB, opts ...device.Option) *device.CPU {
	t.Helper()
	dev := device.NewCPU(opts...)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func mustLayout(t testing.TB, g lattice.Geometry, vlen int) lattice.Layout {
	t.Helper()
	l, err := lattice.NewLayout(g, vlen)
	if err != nil {
		t.Fatalf("NewLayout(%v, %d): %v", g, vlen, err)
	}
	return l
}

// siteValue is a distinct value per (site, component) used to fill fields.
func siteValue(c lattice.Coord, a, b, k int) complex128 {
	idx := float64(c[0] + 10*c[1] + 100*c[2] + 1000*c[3])
	return complex(idx+0.125*float64(a), float64(b)+0.5*float64(k))
}

func TestSpinorAccountsMemory(t *testing.T) {
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 4)
	dev := newTestDevice(t)

	s, err := NewSpinor[float64](dev, l, lattice.Even)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(l.Geometry().CBVolume() * SpinorReals * 8)
	if dev.MemoryInUse() != want {
		t.Errorf("MemoryInUse() = %d, want %d", dev.MemoryInUse(), want)
	}
	s.Release()
	s.Release()
	if dev.MemoryInUse() != 0 {
		t.Errorf("MemoryInUse() after Release = %d, want 0", dev.MemoryInUse())
	}
	if !s.Released() {
		t.Error("Released() = false after Release")
	}
	if _, err := s.Clone(); !errors.Is(err, ErrReleased) {
		t.Errorf("Clone() after Release = %v, want ErrReleased", err)
	}
	if err := s.Zero(); !errors.Is(err, ErrReleased) {
		t.Errorf("Zero() after Release = %v, want ErrReleased", err)
	}
}

func TestSpinorOutOfMemory(t *testing.T) {
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 1)
	dev := newTestDevice(t, device.WithMemoryLimit(1000))

	_, err := NewSpinor[float32](dev, l, lattice.Odd)
	if !errors.Is(err, device.ErrOutOfMemory) || !errors.Is(err, device.ErrDevice) {
		t.Fatalf("NewSpinor over budget = %v, want ErrOutOfMemory", err)
	}
	if dev.MemoryInUse() != 0 {
		t.Errorf("MemoryInUse() = %d after failed alloc", dev.MemoryInUse())
	}
}

func TestSpinorAccess(t *testing.T) {
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 8)
	dev := newTestDevice(t)
	s, err := NewSpinor[float64](dev, l, lattice.Odd)
	if err != nil {
		t.Fatal(err)
	}

	for g := range l.NumGroups() {
		for lane := range l.Lanes() {
			c := l.SiteOf(lattice.Odd, g, lane)
			for sp := range NumSpins {
				for col := range NumColors {
					s.Set(g, lane, sp, col, siteValue(c, sp, col, 0))
				}
			}
		}
	}
	for g := range l.NumGroups() {
		for lane := range l.Lanes() {
			c := l.SiteOf(lattice.Odd, g, lane)
			for sp := range NumSpins {
				for col := range NumColors {
					if got, want := s.Get(g, lane, sp, col), siteValue(c, sp, col, 0); got != want {
						t.Fatalf("Get(%d,%d,%d,%d) = %v, want %v", g, lane, sp, col, got, want)
					}
				}
			}
		}
	}

	// Group exposes the lane-contiguous component vectors.
	grp := s.Group(3)
	v := l.Lanes()
	want := s.Get(3, 5, 2, 1)
	off := ((2*NumColors + 1) * 2) * v
	if got := complex(grp[off+5], grp[off+v+5]); got != want {
		t.Errorf("Group(3) component (2,1) lane 5 = %v, want %v", got, want)
	}
}

func TestSpinorCloneAndCopy(t *testing.T) {
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 2)
	dev := newTestDevice(t)
	s, err := NewSpinor[float32](dev, l, lattice.Even)
	if err != nil {
		t.Fatal(err)
	}
	s.Set(1, 1, 3, 2, complex(1.5, -2))

	c, err := s.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if c.Aliases(s) || s.Aliases(c) {
		t.Error("clone aliases its source")
	}
	if !s.Aliases(s) {
		t.Error("Aliases(self) = false")
	}
	c.Set(1, 1, 3, 2, 0)
	if s.Get(1, 1, 3, 2) != complex(1.5, -2) {
		t.Error("writing the clone changed the source")
	}

	if err := c.CopyFrom(s); err != nil {
		t.Fatal(err)
	}
	if c.Get(1, 1, 3, 2) != complex(1.5, -2) {
		t.Errorf("CopyFrom: got %v", c.Get(1, 1, 3, 2))
	}

	odd, err := NewSpinor[float32](dev, l, lattice.Odd)
	if err != nil {
		t.Fatal(err)
	}
	if err := odd.CopyFrom(s); !errors.Is(err, lattice.ErrGeometryMismatch) {
		t.Errorf("CopyFrom across checkerboards = %v, want ErrGeometryMismatch", err)
	}
}

func TestNewSpinorInvalidCheckerboard(t *testing.T) {
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 1)
	if _, err := NewSpinor[float64](newTestDevice(t), l, lattice.Checkerboard(2)); !errors.Is(err, lattice.ErrConfiguration) {
		t.Errorf("NewSpinor(cb=2) = %v, want ErrConfiguration", err)
	}
}

func fillGauge(t testing.TB, u *Gauge[float64]) {
	t.Helper()
	l := u.Layout()
	for cb := range lattice.NumCheckerboards {
		for g := range l.NumGroups() {
			for lane := range l.Lanes() {
				c := l.SiteOf(lattice.Checkerboard(cb), g, lane)
				for mu := range lattice.NumDims {
					for row := range NumColors {
						for col := range NumColors {
							u.SetLink(lattice.Checkerboard(cb), g, lane, mu, row, col, siteValue(c, mu, row, col))
						}
					}
				}
			}
		}
	}
}

func TestBuildDoubleCopy(t *testing.T) {
	for _, vlen := range []int{1, 2, 8} {
		l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, vlen)
		geom := l.Geometry()
		dev := newTestDevice(t)
		u, err := NewGauge[float64](dev, l)
		if err != nil {
			t.Fatal(err)
		}
		fillGauge(t, u)
		table := lattice.Resolve(l)

		for _, cb := range []lattice.Checkerboard{lattice.Even, lattice.Odd} {
			dc, err := BuildDoubleCopy(dev, u, table, cb)
			if err != nil {
				t.Fatal(err)
			}
			if dc.Checkerboard() != cb || dc.Layout() != l {
				t.Fatalf("double copy built for %v/%v", dc.Layout(), dc.Checkerboard())
			}
			for g := range l.NumGroups() {
				for lane := range l.Lanes() {
					c := l.SiteOf(cb, g, lane)
					for mu := range lattice.NumDims {
						back, _ := geom.Neighbor(c, lattice.Backward(mu))
						for row := range NumColors {
							for col := range NumColors {
								if got, want := dc.Link(g, lane, lattice.Forward(mu), row, col), siteValue(c, mu, row, col); got != want {
									t.Fatalf("V=%d %v site %v: forward link[%d][%d] = %v, want %v", vlen, lattice.Forward(mu), c, row, col, got, want)
								}
								want := cmplx.Conj(siteValue(back, mu, col, row))
								if got := dc.Link(g, lane, lattice.Backward(mu), row, col); got != want {
									t.Fatalf("V=%d %v site %v: backward link[%d][%d] = %v, want %v", vlen, lattice.Backward(mu), c, row, col, got, want)
								}
							}
						}
					}
				}
			}
		}
	}
}

func TestBuildDoubleCopyIdempotent(t *testing.T) {
	dev := newTestDevice(t)
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 8}, 8)
	u, err := NewGauge[float64](dev, l)
	if err != nil {
		t.Fatal(err)
	}
	fillGauge(t, u)
	a, err := BuildDoubleCopy(dev, u, lattice.Resolve(l), lattice.Even)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildDoubleCopy(dev, u, lattice.Resolve(l), lattice.Even)
	if err != nil {
		t.Fatal(err)
	}
	for g := range l.NumGroups() {
		if !slices.Equal(a.Group(g), b.Group(g)) {
			t.Fatalf("group %d differs between builds", g)
		}
	}
	if a.buf.aliases(&b.buf) {
		t.Error("two builds share storage")
	}
}

func TestBuildDoubleCopyErrors(t *testing.T) {
	dev := newTestDevice(t)
	l := mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 2)
	u, err := NewGauge[float32](dev, l)
	if err != nil {
		t.Fatal(err)
	}

	other := lattice.Resolve(mustLayout(t, lattice.Geometry{4, 4, 4, 4}, 4))
	if _, err := BuildDoubleCopy(dev, u, other, lattice.Even); !errors.Is(err, lattice.ErrGeometryMismatch) {
		t.Errorf("BuildDoubleCopy with foreign table = %v, want ErrGeometryMismatch", err)
	}

	u.Release()
	if _, err := BuildDoubleCopy(dev, u, lattice.Resolve(l), lattice.Even); !errors.Is(err, ErrReleased) {
		t.Errorf("BuildDoubleCopy from released gauge = %v, want ErrReleased", err)
	}
}

func BenchmarkBuildDoubleCopy(b *testing.B) {
	dev := newTestDevice(b)
	l := mustLayout(b, lattice.Geometry{8, 8, 8, 8}, 8)
	u, err := NewGauge[float64](dev, l)
	if err != nil {
		b.Fatal(err)
	}
	table := lattice.Resolve(l)
	for b.Loop() {
		dc, err := BuildDoubleCopy(dev, u, table, lattice.Odd)
		if err != nil {
			b.Fatal(err)
		}
		dc.Release()
	}
}
