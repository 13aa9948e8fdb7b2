package hwy

import "testing"

func TestTableLookupLanes(t *testing.T) {
	tbl := View([]float32{10, 11, 12, 13}, 4)

	tests := []struct {
		name string
		idx  []int32
		want []float32
	}{
		{"identity", []int32{0, 1, 2, 3}, []float32{10, 11, 12, 13}},
		{"reverse", []int32{3, 2, 1, 0}, []float32{13, 12, 11, 10}},
		{"rotate", []int32{1, 2, 3, 0}, []float32{11, 12, 13, 10}},
		{"swap halves", []int32{2, 3, 0, 1}, []float32{12, 13, 10, 11}},
		{"out of range", []int32{0, -1, 4, 2}, []float32{10, 0, 0, 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := View(make([]float32, 4), 4)
			TableLookupLanes(dst, tbl, tt.idx)
			for i, want := range tt.want {
				if dst.Lane(i) != want {
					t.Errorf("TableLookupLanes: lane %d: got %v, want %v", i, dst.Lane(i), want)
				}
			}
		})
	}
}

func TestIndices(t *testing.T) {
	iota := IndicesIota(4)
	if !IsIdentity(iota) {
		t.Errorf("IsIdentity(%v) = false, want true", iota)
	}

	rot := IndicesFromFunc(4, func(lane int) int { return (lane + 1) % 4 })
	want := []int32{1, 2, 3, 0}
	for i := range want {
		if rot[i] != want[i] {
			t.Errorf("IndicesFromFunc: lane %d: got %d, want %d", i, rot[i], want[i])
		}
	}
	if IsIdentity(rot) {
		t.Errorf("IsIdentity(%v) = true, want false", rot)
	}
}
