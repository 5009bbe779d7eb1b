package vector

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/fumin/metts/basis"
)

func TestFromFull(t *testing.T) {
	t.Parallel()
	// Sectors are [0, 2), [2, 4), [4, 5).
	b := basis.New([]int{1, 0, 1, 2, 0})
	tests := []struct {
		full    []complex64
		sectors []int
	}{
		{full: []complex64{1, 2, 0, 0, 0}, sectors: []int{0}},
		{full: []complex64{0, 0, 1i, 0, 3}, sectors: []int{1, 2}},
		{full: []complex64{0, 0, 0, 0, 0}, sectors: []int{}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%v", test.full), func(t *testing.T) {
			t.Parallel()
			v := FromFull(test.full, b)
			if v.Size() != 5 {
				t.Fatalf("%d", v.Size())
			}
			sectors := make([]int, 0)
			for i := range v.Sectors() {
				sectors = append(sectors, v.Sector(i))
			}
			if !slices.Equal(sectors, test.sectors) {
				t.Fatalf("%v, expected %v", sectors, test.sectors)
			}
			if !slices.Equal(v.Full(), test.full) {
				t.Fatalf("%v, expected %v", v.Full(), test.full)
			}
		})
	}
}

func TestExtractSetDataInSector(t *testing.T) {
	t.Parallel()
	b := basis.New([]int{1, 0, 1, 2, 0})
	v := New(b)
	v.SetDataInSector([]complex64{7}, 2)
	v.SetDataInSector([]complex64{1, 2}, 0)
	if v.Sectors() != 2 || v.Sector(0) != 0 || v.Sector(1) != 2 {
		t.Fatalf("%v", v)
	}

	dst := make([]complex64, 5)
	dst = v.Extract(dst, 0)
	if !slices.Equal(dst, []complex64{1, 2}) {
		t.Fatalf("%v", dst)
	}

	// Extract copies, so that modifying it leaves the vector intact.
	dst[0] = 100
	if got := v.Extract(nil, 0); !slices.Equal(got, []complex64{1, 2}) {
		t.Fatalf("%v", got)
	}

	v.SetDataInSector([]complex64{3, 4}, 0)
	expected := []complex64{3, 4, 0, 0, 7}
	if !slices.Equal(v.Full(), expected) {
		t.Fatalf("%v, expected %v", v.Full(), expected)
	}
}

func TestSetDataInSectorWrongLength(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	v := New(basis.New([]int{0, 0, 1}))
	v.SetDataInSector([]complex64{1}, 0)
}

func TestCopyFrom(t *testing.T) {
	t.Parallel()
	b := basis.New([]int{0, 1, 1})
	src := FromFull([]complex64{0, 1, 2}, b)

	var dst VectorWithOffsets
	if dst.Size() != 0 {
		t.Fatalf("%d", dst.Size())
	}
	dst.CopyFrom(src)
	if !dst.SameLayout(src) {
		t.Fatalf("%v %v", &dst, src)
	}

	// A deep copy does not share amplitudes.
	dst.SetDataInSector([]complex64{5, 6}, 1)
	if !slices.Equal(src.Full(), []complex64{0, 1, 2}) {
		t.Fatalf("%v", src)
	}
	if !slices.Equal(src.Clone().Full(), src.Full()) {
		t.Fatalf("%v", src.Clone())
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	b := basis.New([]int{0, 0, 1})
	v := FromFull([]complex64{3, 0, 4i}, b)
	if v.Norm2() != 25 {
		t.Fatalf("%f", v.Norm2())
	}
	if norm := v.Normalize(); norm != 5 {
		t.Fatalf("%f", norm)
	}
	if math.Abs(v.Norm2()-1) > 1e-6 {
		t.Fatalf("%f", v.Norm2())
	}
}

func TestMarshalBinary(t *testing.T) {
	t.Parallel()
	b := basis.New([]int{1, 0, 1, 2, 0})
	tests := []*VectorWithOffsets{
		FromFull([]complex64{1 + 2i, -3, 0, 0, 0.5i}, b),
		FromSector([]complex64{0, 1}, 1, b),
		{},
	}
	for _, v := range tests {
		t.Run(fmt.Sprintf("%v", v), func(t *testing.T) {
			t.Parallel()
			bs, err := v.MarshalBinary()
			if err != nil {
				t.Fatalf("%+v", err)
			}
			var w VectorWithOffsets
			if err := w.UnmarshalBinary(bs); err != nil {
				t.Fatalf("%+v", err)
			}
			if !w.SameLayout(v) {
				t.Fatalf("%v, expected %v", &w, v)
			}
			if !slices.Equal(w.Full(), v.Full()) {
				t.Fatalf("%v, expected %v", w.Full(), v.Full())
			}
		})
	}
}

func TestUnmarshalBinaryCorrupt(t *testing.T) {
	t.Parallel()
	var v VectorWithOffsets
	if err := v.UnmarshalBinary([]byte{0xc1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUnmarshalBinaryInvalidLayout(t *testing.T) {
	t.Parallel()
	tests := []encoded{
		// Repeated sector.
		{Size: 2, Offsets: []int{0, 1, 2}, Sectors: []int{0, 0}, Re: [][]float32{{1}, {2}}, Im: [][]float32{{0}, {0}}},
		// Decreasing sectors.
		{Size: 2, Offsets: []int{0, 1, 2}, Sectors: []int{1, 0}, Re: [][]float32{{1}, {2}}, Im: [][]float32{{0}, {0}}},
		// Decreasing offsets.
		{Size: 3, Offsets: []int{0, 2, 1, 3}, Sectors: []int{2}, Re: [][]float32{{1, 2}}, Im: [][]float32{{0, 0}}},
		// Offsets not starting at zero.
		{Size: 2, Offsets: []int{1, 2}, Sectors: []int{0}, Re: [][]float32{{1}}, Im: [][]float32{{0}}},
		// Sector out of range.
		{Size: 2, Offsets: []int{0, 1, 2}, Sectors: []int{2}, Re: [][]float32{{1}}, Im: [][]float32{{0}}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v", test), func(t *testing.T) {
			t.Parallel()
			b, err := msgpack.Marshal(&test)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			var v VectorWithOffsets
			if err := v.UnmarshalBinary(b); err == nil {
				t.Fatalf("%v, expected error", &v)
			}
		})
	}
}
