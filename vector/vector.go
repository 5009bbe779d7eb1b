// Package vector implements state vectors that are sparse over the sectors of a basis.
package vector

import (
	"fmt"
	"math"
	"slices"
)

// Partition is the sector layout of a basis.
type Partition interface {
	Size() int
	NumSectors() int
	Partition(m int) int
}

// VectorWithOffsets is a vector over a basis in sector order, storing only its occupied sectors.
// The zero value is an uninitialized vector of size zero.
type VectorWithOffsets struct {
	size int
	// offsets are the sector boundaries, of length number of sectors + 1.
	offsets []int
	// sectors are the occupied sectors in ascending order.
	sectors []int
	// data[m] holds the amplitudes of sector m, and is nil if m is unoccupied.
	data [][]complex64
}

// New returns a vector with the layout of p and no occupied sectors.
func New(p Partition) *VectorWithOffsets {
	v := &VectorWithOffsets{size: p.Size()}
	v.offsets = make([]int, p.NumSectors()+1)
	for m := range v.offsets {
		v.offsets[m] = p.Partition(m)
	}
	if v.offsets[len(v.offsets)-1] != v.size {
		panic(fmt.Sprintf("%v %d", v.offsets, v.size))
	}
	v.data = make([][]complex64, p.NumSectors())
	return v
}

// FromFull returns the vector whose amplitudes in sector order are full.
// Every sector with a non-zero amplitude is occupied.
func FromFull(full []complex64, p Partition) *VectorWithOffsets {
	v := New(p)
	if len(full) != v.size {
		panic(fmt.Sprintf("%d %d", len(full), v.size))
	}
	for m := range len(v.data) {
		s := full[v.offsets[m]:v.offsets[m+1]]
		if slices.ContainsFunc(s, func(c complex64) bool { return c != 0 }) {
			v.SetDataInSector(s, m)
		}
	}
	return v
}

// FromSector returns the vector occupying only sector m with amplitudes data.
func FromSector(data []complex64, m int, p Partition) *VectorWithOffsets {
	v := New(p)
	v.SetDataInSector(data, m)
	return v
}

func (v *VectorWithOffsets) Size() int { return v.size }

func (v *VectorWithOffsets) Sectors() int { return len(v.sectors) }

// Sector returns the sector index of the i-th occupied sector.
func (v *VectorWithOffsets) Sector(i int) int { return v.sectors[i] }

// NumSectors returns the number of sectors of the layout, occupied or not.
func (v *VectorWithOffsets) NumSectors() int { return len(v.data) }

func (v *VectorWithOffsets) Offset(m int) int { return v.offsets[m] }

func (v *VectorWithOffsets) SectorSize(m int) int { return v.offsets[m+1] - v.offsets[m] }

// Extract copies the amplitudes of the occupied sector m into dst, and returns the resized dst.
func (v *VectorWithOffsets) Extract(dst []complex64, m int) []complex64 {
	if v.data[m] == nil {
		panic(fmt.Sprintf("%d %v", m, v.sectors))
	}
	dst = slices.Grow(dst[:0], len(v.data[m]))
	return append(dst, v.data[m]...)
}

// SetDataInSector replaces the amplitudes of sector m with src, occupying m if necessary.
func (v *VectorWithOffsets) SetDataInSector(src []complex64, m int) {
	if len(src) != v.SectorSize(m) {
		panic(fmt.Sprintf("%d %d %d", m, len(src), v.SectorSize(m)))
	}
	if v.data[m] == nil {
		v.data[m] = make([]complex64, len(src))
		i, _ := slices.BinarySearch(v.sectors, m)
		v.sectors = slices.Insert(v.sectors, i, m)
	}
	copy(v.data[m], src)
}

func (v *VectorWithOffsets) CopyFrom(src *VectorWithOffsets) {
	if v == src {
		return
	}
	v.size = src.size
	v.offsets = slices.Clone(src.offsets)
	v.sectors = slices.Clone(src.sectors)
	v.data = make([][]complex64, len(src.data))
	for m, d := range src.data {
		if d != nil {
			v.data[m] = slices.Clone(d)
		}
	}
}

func (v *VectorWithOffsets) Clone() *VectorWithOffsets {
	c := &VectorWithOffsets{}
	c.CopyFrom(v)
	return c
}

func (v *VectorWithOffsets) Norm2() float64 {
	var n2 float64
	for _, m := range v.sectors {
		n2 += Norm2(v.data[m])
	}
	return n2
}

// Normalize scales v to unit norm, and returns the norm before scaling.
func (v *VectorWithOffsets) Normalize() float64 {
	norm := math.Sqrt(v.Norm2())
	if norm == 0 {
		return 0
	}
	s := complex(float32(1/norm), 0)
	for _, m := range v.sectors {
		for i := range v.data[m] {
			v.data[m][i] *= s
		}
	}
	return norm
}

// Full returns all amplitudes of v in sector order, with zeros in unoccupied sectors.
func (v *VectorWithOffsets) Full() []complex64 {
	full := make([]complex64, v.size)
	for _, m := range v.sectors {
		copy(full[v.offsets[m]:], v.data[m])
	}
	return full
}

// SameLayout reports whether v and w have the same size, sector boundaries and occupied sectors.
func (v *VectorWithOffsets) SameLayout(w *VectorWithOffsets) bool {
	return v.size == w.size && slices.Equal(v.offsets, w.offsets) && slices.Equal(v.sectors, w.sectors)
}

func (v *VectorWithOffsets) String() string {
	return fmt.Sprintf("size=%d sectors=%v %v", v.size, v.sectors, v.Full())
}

// Norm2 returns the squared norm of the amplitudes x.
func Norm2(x []complex64) float64 {
	var n2 float64
	for _, c := range x {
		re, im := float64(real(c)), float64(imag(c))
		n2 += re*re + im*im
	}
	return n2
}
