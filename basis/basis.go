// Package basis implements bases of states labelled by a conserved quantum number.
//
// States of a basis are grouped into sectors of equal quantum number.
// A sector m occupies the half-open range [Partition(m), Partition(m+1)) of the sector ordering,
// and Permutation maps a position in the sector ordering back to the basis ordering.
package basis

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	"github.com/fumin/metts/pack"
)

// Basis is an ordered set of states with quantum numbers.
type Basis struct {
	// qns are the quantum numbers in basis order.
	qns []int
	// permutation maps the sector order to the basis order.
	permutation []int
	inverse     []int
	// partition has length NumSectors()+1.
	partition []int
}

// New returns the basis whose i-th state has quantum number qns[i].
func New(qns []int) *Basis {
	b := &Basis{qns: slices.Clone(qns)}

	b.permutation = make([]int, len(qns))
	for i := range b.permutation {
		b.permutation[i] = i
	}
	slices.SortStableFunc(b.permutation, func(x, y int) int {
		return cmp.Compare(qns[x], qns[y])
	})

	b.inverse = make([]int, len(qns))
	for k, i := range b.permutation {
		b.inverse[i] = k
	}

	b.partition = make([]int, 0)
	for k, i := range b.permutation {
		if k == 0 || qns[i] != qns[b.permutation[k-1]] {
			b.partition = append(b.partition, k)
		}
	}
	b.partition = append(b.partition, len(qns))

	return b
}

func (b *Basis) Size() int { return len(b.qns) }

func (b *Basis) NumSectors() int { return len(b.partition) - 1 }

// Partition returns the offset of sector m in the sector order, for m in [0, NumSectors()].
func (b *Basis) Partition(m int) int { return b.partition[m] }

// Permutation returns the basis index of the k-th state in the sector order.
func (b *Basis) Permutation(k int) int { return b.permutation[k] }

// PermutationInverse returns the position of basis state i in the sector order.
func (b *Basis) PermutationInverse(i int) int { return b.inverse[i] }

func (b *Basis) QN(i int) int { return b.qns[i] }

// SectorQN returns the quantum number shared by the states of sector m.
func (b *Basis) SectorQN(m int) int {
	return b.qns[b.permutation[b.partition[m]]]
}

// FindSector returns the sector of quantum number qn.
func (b *Basis) FindSector(qn int) (int, bool) {
	m := sort.Search(b.NumSectors(), func(m int) bool { return b.SectorQN(m) >= qn })
	if m < b.NumSectors() && b.SectorQN(m) == qn {
		return m, true
	}
	return -1, false
}

// SectorOf returns the sector containing position k of the sector order.
func (b *Basis) SectorOf(k int) int {
	if k < 0 || k >= b.Size() {
		panic(fmt.Sprintf("%d %d", k, b.Size()))
	}
	// The first offset strictly greater than k closes the sector of k.
	m, _ := slices.BinarySearch(b.partition, k+1)
	return m - 1
}

// Kron returns the basis of the composite a ⊗ b.
// The composite state (ia, ib) has index ia + ib*a.Size() and quantum number a.QN(ia)+b.QN(ib).
func Kron(a, b *Basis) *Basis {
	if a.Size() == 0 || b.Size() == 0 {
		panic(fmt.Sprintf("%d %d", a.Size(), b.Size()))
	}
	p := pack.New(a.Size())
	qns := make([]int, a.Size()*b.Size())
	for i := range qns {
		ia, ib := p.Unpack(i)
		qns[i] = a.QN(ia) + b.QN(ib)
	}
	return New(qns)
}

// LeftRightSuper is the superblock left ⊗ right together with its two halves.
type LeftRightSuper struct {
	left  *Basis
	right *Basis
	super *Basis
}

// NewLeftRightSuper returns the superblock of left and right.
func NewLeftRightSuper(left, right *Basis) *LeftRightSuper {
	return &LeftRightSuper{left: left, right: right, super: Kron(left, right)}
}

// Grow builds the superblock system ⊗ site ⊗ site ⊗ environment.
// The left block is system ⊗ site, and the right block is site ⊗ environment.
func Grow(system, site, environment *Basis) *LeftRightSuper {
	return NewLeftRightSuper(Kron(system, site), Kron(site, environment))
}

func (lrs *LeftRightSuper) Left() *Basis  { return lrs.left }
func (lrs *LeftRightSuper) Right() *Basis { return lrs.right }
func (lrs *LeftRightSuper) Super() *Basis { return lrs.super }

func (lrs *LeftRightSuper) LeftSize() int { return lrs.left.Size() }

// Partition returns the offset of sector m of the superblock.
func (lrs *LeftRightSuper) Partition(m int) int { return lrs.super.Partition(m) }

// Permutation maps a superblock position in sector order to the composite index left + right*LeftSize().
func (lrs *LeftRightSuper) Permutation(k int) int { return lrs.super.Permutation(k) }

func (lrs *LeftRightSuper) Size() int { return lrs.super.Size() }

// NumSectors returns the number of superblock sectors.
func (lrs *LeftRightSuper) NumSectors() int { return lrs.super.NumSectors() }
