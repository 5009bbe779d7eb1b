// Package collapse implements the stochastic collapse step of the METTS algorithm.
//
// A collapse projects two adjacent sites of a superblock state onto randomly chosen local basis states,
// and zeroes every amplitude outside the projected subspace.
// The superblock is system ⊗ site ⊗ site ⊗ environment, numbered as in basis.Grow.
//
// References:
//   - Minimally entangled typical quantum states at finite temperature, Steven R. White
package collapse

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/metts/pack"
)

var (
	// ErrPrecheck is returned when the source vector does not occupy exactly one sector.
	ErrPrecheck = errors.New("source must occupy exactly one sector")
	// ErrDegenerateProjection is returned when the collapsed vector has numerically zero norm.
	ErrDegenerateProjection = errors.New("projection has no overlap with the source")
)

// Chooser chooses the local basis state a site is projected onto.
type Chooser interface {
	ChooseRandomState(site int) int
	// HilbertSizePerSite is the number of local states of every site, and must be at least 1.
	HilbertSizePerSite() int
}

// Superblock is the sector structure of the superblock basis.
type Superblock interface {
	// LeftSize is the dimension of system ⊗ site.
	LeftSize() int
	// Partition is the offset of sector m in the superblock sector order.
	Partition(m int) int
	// Permutation maps a superblock position to its composite index left + right*LeftSize().
	Permutation(k int) int
}

// Vector is a state vector stored sector by sector.
type Vector[V any] interface {
	// Size is zero for an uninitialized vector.
	Size() int
	Sectors() int
	Sector(i int) int
	Extract(dst []complex64, m int) []complex64
	SetDataInSector(src []complex64, m int)
	CopyFrom(src V)
}

// Options are options for the collapse.
type Options struct {
	normThreshold float64
}

// NewOptions returns the default collapse options.
func NewOptions() Options {
	opt := Options{}
	opt.normThreshold = 1e-6
	return opt
}

// NormThreshold sets the squared norm below which a collapsed vector is considered zero.
func (opt Options) NormThreshold(x float64) Options {
	opt.normThreshold = x
	return opt
}

// Engine collapses vectors of type V.
// It holds the chooser and superblock without owning them, and they must outlive the Engine.
// Engine has no mutable state of its own; concurrent calls are safe if the chooser is.
type Engine[V Vector[V]] struct {
	chooser    Chooser
	superblock Superblock
	opt        Options
}

// New returns a collapse engine.
func New[V Vector[V]](chooser Chooser, superblock Superblock, options ...Options) *Engine[V] {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	return &Engine[V]{chooser: chooser, superblock: superblock, opt: opt}
}

// Collapse projects sites[0] and sites[1] of src onto freshly chosen local states, and stores the result in dst.
// dst is first initialized to a copy of src if it is empty.
// The chooser is called exactly once per site, and src is not modified unless it is dst.
// The collapsed vector is not normalized.
// The chosen local states are returned, also on error.
func (e *Engine[V]) Collapse(dst, src V, sites [2]int) ([2]int, error) {
	var states [2]int
	states[0] = e.chooser.ChooseRandomState(sites[0])
	states[1] = e.chooser.ChooseRandomState(sites[1])
	if err := e.CollapseFixed(dst, src, states); err != nil {
		return states, errors.Wrap(err, fmt.Sprintf("%v %v", sites, states))
	}
	return states, nil
}

// CollapseFixed is Collapse with the local states already chosen.
// On error, dst is left as it was after the copy of an empty dst.
func (e *Engine[V]) CollapseFixed(dst, src V, states [2]int) error {
	if dst.Size() == 0 {
		dst.CopyFrom(src)
	}
	if src.Sectors() != 1 {
		return errors.Wrap(ErrPrecheck, fmt.Sprintf("%d", src.Sectors()))
	}

	m := src.Sector(0)
	v := src.Extract(nil, m)
	w := Sector(nil, v, e.superblock, e.chooser.HilbertSizePerSite(), m, states)

	var n2 float64
	for _, c := range w {
		re, im := float64(real(c)), float64(imag(c))
		n2 += re*re + im*im
	}
	if !(n2 > e.opt.normThreshold) {
		return errors.Wrap(ErrDegenerateProjection, fmt.Sprintf("%g", n2))
	}

	dst.CopyFrom(src)
	dst.SetDataInSector(w, m)
	return nil
}

// Sector collapses the amplitudes v of sector m onto the local states of the two central sites, and returns the resized w.
// nk is the number of local states per site.
func Sector(w, v []complex64, superblock Superblock, nk, m int, states [2]int) []complex64 {
	offset := superblock.Partition(m)
	total := superblock.Partition(m+1) - offset
	if len(v) != total {
		panic(fmt.Sprintf("%d %d", len(v), total))
	}

	ns := superblock.LeftSize()
	if nk < 1 || ns%nk != 0 {
		panic(fmt.Sprintf("%d %d", ns, nk))
	}
	packSuper := pack.New(ns)
	packLeft := pack.New(ns / nk)
	packRight := pack.New(nk)

	w = w[:0]
	for i := range total {
		alpha, beta := packSuper.Unpack(superblock.Permutation(i + offset))
		_, alpha1 := packLeft.Unpack(alpha)
		beta0, _ := packRight.Unpack(beta)

		if alpha1 != states[0] || beta0 != states[1] {
			w = append(w, 0)
			continue
		}
		w = append(w, v[i])
	}
	return w
}
