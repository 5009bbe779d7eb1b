// Package stochastics provides the random choices of local basis states needed by METTS.
package stochastics

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options are options for the random chooser.
type Options struct {
	weights []float64
}

// NewOptions returns the default options, which choose local states uniformly.
func NewOptions() Options {
	return Options{}
}

// Weights sets the relative probabilities of the local states.
func (opt Options) Weights(w []float64) Options {
	opt.weights = w
	return opt
}

// Stochastics chooses local basis states at random, reproducibly given its seed.
// It is not safe for concurrent use; give each sampling goroutine its own Stochastics.
type Stochastics struct {
	nk   int
	seed uint64
	src  rand.Source
	dist distuv.Categorical
}

// New returns a chooser over nk local states per site.
func New(nk int, seed uint64, options ...Options) *Stochastics {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if nk < 1 {
		panic(fmt.Sprintf("%d", nk))
	}

	w := opt.weights
	if w == nil {
		w = make([]float64, nk)
		for i := range w {
			w[i] = 1
		}
	}
	if len(w) != nk || floats.Min(w) < 0 || floats.Sum(w) <= 0 {
		panic(fmt.Sprintf("%d %v", nk, w))
	}

	s := &Stochastics{nk: nk, seed: seed}
	s.src = rand.NewSource(seed)
	s.dist = distuv.NewCategorical(w, s.src)
	return s
}

// ChooseRandomState returns a local state of site in [0, HilbertSizePerSite()).
func (s *Stochastics) ChooseRandomState(site int) int {
	return int(s.dist.Rand())
}

// HilbertSizePerSite returns the number of local states of every site.
func (s *Stochastics) HilbertSizePerSite() int { return s.nk }

func (s *Stochastics) Seed() uint64 { return s.seed }

// Fixed is a chooser that always returns the same state for a site.
// It is used to replay or force a projection.
type Fixed struct {
	NK     int
	States map[int]int
}

// ChooseRandomState returns the forced state of site.
func (f Fixed) ChooseRandomState(site int) int {
	s, ok := f.States[site]
	if !ok {
		panic(fmt.Sprintf("%d %v", site, f.States))
	}
	return s
}

// HilbertSizePerSite returns the number of local states of every site.
func (f Fixed) HilbertSizePerSite() int { return f.NK }
