package stochastics

import (
	"fmt"
	"slices"
	"testing"
)

func TestChooseRandomStateReproducible(t *testing.T) {
	t.Parallel()
	tests := []struct {
		nk   int
		seed uint64
	}{
		{nk: 2, seed: 1},
		{nk: 3, seed: 42},
		{nk: 4, seed: 7},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v", test), func(t *testing.T) {
			t.Parallel()
			draw := func() []int {
				s := New(test.nk, test.seed)
				states := make([]int, 0)
				for i := range 64 {
					states = append(states, s.ChooseRandomState(i%5))
				}
				return states
			}
			a, b := draw(), draw()
			if !slices.Equal(a, b) {
				t.Fatalf("%v %v", a, b)
			}
			for _, s := range a {
				if s < 0 || s >= test.nk {
					t.Fatalf("%d out of [0, %d)", s, test.nk)
				}
			}
		})
	}
}

func TestChooseRandomStateCoversAllStates(t *testing.T) {
	t.Parallel()
	s := New(3, 11)
	seen := make(map[int]int)
	for range 3000 {
		seen[s.ChooseRandomState(0)]++
	}
	for k := range 3 {
		// Each state has probability 1/3, so 3000 draws give about 1000.
		if seen[k] < 800 || seen[k] > 1200 {
			t.Fatalf("%v", seen)
		}
	}
}

func TestWeights(t *testing.T) {
	t.Parallel()
	s := New(2, 5, NewOptions().Weights([]float64{0, 1}))
	for range 100 {
		if st := s.ChooseRandomState(3); st != 1 {
			t.Fatalf("%d", st)
		}
	}
	if s.HilbertSizePerSite() != 2 || s.Seed() != 5 {
		t.Fatalf("%d %d", s.HilbertSizePerSite(), s.Seed())
	}
}

func TestNewInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		nk      int
		weights []float64
	}{
		{nk: 0},
		{nk: 2, weights: []float64{1}},
		{nk: 2, weights: []float64{-1, 2}},
		{nk: 2, weights: []float64{0, 0}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v", test), func(t *testing.T) {
			t.Parallel()
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("expected panic")
				}
			}()
			New(test.nk, 1, NewOptions().Weights(test.weights))
		})
	}
}

func TestFixed(t *testing.T) {
	t.Parallel()
	f := Fixed{NK: 2, States: map[int]int{3: 1, 4: 0}}
	if f.ChooseRandomState(3) != 1 || f.ChooseRandomState(4) != 0 {
		t.Fatalf("%#v", f)
	}
}
