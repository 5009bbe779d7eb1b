package collapse_test

import (
	"fmt"
	"log"

	"github.com/fumin/metts/basis"
	"github.com/fumin/metts/collapse"
	"github.com/fumin/metts/stochastics"
	"github.com/fumin/metts/vector"
)

func Example() {
	// A chain of four spin-1/2 sites, with quantum number the number of up spins.
	spin := basis.New([]int{0, 1})
	lrs := basis.Grow(spin, spin, spin)

	// A state with two up spins.
	m, _ := lrs.Super().FindSector(2)
	src := vector.FromSector([]complex64{1, 2, 3, 4, 5, 6}, m, lrs.Super())

	// Project the second site up and the third site down.
	chooser := stochastics.Fixed{NK: 2, States: map[int]int{1: 1, 2: 0}}
	engine := collapse.New[*vector.VectorWithOffsets](chooser, lrs)
	dst := &vector.VectorWithOffsets{}
	if _, err := engine.Collapse(dst, src, [2]int{1, 2}); err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Println(dst.Extract(nil, m))
	fmt.Printf("%.0f\n", dst.Norm2())

	// Output:
	// [(1+0i) (0+0i) (0+0i) (0+0i) (5+0i) (0+0i)]
	// 26
}
