package metts_test

import (
	"context"
	"fmt"
	"log"

	"github.com/rs/zerolog"

	"github.com/fumin/metts"
	"github.com/fumin/metts/collapse"
	"github.com/fumin/metts/stochastics"
	"github.com/fumin/metts/vector"
)

func Example() {
	const totalSites = 4
	lrs := metts.SpinHalfChain(totalSites)
	sites := metts.CentralSites(totalSites)

	// Two states with a single up spin, on either central site.
	super := lrs.Super()
	full := make([]complex64, super.Size())
	full[super.PermutationInverse(2)] = 1
	full[super.PermutationInverse(4)] = 2
	src := vector.FromFull(full, super)
	fmt.Printf("%.2f\n", metts.SiteProbabilities(metts.Wavefunction(src, lrs, 2)))

	chooser := stochastics.Fixed{NK: 2, States: map[int]int{sites[0]: 0, sites[1]: 1}}
	engine := collapse.New[*vector.VectorWithOffsets](chooser, lrs)
	sampler := metts.NewSampler(engine, sites, zerolog.Nop(), metts.NewSamplerOptions().Normalize(true))
	dst := &vector.VectorWithOffsets{}
	smp, err := sampler.Step(context.Background(), dst, src)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Println(smp.States, smp.Norm2)
	fmt.Printf("%.2f\n", metts.SiteProbabilities(metts.Wavefunction(dst, lrs, 2)))

	// Output:
	// [0.00 0.20 0.80 0.00]
	// [0 1] 4
	// [0.00 0.00 1.00 0.00]
}
