// Package metts samples minimally entangled typical thermal states by repeatedly collapsing the central sites of a superblock.
package metts

import (
	"context"
	"fmt"
	"os"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/fumin/metts/basis"
	"github.com/fumin/metts/collapse"
	"github.com/fumin/metts/pack"
	"github.com/fumin/metts/params"
	"github.com/fumin/metts/store"
	"github.com/fumin/metts/vector"
)

// Engine is the collapse engine over sector vectors.
type Engine = collapse.Engine[*vector.VectorWithOffsets]

// SamplerOptions are options for the sampler.
type SamplerOptions struct {
	maxRetries int
	normalize  bool
}

func NewSamplerOptions() SamplerOptions {
	opt := SamplerOptions{}
	opt.maxRetries = 8
	return opt
}

// MaxRetries sets how many degenerate projections are redrawn before giving up.
func (opt SamplerOptions) MaxRetries(n int) SamplerOptions {
	opt.maxRetries = n
	return opt
}

// Normalize sets whether collapsed vectors are scaled to unit norm.
func (opt SamplerOptions) Normalize(b bool) SamplerOptions {
	opt.normalize = b
	return opt
}

// Sampler draws collapses of a fixed pair of sites.
// A Sampler is as safe for concurrent use as its engine's chooser.
type Sampler struct {
	engine *Engine
	sites  [2]int
	logger zerolog.Logger
	opt    SamplerOptions
}

// NewSampler returns a sampler collapsing sites with engine.
func NewSampler(engine *Engine, sites [2]int, logger zerolog.Logger, options ...SamplerOptions) *Sampler {
	opt := NewSamplerOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	return &Sampler{engine: engine, sites: sites, logger: logger, opt: opt}
}

// Step collapses src into dst.
// A degenerate projection is redrawn at most MaxRetries times, other errors are returned immediately.
func (s *Sampler) Step(ctx context.Context, dst, src *vector.VectorWithOffsets) (store.Sample, error) {
	smp := store.Sample{Sites: s.sites}
	for {
		if err := ctx.Err(); err != nil {
			return smp, errors.Wrap(err, "")
		}

		var err error
		smp.States, err = s.engine.Collapse(dst, src, s.sites)
		if err == nil {
			break
		}
		if !errors.Is(err, collapse.ErrDegenerateProjection) || smp.Retries >= s.opt.maxRetries {
			return smp, errors.Wrap(err, fmt.Sprintf("retries %d", smp.Retries))
		}
		smp.Retries++
		s.logger.Debug().Int("site0", s.sites[0]).Int("site1", s.sites[1]).Int("state0", smp.States[0]).Int("state1", smp.States[1]).Int("retries", smp.Retries).Msg("degenerate projection")
	}

	smp.Sector = dst.Sector(0)
	smp.Norm2 = dst.Norm2()
	if s.opt.normalize {
		dst.Normalize()
	}
	return smp, nil
}

// Run draws n independent collapses of src with workers goroutines.
// newSampler returns the sampler of a worker, and each worker must get its own chooser.
// Samples and their collapsed vectors are saved to st if it is not nil.
func Run(ctx context.Context, newSampler func(worker int) *Sampler, src *vector.VectorWithOffsets, n, workers int, st *store.Store) ([]store.Sample, error) {
	if workers < 1 {
		return nil, errors.Errorf("%d", workers)
	}
	samples := make([]store.Sample, n)
	g, ctx := errgroup.WithContext(ctx)
	for w := range workers {
		sampler := newSampler(w)
		g.Go(func() error {
			dst := &vector.VectorWithOffsets{}
			for i := w; i < n; i += workers {
				smp, err := sampler.Step(ctx, dst, src)
				if err != nil {
					return errors.Wrap(err, fmt.Sprintf("sample %d", i))
				}
				smp.Index = i
				samples[i] = smp

				if st != nil {
					if err := st.PutSample(ctx, smp); err != nil {
						return errors.Wrap(err, "")
					}
					if err := st.PutCheckpoint(ctx, store.TargetLabel(i), dst); err != nil {
						return errors.Wrap(err, "")
					}
				}
				sampler.logger.Info().Int("sample", i).Int("worker", w).Int("state0", smp.States[0]).Int("state1", smp.States[1]).Float64("norm2", smp.Norm2).Msg("collapsed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// RestartLabel returns the checkpoint label, in the store of a previous run, of the state to restart from.
// It is the previous target vector SourceTvForPsi if that is non-negative,
// otherwise the previous target vector mapped to target vector 0, and the previous psi if there is no such mapping.
func RestartLabel(r params.Restart) (string, error) {
	if r.SourceTvForPsi >= 0 {
		return store.TargetLabel(r.SourceTvForPsi), nil
	}
	if len(r.MappingTvs) == 0 {
		return store.LabelPsi, nil
	}
	tv, err := r.MappingTv(0)
	if err != nil {
		return "", errors.Wrap(err, "")
	}
	if tv < 0 {
		return store.LabelPsi, nil
	}
	return store.TargetLabel(tv), nil
}

// LoadRestart loads the state to restart from out of the store of a previous run at r.Filename.
func LoadRestart(ctx context.Context, r params.Restart) (*vector.VectorWithOffsets, error) {
	label, err := RestartLabel(r)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// Opening would create a missing database.
	if _, err := os.Stat(r.Filename); err != nil {
		return nil, errors.Wrap(err, "")
	}
	prev, err := store.Open(r.Filename)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer prev.Close()
	v, err := prev.Checkpoint(ctx, label)
	if err != nil {
		return nil, errors.Wrap(err, r.Filename)
	}
	return v, nil
}

// SpinHalfChain returns the superblock of a chain of totalSites spin-1/2 sites, whose quantum number is the number of up spins.
// The system and environment blocks have totalSites/2-1 sites each, and the central sites are totalSites/2-1 and totalSites/2.
func SpinHalfChain(totalSites int) *basis.LeftRightSuper {
	if totalSites < 2 || totalSites%2 != 0 {
		panic(fmt.Sprintf("%d", totalSites))
	}
	spin := basis.New([]int{0, 1})
	block := basis.New([]int{0})
	for range totalSites/2 - 1 {
		block = basis.Kron(block, spin)
	}
	return basis.Grow(block, spin, block)
}

// CentralSites returns the two sites a superblock of totalSites sites collapses.
func CentralSites(totalSites int) [2]int {
	return [2]int{totalSites/2 - 1, totalSites / 2}
}

// RandomState returns a normalized random vector in the sector of lrs with quantum number qn.
func RandomState(lrs *basis.LeftRightSuper, qn int, seed uint64) (*vector.VectorWithOffsets, error) {
	super := lrs.Super()
	m, ok := super.FindSector(qn)
	if !ok {
		return nil, errors.Errorf("no sector with quantum number %d", qn)
	}
	rng := rand.New(rand.NewSource(seed))
	data := make([]complex64, super.Partition(m+1)-super.Partition(m))
	for i := range data {
		data[i] = complex(float32(rng.NormFloat64()), float32(rng.NormFloat64()))
	}
	v := vector.FromSector(data, m, super)
	v.Normalize()
	return v, nil
}

// Wavefunction returns the amplitudes of v as the tensor ψ(alpha0, alpha1, beta0, beta1),
// where alpha0 is the system state, alpha1 and beta0 the states of the central sites, and beta1 the environment state.
// nk is the number of local states per site.
func Wavefunction(v *vector.VectorWithOffsets, lrs *basis.LeftRightSuper, nk int) *tensor.Dense {
	ns, nr := lrs.LeftSize(), lrs.Right().Size()
	if v.Size() != lrs.Size() || ns%nk != 0 || nr%nk != 0 {
		panic(fmt.Sprintf("%d %d %d %d %d", v.Size(), lrs.Size(), ns, nr, nk))
	}
	packSuper := pack.New(ns)
	packLeft := pack.New(ns / nk)
	packRight := pack.New(nk)

	psi := tensor.Zeros(ns/nk, nk, nk, nr/nk)
	for i := range v.Sectors() {
		m := v.Sector(i)
		offset := lrs.Partition(m)
		for j, c := range v.Extract(nil, m) {
			alpha, beta := packSuper.Unpack(lrs.Permutation(offset + j))
			alpha0, alpha1 := packLeft.Unpack(alpha)
			beta0, beta1 := packRight.Unpack(beta)
			psi.SetAt([]int{alpha0, alpha1, beta0, beta1}, c)
		}
	}
	return psi
}

// SiteProbabilities returns the Born probabilities of the central sites of psi.
// The probability of local states s0 and s1 is at index s0 + s1*nk.
// All probabilities are zero if psi is.
func SiteProbabilities(psi *tensor.Dense) []float64 {
	shape := psi.Shape()
	if len(shape) != 4 || shape[1] != shape[2] {
		panic(fmt.Sprintf("%#v", shape))
	}
	nk := shape[1]
	p := make([]float64, nk*nk)
	for ijk, c := range psi.All() {
		re, im := float64(real(c)), float64(imag(c))
		p[ijk[1]+ijk[2]*nk] += re*re + im*im
	}
	if sum := floats.Sum(p); sum > 0 {
		floats.Scale(1/sum, p)
	}
	return p
}

// Statistics summarizes a set of samples.
type Statistics struct {
	Samples int
	// Frequency is the fraction of samples projected onto each pair of local states, indexed as in SiteProbabilities.
	Frequency []float64
	MeanNorm2 float64
	// StdNorm2 is the standard deviation of Norm2.
	StdNorm2 float64
	Retries  int
}

// GetStatistics returns the statistics of samples with nk local states per site.
func GetStatistics(samples []store.Sample, nk int) (Statistics, error) {
	if len(samples) == 0 {
		return Statistics{}, errors.Errorf("no samples")
	}
	stats := Statistics{Samples: len(samples), Frequency: make([]float64, nk*nk)}
	norms := make([]float64, 0, len(samples))
	for _, smp := range samples {
		s0, s1 := smp.States[0], smp.States[1]
		if s0 < 0 || s0 >= nk || s1 < 0 || s1 >= nk {
			return Statistics{}, errors.Errorf("%#v %d", smp, nk)
		}
		stats.Frequency[s0+s1*nk]++
		stats.Retries += smp.Retries
		norms = append(norms, smp.Norm2)
	}
	floats.Scale(1/float64(len(samples)), stats.Frequency)

	stats.MeanNorm2, stats.StdNorm2 = stat.PopMeanStdDev(norms, nil)
	return stats, nil
}
