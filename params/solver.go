package params

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FiniteLoop is one sweep of the finite algorithm.
type FiniteLoop struct {
	// StepLength is how many sites to move, right if positive and left if negative.
	StepLength int
	KeptStates int
	SaveOption int
}

// CheckFiniteLoops returns an error if the sweeps walk out of a lattice of totalSites sites.
func CheckFiniteLoops(loops []FiniteLoop, totalSites int) error {
	if len(loops) == 0 {
		return nil
	}

	x := totalSites/2 - 1
	if loops[0].StepLength < 0 {
		x++
	}
	prevDeltaSign := 1
	deltas := make([]int, 0, len(loops))
	for i, fl := range loops {
		delta := fl.StepLength
		x += delta
		deltas = append(deltas, delta)

		// A bounce turns around on the last site without moving.
		if i > 0 && delta*prevDeltaSign < 0 {
			x += prevDeltaSign
		}
		prevDeltaSign = 1
		if delta < 0 {
			prevDeltaSign = -1
		}

		var end string
		switch {
		case x <= 0:
			end = "left"
		case x >= totalSites-1:
			end = "right"
		default:
			continue
		}
		return errors.Errorf("falling out of the lattice on the %s end: loops %v x=%d sites=%d", end, deltas, x, totalSites)
	}
	return nil
}

// CheckPoint locates the files of a previous run to start from.
type CheckPoint struct {
	Enabled bool
	Index   int
	// Filename holds the saved blocks.
	Filename string
	// Filename2 holds time or dynamic vectors.
	Filename2 string
}

func readCheckPoint(in *Input) (CheckPoint, error) {
	var c CheckPoint
	var err error
	if c.Enabled, err = in.Bool("CheckpointEnabled"); err != nil {
		return CheckPoint{}, errors.Wrap(err, "")
	}
	if c.Index, err = in.Int("CheckpointIndex"); err != nil {
		if !errors.Is(err, ErrMissing) {
			return CheckPoint{}, errors.Wrap(err, "")
		}
		c.Index = 0
	}
	if c.Filename, err = in.Get("CheckpointFilename"); err != nil {
		return CheckPoint{}, errors.Wrap(err, "")
	}
	if c.Filename2, err = in.Get("CheckpointFilename2"); err != nil {
		return CheckPoint{}, errors.Wrap(err, "")
	}
	return c, nil
}

// Restart maps the target vectors of a previous run to this run.
type Restart struct {
	Filename       string
	LabelForEnergy string
	// SourceTvForPsi, if non-negative, is the previous target vector used as the ground state.
	SourceTvForPsi int
	// MappingTvs[i] is the previous target vector used as target vector i, which is skipped if negative.
	MappingTvs []int
}

func readRestart(in *Input) (Restart, error) {
	r := Restart{LabelForEnergy: "Energy", SourceTvForPsi: -1}
	if s, err := in.Get("RestartFilename"); err == nil {
		r.Filename = s
	}
	if s, err := in.Get("RestartLabelForEnergy"); err == nil {
		r.LabelForEnergy = s
	}
	// A malformed source is ignored.
	if v, err := in.Int("RestartSourceTvForPsi"); err == nil {
		r.SourceTvForPsi = v
	}
	if in.Has("RestartMappingTvs") {
		v, err := in.Ints("RestartMappingTvs")
		if err != nil {
			return Restart{}, errors.Wrap(err, "")
		}
		r.MappingTvs = v
	}
	return r, nil
}

// MappingTv returns the previous target vector for target vector ind.
func (r Restart) MappingTv(ind int) (int, error) {
	if len(r.MappingTvs) == 0 {
		return ind, nil
	}
	if ind < 0 || ind >= len(r.MappingTvs) {
		return 0, errors.Errorf("mapping not provided for %d %v", ind, r.MappingTvs)
	}
	return r.MappingTvs[ind], nil
}

// Metts are the parameters of the METTS sampling loop.
type Metts struct {
	Seed          uint64
	Samples       int
	NormThreshold float64
	MaxRetries    int
}

func readMetts(in *Input) (Metts, error) {
	m := Metts{Seed: 1, Samples: 1, NormThreshold: 1e-6, MaxRetries: 8}
	var err error
	if in.Has("MettsSeed") {
		if m.Seed, err = in.Uint64("MettsSeed"); err != nil {
			return Metts{}, errors.Wrap(err, "")
		}
	}
	if in.Has("MettsSamples") {
		if m.Samples, err = in.Int("MettsSamples"); err != nil {
			return Metts{}, errors.Wrap(err, "")
		}
	}
	if in.Has("MettsNormThreshold") {
		if m.NormThreshold, err = in.Float("MettsNormThreshold"); err != nil {
			return Metts{}, errors.Wrap(err, "")
		}
	}
	if in.Has("MettsMaxRetries") {
		if m.MaxRetries, err = in.Int("MettsMaxRetries"); err != nil {
			return Metts{}, errors.Wrap(err, "")
		}
	}
	if m.Samples < 0 || m.MaxRetries < 0 || m.NormThreshold < 0 {
		return Metts{}, errors.Errorf("%#v", m)
	}
	return m, nil
}

// Solver holds the parameters of the solver.
type Solver struct {
	// Filename is where observables are saved.
	Filename string
	Version  string
	// Options is a comma separated list of flags such as hasQuantumNumbers, checkpoint and hasThreads.
	Options            string
	TotalSites         int
	KeptStatesInfinite int
	FiniteLoops        []FiniteLoop
	// TargetQuantumNumbers is nil when the target is searched for.
	TargetQuantumNumbers []float64
	CheckPoint           CheckPoint
	Threads              int
	Restart              Restart
	Metts                Metts
}

// NewSolver reads the solver parameters from in.
func NewSolver(in *Input) (*Solver, error) {
	s := &Solver{Threads: 1}
	var err error
	if s.Options, err = in.Get("SolverOptions"); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if s.Version, err = in.Get("Version"); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if s.Filename, err = in.Get("OutputFile"); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if s.TotalSites, err = in.Int("TotalNumberOfSites"); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if s.KeptStatesInfinite, err = in.Int("InfiniteLoopKeptStates"); err != nil {
		return nil, errors.Wrap(err, "")
	}

	loops, err := in.Vector("FiniteLoops", 3)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	vs, err := atois("FiniteLoops", loops)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for i := 0; i < len(vs); i += 3 {
		s.FiniteLoops = append(s.FiniteLoops, FiniteLoop{StepLength: vs[i], KeptStates: vs[i+1], SaveOption: vs[i+2]})
	}
	if err := CheckFiniteLoops(s.FiniteLoops, s.TotalSites); err != nil {
		return nil, errors.Wrap(err, "")
	}

	if s.HasOption("hasQuantumNumbers") {
		if s.TargetQuantumNumbers, err = in.Floats("TargetQuantumNumbers"); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	if s.HasOption("checkpoint") {
		if s.CheckPoint, err = readCheckPoint(in); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	if s.HasOption("hasThreads") {
		if s.Threads, err = in.Int("Threads"); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if s.Threads < 1 {
			return nil, errors.Errorf("%d", s.Threads)
		}
	}
	if s.Restart, err = readRestart(in); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if s.Metts, err = readMetts(in); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

// HasOption reports whether opt occurs anywhere in Options.
func (s *Solver) HasOption(opt string) bool {
	return strings.Contains(s.Options, opt)
}

func (s *Solver) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parameters.version=%s\n", s.Version)
	fmt.Fprintf(&b, "parameters.filename=%s\n", s.Filename)
	fmt.Fprintf(&b, "parameters.options=%s\n", s.Options)
	fmt.Fprintf(&b, "parameters.keptStatesInfinite=%d\n", s.KeptStatesInfinite)
	fmt.Fprintf(&b, "finiteLoop=%v\n", s.FiniteLoops)
	switch {
	case s.HasOption("hasQuantumNumbers"):
		fmt.Fprintf(&b, "parameters.targetQuantumNumbers=%v\n", s.TargetQuantumNumbers)
	default:
		fmt.Fprintf(&b, "parameters.targetQuantumNumbers=search\n")
	}
	fmt.Fprintf(&b, "parameters.nthreads=%d\n", s.Threads)
	if s.Restart.Filename != "" {
		fmt.Fprintf(&b, "RestartStruct.filename=%s\n", s.Restart.Filename)
		fmt.Fprintf(&b, "RestartStruct.labelForEnergy=%s\n", s.Restart.LabelForEnergy)
		fmt.Fprintf(&b, "RestartStruct.sourceTvForPsi=%d\n", s.Restart.SourceTvForPsi)
		if len(s.Restart.MappingTvs) > 0 {
			fmt.Fprintf(&b, "RestartStruct.mappingTvs=%v\n", s.Restart.MappingTvs)
		}
	}
	fmt.Fprintf(&b, "metts=%+v\n", s.Metts)
	return b.String()
}
