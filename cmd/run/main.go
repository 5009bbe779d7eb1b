package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fumin/metts"
	"github.com/fumin/metts/collapse"
	"github.com/fumin/metts/params"
	"github.com/fumin/metts/stochastics"
	"github.com/fumin/metts/store"
	"github.com/fumin/metts/vector"
)

const (
	fnameSamples = "samples.db"
)

var (
	runDir   = flag.String("d", filepath.Join("runs", "metts"), "run directory")
	input    = flag.String("input", "", "solver input file, overriding the flags below")
	sites    = flag.Int("sites", 8, "number of sites of the chain")
	qn       = flag.Int("qn", -1, "number of up spins of the state, half filling if negative")
	samples  = flag.Int("samples", 16, "number of collapses")
	workers  = flag.Int("workers", 1, "number of sampling goroutines")
	seed     = flag.Uint64("seed", 1, "random seed")
	retries  = flag.Int("retries", 8, "redraws of a degenerate projection")
	thresh   = flag.Float64("thresh", 1e-6, "squared norm below which a projection is degenerate")
	logLevel = flag.String("v", "info", "log level")
	pretty   = flag.Bool("pretty", false, "human readable logs")
)

// envFlags are the flags that may be set by environment variables, when not given on the command line.
var envFlags = map[string]string{
	"d":    "METTS_RUN_DIR",
	"v":    "METTS_LOG_LEVEL",
	"seed": "METTS_SEED",
}

type config struct {
	sites         int
	qn            int
	samples       int
	workers       int
	seed          uint64
	retries       int
	normThreshold float64
	checkpoint    string
	// restart is the run to start from, if its Filename is not empty.
	restart params.Restart
	// solver is the description of the input file, if any.
	solver string
}

func readConfig() (config, error) {
	c := config{sites: *sites, qn: *qn, samples: *samples, workers: *workers, seed: *seed, retries: *retries, normThreshold: *thresh, checkpoint: store.LabelPsi}
	if *input == "" {
		if c.qn < 0 {
			c.qn = c.sites / 2
		}
		return c, nil
	}

	in, err := params.ReadFile(*input)
	if err != nil {
		return config{}, errors.Wrap(err, "")
	}
	s, err := params.NewSolver(in)
	if err != nil {
		return config{}, errors.Wrap(err, *input)
	}
	c.sites = s.TotalSites
	c.workers = s.Threads
	c.seed = s.Metts.Seed
	c.samples = s.Metts.Samples
	c.retries = s.Metts.MaxRetries
	c.normThreshold = s.Metts.NormThreshold
	c.qn = c.sites / 2
	if len(s.TargetQuantumNumbers) > 0 {
		c.qn = int(math.Round(s.TargetQuantumNumbers[0] * float64(c.sites)))
	}
	if s.CheckPoint.Enabled {
		c.checkpoint = s.CheckPoint.Filename
	}
	c.restart = s.Restart
	c.solver = s.String()
	return c, nil
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		return zerolog.Logger{}, errors.Wrap(err, "")
	}
	var output io.Writer = os.Stderr
	if *pretty {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

func applyEnv() error {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for name, env := range envFlags {
		v, ok := os.LookupEnv(env)
		if !ok || set[name] {
			continue
		}
		if err := flag.Set(name, v); err != nil {
			return errors.Wrap(err, env)
		}
	}
	return nil
}

// initialState loads the state saved under label.
// If there is none, it saves the state of the restart run, or a new random state.
func initialState(ctx context.Context, st *store.Store, label string, c config) (*vector.VectorWithOffsets, error) {
	src, err := st.Checkpoint(ctx, label)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrap(err, "")
	}

	switch {
	case c.restart.Filename != "":
		src, err = metts.LoadRestart(ctx, c.restart)
	default:
		src, err = metts.RandomState(metts.SpinHalfChain(c.sites), c.qn, c.seed)
	}
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := st.PutCheckpoint(ctx, label, src); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return src, nil
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := applyEnv(); err != nil {
		return errors.Wrap(err, "")
	}
	logger, err := newLogger()
	if err != nil {
		return errors.Wrap(err, "")
	}
	c, err := readConfig()
	if err != nil {
		return errors.Wrap(err, "")
	}
	if c.solver != "" {
		logger.Info().Str("input", *input).Msg(c.solver)
	}
	logger.Info().Int("sites", c.sites).Int("qn", c.qn).Int("samples", c.samples).Int("workers", c.workers).Uint64("seed", c.seed).Msg("config")

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	st, err := store.Open(filepath.Join(*runDir, fnameSamples))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	src, err := initialState(ctx, st, c.checkpoint, c)
	if err != nil {
		return errors.Wrap(err, "")
	}

	lrs := metts.SpinHalfChain(c.sites)
	if src.Size() != lrs.Size() {
		return errors.Errorf("checkpoint %s has size %d, expected %d", c.checkpoint, src.Size(), lrs.Size())
	}
	centralSites := metts.CentralSites(c.sites)
	newSampler := func(worker int) *metts.Sampler {
		chooser := stochastics.New(2, c.seed+uint64(worker))
		engine := collapse.New[*vector.VectorWithOffsets](chooser, lrs, collapse.NewOptions().NormThreshold(c.normThreshold))
		return metts.NewSampler(engine, centralSites, logger, metts.NewSamplerOptions().MaxRetries(c.retries))
	}
	smps, err := metts.Run(ctx, newSampler, src, c.samples, c.workers, st)
	if err != nil {
		return errors.Wrap(err, "")
	}

	stats, err := metts.GetStatistics(smps, 2)
	if err != nil {
		return errors.Wrap(err, "")
	}
	logger.Info().Floats64("frequency", stats.Frequency).Float64("meanNorm2", stats.MeanNorm2).Float64("stdNorm2", stats.StdNorm2).Int("retries", stats.Retries).Msg("statistics")

	fmt.Printf("index,site0,site1,state0,state1,norm2,retries\n")
	for _, s := range smps {
		fmt.Printf("%d,%d,%d,%d,%d,%f,%d\n", s.Index, s.Sites[0], s.Sites[1], s.States[0], s.States[1], s.Norm2, s.Retries)
	}
	return nil
}
