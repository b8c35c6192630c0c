package finitemutsel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

//Chain drives a Sampler, writing the trace, the chain of sampled allocations and a checkpoint every few sweeps
type Chain struct {
	Cfg     Config
	RunID   string
	Seed    uint64 // seed of rank 0 for this run
	Header  Header
	Sampler *Sampler
	Data    *ColumnCounts
	store   *TraceStore
	logger  *zap.Logger
	started time.Time
}

//RunSummary is written as JSON once the chain stops
type RunSummary struct {
	RunID      string     `json:"run_id"`
	Name       string     `json:"name"`
	Seed       uint64     `json:"seed"`
	Sweeps     int        `json:"sweeps"`
	Seconds    float64    `json:"seconds"`
	LogL       float64    `json:"log_likelihood"`
	Ncomponent int        `json:"ncomponent"`
	NOccupied  int        `json:"noccupied"`
	MixType    string     `json:"mixtype,omitempty"`
	Acceptance Acceptance `json:"acceptance"`
	Started    time.Time  `json:"started"`
}

func (c *Chain) path(ext string) string {
	return filepath.Join(c.Cfg.OutDir, c.Cfg.Name+ext)
}

func loadData(cfg Config) (*ColumnCounts, error) {
	data, err := ReadAlignmentFile(cfg.Data, cfg.Alphabet)
	if err != nil {
		return nil, err
	}
	if cfg.DC {
		data = data.DeleteConstant()
	}
	if data.NSite() == 0 {
		return nil, configErr("load data", fmt.Errorf("%s has no usable site: %w", cfg.Data, ErrBadStateCount))
	}
	return data, nil
}

//NewChain will read the data, draw a starting state from the prior and start the workers
func NewChain(ctx context.Context, cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := loadData(cfg)
	if err != nil {
		return nil, err
	}
	newick, err := readTree(cfg.Tree)
	if err != nil {
		return nil, err
	}
	if newick == "" {
		newick = starTree(data.Taxa)
	}
	var cat *Catalog
	if cfg.EmpMix {
		cat, err = LookupCatalog(cfg.MixType, CatalogOptions{
			Alphabet:      cfg.Alphabet,
			StatEps:       cfg.StatEps,
			Dir:           cfg.CatalogDir,
			EmpiricalFreq: data.EmpiricalFreq(),
		})
		if err != nil {
			return nil, err
		}
	}
	rnd := NewRandom(cfg.Seed)
	mix, err := NewFiniteProfile(MixtureOptions{
		NSite:        data.NSite(),
		Dim:          data.Dim(),
		NCat:         cfg.NCat,
		KMax:         cfg.KMax,
		StatEps:      cfg.StatEps,
		MinTotWeight: cfg.MinTotWeight,
		FixNcomp:     cfg.FixNcomp,
		EmpMix:       cfg.EmpMix,
		MixType:      cfg.MixType,
	}, rnd, logger)
	if err != nil {
		return nil, err
	}
	if err := mix.Sample(cat); err != nil {
		return nil, err
	}
	c, err := assemble(ctx, cfg, data, mix, &FixedTree{State: TreeState{Newick: newick, Lengths: newickLengths(newick)}}, cfg.Seed, rnd, logger, reg)
	if err != nil {
		return nil, err
	}
	c.Header = cfg.Header(newick)
	return c, nil
}

//ResumeChain will restart a chain from the checkpoint named after cfg.Name. The checkpoint header wins over cfg.
func ResumeChain(ctx context.Context, cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Chain, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(filepath.Join(cfg.OutDir, cfg.Name+".param"))
	if err != nil {
		return nil, configErr("resume", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, configErr("resume", err)
	}
	cfg.Data, cfg.CodeType, cfg.NCat = h.DataFile, h.CodeType, h.NCat
	cfg.FixNcomp, cfg.EmpMix, cfg.MixType = h.FixNcomp, h.EmpMix, h.MixType
	cfg.FixTopo, cfg.FixBL, cfg.NSPR, cfg.NNNI = h.FixTopo, h.FixBL, h.NSPR, h.NNNI
	cfg.OmegaPrior, cfg.DirWeightPrior, cfg.DC = h.OmegaPrior, h.DirWeightPrior, h.DC
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := loadData(cfg)
	if err != nil {
		return nil, err
	}
	var size int
	if _, err := fmt.Fscan(br, &size); err != nil {
		return nil, configErr("resume", fmt.Errorf("sweep count: %w", ErrCheckpoint))
	}
	seed := runSeed(cfg.Seed, size, cfg.NProcs)
	rnd := NewRandom(seed)
	mix, err := NewFiniteProfile(MixtureOptions{
		NSite:        data.NSite(),
		Dim:          data.Dim(),
		NCat:         cfg.NCat,
		KMax:         cfg.KMax,
		StatEps:      cfg.StatEps,
		MinTotWeight: cfg.MinTotWeight,
		FixNcomp:     cfg.FixNcomp,
		EmpMix:       cfg.EmpMix,
		MixType:      cfg.MixType,
	}, rnd, logger)
	if err != nil {
		return nil, err
	}
	body, err := ReadBody(br, mix)
	if err != nil {
		return nil, configErr("resume", err)
	}
	c, err := assemble(ctx, cfg, data, mix, &FixedTree{State: TreeState{Newick: h.Tree, Lengths: body.Lengths}}, seed, rnd, logger, reg)
	if err != nil {
		return nil, err
	}
	c.Sampler.Branch.BranchHyper = body.Branch
	c.Sampler.SetSize(size)
	c.Header = h
	logger.Info("resumed chain", zap.String("name", cfg.Name), zap.Int("sweeps", size))
	return c, nil
}

//runSeed is the seed of rank 0 for a chain restarted after size sweeps; rank r uses runSeed+r.
//With nprocs unchanged every restart owns a block of nprocs seeds disjoint from those of earlier runs.
func runSeed(seed uint64, size, nprocs int) uint64 {
	return seed + uint64(size)*uint64(nprocs)
}

func assemble(ctx context.Context, cfg Config, data *ColumnCounts, mix *FiniteProfile, tree TreeMoves, seed uint64, rnd *Random, logger *zap.Logger, reg prometheus.Registerer) (*Chain, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	coord, err := NewCoordinator(ctx, cfg.NProcs, data.NSite(), data.Dim(), data.Factory(), seed, logger)
	if err != nil {
		return nil, err
	}
	s, err := NewSampler(ExecContext{Rank: 0, Size: cfg.NProcs}, mix, coord, tree, SamplerOptions{
		FixTopo: cfg.FixTopo,
		FixBL:   cfg.FixBL,
		NSPR:    cfg.NSPR,
		NNNI:    cfg.NNNI,
	}, rnd, logger)
	if err != nil {
		coord.Close()
		return nil, err
	}
	s.Timers = NewStepTimers(reg)
	c := &Chain{Cfg: cfg, RunID: runID, Seed: seed, Sampler: s, Data: data, logger: logger}
	if err := s.Init(); err != nil {
		c.Close()
		return nil, err
	}
	if cfg.TraceDB != "" {
		if c.store, err = OpenTraceStore(ctx, cfg.TraceDB, runID); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

//Run performs sweeps until Cfg.Until is reached or ctx is cancelled. Cancellation is only honoured
//between sweeps, so the last checkpoint always matches the last trace line.
func (c *Chain) Run(ctx context.Context) error {
	c.started = time.Now()
	traceFile, err := c.openOut(".trace")
	if err != nil {
		return err
	}
	defer traceFile.Close()
	chainFile, err := c.openOut(".chain")
	if err != nil {
		return err
	}
	defer chainFile.Close()
	tw := bufio.NewWriter(traceFile)
	cw := bufio.NewWriter(chainFile)
	if c.Sampler.GetSize() == 0 {
		fmt.Fprint(tw, TraceHeader)
	}
	c.logger.Info("starting chain", zap.String("name", c.Cfg.Name), zap.Int("nsite", c.Data.NSite()),
		zap.Int("ncomponent", c.Sampler.Mixture.N), zap.Int("nprocs", c.Cfg.NProcs))
	var runErr error
	for c.Cfg.Until == -1 || c.Sampler.GetSize() < c.Cfg.Until {
		if err := ctx.Err(); err != nil {
			c.logger.Info("chain interrupted", zap.Int("sweeps", c.Sampler.GetSize()))
			break
		}
		if runErr = c.sweeps(); runErr != nil {
			break
		}
		row := c.Sampler.TraceRow()
		if _, runErr = row.WriteTo(tw); runErr != nil {
			break
		}
		if c.store != nil {
			if runErr = c.store.Append(context.WithoutCancel(ctx), row); runErr != nil {
				break
			}
		}
		fmt.Fprintf(cw, "%d\t%s\n", c.Sampler.GetSize(), c.Sampler.Mixture.ClusterString(c.Sampler.Mixture.N))
		if runErr = errors.Join(tw.Flush(), cw.Flush()); runErr != nil {
			break
		}
		if runErr = c.Checkpoint(); runErr != nil {
			break
		}
		c.logger.Debug("sweep", zap.Int("iter", row.Iter), zap.Float64("lnL", row.LnL), zap.Int("Nmode", row.Nmode),
			zap.Float64("statent", row.StatEnt))
	}
	return errors.Join(runErr, tw.Flush(), cw.Flush(), c.writeSummary())
}

func (c *Chain) sweeps() error {
	for i := 0; i < c.Cfg.Every; i++ {
		if _, err := c.Sampler.Move(c.Cfg.Tuning); err != nil {
			return fmt.Errorf("sweep %d: %w", c.Sampler.GetSize()+1, err)
		}
	}
	return nil
}

func (c *Chain) openOut(ext string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if c.Sampler.GetSize() > 0 {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(c.path(ext), flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ext, err)
	}
	return f, nil
}

//Checkpoint atomically rewrites <name>.param with the current header, sweep count and state
func (c *Chain) Checkpoint() error {
	tmp, err := os.CreateTemp(c.Cfg.OutDir, c.Cfg.Name+".param.*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())
	s := c.Sampler
	c.Header.Tree = s.Tree.Tree().Newick
	err = WriteHeader(tmp, c.Header)
	if err == nil {
		_, err = fmt.Fprintf(tmp, "%d\n", s.GetSize())
	}
	if err == nil {
		err = WriteBody(tmp, BodyState{Branch: s.Branch.BranchHyper, Lengths: s.Tree.Tree().Lengths}, s.Mixture)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return os.Rename(tmp.Name(), c.path(".param"))
}

//Summary describes the chain as it stands
func (c *Chain) Summary() RunSummary {
	s := c.Sampler
	return RunSummary{
		RunID:      c.RunID,
		Name:       c.Cfg.Name,
		Seed:       c.Seed,
		Sweeps:     s.GetSize(),
		Seconds:    time.Since(c.started).Seconds(),
		LogL:       s.LogLikelihood(),
		Ncomponent: s.Mixture.N,
		NOccupied:  s.Mixture.NOccupiedComponent(),
		MixType:    s.Mixture.MixType,
		Acceptance: s.Rates,
		Started:    c.started,
	}
}

func (c *Chain) writeSummary() error {
	b, err := json.MarshalIndent(c.Summary(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(".run.json"), append(b, '\n'), 0o644)
}

//Close stops the workers and releases the trace store
func (c *Chain) Close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	errs = append(errs, c.Sampler.Coord.Close())
	return errors.Join(errs...)
}
