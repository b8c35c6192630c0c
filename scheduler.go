package finitemutsel

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

//SamplerOptions switches parts of the sweep on or off
type SamplerOptions struct {
	FixTopo bool
	FixBL   bool
	NSPR    int
	NNNI    int
}

//Acceptance keeps the last acceptance rate of every MH move
type Acceptance struct {
	BranchLength float64
	Topology     float64
	BranchHyper  float64
	DirWeight    float64
	Ncomponent   float64
	WeightAlpha  float64
}

//Sampler runs the master side of one MCMC sweep
type Sampler struct {
	Mixture *FiniteProfile
	Coord   *Coordinator
	Tree    TreeMoves
	Branch  *GammaBranchProcess
	MutSel  MutSelParams
	Opts    SamplerOptions
	Timers  *StepTimers
	Rates   Acceptance
	logL    float64
	size    int
	logger  *zap.Logger
}

//NewSampler will assemble a sampler on the master rank
func NewSampler(exec ExecContext, mix *FiniteProfile, coord *Coordinator, tree TreeMoves, opts SamplerOptions, rnd *Random, logger *zap.Logger) (*Sampler, error) {
	if !exec.IsMaster() {
		return nil, fmt.Errorf("new sampler on rank %d: %w", exec.Rank, ErrMasterOnly)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		Mixture: mix,
		Coord:   coord,
		Tree:    tree,
		Branch:  InitGammaBranchProcess(func() []float64 { return tree.Tree().Lengths }, rnd),
		MutSel:  NewFixedMutSel(),
		Opts:    opts,
		Timers:  NewStepTimers(nil),
		logger:  logger,
	}, nil
}

func (s *Sampler) globalState() *GlobalState {
	return s.Mixture.GlobalState(s.Tree.Tree(), s.Branch.BranchHyper)
}

//Init ships the current state to the workers and computes the starting log-likelihood
func (s *Sampler) Init() error {
	if err := s.Coord.Broadcast(s.globalState()); err != nil {
		return err
	}
	logL, err := s.Coord.LogLikelihood()
	if err != nil {
		return err
	}
	s.logL = logL
	return nil
}

//LogLikelihood is the log-likelihood at the end of the last sweep
func (s *Sampler) LogLikelihood() float64 {
	return s.logL
}

//GetSize is the number of completed sweeps
func (s *Sampler) GetSize() int {
	return s.size
}

//SetSize resets the sweep counter, used when resuming from a checkpoint
func (s *Sampler) SetSize(n int) {
	s.size = n
}

//Move performs one full sweep and returns 1. A failure after Collapse still unfolds the workers, so the
//next sweep starts from the likelihood representation.
func (s *Sampler) Move(tuning float64) (int, error) {
	s.Timers.Start(StepTotal)
	s.Timers.Start(StepProposal)
	if err := s.moveTree(tuning); err != nil {
		s.Timers.Abort()
		return 0, err
	}
	s.Timers.Stop(StepProposal)
	if err := s.Coord.Broadcast(s.globalState()); err != nil {
		s.Timers.Abort()
		return 0, err
	}

	s.Timers.Start(StepSuffStat)
	s.Timers.Start(StepCollapse)
	if err := s.Coord.Collapse(); err != nil {
		s.Timers.Abort()
		return 0, err
	}
	s.Timers.Stop(StepCollapse)
	if err := s.collapsedMoves(tuning); err != nil {
		_, uerr := s.Coord.Unfold()
		s.Timers.Abort()
		return 0, errors.Join(err, uerr)
	}
	s.Timers.Stop(StepSuffStat)

	s.Timers.Start(StepUnfold)
	logL, err := s.Coord.Unfold()
	if err != nil {
		s.Timers.Abort()
		return 0, err
	}
	s.logL = logL
	s.Timers.Stop(StepUnfold)
	s.Timers.Stop(StepTotal)
	s.size++
	return 1, nil
}

func (s *Sampler) collapsedMoves(tuning float64) error {
	if !s.Opts.FixBL {
		s.Branch.Move(0.1*tuning, 10)
		s.Rates.BranchHyper = s.Branch.Move(tuning, 10)
	}
	if err := s.Coord.Broadcast(s.globalState()); err != nil {
		return err
	}
	return s.moveMixture(tuning, 1, 10)
}

func (s *Sampler) moveTree(tuning float64) error {
	if s.Opts.FixBL && s.Opts.FixTopo {
		return nil
	}
	if err := s.Coord.RequireUnfolded(); err != nil {
		return fmt.Errorf("tree move: %w", err)
	}
	if !s.Opts.FixBL {
		if _, err := s.Tree.BranchLengthMove(tuning); err != nil {
			return err
		}
		rate, err := s.Tree.BranchLengthMove(0.1 * tuning)
		if err != nil {
			return err
		}
		s.Rates.BranchLength = rate
	}
	if !s.Opts.FixTopo {
		rate, err := s.Tree.MoveTopo(s.Opts.NSPR, s.Opts.NNNI)
		if err != nil {
			return err
		}
		s.Rates.Topology = rate
	}
	return nil
}

//moveMixture reallocates sites on the workers, then updates profiles, hyperparameters, component count
//and weights on the master before shipping the result back
func (s *Sampler) moveMixture(tuning float64, nrep, nallocrep int) error {
	fp := s.Mixture
	for rep := 0; rep < nrep; rep++ {
		red, err := s.Coord.ResampleAlloc(s.globalState(), nallocrep)
		if err != nil {
			return err
		}
		if err := fp.SetAlloc(red.Alloc); err != nil {
			return err
		}
		if !fp.EmpMix {
			if err := fp.ResampleProfiles(red.SuffStat); err != nil {
				return err
			}
			s.Rates.DirWeight = fp.MoveHyper(tuning, 10)
		}
		if !fp.FixNcomp {
			rate, err := fp.MoveNcomponent(100)
			if err != nil {
				return err
			}
			s.Rates.Ncomponent = rate
			s.Rates.WeightAlpha = fp.MoveWeightAlpha(tuning, 10)
		}
		fp.ResampleWeights()
	}
	return s.Coord.Broadcast(s.globalState())
}

//DrawAllocFromPrior redraws every site from the current weights on the workers
func (s *Sampler) DrawAllocFromPrior() error {
	alloc, err := s.Coord.DrawAllocFromPrior(s.globalState())
	if err != nil {
		return err
	}
	return s.Mixture.SetAlloc(alloc)
}

//TraceRow summarizes the current state; the step timers restart from zero
func (s *Sampler) TraceRow() TraceRow {
	total := s.Timers.Elapsed(StepTotal)
	row := TraceRow{
		Iter:     s.size,
		LnL:      s.logL,
		Length:   s.Branch.TotalLength(),
		CodonEnt: s.MutSel.CodonProfileEntropy(),
		Omega:    s.MutSel.Omega(),
		Nmode:    s.Mixture.N,
		StatEnt:  s.Mixture.StatEnt(),
		StatAlph: s.Mixture.MeanDirWeight(),
		NucStat:  s.MutSel.NucStat(),
		NucRR:    s.MutSel.NucRR(),
	}
	if total > 0 {
		row.Time = total.Seconds()
		row.Pruning = int(s.Timers.Elapsed(StepProposal).Seconds() / total.Seconds() * 100)
	}
	s.Timers.Reset()
	return row
}
