package finitemutsel

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

//BranchHyper holds the shape and rate of the gamma prior on branch lengths
type BranchHyper struct {
	Alpha float64
	Beta  float64
}

//TreeMoves is the tree-side collaborator of the sampler. Both moves need full likelihoods and are only
//called while the coordinator is unfolded.
type TreeMoves interface {
	Tree() TreeState
	BranchLengthMove(tuning float64) (float64, error)
	MoveTopo(nspr, nnni int) (float64, error)
}

//FixedTree is a TreeMoves whose topology and lengths never change
type FixedTree struct {
	State TreeState
}

func (t *FixedTree) Tree() TreeState {
	return t.State
}

func (t *FixedTree) BranchLengthMove(float64) (float64, error) {
	return 0, nil
}

func (t *FixedTree) MoveTopo(int, int) (float64, error) {
	return 0, nil
}

//GammaBranchProcess puts i.i.d. Gamma(Alpha, Beta) priors on the branch lengths, with exponential
//hyperpriors on Alpha and Beta
type GammaBranchProcess struct {
	BranchHyper
	lengths func() []float64
	rnd     *Random
}

//InitGammaBranchProcess will set up the branch prior; lengths is read whenever the prior is evaluated
func InitGammaBranchProcess(lengths func() []float64, rnd *Random) *GammaBranchProcess {
	return &GammaBranchProcess{
		BranchHyper: BranchHyper{Alpha: 1, Beta: 10},
		lengths:     lengths,
		rnd:         rnd,
	}
}

//TotalLength is the tree length
func (g *GammaBranchProcess) TotalLength() float64 {
	return floats.Sum(g.lengths())
}

//LogHyperPrior is the exponential prior on both hyperparameters
func (g *GammaBranchProcess) LogHyperPrior() float64 {
	return -g.Alpha - g.Beta
}

//LogLengthPrior sums the gamma log density of every branch
func (g *GammaBranchProcess) LogLengthPrior() float64 {
	d := distuv.Gamma{Alpha: g.Alpha, Beta: g.Beta}
	total := 0.
	for _, l := range g.lengths() {
		if l > 0 {
			total += d.LogProb(l)
		}
	}
	return total
}

//Move applies nrep multiplier moves to each hyperparameter and returns the acceptance rate
func (g *GammaBranchProcess) Move(tuning float64, nrep int) float64 {
	naccepted := 0.
	for rep := 0; rep < nrep; rep++ {
		for _, theta := range []*float64{&g.Alpha, &g.Beta} {
			before := g.LogHyperPrior() + g.LogLengthPrior()
			old := *theta
			var m float64
			*theta, m = g.rnd.multiplierProp(old, tuning)
			after := g.LogHyperPrior() + g.LogLengthPrior()
			delta := after - before + m
			if math.Log(g.rnd.Uniform()) < delta {
				naccepted++
			} else {
				*theta = old
			}
		}
	}
	return naccepted / float64(2*nrep)
}

//MutSelParams supplies the mutation-selection quantities reported in the trace
type MutSelParams interface {
	Omega() float64
	NucStat() [4]float64
	NucRR() [6]float64
	CodonProfileEntropy() float64
}

//FixedMutSel is a MutSelParams with constant values
type FixedMutSel struct {
	W       float64
	Stat    [4]float64
	RR      [6]float64
	CodonEn float64
}

//NewFixedMutSel returns neutral settings: omega 1, flat nucleotide frequencies and exchangeabilities,
//flat codon usage over the 61 sense codons
func NewFixedMutSel() *FixedMutSel {
	return &FixedMutSel{
		W:       1,
		Stat:    [4]float64{0.25, 0.25, 0.25, 0.25},
		RR:      [6]float64{1. / 6, 1. / 6, 1. / 6, 1. / 6, 1. / 6, 1. / 6},
		CodonEn: math.Log(61),
	}
}

func (f *FixedMutSel) Omega() float64 {
	return f.W
}

func (f *FixedMutSel) NucStat() [4]float64 {
	return f.Stat
}

func (f *FixedMutSel) NucRR() [6]float64 {
	return f.RR
}

func (f *FixedMutSel) CodonProfileEntropy() float64 {
	return f.CodonEn
}
