package finitemutsel

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

//DefaultMinTotWeight is the smallest admissible total of the dirweight vector
const DefaultMinTotWeight = 1.0

//FiniteProfile is the master copy of the finite mixture: components, allocation and concentration parameters.
type FiniteProfile struct {
	*Components
	*Allocation
	WeightAlpha  float64
	DirWeight    []float64
	MinTotWeight float64
	FixNcomp     bool
	EmpMix       bool
	MixType      string
	rnd          *Random
	logger       *zap.Logger
}

//MixtureOptions sets up a FiniteProfile
type MixtureOptions struct {
	NSite        int
	Dim          int
	NCat         int // -1 puts every site in its own component
	KMax         int // 0 allows up to NSite components
	StatEps      float64
	MinTotWeight float64
	FixNcomp     bool
	EmpMix       bool
	MixType      string
}

//NewFiniteProfile will allocate the mixture; SampleHyper/SampleStat/SampleAlloc must follow.
func NewFiniteProfile(opts MixtureOptions, rnd *Random, logger *zap.Logger) (*FiniteProfile, error) {
	ncat := opts.NCat
	if ncat == -1 {
		ncat = opts.NSite
	}
	kmax := opts.KMax
	if kmax == 0 {
		kmax = opts.NSite
	}
	if kmax < ncat {
		kmax = ncat
	}
	if opts.Dim <= 0 || opts.NSite < 0 {
		return nil, configErr("new mixture", fmt.Errorf("dim %d nsite %d: %w", opts.Dim, opts.NSite, ErrBadStateCount))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mintot := opts.MinTotWeight
	if mintot <= 0 {
		mintot = DefaultMinTotWeight
	}
	fp := &FiniteProfile{
		Components:   NewComponents(opts.Dim, kmax, opts.StatEps),
		Allocation:   NewAllocation(opts.NSite, kmax),
		WeightAlpha:  1.0,
		DirWeight:    make([]float64, opts.Dim),
		MinTotWeight: mintot,
		FixNcomp:     opts.FixNcomp,
		EmpMix:       opts.EmpMix,
		MixType:      opts.MixType,
		rnd:          rnd,
		logger:       logger,
	}
	fp.N = ncat
	return fp, nil
}

//GetNmodeMax returns the hard upper bound on the component count
func (fp *FiniteProfile) GetNmodeMax() int {
	return fp.KMax
}

//CreateComponent draws a fresh profile for slot k from the Dirichlet base measure
func (fp *FiniteProfile) CreateComponent(k int) error {
	prof := fp.rnd.Dirichlet(fp.DirWeight, make([]float64, fp.Dim))
	return fp.Components.Create(k, prof)
}

//DeleteComponent releases slot k
func (fp *FiniteProfile) DeleteComponent(k int) {
	fp.Components.Delete(k)
}

//SwapComponents exchanges slots a and b, carrying their sites along
func (fp *FiniteProfile) SwapComponents(a, b int) {
	fp.Components.Swap(a, b)
	fp.Allocation.Relabel(a, b)
}

//SampleStat draws every live profile from the base measure, unless profiles come from a fixed catalog
func (fp *FiniteProfile) SampleStat() error {
	if fp.EmpMix {
		return nil
	}
	for k := 0; k < fp.N; k++ {
		if err := fp.CreateComponent(k); err != nil {
			return err
		}
	}
	return nil
}

//SampleAlloc draws the initial allocation from the weights. When there are as many components as sites
//each site gets its own component.
func (fp *FiniteProfile) SampleAlloc() error {
	if fp.N == 0 {
		return configErr("sample alloc", ErrNoComponents)
	}
	fp.SampleWeights()
	if fp.N == fp.NSite {
		for i := 0; i < fp.NSite; i++ {
			fp.AddSite(i, i)
		}
	} else {
		for i := 0; i < fp.NSite; i++ {
			fp.AddSite(i, fp.rnd.FiniteDiscrete(fp.LiveWeights()))
		}
	}
	fp.ResampleWeights()
	return nil
}

//Sample draws a full starting state from the prior
func (fp *FiniteProfile) Sample(cat *Catalog) error {
	fp.SampleHyper()
	if fp.EmpMix {
		if cat == nil {
			return configErr("sample", fmt.Errorf("empirical mixture %q not loaded: %w", fp.MixType, ErrUnknownCatalog))
		}
		if err := fp.SetStatFix(cat); err != nil {
			return err
		}
	}
	if err := fp.SampleStat(); err != nil {
		return err
	}
	return fp.SampleAlloc()
}

//SetStatFix replaces the components with the entries of an empirical catalog and freezes the component count
func (fp *FiniteProfile) SetStatFix(cat *Catalog) error {
	if cat == nil || len(cat.Profiles) == 0 {
		return configErr("set stat fix", ErrNoComponents)
	}
	if cat.Dim() != fp.Dim {
		return configErr("set stat fix", fmt.Errorf("catalog %s has %d states, mixture has %d: %w", cat.Name, cat.Dim(), fp.Dim, ErrBadStateCount))
	}
	if len(cat.Profiles) > fp.KMax {
		fp.growSlots(len(cat.Profiles))
	}
	for k := 0; k < fp.N; k++ {
		fp.DeleteComponent(k)
	}
	fp.N = len(cat.Profiles)
	for k := 0; k < fp.N; k++ {
		if err := fp.Components.Create(k, cat.Profiles[k]); err != nil {
			return err
		}
		fp.Weights[k] = cat.Weights[k]
	}
	fp.FixNcomp = true
	fp.EmpMix = true
	fp.MixType = cat.Name
	fp.logger.Info("loaded empirical mixture", zap.String("mixtype", cat.Name), zap.Int("ncomponent", fp.N))
	return nil
}

func (fp *FiniteProfile) growSlots(kmax int) {
	profiles := make([][]float64, kmax)
	copy(profiles, fp.Profiles)
	weights := make([]float64, kmax)
	copy(weights, fp.Weights)
	occ := make([]int, kmax)
	copy(occ, fp.Occupancy)
	fp.Profiles, fp.Weights, fp.Occupancy, fp.KMax = profiles, weights, occ, kmax
}

//NOccupiedComponent returns the number of live components holding at least one site
func (fp *FiniteProfile) NOccupiedComponent() int {
	fp.UpdateOccupancyNumbers()
	return fp.NOccupied(fp.N)
}

//StatEnt is the mean entropy of the profile each site is allocated to
func (fp *FiniteProfile) StatEnt() float64 {
	if fp.NSite == 0 {
		return 0
	}
	total := 0.
	for _, k := range fp.Alloc {
		if k >= 0 && fp.Profiles[k] != nil {
			total += stat.Entropy(fp.Profiles[k])
		}
	}
	return total / float64(fp.NSite)
}

//MeanDirWeight is the average concentration of the base measure
func (fp *FiniteProfile) MeanDirWeight() float64 {
	total := 0.
	for _, w := range fp.DirWeight {
		total += w
	}
	return total / float64(len(fp.DirWeight))
}

//AllocEntropy is the entropy of the occupancy distribution
func (fp *FiniteProfile) AllocEntropy() float64 {
	fp.UpdateOccupancyNumbers()
	if fp.NSite == 0 {
		return 0
	}
	p := make([]float64, fp.N)
	for k := range p {
		p[k] = float64(fp.Occupancy[k]) / float64(fp.NSite)
	}
	return stat.Entropy(p)
}
