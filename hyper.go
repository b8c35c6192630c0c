package finitemutsel

import (
	"math"
)

//SampleHyper sets the base measure to the flat Dirichlet
func (fp *FiniteProfile) SampleHyper() {
	for i := range fp.DirWeight {
		fp.DirWeight[i] = 1.0
	}
}

//LogWeightPrior is the log probability of the occupancy vector once the weights are integrated out
func (fp *FiniteProfile) LogWeightPrior() float64 {
	n := float64(fp.N)
	total := 0.
	for k := 0; k < fp.N; k++ {
		total += lgamma(fp.WeightAlpha + float64(fp.Occupancy[k]))
	}
	total -= lgamma(n*fp.WeightAlpha + float64(fp.NSite))
	total += lgamma(n*fp.WeightAlpha) - n*lgamma(fp.WeightAlpha)
	return total
}

//LogHyperPrior puts exponential priors on dirweight and WeightAlpha. A base measure whose total
//falls under MinTotWeight has zero prior probability.
func (fp *FiniteProfile) LogHyperPrior() float64 {
	total, sum := 0., 0.
	for _, w := range fp.DirWeight {
		total -= w
		sum += w
	}
	if sum < fp.MinTotWeight {
		return math.Inf(-1)
	}
	total -= fp.WeightAlpha
	return total
}

//LogStatPrior is the log density of the live profiles under the Dirichlet base measure
func (fp *FiniteProfile) LogStatPrior() float64 {
	total := 0.
	for k := 0; k < fp.N; k++ {
		total += logDirichlet(fp.DirWeight, fp.Profiles[k])
	}
	return total
}

//MoveHyper resamples the base measure. Nothing to do for a single fixed component.
func (fp *FiniteProfile) MoveHyper(tuning float64, nrep int) float64 {
	if fp.N > 1 || !fp.FixNcomp {
		return fp.MoveDirWeights(tuning, nrep)
	}
	return 0
}

//MoveDirWeights applies a multiplier move to each entry of dirweight in turn
func (fp *FiniteProfile) MoveDirWeights(tuning float64, nrep int) float64 {
	naccepted := 0.
	for rep := 0; rep < nrep; rep++ {
		for i := range fp.DirWeight {
			deltalogprob := -fp.LogHyperPrior() - fp.LogStatPrior()
			old := fp.DirWeight[i]
			var m float64
			fp.DirWeight[i], m = fp.rnd.multiplierProp(old, tuning)
			deltalogprob += fp.LogHyperPrior() + fp.LogStatPrior()
			deltalogprob += m
			if math.Log(fp.rnd.Uniform()) < deltalogprob {
				naccepted++
			} else {
				fp.DirWeight[i] = old
			}
		}
	}
	return naccepted / float64(nrep*len(fp.DirWeight))
}

//MoveWeightAlpha resamples the Dirichlet concentration of the weights with a multiplier move
func (fp *FiniteProfile) MoveWeightAlpha(tuning float64, nrep int) float64 {
	fp.UpdateOccupancyNumbers()
	naccepted := 0.
	for rep := 0; rep < nrep; rep++ {
		deltalogprob := -fp.LogHyperPrior() - fp.LogWeightPrior()
		m := tuning * (fp.rnd.Uniform() - 0.5)
		e := math.Exp(m)
		fp.WeightAlpha *= e
		deltalogprob += fp.LogHyperPrior() + fp.LogWeightPrior()
		deltalogprob += m
		if math.Log(fp.rnd.Uniform()) < deltalogprob {
			naccepted++
		} else {
			fp.WeightAlpha /= e
		}
	}
	return naccepted / float64(nrep)
}

//ResampleProfiles draws each live profile from its conjugate Dirichlet posterior.
//suff[k] holds the summed per-state path counts of the sites allocated to k.
func (fp *FiniteProfile) ResampleProfiles(suff [][]float64) error {
	if fp.EmpMix {
		return nil
	}
	post := make([]float64, fp.Dim)
	prof := make([]float64, fp.Dim)
	for k := 0; k < fp.N; k++ {
		copy(post, fp.DirWeight)
		if k < len(suff) && suff[k] != nil {
			for a, n := range suff[k] {
				post[a] += n
			}
		}
		if err := fp.Components.Create(k, fp.rnd.Dirichlet(post, prof)); err != nil {
			return err
		}
	}
	return nil
}

func lgamma(x float64) float64 {
	l, _ := math.Lgamma(x)
	return l
}
