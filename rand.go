package finitemutsel

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

//Random holds the random source of one rank. Ranks never share a Random.
type Random struct {
	src rand.Source
	rng *rand.Rand
}

//NewRandom will seed a PCG source for a single rank
func NewRandom(seed uint64) *Random {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Random{src: src, rng: rand.New(src)}
}

//Uniform draws from U(0,1)
func (r *Random) Uniform() float64 {
	return r.rng.Float64()
}

//Intn draws an int in [0,n)
func (r *Random) Intn(n int) int {
	return r.rng.IntN(n)
}

//Gamma draws from Gamma(alpha, 1)
func (r *Random) Gamma(alpha float64) float64 {
	g := distuv.Gamma{Alpha: alpha, Beta: 1, Src: r.src}
	return g.Rand()
}

//FiniteDiscrete draws an index with probability proportional to w
func (r *Random) FiniteDiscrete(w []float64) int {
	if floats.Sum(w) <= 0 {
		return r.rng.IntN(len(w))
	}
	return int(distuv.NewCategorical(w, r.src).Rand())
}

//LogFiniteDiscrete draws an index with probability proportional to exp(logw).
//logw is overwritten with the normalized probabilities.
func (r *Random) LogFiniteDiscrete(logw []float64) int {
	top := floats.Max(logw)
	if math.IsInf(top, -1) || math.IsNaN(top) {
		return r.rng.IntN(len(logw))
	}
	for i, l := range logw {
		logw[i] = math.Exp(l - top)
	}
	return r.FiniteDiscrete(logw)
}

//Dirichlet draws a probability vector from Dirichlet(alpha) into dst
func (r *Random) Dirichlet(alpha []float64, dst []float64) []float64 {
	return distmv.NewDirichlet(alpha, r.src).Rand(dst)
}

//multiplierProp returns theta*exp(tuning*(u-0.5)) together with the log of the multiplier
func (r *Random) multiplierProp(theta, tuning float64) (thetaStar, m float64) {
	m = tuning * (r.Uniform() - 0.5)
	thetaStar = theta * math.Exp(m)
	return
}

//logDirichlet is the log density of profile x under Dirichlet(alpha)
func logDirichlet(alpha, x []float64) float64 {
	return distmv.NewDirichlet(alpha, nil).LogProb(x)
}
