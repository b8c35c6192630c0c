package finitemutsel

import "gonum.org/v1/gonum/floats"

//minWeight keeps resampled weights away from zero
const minWeight = 1e-10

//SampleWeights draws the weights from a symmetric Dirichlet with concentration WeightAlpha
func (fp *FiniteProfile) SampleWeights() {
	w := fp.LiveWeights()
	for k := range w {
		w[k] = fp.rnd.Gamma(fp.WeightAlpha)
	}
	floats.Scale(1/floats.Sum(w), w)
}

//ResampleWeights draws the weights from their Dirichlet posterior given the current occupancy
func (fp *FiniteProfile) ResampleWeights() {
	fp.UpdateOccupancyNumbers()
	w := fp.LiveWeights()
	for k := range w {
		w[k] = fp.rnd.Gamma(fp.WeightAlpha + float64(fp.Occupancy[k]))
		if w[k] < minWeight {
			w[k] = minWeight
		}
	}
	floats.Scale(1/floats.Sum(w), w)
}
