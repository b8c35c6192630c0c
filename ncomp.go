package finitemutsel

//compact packs occupied components into the lowest slots and returns Kmin, the number of occupied slots.
//Occupancy must be current.
func (fp *FiniteProfile) compact() int {
	kmax := fp.N - 1
	kmin := 0
	for {
		for kmax >= 0 && fp.Occupancy[kmax] == 0 {
			kmax--
		}
		for kmin < fp.N && fp.Occupancy[kmin] > 0 {
			kmin++
		}
		if kmin >= kmax {
			break
		}
		fp.SwapComponents(kmin, kmax)
	}
	return kmin
}

//birthRatio is the acceptance ratio of K -> K+1. forced is set when there is no empty slot, in which case
//birth is the only available proposal.
func birthRatio(K, Kmin, nsite int, alpha float64, forced bool) float64 {
	k := float64(K)
	ratio := 1.
	if forced {
		ratio *= 0.5 * (k + 1)
		ratio *= float64(K - Kmin + 1)
	} else {
		ratio *= (k + 1) / float64(K-Kmin+1)
	}
	ratio /= float64(nsite) + k*alpha
	ratio *= k * alpha
	return ratio
}

//deathRatio is the acceptance ratio of K -> K-1
func deathRatio(K, Kmin, nsite int, alpha float64) float64 {
	k := float64(K)
	ratio := 1.
	if K == Kmin+1 {
		ratio *= 2.0 / k
	} else {
		ratio *= float64(K-Kmin) / k
	}
	ratio *= float64(nsite) + (k-1)*alpha
	ratio /= (k - 1) * alpha
	return ratio
}

//MoveNcomponent is a birth/death move on the number of components. Only empty components are born
//or killed, so the allocation is untouched. Returns the acceptance rate.
func (fp *FiniteProfile) MoveNcomponent(nrep int) (float64, error) {
	fp.UpdateOccupancyNumbers()
	Kmax := fp.GetNmodeMax()
	Kmin := fp.compact()
	if Kmin > Kmax {
		Kmin = Kmax
	}
	K := fp.N
	nacc := 0
	for rep := 0; rep < nrep; rep++ {
		BK := K
		var ratio float64
		if K == Kmin {
			ratio = birthRatio(K, Kmin, fp.NSite, fp.WeightAlpha, true)
			K++
		} else if fp.rnd.Uniform() < 0.5 {
			ratio = birthRatio(K, Kmin, fp.NSite, fp.WeightAlpha, false)
			K++
		} else {
			ratio = deathRatio(K, Kmin, fp.NSite, fp.WeightAlpha)
			K--
		}
		if fp.rnd.Uniform() < ratio && K <= Kmax {
			nacc++
		} else {
			K = BK
		}
	}
	if K > fp.N {
		for k := fp.N; k < K; k++ {
			if err := fp.CreateComponent(k); err != nil {
				return 0, err
			}
			fp.Weights[k] = 0
		}
	} else if K < fp.N {
		for k := K; k < fp.N; k++ {
			fp.DeleteComponent(k)
		}
	}
	fp.N = K
	return float64(nacc) / float64(nrep), nil
}
