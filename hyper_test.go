package finitemutsel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestLogHyperPriorRejectsSmallBaseMeasure(t *testing.T) {
	fp := newTestMixture(t, 10, 4, 2)
	assert.InDelta(t, -4-fp.WeightAlpha, fp.LogHyperPrior(), 1e-12)
	for i := range fp.DirWeight {
		fp.DirWeight[i] = 0.2
	}
	assert.True(t, math.IsInf(fp.LogHyperPrior(), -1))
}

func TestMoveDirWeightsKeepsTotalAboveMinimum(t *testing.T) {
	fp := newTestMixture(t, 30, 4, 3)
	for i := 0; i < 50; i++ {
		rate := fp.MoveHyper(3, 5)
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 1.0)
		assert.GreaterOrEqual(t, floats.Sum(fp.DirWeight), fp.MinTotWeight)
	}
}

func TestMoveHyperSkippedForSingleFixedComponent(t *testing.T) {
	fp := newTestMixture(t, 10, 4, 1)
	fp.FixNcomp = true
	before := append([]float64(nil), fp.DirWeight...)
	assert.Zero(t, fp.MoveHyper(1, 10))
	assert.Equal(t, before, fp.DirWeight)
}

func TestMoveWeightAlpha(t *testing.T) {
	fp := newTestMixture(t, 40, 4, 4)
	for i := 0; i < 20; i++ {
		rate := fp.MoveWeightAlpha(1, 10)
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 1.0)
		assert.Greater(t, fp.WeightAlpha, 0.0)
	}
}

func TestResampleProfilesFollowsCounts(t *testing.T) {
	fp := newTestMixture(t, 10, 4, 2)
	suff := [][]float64{{1000, 0, 0, 0}, {0, 0, 0, 1000}}
	require.NoError(t, fp.ResampleProfiles(suff))
	assert.Greater(t, fp.Profiles[0][0], 0.9)
	assert.Greater(t, fp.Profiles[1][3], 0.9)
	for k := 0; k < fp.N; k++ {
		assert.InDelta(t, 1.0, floats.Sum(fp.Profiles[k]), 1e-9)
	}
}

func TestResampleProfilesSkippedForEmpiricalMixture(t *testing.T) {
	fp := newTestMixture(t, 10, 4, 2)
	fp.EmpMix = true
	before := append([]float64(nil), fp.Profiles[0]...)
	require.NoError(t, fp.ResampleProfiles([][]float64{{1000, 0, 0, 0}, {0, 0, 0, 1000}}))
	assert.Equal(t, before, fp.Profiles[0])
}
