package finitemutsel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBirthDeathRatiosAreReciprocal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kmin := rapid.IntRange(1, 50).Draw(t, "kmin")
		k := rapid.IntRange(kmin, kmin+50).Draw(t, "k")
		nsite := rapid.IntRange(1, 1000).Draw(t, "nsite")
		alpha := rapid.Float64Range(0.01, 20).Draw(t, "alpha")
		forced := k == kmin
		prod := birthRatio(k, kmin, nsite, alpha, forced) * deathRatio(k+1, kmin, nsite, alpha)
		if prod < 1-1e-9 || prod > 1+1e-9 {
			t.Fatalf("birth*death = %v for K=%d Kmin=%d", prod, k, kmin)
		}
	})
}

//sameComponent returns, for each component label, the sorted list of sites it holds
func sameComponent(alloc []int) map[int][]int {
	groups := map[int][]int{}
	for i, k := range alloc {
		groups[k] = append(groups[k], i)
	}
	out := map[int][]int{}
	for _, sites := range groups {
		for _, i := range sites {
			out[i] = sites
		}
	}
	return out
}

func TestCompactPacksOccupiedSlots(t *testing.T) {
	fp := newTestMixture(t, 6, 4, 6)
	require.NoError(t, fp.SetAlloc([]int{5, 5, 2, 2, 0, 3}))
	before := sameComponent(fp.Alloc)
	kmin := fp.compact()
	assert.Equal(t, 4, kmin)
	for k := 0; k < kmin; k++ {
		assert.Positive(t, fp.Occupancy[k])
	}
	for k := kmin; k < fp.N; k++ {
		assert.Zero(t, fp.Occupancy[k])
	}
	assert.Equal(t, before, sameComponent(fp.Alloc))

	snapshot := append([]int(nil), fp.Alloc...)
	assert.Equal(t, kmin, fp.compact())
	assert.Equal(t, snapshot, fp.Alloc)
}

func TestCompactCarriesProfiles(t *testing.T) {
	fp := newTestMixture(t, 3, 4, 3)
	require.NoError(t, fp.SetAlloc([]int{2, 2, 2}))
	prof := append([]float64(nil), fp.Profiles[2]...)
	assert.Equal(t, 1, fp.compact())
	assert.Equal(t, []int{0, 0, 0}, fp.Alloc)
	assert.Equal(t, prof, fp.Profiles[0])
}

func TestMoveNcomponentBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nsite := rapid.IntRange(1, 60).Draw(t, "nsite")
		ncat := rapid.IntRange(1, nsite).Draw(t, "ncat")
		seed := rapid.Uint64().Draw(t, "seed")
		fp, err := NewFiniteProfile(MixtureOptions{NSite: nsite, Dim: 4, NCat: ncat, KMax: nsite}, NewRandom(seed), nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := fp.Sample(nil); err != nil {
			t.Fatal(err)
		}
		before := sameComponent(fp.Alloc)
		rate, err := fp.MoveNcomponent(20)
		if err != nil {
			t.Fatal(err)
		}
		kmin := fp.NOccupied(fp.N)
		if fp.N < kmin || fp.N > fp.KMax {
			t.Fatalf("N=%d outside [%d,%d]", fp.N, kmin, fp.KMax)
		}
		if rate < 0 || rate > 1 {
			t.Fatalf("rate %v", rate)
		}
		for i, sites := range sameComponent(fp.Alloc) {
			if len(sites) != len(before[i]) {
				t.Fatalf("site %d changed group", i)
			}
		}
		for k := 0; k < fp.N; k++ {
			if fp.Profiles[k] == nil {
				t.Fatalf("live slot %d has no profile", k)
			}
		}
	})
}

func TestMoveNcomponentSingletons(t *testing.T) {
	fp := newTestMixture(t, 100, 4, -1)
	require.Equal(t, 100, fp.N)
	rate, err := fp.MoveNcomponent(100)
	require.NoError(t, err)
	assert.Equal(t, 100, fp.N)
	assert.Zero(t, rate)
	assert.Equal(t, 100, fp.NOccupied(fp.N))
}

func TestComponentBoundDefaults(t *testing.T) {
	for _, tc := range []struct{ ncat, kmax, want int }{
		{10, 0, 50},
		{10, 5, 10},
		{10, 20, 20},
		{-1, 0, 50},
	} {
		fp, err := NewFiniteProfile(MixtureOptions{NSite: 50, Dim: 4, NCat: tc.ncat, KMax: tc.kmax}, NewRandom(1), nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, fp.GetNmodeMax(), "ncat %d kmax %d", tc.ncat, tc.kmax)
	}
}
