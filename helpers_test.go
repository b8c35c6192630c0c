package finitemutsel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestMixture(t *testing.T, nsite, dim, ncat int) *FiniteProfile {
	t.Helper()
	fp, err := NewFiniteProfile(MixtureOptions{NSite: nsite, Dim: dim, NCat: ncat}, NewRandom(7), nil)
	require.NoError(t, err)
	require.NoError(t, fp.Sample(nil))
	return fp
}

//testCounts builds column counts where site i shows state i%dim in every one of ntax taxa
func testCounts(nsite, dim, ntax int) *ColumnCounts {
	counts := mat.NewDense(nsite, dim, nil)
	for i := 0; i < nsite; i++ {
		counts.Set(i, i%dim, float64(ntax))
	}
	return &ColumnCounts{Alphabet: AminoAcids[:dim], Counts: counts}
}
