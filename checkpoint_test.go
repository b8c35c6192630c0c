package finitemutsel

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() Header {
	h := DefaultHeader()
	h.DataFile = "data/globins.phy"
	h.CodeType = "Universal"
	h.NCat = -1
	h.FixNcomp = true
	h.EmpMix = true
	h.MixType = "CG6"
	h.FixTopo = true
	h.NSPR = 7
	h.NNNI = 3
	h.FixOmega = true
	h.OmegaPrior = 1
	h.DirWeightPrior = 2
	h.DC = true
	h.Tree = "((a:0.1,b:0.2):0.05,c:0.3);"
	return h
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h))
	got, err := ReadHeader(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderLayoutPerVersion(t *testing.T) {
	h := sampleHeader()
	for _, tc := range []struct {
		version string
		lines   int
		nspr    int
		omega   int
	}{
		{"1.4", 12, 10, 0},
		{"1.5", 13, 7, 0},
		{"1.6", 14, 7, 1},
		{"2.0", 14, 7, 1},
	} {
		t.Run(tc.version, func(t *testing.T) {
			h.Version = tc.version
			var buf bytes.Buffer
			require.NoError(t, WriteHeader(&buf, h))
			assert.Equal(t, tc.lines, strings.Count(buf.String(), "\n"))
			got, err := ReadHeader(bufio.NewReader(&buf))
			require.NoError(t, err)
			assert.Equal(t, tc.nspr, got.NSPR)
			assert.Equal(t, tc.omega, got.OmegaPrior)
			assert.Equal(t, h.Tree, got.Tree)
			assert.Equal(t, h.DC, got.DC)
		})
	}
}

func TestReadOldHeaderDefaults(t *testing.T) {
	old := strings.Join([]string{"1.3", "aln.phy", "Universal", "4", "0\t0\tnone", "0", "1", "0", "0", "1", "0", "(a:1,b:1);"}, "\n") + "\n"
	h, err := ReadHeader(bufio.NewReader(strings.NewReader(old)))
	require.NoError(t, err)
	assert.Equal(t, 10, h.NSPR)
	assert.Equal(t, 0, h.NNNI)
	assert.Equal(t, 0, h.OmegaPrior)
	assert.Equal(t, 4, h.NCat)
	assert.True(t, h.FixBL)
	assert.Equal(t, 1, h.DirWeightPrior)
	assert.Equal(t, "(a:1,b:1);", h.Tree)
}

func TestReadHeaderErrors(t *testing.T) {
	_, err := ReadHeader(bufio.NewReader(strings.NewReader("abc\n")))
	assert.ErrorIs(t, err, ErrCheckpoint)
	_, err = ReadHeader(bufio.NewReader(strings.NewReader("1.6\nd\nc\nx\n")))
	assert.ErrorIs(t, err, ErrCheckpoint)
	_, err = ReadHeader(bufio.NewReader(strings.NewReader("1.6\nd\nc\n3\n")))
	assert.ErrorIs(t, err, ErrCheckpoint)
}

func TestSchemaFor(t *testing.T) {
	s, err := schemaFor("1.4")
	require.NoError(t, err)
	assert.False(t, s[fieldMoves])
	assert.False(t, s[fieldOmegaPrior])
	s, err = schemaFor("1.5")
	require.NoError(t, err)
	assert.True(t, s[fieldMoves])
	assert.False(t, s[fieldOmegaPrior])
	s, err = schemaFor("1.10")
	require.NoError(t, err)
	assert.True(t, s[fieldOmegaPrior])
}

func TestBodyRoundTrip(t *testing.T) {
	fp := newTestMixture(t, 30, 4, 5)
	fp.WeightAlpha = 0.123456789012345
	fp.DirWeight[2] = 3.3333333333333335
	body := BodyState{Branch: BranchHyper{Alpha: 1.5, Beta: 7.25}, Lengths: []float64{0.1, 1e-7, 2.5}}
	var buf bytes.Buffer
	require.NoError(t, WriteBody(&buf, body, fp))

	got, err := NewFiniteProfile(MixtureOptions{NSite: 30, Dim: 4, NCat: 1}, NewRandom(1), nil)
	require.NoError(t, err)
	gotBody, err := ReadBody(&buf, got)
	require.NoError(t, err)
	assert.Equal(t, body, gotBody)
	assert.Equal(t, fp.N, got.N)
	assert.Equal(t, fp.WeightAlpha, got.WeightAlpha)
	assert.Equal(t, fp.DirWeight, got.DirWeight)
	assert.Equal(t, fp.LiveWeights(), got.LiveWeights())
	assert.Equal(t, fp.Alloc, got.Alloc)
	for k := 0; k < fp.N; k++ {
		assert.Equal(t, fp.Profiles[k], got.Profiles[k])
	}
	fp.UpdateOccupancyNumbers()
	assert.Equal(t, fp.Occupancy[:fp.N], got.Occupancy[:got.N])
}

func TestReadBodyRejectsBadAllocation(t *testing.T) {
	fp := newTestMixture(t, 3, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, WriteBody(&buf, BodyState{Branch: BranchHyper{1, 1}}, fp))
	corrupt := strings.Replace(buf.String(), "0\t0\t0\n", "0\t4\t0\n", 1)
	_, err := ReadBody(strings.NewReader(corrupt), newTestMixture(t, 3, 2, 1))
	assert.ErrorIs(t, err, ErrCheckpoint)

	_, err = ReadBody(strings.NewReader("1 1 0 2"), newTestMixture(t, 3, 2, 1))
	assert.ErrorIs(t, err, ErrCheckpoint)
}
