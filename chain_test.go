package finitemutsel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAlignment = `4 12
human  ACGTACGTAACC
chimp  ACGTACGAAACC
mouse  ACTTACGTATCG
rat    GCTTACGTATCG
`

func testChainConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "aln.phy")
	require.NoError(t, os.WriteFile(data, []byte(testAlignment), 0o644))
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.Data = data
	cfg.Alphabet = "ACGT"
	cfg.NCat = 3
	cfg.NProcs = 3
	cfg.Until = 3
	cfg.OutDir = dir
	cfg.TraceDB = filepath.Join(dir, "trace.db")
	return cfg
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Count(string(b), "\n")
}

func TestChainRunAndResume(t *testing.T) {
	ctx := context.Background()
	cfg := testChainConfig(t)
	chain, err := NewChain(ctx, cfg, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, 12, chain.Data.NSite())
	assert.Len(t, chain.Data.Taxa, 4)
	require.NoError(t, chain.Run(ctx))
	require.NoError(t, chain.Close())

	assert.Equal(t, 4, countLines(t, filepath.Join(cfg.OutDir, "test.trace")))
	assert.Equal(t, 3, countLines(t, filepath.Join(cfg.OutDir, "test.chain")))

	b, err := os.ReadFile(filepath.Join(cfg.OutDir, "test.run.json"))
	require.NoError(t, err)
	var summary RunSummary
	require.NoError(t, json.Unmarshal(b, &summary))
	assert.Equal(t, chain.RunID, summary.RunID)
	assert.Equal(t, 3, summary.Sweeps)
	assert.Negative(t, summary.LogL)

	store, err := OpenTraceStore(ctx, cfg.TraceDB, chain.RunID)
	require.NoError(t, err)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, store.Close())

	resume := DefaultConfig()
	resume.Name = "test"
	resume.OutDir = cfg.OutDir
	resume.Alphabet = "ACGT"
	resume.NProcs = 4
	resume.Until = 5
	again, err := ResumeChain(ctx, resume, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Sampler.GetSize())
	assert.Equal(t, runSeed(cfg.Seed, 3, 4), again.Seed)
	assert.Equal(t, cfg.Seed, chain.Seed)
	assert.Equal(t, cfg.Data, again.Cfg.Data)
	require.NoError(t, again.Run(ctx))
	require.NoError(t, again.Close())
	assert.Equal(t, 6, countLines(t, filepath.Join(cfg.OutDir, "test.trace")))
	assert.Equal(t, 5, again.Sampler.GetSize())
}

func TestRunSeedBlocksAreDisjoint(t *testing.T) {
	const seed, nprocs = 11, 3
	used := map[uint64]int{}
	for _, size := range []int{0, 1, 2, 7, 50} {
		base := runSeed(seed, size, nprocs)
		for rank := 0; rank < nprocs; rank++ {
			prev, dup := used[base+uint64(rank)]
			require.False(t, dup, "size %d rank %d reuses the seed of size %d", size, rank, prev)
			used[base+uint64(rank)] = size
		}
	}
	assert.Equal(t, uint64(seed), runSeed(seed, 0, nprocs))
}

func TestChainStopsWhenCancelled(t *testing.T) {
	cfg := testChainConfig(t)
	cfg.Until = -1
	cfg.TraceDB = ""
	ctx, cancel := context.WithCancel(context.Background())
	chain, err := NewChain(ctx, cfg, nil, nil)
	require.NoError(t, err)
	cancel()
	require.NoError(t, chain.Run(ctx))
	assert.Zero(t, chain.Sampler.GetSize())
	require.NoError(t, chain.Close())
	assert.Equal(t, 1, countLines(t, filepath.Join(cfg.OutDir, "test.trace")))
}

func TestChainRejectsAminoAcidCatalogOnNucleotides(t *testing.T) {
	cfg := testChainConfig(t)
	cfg.DC = true
	cfg.EmpMix = true
	cfg.MixType = "CG6"
	_, err := NewChain(context.Background(), cfg, nil, nil)
	require.ErrorIs(t, err, ErrBadStateCount)
	assert.True(t, IsConfigError(err))
}

func TestChainMissingData(t *testing.T) {
	cfg := testChainConfig(t)
	cfg.Data = filepath.Join(t.TempDir(), "missing.phy")
	_, err := NewChain(context.Background(), cfg, nil, nil)
	assert.True(t, IsConfigError(err))
}
