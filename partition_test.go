package finitemutsel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPartitionEven(t *testing.T) {
	ranges, err := Partition(100, 5)
	require.NoError(t, err)
	assert.Equal(t, []SiteRange{{0, 0}, {0, 25}, {25, 50}, {50, 75}, {75, 100}}, ranges)
}

func TestPartitionRemainderGoesToLastWorker(t *testing.T) {
	ranges, err := Partition(10, 4)
	require.NoError(t, err)
	assert.Equal(t, []SiteRange{{0, 0}, {0, 3}, {3, 6}, {6, 10}}, ranges)
}

func TestPartitionNeedsAWorker(t *testing.T) {
	_, err := Partition(10, 1)
	assert.ErrorIs(t, err, ErrBadPartition)
}

func TestPartitionTilesSites(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nsite := rapid.IntRange(0, 5000).Draw(t, "nsite")
		nprocs := rapid.IntRange(2, 64).Draw(t, "nprocs")
		ranges, err := Partition(nsite, nprocs)
		if err != nil {
			t.Fatal(err)
		}
		if ranges[0].Len() != 0 {
			t.Fatalf("master owns %v", ranges[0])
		}
		next := 0
		for rank := 1; rank < nprocs; rank++ {
			if ranges[rank].Min != next || ranges[rank].Max < ranges[rank].Min {
				t.Fatalf("rank %d range %v, expected to start at %d", rank, ranges[rank], next)
			}
			next = ranges[rank].Max
		}
		if next != nsite {
			t.Fatalf("ranges end at %d, want %d", next, nsite)
		}
	})
}

func TestExecContextRoles(t *testing.T) {
	assert.True(t, ExecContext{Rank: 0, Size: 3}.IsMaster())
	assert.False(t, ExecContext{Rank: 2, Size: 3}.IsMaster())
}
