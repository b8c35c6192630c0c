package finitemutsel

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceHeaderColumns(t *testing.T) {
	want := "#iter\ttime\tpruning\tlnL\tlength\tcodonent\tomega\tNmode\tstatent\tstatalpha\t" +
		"nucsA\tnucsC\tnucsG\tnucsT\tnucrrAC\tnucrrAG\tnucrrAT\tnucrrCG\tnucrrCT\tnucrrGT\n"
	assert.Equal(t, want, TraceHeader)
}

func TestTraceRowWriteTo(t *testing.T) {
	row := TraceRow{
		Iter: 12, Time: 0.5, Pruning: 40, LnL: -1234.5, Length: 2.25, CodonEnt: 4, Omega: 1, Nmode: 6,
		StatEnt: 1.75, StatAlph: 1.5,
		NucStat: [4]float64{0.25, 0.25, 0.25, 0.25},
		NucRR:   [6]float64{1, 2, 3, 4, 5, 6},
	}
	var buf bytes.Buffer
	n, err := row.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	fields := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	require.Len(t, fields, len(strings.Split(strings.TrimSpace(TraceHeader), "\t")))
	assert.Equal(t, []string{"12", "0.5", "40", "-1234.5", "2.25", "4", "1", "6", "1.75", "1.5"}, fields[:10])
	assert.Equal(t, "6", fields[19])
}

func TestTraceStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trace.db")
	ts, err := OpenTraceStore(ctx, path, "run-a")
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		require.NoError(t, ts.Append(ctx, TraceRow{Iter: i, LnL: -float64(i), Nmode: 2}))
	}
	n, err := ts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, ts.Close())

	other, err := OpenTraceStore(ctx, path, "run-b")
	require.NoError(t, err)
	defer other.Close()
	n, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
