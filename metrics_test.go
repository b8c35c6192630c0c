package finitemutsel

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepTimers(t *testing.T) {
	reg := prometheus.NewRegistry()
	timers := NewStepTimers(reg)

	timers.Stop(StepUnfold)
	assert.Zero(t, timers.Elapsed(StepUnfold))

	timers.Start(StepCollapse)
	time.Sleep(2 * time.Millisecond)
	timers.Stop(StepCollapse)
	first := timers.Elapsed(StepCollapse)
	assert.GreaterOrEqual(t, first, 2*time.Millisecond)

	timers.Stop(StepCollapse)
	assert.Equal(t, first, timers.Elapsed(StepCollapse))

	counted := testutil.ToFloat64(timers.Counter().WithLabelValues(StepCollapse))
	assert.InDelta(t, first.Seconds(), counted, 1e-9)

	timers.Reset()
	assert.Zero(t, timers.Elapsed(StepCollapse))
	assert.InDelta(t, counted, testutil.ToFloat64(timers.Counter().WithLabelValues(StepCollapse)), 1e-9)

	n, err := testutil.GatherAndCount(reg, "fmsel_step_seconds_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStepTimersUnregistered(t *testing.T) {
	a := NewStepTimers(nil)
	b := NewStepTimers(nil)
	a.Start(StepTotal)
	a.Stop(StepTotal)
	assert.Zero(t, testutil.ToFloat64(b.Counter().WithLabelValues(StepTotal)))
}

func TestStepTimersAbortDropsOpenWindows(t *testing.T) {
	timers := NewStepTimers(nil)
	timers.Start(StepSuffStat)
	timers.Abort()
	timers.Stop(StepSuffStat)
	assert.Zero(t, timers.Elapsed(StepSuffStat))
}
