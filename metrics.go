package finitemutsel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

//step names used by the sampler
const (
	StepTotal    = "total"
	StepProposal = "proposal"
	StepCollapse = "collapse"
	StepSuffStat = "suffstat"
	StepUnfold   = "unfold"
)

//StepTimers accumulates wall time per sweep step. The local totals feed the trace and are reset at every
//trace line; the prometheus counter only grows.
type StepTimers struct {
	seconds *prometheus.CounterVec
	elapsed map[string]time.Duration
	started map[string]time.Time
}

//NewStepTimers will register the step counter with reg; a nil reg keeps the counter unregistered
func NewStepTimers(reg prometheus.Registerer) *StepTimers {
	seconds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fmsel",
		Name:      "step_seconds_total",
		Help:      "Wall time spent in each step of the sweep.",
	}, []string{"step"})
	if reg != nil {
		reg.MustRegister(seconds)
	}
	return &StepTimers{
		seconds: seconds,
		elapsed: make(map[string]time.Duration),
		started: make(map[string]time.Time),
	}
}

//Start opens a timing window for step
func (t *StepTimers) Start(step string) {
	t.started[step] = time.Now()
}

//Stop closes the timing window of step
func (t *StepTimers) Stop(step string) {
	begin, ok := t.started[step]
	if !ok {
		return
	}
	delete(t.started, step)
	d := time.Since(begin)
	t.elapsed[step] += d
	t.seconds.WithLabelValues(step).Add(d.Seconds())
}

//Elapsed returns the time accumulated in step since the last Reset
func (t *StepTimers) Elapsed(step string) time.Duration {
	return t.elapsed[step]
}

//Abort drops every open window without recording it
func (t *StepTimers) Abort() {
	clear(t.started)
}

//Reset zeroes the local totals
func (t *StepTimers) Reset() {
	clear(t.elapsed)
}

//Counter exposes the per-step counter vector
func (t *StepTimers) Counter() *prometheus.CounterVec {
	return t.seconds
}
