package finitemutsel

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

//MsgType tags the requests the master sends to workers
type MsgType int

const (
	MsgBroadcast MsgType = iota
	MsgCollapse
	MsgUnfold
	MsgLikelihood
	MsgResampleAlloc
	MsgDrawAlloc
)

func (t MsgType) String() string {
	switch t {
	case MsgBroadcast:
		return "broadcast"
	case MsgCollapse:
		return "collapse"
	case MsgUnfold:
		return "unfold"
	case MsgLikelihood:
		return "likelihood"
	case MsgResampleAlloc:
		return "resample-alloc"
	case MsgDrawAlloc:
		return "draw-alloc"
	}
	return "unknown"
}

//Message is one master request. State, when set, is owned by the receiving worker.
type Message struct {
	Type  MsgType
	State *GlobalState
	NRep  int
}

//Reply is the answer of a single worker; every request gets exactly one
type Reply struct {
	Rank      int
	Err       error
	LogL      float64
	Alloc     []int
	Occupancy []int
	SuffStat  [][]float64
}

//Worker owns a contiguous block of sites and a replica of the global parameters
type Worker struct {
	exec   ExecContext
	sites  SiteRange
	model  SiteModel
	rnd    *Random
	state  *GlobalState
	alloc  []int
	suff   [][]float64 // per-site statistics, only held while collapsed
	logger *zap.Logger
}

//NewWorker will set up the worker of rank exec.Rank
func NewWorker(exec ExecContext, sites SiteRange, model SiteModel, rnd *Random, logger *zap.Logger) (*Worker, error) {
	if exec.IsMaster() {
		return nil, fmt.Errorf("new worker: %w", ErrWorkerOnly)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		exec:   exec,
		sites:  sites,
		model:  model,
		rnd:    rnd,
		alloc:  make([]int, sites.Len()),
		logger: logger.With(zap.Int("rank", exec.Rank)),
	}, nil
}

//serve answers requests until the inbox is closed or ctx is done
func (w *Worker) serve(ctx context.Context, in <-chan Message, out chan<- Reply) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			rep := w.Execute(msg)
			select {
			case out <- rep:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

//Execute will carry out a single request
func (w *Worker) Execute(msg Message) Reply {
	rep := Reply{Rank: w.exec.Rank}
	if msg.State != nil {
		w.state = msg.State
		copy(w.alloc, w.state.Alloc[w.sites.Min:w.sites.Max])
	}
	if w.state == nil && msg.Type != MsgBroadcast {
		rep.Err = fmt.Errorf("%s before any broadcast: %w", msg.Type, ErrNoComponents)
		return rep
	}
	switch msg.Type {
	case MsgBroadcast:
	case MsgCollapse:
		w.suff, rep.Err = w.model.SiteSuffStats(w.state.Tree, w.sites)
	case MsgUnfold:
		w.suff = nil
		rep.LogL, rep.Err = w.logLikelihood()
	case MsgLikelihood:
		rep.LogL, rep.Err = w.logLikelihood()
	case MsgResampleAlloc:
		rep.Err = w.resampleAlloc(msg.NRep)
		if rep.Err == nil {
			rep.Alloc = append([]int(nil), w.alloc...)
			rep.Occupancy, rep.SuffStat = w.reduce()
		}
	case MsgDrawAlloc:
		rep.Err = DrawAllocFromPrior(w.exec, w.rnd, w.state.Weights, w.alloc)
		rep.Alloc = append([]int(nil), w.alloc...)
	default:
		rep.Err = fmt.Errorf("unknown message %d", msg.Type)
	}
	return rep
}

func (w *Worker) logLikelihood() (float64, error) {
	return w.model.LogLikelihood(w.state.Tree, w.sites, func(site int) []float64 {
		return w.state.Profiles[w.alloc[site-w.sites.Min]]
	})
}

//resampleAlloc runs nrep Gibbs sweeps over the local sites given the collapsed statistics
func (w *Worker) resampleAlloc(nrep int) error {
	if w.suff == nil && w.sites.Len() > 0 {
		return fmt.Errorf("reallocation on rank %d: %w", w.exec.Rank, ErrNotCollapsed)
	}
	n := w.state.N
	logw := make([]float64, n)
	logprof := make([][]float64, n)
	for k := 0; k < n; k++ {
		logw[k] = math.Log(w.state.Weights[k])
		logprof[k] = make([]float64, len(w.state.Profiles[k]))
		for a, p := range w.state.Profiles[k] {
			logprof[k][a] = math.Log(p)
		}
	}
	post := make([]float64, n)
	for rep := 0; rep < nrep; rep++ {
		for j, ss := range w.suff {
			for k := 0; k < n; k++ {
				post[k] = logw[k]
				for a, c := range ss {
					if c != 0 {
						post[k] += c * logprof[k][a]
					}
				}
			}
			w.alloc[j] = w.rnd.LogFiniteDiscrete(post)
		}
	}
	return nil
}

//reduce returns the local share of the occupancy vector and of the per-component statistics
func (w *Worker) reduce() ([]int, [][]float64) {
	n := w.state.N
	occ := make([]int, n)
	suff := make([][]float64, n)
	for k := range suff {
		suff[k] = make([]float64, w.model.Dim())
	}
	for j, k := range w.alloc {
		occ[k]++
		for a, c := range w.suff[j] {
			suff[k][a] += c
		}
	}
	return occ, suff
}

//DrawAllocFromPrior redraws the allocation of a block of sites from the weights alone.
//The master owns no sites, so calling it on rank 0 is an error.
func DrawAllocFromPrior(exec ExecContext, rnd *Random, weights []float64, alloc []int) error {
	if exec.IsMaster() {
		return fmt.Errorf("draw allocation from prior: %w", ErrWorkerOnly)
	}
	for i := range alloc {
		alloc[i] = rnd.FiniteDiscrete(weights)
	}
	return nil
}
