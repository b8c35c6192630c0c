package finitemutsel

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//Reduction is the master-side sum of the worker replies to a reallocation
type Reduction struct {
	Alloc     []int
	Occupancy []int
	SuffStat  [][]float64
}

//Coordinator is the master end of the in-process cluster. Each worker rank runs in its own goroutine and
//only sees deep copies of the master state.
type Coordinator struct {
	exec      ExecContext
	nsite     int
	dim       int
	ranges    []SiteRange
	inbox     []chan Message
	outbox    chan Reply
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	collapsed bool
	closed    bool
	logger    *zap.Logger
}

//NewCoordinator will partition nsite sites over nprocs-1 workers and start them.
//Cancelling ctx does not interrupt an exchange in flight; callers stop between sweeps.
func NewCoordinator(ctx context.Context, nprocs, nsite, dim int, factory SiteModelFactory, seed uint64, logger *zap.Logger) (*Coordinator, error) {
	ranges, err := Partition(nsite, nprocs)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, gctx := errgroup.WithContext(cctx)
	c := &Coordinator{
		exec:   ExecContext{Rank: 0, Size: nprocs},
		nsite:  nsite,
		dim:    dim,
		ranges: ranges,
		inbox:  make([]chan Message, nprocs-1),
		outbox: make(chan Reply, nprocs-1),
		ctx:    gctx,
		cancel: cancel,
		group:  group,
		logger: logger,
	}
	for rank := 1; rank < nprocs; rank++ {
		exec := ExecContext{Rank: rank, Size: nprocs}
		model, err := factory(exec, ranges[rank])
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("site model for rank %d: %w", rank, err)
		}
		w, err := NewWorker(exec, ranges[rank], model, NewRandom(seed+uint64(rank)), logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		in := make(chan Message)
		c.inbox[rank-1] = in
		group.Go(func() error {
			return w.serve(gctx, in, c.outbox)
		})
	}
	logger.Debug("started workers", zap.Int("nprocs", nprocs), zap.Int("nsite", nsite))
	return c, nil
}

//Ranges returns the site partition indexed by rank
func (c *Coordinator) Ranges() []SiteRange {
	return c.ranges
}

//Collapsed reports whether workers currently hold sufficient statistics instead of full likelihoods
func (c *Coordinator) Collapsed() bool {
	return c.collapsed
}

//exchange sends one message to every worker and waits for every reply
func (c *Coordinator) exchange(msg Message) ([]Reply, error) {
	for r, in := range c.inbox {
		m := msg
		if msg.State != nil {
			m.State = msg.State.clone()
		}
		select {
		case in <- m:
		case <-c.ctx.Done():
			return nil, fmt.Errorf("%s to rank %d: %w", msg.Type, r+1, c.ctx.Err())
		}
	}
	replies := make([]Reply, len(c.inbox))
	var errs []error
	for range c.inbox {
		select {
		case rep := <-c.outbox:
			replies[rep.Rank-1] = rep
			if rep.Err != nil {
				errs = append(errs, fmt.Errorf("rank %d %s: %w", rep.Rank, msg.Type, rep.Err))
			}
		case <-c.ctx.Done():
			return nil, fmt.Errorf("%s: %w", msg.Type, c.ctx.Err())
		}
	}
	return replies, errors.Join(errs...)
}

//Broadcast ships the global parameters to every worker
func (c *Coordinator) Broadcast(state *GlobalState) error {
	_, err := c.exchange(Message{Type: MsgBroadcast, State: state})
	return err
}

//Collapse switches workers to the sufficient-statistic representation
func (c *Coordinator) Collapse() error {
	if c.collapsed {
		return fmt.Errorf("collapse: %w", ErrCollapsed)
	}
	if _, err := c.exchange(Message{Type: MsgCollapse}); err != nil {
		return err
	}
	c.collapsed = true
	return nil
}

//Unfold restores the full likelihood representation and returns the total log-likelihood
func (c *Coordinator) Unfold() (float64, error) {
	if !c.collapsed {
		return 0, fmt.Errorf("unfold: %w", ErrNotCollapsed)
	}
	replies, err := c.exchange(Message{Type: MsgUnfold})
	c.collapsed = false
	if err != nil {
		return 0, err
	}
	return sumLogL(replies), nil
}

//LogLikelihood returns the total log-likelihood of the unfolded state
func (c *Coordinator) LogLikelihood() (float64, error) {
	if err := c.RequireUnfolded(); err != nil {
		return 0, err
	}
	replies, err := c.exchange(Message{Type: MsgLikelihood})
	if err != nil {
		return 0, err
	}
	return sumLogL(replies), nil
}

//RequireUnfolded fails with ErrCollapsed while workers hold sufficient statistics
func (c *Coordinator) RequireUnfolded() error {
	if c.collapsed {
		return ErrCollapsed
	}
	return nil
}

func sumLogL(replies []Reply) float64 {
	total := 0.
	for _, r := range replies {
		total += r.LogL
	}
	return total
}

//ResampleAlloc has every worker run nrep Gibbs sweeps over its sites and reduces the results
func (c *Coordinator) ResampleAlloc(state *GlobalState, nrep int) (*Reduction, error) {
	if !c.collapsed {
		return nil, fmt.Errorf("resample allocation: %w", ErrNotCollapsed)
	}
	replies, err := c.exchange(Message{Type: MsgResampleAlloc, State: state, NRep: nrep})
	if err != nil {
		return nil, err
	}
	red := &Reduction{
		Alloc:     make([]int, c.nsite),
		Occupancy: make([]int, state.N),
		SuffStat:  make([][]float64, state.N),
	}
	for k := range red.SuffStat {
		red.SuffStat[k] = make([]float64, c.dim)
	}
	for _, rep := range replies {
		r := c.ranges[rep.Rank]
		copy(red.Alloc[r.Min:r.Max], rep.Alloc)
		for k, o := range rep.Occupancy {
			red.Occupancy[k] += o
		}
		for k, s := range rep.SuffStat {
			for a, v := range s {
				red.SuffStat[k][a] += v
			}
		}
	}
	return red, nil
}

//DrawAllocFromPrior has every worker redraw its sites from the weights and gathers the full allocation
func (c *Coordinator) DrawAllocFromPrior(state *GlobalState) ([]int, error) {
	replies, err := c.exchange(Message{Type: MsgDrawAlloc, State: state})
	if err != nil {
		return nil, err
	}
	alloc := make([]int, c.nsite)
	for _, rep := range replies {
		r := c.ranges[rep.Rank]
		copy(alloc[r.Min:r.Max], rep.Alloc)
	}
	return alloc, nil
}

//Close stops the workers and waits for them
func (c *Coordinator) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, in := range c.inbox {
		if in != nil {
			close(in)
		}
	}
	err := c.group.Wait()
	c.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
