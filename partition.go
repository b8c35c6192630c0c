package finitemutsel

import "fmt"

//ExecContext identifies the rank an operation runs on. Rank 0 is the master, which owns no sites.
type ExecContext struct {
	Rank int
	Size int
}

//IsMaster reports whether this is rank 0
func (e ExecContext) IsMaster() bool {
	return e.Rank == 0
}

//SiteRange is the half-open site interval [Min,Max) owned by a worker
type SiteRange struct {
	Min int
	Max int
}

//Len returns the number of sites in the range
func (r SiteRange) Len() int {
	return r.Max - r.Min
}

//Partition splits nsite sites across the nprocs-1 workers. The returned slice is indexed by rank;
//entry 0 is the master's empty range and the last worker absorbs the remainder.
func Partition(nsite, nprocs int) ([]SiteRange, error) {
	if nprocs < 2 {
		return nil, fmt.Errorf("%d processes, need a master and at least one worker: %w", nprocs, ErrBadPartition)
	}
	if nsite < 0 {
		return nil, fmt.Errorf("%d sites: %w", nsite, ErrBadPartition)
	}
	ranges := make([]SiteRange, nprocs)
	width := nsite / (nprocs - 1)
	for rank := 1; rank < nprocs; rank++ {
		ranges[rank].Min = (rank - 1) * width
		if rank == nprocs-1 {
			ranges[rank].Max = nsite
		} else {
			ranges[rank].Max = rank * width
		}
	}
	return ranges, nil
}
