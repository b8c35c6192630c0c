package finitemutsel

import (
	"bytes"
	"fmt"
	"strconv"
)

//Allocation maps every site to one component slot and keeps per-slot occupancy counts.
//Occupancy is only guaranteed to be current after UpdateOccupancyNumbers.
type Allocation struct {
	NSite     int
	Alloc     []int
	Occupancy []int
}

//NewAllocation will return an empty table for nsite sites and kmax component slots
func NewAllocation(nsite, kmax int) *Allocation {
	a := &Allocation{
		NSite:     nsite,
		Alloc:     make([]int, nsite),
		Occupancy: make([]int, kmax),
	}
	for i := range a.Alloc {
		a.Alloc[i] = -1
	}
	return a
}

//AddSite assigns site i to component k
func (a *Allocation) AddSite(i, k int) {
	a.Alloc[i] = k
	a.Occupancy[k]++
}

//RemoveSite detaches site i from component k
func (a *Allocation) RemoveSite(i, k int) {
	a.Alloc[i] = -1
	a.Occupancy[k]--
}

//UpdateOccupancyNumbers recomputes the occupancy vector in one pass over the allocation
func (a *Allocation) UpdateOccupancyNumbers() {
	for k := range a.Occupancy {
		a.Occupancy[k] = 0
	}
	for _, k := range a.Alloc {
		if k >= 0 {
			a.Occupancy[k]++
		}
	}
}

//Relabel moves every site of component a to b and every site of b to a
func (a *Allocation) Relabel(k1, k2 int) {
	for i, k := range a.Alloc {
		switch k {
		case k1:
			a.Alloc[i] = k2
		case k2:
			a.Alloc[i] = k1
		}
	}
	a.Occupancy[k1], a.Occupancy[k2] = a.Occupancy[k2], a.Occupancy[k1]
}

//NOccupied returns the number of slots among the first n holding at least one site
func (a *Allocation) NOccupied(n int) int {
	count := 0
	for _, o := range a.Occupancy[:n] {
		if o > 0 {
			count++
		}
	}
	return count
}

//ClusterString will return a string of the sites held by each occupied component
func (a *Allocation) ClusterString(n int) string {
	var buffer bytes.Buffer
	members := make([][]int, n)
	for i, k := range a.Alloc {
		if k >= 0 && k < n {
			members[k] = append(members[k], i)
		}
	}
	for _, sites := range members {
		if len(sites) == 0 {
			continue
		}
		buffer.WriteString("(")
		for ind, site := range sites {
			buffer.WriteString(strconv.Itoa(site))
			if ind != len(sites)-1 {
				buffer.WriteString(",")
			}
		}
		buffer.WriteString(");")
	}
	return buffer.String()
}

//SetAlloc replaces the whole allocation and recomputes occupancy
func (a *Allocation) SetAlloc(alloc []int) error {
	if len(alloc) != a.NSite {
		return fmt.Errorf("allocation has %d sites, want %d: %w", len(alloc), a.NSite, ErrBadPartition)
	}
	for _, k := range alloc {
		if k < 0 || k >= len(a.Occupancy) {
			return fmt.Errorf("site allocated to slot %d: %w", k, ErrSlotRange)
		}
	}
	copy(a.Alloc, alloc)
	a.UpdateOccupancyNumbers()
	return nil
}
