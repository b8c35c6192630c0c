package finitemutsel

import (
	"fmt"
)

//DefaultStatEps is the floor applied to every profile entry
const DefaultStatEps = 1e-50

//Components is the registry of mixture components. Slots [0,N) are live.
type Components struct {
	Dim      int
	KMax     int
	StatEps  float64
	N        int
	Profiles [][]float64 // nil for slots that have not been created
	Weights  []float64
}

//NewComponents will allocate a registry able to hold kmax components over an alphabet of size dim
func NewComponents(dim, kmax int, stateps float64) *Components {
	if stateps <= 0 {
		stateps = DefaultStatEps
	}
	return &Components{
		Dim:      dim,
		KMax:     kmax,
		StatEps:  stateps,
		Profiles: make([][]float64, kmax),
		Weights:  make([]float64, kmax),
	}
}

//Create allocates slot k and copies profile into it, floored at StatEps and renormalized
func (c *Components) Create(k int, profile []float64) error {
	if k < 0 || k >= c.KMax {
		return fmt.Errorf("create component %d (kmax %d): %w", k, c.KMax, ErrSlotRange)
	}
	if len(profile) != c.Dim {
		return fmt.Errorf("create component %d: profile has %d states, want %d: %w", k, len(profile), c.Dim, ErrBadStateCount)
	}
	if c.Profiles[k] == nil {
		c.Profiles[k] = make([]float64, c.Dim)
	}
	copy(c.Profiles[k], profile)
	normalizeProfile(c.Profiles[k], c.StatEps)
	return nil
}

//Delete releases slot k
func (c *Components) Delete(k int) {
	if k < 0 || k >= c.KMax {
		return
	}
	c.Profiles[k] = nil
	c.Weights[k] = 0
}

//Swap exchanges the profiles and weights of slots a and b
func (c *Components) Swap(a, b int) {
	c.Profiles[a], c.Profiles[b] = c.Profiles[b], c.Profiles[a]
	c.Weights[a], c.Weights[b] = c.Weights[b], c.Weights[a]
}

//Weight returns the weight of live component k
func (c *Components) Weight(k int) (float64, error) {
	if err := c.checkLive(k); err != nil {
		return 0, err
	}
	return c.Weights[k], nil
}

//Profile returns the profile of live component k
func (c *Components) Profile(k int) ([]float64, error) {
	if err := c.checkLive(k); err != nil {
		return nil, err
	}
	return c.Profiles[k], nil
}

func (c *Components) checkLive(k int) error {
	if c.N == 0 {
		return ErrNoComponents
	}
	if k < 0 || k >= c.N {
		return fmt.Errorf("component %d of %d: %w", k, c.N, ErrSlotRange)
	}
	return nil
}

//LiveWeights returns the weights of slots [0,N)
func (c *Components) LiveWeights() []float64 {
	return c.Weights[:c.N]
}

//normalizeProfile rescales p to sum to one with every entry at least eps.
//Entries that would fall under the floor are pinned to it and the remaining mass is shared by the others.
func normalizeProfile(p []float64, eps float64) {
	if eps*float64(len(p)) >= 1 {
		for i := range p {
			p[i] = 1 / float64(len(p))
		}
		return
	}
	pinned := make([]bool, len(p))
	for {
		free, mass, nfree := 0., 1., 0
		for i, x := range p {
			if pinned[i] {
				mass -= eps
			} else {
				free += x
				nfree++
			}
		}
		changed := false
		for i := range p {
			if pinned[i] {
				p[i] = eps
				continue
			}
			if free > 0 {
				p[i] *= mass / free
			} else {
				p[i] = mass / float64(nfree)
			}
			if p[i] < eps {
				pinned[i] = true
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

//Restore copies profile into slot k verbatim, for state read back from a checkpoint
func (c *Components) Restore(k int, profile []float64) error {
	if k < 0 || k >= c.KMax {
		return fmt.Errorf("restore component %d (kmax %d): %w", k, c.KMax, ErrSlotRange)
	}
	if len(profile) != c.Dim {
		return fmt.Errorf("restore component %d: profile has %d states, want %d: %w", k, len(profile), c.Dim, ErrBadStateCount)
	}
	c.Profiles[k] = append([]float64(nil), profile...)
	return nil
}
