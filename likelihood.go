package finitemutsel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

//SiteModel is the per-site substitution model a worker evaluates for its own sites.
//Site indices are global; a model only has to answer for the range it was built for.
type SiteModel interface {
	Dim() int
	NSite() int
	//SiteSuffStats returns one vector of path sufficient statistics per site of r
	SiteSuffStats(tree TreeState, r SiteRange) ([][]float64, error)
	//LogLikelihood sums the log-likelihood of the sites of r, each under the profile of its component
	LogLikelihood(tree TreeState, r SiteRange, profile func(site int) []float64) (float64, error)
}

//SiteModelFactory builds the model a worker of rank exec.Rank uses for its sites
type SiteModelFactory func(exec ExecContext, r SiteRange) (SiteModel, error)

//ColumnCounts is a SiteModel that treats each alignment column as a multinomial draw from its profile.
//Counts holds one row per site and one column per state.
type ColumnCounts struct {
	Alphabet string
	Taxa     []string
	Counts   *mat.Dense
	Offset   int // global index of the first row
}

//Dim is the alphabet size
func (cc *ColumnCounts) Dim() int {
	if cc.empty() {
		return len(cc.Alphabet)
	}
	_, c := cc.Counts.Dims()
	return c
}

//NSite is the number of rows held
func (cc *ColumnCounts) NSite() int {
	if cc.empty() {
		return 0
	}
	r, _ := cc.Counts.Dims()
	return r
}

func (cc *ColumnCounts) rows(r SiteRange) (int, int, error) {
	lo, hi := r.Min-cc.Offset, r.Max-cc.Offset
	if lo < 0 || hi > cc.NSite() || lo > hi {
		return 0, 0, fmt.Errorf("sites [%d,%d) outside [%d,%d): %w", r.Min, r.Max, cc.Offset, cc.Offset+cc.NSite(), ErrBadPartition)
	}
	return lo, hi, nil
}

//Restrict returns a copy holding only the sites of r
func (cc *ColumnCounts) Restrict(r SiteRange) (*ColumnCounts, error) {
	lo, hi, err := cc.rows(r)
	if err != nil {
		return nil, err
	}
	sub := &ColumnCounts{
		Alphabet: cc.Alphabet,
		Taxa:     append([]string(nil), cc.Taxa...),
		Offset:   r.Min,
	}
	if hi == lo {
		sub.Counts = &mat.Dense{}
		return sub, nil
	}
	sub.Counts = mat.DenseCopyOf(cc.Counts.Slice(lo, hi, 0, cc.Dim()))
	return sub, nil
}

func (cc *ColumnCounts) empty() bool {
	return cc.Counts == nil || cc.Counts.IsEmpty()
}

//Factory hands each worker its own copy of the columns it owns
func (cc *ColumnCounts) Factory() SiteModelFactory {
	return func(exec ExecContext, r SiteRange) (SiteModel, error) {
		if exec.IsMaster() {
			return nil, fmt.Errorf("site model for rank 0: %w", ErrWorkerOnly)
		}
		sub, err := cc.Restrict(r)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

//SiteSuffStats returns the observed state counts of every column in r
func (cc *ColumnCounts) SiteSuffStats(_ TreeState, r SiteRange) ([][]float64, error) {
	lo, hi, err := cc.rows(r)
	if err != nil {
		return nil, err
	}
	suff := make([][]float64, hi-lo)
	for i := lo; i < hi; i++ {
		suff[i-lo] = mat.Row(nil, i, cc.Counts)
	}
	return suff, nil
}

//LogLikelihood is sum_i sum_a n_ia log profile_a
func (cc *ColumnCounts) LogLikelihood(_ TreeState, r SiteRange, profile func(site int) []float64) (float64, error) {
	lo, hi, err := cc.rows(r)
	if err != nil {
		return 0, err
	}
	total := 0.
	for i := lo; i < hi; i++ {
		p := profile(i + cc.Offset)
		for a, n := range mat.Row(nil, i, cc.Counts) {
			if n > 0 {
				total += n * math.Log(p[a])
			}
		}
	}
	return total, nil
}

//EmpiricalFreq returns the state frequencies pooled over all columns
func (cc *ColumnCounts) EmpiricalFreq() []float64 {
	freq := make([]float64, len(cc.Alphabet))
	if cc.empty() {
		return freq
	}
	total := 0.
	r, c := cc.Counts.Dims()
	for i := 0; i < r; i++ {
		for a := 0; a < c; a++ {
			freq[a] += cc.Counts.At(i, a)
			total += cc.Counts.At(i, a)
		}
	}
	if total > 0 {
		for a := range freq {
			freq[a] /= total
		}
	}
	return freq
}
