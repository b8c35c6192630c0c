package finitemutsel

//TreeState is the part of the tree shipped to workers: topology and branch lengths
type TreeState struct {
	Newick  string
	Lengths []float64
}

//GlobalState is the read-only replica the master broadcasts to every worker
type GlobalState struct {
	Tree        TreeState
	Branch      BranchHyper
	N           int
	WeightAlpha float64
	DirWeight   []float64
	Weights     []float64
	Profiles    [][]float64
	Alloc       []int
}

//clone deep-copies the state so that no memory is shared between ranks
func (s *GlobalState) clone() *GlobalState {
	c := &GlobalState{
		Tree: TreeState{
			Newick:  s.Tree.Newick,
			Lengths: append([]float64(nil), s.Tree.Lengths...),
		},
		Branch:      s.Branch,
		N:           s.N,
		WeightAlpha: s.WeightAlpha,
		DirWeight:   append([]float64(nil), s.DirWeight...),
		Weights:     append([]float64(nil), s.Weights...),
		Alloc:       append([]int(nil), s.Alloc...),
		Profiles:    make([][]float64, len(s.Profiles)),
	}
	for k, p := range s.Profiles {
		c.Profiles[k] = append([]float64(nil), p...)
	}
	return c
}

//GlobalState snapshots the master mixture together with the tree and branch hyperparameters
func (fp *FiniteProfile) GlobalState(tree TreeState, branch BranchHyper) *GlobalState {
	s := &GlobalState{
		Tree:        tree,
		Branch:      branch,
		N:           fp.N,
		WeightAlpha: fp.WeightAlpha,
		DirWeight:   fp.DirWeight,
		Weights:     fp.Weights[:fp.N],
		Profiles:    fp.Profiles[:fp.N],
		Alloc:       fp.Alloc,
	}
	return s.clone()
}
