package finitemutsel

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

//AminoAcids is the state order of the 20-letter protein alphabet
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

//go:embed catalogs
var bundledCatalogs embed.FS

//Catalog is a table of fixed component profiles with their weights
type Catalog struct {
	Name     string
	Weights  []float64
	Profiles [][]float64
}

//Dim returns the alphabet size of the catalog
func (c *Catalog) Dim() int {
	if len(c.Profiles) == 0 {
		return 0
	}
	return len(c.Profiles[0])
}

type catalogFamily int

const (
	familyEqualWeights catalogFamily = iota // weights forced to 1/Ncat
	familyFileWeights                       // weights read from the table
	familyWLSR                              // fixed profiles plus the empirical frequencies
	familyUniform
)

type builtinCatalog struct {
	name   string
	file   string
	family catalogFamily
}

var builtinCatalogs = map[string]builtinCatalog{}

func registerBuiltin(b builtinCatalog, aliases ...string) {
	for _, a := range aliases {
		builtinCatalogs[a] = b
	}
}

func init() {
	registerBuiltin(builtinCatalog{"CG6", "cg6.mix", familyEqualWeights}, "CG6", "cg6", "c6", "C6")
	for _, n := range []int{10, 20, 30, 40, 50, 60} {
		cg := fmt.Sprintf("CG%d", n)
		registerBuiltin(builtinCatalog{cg, strings.ToLower(cg) + ".mix", familyEqualWeights}, cg, strings.ToLower(cg))
		c := fmt.Sprintf("C%d", n)
		registerBuiltin(builtinCatalog{c, strings.ToLower(c) + ".mix", familyFileWeights}, c, strings.ToLower(c))
	}
	registerBuiltin(builtinCatalog{"WLSR5", "wlsr5.mix", familyWLSR}, "WLSR5", "wlsr5")
	registerBuiltin(builtinCatalog{"uniform", "", familyUniform}, "uniform", "Uniform")
}

//CatalogNames lists the recognized builtin catalog names
func CatalogNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, b := range builtinCatalogs {
		if !seen[b.name] {
			seen[b.name] = true
			names = append(names, b.name)
		}
	}
	sort.Strings(names)
	return names
}

//CatalogOptions controls catalog resolution
type CatalogOptions struct {
	Alphabet      string    // state symbols in model order
	StatEps       float64   // profile floor
	Dir           string    // extra directory searched for builtin tables
	EmpiricalFreq []float64 // needed by WLSR5
}

//LookupCatalog resolves a builtin catalog name, or failing that reads name as a mixture file
func LookupCatalog(name string, opts CatalogOptions) (*Catalog, error) {
	if opts.StatEps <= 0 {
		opts.StatEps = DefaultStatEps
	}
	b, ok := builtinCatalogs[name]
	if !ok {
		f, err := os.Open(name)
		if err != nil {
			return nil, configErr("read empirical mixture", fmt.Errorf("%s: %w", name, ErrUnknownCatalog))
		}
		defer f.Close()
		cat, err := ParseCatalog(f, opts.Alphabet, opts.StatEps)
		if err != nil {
			return nil, configErr("read empirical mixture "+name, err)
		}
		cat.Name = name
		return cat, nil
	}
	if b.family == familyUniform {
		dim := len(opts.Alphabet)
		prof := make([]float64, dim)
		for i := range prof {
			prof[i] = 1 / float64(dim)
		}
		normalizeProfile(prof, opts.StatEps)
		return &Catalog{Name: b.name, Weights: []float64{1}, Profiles: [][]float64{prof}}, nil
	}
	if len(opts.Alphabet) != len(AminoAcids) {
		return nil, configErr("read empirical mixture", fmt.Errorf("%s is for amino acids, alphabet has %d states: %w", b.name, len(opts.Alphabet), ErrBadStateCount))
	}
	r, err := openBuiltin(b.file, opts.Dir)
	if err != nil {
		return nil, configErr("read empirical mixture", fmt.Errorf("%s: %w", b.name, err))
	}
	defer r.Close()
	cat, err := ParseCatalog(r, opts.Alphabet, opts.StatEps)
	if err != nil {
		return nil, configErr("read empirical mixture "+b.name, err)
	}
	cat.Name = b.name
	switch b.family {
	case familyEqualWeights:
		for i := range cat.Weights {
			cat.Weights[i] = 1 / float64(len(cat.Weights))
		}
	case familyWLSR:
		if len(opts.EmpiricalFreq) != len(opts.Alphabet) {
			return nil, configErr("read empirical mixture", fmt.Errorf("%s needs empirical frequencies: %w", b.name, ErrBadStateCount))
		}
		emp := append([]float64(nil), opts.EmpiricalFreq...)
		normalizeProfile(emp, opts.StatEps)
		cat.Profiles = append(cat.Profiles, emp)
		cat.Weights = make([]float64, len(cat.Profiles))
		for i := range cat.Weights {
			cat.Weights[i] = 1 / float64(len(cat.Weights))
		}
	}
	return cat, nil
}

func openBuiltin(file, dir string) (io.ReadCloser, error) {
	f, err := bundledCatalogs.Open("catalogs/" + file)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("table %s is not bundled and no catalog directory is set: %w", file, ErrUnknownCatalog)
	}
	osf, err := os.Open(filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("table %s: %v: %w", file, err, ErrUnknownCatalog)
	}
	return osf, nil
}

//ParseCatalog reads a mixture table: the alphabet size and its symbols, the number of components,
//then for each component a weight followed by one probability per symbol.
//Symbols may come in any order; profiles are stored in the order of alphabet.
func ParseCatalog(r io.Reader, alphabet string, stateps float64) (*Catalog, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	next := func(what string) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("unexpected end of mixture file while reading %s", what)
		}
		return sc.Text(), nil
	}
	nextInt := func(what string) (int, error) {
		tok, err := next(what)
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(tok)
	}
	nextFloat := func(what string) (float64, error) {
		tok, err := next(what)
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(tok, 64)
	}
	nstate := len(alphabet)
	n, err := nextInt("number of states")
	if err != nil {
		return nil, err
	}
	if n != nstate {
		return nil, fmt.Errorf("mixture file has %d states, model has %d: %w", n, nstate, ErrBadStateCount)
	}
	permut := make([]int, nstate)
	for k := 0; k < nstate; k++ {
		sym, err := next("alphabet")
		if err != nil {
			return nil, err
		}
		l := strings.Index(alphabet, sym)
		if len(sym) != 1 || l < 0 {
			return nil, fmt.Errorf("symbol %q not in alphabet %s: %w", sym, alphabet, ErrUnknownSymbol)
		}
		permut[k] = l
	}
	ncat, err := nextInt("number of components")
	if err != nil {
		return nil, err
	}
	if ncat <= 0 {
		return nil, fmt.Errorf("mixture file declares %d components: %w", ncat, ErrNoComponents)
	}
	cat := &Catalog{Weights: make([]float64, ncat), Profiles: make([][]float64, ncat)}
	for i := 0; i < ncat; i++ {
		if cat.Weights[i], err = nextFloat("weight"); err != nil {
			return nil, err
		}
		prof := make([]float64, nstate)
		for k := 0; k < nstate; k++ {
			if prof[permut[k]], err = nextFloat("profile"); err != nil {
				return nil, err
			}
		}
		normalizeProfile(prof, stateps)
		cat.Profiles[i] = prof
	}
	total := 0.
	for _, w := range cat.Weights {
		total += w
	}
	for i := range cat.Weights {
		cat.Weights[i] /= total
	}
	return cat, nil
}
