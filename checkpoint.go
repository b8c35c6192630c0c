package finitemutsel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

//CheckpointVersion is written into every new checkpoint
const CheckpointVersion = "1.6"

//Header is the configuration block at the top of a checkpoint
type Header struct {
	Version         string
	DataFile        string
	CodeType        string
	NCat            int
	FixNcomp        bool
	EmpMix          bool
	MixType         string
	FixTopo         bool
	FixBL           bool
	NSPR            int
	NNNI            int
	FixCodonProfile bool
	FixOmega        bool
	OmegaPrior      int
	DirWeightPrior  int
	DC              bool
	Tree            string
}

//DefaultHeader fills the fields that old checkpoints may lack
func DefaultHeader() Header {
	return Header{Version: CheckpointVersion, NSPR: 10, NNNI: 0, OmegaPrior: 0}
}

type version struct {
	major int
	minor int
}

func parseVersion(s string) (version, error) {
	major, minor, _ := strings.Cut(strings.TrimSpace(s), ".")
	var v version
	var err error
	if v.major, err = strconv.Atoi(major); err != nil {
		return v, fmt.Errorf("version %q: %w", s, ErrCheckpoint)
	}
	if minor != "" {
		if v.minor, err = strconv.Atoi(minor); err != nil {
			return v, fmt.Errorf("version %q: %w", s, ErrCheckpoint)
		}
	}
	return v, nil
}

func (v version) after(o version) bool {
	return v.major > o.major || (v.major == o.major && v.minor > o.minor)
}

//optional header lines and the version after which they appear
const (
	fieldMoves      = "moves"
	fieldOmegaPrior = "omegaprior"
)

var headerFields = []struct {
	since version
	name  string
}{
	{version{1, 4}, fieldMoves},
	{version{1, 5}, fieldOmegaPrior},
}

//headerSchema lists which optional lines a checkpoint of the given version carries
type headerSchema map[string]bool

func schemaFor(s string) (headerSchema, error) {
	v, err := parseVersion(s)
	if err != nil {
		return nil, err
	}
	schema := make(headerSchema, len(headerFields))
	for _, f := range headerFields {
		schema[f.name] = v.after(f.since)
	}
	return schema, nil
}

func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

//WriteHeader writes h in the layout of its own version
func WriteHeader(w io.Writer, h Header) error {
	schema, err := schemaFor(h.Version)
	if err != nil {
		return err
	}
	lines := []string{
		h.Version,
		h.DataFile,
		h.CodeType,
		strconv.Itoa(h.NCat),
		btoa(h.FixNcomp) + "\t" + btoa(h.EmpMix) + "\t" + h.MixType,
		btoa(h.FixTopo),
		btoa(h.FixBL),
	}
	if schema[fieldMoves] {
		lines = append(lines, strconv.Itoa(h.NSPR)+"\t"+strconv.Itoa(h.NNNI))
	}
	lines = append(lines, btoa(h.FixCodonProfile), btoa(h.FixOmega))
	if schema[fieldOmegaPrior] {
		lines = append(lines, strconv.Itoa(h.OmegaPrior))
	}
	lines = append(lines, strconv.Itoa(h.DirWeightPrior), btoa(h.DC), h.Tree)
	_, err = io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

//headerReader pulls one line at a time out of a checkpoint
type headerReader struct {
	br   *bufio.Reader
	line int
}

func (hr *headerReader) next(what string) (string, error) {
	hr.line++
	s, err := hr.br.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", fmt.Errorf("line %d (%s): %w", hr.line, what, ErrCheckpoint)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (hr *headerReader) fields(what string, n int) ([]string, error) {
	s, err := hr.next(what)
	if err != nil {
		return nil, err
	}
	f := strings.Fields(s)
	if len(f) < n {
		return nil, fmt.Errorf("line %d (%s): want %d fields, got %q: %w", hr.line, what, n, s, ErrCheckpoint)
	}
	return f, nil
}

func (hr *headerReader) readInt(what string) (int, error) {
	f, err := hr.fields(what, 1)
	if err != nil {
		return 0, err
	}
	return atoi(f[0], what)
}

func (hr *headerReader) readBool(what string) (bool, error) {
	n, err := hr.readInt(what)
	return n != 0, err
}

func atoi(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", what, s, ErrCheckpoint)
	}
	return n, nil
}

//ReadHeader reads a header written by any supported version; optional lines missing from older
//versions keep their defaults
func ReadHeader(br *bufio.Reader) (Header, error) {
	h := DefaultHeader()
	hr := &headerReader{br: br}
	var err error
	if h.Version, err = hr.next("version"); err != nil {
		return h, err
	}
	schema, err := schemaFor(h.Version)
	if err != nil {
		return h, err
	}
	if h.DataFile, err = hr.next("datafile"); err != nil {
		return h, err
	}
	if h.CodeType, err = hr.next("codetype"); err != nil {
		return h, err
	}
	if h.NCat, err = hr.readInt("ncat"); err != nil {
		return h, err
	}
	mix, err := hr.fields("fixncomp empmix mixtype", 2)
	if err != nil {
		return h, err
	}
	fixncomp, err := atoi(mix[0], "fixncomp")
	if err != nil {
		return h, err
	}
	empmix, err := atoi(mix[1], "empmix")
	if err != nil {
		return h, err
	}
	h.FixNcomp, h.EmpMix = fixncomp != 0, empmix != 0
	if len(mix) > 2 {
		h.MixType = mix[2]
	}
	if h.FixTopo, err = hr.readBool("fixtopo"); err != nil {
		return h, err
	}
	if h.FixBL, err = hr.readBool("fixbl"); err != nil {
		return h, err
	}
	if schema[fieldMoves] {
		moves, err := hr.fields("NSPR NNNI", 2)
		if err != nil {
			return h, err
		}
		if h.NSPR, err = atoi(moves[0], "NSPR"); err != nil {
			return h, err
		}
		if h.NNNI, err = atoi(moves[1], "NNNI"); err != nil {
			return h, err
		}
	}
	if h.FixCodonProfile, err = hr.readBool("fixcodonprofile"); err != nil {
		return h, err
	}
	if h.FixOmega, err = hr.readBool("fixomega"); err != nil {
		return h, err
	}
	if schema[fieldOmegaPrior] {
		if h.OmegaPrior, err = hr.readInt("omegaprior"); err != nil {
			return h, err
		}
	}
	if h.DirWeightPrior, err = hr.readInt("dirweightprior"); err != nil {
		return h, err
	}
	if h.DC, err = hr.readBool("dc"); err != nil {
		return h, err
	}
	if h.Tree, err = hr.next("tree"); err != nil {
		return h, err
	}
	return h, nil
}

//BodyState is the sampled state carried by a checkpoint body
type BodyState struct {
	Branch  BranchHyper
	Lengths []float64
}

//WriteBody writes the branch process followed by the mixture
func WriteBody(w io.Writer, body BodyState, fp *FiniteProfile) error {
	bw := bufio.NewWriter(w)
	line := func(vals ...string) {
		bw.WriteString(strings.Join(vals, "\t"))
		bw.WriteByte('\n')
	}
	floatsLine := func(xs []float64) {
		s := make([]string, len(xs))
		for i, x := range xs {
			s[i] = ftoa(x)
		}
		line(s...)
	}
	line(ftoa(body.Branch.Alpha), ftoa(body.Branch.Beta))
	line(strconv.Itoa(len(body.Lengths)))
	floatsLine(body.Lengths)
	line(strconv.Itoa(fp.N))
	line(ftoa(fp.WeightAlpha))
	floatsLine(fp.DirWeight)
	floatsLine(fp.Weights[:fp.N])
	for k := 0; k < fp.N; k++ {
		floatsLine(fp.Profiles[k])
	}
	alloc := make([]string, len(fp.Alloc))
	for i, k := range fp.Alloc {
		alloc[i] = strconv.Itoa(k)
	}
	line(alloc...)
	return bw.Flush()
}

//ReadBody restores the branch process and the mixture; fp must already have the right dimensions
func ReadBody(r io.Reader, fp *FiniteProfile) (BodyState, error) {
	var body BodyState
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 256*1024*1024)
	sc.Split(bufio.ScanWords)
	nextFloat := func(what string) (float64, error) {
		if !sc.Scan() {
			return 0, fmt.Errorf("body ended before %s: %w", what, ErrCheckpoint)
		}
		x, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q: %w", what, sc.Text(), ErrCheckpoint)
		}
		return x, nil
	}
	nextInt := func(what string) (int, error) {
		if !sc.Scan() {
			return 0, fmt.Errorf("body ended before %s: %w", what, ErrCheckpoint)
		}
		return atoi(sc.Text(), what)
	}
	nextFloats := func(dst []float64, what string) error {
		for i := range dst {
			x, err := nextFloat(what)
			if err != nil {
				return err
			}
			dst[i] = x
		}
		return nil
	}
	var err error
	if body.Branch.Alpha, err = nextFloat("branch alpha"); err != nil {
		return body, err
	}
	if body.Branch.Beta, err = nextFloat("branch beta"); err != nil {
		return body, err
	}
	nbranch, err := nextInt("branch count")
	if err != nil {
		return body, err
	}
	body.Lengths = make([]float64, nbranch)
	if err := nextFloats(body.Lengths, "branch length"); err != nil {
		return body, err
	}
	n, err := nextInt("Ncomponent")
	if err != nil {
		return body, err
	}
	if n <= 0 {
		return body, fmt.Errorf("Ncomponent %d: %w", n, ErrNoComponents)
	}
	if n > fp.KMax {
		fp.growSlots(n)
	}
	if fp.WeightAlpha, err = nextFloat("weightalpha"); err != nil {
		return body, err
	}
	if err := nextFloats(fp.DirWeight, "dirweight"); err != nil {
		return body, err
	}
	for k := 0; k < fp.KMax; k++ {
		fp.DeleteComponent(k)
	}
	fp.N = n
	if err := nextFloats(fp.Weights[:n], "weight"); err != nil {
		return body, err
	}
	prof := make([]float64, fp.Dim)
	for k := 0; k < n; k++ {
		if err := nextFloats(prof, "profile"); err != nil {
			return body, err
		}
		if err := fp.Restore(k, prof); err != nil {
			return body, err
		}
	}
	alloc := make([]int, fp.NSite)
	for i := range alloc {
		if alloc[i], err = nextInt("allocation"); err != nil {
			return body, err
		}
		if alloc[i] < 0 || alloc[i] >= n {
			return body, fmt.Errorf("site %d allocated to %d of %d components: %w", i, alloc[i], n, ErrCheckpoint)
		}
	}
	if err := fp.SetAlloc(alloc); err != nil {
		return body, err
	}
	return body, nil
}
