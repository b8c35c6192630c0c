package finitemutsel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//missing symbols carry no information about the column
const missing = "-?X*"

//ReadAlignmentFile will read a FASTA or sequential PHYLIP file into column counts
func ReadAlignmentFile(path, alphabet string) (*ColumnCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErr("read alignment", err)
	}
	defer f.Close()
	cc, err := ReadAlignment(f, alphabet)
	if err != nil {
		return nil, configErr("read alignment "+path, err)
	}
	return cc, nil
}

//ReadAlignment parses an alignment and tallies, for every column, how many taxa show each state.
//A first line starting with '>' selects FASTA, anything else is read as "ntaxa nsite" followed by one "name sequence" line per taxon.
func ReadAlignment(r io.Reader, alphabet string) (*ColumnCounts, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		if ln := strings.TrimSpace(scanner.Text()); ln != "" {
			lines = append(lines, ln)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty alignment: %w", ErrBadStateCount)
	}
	var taxa, seqs []string
	var err error
	if strings.HasPrefix(lines[0], ">") {
		taxa, seqs = splitFasta(lines)
	} else {
		taxa, seqs, err = splitPhylip(lines)
		if err != nil {
			return nil, err
		}
	}
	return countColumns(taxa, seqs, alphabet)
}

func splitFasta(lines []string) (taxa, seqs []string) {
	var cur strings.Builder
	for _, ln := range lines {
		if strings.HasPrefix(ln, ">") {
			if len(taxa) > 0 {
				seqs = append(seqs, cur.String())
				cur.Reset()
			}
			taxa = append(taxa, strings.TrimSpace(ln[1:]))
			continue
		}
		cur.WriteString(strings.Join(strings.Fields(ln), ""))
	}
	seqs = append(seqs, cur.String())
	return
}

func splitPhylip(lines []string) (taxa, seqs []string, err error) {
	head := strings.Fields(lines[0])
	if len(head) < 2 {
		return nil, nil, fmt.Errorf("phylip header %q: %w", lines[0], ErrBadStateCount)
	}
	ntax, err := strconv.Atoi(head[0])
	if err != nil {
		return nil, nil, err
	}
	if len(lines)-1 < ntax {
		return nil, nil, fmt.Errorf("header announces %d taxa, found %d: %w", ntax, len(lines)-1, ErrBadStateCount)
	}
	for _, ln := range lines[1 : ntax+1] {
		f := strings.Fields(ln)
		taxa = append(taxa, f[0])
		seqs = append(seqs, strings.Join(f[1:], ""))
	}
	return
}

func countColumns(taxa, seqs []string, alphabet string) (*ColumnCounts, error) {
	index := make(map[rune]int, len(alphabet))
	for a, c := range alphabet {
		index[c] = a
	}
	nsite := len(seqs[0])
	for t, s := range seqs {
		if len(s) != nsite {
			return nil, fmt.Errorf("taxon %s has %d sites, want %d: %w", taxa[t], len(s), nsite, ErrBadStateCount)
		}
	}
	if nsite == 0 {
		return nil, fmt.Errorf("alignment has no sites: %w", ErrBadStateCount)
	}
	counts := mat.NewDense(nsite, len(alphabet), nil)
	for t, s := range seqs {
		for i, c := range strings.ToUpper(s) {
			if strings.ContainsRune(missing, c) {
				continue
			}
			a, ok := index[c]
			if !ok {
				return nil, fmt.Errorf("taxon %s site %d symbol %q: %w", taxa[t], i, c, ErrUnknownSymbol)
			}
			counts.Set(i, a, counts.At(i, a)+1)
		}
	}
	return &ColumnCounts{Alphabet: alphabet, Taxa: taxa, Counts: counts}, nil
}

//DeleteConstant returns the columns that show at least two distinct states
func (cc *ColumnCounts) DeleteConstant() *ColumnCounts {
	var keep []int
	for i := 0; i < cc.NSite(); i++ {
		nstate := 0
		for _, n := range mat.Row(nil, i, cc.Counts) {
			if n > 0 {
				nstate++
			}
		}
		if nstate > 1 {
			keep = append(keep, i)
		}
	}
	out := &ColumnCounts{Alphabet: cc.Alphabet, Taxa: cc.Taxa, Counts: &mat.Dense{}}
	if len(keep) == 0 {
		return out
	}
	out.Counts = mat.NewDense(len(keep), cc.Dim(), nil)
	for j, i := range keep {
		out.Counts.SetRow(j, mat.Row(nil, i, cc.Counts))
	}
	return out
}
