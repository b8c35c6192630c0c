package finitemutsel

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

//ReadLine is like the Python readlines(); empty lines are dropped
func ReadLine(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ln []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			ln = append(ln, l)
		}
	}
	return ln, nil
}

var branchLength = regexp.MustCompile(`:([-+0-9.eE]+)`)

//newickLengths returns the branch lengths of a newick string in order of appearance
func newickLengths(newick string) []float64 {
	var lengths []float64
	for _, m := range branchLength.FindAllStringSubmatch(newick, -1) {
		if l, err := strconv.ParseFloat(m[1], 64); err == nil {
			lengths = append(lengths, l)
		}
	}
	return lengths
}

//readTree accepts either a newick string or the path of a file holding one
func readTree(tree string) (string, error) {
	if tree == "" {
		return "", nil
	}
	if strings.HasPrefix(strings.TrimSpace(tree), "(") {
		return strings.TrimSpace(tree), nil
	}
	ln, err := ReadLine(tree)
	if err != nil {
		return "", configErr("read tree", err)
	}
	if len(ln) == 0 {
		return "", configErr("read tree", os.ErrNotExist)
	}
	return strings.Join(ln, ""), nil
}

//starTree joins all taxa at the root with unit branch lengths
func starTree(taxa []string) string {
	parts := make([]string, len(taxa))
	for i, t := range taxa {
		parts[i] = t + ":1"
	}
	return "(" + strings.Join(parts, ",") + ");"
}
