package finitemutsel

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

var traceColumns = []string{
	"#iter", "time", "pruning", "lnL", "length", "codonent", "omega", "Nmode", "statent", "statalpha",
	"nucsA", "nucsC", "nucsG", "nucsT",
	"nucrrAC", "nucrrAG", "nucrrAT", "nucrrCG", "nucrrCT", "nucrrGT",
}

//TraceHeader is the first line of a trace file, newline included
var TraceHeader = strings.Join(traceColumns, "\t") + "\n"

//TraceRow is one line of the trace
type TraceRow struct {
	Iter     int
	Time     float64 // seconds spent in sweeps since the previous row
	Pruning  int     // percentage of that time spent in tree proposals
	LnL      float64
	Length   float64
	CodonEnt float64
	Omega    float64
	Nmode    int
	StatEnt  float64
	StatAlph float64
	NucStat  [4]float64
	NucRR    [6]float64
}

func ftoa(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

//Values returns the row in column order
func (t TraceRow) Values() []float64 {
	v := []float64{float64(t.Iter), t.Time, float64(t.Pruning), t.LnL, t.Length, t.CodonEnt, t.Omega,
		float64(t.Nmode), t.StatEnt, t.StatAlph}
	v = append(v, t.NucStat[:]...)
	return append(v, t.NucRR[:]...)
}

//WriteTo writes the row as a tab separated line
func (t TraceRow) WriteTo(w io.Writer) (int64, error) {
	var buffer bytes.Buffer
	for i, v := range t.Values() {
		if i > 0 {
			buffer.WriteByte('\t')
		}
		switch i {
		case 0, 2, 7:
			buffer.WriteString(strconv.Itoa(int(v)))
		default:
			buffer.WriteString(ftoa(v))
		}
	}
	buffer.WriteByte('\n')
	return buffer.WriteTo(w)
}
