// Package export writes reconstructed chromatograms to files
package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/524D/mzsrm/internal/chrom"
)

// DefaultNameDigits is the number of decimals of Q1/Q3 in file names
const DefaultNameDigits = 1

// CSVWriter writes every trace to its own CSV file in Dir
type CSVWriter struct {
	Dir        string
	NameDigits int
}

// NewCSVWriter returns a CSVWriter using DefaultNameDigits
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir, NameDigits: DefaultNameDigits}
}

// TraceFileNames returns the file name for each trace, in trace order.
// Names are Q1_<q1>_Q3_<q3>.csv. A name that was already given to an
// earlier trace gets a suffix _2, _3, ...
func TraceFileNames(traces []*chrom.Trace, nameDigits int) []string {
	names := make([]string, len(traces))
	used := make(map[string]bool, len(traces))
	for i, t := range traces {
		base := fmt.Sprintf("Q1_%s_Q3_%s",
			strconv.FormatFloat(t.Q1, 'f', nameDigits, 64),
			strconv.FormatFloat(t.Q3, 'f', nameDigits, 64))
		name := base + ".csv"
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d.csv", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// WriteTrace writes the samples of a trace as "<time>,<intensity>" lines
func WriteTrace(w *bufio.Writer, t *chrom.Trace) error {
	for i := range t.Times {
		if _, err := fmt.Fprintf(w, "%.3f,%.0f\n", t.Times[i], t.Intensities[i]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Write creates Dir if needed and writes all traces of c.
// It returns the paths of the files written, in trace order.
func (cw *CSVWriter) Write(c *chrom.Chromatograms) ([]string, error) {
	if err := os.MkdirAll(cw.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	traces := c.Traces()
	names := TraceFileNames(traces, cw.NameDigits)
	paths := make([]string, 0, len(traces))
	for i, t := range traces {
		path := filepath.Join(cw.Dir, names[i])
		if err := writeTraceFile(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTraceFile(path string, t *chrom.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteTrace(bufio.NewWriter(f), t); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
