package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/524D/mzsrm/internal/chrom"
)

// Format of the summary file, if it ever changes we should still be able
// to parse output from old versions
const SummaryFormatVersion = "1.0"

// RunSummary is the JSON summary of an extraction
type RunSummary struct {
	FormatVersion  string
	SourceFile     string
	StartTimeStamp string `json:",omitempty"`
	FirstScan      int
	LastScan       int
	KeyDigits      int
	Stats          chrom.Stats
	Transitions    []chrom.Summary
}

// NewRunSummary fills a RunSummary for run from the traces of c
func NewRunSummary(run RunRecord, startTimeStamp string, c *chrom.Chromatograms) RunSummary {
	return RunSummary{
		FormatVersion:  SummaryFormatVersion,
		SourceFile:     run.SourceFile,
		StartTimeStamp: startTimeStamp,
		FirstScan:      run.FirstScan,
		LastScan:       run.LastScan,
		KeyDigits:      run.KeyDigits,
		Stats:          c.Stats,
		Transitions:    c.Summaries(),
	}
}

// WriteSummary writes s as indented JSON
func WriteSummary(w io.Writer, s RunSummary) error {
	e := json.NewEncoder(w)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(s)
}

// WriteSummaryFile writes s to the file fn
func WriteSummaryFile(fn string, s RunSummary) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteSummary(f, s); err != nil {
		return err
	}
	return f.Close()
}
