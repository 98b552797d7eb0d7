// Package chrom reconstructs SRM chromatograms from the MS2 scans of a run.
//
// Every centroid peak of an MS2 scan is a sample of the transition formed
// by the scan's precursor m/z (Q1) and the peak m/z (Q3). Samples are
// grouped by the rounded (Q1, Q3) pair into traces of (time, intensity).
package chrom

import (
	"errors"
	"math"
)

// DefaultKeyDigits is the number of decimals Q1 and Q3 are rounded to
// when grouping samples into traces
const DefaultKeyDigits = 4

// MS2 is the MS order of the scans that contribute samples
const MS2 = 2

var (
	// ErrScanRange means the requested scan range is empty or negative
	ErrScanRange = errors.New("chrom: invalid scan range")
	// ErrNoPrecursor means an MS2 scan has no precursor mass
	ErrNoPrecursor = errors.New("chrom: MS2 scan without precursor mass")
)

// Filter describes how a scan was acquired
type Filter struct {
	MSOrder         int
	PrecursorMasses []float64
}

// CentroidStream holds the centroid peaks of a scan as parallel arrays
type CentroidStream struct {
	Masses      []float64
	Intensities []float64
}

// ScanSource gives access to the scans of a run by index
type ScanSource interface {
	Filter(scan int) (Filter, error)
	// RetentionTime returns a negative time if the scan has none
	RetentionTime(scan int) (float64, error)
	// Centroids returns nil if the scan has no centroid data
	Centroids(scan int) (*CentroidStream, error)
}

// TransitionKey identifies a transition by its rounded Q1 and Q3
type TransitionKey struct {
	Q1 float64
	Q3 float64
}

// NewTransitionKey rounds q1 and q3 to digits decimals
func NewTransitionKey(q1, q3 float64, digits int) TransitionKey {
	return TransitionKey{Q1: roundDigits(q1, digits), Q3: roundDigits(q3, digits)}
}

// roundDigits rounds half to even, like the instrument software does
func roundDigits(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(x*p) / p
}

// Trace is the chromatogram of a single transition.
// Q1 and Q3 are the unrounded values of the first sample.
type Trace struct {
	Key         TransitionKey
	Q1          float64
	Q3          float64
	Times       []float64
	Intensities []float64
}

func (t *Trace) add(rt, intensity float64) {
	t.Times = append(t.Times, rt)
	t.Intensities = append(t.Intensities, intensity)
}

// Len returns the number of samples
func (t *Trace) Len() int {
	return len(t.Times)
}

// Stats counts what happened to the scans of a reconstruction
type Stats struct {
	Scans        int // Scans visited
	MS2Scans     int // Scans with MS order 2
	EmptyScans   int // MS2 scans skipped for missing centroid data
	UntimedScans int // MS2 scans skipped for missing retention time
	Samples      int // Samples added to traces
}

// Chromatograms is the set of traces of a run, in order of first appearance
type Chromatograms struct {
	traces []*Trace
	index  map[TransitionKey]*Trace
	Stats  Stats
}

func newChromatograms() *Chromatograms {
	return &Chromatograms{index: make(map[TransitionKey]*Trace)}
}

// trace returns the trace for key, creating it if needed
func (c *Chromatograms) trace(key TransitionKey, q1, q3 float64) *Trace {
	t, ok := c.index[key]
	if !ok {
		t = &Trace{Key: key, Q1: q1, Q3: q3}
		c.index[key] = t
		c.traces = append(c.traces, t)
	}
	return t
}

// Len returns the number of traces
func (c *Chromatograms) Len() int {
	return len(c.traces)
}

// Traces returns all traces in order of first appearance
func (c *Chromatograms) Traces() []*Trace {
	return c.traces
}

// Lookup returns the trace of a transition
func (c *Chromatograms) Lookup(key TransitionKey) (*Trace, bool) {
	t, ok := c.index[key]
	return t, ok
}
