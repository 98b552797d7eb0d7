package chrom

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Summary holds characteristic values of a trace
type Summary struct {
	Q1            float64
	Q3            float64
	KeyQ1         float64
	KeyQ3         float64
	Samples       int
	FirstTime     float64
	LastTime      float64
	ApexTime      float64
	ApexIntensity float64
	MeanIntensity float64
	// Area under the trace (trapezoidal rule). 0 for traces with less than
	// 2 samples or with times that are not in ascending order.
	Area float64
}

// Summarize computes the Summary of a trace
func Summarize(t *Trace) Summary {
	s := Summary{
		Q1:      t.Q1,
		Q3:      t.Q3,
		KeyQ1:   t.Key.Q1,
		KeyQ3:   t.Key.Q3,
		Samples: t.Len(),
	}
	if s.Samples == 0 {
		return s
	}
	s.FirstTime = t.Times[0]
	s.LastTime = t.Times[s.Samples-1]
	apex := floats.MaxIdx(t.Intensities)
	s.ApexTime = t.Times[apex]
	s.ApexIntensity = t.Intensities[apex]
	s.MeanIntensity = stat.Mean(t.Intensities, nil)
	if s.Samples >= 2 && sort.Float64sAreSorted(t.Times) {
		s.Area = integrate.Trapezoidal(t.Times, t.Intensities)
	}
	return s
}

// Summaries returns the Summary of every trace, in trace order
func (c *Chromatograms) Summaries() []Summary {
	s := make([]Summary, 0, len(c.traces))
	for _, t := range c.traces {
		s = append(s, Summarize(t))
	}
	return s
}
