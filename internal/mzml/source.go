package mzml

import (
	"math"
	"strconv"

	"github.com/524D/mzsrm/internal/chrom"
)

// RunInfo holds the run level metadata of an mzML file
type RunInfo struct {
	ID             string
	SourceFile     string
	StartTimeStamp string
	NumSpecs       int
	StartTime      float64 // Retention time (s) of the first spectrum, -1 if unknown
	EndTime        float64 // Retention time (s) of the last spectrum, -1 if unknown
	Analyzers      []string
}

// PrecursorMzs returns for each precursor of a spectrum the m/z it was
// selected for. The isolation window target is preferred, because it is the
// Q1 value the instrument was set to. If it is missing, the first selected
// ion m/z is used. Precursors without either are left out.
func (f *MzML) PrecursorMzs(scanIndex int) ([]float64, error) {
	precursors, err := f.GetPrecursors(scanIndex)
	if err != nil {
		return nil, err
	}
	var mzs []float64
	for _, p := range precursors {
		mz, ok, err := precursorMz(&p)
		if err != nil {
			return nil, err
		}
		if ok {
			mzs = append(mzs, mz)
		}
	}
	return mzs, nil
}

func precursorMz(p *XMLprecursor) (float64, bool, error) {
	for _, cv := range p.IsolationWindow.CvPar {
		if cv.Accession == cvIsolationWindowTargetMz {
			mz, err := strconv.ParseFloat(cv.Value, 64)
			return mz, err == nil, err
		}
	}
	for _, ion := range p.SelectedIonList.SelectedIon {
		for _, cv := range ion.CvPar {
			if cv.Accession == cvSelectedIonMz {
				mz, err := strconv.ParseFloat(cv.Value, 64)
				return mz, err == nil, err
			}
		}
	}
	return 0, false, nil
}

// Filter returns the MS order and precursor masses of a spectrum
func (f *MzML) Filter(scanIndex int) (chrom.Filter, error) {
	var filter chrom.Filter
	msLevel, err := f.MSLevel(scanIndex)
	if err != nil {
		return filter, err
	}
	filter.MSOrder = msLevel
	if msLevel > 1 {
		filter.PrecursorMasses, err = f.PrecursorMzs(scanIndex)
		if err != nil {
			return filter, err
		}
	}
	return filter, nil
}

// Centroids returns the centroid peaks of a spectrum. For profile
// spectra nil is returned, unless AcceptProfile is set.
func (f *MzML) Centroids(scanIndex int) (*chrom.CentroidStream, error) {
	centroid, err := f.Centroid(scanIndex)
	if err != nil {
		return nil, err
	}
	if !centroid && !f.AcceptProfile {
		return nil, nil
	}
	mz, intens, err := f.peakArrays(scanIndex)
	if err != nil {
		return nil, err
	}
	return &chrom.CentroidStream{Masses: mz, Intensities: intens}, nil
}

// RunInfo collects run metadata
func (f *MzML) RunInfo() (RunInfo, error) {
	var info RunInfo
	r := &f.content.Run
	info.ID = r.ID
	info.StartTimeStamp = r.StartTimeStamp
	info.NumSpecs = f.NumSpecs()
	info.StartTime = -1
	info.EndTime = -1
	for _, sf := range f.content.FileDescription.SourceFile {
		if r.DefaultSourceFileRef == `` || sf.ID == r.DefaultSourceFileRef {
			info.SourceFile = sf.Name
			break
		}
	}
	if info.NumSpecs > 0 {
		var err error
		info.StartTime, err = f.RetentionTime(0)
		if err != nil {
			return info, err
		}
		info.EndTime, err = f.RetentionTime(info.NumSpecs - 1)
		if err != nil {
			return info, err
		}
	}
	analyzers, err := f.MSInstruments()
	if err != nil {
		return info, err
	}
	info.Analyzers = analyzers
	return info, nil
}

// MSLevelCounts returns the number of spectra per MS level
func (f *MzML) MSLevelCounts() (map[int]int, error) {
	counts := make(map[int]int)
	for i := 0; i < f.NumSpecs(); i++ {
		msLevel, err := f.MSLevel(i)
		if err != nil {
			return nil, err
		}
		counts[msLevel]++
	}
	return counts, nil
}

// RetentionTimeRange returns the lowest and highest retention time of
// the spectra in [first, last]. Spectra without retention time are ignored.
func (f *MzML) RetentionTimeRange(first, last int) (float64, float64, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := first; i <= last; i++ {
		rt, err := f.RetentionTime(i)
		if err != nil {
			return 0, 0, err
		}
		if rt < 0 {
			continue
		}
		lo = math.Min(lo, rt)
		hi = math.Max(hi, rt)
	}
	return lo, hi, nil
}
