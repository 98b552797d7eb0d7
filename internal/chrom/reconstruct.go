package chrom

import "fmt"

// Reconstructor builds chromatograms from a ScanSource
type Reconstructor struct {
	// KeyDigits is the number of decimals used to group Q1/Q3 values
	KeyDigits int
}

// NewReconstructor returns a Reconstructor using DefaultKeyDigits
func NewReconstructor() *Reconstructor {
	return &Reconstructor{KeyDigits: DefaultKeyDigits}
}

// Reconstruct visits the scans firstScan..lastScan (inclusive) in
// ascending order and collects the centroid peaks of all MS2 scans.
// When the source fails for a scan, nothing is returned except the error,
// wrapped with the scan index.
func (r *Reconstructor) Reconstruct(src ScanSource, firstScan, lastScan int) (*Chromatograms, error) {
	if firstScan < 0 || firstScan > lastScan {
		return nil, fmt.Errorf("%w: %d:%d", ErrScanRange, firstScan, lastScan)
	}
	c := newChromatograms()
	for scan := firstScan; scan <= lastScan; scan++ {
		if err := r.addScan(c, src, scan); err != nil {
			return nil, fmt.Errorf("scan %d: %w", scan, err)
		}
	}
	return c, nil
}

func (r *Reconstructor) addScan(c *Chromatograms, src ScanSource, scan int) error {
	c.Stats.Scans++
	filter, err := src.Filter(scan)
	if err != nil {
		return err
	}
	if filter.MSOrder != MS2 {
		return nil
	}
	c.Stats.MS2Scans++
	if len(filter.PrecursorMasses) == 0 {
		return ErrNoPrecursor
	}
	q1 := filter.PrecursorMasses[0]

	rt, err := src.RetentionTime(scan)
	if err != nil {
		return err
	}
	if rt < 0 {
		c.Stats.UntimedScans++
		return nil
	}

	cs, err := src.Centroids(scan)
	if err != nil {
		return err
	}
	if cs == nil || len(cs.Masses) == 0 || len(cs.Intensities) == 0 {
		c.Stats.EmptyScans++
		return nil
	}

	// Arrays of unequal length only pair up to the shorter one
	n := min(len(cs.Masses), len(cs.Intensities))
	for i := 0; i < n; i++ {
		q3 := cs.Masses[i]
		key := NewTransitionKey(q1, q3, r.KeyDigits)
		c.trace(key, q1, q3).add(rt, cs.Intensities[i])
	}
	c.Stats.Samples += n
	return nil
}
