// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"
	"io"
	"math"

	"github.com/524D/mzsrm/internal/chrom"
	"github.com/524D/mzsrm/internal/mzml"
)

// debugSource prints the data of spectra min..max as the
// reconstruction reads them
type debugSource struct {
	chrom.ScanSource
	mzML *mzml.MzML // For spectrum ids and total ion current
	min  int
	max  int
	w    io.Writer
}

func (d *debugSource) inRange(i int) bool {
	return i >= d.min && i <= d.max
}

func (d *debugSource) Filter(i int) (chrom.Filter, error) {
	f, err := d.ScanSource.Filter(i)
	if d.inRange(i) {
		if err != nil {
			fmt.Fprintf(d.w, "Spectrum:%d filter error: %v\n", i, err)
		} else {
			fmt.Fprintf(d.w, "Spectrum:%d id:%s MS%d precursors:%v%s\n",
				i, d.scanID(i), f.MSOrder, f.PrecursorMasses, d.tic(i))
		}
	}
	return f, err
}

func (d *debugSource) scanID(i int) string {
	id, err := d.mzML.ScanID(i)
	if err != nil {
		return `?`
	}
	return id
}

func (d *debugSource) tic(i int) string {
	tic, err := d.mzML.TotalIonCurrent(i)
	if err != nil || math.IsNaN(tic) {
		return ``
	}
	return fmt.Sprintf(" tic:%g", tic)
}

func (d *debugSource) RetentionTime(i int) (float64, error) {
	rt, err := d.ScanSource.RetentionTime(i)
	if d.inRange(i) && err == nil {
		fmt.Fprintf(d.w, "Spectrum:%d rt:%f\n", i, rt)
	}
	return rt, err
}

func (d *debugSource) Centroids(i int) (*chrom.CentroidStream, error) {
	cs, err := d.ScanSource.Centroids(i)
	if d.inRange(i) && err == nil {
		if cs == nil {
			fmt.Fprintf(d.w, "Spectrum:%d no centroid data\n", i)
			return cs, err
		}
		for j := range cs.Masses {
			if j < len(cs.Intensities) {
				fmt.Fprintf(d.w, "%d mz:%f intens:%f\n", j, cs.Masses[j], cs.Intensities[j])
			}
		}
	}
	return cs, err
}

// minuteSource converts retention times in seconds to minutes
type minuteSource struct {
	chrom.ScanSource
}

func (m minuteSource) RetentionTime(i int) (float64, error) {
	rt, err := m.ScanSource.RetentionTime(i)
	// Missing retention times (-1) stay negative
	if err != nil || rt < 0 {
		return rt, err
	}
	return rt / 60, nil
}
