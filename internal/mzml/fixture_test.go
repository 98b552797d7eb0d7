package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
)

// testSpectrum describes a spectrum for building an mzML test file
type testSpectrum struct {
	msLevel     int
	centroid    bool
	rt          float64
	rtMinutes   bool
	noRT        bool
	target      float64 // isolation window target m/z, 0 for none
	selectedIon float64 // selected ion m/z, 0 for none
	tic         float64 // total ion current, 0 for none
	mz          []float64
	intens      []float64
	zlib        bool
	bits64      bool
}

// encodeBinary encodes values as a base64 mzML binary, optionally
// zlib compressed
func encodeBinary(values []float64, zlibCompression bool, bits64 bool) string {
	var raw []byte
	if bits64 {
		raw = make([]byte, len(values)*8)
		for i, v := range values {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
		}
	} else {
		raw = make([]byte, len(values)*4)
		for i, v := range values {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(v)))
		}
	}
	if zlibCompression {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		z.Write(raw)
		z.Close() // zlib writer must explicitly be closed here, otherwise result is invalid
		raw = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func binaryArrayXML(values []float64, s testSpectrum, arrayCV string) string {
	var sb strings.Builder
	enc := encodeBinary(values, s.zlib, s.bits64)
	fmt.Fprintf(&sb, `<binaryDataArray encodedLength="%d">`, len(enc))
	if s.bits64 {
		sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>`)
	} else {
		sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000521" name="32-bit float"/>`)
	}
	if s.zlib {
		sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000574" name="zlib compression"/>`)
	} else {
		sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000576" name="no compression"/>`)
	}
	fmt.Fprintf(&sb, `<cvParam cvRef="MS" accession="%s"/>`, arrayCV)
	fmt.Fprintf(&sb, `<binary>%s</binary></binaryDataArray>`, enc)
	return sb.String()
}

// buildMzML returns the text of an indexed mzML file holding spectra
func buildMzML(t testing.TB, spectra []testSpectrum) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
<fileDescription><fileContent/>
<sourceFileList count="1"><sourceFile id="RAW1" name="test.raw" location="file:///data"/></sourceFileList>
</fileDescription>
<instrumentConfigurationList count="1">
<instrumentConfiguration id="IC1"><componentList count="1">
<analyzer order="2"><cvParam cvRef="MS" accession="MS:1000081" name="quadrupole"/></analyzer>
</componentList></instrumentConfiguration>
</instrumentConfigurationList>
<run id="test_run" startTimeStamp="2024-02-03T10:11:12Z" defaultSourceFileRef="RAW1">
`)
	fmt.Fprintf(&sb, "<spectrumList count=\"%d\">\n", len(spectra))
	for i, s := range spectra {
		fmt.Fprintf(&sb, `<spectrum index="%d" id="scan=%d" defaultArrayLength="%d">`, i, i+1, len(s.mz))
		fmt.Fprintf(&sb, `<cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="%d"/>`, s.msLevel)
		if s.centroid {
			sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000127" name="centroid spectrum"/>`)
		} else {
			sb.WriteString(`<cvParam cvRef="MS" accession="MS:1000128" name="profile spectrum"/>`)
		}
		if s.tic != 0 {
			fmt.Fprintf(&sb, `<cvParam cvRef="MS" accession="MS:1000285" name="total ion current" value="%g"/>`, s.tic)
		}
		sb.WriteString(`<scanList count="1"><scan>`)
		if !s.noRT {
			if s.rtMinutes {
				fmt.Fprintf(&sb, `<cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="%g" unitCvRef="UO" unitAccession="UO:0000031" unitName="minute"/>`, s.rt)
			} else {
				fmt.Fprintf(&sb, `<cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="%g" unitCvRef="UO" unitAccession="UO:0000010" unitName="second"/>`, s.rt)
			}
		}
		sb.WriteString(`</scan></scanList>`)
		if s.target != 0 || s.selectedIon != 0 {
			sb.WriteString(`<precursorList count="1"><precursor>`)
			if s.target != 0 {
				fmt.Fprintf(&sb, `<isolationWindow><cvParam cvRef="MS" accession="MS:1000827" name="isolation window target m/z" value="%g"/></isolationWindow>`, s.target)
			}
			if s.selectedIon != 0 {
				fmt.Fprintf(&sb, `<selectedIonList count="1"><selectedIon><cvParam cvRef="MS" accession="MS:1000744" name="selected ion m/z" value="%g"/></selectedIon></selectedIonList>`, s.selectedIon)
			}
			sb.WriteString(`</precursor></precursorList>`)
		}
		sb.WriteString(`<binaryDataArrayList count="2">`)
		sb.WriteString(binaryArrayXML(s.mz, s, `MS:1000514`))
		sb.WriteString(binaryArrayXML(s.intens, s, `MS:1000515`))
		sb.WriteString("</binaryDataArrayList></spectrum>\n")
	}
	sb.WriteString(`</spectrumList>
</run>
</mzML>
<indexList count="0"/>
</indexedmzML>
`)
	return sb.String()
}

// readTestMzML builds and parses an mzML file
func readTestMzML(t testing.TB, spectra []testSpectrum) MzML {
	t.Helper()
	f, err := Read(strings.NewReader(buildMzML(t, spectra)))
	if err != nil {
		t.Fatalf("Read: error return %v", err)
	}
	return f
}
