// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/524D/mzsrm/internal/chrom"
	"github.com/524D/mzsrm/internal/config"
	"github.com/524D/mzsrm/internal/export"
	"github.com/524D/mzsrm/internal/mzml"

	"github.com/spf13/cobra"
)

// Program name and version
const progName = "mzSRM"

var progVersion = `Unknown`

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	cfg          config.Config
	configFile   string
	mzMLFilename string
	verbosity    int         // Verbosity of progress messages (infoDefault...)
	stdout       io.Writer   // Report output
	stderr       io.Writer   // Progress messages
	logger       *log.Logger // Warnings, written to stderr
}

var ErrRangeSpec = errors.New("invalid range specified")

// ErrNoSpectra means the mzML file contains no spectra
var ErrNoSpectra = errors.New("mzML file contains no spectra")

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned.
// An empty string gives the default range.
func parseIntRange(r string, min int, max int) (int, int, error) {
	minOut := min
	maxOut := max
	if strings.TrimSpace(r) == `` {
		return minOut, maxOut, nil
	}
	re := regexp.MustCompile(`^\s*(\-?\d*):(\-?\d*)\s*$`)
	m := re.FindStringSubmatch(r)
	if m == nil {
		return minOut, maxOut, fmt.Errorf("%w: %q", ErrRangeSpec, r)
	}
	var err error
	if m[1] != "" {
		if minOut, err = strconv.Atoi(m[1]); err != nil {
			return min, max, fmt.Errorf("%w: %q", ErrRangeSpec, r)
		}
		if minOut < min {
			minOut = min
		}
	}
	if m[2] != "" {
		if maxOut, err = strconv.Atoi(m[2]); err != nil {
			return min, max, fmt.Errorf("%w: %q", ErrRangeSpec, r)
		}
		if maxOut > max {
			maxOut = max
		}
	}
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// startStep prints the start of a processing step in verbose mode
func startStep(par *params, format string, a ...any) time.Time {
	if par.verbosity == infoVerbose {
		fmt.Fprintf(par.stderr, format, a...)
	}
	return time.Now()
}

// endStep prints the duration of a processing step in verbose mode
func endStep(par *params, t time.Time) {
	if par.verbosity == infoVerbose {
		fmt.Fprintf(par.stderr, "%s\n", time.Since(t))
	}
}

func readMzML(par *params) (mzml.MzML, error) {
	t := startStep(par, "Reading MS data from %s: ", par.mzMLFilename)
	f, err := os.Open(par.mzMLFilename)
	if err != nil {
		return mzml.MzML{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()
	mzML, err := mzml.Read(f)
	if err != nil {
		return mzML, fmt.Errorf("mzml.Read %s: %w", par.mzMLFilename, err)
	}
	endStep(par, t)
	if mzML.NumSpecs() == 0 {
		return mzML, ErrNoSpectra
	}
	return mzML, nil
}

// printRunInfo reports run metadata and the number of spectra per MS level
func printRunInfo(par *params, mzML *mzml.MzML) error {
	info, err := mzML.RunInfo()
	if err != nil {
		return err
	}
	counts, err := mzML.MSLevelCounts()
	if err != nil {
		return err
	}
	w := par.stdout
	fmt.Fprintf(w, "File Name: %s\n", par.mzMLFilename)
	if info.SourceFile != `` {
		fmt.Fprintf(w, "Source File: %s\n", info.SourceFile)
	}
	if info.ID != `` {
		fmt.Fprintf(w, "Run: %s\n", info.ID)
	}
	fmt.Fprintf(w, "Instrument Analyzers: %s\n", strings.Join(info.Analyzers, ", "))
	fmt.Fprintf(w, "Start Time Stamp: %s\n", info.StartTimeStamp)
	fmt.Fprintf(w, "Start Time: %s\n", formatRT(info.StartTime, par.cfg.TimeUnit))
	fmt.Fprintf(w, "End Time: %s\n", formatRT(info.EndTime, par.cfg.TimeUnit))
	fmt.Fprintf(w, "Spectra Count: %d\n", info.NumSpecs)
	levels := make([]int, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	for _, l := range levels {
		fmt.Fprintf(w, "MS%d Spectra: %d\n", l, counts[l])
	}
	return nil
}

func formatRT(rt float64, unit string) string {
	if rt < 0 {
		return `unknown`
	}
	if unit == config.TimeMinutes {
		return fmt.Sprintf("%.3f min", rt/60)
	}
	return fmt.Sprintf("%.3f s", rt)
}

// sanatizeParams fills missing output names from the name of the mzML file
func sanatizeParams(par *params) {
	var extension = filepath.Ext(par.mzMLFilename)
	var startName = par.mzMLFilename[0 : len(par.mzMLFilename)-len(extension)]
	if par.cfg.OutDir == `` {
		par.cfg.OutDir = startName + "-srm"
	}
}

// extractSRM glues together all the steps to produce SRM chromatograms:
// Read mzML file
// Reconstruct the chromatograms of the selected scans
// Write a CSV file per transition
// Optionally write the SQLite database and JSON summary
func extractSRM(par *params) error {
	mzML, err := readMzML(par)
	if err != nil {
		return err
	}
	mzML.AcceptProfile = par.cfg.AcceptProfile
	if par.verbosity != infoSilent {
		if err := printRunInfo(par, &mzML); err != nil {
			return err
		}
	}

	lastIdx := mzML.NumSpecs() - 1
	firstScan, lastScan, err := parseIntRange(par.cfg.Scans, 0, lastIdx)
	if err != nil {
		return fmt.Errorf("invalid value for parameter 'scans': %w", err)
	}

	var src chrom.ScanSource = &mzML
	if par.cfg.TimeUnit == config.TimeMinutes {
		src = minuteSource{src}
	}
	if par.cfg.Debug != `` {
		debugMin, debugMax, err := parseIntRange(par.cfg.Debug, 0, lastIdx)
		if err != nil {
			return fmt.Errorf("invalid value for parameter 'debug': %w", err)
		}
		src = &debugSource{ScanSource: src, mzML: &mzML, min: debugMin, max: debugMax, w: par.stdout}
	}

	t := startStep(par, "Reconstructing chromatograms of spectra %d:%d: ", firstScan, lastScan)
	r := &chrom.Reconstructor{KeyDigits: par.cfg.KeyDigits}
	c, err := r.Reconstruct(src, firstScan, lastScan)
	if err != nil {
		return err
	}
	endStep(par, t)
	if par.verbosity != infoSilent {
		if c.Stats.EmptyScans > 0 {
			par.logger.Printf("Warning: %d MS2 spectra without centroid data were skipped", c.Stats.EmptyScans)
		}
		if c.Stats.UntimedScans > 0 {
			par.logger.Printf("Warning: %d MS2 spectra without retention time were skipped", c.Stats.UntimedScans)
		}
	}
	if par.verbosity == infoVerbose {
		lo, hi, err := mzML.RetentionTimeRange(firstScan, lastScan)
		if err == nil && lo <= hi {
			fmt.Fprintf(par.stderr, "Retention time range: %s - %s\n",
				formatRT(lo, par.cfg.TimeUnit), formatRT(hi, par.cfg.TimeUnit))
		}
		fmt.Fprintf(par.stderr, "Spectra: %d MS2: %d Samples: %d\n",
			c.Stats.Scans, c.Stats.MS2Scans, c.Stats.Samples)
	}

	t = startStep(par, "Writing CSV files to %s: ", par.cfg.OutDir)
	cw := &export.CSVWriter{Dir: par.cfg.OutDir, NameDigits: par.cfg.NameDigits}
	paths, err := cw.Write(c)
	if err != nil {
		return err
	}
	endStep(par, t)

	run := export.RunRecord{
		SourceFile: par.mzMLFilename,
		FirstScan:  firstScan,
		LastScan:   lastScan,
		KeyDigits:  par.cfg.KeyDigits,
		Stats:      c.Stats,
	}
	if par.cfg.DBFile != `` {
		if err := writeDB(par, run, c); err != nil {
			return err
		}
	}
	if par.cfg.SummaryFile != `` {
		t = startStep(par, "Writing summary to %s: ", par.cfg.SummaryFile)
		info, err := mzML.RunInfo()
		if err != nil {
			return err
		}
		err = export.WriteSummaryFile(par.cfg.SummaryFile, export.NewRunSummary(run, info.StartTimeStamp, c))
		if err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		endStep(par, t)
	}

	if par.verbosity != infoSilent {
		fmt.Fprintf(par.stdout, "Transitions: %d Files written: %d\n", c.Len(), len(paths))
	}
	return nil
}

func writeDB(par *params, run export.RunRecord, c *chrom.Chromatograms) error {
	t := startStep(par, "Writing database %s: ", par.cfg.DBFile)
	w, err := export.NewDBWriter(par.cfg.DBFile)
	if err != nil {
		return err
	}
	if _, err := w.Write(run, c); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	endStep(par, t)
	return nil
}

// loadConfig merges the configuration file with the flags that were set
// explicitly on the command line
func loadConfig(cmd *cobra.Command, par *params, flagCfg config.Config) error {
	cfg, err := config.Load(par.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("key-digits") {
		cfg.KeyDigits = flagCfg.KeyDigits
	}
	if flags.Changed("name-digits") {
		cfg.NameDigits = flagCfg.NameDigits
	}
	if flags.Changed("time-unit") {
		cfg.TimeUnit = flagCfg.TimeUnit
	}
	if flags.Changed("acceptprofile") {
		cfg.AcceptProfile = flagCfg.AcceptProfile
	}
	if flags.Changed("out") {
		cfg.OutDir = flagCfg.OutDir
	}
	if flags.Changed("db") {
		cfg.DBFile = flagCfg.DBFile
	}
	if flags.Changed("summary") {
		cfg.SummaryFile = flagCfg.SummaryFile
	}
	if flags.Changed("scans") {
		cfg.Scans = flagCfg.Scans
	}
	if flags.Changed("debug") {
		cfg.Debug = flagCfg.Debug
	}
	par.cfg = cfg
	return cfg.Validate()
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	par := &params{
		stdout: stdout,
		stderr: stderr,
		logger: log.New(stderr, "", log.LstdFlags|log.Lshortfile),
	}
	var verbose, quiet bool
	var flagCfg config.Config

	rootCmd := &cobra.Command{
		Use:   "mzsrm",
		Short: progName + " - SRM chromatogram reconstruction",
		Long: `mzSRM reconstructs selected reaction monitoring (SRM) chromatograms
from the MS2 spectra in an mzML file.

Every centroid peak of an MS2 spectrum is a sample of the transition formed
by the precursor m/z (Q1) of the spectrum and the m/z of the peak (Q3).
Samples of transitions with the same rounded Q1/Q3 are collected into one
chromatogram, which is written to a CSV file with lines <time>,<intensity>.`,
		Version:       progVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				par.verbosity = infoVerbose
			}
			if quiet {
				par.verbosity = infoSilent
			}
			return loadConfig(cmd, par, flagCfg)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print more verbose progress information")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Don't print any output except for errors")
	rootCmd.PersistentFlags().StringVar(&par.configFile, "config", "",
		"YAML configuration `file` (default from environment variable "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&flagCfg.TimeUnit, "time-unit", config.TimeMinutes,
		`unit of retention times in output: "min" or "s"`)

	infoCmd := &cobra.Command{
		Use:   "info <mzMLfile>",
		Short: "Print run metadata of an mzML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			par.mzMLFilename = args[0]
			mzML, err := readMzML(par)
			if err != nil {
				return err
			}
			return printRunInfo(par, &mzML)
		},
	}

	extractCmd := &cobra.Command{
		Use:   "extract [options] <mzMLfile>",
		Short: "Reconstruct SRM chromatograms and write them to CSV files",
		Long: `Reconstruct SRM chromatograms from the MS2 spectra of an mzML file
and write one CSV file per transition.

Examples:
  # Write chromatograms of yeast.mzML to directory yeast-srm
  mzsrm extract yeast.mzML

  # Only spectra 1000 to 2000, also store traces in a database
  mzsrm extract --scans 1000:2000 --db yeast.db yeast.mzML`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			par.mzMLFilename = args[0]
			sanatizeParams(par)
			return extractSRM(par)
		},
	}
	ef := extractCmd.Flags()
	ef.StringVarP(&flagCfg.OutDir, "out", "o", "", "`directory` for CSV files (default <mzMLfile>-srm)")
	ef.StringVar(&flagCfg.Scans, "scans", "", "`range` of spectrum indices to use (e.g. 1000:2000). Default is all spectra")
	ef.IntVar(&flagCfg.KeyDigits, "key-digits", chrom.DefaultKeyDigits, "decimals of Q1/Q3 used to group peaks into transitions")
	ef.IntVar(&flagCfg.NameDigits, "name-digits", export.DefaultNameDigits, "decimals of Q1/Q3 in CSV file names")
	ef.StringVar(&flagCfg.DBFile, "db", "", "SQLite database `filename` to store the chromatograms in")
	ef.StringVar(&flagCfg.SummaryFile, "summary", "", "`filename` for JSON summary of the chromatograms")
	ef.BoolVar(&flagCfg.AcceptProfile, "acceptprofile", false, "Use peaks of non-peak picked (profile) spectra")
	ef.StringVar(&flagCfg.Debug, "debug", "", "Print debug output for given spectrum `range` e.g. 3:6")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(extractCmd)
	return rootCmd
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
