package export

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/524D/mzsrm/internal/chrom"
	_ "github.com/mattn/go-sqlite3"
)

// Date format for RunTable (ISO 8601)
const runDateFormat = "2006-01-02T15:04:05Z07:00"

// RunRecord describes the extraction stored with the traces
type RunRecord struct {
	SourceFile string
	FirstScan  int
	LastScan   int
	KeyDigits  int
	Stats      chrom.Stats
}

// DBWriter writes chromatograms to a SQLite database
type DBWriter struct {
	db *sql.DB
}

// NewDBWriter opens (or creates) the database at outputPath and
// creates the schema
func NewDBWriter(outputPath string) (*DBWriter, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	w := &DBWriter{db: db}
	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *DBWriter) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId INTEGER PRIMARY KEY,
		SourceFile TEXT,
		FirstScan INTEGER,
		LastScan INTEGER,
		KeyDigits INTEGER,
		Scans INTEGER,
		MS2Scans INTEGER,
		EmptyScans INTEGER,
		UntimedScans INTEGER,
		Samples INTEGER,
		CreationDate TEXT
	);

	CREATE TABLE IF NOT EXISTS TransitionTable (
		TransitionId INTEGER PRIMARY KEY,
		RunId INTEGER REFERENCES RunTable(RunId),
		Q1 DOUBLE,
		Q3 DOUBLE,
		KeyQ1 DOUBLE,
		KeyQ3 DOUBLE,
		Samples INTEGER,
		Area DOUBLE,
		ApexTime DOUBLE,
		ApexIntensity DOUBLE,
		blobTime BLOB,
		blobIntensity BLOB
	);
	`
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Write stores the run and all its traces in a single transaction.
// It returns the id of the new run.
func (w *DBWriter) Write(run RunRecord, c *chrom.Chromatograms) (int64, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO RunTable (
			SourceFile, FirstScan, LastScan, KeyDigits,
			Scans, MS2Scans, EmptyScans, UntimedScans, Samples, CreationDate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.SourceFile, run.FirstScan, run.LastScan, run.KeyDigits,
		run.Stats.Scans, run.Stats.MS2Scans, run.Stats.EmptyScans, run.Stats.UntimedScans,
		run.Stats.Samples,
		time.Now().Format(runDateFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO TransitionTable (
			RunId, Q1, Q3, KeyQ1, KeyQ3, Samples, Area,
			ApexTime, ApexIntensity, blobTime, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare transition statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range c.Traces() {
		s := chrom.Summarize(t)
		_, err := stmt.Exec(
			runID,
			t.Q1,
			t.Q3,
			t.Key.Q1,
			t.Key.Q3,
			s.Samples,
			s.Area,
			s.ApexTime,
			s.ApexIntensity,
			encodeFloat64(t.Times),
			encodeFloat64(t.Intensities),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return runID, nil
}

// encodeFloat64 encodes values as little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Close closes the database connection
func (w *DBWriter) Close() error {
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
