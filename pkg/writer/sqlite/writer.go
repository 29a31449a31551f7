// Package sqlite provides SQLite database writing for result tables and scans
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crtlab/n145/pkg/core"
)

const (
	// Schema version written to RunTable
	schemaVersion = 1
	// Date format for RunTable (ISO 8601)
	runDateFormat = "2006-01-02"
)

// Writer handles writing result tables and spectra to SQLite database files
type Writer struct {
	db           *sql.DB
	outputPath   string
	spectrumStmt *sql.Stmt
	spectrumID   int
	tables       []string
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	// Earlier runs may have stored spectra in the same file
	if err := db.QueryRow(`SELECT COALESCE(MAX(SpectrumId), 0) + 1 FROM SpectrumTable`).Scan(&w.spectrumID); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read last spectrum id: %w", err)
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the fixed part of the schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY,
		ScanNumber INTEGER,
		NativeId TEXT,
		MSLevel INTEGER,
		RetentionTime DOUBLE,
		PeaksCount INTEGER,
		LowMZ DOUBLE,
		HighMZ DOUBLE,
		SourceFile TEXT,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS RunTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		Command TEXT,
		Tables TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.spectrumStmt, err = w.db.Prepare(`
		INSERT INTO SpectrumTable (
			SpectrumId, ScanNumber, NativeId, MSLevel, RetentionTime,
			PeaksCount, LowMZ, HighMZ, SourceFile, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	return nil
}

// WriteSpectrum writes a single scan to the database
func (w *Writer) WriteSpectrum(spec *core.Spectrum) error {
	// Ensure peaks are sorted
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	low, high := spec.MZRange()

	// Encode peaks as binary blobs (little-endian float64)
	mzBlob := encodePeaksFloat64(spec.Peaks, true)
	intBlob := encodePeaksFloat64(spec.Peaks, false)

	_, err := w.spectrumStmt.Exec(
		w.spectrumID,
		spec.ScanNumber,
		spec.NativeID,
		spec.MSLevel,
		spec.RetentionTime,
		len(spec.Peaks),
		low,
		high,
		spec.SourceFile,
		mzBlob,
		intBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert spectrum %s: %w", spec.Name(), err)
	}

	w.spectrumID++
	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// DecodePeaksFloat64 reverses encodePeaksFloat64
func DecodePeaksFloat64(blob []byte) []float64 {
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values
}

// WriteTable creates a SQL table named after the result table and inserts
// all rows in one transaction. Column types follow the first non-nil value.
func (w *Writer) WriteTable(t *core.Table) error {
	name := tableName(t.Name)
	if name == "" {
		return fmt.Errorf("table has no name")
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(c), columnType(t, i))
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(name))); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("failed to insert row %d of %s: %w", i+1, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}

	w.tables = append(w.tables, name)
	return nil
}

// columnType maps the Go type of the first non-nil cell to a SQLite type
func columnType(t *core.Table, col int) string {
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int64:
			return "INTEGER"
		case float64, float32:
			return "DOUBLE"
		case bool:
			return "BOOL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// tableName turns a sheet title into a SQL table name
func tableName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Finalize writes the run record and closes the database
func (w *Writer) Finalize(command, description string) error {
	_, err := w.db.Exec(`
		INSERT INTO RunTable (version, CreationDate, Command, Tables, Description)
		VALUES (?, ?, ?, ?, ?)
	`, schemaVersion, time.Now().Format(runDateFormat), command, strings.Join(w.tables, ","), description)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return w.Close()
}

// Close closes the prepared statements and the database connection
func (w *Writer) Close() error {
	if w.spectrumStmt != nil {
		w.spectrumStmt.Close()
		w.spectrumStmt = nil
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
