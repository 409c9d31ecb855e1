// Package catalog persists run and per-file conversion provenance in a
// SQLite database at the output root. The catalog is observational: batch
// idempotence is keyed on the artifact files, never on catalog rows.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Filename is the database file created under the output root.
const Filename = "catalog.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    started_at  TEXT NOT NULL,
    finished_at TEXT,
    ok          INTEGER NOT NULL DEFAULT 0,
    skip        INTEGER NOT NULL DEFAULT 0,
    err         INTEGER NOT NULL DEFAULT 0,
    total       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id         TEXT NOT NULL REFERENCES runs(run_id),
    site           TEXT,
    patient        TEXT,
    input_path     TEXT NOT NULL,
    output_dir     TEXT NOT NULL,
    status         TEXT NOT NULL,
    message        TEXT,
    filesize_bytes INTEGER,
    shape_zyx      TEXT,
    spacing_zyx_mm TEXT,
    mean_intensity REAL,
    std_intensity  REAL,
    min_intensity  INTEGER,
    max_intensity  INTEGER,
    nifti_written  INTEGER NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_run ON conversions(run_id);
CREATE INDEX IF NOT EXISTS idx_conversions_input ON conversions(input_path);
`

// Catalog manages provenance persistence backed by SQLite.
type Catalog struct {
	db   *sql.DB
	path string
}

// Record is one per-file provenance row.
type Record struct {
	RunID        string
	Site         string
	Patient      string
	InputPath    string
	OutputDir    string
	Status       string
	Message      string
	Filesize     int64
	Shape        string
	Spacing      string
	Mean         float64
	StdDev       float64
	Min          int
	Max          int
	NiftiWritten bool
	HasStats     bool
}

// Open initializes or connects to the catalog database under outputRoot.
func Open(outputRoot string) (*Catalog, error) {
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return nil, fmt.Errorf("ensure output root: %w", err)
	}

	dbPath := filepath.Join(outputRoot, Filename)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Catalog{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (c *Catalog) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// StartRun inserts a new run row and returns its identifier.
func (c *Catalog) StartRun(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the run's end time and final tallies.
func (c *Catalog) FinishRun(ctx context.Context, runID string, ok, skip, errCount, total int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := c.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, ok = ?, skip = ?, err = ?, total = ? WHERE run_id = ?`,
		now, ok, skip, errCount, total, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordConversion appends one per-file row.
func (c *Catalog) RecordConversion(ctx context.Context, rec Record) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var mean, std, minV, maxV interface{}
	if rec.HasStats {
		mean, std = rec.Mean, rec.StdDev
		minV, maxV = rec.Min, rec.Max
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO conversions (
            run_id, site, patient, input_path, output_dir, status, message,
            filesize_bytes, shape_zyx, spacing_zyx_mm,
            mean_intensity, std_intensity, min_intensity, max_intensity,
            nifti_written, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, nullable(rec.Site), nullable(rec.Patient),
		rec.InputPath, rec.OutputDir, rec.Status, nullable(rec.Message),
		rec.Filesize, nullable(rec.Shape), nullable(rec.Spacing),
		mean, std, minV, maxV,
		boolToInt(rec.NiftiWritten), now,
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// RunIDs returns the identifiers of every recorded run, oldest first.
func (c *Catalog) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id FROM runs ORDER BY started_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StatusCounts returns the per-status row counts for one run.
func (c *Catalog) StatusCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM conversions WHERE run_id = ? GROUP BY status`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
