// Package tracking records training runs (parameters, metrics, tags, artifacts and
// registered model versions) in a local SQLite database.
package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFile is the database name inside the tracking root.
const DBFile = "tracking.db"

// Status of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// Tracker owns the tracking database and the artifact tree under root.
type Tracker struct {
	db   *sql.DB
	root string
}

// Open creates root if needed and opens (or initializes) its database.
func Open(root string) (*Tracker, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(root, DBFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	t := &Tracker{db: db, root: root}
	if err := t.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tracker) initialize() error {
	experiments := `
	CREATE TABLE IF NOT EXISTS experiments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		artifact_location TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	runs := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		experiment_id INTEGER NOT NULL REFERENCES experiments(id),
		status TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		artifact_uri TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_experiment ON runs(experiment_id);`

	params := `
	CREATE TABLE IF NOT EXISTS params (
		run_id TEXT NOT NULL REFERENCES runs(id),
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);`

	metrics := `
	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		key TEXT NOT NULL,
		value REAL NOT NULL,
		step INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id, key);`

	tags := `
	CREATE TABLE IF NOT EXISTS tags (
		run_id TEXT NOT NULL REFERENCES runs(id),
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);`

	registry := `
	CREATE TABLE IF NOT EXISTS model_versions (
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id),
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (name, version)
	);`

	for _, table := range []string{experiments, runs, params, metrics, tags, registry} {
		if _, err := t.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (t *Tracker) Close() error {
	return t.db.Close()
}

// Experiment returns the id of the named experiment, creating it on first use.
func (t *Tracker) Experiment(name string) (int64, error) {
	var id int64
	err := t.db.QueryRow(`SELECT id FROM experiments WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup experiment %q: %w", name, err)
	}

	res, err := t.db.Exec(`INSERT INTO experiments (name, artifact_location, created_at) VALUES (?, ?, ?)`,
		name, t.root, nowMillis())
	if err != nil {
		return 0, fmt.Errorf("create experiment %q: %w", name, err)
	}
	return res.LastInsertId()
}

// ModelVersion is one registered model version.
type ModelVersion struct {
	Name    string
	Version int
	RunID   string
	Source  string
}

// LatestVersion returns the newest version registered under name.
func (t *Tracker) LatestVersion(name string) (ModelVersion, error) {
	mv := ModelVersion{Name: name}
	err := t.db.QueryRow(`SELECT version, run_id, source FROM model_versions WHERE name = ? ORDER BY version DESC LIMIT 1`, name).
		Scan(&mv.Version, &mv.RunID, &mv.Source)
	if err != nil {
		return mv, fmt.Errorf("latest version of %q: %w", name, err)
	}
	return mv, nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
