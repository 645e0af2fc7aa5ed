package tracking

import (
	"database/sql"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"diabetesml/pkg/logging"
)

// Run is an active training run. It is safe for concurrent use.
type Run struct {
	ID           string
	ExperimentID int64
	ArtifactDir  string

	t     *Tracker
	mu    sync.Mutex
	ended bool
	step  map[string]int
}

// StartRun opens a RUNNING run in the named experiment.
func (t *Tracker) StartRun(experiment string) (*Run, error) {
	expID, err := t.Experiment(experiment)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	dir := filepath.Join(t.root, strconv.FormatInt(expID, 10), id, "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	_, err = t.db.Exec(`INSERT INTO runs (id, experiment_id, status, start_time, artifact_uri) VALUES (?, ?, ?, ?, ?)`,
		id, expID, StatusRunning, nowMillis(), dir)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	logging.Log.WithFields(logrus.Fields{"run_id": id, "experiment": experiment}).Info("Tracking run started")
	return &Run{ID: id, ExperimentID: expID, ArtifactDir: dir, t: t, step: map[string]int{}}, nil
}

func (r *Run) SetTag(key, value string) error {
	_, err := r.t.db.Exec(`INSERT OR REPLACE INTO tags (run_id, key, value) VALUES (?, ?, ?)`, r.ID, key, value)
	if err != nil {
		return fmt.Errorf("set tag %s: %w", key, err)
	}
	return nil
}

func (r *Run) LogParam(key, value string) error {
	_, err := r.t.db.Exec(`INSERT OR REPLACE INTO params (run_id, key, value) VALUES (?, ?, ?)`, r.ID, key, value)
	if err != nil {
		return fmt.Errorf("log param %s: %w", key, err)
	}
	return nil
}

// LogParams logs every entry in key order.
func (r *Run) LogParams(params map[string]string) error {
	for _, k := range sortedKeys(params) {
		if err := r.LogParam(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

// LogMetric appends a value to the metric's history. NaN and Inf values are skipped.
func (r *Run) LogMetric(key string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		logging.Log.WithField("metric", key).Warn("Skipping non-finite metric")
		return nil
	}
	r.mu.Lock()
	step := r.step[key]
	r.step[key] = step + 1
	r.mu.Unlock()

	_, err := r.t.db.Exec(`INSERT INTO metrics (run_id, key, value, step, timestamp) VALUES (?, ?, ?, ?, ?)`,
		r.ID, key, value, step, nowMillis())
	if err != nil {
		return fmt.Errorf("log metric %s: %w", key, err)
	}
	return nil
}

func (r *Run) LogMetrics(metrics map[string]float64) error {
	for _, k := range sortedKeys(metrics) {
		if err := r.LogMetric(k, metrics[k]); err != nil {
			return err
		}
	}
	return nil
}

// LogArtifact copies the file at src into the run's artifact directory under subdir
// and returns the stored path.
func (r *Run) LogArtifact(src, subdir string) (string, error) {
	dstDir := filepath.Join(r.ArtifactDir, subdir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dstDir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("log artifact: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("log artifact: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("log artifact: %w", err)
	}
	return dst, out.Close()
}

// RegisterModel adds the next version of name pointing at source.
func (r *Run) RegisterModel(name, source string) (int, error) {
	tx, err := r.t.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var latest sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(version) FROM model_versions WHERE name = ?`, name).Scan(&latest); err != nil {
		return 0, fmt.Errorf("register model %s: %w", name, err)
	}
	version := int(latest.Int64) + 1
	_, err = tx.Exec(`INSERT INTO model_versions (name, version, run_id, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, version, r.ID, source, nowMillis())
	if err != nil {
		return 0, fmt.Errorf("register model %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logging.Log.WithFields(logrus.Fields{"model": name, "version": version}).Info("Registered model version")
	return version, nil
}

// End closes the run with status. Only the first call has an effect.
func (r *Run) End(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return nil
	}
	_, err := r.t.db.Exec(`UPDATE runs SET status = ?, end_time = ? WHERE id = ?`, status, nowMillis(), r.ID)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	r.ended = true
	logging.Log.WithFields(logrus.Fields{"run_id": r.ID, "status": status}).Info("Tracking run ended")
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
