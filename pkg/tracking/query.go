package tracking

import (
	"database/sql"
	"fmt"
)

// RunInfo is a stored run with its latest metric values.
type RunInfo struct {
	ID           string
	ExperimentID int64
	Status       Status
	StartTime    int64
	EndTime      int64
	ArtifactURI  string
	Params       map[string]string
	Metrics      map[string]float64
	Tags         map[string]string
}

// GetRun loads a run by id.
func (t *Tracker) GetRun(id string) (*RunInfo, error) {
	info := &RunInfo{ID: id, Params: map[string]string{}, Metrics: map[string]float64{}, Tags: map[string]string{}}
	var end sql.NullInt64
	err := t.db.QueryRow(`SELECT experiment_id, status, start_time, end_time, artifact_uri FROM runs WHERE id = ?`, id).
		Scan(&info.ExperimentID, &info.Status, &info.StartTime, &end, &info.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	info.EndTime = end.Int64

	if err := t.scanPairs(`SELECT key, value FROM params WHERE run_id = ?`, id, func(k string, v string) {
		info.Params[k] = v
	}); err != nil {
		return nil, err
	}
	if err := t.scanPairs(`SELECT key, value FROM tags WHERE run_id = ?`, id, func(k string, v string) {
		info.Tags[k] = v
	}); err != nil {
		return nil, err
	}

	rows, err := t.db.Query(`SELECT key, value FROM metrics WHERE run_id = ? ORDER BY step`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		info.Metrics[k] = v
	}
	return info, rows.Err()
}

func (t *Tracker) scanPairs(query, id string, fn func(k, v string)) error {
	rows, err := t.db.Query(query, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		fn(k, v)
	}
	return rows.Err()
}

// Runs lists the run ids of an experiment, oldest first.
func (t *Tracker) Runs(experiment string) ([]string, error) {
	rows, err := t.db.Query(`SELECT r.id FROM runs r JOIN experiments e ON e.id = r.experiment_id
		WHERE e.name = ? ORDER BY r.start_time, r.rowid`, experiment)
	if err != nil {
		return nil, err
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
