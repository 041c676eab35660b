package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/cloud2fem/internal/recon/pipeline"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored pipeline execution.
type Run struct {
	RunID         string
	CreatedAt     time.Time
	SourcePath    string
	ConfigJSON    string
	PointCount    int
	LevelCount    int
	NodeCount     int
	ElementCount  int
	InvalidLevels []int
	Elapsed       time.Duration
}

// NewRun summarises a pipeline result. config is stored verbatim as JSON.
// CreatedAt is left zero for RecordRun to stamp.
func NewRun(source string, config any, points int, res *pipeline.Result) (*Run, error) {
	cfg, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	r := &Run{
		RunID:         uuid.NewString(),
		SourcePath:    source,
		ConfigJSON:    string(cfg),
		PointCount:    points,
		LevelCount:    res.Levels.Len(),
		InvalidLevels: append([]int{}, res.InvalidLevels...),
		Elapsed:       res.Elapsed,
	}
	if res.Mesh != nil {
		r.NodeCount = len(res.Mesh.Nodes)
		r.ElementCount = len(res.Mesh.Elements)
	}
	return r, nil
}

// RecordRun stores run and its per-level statistics in one transaction.
func (db *DB) RecordRun(run *Run, levels []pipeline.LevelStats) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = db.clock.Now().UTC()
	}
	invalid, err := json.Marshal(nonNil(run.InvalidLevels))
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, created_at, source_path, config_json, point_count,
			level_count, node_count, element_count, invalid_levels, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.UnixNano(), run.SourcePath, run.ConfigJSON, run.PointCount,
		run.LevelCount, run.NodeCount, run.ElementCount, string(invalid), run.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_levels (
			run_id, level_index, z, slice_points, radius, status, centroids,
			raw_polylines, polylines, polygons, invalid_polygons, cells
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range levels {
		if _, err := stmt.Exec(
			run.RunID, l.Level, l.Z, l.SlicePoints, l.Radius, l.Status, l.Centroids,
			l.RawPolylines, l.Polylines, l.Polygons, l.InvalidPolygons, l.Cells,
		); err != nil {
			return fmt.Errorf("failed to insert level %d: %w", l.Level, err)
		}
	}
	return tx.Commit()
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

const runColumns = `run_id, created_at, source_path, config_json, point_count,
	level_count, node_count, element_count, invalid_levels, elapsed_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r         Run
		createdNs int64
		invalid   string
		elapsedMs int64
	)
	if err := row.Scan(&r.RunID, &createdNs, &r.SourcePath, &r.ConfigJSON, &r.PointCount,
		&r.LevelCount, &r.NodeCount, &r.ElementCount, &invalid, &elapsedMs); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdNs).UTC()
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if err := json.Unmarshal([]byte(invalid), &r.InvalidLevels); err != nil {
		return nil, fmt.Errorf("failed to decode invalid_levels for run %s: %w", r.RunID, err)
	}
	return &r, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 lists all.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, run_id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListRunLevels returns the stored per-level statistics of a run in level
// order.
func (db *DB) ListRunLevels(runID string) ([]pipeline.LevelStats, error) {
	rows, err := db.Query(`
		SELECT level_index, z, slice_points, radius, status, centroids,
		       raw_polylines, polylines, polygons, invalid_polygons, cells
		FROM run_levels WHERE run_id = ? ORDER BY level_index`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.LevelStats
	for rows.Next() {
		var l pipeline.LevelStats
		if err := rows.Scan(&l.Level, &l.Z, &l.SlicePoints, &l.Radius, &l.Status, &l.Centroids,
			&l.RawPolylines, &l.Polylines, &l.Polygons, &l.InvalidPolygons, &l.Cells); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
