package store

import (
	"database/sql"
	"time"
)

// PluginRun is the outcome of one export plugin for a drawing.
type PluginRun struct {
	ID         int64     `json:"id"`
	DrawingID  string    `json:"drawingId"`
	PluginName string    `json:"plugin"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PluginRunRepository stores plugin outcomes.
type PluginRunRepository struct {
	db *sql.DB
}

// PluginRuns returns the plugin run repository for this store.
func (s *Store) PluginRuns() *PluginRunRepository {
	return &PluginRunRepository{db: s.db}
}

// Record inserts run and fills in its ID.
func (r *PluginRunRepository) Record(run *PluginRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO plugin_runs (drawing_id, plugin_name, success, error, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.DrawingID, run.PluginName, run.Success, run.Error, run.CreatedAt,
	)
	if err != nil {
		return err
	}

	run.ID, err = result.LastInsertId()
	return err
}

// ListByDrawing returns the runs for a drawing in insertion order.
func (r *PluginRunRepository) ListByDrawing(drawingID string) ([]*PluginRun, error) {
	rows, err := r.db.Query(
		`SELECT id, drawing_id, plugin_name, success, error, created_at
		 FROM plugin_runs WHERE drawing_id = ? ORDER BY id`,
		drawingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*PluginRun
	for rows.Next() {
		run := &PluginRun{}
		var success int
		if err := rows.Scan(&run.ID, &run.DrawingID, &run.PluginName, &success, &run.Error, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Success = success != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
