package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Drawing records one saved canvas.
type Drawing struct {
	ID    string `json:"id"`
	Stamp string `json:"stamp"`
	// CanvasPath is the strokes-only PNG.
	CanvasPath string `json:"canvasPath"`
	// CombinedPath is the PNG of strokes over the live frame.
	CombinedPath string    `json:"combinedPath,omitempty"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	PaletteIndex int       `json:"paletteIndex"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DrawingRepository provides CRUD operations for drawings.
type DrawingRepository struct {
	db *sql.DB
}

// Drawings returns the drawing repository for this store.
func (s *Store) Drawings() *DrawingRepository {
	return &DrawingRepository{db: s.db}
}

const drawingColumns = `id, stamp, canvas_path, combined_path, width, height, palette_index, color, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawing(row scanner) (*Drawing, error) {
	d := &Drawing{}
	err := row.Scan(&d.ID, &d.Stamp, &d.CanvasPath, &d.CombinedPath,
		&d.Width, &d.Height, &d.PaletteIndex, &d.Color, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts d. An empty ID gets a new UUID and a zero CreatedAt is set
// to now.
func (r *DrawingRepository) Create(d *Drawing) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO drawings (`+drawingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Stamp, d.CanvasPath, d.CombinedPath, d.Width, d.Height, d.PaletteIndex, d.Color, d.CreatedAt,
	)
	return err
}

// GetByID retrieves a drawing by its ID.
func (r *DrawingRepository) GetByID(id string) (*Drawing, error) {
	d, err := scanDrawing(r.db.QueryRow(`SELECT `+drawingColumns+` FROM drawings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns drawings newest first. A limit of zero or less means all.
func (r *DrawingRepository) List(limit int) ([]*Drawing, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+drawingColumns+` FROM drawings ORDER BY created_at DESC, stamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drawings []*Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		drawings = append(drawings, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drawings, nil
}

// Count returns the number of saved drawings.
func (r *DrawingRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM drawings`).Scan(&n)
	return n, err
}

// Delete removes a drawing record. The image files are left to the caller.
func (r *DrawingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
