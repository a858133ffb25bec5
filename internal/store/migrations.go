package store

// runMigrations creates the schema. Every statement is idempotent.
func (s *Store) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS drawings (
			id TEXT PRIMARY KEY,
			stamp TEXT NOT NULL UNIQUE,
			canvas_path TEXT NOT NULL,
			combined_path TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			palette_index INTEGER NOT NULL DEFAULT 0,
			color TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Outcome of each export plugin run for a drawing
		`CREATE TABLE IF NOT EXISTS plugin_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			drawing_id TEXT NOT NULL REFERENCES drawings(id) ON DELETE CASCADE,
			plugin_name TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_drawings_created_at ON drawings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_plugin_runs_drawing_id ON plugin_runs(drawing_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
