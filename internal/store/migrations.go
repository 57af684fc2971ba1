package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Skeletons table - bone hierarchies that can be bound to the engine
		`CREATE TABLE IF NOT EXISTS skeletons (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			hierarchy TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Takes table - one recording session against a skeleton
		`CREATE TABLE IF NOT EXISTS takes (
			id TEXT PRIMARY KEY,
			skeleton_id TEXT NOT NULL REFERENCES skeletons(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			frame_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Take frames table - the rotation frames of a take, as JSON
		`CREATE TABLE IF NOT EXISTS take_frames (
			take_id TEXT NOT NULL REFERENCES takes(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (take_id, seq)
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_takes_skeleton_id ON takes(skeleton_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
