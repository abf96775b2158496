package store

func (s *Store) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Calibration and detection settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Every volume action that actually fired
		`CREATE TABLE IF NOT EXISTS volume_events (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL CHECK(action IN ('increase', 'decrease', 'set')),
			distance INTEGER NOT NULL,
			percent REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_volume_events_created_at ON volume_events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
