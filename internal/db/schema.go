package db

// SchemaSQL is the complete schema for fresh installs. It reflects the
// current state after all migrations.
//
// This is the single source of truth for the database schema. Tests use
// it via GetSchemaSQL() instead of hardcoding CREATE TABLE statements,
// so any drift between repository code and schema fails immediately with
// "no such column".
//
// When adding columns or tables: add a migration in migrations.go, then
// update SchemaSQL here to match.
const SchemaSQL = `
-- Installed titles (one row per title, raw metadata as stored)
CREATE TABLE IF NOT EXISTS titles (
	title_id TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	tmd BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Tickets (one per title, raw ticket plus certificate chain)
CREATE TABLE IF NOT EXISTS tickets (
	title_id TEXT PRIMARY KEY,
	ticket BLOB NOT NULL,
	cert_chain BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Contents (one row per stored content unit)
CREATE TABLE IF NOT EXISTS contents (
	title_id TEXT NOT NULL,
	content_id INTEGER NOT NULL,
	content_index INTEGER NOT NULL,
	content_type INTEGER NOT NULL,
	size INTEGER NOT NULL,
	hash BLOB NOT NULL,
	data BLOB NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (title_id, content_id),
	FOREIGN KEY (title_id) REFERENCES titles(title_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contents_title ON contents(title_id);

-- Store-wide settings (device id, signature checking)
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Runs (one row per update or install invocation)
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL CHECK(kind IN ('online', 'package')),
	region TEXT,
	result TEXT NOT NULL,
	titles_updated INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Title events (per-title outcomes within a run)
CREATE TABLE IF NOT EXISTS title_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	title_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('installed', 'skipped', 'failed')),
	detail TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_title_events_run ON title_events(run_id);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install - create the modern schema directly and mark every
		// migration as applied so they never run.
		if _, err := db.Exec(SchemaSQL); err != nil {
			return err
		}
		_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
