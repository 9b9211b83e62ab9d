// Package store provides SQLite-backed persistence for Crewplan.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides access to the Crewplan SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Single connection, so the pragma holds for the store's lifetime
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name_identifier TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		cost_rate REAL,
		availability_params TEXT,
		productivity_multipliers TEXT,
		ramp_up_time TEXT,
		skill_level TEXT,
		collaboration_factor INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS domains (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS resource_skills (
		resource_id TEXT NOT NULL,
		skill_id TEXT NOT NULL,
		proficiency_level INTEGER NOT NULL,
		PRIMARY KEY (resource_id, skill_id),
		FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE,
		FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS resource_domains (
		resource_id TEXT NOT NULL,
		domain_id TEXT NOT NULL,
		proficiency_level INTEGER NOT NULL,
		PRIMARY KEY (resource_id, domain_id),
		FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE,
		FOREIGN KEY (domain_id) REFERENCES domains(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sprints (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title_id TEXT NOT NULL UNIQUE,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'To Do',
		priority TEXT NOT NULL DEFAULT 'Medium',
		estimated_effort REAL,
		sprint_id TEXT,
		deadline TEXT,
		blocker_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (sprint_id) REFERENCES sprints(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS task_skills (
		task_id TEXT NOT NULL,
		skill_id TEXT NOT NULL,
		PRIMARY KEY (task_id, skill_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (skill_id) REFERENCES skills(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS task_domains (
		task_id TEXT NOT NULL,
		domain_id TEXT NOT NULL,
		PRIMARY KEY (task_id, domain_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (domain_id) REFERENCES domains(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id TEXT NOT NULL,
		depends_on_task_id TEXT NOT NULL,
		PRIMARY KEY (task_id, depends_on_task_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (depends_on_task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL UNIQUE,
		resource_id TEXT NOT NULL,
		assigned_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE,
		FOREIGN KEY (resource_id) REFERENCES resources(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS okrs (
		id TEXT PRIMARY KEY,
		objective TEXT NOT NULL,
		key_results TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS okr_tasks (
		okr_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		PRIMARY KEY (okr_id, task_id),
		FOREIGN KEY (okr_id) REFERENCES okrs(id) ON DELETE CASCADE,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS risks (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		type TEXT,
		probability TEXT NOT NULL DEFAULT 'Medium',
		impact TEXT NOT NULL DEFAULT 'Medium',
		mitigation TEXT,
		status TEXT NOT NULL DEFAULT 'Open',
		task_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS defects (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Open',
		severity TEXT NOT NULL DEFAULT 'Medium',
		task_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		entity_id TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_sprint_id ON tasks(sprint_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_resource_id ON assignments(resource_id);
	CREATE INDEX IF NOT EXISTS idx_risks_task_id ON risks(task_id);
	CREATE INDEX IF NOT EXISTS idx_defects_task_id ON defects(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
