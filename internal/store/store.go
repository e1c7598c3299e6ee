// Package store is the durable backing-store adapter: an ACID SQLite
// database holding Memories, Embeddings (text and visual), Access records,
// Associations, Projects, Locations, Location access contexts, and Location
// associations, with the secondary indexes the retrieval and location
// packages need.
//
// sqlite3 (cgo) runs in WAL mode with a busy timeout, an incremental
// schema_version migration ladder versions the schema, and an optional
// sqlite-vec vec0 virtual table accelerates KNN with a mandatory Go-side
// O(n) fallback for when the extension isn't available or the working set
// doesn't warrant it: ANN indexing is never required, full scan is
// sufficient for the expected working set size.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vthunder/cogmem/internal/logging"
)

func init() {
	sqlite_vec.Auto() // registers the vec0 virtual table with go-sqlite3
}

// DB wraps the SQLite connection and the optional vector-index state for
// both embedding spaces.
type DB struct {
	db   *sql.DB
	path string

	mu         sync.RWMutex
	vecText    vecIndex
	vecVisual  vecIndex
}

type vecIndex struct {
	available bool
	dim       int
}

// Open opens or creates the memory store at <stateDir>/memory.db.
func Open(stateDir string) (*DB, error) {
	dbPath := filepath.Join(stateDir, "memory.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{db: sqlDB, path: dbPath}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var vecVersion string
	if err := sqlDB.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		logging.Info("store", "sqlite-vec not available: %v, falling back to full scan", err)
	} else {
		logging.Info("store", "sqlite-vec %s loaded", vecVersion)
		d.vecText.available = true
		d.vecVisual.available = true
		if err := d.initVecTables(); err != nil {
			logging.Warn("store", "vec index init: %v", err)
		}
	}

	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// OpenInMemory opens a throwaway store for tests.
func OpenInMemory() (*DB, error) {
	return Open(mustTempDir())
}

func mustTempDir() string {
	dir, err := os.MkdirTemp("", "cogmem-store-*")
	if err != nil {
		panic(err)
	}
	return dir
}

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	name TEXT
);

CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	gist TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT 'context',
	emotional_weight REAL NOT NULL DEFAULT 0.5,
	tags TEXT NOT NULL DEFAULT '[]',
	project_id TEXT REFERENCES projects(id),
	access_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id);
CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind);

CREATE TABLE IF NOT EXISTS access_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_records_memory_ts ON access_records(memory_id, timestamp);

CREATE TABLE IF NOT EXISTS embeddings (
	owner_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	vector TEXT NOT NULL,
	model TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);

CREATE TABLE IF NOT EXISTS visual_embeddings (
	owner_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	vector TEXT NOT NULL,
	model TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visual_embeddings_model ON visual_embeddings(model);

CREATE TABLE IF NOT EXISTS associations (
	source_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	strength REAL NOT NULL DEFAULT 0,
	kind TEXT NOT NULL DEFAULT 'semantic',
	last_reinforced DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (source_id, target_id)
);
CREATE INDEX IF NOT EXISTS idx_associations_source ON associations(source_id);
CREATE INDEX IF NOT EXISTS idx_associations_target ON associations(target_id);

CREATE TABLE IF NOT EXISTS locations (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	project_id TEXT REFERENCES projects(id),
	description TEXT,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	familiarity REAL NOT NULL DEFAULT 0,
	direct_access_count INTEGER NOT NULL DEFAULT 0,
	search_saved_count INTEGER NOT NULL DEFAULT 0,
	pinned INTEGER NOT NULL DEFAULT 0,
	ever_well_known INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_path_project ON locations(path, project_id);

CREATE TABLE IF NOT EXISTS location_access_contexts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	location_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
	context TEXT,
	activity TEXT NOT NULL DEFAULT 'unknown',
	direct_access INTEGER NOT NULL DEFAULT 0,
	task TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_location_contexts_location ON location_access_contexts(location_id);

CREATE TABLE IF NOT EXISTS location_associations (
	source_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
	strength REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (source_id, target_id)
);
CREATE INDEX IF NOT EXISTS idx_location_associations_source ON location_associations(source_id);
CREATE INDEX IF NOT EXISTS idx_location_associations_target ON location_associations(target_id);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

func (d *DB) migrate() error {
	if _, err := d.db.Exec(schema); err != nil {
		return err
	}
	return d.runMigrations()
}

// runMigrations applies incremental schema changes, following the
// version-ladder idiom in bud2's internal/graph/db.go:runMigrations. The
// engine ships at v1; the ladder exists so future tunable additions (a new
// index, a new bookkeeping column) have a home without a breaking rewrite.
func (d *DB) runMigrations() error {
	var version int
	if err := d.db.QueryRow("SELECT COALESCE(MAX(version), 1) FROM schema_version").Scan(&version); err != nil {
		version = 1
	}
	_ = version // no migrations beyond v1 yet
	return nil
}

// Stats returns row counts for each entity table, backing the text-memory
// and location-memory "stats" API surfaces (§6).
func (d *DB) Stats() (map[string]int, error) {
	stats := make(map[string]int)
	tables := []string{"memories", "embeddings", "visual_embeddings", "access_records", "associations", "locations", "location_access_contexts", "location_associations", "projects"}
	for _, table := range tables {
		var count int
		if err := d.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}
	return stats, nil
}

// Clear removes all data. For tests and explicit host-level resets only.
func (d *DB) Clear() error {
	tables := []string{
		"location_associations", "location_access_contexts", "locations",
		"associations", "access_records", "embeddings", "visual_embeddings", "memories",
		"projects",
	}
	for _, table := range tables {
		if _, err := d.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
