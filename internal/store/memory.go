package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/vthunder/cogmem/internal/cogerr"
	"github.com/vthunder/cogmem/internal/types"
)

// CreateMemory inserts a new memory record.
func (d *DB) CreateMemory(m *types.Memory) error {
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err = d.db.Exec(
		`INSERT INTO memories (id, content, gist, kind, emotional_weight, tags, project_id, access_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, m.Gist, string(m.Kind), m.EmotionalWeight, string(tags), nullable(m.ProjectID), m.AccessCount, m.CreatedAt,
	)
	return err
}

// GetMemory loads a memory by ID.
func (d *DB) GetMemory(id string) (*types.Memory, error) {
	row := d.db.QueryRow(
		`SELECT id, content, gist, kind, emotional_weight, tags, project_id, access_count, created_at
		 FROM memories WHERE id = ?`, id,
	)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, cogerr.NotFound("memory", id)
	}
	return m, err
}

// DeleteMemory removes a memory and (via ON DELETE CASCADE) its embeddings,
// access records, and associations.
func (d *DB) DeleteMemory(id string) error {
	d.vecDelete(spaceText, id)
	d.vecDelete(spaceVisual, id)
	_, err := d.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	return err
}

// ListMemories returns memories optionally scoped by project and/or kind,
// newest first. A zero-value filter field is unscoped.
func (d *DB) ListMemories(projectID string, kind types.MemoryKind) ([]*types.Memory, error) {
	query := `SELECT id, content, gist, kind, emotional_weight, tags, project_id, access_count, created_at FROM memories WHERE 1=1`
	var args []any
	if projectID != "" {
		query += ` AND project_id = ?`
		args = append(args, projectID)
	}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var kind, tags string
	var projectID sql.NullString
	if err := row.Scan(&m.ID, &m.Content, &m.Gist, &kind, &m.EmotionalWeight, &tags, &projectID, &m.AccessCount, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Kind = types.MemoryKind(kind)
	m.ProjectID = projectID.String
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		m.Tags = nil
	}
	return &m, nil
}

// RecordAccess appends an access record and increments the memory's
// access_count, at a single caller-supplied timestamp (so a batch of
// retrievals in one pipeline run shares one "now").
func (d *DB) RecordAccess(memoryID string, at time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO access_records (memory_id, timestamp) VALUES (?, ?)`, memoryID, at); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE memories SET access_count = access_count + 1 WHERE id = ?`, memoryID); err != nil {
		return err
	}
	return tx.Commit()
}

// AccessHistory returns every recorded access timestamp for a memory,
// oldest first. The input to activation.BaseLevel.
func (d *DB) AccessHistory(memoryID string) ([]time.Time, error) {
	rows, err := d.db.Query(`SELECT timestamp FROM access_records WHERE memory_id = ? ORDER BY timestamp ASC`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
