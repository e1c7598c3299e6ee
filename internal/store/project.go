package store

import (
	"database/sql"

	"github.com/vthunder/cogmem/internal/cogerr"
	"github.com/vthunder/cogmem/internal/types"
)

// UpsertProject creates a project or returns the existing one for path.
func (d *DB) UpsertProject(p *types.Project) error {
	_, err := d.db.Exec(
		`INSERT INTO projects (id, path, name) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET name = excluded.name`,
		p.ID, p.Path, p.Name,
	)
	return err
}

// GetProjectByPath loads a project by its filesystem path.
func (d *DB) GetProjectByPath(path string) (*types.Project, error) {
	var p types.Project
	err := d.db.QueryRow(`SELECT id, path, name FROM projects WHERE path = ?`, path).Scan(&p.ID, &p.Path, &p.Name)
	if err == sql.ErrNoRows {
		return nil, cogerr.NotFound("project", path)
	}
	return &p, err
}

// GetProject loads a project by ID.
func (d *DB) GetProject(id string) (*types.Project, error) {
	var p types.Project
	err := d.db.QueryRow(`SELECT id, path, name FROM projects WHERE id = ?`, id).Scan(&p.ID, &p.Path, &p.Name)
	if err == sql.ErrNoRows {
		return nil, cogerr.NotFound("project", id)
	}
	return &p, err
}
