package store

import (
	"database/sql"
	"time"

	"github.com/vthunder/cogmem/internal/cogerr"
	"github.com/vthunder/cogmem/internal/types"
)

// CreateLocation inserts a new location record.
func (d *DB) CreateLocation(l *types.Location) error {
	if l.LastAccessed.IsZero() {
		l.LastAccessed = time.Now()
	}
	_, err := d.db.Exec(
		`INSERT INTO locations (id, path, project_id, description, access_count, last_accessed,
		  familiarity, direct_access_count, search_saved_count, pinned, ever_well_known)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Path, nullable(l.ProjectID), l.Description, l.AccessCount, l.LastAccessed,
		l.Familiarity, l.DirectAccessCount, l.SearchSavedCount, boolToInt(l.Pinned), boolToInt(l.EverWellKnown),
	)
	return err
}

// GetLocation loads a location by ID.
func (d *DB) GetLocation(id string) (*types.Location, error) {
	row := d.db.QueryRow(locationSelect+` WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, cogerr.NotFound("location", id)
	}
	return l, err
}

// GetLocationByPath loads a location by (path, project), its natural key.
func (d *DB) GetLocationByPath(path, projectID string) (*types.Location, error) {
	row := d.db.QueryRow(locationSelect+` WHERE path = ? AND project_id IS ?`, path, nullable(projectID))
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, cogerr.NotFound("location", path)
	}
	return l, err
}

// ListLocations returns every location in a project, most recently
// accessed first.
func (d *DB) ListLocations(projectID string) ([]*types.Location, error) {
	rows, err := d.db.Query(locationSelect+` WHERE project_id IS ? ORDER BY last_accessed DESC`, nullable(projectID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

// RecentLocations returns the n most recently accessed locations across a
// project.
func (d *DB) RecentLocations(projectID string, n int) ([]*types.Location, error) {
	rows, err := d.db.Query(locationSelect+` WHERE project_id IS ? ORDER BY last_accessed DESC LIMIT ?`, nullable(projectID), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

// LocationsByActivity returns locations that have at least one access
// context of the given activity type, scoped to a project, most recently
// accessed first.
func (d *DB) LocationsByActivity(activity, projectID string) ([]*types.Location, error) {
	query := `SELECT DISTINCT l.id, l.path, l.project_id, l.description, l.access_count, l.last_accessed,
		l.familiarity, l.direct_access_count, l.search_saved_count, l.pinned, l.ever_well_known
		FROM locations l
		JOIN location_access_contexts c ON c.location_id = l.id
		WHERE c.activity = ? AND l.project_id IS ?
		ORDER BY l.last_accessed DESC`
	rows, err := d.db.Query(query, activity, nullable(projectID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

// AllLocationsAcrossProjects returns every location regardless of project,
// used for the global decay sweep.
func (d *DB) AllLocationsAcrossProjects() ([]*types.Location, error) {
	rows, err := d.db.Query(locationSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLocations(rows)
}

// UpdateLocation persists the mutable fields of l (everything except id,
// path, project_id).
func (d *DB) UpdateLocation(l *types.Location) error {
	_, err := d.db.Exec(
		`UPDATE locations SET description = ?, access_count = ?, last_accessed = ?, familiarity = ?,
		   direct_access_count = ?, search_saved_count = ?, pinned = ?, ever_well_known = ?
		 WHERE id = ?`,
		l.Description, l.AccessCount, l.LastAccessed, l.Familiarity,
		l.DirectAccessCount, l.SearchSavedCount, boolToInt(l.Pinned), boolToInt(l.EverWellKnown), l.ID,
	)
	return err
}

// UpdateLocationPath renames a location in place, used by rename-merge
// when only the old path exists.
func (d *DB) UpdateLocationPath(l *types.Location) error {
	_, err := d.db.Exec(`UPDATE locations SET path = ? WHERE id = ?`, l.Path, l.ID)
	return err
}

// DeleteLocation removes a location and (via cascade) its contexts and
// associations.
func (d *DB) DeleteLocation(id string) error {
	_, err := d.db.Exec(`DELETE FROM locations WHERE id = ?`, id)
	return err
}

// RetargetLocationAssociations copies every association naming fromID onto
// toID, merging strengths when both endpoints already had an edge to the
// same third location. The fromID rows themselves are left in place; they
// go when the fromID location is deleted. Used by location rename/merge.
func (d *DB) RetargetLocationAssociations(fromID, toID string) error {
	rows, err := d.db.Query(
		`SELECT source_id, target_id, strength FROM location_associations WHERE source_id = ? OR target_id = ?`,
		fromID, fromID,
	)
	if err != nil {
		return err
	}
	var edges []types.LocationAssociation
	for rows.Next() {
		var e types.LocationAssociation
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Strength); err != nil {
			rows.Close()
			return err
		}
		edges = append(edges, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range edges {
		src, tgt := e.SourceID, e.TargetID
		if src == fromID {
			src = toID
		}
		if tgt == fromID {
			tgt = toID
		}
		if src == tgt {
			continue // the merge collapsed a self-loop; drop it
		}
		if err := d.AssociateLocations(src, tgt, e.Strength); err != nil {
			return err
		}
	}
	return nil
}

const locationSelect = `SELECT id, path, project_id, description, access_count, last_accessed,
	familiarity, direct_access_count, search_saved_count, pinned, ever_well_known FROM locations`

func scanLocation(row rowScanner) (*types.Location, error) {
	var l types.Location
	var projectID sql.NullString
	var pinned, everWellKnown int
	if err := row.Scan(&l.ID, &l.Path, &projectID, &l.Description, &l.AccessCount, &l.LastAccessed,
		&l.Familiarity, &l.DirectAccessCount, &l.SearchSavedCount, &pinned, &everWellKnown); err != nil {
		return nil, err
	}
	l.ProjectID = projectID.String
	l.Pinned = pinned != 0
	l.EverWellKnown = everWellKnown != 0
	return &l, nil
}

func scanLocations(rows *sql.Rows) ([]*types.Location, error) {
	var out []*types.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RecordLocationAccessContext appends one access-context row.
func (d *DB) RecordLocationAccessContext(c *types.LocationAccessContext) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	_, err := d.db.Exec(
		`INSERT INTO location_access_contexts (location_id, context, activity, direct_access, task, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.LocationID, c.Context, string(c.Activity), boolToInt(c.DirectAccess), c.Task, c.Timestamp,
	)
	return err
}

// LocationAccessContexts returns the access-context history for a
// location, most recent first.
func (d *DB) LocationAccessContexts(locationID string, limit int) ([]*types.LocationAccessContext, error) {
	rows, err := d.db.Query(
		`SELECT id, location_id, context, activity, direct_access, task, timestamp
		 FROM location_access_contexts WHERE location_id = ? ORDER BY timestamp DESC LIMIT ?`,
		locationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.LocationAccessContext
	for rows.Next() {
		var c types.LocationAccessContext
		var activity string
		var direct int
		if err := rows.Scan(&c.ID, &c.LocationID, &c.Context, &activity, &direct, &c.Task, &c.Timestamp); err != nil {
			return nil, err
		}
		c.Activity = types.ActivityType(activity)
		c.DirectAccess = direct != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}

// AssociateLocations creates or reinforces an undirected association
// between two locations, accumulating strength additively and capping at
// 1.0.
func (d *DB) AssociateLocations(sourceID, targetID string, delta float64) error {
	if sourceID > targetID {
		sourceID, targetID = targetID, sourceID // one row per unordered pair
	}
	_, err := d.db.Exec(
		`INSERT INTO location_associations (source_id, target_id, strength) VALUES (?, ?, ?)
		 ON CONFLICT(source_id, target_id) DO UPDATE SET
		   strength = MIN(1.0, location_associations.strength + excluded.strength)`,
		sourceID, targetID, delta,
	)
	return err
}

// LocationAssociationsFor returns every association incident to
// locationID in either direction.
func (d *DB) LocationAssociationsFor(locationID string) ([]types.LocationAssociation, error) {
	rows, err := d.db.Query(
		`SELECT source_id, target_id, strength FROM location_associations WHERE source_id = ? OR target_id = ?`,
		locationID, locationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.LocationAssociation
	for rows.Next() {
		var a types.LocationAssociation
		if err := rows.Scan(&a.SourceID, &a.TargetID, &a.Strength); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
