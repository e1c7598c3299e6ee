package store

import (
	"time"

	"github.com/vthunder/cogmem/internal/types"
)

// Associate creates or reinforces an edge between source and target,
// storing the stronger of the existing and new strength and bumping
// last_reinforced to now. Associations are directed rows but callers that
// need the undirected fan-effect count must query both directions
// (AssociationsFor does this).
func (d *DB) Associate(sourceID, targetID string, strength float64, kind string, at time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO associations (source_id, target_id, strength, kind, last_reinforced)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_id, target_id) DO UPDATE SET
		   strength = MAX(associations.strength, excluded.strength),
		   last_reinforced = excluded.last_reinforced`,
		sourceID, targetID, strength, kind, at,
	)
	return err
}

// AssociationsFor returns every association incident to memoryID in either
// direction, resolved to the other endpoint's ID and the edge strength.
func (d *DB) AssociationsFor(memoryID string) ([]types.Association, error) {
	rows, err := d.db.Query(
		`SELECT source_id, target_id, strength, kind, last_reinforced FROM associations
		 WHERE source_id = ? OR target_id = ?`,
		memoryID, memoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Association
	for rows.Next() {
		var a types.Association
		if err := rows.Scan(&a.SourceID, &a.TargetID, &a.Strength, &a.Kind, &a.LastReinforced); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAssociationsFor removes every association incident to memoryID.
// Normally redundant with the memories table's ON DELETE CASCADE, exposed
// for callers that prune associations without deleting the memory itself
// (e.g. forgetting a relationship without forgetting the memory).
func (d *DB) DeleteAssociationsFor(memoryID string) error {
	_, err := d.db.Exec(`DELETE FROM associations WHERE source_id = ? OR target_id = ?`, memoryID, memoryID)
	return err
}
