// Embedding persistence for both the textual and visual embedding spaces.
// The two spaces share this code path but are stored in independent tables
// and independent vec0 indexes so that regenerating one never touches the
// other.
package store

import (
	"database/sql"
	"encoding/json"

	"github.com/vthunder/cogmem/internal/cogerr"
)

// Space identifies which embedding table an operation targets.
type Space = embeddingSpace

const (
	SpaceText   Space = spaceText
	SpaceVisual Space = spaceVisual
)

// StoreEmbedding upserts the embedding for ownerID in the given space,
// tagged with the model identifier that produced it.
func (d *DB) StoreEmbedding(space Space, ownerID string, vector []float64, model string) error {
	blob, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	query := `INSERT INTO ` + string(space.sourceTable()) + ` (owner_id, vector, model) VALUES (?, ?, ?)
	          ON CONFLICT(owner_id) DO UPDATE SET vector = excluded.vector, model = excluded.model`
	if _, err := d.db.Exec(query, ownerID, string(blob), model); err != nil {
		return err
	}
	d.vecUpsert(space, ownerID, vector)
	return nil
}

// GetEmbedding loads the embedding for ownerID in the given space.
func (d *DB) GetEmbedding(space Space, ownerID string) ([]float64, string, error) {
	var raw, model string
	query := `SELECT vector, model FROM ` + string(space.sourceTable()) + ` WHERE owner_id = ?`
	err := d.db.QueryRow(query, ownerID).Scan(&raw, &model)
	if err == sql.ErrNoRows {
		return nil, "", cogerr.MissingEmbedding(ownerID)
	}
	if err != nil {
		return nil, "", err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, "", err
	}
	return vec, model, nil
}

// DeleteEmbedding removes the embedding for ownerID in the given space.
func (d *DB) DeleteEmbedding(space Space, ownerID string) error {
	d.vecDelete(space, ownerID)
	query := `DELETE FROM ` + string(space.sourceTable()) + ` WHERE owner_id = ?`
	_, err := d.db.Exec(query, ownerID)
	return err
}

// CountEmbeddingsNotMatching returns how many stored embeddings in the
// given space were produced by a model other than currentModel. The size
// of the "pending regeneration" set after an active-model change.
func (d *DB) CountEmbeddingsNotMatching(space Space, currentModel string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ` + string(space.sourceTable()) + ` WHERE model != ?`
	err := d.db.QueryRow(query, currentModel).Scan(&count)
	return count, err
}

// DeleteEmbeddingsNotMatching invalidates (deletes) every embedding in the
// given space not produced by currentModel, returning how many were
// removed. Similarity-mode retrieval skips those owners until their
// embeddings are regenerated.
func (d *DB) DeleteEmbeddingsNotMatching(space Space, currentModel string) (int, error) {
	rows, err := d.db.Query(`SELECT owner_id FROM `+string(space.sourceTable())+` WHERE model != ?`, currentModel)
	if err != nil {
		return 0, err
	}
	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		owners = append(owners, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	query := `DELETE FROM ` + string(space.sourceTable()) + ` WHERE model != ?`
	res, err := d.db.Exec(query, currentModel)
	if err != nil {
		return 0, err
	}
	for _, id := range owners {
		d.vecDelete(space, id)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PendingEmbeddingCount returns how many memories have no embedding at all
// in the given space.
func (d *DB) PendingEmbeddingCount(space Space) (int, error) {
	var query string
	if space == SpaceText {
		query = `SELECT COUNT(*) FROM memories m WHERE NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.owner_id = m.id)`
	} else {
		query = `SELECT COUNT(*) FROM memories m WHERE NOT EXISTS (SELECT 1 FROM visual_embeddings e WHERE e.owner_id = m.id)`
	}
	var count int
	err := d.db.QueryRow(query).Scan(&count)
	return count, err
}

// MemoriesWithoutEmbeddings returns up to limit memory IDs with no
// embedding in the given space, oldest-created first, for an embedding
// regeneration sweep to work through.
func (d *DB) MemoriesWithoutEmbeddings(space Space, limit int) ([]string, error) {
	var query string
	if space == SpaceText {
		query = `SELECT m.id FROM memories m WHERE NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.owner_id = m.id) ORDER BY m.created_at ASC LIMIT ?`
	} else {
		query = `SELECT m.id FROM memories m WHERE NOT EXISTS (SELECT 1 FROM visual_embeddings e WHERE e.owner_id = m.id) ORDER BY m.created_at ASC LIMIT ?`
	}
	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllEmbeddings loads every (ownerID, vector) pair in the given space,
// backing the Go-side O(n) scan. Retrieval scores every query from this
// full map; it does not go through the vec0 index.
func (d *DB) AllEmbeddings(space Space) (map[string][]float64, error) {
	query := `SELECT owner_id, vector FROM ` + string(space.sourceTable())
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var vec []float64
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			continue
		}
		out[id] = vec
	}
	return out, rows.Err()
}

// NearestByVector returns up to k owner IDs closest to probe in the given
// space, preferring the vec0 index and transparently falling back to the
// caller doing a full scan (ok=false) when the index can't serve it.
func (d *DB) NearestByVector(space Space, probe []float64, k int) (ids []string, ok bool) {
	return d.vecKNN(space, probe, k)
}
