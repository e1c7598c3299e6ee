package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/vthunder/cogmem/internal/logging"
)

// initVecTables creates the vec0 virtual tables mirroring embeddings and
// visual_embeddings, grounded on bud2's internal/graph/db.go:ensureVecTable
// and initVecTableFromTraces, generalized to two independent spaces. The
// tables are (re)built lazily once the embedding dimension of each space is
// known, since vec0 requires a fixed dimension at table-creation time.
func (d *DB) initVecTables() error {
	if err := d.ensureVecTableForSpace(spaceText); err != nil {
		return err
	}
	if err := d.ensureVecTableForSpace(spaceVisual); err != nil {
		return err
	}
	return nil
}

type embeddingSpace string

const (
	spaceText   embeddingSpace = "text"
	spaceVisual embeddingSpace = "visual"
)

func (s embeddingSpace) sourceTable() string {
	if s == spaceVisual {
		return "visual_embeddings"
	}
	return "embeddings"
}

func (s embeddingSpace) vecTable() string {
	if s == spaceVisual {
		return "vec_visual"
	}
	return "vec_text"
}

// ensureVecTableForSpace (re)creates the vec0 table for one embedding space
// once a representative vector establishes the dimension, and backfills it
// from existing rows. Called again whenever the dimension changes, e.g.
// after a full re-embed under a new model: drop and rebuild rather than
// try to migrate a fixed-width virtual table in place.
func (d *DB) ensureVecTableForSpace(space embeddingSpace) error {
	var sample string
	err := d.db.QueryRow(fmt.Sprintf("SELECT vector FROM %s LIMIT 1", space.sourceTable())).Scan(&sample)
	if err == sql.ErrNoRows {
		return nil // nothing to size the table from yet; created lazily on first store
	}
	if err != nil {
		return err
	}

	var vec []float64
	if err := json.Unmarshal([]byte(sample), &vec); err != nil {
		return fmt.Errorf("decode sample vector: %w", err)
	}
	return d.rebuildVecTable(space, len(vec))
}

func (d *DB) rebuildVecTable(space embeddingSpace, dim int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := &d.vecText
	if space == spaceVisual {
		idx = &d.vecVisual
	}
	if idx.dim == dim {
		return nil // already sized correctly
	}

	if _, err := d.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", space.vecTable())); err != nil {
		return err
	}
	createSQL := fmt.Sprintf(
		"CREATE VIRTUAL TABLE %s USING vec0(owner_id TEXT PRIMARY KEY, embedding FLOAT[%d])",
		space.vecTable(), dim,
	)
	if _, err := d.db.Exec(createSQL); err != nil {
		return err
	}
	idx.dim = dim

	rows, err := d.db.Query(fmt.Sprintf("SELECT owner_id, vector FROM %s", space.sourceTable()))
	if err != nil {
		return err
	}
	defer rows.Close()

	insertSQL := fmt.Sprintf("INSERT INTO %s(owner_id, embedding) VALUES (?, ?)", space.vecTable())
	for rows.Next() {
		var ownerID, raw string
		if err := rows.Scan(&ownerID, &raw); err != nil {
			return err
		}
		var vec []float64
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			logging.Warn("store", "skip malformed vector for %s: %v", ownerID, err)
			continue
		}
		if len(vec) != dim {
			continue
		}
		blob, err := sqlite_vec.SerializeFloat32(toFloat32(vec))
		if err != nil {
			return err
		}
		if _, err := d.db.Exec(insertSQL, ownerID, blob); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (d *DB) vecUpsert(space embeddingSpace, ownerID string, vec []float64) {
	d.mu.RLock()
	idx := d.vecText
	if space == spaceVisual {
		idx = d.vecVisual
	}
	d.mu.RUnlock()

	if !idx.available {
		return
	}
	if idx.dim != len(vec) {
		if err := d.rebuildVecTable(space, len(vec)); err != nil {
			logging.Warn("store", "vec rebuild for %s: %v", space, err)
			return
		}
	}
	blob, err := sqlite_vec.SerializeFloat32(toFloat32(vec))
	if err != nil {
		logging.Warn("store", "vec serialize: %v", err)
		return
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s(owner_id, embedding) VALUES (?, ?)", space.vecTable())
	if _, err := d.db.Exec(query, ownerID, blob); err != nil {
		logging.Warn("store", "vec upsert: %v", err)
	}
}

func (d *DB) vecDelete(space embeddingSpace, ownerID string) {
	d.mu.RLock()
	idx := d.vecText
	if space == spaceVisual {
		idx = d.vecVisual
	}
	d.mu.RUnlock()
	if !idx.available {
		return
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE owner_id = ?", space.vecTable())
	d.db.Exec(query, ownerID)
}

// vecKNN returns up to k owner IDs nearest the probe (by L2 distance on
// normalized vectors, equivalent to cosine ranking) using the vec0 index.
// Returns (nil, false) when the index isn't usable, signaling callers to
// fall back to the Go-side full scan.
func (d *DB) vecKNN(space embeddingSpace, probe []float64, k int) ([]string, bool) {
	d.mu.RLock()
	idx := d.vecText
	if space == spaceVisual {
		idx = d.vecVisual
	}
	d.mu.RUnlock()

	if !idx.available || idx.dim != len(probe) || k <= 0 {
		return nil, false
	}

	blob, err := sqlite_vec.SerializeFloat32(toFloat32(probe))
	if err != nil {
		return nil, false
	}
	query := fmt.Sprintf(
		"SELECT owner_id FROM %s WHERE embedding MATCH ? AND k = ? ORDER BY distance",
		space.vecTable(),
	)
	rows, err := d.db.Query(query, blob, k)
	if err != nil {
		logging.Debug("store", "vec KNN unavailable, falling back: %v", err)
		return nil, false
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, false
	}
	return ids, true
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
