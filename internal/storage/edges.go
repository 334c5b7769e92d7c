package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/matsen/citegraph/internal/edge"
)

// selectEdgeFields contains the standard field list for citation SELECT queries.
const selectEdgeFields = `id, src_id, dst_id, raw_cite, dst_key, origin, cite_hash, unmatched_json`

// InsertEdge inserts a citation edge unless an edge with the same
// (src_id, cite_hash) already exists. Returns true if a row was inserted.
func (d *DB) InsertEdge(e *edge.Edge) (bool, error) {
	if err := e.ValidateForCreate(); err != nil {
		return false, err
	}

	var unmatchedJSON sql.NullString
	if e.Unmatched != nil {
		data, err := json.Marshal(e.Unmatched)
		if err != nil {
			return false, fmt.Errorf("marshaling unmatched payload: %w", err)
		}
		unmatchedJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := d.db.Exec(`
		INSERT OR IGNORE INTO citations
			(src_id, dst_id, raw_cite, dst_key, origin, cite_hash, unmatched_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.SrcID, nullableInt64Value(e.DstID),
		nullableStringValue(edge.TruncateRawCite(e.RawCite)),
		nullableStringValue(e.DstKey), e.Origin, e.CiteHash, unmatchedJSON,
	)
	if err != nil {
		return false, fmt.Errorf("inserting citation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil // duplicate mention, dropped
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	e.ID = id
	return true, nil
}

// MentionHashes returns the set of dedup hashes already stored for a source
// document, optionally scoped to one origin (empty string = all origins).
func (d *DB) MentionHashes(srcID int64, origin string) (map[string]bool, error) {
	query := `SELECT cite_hash FROM citations WHERE src_id = ?`
	args := []interface{}{srcID}
	if origin != "" {
		query += ` AND origin = ?`
		args = append(args, origin)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mention hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes[h] = true
	}
	return hashes, rows.Err()
}

// ListUnresolvedEdges returns every edge whose destination is still null.
func (d *DB) ListUnresolvedEdges() ([]edge.Edge, error) {
	rows, err := d.db.Query(`
		SELECT ` + selectEdgeFields + ` FROM citations WHERE dst_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing unresolved citations: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// SetEdgeDestination binds an unresolved edge to a destination document.
func (d *DB) SetEdgeDestination(edgeID, dstID int64) error {
	res, err := d.db.Exec(`UPDATE citations SET dst_id = ? WHERE id = ?`, dstID, edgeID)
	if err != nil {
		return fmt.Errorf("setting citation destination: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EdgesBySource returns all edges (resolved and unresolved) originating at
// the given document.
func (d *DB) EdgesBySource(srcID int64) ([]edge.Edge, error) {
	rows, err := d.db.Query(`
		SELECT `+selectEdgeFields+` FROM citations WHERE src_id = ? ORDER BY id`, srcID)
	if err != nil {
		return nil, fmt.Errorf("querying citations by source: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// EdgesByTarget returns all edges resolved to the given document.
func (d *DB) EdgesByTarget(dstID int64) ([]edge.Edge, error) {
	rows, err := d.db.Query(`
		SELECT `+selectEdgeFields+` FROM citations WHERE dst_id = ? ORDER BY id`, dstID)
	if err != nil {
		return nil, fmt.Errorf("querying citations by target: %w", err)
	}
	defer rows.Close()

	return scanEdges(rows)
}

// CountEdges returns the total number of citation edges.
func (d *DB) CountEdges() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM citations").Scan(&count)
	return count, err
}

// scanEdges scans rows into a slice of edges.
func scanEdges(rows *sql.Rows) ([]edge.Edge, error) {
	var edges []edge.Edge
	for rows.Next() {
		var e edge.Edge
		var dstID sql.NullInt64
		var rawCite, dstKey, unmatchedJSON sql.NullString

		err := rows.Scan(&e.ID, &e.SrcID, &dstID, &rawCite, &dstKey, &e.Origin, &e.CiteHash, &unmatchedJSON)
		if err != nil {
			return nil, err
		}

		if dstID.Valid {
			e.DstID = dstID.Int64
		}
		e.RawCite = rawCite.String
		e.DstKey = dstKey.String
		if unmatchedJSON.Valid && unmatchedJSON.String != "" {
			var u edge.UnmatchedRef
			if err := json.Unmarshal([]byte(unmatchedJSON.String), &u); err != nil {
				return nil, fmt.Errorf("parsing unmatched payload for citation %d: %w", e.ID, err)
			}
			e.Unmatched = &u
		}

		edges = append(edges, e)
	}
	return edges, rows.Err()
}
