package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/matsen/citegraph/internal/document"
)

// Merge errors.
var (
	// ErrSourceMerged is returned when the merge source is already a tombstone.
	// Cascading through an existing merge target is deliberately not done.
	ErrSourceMerged = errors.New("source document is already merged")

	// ErrTargetMerged is returned when the merge destination is a tombstone;
	// a merge pointer must always land on an active document.
	ErrTargetMerged = errors.New("destination document is already merged")
)

// MergeCounts tallies the relationships moved (or that would move) in a merge.
type MergeCounts struct {
	Tags         int `json:"tags"`
	Collections  int `json:"collections"`
	Notes        int `json:"notes"`
	CitationsOut int `json:"citations_out"`
	CitationsIn  int `json:"citations_in"`
	ExternalIDs  int `json:"external_ids"`
}

// MergeResult reports the outcome of a merge operation.
type MergeResult struct {
	DryRun bool        `json:"dry_run"`
	SrcID  int64       `json:"src_id"`
	DstID  int64       `json:"dst_id"`
	Moved  MergeCounts `json:"moved"`
}

// MergeDocuments merges the source document into the destination: every
// relationship owned by the source moves to the destination (skipping ones
// the destination already has), then the source is tombstoned with a pointer
// to the destination. The destination's own fields are never overwritten.
//
// With dryRun set, the counts are computed and nothing is written.
func (d *DB) MergeDocuments(srcID, dstID int64, dryRun bool) (*MergeResult, error) {
	src, err := d.GetDocument(srcID)
	if err != nil {
		return nil, fmt.Errorf("loading source document %d: %w", srcID, err)
	}
	dst, err := d.GetDocument(dstID)
	if err != nil {
		return nil, fmt.Errorf("loading destination document %d: %w", dstID, err)
	}

	if src.Status == document.StatusMerged {
		return nil, ErrSourceMerged
	}
	if dst.Status == document.StatusMerged {
		return nil, ErrTargetMerged
	}

	if dryRun {
		counts, err := d.countSourceRelationships(srcID)
		if err != nil {
			return nil, err
		}
		return &MergeResult{DryRun: true, SrcID: srcID, DstID: dstID, Moved: *counts}, nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	var counts MergeCounts

	// Tags: move links the destination doesn't already have.
	counts.Tags, err = execCount(tx, `
		INSERT INTO document_tags (document_id, tag_id)
		SELECT ?, tag_id FROM document_tags
		WHERE document_id = ?
		  AND tag_id NOT IN (SELECT tag_id FROM document_tags WHERE document_id = ?)
	`, dstID, srcID, dstID)
	if err != nil {
		return nil, fmt.Errorf("moving tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM document_tags WHERE document_id = ?`, srcID); err != nil {
		return nil, fmt.Errorf("clearing source tags: %w", err)
	}

	// Collection memberships, same pattern.
	counts.Collections, err = execCount(tx, `
		INSERT INTO collection_documents (collection_id, document_id)
		SELECT collection_id, ? FROM collection_documents
		WHERE document_id = ?
		  AND collection_id NOT IN
		      (SELECT collection_id FROM collection_documents WHERE document_id = ?)
	`, dstID, srcID, dstID)
	if err != nil {
		return nil, fmt.Errorf("moving collections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM collection_documents WHERE document_id = ?`, srcID); err != nil {
		return nil, fmt.Errorf("clearing source collections: %w", err)
	}

	// External identifiers: re-point pairs the destination lacks.
	counts.ExternalIDs, err = execCount(tx, `
		UPDATE external_ids SET document_id = ?
		WHERE document_id = ?
		  AND (id_type, id_value) NOT IN
		      (SELECT id_type, id_value FROM external_ids WHERE document_id = ?)
	`, dstID, srcID, dstID)
	if err != nil {
		return nil, fmt.Errorf("moving external ids: %w", err)
	}

	// Citations between the pair would become self-loops after re-pointing;
	// drop them instead of violating the no-self-citation invariant.
	if _, err := tx.Exec(`
		DELETE FROM citations
		WHERE (src_id = ? AND dst_id = ?) OR (src_id = ? AND dst_id = ?)
	`, srcID, dstID, dstID, srcID); err != nil {
		return nil, fmt.Errorf("dropping would-be self citations: %w", err)
	}

	// Outgoing citations: drop mentions the destination already stores
	// (same dedup hash), then re-point the rest.
	if _, err := tx.Exec(`
		DELETE FROM citations
		WHERE src_id = ?
		  AND cite_hash IN (SELECT cite_hash FROM citations WHERE src_id = ?)
	`, srcID, dstID); err != nil {
		return nil, fmt.Errorf("dropping duplicate outgoing citations: %w", err)
	}
	counts.CitationsOut, err = execCount(tx,
		`UPDATE citations SET src_id = ? WHERE src_id = ?`, dstID, srcID)
	if err != nil {
		return nil, fmt.Errorf("moving outgoing citations: %w", err)
	}

	// Incoming citations re-point to the merged-into document.
	counts.CitationsIn, err = execCount(tx,
		`UPDATE citations SET dst_id = ? WHERE dst_id = ?`, dstID, srcID)
	if err != nil {
		return nil, fmt.Errorf("moving incoming citations: %w", err)
	}

	// Notes are file-backed, not entity-keyed; re-own them all.
	counts.Notes, err = execCount(tx,
		`UPDATE notes SET document_id = ? WHERE document_id = ?`, dstID, srcID)
	if err != nil {
		return nil, fmt.Errorf("moving notes: %w", err)
	}

	// Tombstone the source.
	if _, err := tx.Exec(`
		UPDATE documents SET status = ?, merged_into = ?, updated_at = ? WHERE id = ?
	`, document.StatusMerged, dstID, nowRFC3339(), srcID); err != nil {
		return nil, fmt.Errorf("tombstoning source document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}

	return &MergeResult{DryRun: false, SrcID: srcID, DstID: dstID, Moved: counts}, nil
}

// countSourceRelationships counts what a merge would move, without writing.
func (d *DB) countSourceRelationships(srcID int64) (*MergeCounts, error) {
	var counts MergeCounts
	queries := []struct {
		dst   *int
		query string
	}{
		{&counts.Tags, `SELECT COUNT(*) FROM document_tags WHERE document_id = ?`},
		{&counts.Collections, `SELECT COUNT(*) FROM collection_documents WHERE document_id = ?`},
		{&counts.Notes, `SELECT COUNT(*) FROM notes WHERE document_id = ?`},
		{&counts.CitationsOut, `SELECT COUNT(*) FROM citations WHERE src_id = ?`},
		{&counts.CitationsIn, `SELECT COUNT(*) FROM citations WHERE dst_id = ?`},
		{&counts.ExternalIDs, `SELECT COUNT(*) FROM external_ids WHERE document_id = ?`},
	}

	for _, q := range queries {
		if err := d.db.QueryRow(q.query, srcID).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("counting merge candidates: %w", err)
		}
	}
	return &counts, nil
}

// execCount runs a statement and returns its affected-row count.
func execCount(tx *sql.Tx, query string, args ...interface{}) (int, error) {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
