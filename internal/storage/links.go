package storage

import (
	"database/sql"
	"fmt"

	"github.com/matsen/citegraph/internal/document"
)

// EnsureTag returns the ID of the named tag, creating it if needed.
func (d *DB) EnsureTag(name string) (int64, error) {
	var id int64
	err := d.db.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	res, err := d.db.Exec(`INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return res.LastInsertId()
}

// TagDocument links a tag to a document. Linking twice is a no-op.
func (d *DB) TagDocument(documentID, tagID int64) error {
	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO document_tags (document_id, tag_id) VALUES (?, ?)
	`, documentID, tagID)
	if err != nil {
		return fmt.Errorf("tagging document %d: %w", documentID, err)
	}
	return nil
}

// TagsForDocument returns the tags linked to a document.
func (d *DB) TagsForDocument(documentID int64) ([]document.Tag, error) {
	rows, err := d.db.Query(`
		SELECT t.id, t.name FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = ? ORDER BY t.name
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var tags []document.Tag
	for rows.Next() {
		var t document.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// EnsureCollection returns the ID of the named collection, creating it if needed.
func (d *DB) EnsureCollection(name string) (int64, error) {
	var id int64
	err := d.db.QueryRow(`SELECT id FROM collections WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up collection %q: %w", name, err)
	}

	res, err := d.db.Exec(`INSERT INTO collections (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("creating collection %q: %w", name, err)
	}
	return res.LastInsertId()
}

// AddToCollection places a document in a collection. Adding twice is a no-op.
func (d *DB) AddToCollection(collectionID, documentID int64) error {
	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO collection_documents (collection_id, document_id) VALUES (?, ?)
	`, collectionID, documentID)
	if err != nil {
		return fmt.Errorf("adding document %d to collection %d: %w", documentID, collectionID, err)
	}
	return nil
}

// CollectionIDsForDocument returns the IDs of collections containing a document.
func (d *DB) CollectionIDsForDocument(documentID int64) ([]int64, error) {
	return d.queryIDs(`
		SELECT collection_id FROM collection_documents
		WHERE document_id = ? ORDER BY collection_id`, documentID)
}

// AddNote attaches a file-backed note to a document.
func (d *DB) AddNote(documentID int64, path, title string) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO notes (document_id, path, title) VALUES (?, ?, ?)
	`, documentID, path, nullableStringValue(title))
	if err != nil {
		return 0, fmt.Errorf("adding note for document %d: %w", documentID, err)
	}
	return res.LastInsertId()
}

// NotesForDocument returns the notes owned by a document.
func (d *DB) NotesForDocument(documentID int64) ([]document.Note, error) {
	rows, err := d.db.Query(`
		SELECT id, document_id, path, title FROM notes WHERE document_id = ? ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing notes for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var notes []document.Note
	for rows.Next() {
		var n document.Note
		var title sql.NullString
		if err := rows.Scan(&n.ID, &n.DocumentID, &n.Path, &title); err != nil {
			return nil, err
		}
		n.Title = title.String
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// queryIDs runs a single-column int64 query.
func (d *DB) queryIDs(query string, args ...interface{}) ([]int64, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
