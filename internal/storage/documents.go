package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/matsen/citegraph/internal/document"
)

// selectDocFields contains the standard field list for document SELECT queries.
const selectDocFields = `id, doc_type, title, abstract, year, venue,
	authors_json, source_url, pdf_path, text_path, cite_key,
	status, merged_into, created_at, updated_at`

// CreateDocument inserts a new document and returns its ID.
func (d *DB) CreateDocument(doc *document.Document) (int64, error) {
	if doc.Title == "" {
		return 0, fmt.Errorf("document title is required")
	}
	if doc.Type == "" {
		doc.Type = document.TypePaper
	}
	if doc.Status == "" {
		doc.Status = document.StatusActive
	}
	now := nowRFC3339()

	var authorsJSON sql.NullString
	if len(doc.Authors) > 0 {
		data, err := json.Marshal(doc.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors: %w", err)
		}
		authorsJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := d.db.Exec(`
		INSERT INTO documents (
			doc_type, title, abstract, year, venue, authors_json,
			source_url, pdf_path, text_path, cite_key,
			status, merged_into, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.Type, doc.Title, nullableStringValue(doc.Abstract),
		nullableInt64Value(int64(doc.Year)), nullableStringValue(doc.Venue), authorsJSON,
		nullableStringValue(doc.SourceURL), nullableStringValue(doc.PDFPath),
		nullableStringValue(doc.TextPath), nullableStringValue(doc.CiteKey),
		doc.Status, nullableInt64Value(doc.MergedInto), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return id, nil
}

// GetDocument retrieves a document by ID. Returns ErrNotFound if absent.
func (d *DB) GetDocument(id int64) (*document.Document, error) {
	row := d.db.QueryRow(`SELECT `+selectDocFields+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetDocumentByCiteKey retrieves a document by its unique cite key.
func (d *DB) GetDocumentByCiteKey(key string) (*document.Document, error) {
	row := d.db.QueryRow(`SELECT `+selectDocFields+` FROM documents WHERE cite_key = ?`, key)
	return scanDocument(row)
}

// GetDocumentBySourceURL retrieves a document by its canonical source URL.
func (d *DB) GetDocumentBySourceURL(url string) (*document.Document, error) {
	row := d.db.QueryRow(`SELECT `+selectDocFields+` FROM documents WHERE source_url = ?`, url)
	return scanDocument(row)
}

// ListActiveDocuments returns all documents that have not been merged away.
func (d *DB) ListActiveDocuments() ([]document.Document, error) {
	rows, err := d.db.Query(
		`SELECT `+selectDocFields+` FROM documents WHERE status = ? ORDER BY id`,
		document.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("listing active documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListDocuments returns every document regardless of status.
func (d *DB) ListDocuments() ([]document.Document, error) {
	rows, err := d.db.Query(`SELECT ` + selectDocFields + ` FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// CountDocuments returns the total number of documents.
func (d *DB) CountDocuments() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}

// AddExternalID attaches a typed external identifier to a document.
// The (type, value) pair must be globally unique.
func (d *DB) AddExternalID(documentID int64, idType, idValue string) error {
	_, err := d.db.Exec(`
		INSERT INTO external_ids (document_id, id_type, id_value)
		VALUES (?, ?, ?)
	`, documentID, idType, idValue)
	if err != nil {
		return fmt.Errorf("adding external id %s:%s: %w", idType, idValue, err)
	}
	return nil
}

// FindDocumentIDByExternalID looks up the document carrying the given
// identifier pair. The second return is false when no document carries it.
func (d *DB) FindDocumentIDByExternalID(idType, idValue string) (int64, bool, error) {
	var id int64
	err := d.db.QueryRow(`
		SELECT document_id FROM external_ids WHERE id_type = ? AND id_value = ?
	`, idType, idValue).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ListExternalIDs returns every identifier pair in the library.
func (d *DB) ListExternalIDs() ([]document.ExternalID, error) {
	rows, err := d.db.Query(`SELECT id, document_id, id_type, id_value FROM external_ids ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing external ids: %w", err)
	}
	defer rows.Close()

	var ids []document.ExternalID
	for rows.Next() {
		var eid document.ExternalID
		if err := rows.Scan(&eid.ID, &eid.DocumentID, &eid.Type, &eid.Value); err != nil {
			return nil, err
		}
		ids = append(ids, eid)
	}
	return ids, rows.Err()
}

// ExternalIDsForDocument returns the identifiers attached to one document.
func (d *DB) ExternalIDsForDocument(documentID int64) ([]document.ExternalID, error) {
	rows, err := d.db.Query(`
		SELECT id, document_id, id_type, id_value
		FROM external_ids WHERE document_id = ? ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing external ids for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var ids []document.ExternalID
	for rows.Next() {
		var eid document.ExternalID
		if err := rows.Scan(&eid.ID, &eid.DocumentID, &eid.Type, &eid.Value); err != nil {
			return nil, err
		}
		ids = append(ids, eid)
	}
	return ids, rows.Err()
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(s scanner) (*document.Document, error) {
	var doc document.Document
	var abstract, venue, authorsJSON, sourceURL, pdfPath, textPath sql.NullString
	var citeKey, createdAt, updatedAt sql.NullString
	var year, mergedInto sql.NullInt64

	err := s.Scan(
		&doc.ID, &doc.Type, &doc.Title, &abstract, &year, &venue,
		&authorsJSON, &sourceURL, &pdfPath, &textPath, &citeKey,
		&doc.Status, &mergedInto, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	doc.Abstract = abstract.String
	doc.Venue = venue.String
	doc.SourceURL = sourceURL.String
	doc.PDFPath = pdfPath.String
	doc.TextPath = textPath.String
	doc.CiteKey = citeKey.String
	doc.CreatedAt = createdAt.String
	doc.UpdatedAt = updatedAt.String
	if year.Valid {
		doc.Year = int(year.Int64)
	}
	if mergedInto.Valid {
		doc.MergedInto = mergedInto.Int64
	}

	if authorsJSON.Valid && authorsJSON.String != "" {
		if err := json.Unmarshal([]byte(authorsJSON.String), &doc.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors JSON for document %d: %w", doc.ID, err)
		}
	}

	return &doc, nil
}

func scanDocuments(rows *sql.Rows) ([]document.Document, error) {
	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
