package extract

import (
	"fmt"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/storage"
)

// TextProvider supplies the extracted raw text of a document.
// An empty string with a nil error means no text is available.
type TextProvider interface {
	Text(doc document.Document) (string, error)
}

// RunStats reports a batch extraction pass.
type RunStats struct {
	Extracted int `json:"extracted"` // documents that yielded at least one new edge
	Skipped   int `json:"skipped"`   // documents with no text or no new references
	Failed    int `json:"failed"`    // documents whose text could not be read
}

// Run extracts references for each document and stores them as unresolved
// citation edges. Hash-based dedup makes re-runs idempotent: unchanged text
// yields zero new edges. A failure on one document is counted and the pass
// continues.
func Run(db *storage.DB, texts TextProvider, docs []document.Document, limit int) (*RunStats, error) {
	if docs == nil {
		var err error
		docs, err = db.ListActiveDocuments()
		if err != nil {
			return nil, fmt.Errorf("loading active documents: %w", err)
		}
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	stats := &RunStats{}
	for _, doc := range docs {
		added, err := extractForDocument(db, texts, doc)
		if err != nil {
			stats.Failed++
			continue
		}
		if added > 0 {
			stats.Extracted++
		} else {
			stats.Skipped++
		}
	}

	return stats, nil
}

// extractForDocument parses one document's references into edges.
// Returns the number of new edges stored.
func extractForDocument(db *storage.DB, texts TextProvider, doc document.Document) (int, error) {
	text, err := texts.Text(doc)
	if err != nil {
		return 0, fmt.Errorf("reading text for document %d: %w", doc.ID, err)
	}
	if text == "" {
		return 0, nil
	}

	result := ExtractReferences(text)
	if len(result.Entries) == 0 {
		return 0, nil
	}

	existing, err := db.MentionHashes(doc.ID, "")
	if err != nil {
		return 0, fmt.Errorf("loading mention hashes for document %d: %w", doc.ID, err)
	}

	added := 0
	for _, entry := range result.Entries {
		hash := edge.MentionHash(entry.Raw)
		if existing[hash] {
			continue
		}

		e := edge.Edge{
			SrcID:    doc.ID,
			RawCite:  edge.TruncateRawCite(entry.Raw),
			DstKey:   entry.BestKey(),
			Origin:   edge.OriginText,
			CiteHash: hash,
		}
		inserted, err := db.InsertEdge(&e)
		if err != nil {
			return added, fmt.Errorf("inserting citation for document %d: %w", doc.ID, err)
		}
		if inserted {
			existing[hash] = true
			added++
		}
	}

	return added, nil
}
