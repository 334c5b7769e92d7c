package extract

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/storage"
)

// stubTexts serves canned text per document id and can simulate read failures.
type stubTexts struct {
	texts map[int64]string
	fail  map[int64]bool
}

func (s stubTexts) Text(doc document.Document) (string, error) {
	if s.fail[doc.ID] {
		return "", errors.New("unreadable source")
	}
	return s.texts[doc.ID], nil
}

func setupRunDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createDoc(t *testing.T, db *storage.DB, title string) int64 {
	t.Helper()

	id, err := db.CreateDocument(&document.Document{Title: title})
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	return id
}

func TestRunCountsAndIdempotence(t *testing.T) {
	db := setupRunDB(t)
	withRefs := createDoc(t, db, "Paper With References")
	noText := createDoc(t, db, "Paper Without Text")
	broken := createDoc(t, db, "Paper With Broken Source")

	texts := stubTexts{
		texts: map[int64]string{withRefs: bracketedSection},
		fail:  map[int64]bool{broken: true},
	}

	stats, err := Run(db, texts, nil, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Extracted != 1 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Errorf("Stats = %+v, want 1 extracted, 1 skipped, 1 failed", stats)
	}

	edges, err := db.EdgesBySource(withRefs)
	if err != nil {
		t.Fatalf("EdgesBySource failed: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("Expected 3 edges from the reference list, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Origin != edge.OriginText {
			t.Errorf("Edge origin = %q, want %q", e.Origin, edge.OriginText)
		}
	}
	if others, _ := db.EdgesBySource(noText); len(others) != 0 {
		t.Errorf("Document without text should yield no edges, got %d", len(others))
	}

	// A second pass over unchanged text must not duplicate edges.
	stats, err = Run(db, texts, nil, 0)
	if err != nil {
		t.Fatalf("Second Run failed: %v", err)
	}
	if stats.Extracted != 0 || stats.Skipped != 2 || stats.Failed != 1 {
		t.Errorf("Second run stats = %+v, want nothing extracted", stats)
	}

	total, err := db.CountEdges()
	if err != nil {
		t.Fatalf("CountEdges failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Edge count = %d after re-run, want 3", total)
	}
}

func TestRunHonorsLimit(t *testing.T) {
	db := setupRunDB(t)
	first := createDoc(t, db, "First Paper")
	second := createDoc(t, db, "Second Paper")

	texts := stubTexts{texts: map[int64]string{
		first:  bracketedSection,
		second: bracketedSection,
	}}

	docs, err := db.ListActiveDocuments()
	if err != nil {
		t.Fatalf("ListActiveDocuments failed: %v", err)
	}

	stats, err := Run(db, texts, docs, 1)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Extracted != 1 || stats.Skipped != 0 {
		t.Errorf("Stats = %+v, want exactly one document processed", stats)
	}
}
