package dedupe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/storage"
)

func setupDetectDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addDoc(t *testing.T, db *storage.DB, doc document.Document) int64 {
	t.Helper()

	id, err := db.CreateDocument(&doc)
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	return id
}

func TestDetectByExternalID(t *testing.T) {
	db := setupDetectDB(t)
	a := addDoc(t, db, document.Document{Title: "Paper One"})
	b := addDoc(t, db, document.Document{Title: "Paper One (again)"})
	for _, id := range []int64{a, b} {
		if err := db.AddExternalID(id, document.IDTypeDOI, "10.1/shared"); err != nil {
			t.Fatalf("AddExternalID failed: %v", err)
		}
	}

	pairs, err := Detect(context.Background(), db, nil, Options{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 pair, got %d", len(pairs))
	}
	p := pairs[0]
	if p.AID != a || p.BID != b {
		t.Errorf("Pair = (%d, %d), want (%d, %d)", p.AID, p.BID, a, b)
	}
	if p.Confidence != 1.0 || p.Method != "exact_doi" {
		t.Errorf("Pair = %+v, want exact_doi at 1.0", p)
	}
}

func TestDetectByCompositeKey(t *testing.T) {
	db := setupDetectDB(t)
	a := addDoc(t, db, document.Document{
		Title: "Attention Is All You Need", Year: 2017, Authors: []string{"Ashish Vaswani"}})
	b := addDoc(t, db, document.Document{
		Title: "attention is all you need", Year: 2017, Authors: []string{"Ashish  Vaswani"}})
	addDoc(t, db, document.Document{
		Title: "Attention Is All You Need", Year: 2018, Authors: []string{"Ashish Vaswani"}})

	pairs, err := Detect(context.Background(), db, nil, Options{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 pair (differing year excluded), got %d", len(pairs))
	}
	p := pairs[0]
	if p.AID != a || p.BID != b {
		t.Errorf("Pair = (%d, %d), want (%d, %d)", p.AID, p.BID, a, b)
	}
	if p.Confidence != 0.9 || p.Method != "title_year_author" {
		t.Errorf("Pair = %+v, want title_year_author at 0.9", p)
	}
}

// fakeSimilarity returns fixed neighbors for every query.
type fakeSimilarity struct {
	matches []Match
	err     error
}

func (f *fakeSimilarity) Similar(ctx context.Context, text string, limit int) ([]Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func TestDetectBySimilarityThresholdIsStrict(t *testing.T) {
	db := setupDetectDB(t)
	a := addDoc(t, db, document.Document{Title: "Paper A", Abstract: "About things."})
	b := addDoc(t, db, document.Document{Title: "Paper B", Abstract: "About things."})

	// Exactly at the threshold: must not be proposed.
	sim := &fakeSimilarity{matches: []Match{{DocumentID: b, Score: 0.95}}}
	pairs, err := Detect(context.Background(), db, sim, Options{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Score exactly at threshold proposed %d pairs, want 0", len(pairs))
	}

	// Strictly above: proposed once, canonicalized.
	sim = &fakeSimilarity{matches: []Match{{DocumentID: b, Score: 0.96}, {DocumentID: a, Score: 0.96}}}
	pairs, err = Detect(context.Background(), db, sim, Options{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 canonical pair, got %d", len(pairs))
	}
	p := pairs[0]
	if p.AID != a || p.BID != b || p.Method != "similarity" {
		t.Errorf("Pair = %+v", p)
	}
}

func TestDetectSimilarityFailureSkipsStrategy(t *testing.T) {
	db := setupDetectDB(t)
	a := addDoc(t, db, document.Document{Title: "Paper One"})
	b := addDoc(t, db, document.Document{Title: "Paper Two"})
	for _, id := range []int64{a, b} {
		if err := db.AddExternalID(id, document.IDTypeArXiv, "1706.03762"); err != nil {
			t.Fatalf("AddExternalID failed: %v", err)
		}
	}

	sim := &fakeSimilarity{err: errors.New("embedding service down")}
	pairs, err := Detect(context.Background(), db, sim, Options{})
	if err != nil {
		t.Fatalf("Similarity failure should not fail the scan: %v", err)
	}
	// The exact-id pair from the earlier strategy survives.
	if len(pairs) != 1 || pairs[0].Method != "exact_arxiv" {
		t.Errorf("Pairs = %+v, want the exact_arxiv pair", pairs)
	}
}

func TestDetectUnionsPairsByConfidence(t *testing.T) {
	db := setupDetectDB(t)
	a := addDoc(t, db, document.Document{
		Title: "Shared Title", Year: 2020, Authors: []string{"Same Author"}})
	b := addDoc(t, db, document.Document{
		Title: "Shared Title", Year: 2020, Authors: []string{"Same Author"}})
	for _, id := range []int64{a, b} {
		if err := db.AddExternalID(id, document.IDTypeDOI, "10.1/dup"); err != nil {
			t.Fatalf("AddExternalID failed: %v", err)
		}
	}

	pairs, err := Detect(context.Background(), db, nil, Options{})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	// Both strategies fire for the same pair; only the first (highest
	// confidence) proposal is kept.
	if len(pairs) != 1 {
		t.Fatalf("Expected 1 unioned pair, got %d", len(pairs))
	}
	if pairs[0].Confidence != 1.0 {
		t.Errorf("Kept confidence = %g, want the exact-id 1.0", pairs[0].Confidence)
	}
}

func TestNormalizeAuthor(t *testing.T) {
	if got := normalizeAuthor("  O'Brien,  Conan "); got != "obrien conan" {
		t.Errorf("normalizeAuthor = %q", got)
	}
}
