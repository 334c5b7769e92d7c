package graph

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/storage"
)

func setupGraphDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addDoc(t *testing.T, db *storage.DB, title string) int64 {
	t.Helper()

	doc := document.Document{Title: title}
	id, err := db.CreateDocument(&doc)
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	return id
}

func addResolvedEdge(t *testing.T, db *storage.DB, src, dst int64, hash string) {
	t.Helper()

	e := edge.Edge{SrcID: src, DstID: dst, Origin: edge.OriginText, CiteHash: hash}
	if _, err := db.InsertEdge(&e); err != nil {
		t.Fatalf("Failed to insert edge: %v", err)
	}
}

// chain: a -> b -> c, plus d -> a, plus one unresolved mention on a.
func setupChain(t *testing.T, db *storage.DB) (a, b, c, d int64) {
	t.Helper()

	a = addDoc(t, db, "Paper A")
	b = addDoc(t, db, "Paper B")
	c = addDoc(t, db, "Paper C")
	d = addDoc(t, db, "Paper D")

	addResolvedEdge(t, db, a, b, "a-b")
	addResolvedEdge(t, db, b, c, "b-c")
	addResolvedEdge(t, db, d, a, "d-a")

	unresolved := edge.Edge{
		SrcID:    a,
		RawCite:  "Mystery et al. An uncatalogued reference. 2020.",
		Origin:   edge.OriginText,
		CiteHash: "a-unresolved",
	}
	if _, err := db.InsertEdge(&unresolved); err != nil {
		t.Fatalf("Failed to insert unresolved edge: %v", err)
	}
	return a, b, c, d
}

func TestQueryDepthOne(t *testing.T) {
	db := setupGraphDB(t)
	a, b, c, d := setupChain(t, db)

	sub, err := Query(db, a, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if sub.Center.ID != a || sub.Center.Title != "Paper A" {
		t.Errorf("Center = %+v", sub.Center)
	}
	if len(sub.Cites) != 1 || sub.Cites[0].ID != b {
		t.Errorf("Cites = %+v, want only %d", sub.Cites, b)
	}
	if len(sub.CitedBy) != 1 || sub.CitedBy[0].ID != d {
		t.Errorf("CitedBy = %+v, want only %d", sub.CitedBy, d)
	}
	if len(sub.UnresolvedRefs) != 1 {
		t.Errorf("UnresolvedRefs = %d, want 1", len(sub.UnresolvedRefs))
	}
	if len(sub.Edges) != 2 {
		t.Errorf("Edges = %+v, want 2", sub.Edges)
	}

	// Depth 1 must not reach c.
	for _, n := range sub.Cites {
		if n.ID == c {
			t.Error("Depth 1 leaked a two-hop neighbor")
		}
	}
}

func TestQueryDepthTwo(t *testing.T) {
	db := setupGraphDB(t)
	a, _, c, _ := setupChain(t, db)

	sub, err := Query(db, a, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	found := false
	for _, n := range sub.Cites {
		if n.ID == c {
			found = true
		}
	}
	if !found {
		t.Error("Depth 2 should include the neighbor's citation target")
	}
	if len(sub.Edges) != 3 {
		t.Errorf("Edges = %+v, want 3", sub.Edges)
	}
}

func TestQueryDepthTwoIsBounded(t *testing.T) {
	db := setupGraphDB(t)
	a := addDoc(t, db, "A")
	b := addDoc(t, db, "B")
	c := addDoc(t, db, "C")
	d := addDoc(t, db, "D")

	// a -> b -> c -> d: depth 2 stops at c.
	addResolvedEdge(t, db, a, b, "a-b")
	addResolvedEdge(t, db, b, c, "b-c")
	addResolvedEdge(t, db, c, d, "c-d")

	sub, err := Query(db, a, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	for _, n := range sub.Cites {
		if n.ID == d {
			t.Error("Depth 2 expanded transitively past the direct neighbors")
		}
	}
}

func TestQueryMissingCenter(t *testing.T) {
	db := setupGraphDB(t)

	if _, err := Query(db, 42, 1); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestQueryTruncatesLongMentions(t *testing.T) {
	db := setupGraphDB(t)
	a := addDoc(t, db, "Paper A")

	// Pad so a two-byte rune straddles the display cut point.
	long := strings.Repeat("x", MaxRawCiteDisplay-1) + strings.Repeat("é", 40)
	e := edge.Edge{SrcID: a, RawCite: long, Origin: edge.OriginText, CiteHash: "long"}
	if _, err := db.InsertEdge(&e); err != nil {
		t.Fatalf("InsertEdge failed: %v", err)
	}

	sub, err := Query(db, a, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(sub.UnresolvedRefs) != 1 {
		t.Fatalf("UnresolvedRefs = %d, want 1", len(sub.UnresolvedRefs))
	}
	raw := sub.UnresolvedRefs[0].RawCite
	if len(raw) > MaxRawCiteDisplay {
		t.Errorf("Raw mention length = %d, want <= %d", len(raw), MaxRawCiteDisplay)
	}
	if !utf8.ValidString(raw) {
		t.Errorf("Truncated mention is not valid UTF-8: %q", raw[len(raw)-4:])
	}
}
