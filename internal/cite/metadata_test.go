package cite

import (
	"context"
	"errors"
	"testing"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
)

// fakeProvider returns canned reference lists keyed by DOI.
type fakeProvider struct {
	refs  map[string][]CandidateRef
	err   error
	calls int
}

func (f *fakeProvider) References(ctx context.Context, ids map[string]string, title string) ([]CandidateRef, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.refs[ids[document.IDTypeDOI]], nil
}

func TestBuildFromMetadataMatched(t *testing.T) {
	db := setupResolveDB(t)
	src := addDoc(t, db, document.Document{Title: "Survey Paper"})
	if err := db.AddExternalID(src, document.IDTypeDOI, "10.1/src"); err != nil {
		t.Fatalf("AddExternalID failed: %v", err)
	}
	dst := addDoc(t, db, document.Document{Title: "Cited Paper"})
	if err := db.AddExternalID(dst, document.IDTypeDOI, "10.1/dst"); err != nil {
		t.Fatalf("AddExternalID failed: %v", err)
	}

	provider := &fakeProvider{refs: map[string][]CandidateRef{
		"10.1/src": {
			{ProviderID: "s2-dst", ExternalIDs: map[string]string{document.IDTypeDOI: "10.1/dst"}, Title: "Cited Paper"},
			{ProviderID: "s2-unknown", ExternalIDs: map[string]string{document.IDTypeDOI: "10.1/elsewhere"}, Title: "Not In Library"},
		},
	}}

	stats, err := BuildFromMetadata(context.Background(), db, provider, nil, 0)
	if err != nil {
		t.Fatalf("BuildFromMetadata failed: %v", err)
	}
	if stats.CitationsAdded != 2 || stats.APIHits != 1 {
		t.Errorf("Stats = %+v, want 2 citations from 1 hit", stats)
	}

	// The matched reference is a resolved edge.
	incoming, err := db.EdgesByTarget(dst)
	if err != nil {
		t.Fatalf("EdgesByTarget failed: %v", err)
	}
	if len(incoming) != 1 {
		t.Fatalf("Expected 1 resolved edge, got %d", len(incoming))
	}
	if incoming[0].Origin != edge.OriginMetadata {
		t.Errorf("Origin = %q, want metadata", incoming[0].Origin)
	}

	// The unmatched reference keeps its identifiers for later reconciliation.
	unresolved, err := db.ListUnresolvedEdges()
	if err != nil {
		t.Fatalf("ListUnresolvedEdges failed: %v", err)
	}
	if len(unresolved) != 1 {
		t.Fatalf("Expected 1 unresolved edge, got %d", len(unresolved))
	}
	um := unresolved[0].Unmatched
	if um == nil || um.ProviderID != "s2-unknown" || um.ExternalIDs[document.IDTypeDOI] != "10.1/elsewhere" {
		t.Errorf("Unmatched payload = %+v", um)
	}
}

func TestBuildFromMetadataIdempotent(t *testing.T) {
	db := setupResolveDB(t)
	src := addDoc(t, db, document.Document{Title: "Survey Paper"})
	if err := db.AddExternalID(src, document.IDTypeDOI, "10.1/src"); err != nil {
		t.Fatalf("AddExternalID failed: %v", err)
	}

	provider := &fakeProvider{refs: map[string][]CandidateRef{
		"10.1/src": {{ProviderID: "s2-x", Title: "Some Reference"}},
	}}

	for i := 0; i < 2; i++ {
		stats, err := BuildFromMetadata(context.Background(), db, provider, nil, 0)
		if err != nil {
			t.Fatalf("BuildFromMetadata failed: %v", err)
		}
		if i == 0 && stats.CitationsAdded != 1 {
			t.Errorf("First run added %d citations, want 1", stats.CitationsAdded)
		}
		if i == 1 && stats.CitationsAdded != 0 {
			t.Errorf("Second run added %d citations, want 0", stats.CitationsAdded)
		}
	}

	n, err := db.CountEdges()
	if err != nil {
		t.Fatalf("CountEdges failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Edge count = %d, want 1", n)
	}
}

func TestBuildFromMetadataSkipsSelfCitation(t *testing.T) {
	db := setupResolveDB(t)
	src := addDoc(t, db, document.Document{Title: "Recursive Paper"})
	if err := db.AddExternalID(src, document.IDTypeDOI, "10.1/self"); err != nil {
		t.Fatalf("AddExternalID failed: %v", err)
	}

	provider := &fakeProvider{refs: map[string][]CandidateRef{
		"10.1/self": {{ProviderID: "s2-self", ExternalIDs: map[string]string{document.IDTypeDOI: "10.1/self"}}},
	}}

	stats, err := BuildFromMetadata(context.Background(), db, provider, nil, 0)
	if err != nil {
		t.Fatalf("BuildFromMetadata failed: %v", err)
	}
	if stats.CitationsAdded != 0 {
		t.Errorf("Self-citation was stored: %+v", stats)
	}
}

func TestBuildFromMetadataProviderFailureIsAMiss(t *testing.T) {
	db := setupResolveDB(t)
	src := addDoc(t, db, document.Document{Title: "Survey Paper"})
	if err := db.AddExternalID(src, document.IDTypeDOI, "10.1/src"); err != nil {
		t.Fatalf("AddExternalID failed: %v", err)
	}

	provider := &fakeProvider{err: errors.New("service unavailable")}

	stats, err := BuildFromMetadata(context.Background(), db, provider, nil, 0)
	if err != nil {
		t.Fatalf("Provider failure should not fail the batch: %v", err)
	}
	if stats.APIMisses != 1 || stats.Processed != 1 {
		t.Errorf("Stats = %+v, want 1 miss, 1 processed", stats)
	}
}

func TestBuildFromMetadataQueriesByTitleWithoutIDs(t *testing.T) {
	db := setupResolveDB(t)
	addDoc(t, db, document.Document{Title: "Untracked Paper", CiteKey: "untracked"})

	provider := &fakeProvider{}
	stats, err := BuildFromMetadata(context.Background(), db, provider, nil, 0)
	if err != nil {
		t.Fatalf("BuildFromMetadata failed: %v", err)
	}
	// A document with no usable ids but a title still gets a provider query.
	if provider.calls != 1 {
		t.Errorf("Provider calls = %d, want 1", provider.calls)
	}
	if stats.Skipped != 0 {
		t.Errorf("Stats = %+v, want no skips", stats)
	}
}
