package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matsen/citegraph/internal/document"
)

func TestReferencesByDOI(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{"citedPaper": {"paperId": "abc123", "title": "Cited Paper",
					"externalIds": {"DOI": "10.1/cited", "ArXiv": "1706.03762", "CorpusId": 13756489}}},
				{"citedPaper": {"paperId": "", "title": ""}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("test-key"))
	refs, err := client.References(context.Background(),
		map[string]string{document.IDTypeDOI: "10.1/src"}, "")
	if err != nil {
		t.Fatalf("References failed: %v", err)
	}

	if gotPath != "/paper/DOI:10.1%2Fsrc/references" {
		t.Errorf("Request path = %q", gotPath)
	}
	if len(refs) != 1 {
		t.Fatalf("Expected 1 reference (empty entry dropped), got %d", len(refs))
	}
	ref := refs[0]
	if ref.ProviderID != "abc123" || ref.Title != "Cited Paper" {
		t.Errorf("Reference = %+v", ref)
	}
	if ref.ExternalIDs[document.IDTypeDOI] != "10.1/cited" {
		t.Errorf("DOI mapping = %q", ref.ExternalIDs[document.IDTypeDOI])
	}
	if ref.ExternalIDs[document.IDTypeArXiv] != "1706.03762" {
		t.Errorf("arXiv mapping = %q", ref.ExternalIDs[document.IDTypeArXiv])
	}
	// CorpusId arrives as a JSON number and becomes the s2 id.
	if ref.ExternalIDs[document.IDTypeS2] != "13756489" {
		t.Errorf("S2 mapping = %q", ref.ExternalIDs[document.IDTypeS2])
	}
}

func TestReferencesPrefersDOIOverArXiv(t *testing.T) {
	id := queryPaperID(map[string]string{
		document.IDTypeDOI:   "10.1/x",
		document.IDTypeArXiv: "1706.03762",
	})
	if id != "DOI:10.1/x" {
		t.Errorf("queryPaperID = %q", id)
	}

	id = queryPaperID(map[string]string{document.IDTypeArXiv: "1706.03762"})
	if id != "ARXIV:1706.03762" {
		t.Errorf("queryPaperID = %q", id)
	}

	id = queryPaperID(map[string]string{document.IDTypeS2: "13756489"})
	if id != "CorpusId:13756489" {
		t.Errorf("queryPaperID = %q", id)
	}

	if queryPaperID(nil) != "" {
		t.Error("Expected empty id with no identifiers")
	}
}

func TestReferencesErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{401, IsAuthError},
		{429, IsRateLimited},
		{404, IsNotFound},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		client := NewClient(WithBaseURL(server.URL))
		_, err := client.References(context.Background(),
			map[string]string{document.IDTypeDOI: "10.1/x"}, "")
		if err == nil || !tt.check(err) {
			t.Errorf("Status %d mapped to %v", tt.status, err)
		}
		server.Close()
	}
}

func TestMatchByTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/paper/search/match" {
			w.Write([]byte(`{"data": [{"paperId": "match1", "title": "Found Paper"}]}`))
			return
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ref, err := client.MatchByTitle(context.Background(), "found paper")
	if err != nil {
		t.Fatalf("MatchByTitle failed: %v", err)
	}
	if ref.ProviderID != "match1" {
		t.Errorf("Match = %+v", ref)
	}

	// No usable ids: References falls back to the title match.
	refs, err := client.References(context.Background(), nil, "found paper")
	if err != nil {
		t.Fatalf("References by title failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("Expected empty reference list, got %d", len(refs))
	}
}

func TestGetPaper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/paper/abc123" {
			w.Write([]byte(`{"paperId": "abc123", "title": "A Paper", "externalIds": {"DOI": "10.1/a"}}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ref, err := client.GetPaper(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetPaper failed: %v", err)
	}
	if ref.Title != "A Paper" || ref.ExternalIDs[document.IDTypeDOI] != "10.1/a" {
		t.Errorf("GetPaper = %+v", ref)
	}

	// An empty payload means the paper does not exist.
	if _, err := client.GetPaper(context.Background(), "other"); !IsNotFound(err) {
		t.Errorf("Expected not-found, got %v", err)
	}
}

func TestIsAuthErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("fetching references: %w", ErrAuthError)
	if !IsAuthError(wrapped) {
		t.Error("Wrapped auth error should satisfy IsAuthError")
	}
	if IsNotFound(wrapped) {
		t.Error("Auth error is not a not-found error")
	}
}
