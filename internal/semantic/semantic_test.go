package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/document"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("CosineSimilarity failed: %v", err)
			}
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity = %g, want %g", got, tt.want)
			}
		})
	}

	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("Expected dimension mismatch error")
	}
}

func TestIndexSearch(t *testing.T) {
	idx := NewIndex("test-model", 3)
	vectors := map[int64][]float32{
		1: {1, 0, 0},
		2: {0.9, 0.1, 0},
		3: {0, 1, 0},
		4: {0, 0, 1},
	}
	for id, v := range vectors {
		if err := idx.Add(id, v); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	results, err := idx.Search(1, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].DocumentID != 2 {
		t.Errorf("Top result = %d, want 2", results[0].DocumentID)
	}
	for _, r := range results {
		if r.DocumentID == 1 {
			t.Error("Search returned the query document itself")
		}
	}

	if _, err := idx.Search(999, 2); !errors.Is(err, ErrDocumentNotIndexed) {
		t.Errorf("Expected ErrDocumentNotIndexed, got %v", err)
	}
}

func TestIndexSaveLoad(t *testing.T) {
	cacheDir := t.TempDir()

	idx := NewIndex("test-model", 2)
	if err := idx.Add(7, []float32{0.5, 0.5}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := idx.Save(cacheDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(cacheDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ModelName != "test-model" || loaded.Dimensions != 2 {
		t.Errorf("Loaded index = %+v", loaded)
	}
	if !loaded.Has(7) {
		t.Error("Loaded index lost its embedding")
	}
	if loaded.DocumentCount != 1 {
		t.Errorf("DocumentCount = %d, want 1", loaded.DocumentCount)
	}
}

func TestLoadMissingIndex(t *testing.T) {
	if _, err := Load(t.TempDir()); err != ErrIndexNotFound {
		t.Errorf("Expected ErrIndexNotFound, got %v", err)
	}
}

// fakeEmbedder embeds deterministically and can fail on demand.
type fakeEmbedder struct {
	failOn string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, fmt.Errorf("embedding failed")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) Dimensions() int   { return 2 }

func TestBuild(t *testing.T) {
	longAbstract := strings.Repeat("A sentence about the topic. ", 5)
	docs := []document.Document{
		{ID: 1, Title: "First Paper", Abstract: longAbstract},
		{ID: 2, Title: "Tiny", Abstract: ""},
		{ID: 3, Title: "Failing Paper", Abstract: longAbstract + " FAILME"},
	}

	idx, stats, err := Build(context.Background(), &fakeEmbedder{failOn: "FAILME"}, docs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stats.Indexed != 1 || stats.Skipped != 1 || stats.Failed != 1 {
		t.Errorf("Stats = %+v, want 1/1/1", stats)
	}
	if !idx.Has(1) || idx.Has(2) || idx.Has(3) {
		t.Errorf("Index membership wrong: %+v", idx.Embeddings)
	}
}
