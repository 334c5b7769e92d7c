package textsource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matsen/citegraph/internal/document"
)

func TestResolve(t *testing.T) {
	src := New("/library/pdfs")

	if got := src.Resolve("paper.pdf"); got != filepath.Join("/library/pdfs", "paper.pdf") {
		t.Errorf("Resolve relative = %q", got)
	}
	if got := src.Resolve("/elsewhere/paper.pdf"); got != "/elsewhere/paper.pdf" {
		t.Errorf("Resolve absolute = %q", got)
	}

	noRoot := New("")
	if got := noRoot.Resolve("paper.pdf"); got != "paper.pdf" {
		t.Errorf("Resolve without root = %q", got)
	}
}

func TestTextFromTextFile(t *testing.T) {
	dir := t.TempDir()
	content := "Full text of the paper.\n\nReferences\n[1] Something."
	if err := os.WriteFile(filepath.Join(dir, "paper.txt"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write text file: %v", err)
	}

	src := New(dir)
	got, err := src.Text(document.Document{TextPath: "paper.txt"})
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != content {
		t.Errorf("Text = %q, want %q", got, content)
	}
}

func TestTextFilePreferredOverPDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "paper.txt"), []byte("cached text"), 0644); err != nil {
		t.Fatalf("Failed to write text file: %v", err)
	}

	src := New(dir)
	// The PDF does not exist, so falling back to it would fail.
	got, err := src.Text(document.Document{TextPath: "paper.txt", PDFPath: "missing.pdf"})
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if got != "cached text" {
		t.Errorf("Text = %q", got)
	}
}

func TestTextNoSource(t *testing.T) {
	src := New(t.TempDir())
	_, err := src.Text(document.Document{})
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "doi: 10.18653/v1/N19-1423 in header", "10.18653/v1/N19-1423"},
		{"trailing period", "See https://doi.org/10.1038/nature14539.", "10.1038/nature14539"},
		{"too short suffix", "10.1234/x", ""},
		{"none", "no identifier here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
