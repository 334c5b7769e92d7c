// Package textsource resolves document full text, preferring cached text
// files and falling back to PDF extraction.
package textsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/matsen/citegraph/internal/document"
)

// ErrNoText is returned when a document has neither a text file nor a PDF.
var ErrNoText = errors.New("document has no text source")

// Source provides document text from text files and PDFs on disk.
type Source struct {
	// PDFRoot is the directory relative PDF paths are resolved against.
	PDFRoot string
}

// New creates a text source. pdfRoot may be empty when all paths are absolute.
func New(pdfRoot string) *Source {
	return &Source{PDFRoot: pdfRoot}
}

// Text returns the full text for a document. Text files take precedence
// over PDF extraction.
func (s *Source) Text(doc document.Document) (string, error) {
	if doc.TextPath != "" {
		data, err := os.ReadFile(s.Resolve(doc.TextPath))
		if err != nil {
			return "", fmt.Errorf("reading text file: %w", err)
		}
		return string(data), nil
	}

	if doc.PDFPath != "" {
		text, err := ExtractText(s.Resolve(doc.PDFPath), 0)
		if err != nil {
			return "", fmt.Errorf("extracting pdf text: %w", err)
		}
		return text, nil
	}

	return "", ErrNoText
}

// Resolve joins relative paths onto the PDF root.
func (s *Source) Resolve(path string) string {
	if filepath.IsAbs(path) || s.PDFRoot == "" {
		return path
	}
	return filepath.Join(s.PDFRoot, path)
}

// ExtractText extracts text from the first maxPages pages of a PDF.
// Pass maxPages <= 0 to extract all pages.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
