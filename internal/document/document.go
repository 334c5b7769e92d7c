// Package document defines the core domain types for library documents.
package document

// Status values for a document's lifecycle.
const (
	StatusActive = "active"
	StatusMerged = "merged"
)

// Document types.
const (
	TypePaper = "paper"
	TypeBlog  = "blog"
	TypeSlide = "slide"
	TypeNote  = "note"
)

// External identifier types.
const (
	IDTypeDOI        = "doi"
	IDTypeArXiv      = "arxiv"
	IDTypeACL        = "acl"
	IDTypeS2         = "s2"
	IDTypeOpenReview = "openreview"
	IDTypeISBN       = "isbn"
)

// Document represents a paper, blog post, slide deck, or note in the library.
type Document struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Abstract string `json:"abstract,omitempty"`
	Year     int    `json:"year,omitempty"` // 0 if unknown
	Venue    string `json:"venue,omitempty"`

	// Authors in citation order.
	Authors []string `json:"authors,omitempty"`

	// Locations
	SourceURL string `json:"source_url,omitempty"`
	PDFPath   string `json:"pdf_path,omitempty"`
	TextPath  string `json:"text_path,omitempty"`

	// CiteKey is the unique human-readable key (e.g. "vaswani2017attention").
	CiteKey string `json:"cite_key,omitempty"`

	// Lifecycle
	Status     string `json:"status"`
	MergedInto int64  `json:"merged_into,omitempty"` // set only when Status == merged

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Active reports whether the document has not been tombstoned by a merge.
func (d *Document) Active() bool {
	return d.Status == StatusActive
}

// FirstAuthor returns the first listed author, or "" if none.
func (d *Document) FirstAuthor() string {
	if len(d.Authors) == 0 {
		return ""
	}
	return d.Authors[0]
}

// ExternalID links a typed external identifier to a document.
// The (Type, Value) pair is globally unique across the library.
type ExternalID struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Type       string `json:"id_type"`
	Value      string `json:"id_value"`
}

// Tag is a named label applied to documents.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Note is a file-backed annotation owned by a document.
type Note struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Path       string `json:"path"`
	Title      string `json:"title,omitempty"`
}
