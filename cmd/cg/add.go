package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/textsource"
)

var (
	addType       string
	addAuthors    []string
	addYear       int
	addVenue      string
	addDOI        string
	addArXiv      string
	addACL        string
	addISBN       string
	addOpenReview string
	addURL        string
	addPDF        string
	addText       string
	addCiteKey    string
	addTags       []string
)

func init() {
	addCmd.Flags().StringVar(&addType, "type", document.TypePaper, "Document type (paper, blog, slide, note)")
	addCmd.Flags().StringSliceVar(&addAuthors, "author", nil, "Author name (repeatable)")
	addCmd.Flags().IntVar(&addYear, "year", 0, "Publication year")
	addCmd.Flags().StringVar(&addVenue, "venue", "", "Publication venue")
	addCmd.Flags().StringVar(&addDOI, "doi", "", "DOI")
	addCmd.Flags().StringVar(&addArXiv, "arxiv", "", "arXiv identifier")
	addCmd.Flags().StringVar(&addACL, "acl", "", "ACL Anthology identifier")
	addCmd.Flags().StringVar(&addISBN, "isbn", "", "ISBN")
	addCmd.Flags().StringVar(&addOpenReview, "openreview", "", "OpenReview forum identifier")
	addCmd.Flags().StringVar(&addURL, "url", "", "Source URL")
	addCmd.Flags().StringVar(&addPDF, "pdf", "", "Path to the PDF file")
	addCmd.Flags().StringVar(&addText, "text", "", "Path to a plain-text file")
	addCmd.Flags().StringVar(&addCiteKey, "cite-key", "", "Unique citation key (e.g. vaswani2017attention)")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag name (repeatable)")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a document to the library",
	Long: `Add a document to the library.

When a PDF is given without a DOI, the first pages are scanned for one.

Examples:
  cg add "Attention Is All You Need" --arxiv 1706.03762 --year 2017
  cg add "The Illustrated Transformer" --type blog --url https://jalammar.github.io/illustrated-transformer/
  cg add "Some Paper" --pdf papers/some-paper.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

// AddResponse is the response for the add command.
type AddResponse struct {
	Status      string            `json:"status"`
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	CiteKey     string            `json:"cite_key,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
}

var validDocTypes = map[string]bool{
	document.TypePaper: true,
	document.TypeBlog:  true,
	document.TypeSlide: true,
	document.TypeNote:  true,
}

func runAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])
	if title == "" {
		exitWithError(ExitDataError, "title is required")
	}
	if !validDocTypes[addType] {
		exitWithError(ExitDataError, "unknown document type: %s", addType)
	}

	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	doc := document.Document{
		Type:      addType,
		Title:     title,
		Year:      addYear,
		Venue:     addVenue,
		Authors:   addAuthors,
		SourceURL: addURL,
		PDFPath:   addPDF,
		TextPath:  addText,
		CiteKey:   addCiteKey,
	}

	externalIDs := map[string]string{}
	if addDOI != "" {
		externalIDs[document.IDTypeDOI] = addDOI
	}
	if addArXiv != "" {
		externalIDs[document.IDTypeArXiv] = addArXiv
	}
	if addACL != "" {
		externalIDs[document.IDTypeACL] = addACL
	}
	if addISBN != "" {
		externalIDs[document.IDTypeISBN] = addISBN
	}
	if addOpenReview != "" {
		externalIDs[document.IDTypeOpenReview] = addOpenReview
	}

	// Best-effort DOI sniffing from the PDF when none was given.
	if addPDF != "" && externalIDs[document.IDTypeDOI] == "" {
		src := textsource.New(cfg.PDFRoot)
		if doi, err := textsource.ExtractDOI(src.Resolve(addPDF)); err == nil && doi != "" {
			externalIDs[document.IDTypeDOI] = doi
		}
	}

	id, err := db.CreateDocument(&doc)
	if err != nil {
		exitWithError(ExitDataError, "creating document: %v", err)
	}

	for idType, idValue := range externalIDs {
		if err := db.AddExternalID(id, idType, idValue); err != nil {
			exitWithError(ExitDataError, "adding %s: %v", idType, err)
		}
	}

	for _, tag := range addTags {
		tagID, err := db.EnsureTag(tag)
		if err != nil {
			exitWithError(ExitError, "creating tag %q: %v", tag, err)
		}
		if err := db.TagDocument(id, tagID); err != nil {
			exitWithError(ExitError, "tagging document: %v", err)
		}
	}

	if humanOutput {
		fmt.Printf("Added document %d: %s\n", id, truncateString(title, ListTitleMaxLen))
	} else {
		outputJSON(AddResponse{
			Status:      "added",
			ID:          id,
			Title:       title,
			CiteKey:     addCiteKey,
			ExternalIDs: externalIDs,
		})
	}
	return nil
}
