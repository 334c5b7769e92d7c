// Package cite resolves citation edges to library documents.
package cite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/extract"
	"github.com/matsen/citegraph/internal/storage"
)

// DefaultFuzzyThreshold is the minimum Jaccard title similarity for the
// fuzzy fallback strategy. A candidate must score strictly above it.
const DefaultFuzzyThreshold = 0.85

// Options configures a resolution pass.
type Options struct {
	// FuzzyThreshold overrides DefaultFuzzyThreshold when > 0.
	FuzzyThreshold float64
}

// ResolveStats reports a resolution pass, broken down by strategy.
type ResolveStats struct {
	Resolved  int `json:"resolved"`
	ByCiteKey int `json:"resolved_by_cite_key"`
	ByDOI     int `json:"resolved_by_doi"`
	ByArXiv   int `json:"resolved_by_arxiv"`
	ByACL     int `json:"resolved_by_acl"`
	ByURL     int `json:"resolved_by_url"`
	ByTitle   int `json:"resolved_by_title"`
	Remaining int `json:"remaining"`
}

var nonWordRE = regexp.MustCompile(`[^\w\s]`)
var spaceRE = regexp.MustCompile(`\s+`)

// NormalizeTitle prepares a title for matching: lowercase, strip punctuation,
// collapse whitespace.
func NormalizeTitle(title string) string {
	t := strings.ToLower(title)
	t = nonWordRE.ReplaceAllString(t, "")
	return strings.TrimSpace(spaceRE.ReplaceAllString(t, " "))
}

// TitleSimilarity computes word-set Jaccard similarity between two
// normalized titles.
func TitleSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// Resolve attempts to bind every unresolved edge to a document, trying
// strategies in fixed priority order: cite key, DOI, arXiv ID, ACL ID,
// source URL, exact normalized title, then fuzzy title match. A candidate
// equal to the edge's own source is rejected and the edge stays unresolved.
func Resolve(db *storage.DB, opts Options) (*ResolveStats, error) {
	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	unresolved, err := db.ListUnresolvedEdges()
	if err != nil {
		return nil, fmt.Errorf("loading unresolved citations: %w", err)
	}

	// Prebuild the title index over active documents for the fallbacks.
	active, err := db.ListActiveDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading active documents: %w", err)
	}
	titleIndex := make(map[string]int64, len(active))
	for _, doc := range active {
		if doc.Title != "" {
			titleIndex[NormalizeTitle(doc.Title)] = doc.ID
		}
	}

	stats := &ResolveStats{}
	for _, e := range unresolved {
		docID, method, err := resolveEdge(db, &e, titleIndex, threshold)
		if err != nil {
			return nil, err
		}

		// No match, or cycle guard rejected the candidate.
		if docID == 0 || docID == e.SrcID {
			stats.Remaining++
			continue
		}

		if err := db.SetEdgeDestination(e.ID, docID); err != nil {
			return nil, fmt.Errorf("resolving citation %d: %w", e.ID, err)
		}
		stats.Resolved++
		switch method {
		case "cite_key":
			stats.ByCiteKey++
		case "doi":
			stats.ByDOI++
		case "arxiv":
			stats.ByArXiv++
		case "acl":
			stats.ByACL++
		case "url":
			stats.ByURL++
		case "title":
			stats.ByTitle++
		}
	}

	return stats, nil
}

// resolveEdge tries each strategy in priority order and returns the first hit.
func resolveEdge(db *storage.DB, e *edge.Edge, titleIndex map[string]int64, threshold float64) (int64, string, error) {
	var ids extract.Entry
	if e.RawCite != "" {
		ids = extract.ParseIdentifiers(e.RawCite)
	}

	// 1. Cite key.
	if e.DstKey != "" {
		doc, err := db.GetDocumentByCiteKey(e.DstKey)
		if err != nil && err != storage.ErrNotFound {
			return 0, "", err
		}
		if doc != nil {
			return doc.ID, "cite_key", nil
		}
	}

	// 2. DOI, trying both the parsed candidate and the dst key as a DOI.
	if id, err := lookupID(db, document.IDTypeDOI, ids.DOI, e.DstKey); err != nil {
		return 0, "", err
	} else if id != 0 {
		return id, "doi", nil
	}

	// 3. arXiv, same dual attempt.
	if id, err := lookupID(db, document.IDTypeArXiv, ids.ArXiv, e.DstKey); err != nil {
		return 0, "", err
	} else if id != 0 {
		return id, "arxiv", nil
	}

	// 4. ACL Anthology ID.
	if id, err := lookupID(db, document.IDTypeACL, ids.ACLID, ""); err != nil {
		return 0, "", err
	} else if id != 0 {
		return id, "acl", nil
	}

	// 5. URL against canonical source URLs.
	if ids.URL != "" {
		doc, err := db.GetDocumentBySourceURL(ids.URL)
		if err != nil && err != storage.ErrNotFound {
			return 0, "", err
		}
		if doc != nil {
			return doc.ID, "url", nil
		}
	}

	// 6 & 7. Title: exact normalized match, then single best fuzzy candidate
	// strictly above the threshold.
	if ids.TitleGuess != "" {
		guess := NormalizeTitle(ids.TitleGuess)
		if guess != "" {
			if id, ok := titleIndex[guess]; ok {
				return id, "title", nil
			}

			bestSim := 0.0
			var bestID int64
			for normTitle, id := range titleIndex {
				if sim := TitleSimilarity(guess, normTitle); sim > bestSim {
					bestSim = sim
					bestID = id
				}
			}
			if bestSim > threshold && bestID != 0 {
				return bestID, "title", nil
			}
		}
	}

	return 0, "", nil
}

// lookupID finds a document by external identifier, trying the parsed value
// first and then the edge's best-guess key as the same identifier type.
func lookupID(db *storage.DB, idType, parsed, dstKey string) (int64, error) {
	for _, value := range []string{parsed, dstKey} {
		if value == "" {
			continue
		}
		id, found, err := db.FindDocumentIDByExternalID(idType, value)
		if err != nil {
			return 0, err
		}
		if found {
			return id, nil
		}
	}
	return 0, nil
}
