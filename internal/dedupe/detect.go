// Package dedupe proposes duplicate document pairs for merging.
package dedupe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/storage"
)

// DefaultSimilarityThreshold is the minimum semantic similarity score for a
// pair to be proposed. A neighbor must score strictly above it.
const DefaultSimilarityThreshold = 0.95

// similarityNeighbors is how many nearest neighbors to inspect per document.
const similarityNeighbors = 3

// Confidence levels for the deterministic strategies.
const (
	confidenceExactID      = 1.0
	confidenceCompositeKey = 0.9
)

// Match is a similarity-provider nearest neighbor.
type Match struct {
	DocumentID int64   `json:"id"`
	Score      float64 `json:"score"`
}

// SimilarityProvider returns ranked nearest neighbors for free text.
// It may be slow or fail; a failure skips the semantic strategy only.
type SimilarityProvider interface {
	Similar(ctx context.Context, text string, limit int) ([]Match, error)
}

// Pair is a proposed duplicate, canonicalized so AID < BID.
type Pair struct {
	AID        int64   `json:"a_id"`
	BID        int64   `json:"b_id"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
	Details    string  `json:"details,omitempty"`
}

// Options configures a detection pass.
type Options struct {
	// SimilarityThreshold overrides DefaultSimilarityThreshold when > 0.
	SimilarityThreshold float64
}

// Detect scans all active documents and proposes duplicate pairs using three
// independent strategies: exact external-identifier collision, composite
// (title, year, first author) key, and semantic similarity. Results are
// unioned per canonical pair and sorted by confidence descending. A nil or
// failing similarity provider skips that strategy without failing the scan.
func Detect(ctx context.Context, db *storage.DB, sim SimilarityProvider, opts Options) ([]Pair, error) {
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	docs, err := db.ListActiveDocuments()
	if err != nil {
		return nil, fmt.Errorf("loading active documents: %w", err)
	}

	seen := make(map[[2]int64]bool)
	var pairs []Pair
	addPair := func(aID, bID int64, confidence float64, method, details string) {
		if aID == bID {
			return
		}
		if aID > bID {
			aID, bID = bID, aID
		}
		key := [2]int64{aID, bID}
		if seen[key] {
			return
		}
		seen[key] = true
		pairs = append(pairs, Pair{AID: aID, BID: bID, Confidence: confidence, Method: method, Details: details})
	}

	if err := detectByExternalID(db, addPair); err != nil {
		return nil, err
	}
	detectByCompositeKey(docs, addPair)
	detectBySimilarity(ctx, docs, sim, threshold, addPair)

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Confidence > pairs[j].Confidence
	})
	return pairs, nil
}

// detectByExternalID finds distinct documents sharing an identifier pair.
func detectByExternalID(db *storage.DB, addPair func(int64, int64, float64, string, string)) error {
	allIDs, err := db.ListExternalIDs()
	if err != nil {
		return fmt.Errorf("loading external ids: %w", err)
	}

	groups := make(map[[2]string][]int64)
	for _, eid := range allIDs {
		key := [2]string{eid.Type, eid.Value}
		groups[key] = append(groups[key], eid.DocumentID)
	}

	for key, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		unique := uniqueIDs(ids)
		for i := 0; i < len(unique); i++ {
			for j := i + 1; j < len(unique); j++ {
				addPair(unique[i], unique[j], confidenceExactID,
					"exact_"+key[0], key[0]+"="+key[1])
			}
		}
	}
	return nil
}

// detectByCompositeKey groups documents by (lowercased title, year,
// normalized first author).
func detectByCompositeKey(docs []document.Document, addPair func(int64, int64, float64, string, string)) {
	groups := make(map[string][]int64)
	for _, doc := range docs {
		if doc.Title == "" || doc.Year == 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(doc.Title)) + ":" +
			strconv.Itoa(doc.Year) + ":" + normalizeAuthor(doc.FirstAuthor())
		groups[key] = append(groups[key], doc.ID)
	}

	for key, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		details := key
		if len(details) > 80 {
			details = details[:80]
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				addPair(ids[i], ids[j], confidenceCompositeKey,
					"title_year_author", "key="+details)
			}
		}
	}
}

// detectBySimilarity queries the similarity collaborator per document and
// proposes neighbors strictly above the threshold. The first provider error
// abandons the strategy; earlier strategies' pairs are kept.
func detectBySimilarity(ctx context.Context, docs []document.Document, sim SimilarityProvider, threshold float64, addPair func(int64, int64, float64, string, string)) {
	if sim == nil {
		return
	}

	for _, doc := range docs {
		queryText := strings.TrimSpace(doc.Title + " " + doc.Abstract)
		if queryText == "" {
			continue
		}

		matches, err := sim.Similar(ctx, queryText, similarityNeighbors)
		if err != nil {
			return
		}
		for _, m := range matches {
			if m.DocumentID != doc.ID && m.Score > threshold {
				addPair(doc.ID, m.DocumentID, m.Score, "similarity",
					fmt.Sprintf("score=%.4f", m.Score))
			}
		}
	}
}

var authorSpaceRE = regexp.MustCompile(`\s+`)
var authorPunctRE = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// normalizeAuthor normalizes an author name for composite-key matching.
func normalizeAuthor(name string) string {
	n := strings.ToLower(name)
	n = authorPunctRE.ReplaceAllString(n, "")
	return strings.TrimSpace(authorSpaceRE.ReplaceAllString(n, " "))
}

func uniqueIDs(ids []int64) []int64 {
	set := make(map[int64]bool, len(ids))
	var out []int64
	for _, id := range ids {
		if !set[id] {
			set[id] = true
			out = append(out, id)
		}
	}
	return out
}
