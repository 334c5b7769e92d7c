package cite

import (
	"context"
	"fmt"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/storage"
)

// CandidateRef is one reference returned by a metadata service for a source
// document, carrying whatever identifiers the upstream service knows.
type CandidateRef struct {
	ProviderID  string            `json:"provider_id,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	Title       string            `json:"title,omitempty"`
}

// ReferenceProvider fetches candidate reference lists from an external
// bibliographic service. An empty result means "no data", not an error;
// errors are tolerated and counted as misses by the builder.
type ReferenceProvider interface {
	References(ctx context.Context, ids map[string]string, title string) ([]CandidateRef, error)
}

// BuildStats reports a metadata-driven citation build.
type BuildStats struct {
	Processed      int `json:"processed"`
	CitationsAdded int `json:"citations_added"`
	APIHits        int `json:"api_hits"`
	APIMisses      int `json:"api_misses"`
	Skipped        int `json:"skipped"`
}

// queryIDPreference is the order in which a document's identifiers are
// offered to the provider and returned references are matched back.
var queryIDPreference = []string{
	document.IDTypeDOI,
	document.IDTypeArXiv,
	document.IDTypeACL,
	document.IDTypeS2,
}

// BuildFromMetadata creates citation edges from provider-supplied reference
// lists. Matched references become resolved edges; unmatched ones are kept
// as unresolved edges carrying their identifiers for later reconciliation.
// Repeated runs add nothing new (per-source hash dedup, metadata origin).
func BuildFromMetadata(ctx context.Context, db *storage.DB, provider ReferenceProvider, docs []document.Document, limit int) (*BuildStats, error) {
	stats := &BuildStats{}

	if docs == nil {
		var err error
		docs, err = db.ListActiveDocuments()
		if err != nil {
			return nil, fmt.Errorf("loading active documents: %w", err)
		}
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	// Lookup index: (id_type, id_value) -> document ID.
	allIDs, err := db.ListExternalIDs()
	if err != nil {
		return nil, fmt.Errorf("loading external ids: %w", err)
	}
	idLookup := make(map[[2]string]int64, len(allIDs))
	for _, eid := range allIDs {
		idLookup[[2]string{eid.Type, eid.Value}] = eid.DocumentID
	}

	for _, doc := range docs {
		eids, err := db.ExternalIDsForDocument(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("loading ids for document %d: %w", doc.ID, err)
		}
		queryIDs := make(map[string]string, len(eids))
		for _, eid := range eids {
			queryIDs[eid.Type] = eid.Value
		}

		hasUsableID := false
		for _, t := range queryIDPreference {
			if queryIDs[t] != "" {
				hasUsableID = true
				break
			}
		}
		if !hasUsableID && doc.Title == "" {
			stats.Skipped++
			continue
		}

		existing, err := db.MentionHashes(doc.ID, edge.OriginMetadata)
		if err != nil {
			return nil, fmt.Errorf("loading mention hashes for document %d: %w", doc.ID, err)
		}

		// Provider failure is no signal from this source, not a batch error.
		refs, err := provider.References(ctx, queryIDs, doc.Title)
		if err != nil || len(refs) == 0 {
			stats.APIMisses++
			stats.Processed++
			continue
		}
		stats.APIHits++

		for _, ref := range refs {
			matchedID := matchReference(ref, idLookup)
			if matchedID == doc.ID {
				continue // self-citation
			}

			rawText := ref.Title
			if rawText == "" {
				rawText = ref.ProviderID
			}
			dstKey := ref.ExternalIDs[document.IDTypeDOI]
			if dstKey == "" {
				dstKey = ref.ExternalIDs[document.IDTypeArXiv]
			}

			hash := edge.MetadataHash(doc.ID, matchedID, ref.ProviderID)
			if existing[hash] {
				continue
			}

			e := edge.Edge{
				SrcID:    doc.ID,
				DstID:    matchedID,
				RawCite:  edge.TruncateRawCite(rawText),
				DstKey:   dstKey,
				Origin:   edge.OriginMetadata,
				CiteHash: hash,
			}
			if matchedID == 0 {
				e.Unmatched = &edge.UnmatchedRef{
					ProviderID:  ref.ProviderID,
					ExternalIDs: ref.ExternalIDs,
					Title:       ref.Title,
				}
			}

			inserted, err := db.InsertEdge(&e)
			if err != nil {
				return nil, fmt.Errorf("inserting metadata citation for document %d: %w", doc.ID, err)
			}
			if inserted {
				existing[hash] = true
				stats.CitationsAdded++
			}
		}

		stats.Processed++
	}

	return stats, nil
}

// matchReference matches a provider reference against the library's
// identifier index, trying DOI, arXiv, ACL, then the provider's numeric ID.
func matchReference(ref CandidateRef, idLookup map[[2]string]int64) int64 {
	for _, idType := range queryIDPreference {
		value := ref.ExternalIDs[idType]
		if value == "" {
			continue
		}
		if id, ok := idLookup[[2]string{idType, value}]; ok {
			return id
		}
	}
	return 0
}
