// Package graph answers bounded local subgraph queries over the citation set.
package graph

import (
	"fmt"

	"github.com/matsen/citegraph/internal/edge"
	"github.com/matsen/citegraph/internal/storage"
)

// MaxRawCiteDisplay bounds the raw mention text included in query results.
const MaxRawCiteDisplay = 200

// NodeInfo is the document summary carried in subgraph results.
type NodeInfo struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	CiteKey string `json:"cite_key,omitempty"`
}

// UnresolvedRef is an outgoing mention whose destination is unknown.
type UnresolvedRef struct {
	CitationID int64              `json:"citation_id"`
	RawCite    string             `json:"raw_cite"`
	DstKey     string             `json:"dst_key,omitempty"`
	Origin     string             `json:"origin"`
	Unmatched  *edge.UnmatchedRef `json:"unmatched,omitempty"`
}

// EdgePair is one resolved edge in the subgraph.
type EdgePair struct {
	Src int64 `json:"src"`
	Dst int64 `json:"dst"`
}

// Subgraph is the local citation neighborhood of a center document.
type Subgraph struct {
	Center         NodeInfo        `json:"center"`
	Cites          []NodeInfo      `json:"cites"`
	CitedBy        []NodeInfo      `json:"cited_by"`
	UnresolvedRefs []UnresolvedRef `json:"unresolved_refs"`
	Edges          []EdgePair      `json:"edges"`
}

// Query walks the citation edges around a center document. Depth 1 collects
// direct neighbors; depth 2 additionally expands the direct edges of those
// neighbors only, never the whole graph transitively. Returns
// storage.ErrNotFound if the center does not exist.
func Query(db *storage.DB, centerID int64, depth int) (*Subgraph, error) {
	center, err := db.GetDocument(centerID)
	if err != nil {
		return nil, err
	}

	sub := &Subgraph{
		Center:         NodeInfo{ID: center.ID, Title: center.Title, Year: center.Year, CiteKey: center.CiteKey},
		Cites:          []NodeInfo{},
		CitedBy:        []NodeInfo{},
		UnresolvedRefs: []UnresolvedRef{},
		Edges:          []EdgePair{},
	}

	seen := map[int64]bool{centerID: true}

	// Outgoing edges: resolved become cites, the rest are surfaced raw.
	outgoing, err := db.EdgesBySource(centerID)
	if err != nil {
		return nil, fmt.Errorf("loading outgoing citations: %w", err)
	}
	for _, e := range outgoing {
		if e.Resolved() {
			if node, ok := lookupNode(db, e.DstID); ok {
				sub.Cites = append(sub.Cites, node)
				sub.Edges = append(sub.Edges, EdgePair{Src: centerID, Dst: e.DstID})
				seen[e.DstID] = true
			}
			continue
		}

		raw := edge.Truncate(e.RawCite, MaxRawCiteDisplay)
		sub.UnresolvedRefs = append(sub.UnresolvedRefs, UnresolvedRef{
			CitationID: e.ID,
			RawCite:    raw,
			DstKey:     e.DstKey,
			Origin:     e.Origin,
			Unmatched:  e.Unmatched,
		})
	}

	// Incoming edges.
	incoming, err := db.EdgesByTarget(centerID)
	if err != nil {
		return nil, fmt.Errorf("loading incoming citations: %w", err)
	}
	for _, e := range incoming {
		if node, ok := lookupNode(db, e.SrcID); ok {
			sub.CitedBy = append(sub.CitedBy, node)
			sub.Edges = append(sub.Edges, EdgePair{Src: e.SrcID, Dst: centerID})
			seen[e.SrcID] = true
		}
	}

	if depth >= 2 {
		if err := expandNeighbors(db, sub, seen, centerID); err != nil {
			return nil, err
		}
	}

	return sub, nil
}

// expandNeighbors adds the direct edges of the depth-1 neighbors. Only the
// nodes already discovered are expanded, bounding the result size.
func expandNeighbors(db *storage.DB, sub *Subgraph, seen map[int64]bool, centerID int64) error {
	hopIDs := make([]int64, 0, len(sub.Cites)+len(sub.CitedBy))
	for _, n := range sub.Cites {
		if n.ID != centerID {
			hopIDs = append(hopIDs, n.ID)
		}
	}
	for _, n := range sub.CitedBy {
		if n.ID != centerID {
			hopIDs = append(hopIDs, n.ID)
		}
	}

	for _, hopID := range hopIDs {
		outgoing, err := db.EdgesBySource(hopID)
		if err != nil {
			return fmt.Errorf("expanding citations of %d: %w", hopID, err)
		}
		for _, e := range outgoing {
			if !e.Resolved() || seen[e.DstID] {
				continue
			}
			if node, ok := lookupNode(db, e.DstID); ok {
				sub.Cites = append(sub.Cites, node)
				sub.Edges = append(sub.Edges, EdgePair{Src: hopID, Dst: e.DstID})
				seen[e.DstID] = true
			}
		}

		incoming, err := db.EdgesByTarget(hopID)
		if err != nil {
			return fmt.Errorf("expanding citers of %d: %w", hopID, err)
		}
		for _, e := range incoming {
			if seen[e.SrcID] {
				continue
			}
			if node, ok := lookupNode(db, e.SrcID); ok {
				sub.CitedBy = append(sub.CitedBy, node)
				sub.Edges = append(sub.Edges, EdgePair{Src: e.SrcID, Dst: hopID})
				seen[e.SrcID] = true
			}
		}
	}

	return nil
}

// lookupNode fetches a document summary, tolerating dangling references.
func lookupNode(db *storage.DB, id int64) (NodeInfo, bool) {
	doc, err := db.GetDocument(id)
	if err != nil || doc == nil {
		return NodeInfo{}, false
	}
	return NodeInfo{ID: doc.ID, Title: doc.Title, Year: doc.Year, CiteKey: doc.CiteKey}, true
}
