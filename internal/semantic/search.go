package semantic

import (
	"fmt"
	"math"
	"sort"
)

// Result is a single similarity search hit.
type Result struct {
	DocumentID int64   `json:"document_id"`
	Score      float32 `json:"score"`
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Search returns the documents most similar to the given document, ranked by
// cosine similarity. The document itself is excluded from the results.
func (idx *Index) Search(documentID int64, limit int) ([]Result, error) {
	query, ok := idx.Embeddings[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: document %d", ErrDocumentNotIndexed, documentID)
	}
	return idx.SearchVector(query, limit, documentID)
}

// SearchVector ranks indexed documents by cosine similarity to a query
// vector. Documents listed in exclude are omitted from the results.
func (idx *Index) SearchVector(query []float32, limit int, exclude ...int64) ([]Result, error) {
	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	results := make([]Result, 0, len(idx.Embeddings))
	for id, emb := range idx.Embeddings {
		if excluded[id] {
			continue
		}
		score, err := CosineSimilarity(query, emb)
		if err != nil {
			return nil, fmt.Errorf("comparing document %d: %w", id, err)
		}
		results = append(results, Result{DocumentID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}
