package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/matsen/citegraph/internal/document"
	"github.com/matsen/citegraph/internal/embedding"
)

// BuildStats summarizes an index build.
type BuildStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Build creates a fresh index over the given documents using the embedding
// provider. Documents with too little text are skipped; individual embedding
// failures are counted but do not abort the build.
func Build(ctx context.Context, provider embedding.Provider, docs []document.Document) (*Index, BuildStats, error) {
	idx := NewIndex(provider.ModelName(), provider.Dimensions())
	var stats BuildStats

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		text := embeddingText(doc)
		if len(text) < MinTextLength {
			stats.Skipped++
			continue
		}

		emb, err := provider.Embed(ctx, text)
		if err != nil {
			stats.Failed++
			continue
		}
		if err := idx.Add(doc.ID, emb); err != nil {
			return nil, stats, fmt.Errorf("indexing document %d: %w", doc.ID, err)
		}
		stats.Indexed++
	}

	idx.SkippedCount = stats.Skipped
	return idx, stats, nil
}

// embeddingText builds the text embedded for a document: title plus abstract,
// truncated to the model's usable window.
func embeddingText(doc document.Document) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(doc.Title))
	if doc.Abstract != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(doc.Abstract))
	}
	text := sb.String()
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}
	return text
}
