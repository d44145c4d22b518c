package app

import (
	"context"
	"fmt"
	"strings"

	"ragapi/internal/model"
)

const (
	defaultTopK = 5
	maxTopK     = 50
)

// SearchService embeds a query with the same model used at ingestion time
// and ranks indexed chunks by cosine similarity.
type SearchService struct {
	embedder  Embedder
	index     VectorIndex
	dimension int
}

func NewSearchService(embedder Embedder, index VectorIndex, dimension int) *SearchService {
	return &SearchService{
		embedder:  embedder,
		index:     index,
		dimension: dimension,
	}
}

// Search returns up to topK chunks ordered by descending similarity.
// An empty index or zero matches yields an empty slice, not an error.
func (s *SearchService) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]model.ChunkResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	hits, err := s.index.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, err
	}

	results := make([]model.ChunkResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, model.ChunkResult{
			ChunkID: hit.ChunkID,
			Text:    hit.Text,
			Metadata: model.ChunkMetadata{
				Filename:   hit.Filename,
				DocType:    hit.DocType,
				ChunkIndex: hit.ChunkIndex,
			},
			Score: hit.Score,
		})
	}
	return results, nil
}
