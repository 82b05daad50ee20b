package retrieval

import (
	"context"

	"github.com/consilium-ai/consilium/internal/domain"
)

// Generator is the language-model capability used for entity extraction.
type Generator interface {
	Generate(ctx context.Context, prompt, role string) (string, error)
}

// VectorSearcher is the vector retrieval channel.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.KnowledgeSnippet, error)
}

// GraphQuerier is the graph retrieval channel. The orchestration passes nil
// when the channel is disabled by configuration; absence is a degradation
// path, not an error path.
type GraphQuerier interface {
	Query(ctx context.Context, entities domain.EntitySet, k int) ([]domain.KnowledgeSnippet, error)
}
