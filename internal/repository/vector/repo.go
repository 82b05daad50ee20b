package vector

import (
	"context"
	"fmt"

	"github.com/consilium-ai/consilium/internal/db"
	"github.com/consilium-ai/consilium/internal/domain"
)

const (
	indexName    = "consilium-knowledge"
	docKeySuffix = "vec:doc:"
)

// embedder vectorizes text into embeddings.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// store is the consumer interface for vector storage (ISP).
type store interface {
	EnsureVectorIndex(ctx context.Context, def *db.VectorIndex) error
	AddVectorDoc(ctx context.Context, key, text string, vector []float32) error
	SearchKNN(ctx context.Context, index string, vector []float32, k int) ([]db.VectorHit, error)
}

// Repository is the vector retrieval channel: KNN search over embedded
// knowledge fragments.
type Repository struct {
	store      store
	embed      embedder
	prefix     string
	dimensions int
}

// New creates a vector knowledge repository.
func New(s store, embed embedder, keyPrefix string, dimensions int) *Repository {
	return &Repository{store: s, embed: embed, prefix: keyPrefix, dimensions: dimensions}
}

// EnsureIndex creates the backing vector index if missing. Call once at startup.
func (r *Repository) EnsureIndex(ctx context.Context) error {
	def := &db.VectorIndex{
		Name:       indexName,
		Prefix:     r.prefix + docKeySuffix,
		Dimensions: r.dimensions,
	}
	if err := r.store.EnsureVectorIndex(ctx, def); err != nil {
		return fmt.Errorf("ensure vector index: %w", err)
	}
	return nil
}

// Add embeds and stores one knowledge fragment.
func (r *Repository) Add(ctx context.Context, id, text string) error {
	vec, err := r.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed fragment: %w", err)
	}
	if err := r.store.AddVectorDoc(ctx, r.prefix+docKeySuffix+id, text, vec); err != nil {
		return fmt.Errorf("store fragment: %w", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest fragments as
// vector-tagged snippets. Cosine distance is converted to a similarity score.
func (r *Repository) Search(ctx context.Context, query string, k int) ([]domain.KnowledgeSnippet, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.store.SearchKNN(ctx, indexName, vec, k)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	snippets := make([]domain.KnowledgeSnippet, 0, len(hits))
	for _, hit := range hits {
		score := 1 - hit.Distance
		if score < 0 {
			score = 0
		}
		snippets = append(snippets, domain.KnowledgeSnippet{
			Text:       hit.Text,
			Channel:    domain.ChannelVector,
			Score:      score,
			Provenance: hit.Key,
		})
	}
	return snippets, nil
}
