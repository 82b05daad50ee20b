package retrieval

import (
	"context"

	"github.com/consilium-ai/consilium/internal/domain"
)

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt, role string) (string, error)
	calls      int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt, role string) (string, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt, role)
	}
	return "", nil
}

type mockVector struct {
	searchFn func(ctx context.Context, query string, k int) ([]domain.KnowledgeSnippet, error)
}

func (m *mockVector) Search(ctx context.Context, query string, k int) ([]domain.KnowledgeSnippet, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, k)
	}
	return nil, nil
}

type mockGraph struct {
	queryFn func(ctx context.Context, entities domain.EntitySet, k int) ([]domain.KnowledgeSnippet, error)
	calls   int
}

func (m *mockGraph) Query(ctx context.Context, entities domain.EntitySet, k int) ([]domain.KnowledgeSnippet, error) {
	m.calls++
	if m.queryFn != nil {
		return m.queryFn(ctx, entities, k)
	}
	return nil, nil
}
