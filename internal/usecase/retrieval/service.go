package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/metrics"
)

// Options holds the retrieval tuning knobs.
type Options struct {
	VectorTopK  int
	GraphTopK   int
	MaxSnippets int
}

// Service is the hybrid retriever: it extracts entities from the context
// text, queries the vector and graph channels concurrently and fuses the
// results. A failing channel degrades to an empty contribution; retrieval
// never fails the job it supports.
type Service struct {
	gen    Generator
	vector VectorSearcher
	graph  GraphQuerier // nil when the graph channel is disabled
	opts   Options
	logger *zap.Logger
}

// New creates a hybrid retriever. graph may be nil to disable that channel.
func New(gen Generator, vector VectorSearcher, graph GraphQuerier, opts Options, logger *zap.Logger) *Service {
	return &Service{gen: gen, vector: vector, graph: graph, opts: opts, logger: logger}
}

// Retrieve runs the hybrid lookup for one job's context text.
func (s *Service) Retrieve(ctx context.Context, contextText string) domain.FusedKnowledge {
	// Entity extraction only feeds the graph channel; skip the LLM round-trip
	// when that channel is off.
	var entities domain.EntitySet
	if s.graph != nil {
		entities = s.extractEntities(ctx, contextText)
	}

	var (
		wg        sync.WaitGroup
		vectorRes []domain.KnowledgeSnippet
		graphRes  []domain.KnowledgeSnippet
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := s.vector.Search(ctx, contextText, s.opts.VectorTopK)
		if err != nil {
			metrics.RetrievalErrorsTotal.WithLabelValues(string(domain.ChannelVector)).Inc()
			s.logger.Warn("Vector channel failed, degrading to empty", zap.Error(err))
			return
		}
		vectorRes = res
	}()

	if s.graph != nil && len(entities) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.graph.Query(ctx, entities, s.opts.GraphTopK)
			if err != nil {
				metrics.RetrievalErrorsTotal.WithLabelValues(string(domain.ChannelGraph)).Inc()
				s.logger.Warn("Graph channel failed, degrading to vector-only", zap.Error(err))
				return
			}
			graphRes = res
		}()
	}

	wg.Wait()

	metrics.RetrievalSnippetsTotal.WithLabelValues(string(domain.ChannelVector)).
		Add(float64(len(vectorRes)))
	metrics.RetrievalSnippetsTotal.WithLabelValues(string(domain.ChannelGraph)).
		Add(float64(len(graphRes)))

	fused := fuse(vectorRes, graphRes, s.opts.MaxSnippets)
	s.logger.Debug("Hybrid retrieval complete",
		zap.Int("vector", len(vectorRes)),
		zap.Int("graph", len(graphRes)),
		zap.Int("fused", len(fused)),
	)
	return fused
}

// FormatContext renders fused knowledge into the reference block prepended to
// an agent prompt: graph snippets first (structured provenance), then vector.
func FormatContext(fused domain.FusedKnowledge) string {
	if len(fused) == 0 {
		return ""
	}

	var graph, vector []domain.KnowledgeSnippet
	for _, s := range fused {
		if s.Channel == domain.ChannelGraph {
			graph = append(graph, s)
		} else {
			vector = append(vector, s)
		}
	}

	var b strings.Builder
	if len(graph) > 0 {
		b.WriteString("=== Knowledge graph matches ===\n")
		for i, s := range graph {
			fmt.Fprintf(&b, "[graph %d] %s\n", i+1, s.Text)
		}
	}
	if len(vector) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("=== Reference documents ===\n")
		for i, s := range vector {
			fmt.Fprintf(&b, "[doc %d] %s\n", i+1, s.Text)
		}
	}
	return b.String()
}
