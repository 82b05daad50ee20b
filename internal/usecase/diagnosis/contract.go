package diagnosis

import (
	"context"
	"time"

	"github.com/consilium-ai/consilium/internal/domain"
)

// Generator is the language-model capability.
type Generator interface {
	Generate(ctx context.Context, prompt, role string) (string, error)
}

// Retriever supplies fused supporting knowledge for one job's case text.
type Retriever interface {
	Retrieve(ctx context.Context, contextText string) domain.FusedKnowledge
}

// ResultCache is the content-addressed report cache. Lookup misses on any
// backend trouble; Store is fire-and-forget.
type ResultCache interface {
	Lookup(ctx context.Context, key string) (domain.AggregatedReport, bool)
	Store(ctx context.Context, key string, report domain.AggregatedReport, ttl time.Duration)
}

// Triager narrows the consult to the roles relevant to the case.
// Nil disables triage; requests without roles then use the configured defaults.
type Triager interface {
	Select(ctx context.Context, caseText string, available []string) []string
}
