package diagnosis

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/metrics"
)

func init() {
	metrics.RegisterDiagnosisMetrics()
}

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt, role string) (string, error)

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (m *mockGenerator) Generate(ctx context.Context, prompt, role string) (string, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.generateFn != nil {
		return m.generateFn(ctx, prompt, role)
	}
	return "assessment for " + role, nil
}

func (m *mockGenerator) observedMax() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

type mockRetriever struct {
	retrieveFn func(ctx context.Context, contextText string) domain.FusedKnowledge
}

func (m *mockRetriever) Retrieve(ctx context.Context, contextText string) domain.FusedKnowledge {
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, contextText)
	}
	return nil
}

type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.AggregatedReport
	stores  int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]domain.AggregatedReport)}
}

func (m *mockCache) Lookup(_ context.Context, key string) (domain.AggregatedReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.entries[key]
	if ok {
		report.FromCache = true
	}
	return report, ok
}

func (m *mockCache) Store(_ context.Context, key string, report domain.AggregatedReport, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = report
	m.stores++
}

func (m *mockCache) storeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}

type mockTriager struct {
	selectFn func(ctx context.Context, caseText string, available []string) []string
}

func (m *mockTriager) Select(ctx context.Context, caseText string, available []string) []string {
	if m.selectFn != nil {
		return m.selectFn(ctx, caseText, available)
	}
	return available
}

func newTestService(t *testing.T, gen Generator, cache ResultCache, opts Options) *Service {
	t.Helper()
	if opts.MaxConcurrentJobs == 0 {
		opts.MaxConcurrentJobs = 5
	}
	if opts.JobTimeout == 0 {
		opts.JobTimeout = time.Second
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.RetrievalVersion == "" {
		opts.RetrievalVersion = "v1"
	}
	return New(gen, &mockRetriever{}, cache, nil, opts, zap.NewNop())
}
