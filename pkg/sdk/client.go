package consilium

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/db"
	dbRedis "github.com/consilium-ai/consilium/internal/db/redis"
	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/repository/diagcache"
	"github.com/consilium-ai/consilium/internal/repository/knowledge"
	vectorrepo "github.com/consilium-ai/consilium/internal/repository/vector"
	openaiTransport "github.com/consilium-ai/consilium/internal/transport/openai"
	"github.com/consilium-ai/consilium/internal/usecase/diagnosis"
	"github.com/consilium-ai/consilium/internal/usecase/retrieval"
	"github.com/consilium-ai/consilium/internal/usecase/triage"
)

const defaultReadinessTimeout = 10 * time.Second

// LLM is the language-model capability the client runs on: chat generation
// for the specialist agents and embeddings for vector retrieval.
type LLM interface {
	Generate(ctx context.Context, prompt, role string) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Report is the aggregated diagnosis output.
type Report = domain.AggregatedReport

// JobResult is one specialist's terminal result within a report.
type JobResult = domain.AgentJobResult

// Disease is one knowledge-graph node.
type Disease = knowledge.Disease

// CacheStats holds result cache counters.
type CacheStats = diagcache.Stats

// Sentinel errors re-exported from the domain layer. Use errors.Is() to check.
var (
	ErrEmptyCase        = domain.ErrEmptyCase
	ErrNoRoles          = domain.ErrNoRoles
	ErrLLMProviderError = domain.ErrLLMProviderError
)

// diagnoseUseCase allows substituting the orchestrator in tests.
type diagnoseUseCase interface {
	Diagnose(ctx context.Context, req domain.DiagnosticRequest) (domain.AggregatedReport, error)
}

// Client is the consilium SDK entry point.
type Client struct {
	store     db.Store
	diagnosis diagnoseUseCase
	cache     *diagcache.Cache
	diseases  *knowledge.Repository
	vector    *vectorrepo.Repository
}

// New creates a consilium Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		model:          "gpt-4o-mini",
		embeddingModel: "text-embedding-3-small",
		dimensions:     1536,
		maxConcurrent:  5,
		jobTimeout:     30 * time.Second,
		cacheTTL:       time.Hour,
		cacheEnabled:   true,
		graphEnabled:   true,
		keyPrefix:      "consilium:",
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("consilium: database address required (use WithRedis)")
	}
	if cfg.llm == nil && cfg.apiKey == "" {
		return nil, errors.New("consilium: language model required (use WithOpenAI or WithLLM)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("consilium: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("consilium: database not ready: %w", err)
	}

	return wireClient(ctx, store, cfg)
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	llm := cfg.llm
	if llm == nil {
		llm = openaiTransport.NewClient(&openaiTransport.Config{
			APIKey:         cfg.apiKey,
			BaseURL:        cfg.baseURL,
			Model:          cfg.model,
			EmbeddingModel: cfg.embeddingModel,
			Dimensions:     cfg.dimensions,
			MaxRetries:     3,
			Logger:         cfg.logger,
		})
	}

	vectorRepo := vectorrepo.New(store, llm, cfg.keyPrefix, cfg.dimensions)
	if err := vectorRepo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("consilium: ensure vector index: %w", err)
	}
	diseaseRepo := knowledge.New(store, cfg.keyPrefix)
	cache := diagcache.New(store, cfg.keyPrefix, cfg.cacheEnabled, 5*time.Minute, nil, cfg.logger)

	var graph retrieval.GraphQuerier
	if cfg.graphEnabled {
		graph = diseaseRepo
	}
	retriever := retrieval.New(llm, vectorRepo, graph, retrieval.Options{
		VectorTopK:  3,
		GraphTopK:   5,
		MaxSnippets: 10,
	}, cfg.logger)

	var triager diagnosis.Triager
	if cfg.triageEnabled {
		triager = triage.New(llm, cfg.logger)
	}

	orchestrator := diagnosis.New(llm, retriever, cache, triager, diagnosis.Options{
		MaxConcurrentJobs: cfg.maxConcurrent,
		JobTimeout:        cfg.jobTimeout,
		CacheTTL:          cfg.cacheTTL,
		RetrievalVersion:  "v1",
		DefaultRoles:      cfg.roles,
		SummaryEnabled:    cfg.summaryEnabled,
	}, cfg.logger)

	return &Client{
		store:     store,
		diagnosis: orchestrator,
		cache:     cache,
		diseases:  diseaseRepo,
		vector:    vectorRepo,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Diagnose runs one full consult over the case text. roles may be empty to
// use the configured defaults (with triage when enabled).
func (c *Client) Diagnose(ctx context.Context, caseText string, roles ...string) (Report, error) {
	return c.diagnosis.Diagnose(ctx, domain.DiagnosticRequest{
		CaseText: caseText,
		Roles:    roles,
	})
}

// UpsertDisease stores a knowledge-graph node and its symptom edges.
func (c *Client) UpsertDisease(ctx context.Context, d Disease) error {
	return c.diseases.Upsert(ctx, d)
}

// AddKnowledge embeds and indexes one free-text knowledge fragment for the
// vector retrieval channel.
func (c *Client) AddKnowledge(ctx context.Context, id, text string) error {
	return c.vector.Add(ctx, id, text)
}

// CacheStats returns result cache counters.
func (c *Client) CacheStats(ctx context.Context) (CacheStats, error) {
	return c.cache.Stats(ctx)
}

// ResetCache removes all cached reports and returns the removed count.
func (c *Client) ResetCache(ctx context.Context) (int, error) {
	return c.cache.Reset(ctx)
}
