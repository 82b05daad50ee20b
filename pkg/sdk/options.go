package consilium

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
	dimensions     int

	llm LLM

	roles          []string
	triageEnabled  bool
	summaryEnabled bool
	maxConcurrent  int
	jobTimeout     time.Duration
	cacheTTL       time.Duration
	cacheEnabled   bool
	graphEnabled   bool
	keyPrefix      string

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithOpenAI configures the OpenAI-compatible language model provider.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
	})
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithModels overrides the chat and embedding models.
func WithModels(chat, embedding string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = chat
		c.embeddingModel = embedding
		c.dimensions = dimensions
	})
}

// WithLLM supplies a custom language-model implementation instead of the
// built-in OpenAI transport.
func WithLLM(l LLM) Option {
	return optionFunc(func(c *clientConfig) {
		c.llm = l
	})
}

// WithRoles sets the default specialist roles consulted when a request does
// not name its own.
func WithRoles(roles ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.roles = roles
	})
}

// WithTriage enables model-driven specialist selection over the default roles.
func WithTriage() Option {
	return optionFunc(func(c *clientConfig) {
		c.triageEnabled = true
	})
}

// WithSummary enables the team-lead synthesis over specialist results.
func WithSummary() Option {
	return optionFunc(func(c *clientConfig) {
		c.summaryEnabled = true
	})
}

// WithConcurrency bounds the number of specialist jobs in flight. Default: 5.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConcurrent = n
	})
}

// WithJobTimeout sets the per-specialist deadline. Default: 30s.
func WithJobTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.jobTimeout = d
	})
}

// WithCacheTTL sets the result cache lifetime. Default: 1h.
func WithCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithoutCache disables the result cache.
func WithoutCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEnabled = false
	})
}

// WithoutGraph disables the knowledge-graph retrieval channel.
func WithoutGraph() Option {
	return optionFunc(func(c *clientConfig) {
		c.graphEnabled = false
	})
}

// WithKeyPrefix sets the Redis key namespace. Default: "consilium:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging for client operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
