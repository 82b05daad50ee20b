package domain

import "errors"

var (
	// ErrEmptyCase signals a diagnostic request without case text.
	ErrEmptyCase = errors.New("empty case text")
	// ErrNoRoles signals that no specialist roles could be resolved for a request.
	ErrNoRoles = errors.New("no specialist roles resolved")
	// ErrLLMProviderError signals a language-model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
