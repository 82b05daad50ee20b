package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces. Consumers should
// depend on the narrow sub-interfaces they actually use.
type Store interface {
	Pinger
	KVStore
	HashStore
	SetStore
	VectorStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// HashStore provides hash-based operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// SetStore provides set membership operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// VectorIndex describes an FT vector index over hash documents.
type VectorIndex struct {
	Name       string
	Prefix     string
	Dimensions int
}

// VectorHit is one KNN search match. Distance is the raw cosine distance
// reported by the backend (lower is closer).
type VectorHit struct {
	Key      string
	Text     string
	Distance float64
}

// VectorStore provides vector index lifecycle and KNN search.
type VectorStore interface {
	EnsureVectorIndex(ctx context.Context, def *VectorIndex) error
	AddVectorDoc(ctx context.Context, key, text string, vector []float32) error
	SearchKNN(ctx context.Context, index string, vector []float32, k int) ([]VectorHit, error)
}
