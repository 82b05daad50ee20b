package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/consilium-ai/consilium/internal/db"
)

// EnsureVectorIndex creates the FT vector index if it does not exist yet.
func (s *Store) EnsureVectorIndex(ctx context.Context, def *db.VectorIndex) error {
	if def.Name == "" || def.Prefix == "" {
		return fmt.Errorf("index name and prefix are required")
	}
	if def.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive")
	}

	args := []string{
		def.Name, "ON", "HASH", "PREFIX", "1", def.Prefix, "SCHEMA",
		"text", "TEXT",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(def.Dimensions),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// AddVectorDoc stores a searchable document hash with its embedding blob.
func (s *Store) AddVectorDoc(ctx context.Context, key, text string, vector []float32) error {
	cmd := s.b().Hset().Key(key).FieldValue().
		FieldValue("text", text).
		FieldValue("vector", vectorToBlob(vector)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(
	ctx context.Context, index string, vector []float32, k int,
) ([]db.VectorHit, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB AS dist]", k)
	args := []string{
		index, queryStr,
		"RETURN", "2", "text", "dist",
		"SORTBY", "dist",
		"PARAMS", "2", "BLOB", vectorToBlob(vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...]
func parseKNNResult(raw []rueidis.RedisMessage) ([]db.VectorHit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var hits []db.VectorHit
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, fmt.Errorf("parse document key: %w", err)
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse document fields: %w", err)
		}

		hit := db.VectorHit{Key: key}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].ToString()
			value, _ := fields[j+1].ToString()
			switch name {
			case "text":
				hit.Text = value
			case "dist":
				if d, perr := strconv.ParseFloat(value, 64); perr == nil {
					hit.Distance = d
				}
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func vectorToBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}
