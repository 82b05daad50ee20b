package retrieval

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
)

const extractorRole = "medical entity extraction"

const extractPromptHeader = `Extract the key medical entities from the text below.

Return ONLY a JSON object of the form:
{"entities": [{"name": "...", "type": "...", "confidence": 0.9}]}

Recognized types: symptom, disease, examination, treatment, department.
Only extract entities that literally appear in the text. If none are found,
return an empty entities array. No text other than the JSON.

Text:
`

// maxExtractInput bounds the text sent to the extractor.
const maxExtractInput = 2000

// extractEntities asks the language model for the entities in the context
// text. Any failure (call error, malformed or empty output) yields an empty
// set: retrieval then proceeds vector-only.
func (s *Service) extractEntities(ctx context.Context, contextText string) domain.EntitySet {
	text := contextText
	if len(text) > maxExtractInput {
		text = text[:maxExtractInput]
	}

	raw, err := s.gen.Generate(ctx, extractPromptHeader+text, extractorRole)
	if err != nil {
		s.logger.Warn("Entity extraction failed, proceeding vector-only", zap.Error(err))
		return nil
	}

	entities := parseEntities(raw)
	s.logger.Debug("Extracted entities", zap.Int("count", len(entities)))
	return entities
}

// parseEntities decodes the extractor output, tolerating markdown fences and
// surrounding prose. Entities with unrecognized categories or empty names are
// dropped.
func parseEntities(raw string) domain.EntitySet {
	jsonStr := extractJSONObject(raw)
	if jsonStr == "" {
		return nil
	}

	var parsed struct {
		Entities []struct {
			Name       string  `json:"name"`
			Type       string  `json:"type"`
			Confidence float64 `json:"confidence"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil
	}

	var out domain.EntitySet
	for _, e := range parsed.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		category, ok := domain.ParseEntityCategory(e.Type)
		if !ok {
			continue
		}
		confidence := e.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 1
		}
		out = append(out, domain.Entity{Name: name, Category: category, Confidence: confidence})
	}
	return out
}

// extractJSONObject returns the substring from the first '{' to the last '}'.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
