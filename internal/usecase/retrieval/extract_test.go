package retrieval

import (
	"testing"

	"github.com/consilium-ai/consilium/internal/domain"
)

func TestParseEntities_PlainJSON(t *testing.T) {
	raw := `{"entities": [
		{"name": "headache", "type": "symptom", "confidence": 0.9},
		{"name": "migraine", "type": "disease", "confidence": 0.8}
	]}`

	entities := parseEntities(raw)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Name != "headache" || entities[0].Category != domain.CategorySymptom {
		t.Fatalf("unexpected first entity: %+v", entities[0])
	}
	if entities[0].Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", entities[0].Confidence)
	}
}

func TestParseEntities_MarkdownFences(t *testing.T) {
	raw := "Here you go:\n```json\n" +
		`{"entities": [{"name": "MRI", "type": "examination", "confidence": 1.0}]}` +
		"\n```\nLet me know if you need more."

	entities := parseEntities(raw)
	if len(entities) != 1 || entities[0].Category != domain.CategoryExamination {
		t.Fatalf("expected one examination entity, got %+v", entities)
	}
}

func TestParseEntities_DropsUnknownCategoriesAndEmptyNames(t *testing.T) {
	raw := `{"entities": [
		{"name": "headache", "type": "symptom"},
		{"name": "something", "type": "astrology"},
		{"name": "  ", "type": "disease"}
	]}`

	entities := parseEntities(raw)
	if len(entities) != 1 || entities[0].Name != "headache" {
		t.Fatalf("expected only the symptom to survive, got %+v", entities)
	}
}

func TestParseEntities_ClampsConfidence(t *testing.T) {
	raw := `{"entities": [
		{"name": "headache", "type": "symptom", "confidence": 5},
		{"name": "fever", "type": "symptom", "confidence": -1}
	]}`

	entities := parseEntities(raw)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	for _, e := range entities {
		if e.Confidence != 1 {
			t.Fatalf("expected out-of-range confidence clamped to 1, got %v", e.Confidence)
		}
	}
}

func TestParseEntities_Malformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"entities": [`} {
		if got := parseEntities(raw); got != nil {
			t.Fatalf("expected nil for %q, got %+v", raw, got)
		}
	}
}
