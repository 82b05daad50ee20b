package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/consilium-ai/consilium/internal/domain"
)

const (
	diseaseKeySuffix = "kg:disease:"
	symptomKeySuffix = "kg:symptom:"
)

// store is the consumer interface for graph storage (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Disease is one knowledge-graph node with its outgoing edges.
type Disease struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Symptoms     []string `json:"symptoms,omitempty"`
	Examinations []string `json:"examinations,omitempty"`
	Treatments   []string `json:"treatments,omitempty"`
	Departments  []string `json:"departments,omitempty"`
}

// Repository is the graph retrieval channel: disease nodes as hashes,
// symptom->disease edges as reverse-index sets.
type Repository struct {
	store  store
	prefix string
}

// New creates a graph knowledge repository.
func New(s store, keyPrefix string) *Repository {
	return &Repository{store: s, prefix: keyPrefix}
}

// Upsert stores a disease node and its symptom edges.
func (r *Repository) Upsert(ctx context.Context, d Disease) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("disease name is required")
	}

	fields := map[string]string{
		"name":        d.Name,
		"description": d.Description,
	}
	for field, values := range map[string][]string{
		"symptoms":     d.Symptoms,
		"examinations": d.Examinations,
		"treatments":   d.Treatments,
		"departments":  d.Departments,
	} {
		data, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", field, err)
		}
		fields[field] = string(data)
	}

	if err := r.store.HSet(ctx, r.diseaseKey(d.Name), fields); err != nil {
		return fmt.Errorf("store disease node: %w", err)
	}

	for _, symptom := range d.Symptoms {
		if err := r.store.SAdd(ctx, r.symptomKey(symptom), domain.NormalizeText(d.Name)); err != nil {
			return fmt.Errorf("store symptom edge %q: %w", symptom, err)
		}
	}
	return nil
}

// Query retrieves graph snippets for the extracted entities, at most k.
// Symptom entities are resolved to candidate diseases ranked by matched-edge
// count; disease entities yield their full node card plus related diseases;
// remaining categories fall back to a name lookup.
func (r *Repository) Query(
	ctx context.Context, entities domain.EntitySet, k int,
) ([]domain.KnowledgeSnippet, error) {
	if len(entities) == 0 || k <= 0 {
		return nil, nil
	}

	var snippets []domain.KnowledgeSnippet

	symptoms := entities.Names(domain.CategorySymptom)
	if len(symptoms) > 0 {
		matched, err := r.diseasesBySymptoms(ctx, symptoms, k)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, matched...)
	}

	diseases := entities.Names(domain.CategoryDisease)
	if len(diseases) > k {
		diseases = diseases[:k]
	}
	for _, name := range diseases {
		card, related, err := r.diseaseCard(ctx, name)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, card...)
		snippets = append(snippets, related...)
	}

	others := entities.Others(domain.CategorySymptom, domain.CategoryDisease)
	if len(others) > 3 {
		others = others[:3]
	}
	for _, e := range others {
		found, err := r.lookupByName(ctx, e.Name)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, found...)
	}

	if len(snippets) > k {
		snippets = snippets[:k]
	}
	return snippets, nil
}

// diseasesBySymptoms ranks diseases by how many of the given symptoms point at
// them, scoring each by the matched fraction.
func (r *Repository) diseasesBySymptoms(
	ctx context.Context, symptoms []string, limit int,
) ([]domain.KnowledgeSnippet, error) {
	type match struct {
		disease string
		matched []string
	}

	counts := make(map[string]*match)
	for _, symptom := range symptoms {
		members, err := r.store.SMembers(ctx, r.symptomKey(symptom))
		if err != nil {
			return nil, fmt.Errorf("symptom edge lookup %q: %w", symptom, err)
		}
		for _, disease := range members {
			m, ok := counts[disease]
			if !ok {
				m = &match{disease: disease}
				counts[disease] = m
			}
			m.matched = append(m.matched, symptom)
		}
	}

	matches := make([]*match, 0, len(counts))
	for _, m := range counts {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].matched) != len(matches[j].matched) {
			return len(matches[i].matched) > len(matches[j].matched)
		}
		return matches[i].disease < matches[j].disease
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	var snippets []domain.KnowledgeSnippet
	for _, m := range matches {
		fields, err := r.store.HGetAll(ctx, r.diseaseKey(m.disease))
		if err != nil {
			return nil, fmt.Errorf("disease node lookup %q: %w", m.disease, err)
		}
		name := fields["name"]
		if name == "" {
			name = m.disease
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Disease: %s", name)
		if desc := fields["description"]; desc != "" {
			fmt.Fprintf(&b, ". %s", desc)
		}
		fmt.Fprintf(&b, ". Matched symptoms: %s (%d of %d)",
			strings.Join(m.matched, ", "), len(m.matched), len(symptoms))

		snippets = append(snippets, domain.KnowledgeSnippet{
			Text:       b.String(),
			Channel:    domain.ChannelGraph,
			Score:      float64(len(m.matched)) / float64(len(symptoms)),
			Provenance: "symptoms:" + strings.Join(m.matched, ","),
		})
	}
	return snippets, nil
}

// diseaseCard renders the full node card for a disease plus a differential
// snippet listing diseases sharing its symptoms.
func (r *Repository) diseaseCard(
	ctx context.Context, name string,
) (card, related []domain.KnowledgeSnippet, err error) {
	fields, err := r.store.HGetAll(ctx, r.diseaseKey(name))
	if err != nil {
		return nil, nil, fmt.Errorf("disease node lookup %q: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Disease: %s", fields["name"])
	if desc := fields["description"]; desc != "" {
		fmt.Fprintf(&b, ". %s", desc)
	}
	for _, part := range []struct{ label, field string }{
		{"Common symptoms", "symptoms"},
		{"Suggested examinations", "examinations"},
		{"Treatments", "treatments"},
		{"Departments", "departments"},
	} {
		values := decodeList(fields[part.field])
		if len(values) > 0 {
			fmt.Fprintf(&b, ". %s: %s", part.label, strings.Join(values, ", "))
		}
	}

	card = []domain.KnowledgeSnippet{{
		Text:       b.String(),
		Channel:    domain.ChannelGraph,
		Score:      1.0,
		Provenance: "disease:" + domain.NormalizeText(name),
	}}

	neighbors, err := r.relatedDiseases(ctx, name, decodeList(fields["symptoms"]), 3)
	if err != nil {
		return nil, nil, err
	}
	if len(neighbors) > 0 {
		related = []domain.KnowledgeSnippet{{
			Text: fmt.Sprintf("Differential diagnosis: diseases related to %s: %s",
				fields["name"], strings.Join(neighbors, ", ")),
			Channel:    domain.ChannelGraph,
			Score:      0.8,
			Provenance: "related:" + domain.NormalizeText(name),
		}}
	}
	return card, related, nil
}

// relatedDiseases walks symptom edges outward to find diseases sharing them.
func (r *Repository) relatedDiseases(
	ctx context.Context, name string, symptoms []string, limit int,
) ([]string, error) {
	self := domain.NormalizeText(name)
	seen := map[string]struct{}{self: {}}
	var out []string

	for _, symptom := range symptoms {
		members, err := r.store.SMembers(ctx, r.symptomKey(symptom))
		if err != nil {
			return nil, fmt.Errorf("related disease lookup %q: %w", symptom, err)
		}
		for _, disease := range members {
			if _, ok := seen[disease]; ok {
				continue
			}
			seen[disease] = struct{}{}
			out = append(out, disease)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// lookupByName scans disease nodes for a name or description match.
func (r *Repository) lookupByName(ctx context.Context, term string) ([]domain.KnowledgeSnippet, error) {
	keys, err := r.store.Scan(ctx, r.prefix+diseaseKeySuffix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan disease nodes: %w", err)
	}

	needle := domain.NormalizeText(term)
	var snippets []domain.KnowledgeSnippet
	for _, key := range keys {
		fields, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("disease node lookup %q: %w", key, err)
		}
		haystack := domain.NormalizeText(fields["name"] + " " + fields["description"])
		if !strings.Contains(haystack, needle) {
			continue
		}
		text := "Disease: " + fields["name"]
		if desc := fields["description"]; desc != "" {
			text += ". " + desc
		}
		snippets = append(snippets, domain.KnowledgeSnippet{
			Text:       text,
			Channel:    domain.ChannelGraph,
			Score:      0.7,
			Provenance: "keyword:" + needle,
		})
		if len(snippets) >= 2 {
			break
		}
	}
	return snippets, nil
}

func (r *Repository) diseaseKey(name string) string {
	return r.prefix + diseaseKeySuffix + domain.NormalizeText(name)
}

func (r *Repository) symptomKey(name string) string {
	return r.prefix + symptomKeySuffix + domain.NormalizeText(name)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
