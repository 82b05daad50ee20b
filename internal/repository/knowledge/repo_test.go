package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/consilium-ai/consilium/internal/domain"
)

func seedGraph(t *testing.T, r *Repository) {
	t.Helper()
	ctx := context.Background()
	diseases := []Disease{
		{
			Name:        "Migraine",
			Description: "Recurrent moderate to severe headaches",
			Symptoms:    []string{"headache", "nausea", "photophobia"},
			Treatments:  []string{"triptans"},
			Departments: []string{"neurology"},
		},
		{
			Name:        "Tension headache",
			Description: "Mild band-like head pain",
			Symptoms:    []string{"headache"},
		},
		{
			Name:        "Gastritis",
			Description: "Inflammation of the stomach lining",
			Symptoms:    []string{"nausea", "stomach pain"},
		},
	}
	for _, d := range diseases {
		if err := r.Upsert(ctx, d); err != nil {
			t.Fatalf("upsert %s: %v", d.Name, err)
		}
	}
}

func TestUpsert_RequiresName(t *testing.T) {
	r, _ := newTestRepo(t)
	if err := r.Upsert(context.Background(), Disease{Name: "  "}); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestUpsert_WritesNodeAndEdges(t *testing.T) {
	r, ms := newTestRepo(t)
	seedGraph(t, r)

	node, ok := ms.hashes["consilium:kg:disease:migraine"]
	if !ok {
		t.Fatal("expected disease node under normalized key")
	}
	if node["name"] != "Migraine" {
		t.Fatalf("expected original name preserved, got %q", node["name"])
	}

	edge, ok := ms.sets["consilium:kg:symptom:headache"]
	if !ok {
		t.Fatal("expected symptom edge set")
	}
	if _, ok := edge["migraine"]; !ok {
		t.Fatalf("expected migraine in headache edge set, got %v", edge)
	}
}

func TestQuery_SymptomsRankByMatchCount(t *testing.T) {
	r, _ := newTestRepo(t)
	seedGraph(t, r)

	entities := domain.EntitySet{
		{Name: "headache", Category: domain.CategorySymptom},
		{Name: "nausea", Category: domain.CategorySymptom},
	}

	snippets, err := r.Query(context.Background(), entities, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected matches")
	}
	if !strings.Contains(snippets[0].Text, "Migraine") {
		t.Fatalf("expected migraine (2 of 2 symptoms) first, got %q", snippets[0].Text)
	}
	if snippets[0].Score != 1.0 {
		t.Fatalf("expected full match score 1.0, got %v", snippets[0].Score)
	}
	for _, s := range snippets {
		if s.Channel != domain.ChannelGraph {
			t.Fatalf("expected graph channel, got %q", s.Channel)
		}
	}
}

func TestQuery_DiseaseCardWithDifferential(t *testing.T) {
	r, _ := newTestRepo(t)
	seedGraph(t, r)

	entities := domain.EntitySet{
		{Name: "Migraine", Category: domain.CategoryDisease},
	}

	snippets, err := r.Query(context.Background(), entities, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(snippets) < 2 {
		t.Fatalf("expected card plus differential, got %d snippets", len(snippets))
	}
	card := snippets[0]
	if !strings.Contains(card.Text, "Common symptoms") || !strings.Contains(card.Text, "triptans") {
		t.Fatalf("incomplete disease card: %q", card.Text)
	}
	if card.Score != 1.0 {
		t.Fatalf("expected card score 1.0, got %v", card.Score)
	}
	differential := snippets[1]
	if !strings.Contains(differential.Text, "Differential diagnosis") {
		t.Fatalf("expected a differential snippet, got %q", differential.Text)
	}
	if strings.Contains(differential.Text, "migraine") {
		t.Fatalf("differential must not include the disease itself: %q", differential.Text)
	}
}

func TestQuery_UnknownDiseaseYieldsNothing(t *testing.T) {
	r, _ := newTestRepo(t)
	seedGraph(t, r)

	entities := domain.EntitySet{
		{Name: "no such disease", Category: domain.CategoryDisease},
	}

	snippets, err := r.Query(context.Background(), entities, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("expected no snippets, got %+v", snippets)
	}
}

func TestQuery_OtherCategoriesFallBackToNameLookup(t *testing.T) {
	r, _ := newTestRepo(t)
	seedGraph(t, r)

	entities := domain.EntitySet{
		{Name: "stomach", Category: domain.CategoryTreatment},
	}

	snippets, err := r.Query(context.Background(), entities, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(snippets) != 1 || !strings.Contains(snippets[0].Text, "Gastritis") {
		t.Fatalf("expected the gastritis description match, got %+v", snippets)
	}
	if snippets[0].Score != 0.7 {
		t.Fatalf("expected keyword score 0.7, got %v", snippets[0].Score)
	}
}

func TestQuery_CapsAtK(t *testing.T) {
	r, _ := newTestRepo(t)
	seedGraph(t, r)

	entities := domain.EntitySet{
		{Name: "headache", Category: domain.CategorySymptom},
		{Name: "nausea", Category: domain.CategorySymptom},
		{Name: "Migraine", Category: domain.CategoryDisease},
	}

	snippets, err := r.Query(context.Background(), entities, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected cap at 2, got %d", len(snippets))
	}
}

func TestQuery_EmptyEntities(t *testing.T) {
	r, _ := newTestRepo(t)
	snippets, err := r.Query(context.Background(), nil, 5)
	if err != nil || snippets != nil {
		t.Fatalf("expected nil, nil; got %v, %v", snippets, err)
	}
}
