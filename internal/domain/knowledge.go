package domain

// EntityCategory classifies an extracted domain entity.
type EntityCategory string

const (
	CategorySymptom     EntityCategory = "symptom"
	CategoryDisease     EntityCategory = "disease"
	CategoryExamination EntityCategory = "examination"
	CategoryTreatment   EntityCategory = "treatment"
	CategoryDepartment  EntityCategory = "department"
)

// ParseEntityCategory maps a raw category string to a recognized category.
// Unrecognized categories return false and are dropped by extraction.
func ParseEntityCategory(s string) (EntityCategory, bool) {
	switch EntityCategory(NormalizeText(s)) {
	case CategorySymptom:
		return CategorySymptom, true
	case CategoryDisease:
		return CategoryDisease, true
	case CategoryExamination:
		return CategoryExamination, true
	case CategoryTreatment:
		return CategoryTreatment, true
	case CategoryDepartment:
		return CategoryDepartment, true
	}
	return "", false
}

// Entity is one extracted domain entity. Derived per retrieval call, not persisted.
type Entity struct {
	Name       string
	Category   EntityCategory
	Confidence float64
}

// EntitySet holds the entities extracted from one context text.
type EntitySet []Entity

// Names returns the entity names of the given category, in extraction order.
func (s EntitySet) Names(c EntityCategory) []string {
	var out []string
	for _, e := range s {
		if e.Category == c {
			out = append(out, e.Name)
		}
	}
	return out
}

// Others returns the entities outside the given categories.
func (s EntitySet) Others(exclude ...EntityCategory) EntitySet {
	var out EntitySet
	for _, e := range s {
		skip := false
		for _, c := range exclude {
			if e.Category == c {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out
}

// Channel tags the retrieval backend a snippet came from.
type Channel string

const (
	ChannelVector Channel = "vector"
	ChannelGraph  Channel = "graph"
)

// KnowledgeSnippet is one retrieved text fragment with its channel-local
// relevance score and optional structured provenance (e.g. the matched entity).
type KnowledgeSnippet struct {
	Text       string
	Channel    Channel
	Score      float64
	Provenance string
}

// FusedKnowledge is the merged, deduplicated, score-ordered snippet sequence
// handed to one agent job. Ephemeral, scoped to that job.
type FusedKnowledge []KnowledgeSnippet
