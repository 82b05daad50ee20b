package retrieval

import (
	"sort"

	"github.com/consilium-ai/consilium/internal/domain"
)

// fuse merges both channels' snippets: deduplicate by normalized text keeping
// the higher-scoring duplicate (graph wins ties, it carries provenance), sort
// by score descending with graph preferred on equal score, cap the total.
func fuse(vector, graph []domain.KnowledgeSnippet, maxSnippets int) domain.FusedKnowledge {
	merged := make(map[string]domain.KnowledgeSnippet)

	for _, s := range append(append([]domain.KnowledgeSnippet{}, graph...), vector...) {
		key := domain.NormalizeText(s.Text)
		if key == "" {
			continue
		}
		existing, ok := merged[key]
		if !ok || betterSnippet(s, existing) {
			merged[key] = s
		}
	}

	fused := make(domain.FusedKnowledge, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if fused[i].Channel != fused[j].Channel {
			return fused[i].Channel == domain.ChannelGraph
		}
		return fused[i].Text < fused[j].Text
	})

	if maxSnippets > 0 && len(fused) > maxSnippets {
		fused = fused[:maxSnippets]
	}
	return fused
}

// betterSnippet decides whether a replaces b among duplicates.
func betterSnippet(a, b domain.KnowledgeSnippet) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Channel == domain.ChannelGraph && b.Channel != domain.ChannelGraph
}
