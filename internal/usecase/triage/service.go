package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
)

const triageRole = "general practitioner performing triage"

const promptTemplate = `You are an experienced general practitioner performing triage.
Read the patient case below and pick the specialists most relevant to it from
the available list. Pick the ones most directly related to the symptoms;
complex cases may need several (typically 2-5).

Available specialists: %s

Patient case:
%s

Return ONLY a JSON array of the selected specialist names, nothing else.
Example: ["gastroenterologist", "psychologist"]`

// Generator is the language-model capability used for specialist selection.
type Generator interface {
	Generate(ctx context.Context, prompt, role string) (string, error)
}

// Service selects the specialist roles relevant to a case. Selection is
// best-effort: any failure falls back to consulting every available role.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates a triage service.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Select returns the subset of available roles relevant to the case, in the
// order they appear in available. On any failure it returns all available
// roles rather than an error: triage narrows the consult, it never blocks it.
func (s *Service) Select(ctx context.Context, caseText string, available []string) []string {
	if len(available) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(available, ", "), caseText)
	raw, err := s.gen.Generate(ctx, prompt, triageRole)
	if err != nil {
		s.logger.Warn("Triage call failed, consulting all specialists", zap.Error(err))
		return available
	}

	selected := parseSelection(raw, available)
	if len(selected) == 0 {
		s.logger.Warn("Triage returned no usable selection, consulting all specialists",
			zap.String("raw", raw))
		return available
	}

	s.logger.Info("Triage selected specialists", zap.Strings("roles", selected))
	return selected
}

// parseSelection decodes a JSON array from the model output, tolerating
// markdown fences and surrounding prose, and filters it against the available
// set preserving the available ordering.
func parseSelection(raw string, available []string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}

	var picked []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &picked); err != nil {
		return nil
	}

	wanted := make(map[string]struct{}, len(picked))
	for _, p := range picked {
		wanted[domain.NormalizeText(p)] = struct{}{}
	}

	var out []string
	for _, role := range available {
		if _, ok := wanted[domain.NormalizeText(role)]; ok {
			out = append(out, role)
		}
	}
	return out
}
