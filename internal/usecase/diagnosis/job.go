package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/logger"
	"github.com/consilium-ai/consilium/internal/usecase/retrieval"
)

const specialistPromptTemplate = `Analyze the following patient case as a %s.
Identify findings relevant to your specialty, the likely underlying problems,
and the recommended next examinations or management steps. Answer only with
your specialty's assessment and recommendations.

%sPatient case:
%s`

const knowledgeBlockHeader = "Reference knowledge related to the case (for context, no need to restate it):\n"

// runJob executes one specialist job end to end: retrieve supporting
// knowledge, build the prompt, generate. Every failure - including a panic -
// is converted into an error-tagged result; a job never propagates a failure
// to the orchestrator.
func (s *Service) runJob(ctx context.Context, role, caseText string) (result domain.AgentJobResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = domain.AgentJobResult{
				Role:    role,
				Outcome: domain.OutcomeError,
				Payload: fmt.Sprintf("job panicked: %v", r),
				Elapsed: time.Since(start),
			}
		}
	}()

	fused := s.retriever.Retrieve(ctx, caseText)
	prompt := buildPrompt(role, caseText, fused)

	text, err := s.gen.Generate(ctx, prompt, role)
	if err != nil {
		logger.FromContext(ctx).Warn("Specialist job failed",
			zap.String("role", role), zap.Error(err))
		return domain.AgentJobResult{
			Role:    role,
			Outcome: domain.OutcomeError,
			Payload: fmt.Sprintf("generation failed: %v", err),
			Elapsed: time.Since(start),
		}
	}

	return domain.AgentJobResult{
		Role:    role,
		Outcome: domain.OutcomeSuccess,
		Payload: strings.TrimSpace(text),
		Elapsed: time.Since(start),
	}
}

func buildPrompt(role, caseText string, fused domain.FusedKnowledge) string {
	var knowledgeBlock string
	if block := retrieval.FormatContext(fused); block != "" {
		knowledgeBlock = knowledgeBlockHeader + block + "\n"
	}
	return fmt.Sprintf(specialistPromptTemplate, role, knowledgeBlock, caseText)
}
