package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/metrics"
)

// Options holds orchestrator tuning knobs.
type Options struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	CacheTTL          time.Duration
	RetrievalVersion  string
	DefaultRoles      []string
	SummaryEnabled    bool
}

// Service is the concurrent orchestrator: cache-first dispatch of one agent
// job per requested role under a bounded concurrency limit, with per-job
// deadlines and failure isolation. The semaphore is shared process-wide
// across requests and sized once at construction.
type Service struct {
	gen       Generator
	retriever Retriever
	cache     ResultCache
	triage    Triager // nil disables triage
	opts      Options
	sem       chan struct{}
	logger    *zap.Logger
}

// New creates an orchestrator.
func New(
	gen Generator,
	retriever Retriever,
	cache ResultCache,
	triage Triager,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = 5
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}
	return &Service{
		gen:       gen,
		retriever: retriever,
		cache:     cache,
		triage:    triage,
		opts:      opts,
		sem:       make(chan struct{}, opts.MaxConcurrentJobs),
		logger:    logger,
	}
}

// Diagnose runs the full consult for one request: cache lookup, role
// resolution, bounded concurrent dispatch, aggregation, cache write-back.
// It waits for every dispatched job to reach a terminal state - a single
// specialist's failure or timeout never blocks or invalidates the others.
func (s *Service) Diagnose(ctx context.Context, req domain.DiagnosticRequest) (domain.AggregatedReport, error) {
	if err := req.Validate(); err != nil {
		return domain.AggregatedReport{}, err
	}

	key := req.CacheKey(s.opts.RetrievalVersion)
	if report, ok := s.cache.Lookup(ctx, key); ok {
		return report, nil
	}

	roles := s.resolveRoles(ctx, req)
	if len(roles) == 0 {
		return domain.AggregatedReport{}, domain.ErrNoRoles
	}

	start := time.Now()
	s.logger.Info("Dispatching consult",
		zap.String("key", key), zap.Strings("roles", roles))

	// Results keep the original role order regardless of completion order.
	results := make([]domain.AgentJobResult, len(roles))
	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role string) {
			defer wg.Done()
			results[i] = s.dispatch(ctx, role, req.CaseText)
		}(i, role)
	}
	wg.Wait()

	report := domain.AggregatedReport{
		ID:      uuid.NewString(),
		Results: results,
		Elapsed: time.Since(start),
	}
	for _, res := range results {
		metrics.JobsTotal.WithLabelValues(res.Role, string(res.Outcome)).Inc()
		metrics.JobDuration.WithLabelValues(res.Role).Observe(res.Elapsed.Seconds())
		if res.Outcome != domain.OutcomeSuccess {
			report.FailedCount++
		}
	}
	metrics.DiagnosisDuration.Observe(report.Elapsed.Seconds())

	// A report with zero successes is returned but never cached: a total
	// failure must not poison the cache.
	if report.Usable() {
		if s.opts.SummaryEnabled {
			report.Summary = s.summarize(ctx, req.CaseText, results)
		}
		s.cache.Store(ctx, key, report, s.opts.CacheTTL)
	} else {
		s.logger.Warn("All specialist jobs failed, skipping cache write",
			zap.String("key", key), zap.Int("failed", report.FailedCount))
	}

	return report, nil
}

// resolveRoles picks the specialists to consult: explicit request roles win,
// then triage over the configured defaults, then the defaults themselves.
func (s *Service) resolveRoles(ctx context.Context, req domain.DiagnosticRequest) []string {
	if len(req.Roles) > 0 {
		return req.Roles
	}
	if s.triage != nil {
		if roles := s.triage.Select(ctx, req.CaseText, s.opts.DefaultRoles); len(roles) > 0 {
			return roles
		}
	}
	return s.opts.DefaultRoles
}

// dispatch runs one job under the shared concurrency limit and the per-job
// deadline.
func (s *Service) dispatch(ctx context.Context, role, caseText string) domain.AgentJobResult {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return domain.AgentJobResult{
			Role:    role,
			Outcome: domain.OutcomeError,
			Payload: fmt.Sprintf("cancelled before dispatch: %v", ctx.Err()),
		}
	}
	defer func() { <-s.sem }()

	return s.runWithDeadline(ctx, role, caseText)
}

// runWithDeadline races the job against its deadline. The deadline is "stop
// waiting", not "stop running": the job context is cancelled best-effort, but
// the underlying call may not be interruptible; its late result is discarded.
func (s *Service) runWithDeadline(ctx context.Context, role, caseText string) domain.AgentJobResult {
	start := time.Now()

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so an abandoned job can deliver its late result without leaking.
	done := make(chan domain.AgentJobResult, 1)
	go func() {
		done <- s.runJob(jobCtx, role, caseText)
	}()

	timer := time.NewTimer(s.opts.JobTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res
	case <-timer.C:
		cancel()
		s.logger.Warn("Specialist job timed out",
			zap.String("role", role), zap.Duration("deadline", s.opts.JobTimeout))
		return domain.AgentJobResult{
			Role:    role,
			Outcome: domain.OutcomeTimeout,
			Payload: fmt.Sprintf("job exceeded %s deadline", s.opts.JobTimeout),
			Elapsed: time.Since(start),
		}
	case <-ctx.Done():
		return domain.AgentJobResult{
			Role:    role,
			Outcome: domain.OutcomeError,
			Payload: fmt.Sprintf("request cancelled: %v", ctx.Err()),
			Elapsed: time.Since(start),
		}
	}
}

const summaryRole = "multidisciplinary team lead"

const summaryPromptTemplate = `You are leading a multidisciplinary team review.
Below are the specialists' assessments of one patient case. Synthesize them
into the three most likely health problems, each with its rationale and the
suggested next steps. Return only the three points.

Patient case:
%s

Specialist assessments:
%s`

// summarize runs the team-lead synthesis over the successful specialist
// outputs. Best-effort: a summary failure degrades to an empty summary, it
// never fails the report.
func (s *Service) summarize(ctx context.Context, caseText string, results []domain.AgentJobResult) string {
	var b strings.Builder
	for _, res := range results {
		if res.Outcome != domain.OutcomeSuccess {
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", res.Role, res.Payload)
	}
	if b.Len() == 0 {
		return ""
	}

	prompt := fmt.Sprintf(summaryPromptTemplate, caseText, b.String())
	summary, err := s.gen.Generate(ctx, prompt, summaryRole)
	if err != nil {
		s.logger.Warn("Team summary failed, returning report without it", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(summary)
}
