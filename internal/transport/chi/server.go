package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/domain"
	"github.com/consilium-ai/consilium/internal/repository/diagcache"
	"github.com/consilium-ai/consilium/internal/repository/knowledge"
	diagnosisuc "github.com/consilium-ai/consilium/internal/usecase/diagnosis"
)

// Error response codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeLLMProviderError = "llm_provider_error"
	codeInternalError    = "internal_error"
)

// errorResponse is the JSON body for every non-2xx answer.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// healthChecker reports backend liveness.
type healthChecker interface {
	Ping(ctx context.Context) error
}

// Server hosts the diagnostic HTTP API.
type Server struct {
	diagnosis *diagnosisuc.Service
	cache     *diagcache.Cache
	diseases  *knowledge.Repository
	health    healthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	diagnosis *diagnosisuc.Service,
	cache *diagcache.Cache,
	diseases *knowledge.Repository,
	health healthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		diagnosis: diagnosis,
		cache:     cache,
		diseases:  diseases,
		health:    health,
		logger:    logger,
	}
}

// Routes mounts all handlers on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/diagnose", s.Diagnose)
		r.Get("/cache/stats", s.CacheStats)
		r.Delete("/cache", s.ResetCache)
		r.Put("/knowledge/diseases/{name}", s.UpsertDisease)
	})
}

// diagnoseRequest is the POST /diagnose body.
type diagnoseRequest struct {
	CaseText string   `json:"case_text"`
	Roles    []string `json:"roles,omitempty"`
}

// Diagnose handles POST /api/v1/diagnose.
func (s *Server) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := s.diagnosis.Diagnose(r.Context(), domain.DiagnosticRequest{
		CaseText: req.CaseText,
		Roles:    req.Roles,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// CacheStats handles GET /api/v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ResetCache handles DELETE /api/v1/cache.
func (s *Server) ResetCache(w http.ResponseWriter, r *http.Request) {
	removed, err := s.cache.Reset(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// upsertDiseaseRequest is the PUT /knowledge/diseases/{name} body.
type upsertDiseaseRequest struct {
	Description  string   `json:"description"`
	Symptoms     []string `json:"symptoms,omitempty"`
	Examinations []string `json:"examinations,omitempty"`
	Treatments   []string `json:"treatments,omitempty"`
	Departments  []string `json:"departments,omitempty"`
}

// UpsertDisease handles PUT /api/v1/knowledge/diseases/{name}.
func (s *Server) UpsertDisease(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Disease name is required")
		return
	}

	var req upsertDiseaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	d := knowledge.Disease{
		Name:         name,
		Description:  req.Description,
		Symptoms:     req.Symptoms,
		Examinations: req.Examinations,
		Treatments:   req.Treatments,
		Departments:  req.Departments,
	}
	if err := s.diseases.Upsert(r.Context(), d); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := map[string]string{"redis": "ok"}
	httpStatus := http.StatusOK

	if err := s.health.Ping(ctx); err != nil {
		status = "unhealthy"
		checks["redis"] = "fail"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyCase,
		domain.ErrNoRoles,
		domain.ErrLLMProviderError,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	switch {
	case errors.Is(err, domain.ErrEmptyCase), errors.Is(err, domain.ErrNoRoles):
		writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
	case errors.Is(err, domain.ErrLLMProviderError), errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeLLMProviderError, msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
