package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/config"
	dbRedis "github.com/consilium-ai/consilium/internal/db/redis"
	logpkg "github.com/consilium-ai/consilium/internal/logger"
	"github.com/consilium-ai/consilium/internal/metrics"
	"github.com/consilium-ai/consilium/internal/repository/diagcache"
	"github.com/consilium-ai/consilium/internal/repository/knowledge"
	vectorrepo "github.com/consilium-ai/consilium/internal/repository/vector"
	chiTransport "github.com/consilium-ai/consilium/internal/transport/chi"
	openaiTransport "github.com/consilium-ai/consilium/internal/transport/openai"
	"github.com/consilium-ai/consilium/internal/usecase/diagnosis"
	"github.com/consilium-ai/consilium/internal/usecase/retrieval"
	"github.com/consilium-ai/consilium/internal/usecase/triage"
	"github.com/consilium-ai/consilium/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting consilium API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("llm_model", cfg.LLM.Model),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterDiagnosisMetrics()

	// LLM transport — one client serves generation and embeddings
	llm := openaiTransport.NewClient(&openaiTransport.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		Temperature:    cfg.LLM.Temperature,
		MaxRetries:     cfg.LLM.MaxRetries,
		Logger:         logger,
	})

	// Repositories
	vectorRepo := vectorrepo.New(store, llm, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions)
	if err := vectorRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	diseaseRepo := knowledge.New(store, cfg.Storage.KeyPrefix)
	cache := diagcache.New(
		store,
		cfg.Storage.KeyPrefix,
		cfg.CacheEnabled(),
		time.Duration(cfg.Cache.SweepIntervalSec)*time.Second,
		metrics.CacheTotal,
		logger,
	)

	// Hybrid retrieval: vector channel always on, graph channel optional.
	var graph retrieval.GraphQuerier
	if cfg.Retrieval.GraphEnabled {
		graph = diseaseRepo
	}
	retriever := retrieval.New(llm, vectorRepo, graph, retrieval.Options{
		VectorTopK:  cfg.Retrieval.VectorTopK,
		GraphTopK:   cfg.Retrieval.GraphTopK,
		MaxSnippets: cfg.Retrieval.MaxSnippets,
	}, logger)

	var triager diagnosis.Triager
	if cfg.Orchestrator.TriageEnabled {
		triager = triage.New(llm, logger)
	}

	orchestrator := diagnosis.New(llm, retriever, cache, triager, diagnosis.Options{
		MaxConcurrentJobs: cfg.Orchestrator.MaxConcurrentJobs,
		JobTimeout:        time.Duration(cfg.Orchestrator.JobTimeoutSec) * time.Second,
		CacheTTL:          time.Duration(cfg.Cache.TTLSec) * time.Second,
		RetrievalVersion:  cfg.Retrieval.ConfigVersion,
		DefaultRoles:      cfg.Orchestrator.Roles,
		SummaryEnabled:    cfg.Orchestrator.SummaryEnabled,
	}, logger)

	server := chiTransport.NewServer(orchestrator, cache, diseaseRepo, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
