package metrics

import "github.com/prometheus/client_golang/prometheus"

// Diagnosis Prometheus metrics.
var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "jobs_total",
			Help:      "Total number of agent jobs by terminal outcome",
		},
		[]string{"role", "outcome"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "consilium",
			Name:      "job_duration_seconds",
			Help:      "Agent job duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"role"},
	)

	DiagnosisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "consilium",
			Name:      "diagnosis_duration_seconds",
			Help:      "Wall-clock duration of a full diagnosis dispatch",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RetrievalSnippetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "retrieval_snippets_total",
			Help:      "Knowledge snippets returned per retrieval channel",
		},
		[]string{"channel"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "retrieval_errors_total",
			Help:      "Retrieval channel failures absorbed by degradation",
		},
		[]string{"channel"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "llm_requests_total",
			Help:      "Total number of language-model requests",
		},
		[]string{"model", "kind", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "consilium",
			Name:      "llm_request_duration_seconds",
			Help:      "Language-model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"model", "kind"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "consilium",
			Name:      "llm_tokens_total",
			Help:      "Total language-model tokens consumed",
		},
		[]string{"model", "type"},
	)
)

var diagMetricsRegistered bool

// RegisterDiagnosisMetrics registers Prometheus diagnosis metrics. Must be called once from main.
func RegisterDiagnosisMetrics() {
	if diagMetricsRegistered {
		return
	}
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(DiagnosisDuration)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(RetrievalSnippetsTotal)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	diagMetricsRegistered = true
}
