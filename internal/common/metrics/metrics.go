package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns handled, by routed intent",
		},
		[]string{"intent"},
	)

	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of open chat sessions",
		},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_fallback_requests_total",
			Help: "LLM fallback calls by outcome (ok, error, rate_limited)",
		},
		[]string{"model", "status"},
	)

	CustomersOnboarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "customers_onboarded_total",
			Help: "Customer records created through onboarding",
		},
	)

	EligibilityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_decisions_total",
			Help: "Eligibility evaluations by outcome",
		},
		[]string{"outcome"},
	)

	SanctionLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sanction_letters_total",
			Help: "Sanction letters rendered, by status",
		},
		[]string{"status"},
	)
)
