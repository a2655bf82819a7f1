// Package metrics provides Prometheus metrics for dron applies and managed jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "dron"
)

// Unit metrics track the managed units on the host.
var (
	// UnitsManaged is the number of managed units by kind.
	UnitsManaged = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "units_managed",
		Help:      "Number of managed units by kind",
	}, []string{"kind"})
)

// Job metrics mirror the monitor entries.
var (
	// JobStatusOK is 1 when the job's last run succeeded.
	JobStatusOK = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_status_ok",
		Help:      "Whether the job's last run succeeded",
	}, []string{"job", "schedule"})

	// JobRunning is 1 while the job has a live process.
	JobRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_running",
		Help:      "Whether the job is currently running",
	}, []string{"job"})

	// JobSuccessRate is the fraction of past runs that did not fail.
	JobSuccessRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "job_success_rate",
		Help:      "Fraction of recorded runs that did not fail",
	}, []string{"job"})
)

// Apply metrics track reconciliation runs.
var (
	// ApplyRunsTotal is the number of applies by outcome.
	ApplyRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "apply_runs_total",
		Help:      "Total number of apply runs by outcome",
	}, []string{"outcome"})

	// ApplyActionsTotal is the number of applied unit changes by action.
	ApplyActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "apply_actions_total",
		Help:      "Total number of unit changes applied by action",
	}, []string{"action"})

	// ApplyDuration is the apply latency.
	ApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "apply_duration_seconds",
		Help:      "Duration of apply runs",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

// Process metrics.
var (
	// Info carries build information.
	Info = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "info",
		Help:      "dron build information",
	}, []string{"version", "go_version", "platform"})

	// ProviderUp is 1 when the provider's last collection succeeded.
	ProviderUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_up",
		Help:      "Whether the last metrics collection of a provider succeeded",
	}, []string{"provider"})

	// LastCollectTime is the unix time of the last collection.
	LastCollectTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_collect_time_seconds",
		Help:      "Unix timestamp of the last metrics collection",
	})
)
