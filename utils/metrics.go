package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MetricChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcare_api_chat_turns_total",
			Help: "Number of chat turns processed, by outcome",
		},
		[]string{"outcome"},
	)

	MetricWorkflowLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthcare_api_workflow_duration_seconds",
			Help:    "Duration of a workflow run, from question to completion",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"workflow"},
	)

	MetricActiveWebsockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthcare_api_active_websockets",
			Help: "Number of open chat websocket connections",
		},
	)

	MetricStorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcare_api_storage_errors_total",
			Help: "Number of failed storage operations",
		},
		[]string{"backend", "operation"},
	)
)
