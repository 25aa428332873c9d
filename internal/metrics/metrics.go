package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы сценария перевода
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeExpired   = "expired"
	OutcomeEvicted   = "evicted"
)

var (
	FlowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_bot_flows_started_total",
		Help: "Transfer flows entered",
	}, []string{"flow"})

	FlowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_bot_flow_outcomes_total",
		Help: "Terminal outcomes of transfer flows",
	}, []string{"flow", "outcome"})

	InputsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_bot_inputs_rejected_total",
		Help: "User inputs rejected by step validation",
	}, []string{"flow", "reason"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transfer_bot_api_request_duration_seconds",
		Help:    "Payments API request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
	}, []string{"endpoint"})
)
