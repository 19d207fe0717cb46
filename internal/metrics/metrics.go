package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Retrieval outcomes
const (
	RetrievalHit      = "hit"
	RetrievalEmpty    = "empty"
	RetrievalMismatch = "model_mismatch"
	RetrievalError    = "error"
)

var (
	// ChatAnswers counts answers by mode and how they were produced
	// (greeting, generated, refusal, contact, fallback, denied).
	ChatAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redbot_chat_answers_total",
		Help: "Chat answers returned to visitors, by mode and outcome.",
	}, []string{"mode", "outcome"})

	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redbot_provider_calls_total",
		Help: "Outbound AI provider calls, by provider and result kind.",
	}, []string{"provider", "result"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redbot_provider_call_seconds",
		Help:    "Latency of outbound AI provider calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	Retrievals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redbot_retrievals_total",
		Help: "Knowledge retrievals, by outcome.",
	}, []string{"outcome"})

	AccessDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redbot_access_denials_total",
		Help: "Requests denied by the access guard, by reason.",
	}, []string{"reason"})

	PlansExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redbot_plans_expired_total",
		Help: "LIMITED plans deactivated by the expiry sweep.",
	})

	ConnectedAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redbot_connected_agents",
		Help: "Live-chat agent sockets connected to this instance.",
	})
)
