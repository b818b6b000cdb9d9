package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensUsed,
		aiCallsLatencyMs,
	)
}

var (
	aiTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_used",
			Help: "Sum of tokens reported by the generator per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "Generation call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "success"},
	)
)

func ObserveGeneration(provider, model string, tokens, latencyMs int, success bool) {
	aiTokensUsed.WithLabelValues(norm(provider), norm(model)).Add(float64(tokens))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
