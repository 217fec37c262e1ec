// Package metrics exposes Prometheus collectors for model exchanges
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gpt_prompter"

// Exchange outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Total number of model exchanges by family, stage and outcome",
		},
		[]string{"family", "stage", "outcome"},
	)

	ExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Model exchange duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"family"},
	)

	PromptTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_total",
			Help:      "Estimated prompt tokens sent, by model",
		},
		[]string{"model"},
	)
)

// ObserveExchange records one finished exchange
func ObserveExchange(family, stage, outcome string, d time.Duration) {
	ExchangesTotal.WithLabelValues(family, stage, outcome).Inc()
	ExchangeDuration.WithLabelValues(family).Observe(d.Seconds())
}

// AddPromptTokens records the estimated prompt size for model
func AddPromptTokens(model string, tokens int) {
	if tokens > 0 {
		PromptTokens.WithLabelValues(model).Add(float64(tokens))
	}
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// collector format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
