package provider

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copilot-ai/copilot/pkg/types"
)

var (
	metricsOnce sync.Once
	completions *prometheus.CounterVec
)

func completionCounter() *prometheus.CounterVec {
	metricsOnce.Do(func() {
		completions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "provider_completions_total",
			Help:      "Total LLM completions by provider, output type and status",
		}, []string{"provider", "output", "status"})
		prometheus.MustRegister(completions)
	})
	return completions
}

func observeCompletion(vendor string, output types.OutputType, status string) {
	completionCounter().WithLabelValues(vendor, string(output), status).Inc()
}
