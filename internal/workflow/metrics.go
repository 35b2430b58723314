package workflow

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	executions  *prometheus.CounterVec
)

func executionCounter() *prometheus.CounterVec {
	metricsOnce.Do(func() {
		executions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "workflow_executions_total",
			Help:      "Total workflow executions by graph and terminal status",
		}, []string{"graph", "status"})
		prometheus.MustRegister(executions)
	})
	return executions
}

func observeExecution(graph, status string) {
	executionCounter().WithLabelValues(graph, status).Inc()
}
