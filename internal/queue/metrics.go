package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	jobs        *prometheus.CounterVec
)

func jobCounter() *prometheus.CounterVec {
	metricsOnce.Do(func() {
		jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "queue_jobs_total",
			Help:      "Total jobs by name and outcome",
		}, []string{"job", "status"})
		prometheus.MustRegister(jobs)
	})
	return jobs
}

func observeJob(jobName, status string) {
	jobCounter().WithLabelValues(jobName, status).Inc()
}
