package queue

import (
	"context"
	"time"

	"github.com/copilot-ai/copilot/internal/logging"
)

// ScheduledJob enqueues one job per tick. The job id is stamped with the
// tick's date so a restarted process cannot double-schedule the same day.
type ScheduledJob struct {
	Name     string
	Interval time.Duration
	Payload  func() any
}

// Scheduler turns timer ticks into queue jobs.
type Scheduler struct {
	queue *Queue
	jobs  []ScheduledJob
}

// NewScheduler creates a scheduler bound to a queue.
func NewScheduler(q *Queue) *Scheduler {
	return &Scheduler{queue: q}
}

// Every registers a recurring job.
func (s *Scheduler) Every(interval time.Duration, jobName string, payload func() any) {
	s.jobs = append(s.jobs, ScheduledJob{Name: jobName, Interval: interval, Payload: payload})
}

// Run fires each registered job on its interval until the context is
// canceled. The first tick happens after one full interval.
func (s *Scheduler) Run(ctx context.Context) {
	for _, job := range s.jobs {
		job := job
		go func() {
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					jobID := job.Name + "-" + now.UTC().Format("2006-01-02")
					var payload any
					if job.Payload != nil {
						payload = job.Payload()
					}
					if err := s.queue.Add(ctx, job.Name, payload, WithJobID(jobID)); err != nil {
						logging.Error().Err(err).Str("job", job.Name).Msg("scheduled enqueue failed")
					}
				}
			}
		}()
	}
}
